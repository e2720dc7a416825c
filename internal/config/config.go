package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

const envPrefix = "PKGRECONCILE"

type Config struct {
	Snapshot                string `mapstructure:"snapshot"`
	DefaultPatterns         string `mapstructure:"default_patterns"`
	OptionalDefaultPatterns string `mapstructure:"optional_default_patterns"`
	Language                string `mapstructure:"language"`
	InstallationSource      int    `mapstructure:"installation_source"`
	Arch                    string `mapstructure:"arch"`
	LogLevel                string `mapstructure:"log_level"`
	LogFormat               string `mapstructure:"log_format"`
	AuditPath               string `mapstructure:"audit_path"`
	AuditMaxSizeMB          int    `mapstructure:"audit_max_size_mb"`
	AuditMaxBackups         int    `mapstructure:"audit_max_backups"`
	MetricsPath             string `mapstructure:"metrics_path"`
}

// Default returns the built-in configuration. The audit journal and the
// metrics file are off until a path is configured.
func Default() *Config {
	return &Config{
		Snapshot:           filepath.Join(dataDir(), "resolvables.yaml"),
		InstallationSource: 1,
		LogLevel:           "info",
		LogFormat:          "text",
		AuditMaxSizeMB:     50,
		AuditMaxBackups:    3,
	}
}

// Load reads cfgFile, or pkgreconcile.yaml from the config directory or the
// working directory when cfgFile is empty. PKGRECONCILE_* environment
// variables override file values. A missing default file is not an error.
func Load(cfgFile string) (*Config, error) {
	cfg := Default()
	v := newViper(cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("pkgreconcile")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveTo writes cfg as YAML to cfgFile, or to the default location when
// cfgFile is empty.
func SaveTo(cfg *Config, cfgFile string) error {
	v := newViper(cfg)

	var cfgPath string
	if cfgFile != "" {
		cfgPath = cfgFile
		dir := filepath.Dir(cfgPath)
		if dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return err
			}
		}
	} else {
		cfgPath = filepath.Join(configDir(), "pkgreconcile.yaml")
		if err := os.MkdirAll(configDir(), 0700); err != nil {
			return err
		}
	}

	if err := v.WriteConfigAs(cfgPath); err != nil {
		return err
	}

	return os.Chmod(cfgPath, 0600)
}

// newViper returns a viper instance seeded with every key of cfg, so that
// environment overrides apply to keys absent from the file.
func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetDefault("snapshot", cfg.Snapshot)
	v.SetDefault("default_patterns", cfg.DefaultPatterns)
	v.SetDefault("optional_default_patterns", cfg.OptionalDefaultPatterns)
	v.SetDefault("language", cfg.Language)
	v.SetDefault("installation_source", cfg.InstallationSource)
	v.SetDefault("arch", cfg.Arch)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("audit_path", cfg.AuditPath)
	v.SetDefault("audit_max_size_mb", cfg.AuditMaxSizeMB)
	v.SetDefault("audit_max_backups", cfg.AuditMaxBackups)
	v.SetDefault("metrics_path", cfg.MetricsPath)
	return v
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "pkgreconcile")
	case "darwin":
		return "/Library/Application Support/pkgreconcile"
	default:
		return "/etc/pkgreconcile"
	}
}

func dataDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "pkgreconcile", "data")
	case "darwin":
		return "/Library/Application Support/pkgreconcile/data"
	default:
		return "/var/lib/pkgreconcile"
	}
}
