package config

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// ValidationResult splits validation errors into fatals, which stop the
// command, and warnings, which were corrected or can be ignored.
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

func (r ValidationResult) HasFatals() bool { return len(r.Fatals) > 0 }

// AllErrors returns fatals followed by warnings.
func (r ValidationResult) AllErrors() []error {
	all := make([]error, 0, len(r.Fatals)+len(r.Warnings))
	all = append(all, r.Fatals...)
	return append(all, r.Warnings...)
}

// ValidateTiered checks the config. Out of range limits are clamped to safe
// values and reported as warnings.
func (c *Config) ValidateTiered() ValidationResult {
	var r ValidationResult

	if strings.TrimSpace(c.Snapshot) == "" {
		r.Fatals = append(r.Fatals, fmt.Errorf("snapshot path is empty"))
	}

	if c.InstallationSource < 0 {
		r.Fatals = append(r.Fatals, fmt.Errorf("installation_source %d must not be negative", c.InstallationSource))
	}

	if strings.IndexFunc(c.Arch, unicode.IsSpace) >= 0 {
		r.Fatals = append(r.Fatals, fmt.Errorf("arch %q contains whitespace", c.Arch))
	}

	if c.Language != "" {
		tag := c.Language
		if i := strings.IndexAny(tag, ".@"); i >= 0 {
			tag = tag[:i]
		}
		if _, err := language.Parse(tag); err != nil {
			r.Warnings = append(r.Warnings, fmt.Errorf("language %q is not a valid locale, using the environment: %w", c.Language, err))
			c.Language = ""
		}
	}

	required := make(map[string]bool)
	for _, name := range strings.Fields(c.DefaultPatterns) {
		if required[name] {
			r.Warnings = append(r.Warnings, fmt.Errorf("default_patterns lists %q more than once", name))
		}
		required[name] = true
	}
	for _, name := range strings.Fields(c.OptionalDefaultPatterns) {
		if required[name] {
			r.Warnings = append(r.Warnings, fmt.Errorf("pattern %q is both required and optional, treating it as required", name))
		}
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		r.Warnings = append(r.Warnings, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	if c.AuditMaxSizeMB < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("audit_max_size_mb %d is below minimum 1, clamping", c.AuditMaxSizeMB))
		c.AuditMaxSizeMB = 1
	} else if c.AuditMaxSizeMB > 1024 {
		r.Warnings = append(r.Warnings, fmt.Errorf("audit_max_size_mb %d exceeds maximum 1024, clamping", c.AuditMaxSizeMB))
		c.AuditMaxSizeMB = 1024
	}

	if c.AuditMaxBackups < 1 {
		r.Warnings = append(r.Warnings, fmt.Errorf("audit_max_backups %d is below minimum 1, clamping", c.AuditMaxBackups))
		c.AuditMaxBackups = 1
	} else if c.AuditMaxBackups > 50 {
		r.Warnings = append(r.Warnings, fmt.Errorf("audit_max_backups %d exceeds maximum 50, clamping", c.AuditMaxBackups))
		c.AuditMaxBackups = 50
	}

	return r
}

// Validate checks the config and returns all errors found. Every error is
// logged as a warning.
func (c *Config) Validate() []error {
	errs := c.ValidateTiered().AllErrors()
	for _, err := range errs {
		slog.Warn("config validation", "error", err)
	}
	return errs
}
