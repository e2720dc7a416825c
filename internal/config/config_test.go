package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMissingFileIsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for explicit missing config file")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkgreconcile.yaml")
	data := "snapshot: /tmp/state.yaml\n" +
		"default_patterns: base enhanced_base\n" +
		"installation_source: 2\n" +
		"log_format: json\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PKGRECONCILE_ARCH", "aarch64")
	t.Setenv("PKGRECONCILE_METRICS_PATH", "/tmp/pkgreconcile.prom")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	want.Snapshot = "/tmp/state.yaml"
	want.DefaultPatterns = "base enhanced_base"
	want.InstallationSource = 2
	want.LogFormat = "json"
	want.Arch = "aarch64"
	want.MetricsPath = "/tmp/pkgreconcile.prom"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaultLeavesJournalAndMetricsOff(t *testing.T) {
	cfg := Default()
	if cfg.AuditPath != "" || cfg.MetricsPath != "" {
		t.Fatalf("audit %q and metrics %q should be unset by default", cfg.AuditPath, cfg.MetricsPath)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "pkgreconcile.yaml")
	cfg := Default()
	cfg.OptionalDefaultPatterns = "x11 gnome"
	cfg.Language = "de_DE"

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
