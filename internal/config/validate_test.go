package config

import (
	"fmt"
	"strings"
	"testing"
)

func TestValidateTieredEmptySnapshotIsFatal(t *testing.T) {
	cfg := Default()
	cfg.Snapshot = " "
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("empty snapshot path should be fatal")
	}
}

func TestValidateTieredNegativeSourceIsFatal(t *testing.T) {
	cfg := Default()
	cfg.InstallationSource = -1
	result := cfg.ValidateTiered()
	if !result.HasFatals() {
		t.Fatal("negative installation source should be fatal")
	}
}

func TestValidateTieredArchWithSpaceIsFatal(t *testing.T) {
	cfg := Default()
	cfg.Arch = "x86 64"
	result := cfg.ValidateTiered()
	found := false
	for _, err := range result.Fatals {
		if strings.Contains(err.Error(), "whitespace") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected arch error in fatals")
	}
}

func TestValidateTieredBadLanguageIsWarning(t *testing.T) {
	cfg := Default()
	cfg.Language = "not a locale!"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("bad language should be warning, not fatal: %v", result.Fatals)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", result.Warnings)
	}
	if cfg.Language != "" {
		t.Fatalf("Language = %q, want reset to empty", cfg.Language)
	}
}

func TestValidateTieredAcceptsPosixLocale(t *testing.T) {
	for _, lang := range []string{"de_DE", "de_DE.UTF-8", "pt_BR.UTF-8@euro", "en"} {
		cfg := Default()
		cfg.Language = lang
		if errs := cfg.ValidateTiered().AllErrors(); len(errs) != 0 {
			t.Errorf("language %q: unexpected errors %v", lang, errs)
		}
	}
}

func TestValidateTieredDuplicatePatternsAreWarnings(t *testing.T) {
	cfg := Default()
	cfg.DefaultPatterns = "base x11 base"
	cfg.OptionalDefaultPatterns = "x11 gnome"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("duplicate patterns should not be fatal: %v", result.Fatals)
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", result.Warnings)
	}
}

func TestValidateTieredAuditClamping(t *testing.T) {
	cfg := Default()
	cfg.AuditMaxSizeMB = 0
	cfg.AuditMaxBackups = 500
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatalf("clamped audit limits should be warning: %v", result.Fatals)
	}
	if cfg.AuditMaxSizeMB != 1 {
		t.Fatalf("AuditMaxSizeMB = %d, want 1", cfg.AuditMaxSizeMB)
	}
	if cfg.AuditMaxBackups != 50 {
		t.Fatalf("AuditMaxBackups = %d, want 50", cfg.AuditMaxBackups)
	}
}

func TestValidateTieredUnknownLogLevelIsWarning(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("unknown log level should not be fatal")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for unknown log level")
	}
}

func TestValidateTieredInvalidLogFormatIsWarning(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "xml"
	result := cfg.ValidateTiered()
	if result.HasFatals() {
		t.Fatal("invalid log format should not be fatal")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for invalid log format")
	}
}

func TestHasFatals(t *testing.T) {
	r := ValidationResult{}
	if r.HasFatals() {
		t.Fatal("HasFatals() on empty result should be false")
	}
	r.Fatals = append(r.Fatals, fmt.Errorf("test error"))
	if !r.HasFatals() {
		t.Fatal("HasFatals() should be true with a fatal error")
	}
}

func TestAllErrorsReturnsBoth(t *testing.T) {
	cfg := Default()
	cfg.InstallationSource = -3 // fatal
	cfg.LogFormat = "xml"       // warning
	result := cfg.ValidateTiered()

	all := result.AllErrors()
	if len(all) != 2 {
		t.Fatalf("AllErrors() returned %d errors, expected 2 (fatals + warnings)", len(all))
	}
	if !strings.Contains(all[0].Error(), "installation_source") {
		t.Fatalf("fatals should come first, got %v", all)
	}
}

func TestValidConfigHasNoErrors(t *testing.T) {
	cfg := Default()
	cfg.DefaultPatterns = "base enhanced_base"
	cfg.OptionalDefaultPatterns = "x11"
	cfg.Language = "en_US"
	cfg.Arch = "x86_64"
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("valid config has errors: %v", errs)
	}
}
