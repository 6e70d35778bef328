package internal

import (
	"strings"
	"testing"

	"golang.org/x/text/language"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
	tag, err := cfg.LanguageTag()
	if err != nil {
		t.Fatal(err)
	}
	if tag != language.German {
		t.Errorf("locale = %v, want de", tag)
	}
}

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestStorageConfig(t *testing.T) {
	cfg := StorageConfig{}
	if err := cfg.Validate(); err == nil {
		t.Error("fs driver without path should fail")
	}
	if cfg.Driver != DriverFS {
		t.Errorf("driver = %q, want %q", cfg.Driver, DriverFS)
	}

	cfg = StorageConfig{Driver: "mongo", Path: "x"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown driver should fail")
	}

	cfg = StorageConfig{Driver: DriverSQLite}
	if err := cfg.Validate(); err != nil {
		t.Errorf("sqlite driver needs no path: %v", err)
	}
}

func TestFullConfig_SQLiteRequiresPath(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Storage.Driver = DriverSQLite
	cfg.SQLite.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("sqlite driver without sqlite.path should fail")
	}

	cfg.Storage.Driver = DriverFS
	if err := cfg.Validate(); err != nil {
		t.Fatalf("fs driver ignores sqlite.path: %v", err)
	}
}

func TestFullConfig_Locale(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Locale = "not a locale!"
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid locale should fail")
	}
}

func TestFullConfig_DefaultSources(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Settings.DefaultSources = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty default sources should fail")
	}
	cfg.Settings.DefaultSources = []string{"Web", ""}
	if err := cfg.Validate(); err == nil {
		t.Fatal("blank source label should fail")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestHTTPConfig_RateLimit(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.HTTP.RateLimit.RequestsPerSecond = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative rate should fail")
	}
	cfg.App.HTTP.RateLimit = RateLimitConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero rate disables limiting: %v", err)
	}
}

func TestLogFileConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.LogFile.MaxBackups = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative max_backups should fail")
	}
}
