package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"WEBUNTIS_SERVER", "WEBUNTIS_SCHOOL", "WEBUNTIS_USERNAME", "WEBUNTIS_PASSWORD", "WEBUNTIS_CLASS_ID"} {
		t.Setenv(k, "")
	}
}

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timezone != "Europe/Brussels" || cfg.DaysBack != 90 || cfg.DaysForward != 180 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config file not created: %v", err)
	}
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server: demo.webuntis.com\nschool: demo\nusername: u\npassword: p\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output != "docs/calendar.ics" {
		t.Fatalf("Output = %q, want default", cfg.Output)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server: file.example.com\nschool: fileschool\nusername: fileuser\npassword: filepass\nclass_id: 1\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	t.Setenv("WEBUNTIS_SERVER", "env.example.com")
	t.Setenv("WEBUNTIS_CLASS_ID", "42")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server != "env.example.com" {
		t.Fatalf("Server = %q, want env override", cfg.Server)
	}
	if cfg.ClassID != 42 {
		t.Fatalf("ClassID = %d, want env override 42", cfg.ClassID)
	}
	if cfg.School != "fileschool" {
		t.Fatalf("School = %q, file value must survive when env unset", cfg.School)
	}
}

func TestValidateReportsMissing(t *testing.T) {
	clearEnv(t)
	cfg := DefaultConfig()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate: expected error for empty credentials")
	}
	for _, field := range []string{"server", "school", "username", "password"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("Validate error %q does not name %q", err, field)
		}
	}
}
