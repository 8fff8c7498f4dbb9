package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"general": {"baseUrl": "https://agents.example.com", "defaultAgent": "mailer"},
		"stream": {"transport": "websocket"}
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.BaseURL != "https://agents.example.com" {
		t.Errorf("baseUrl = %q", cfg.General.BaseURL)
	}
	if cfg.Stream.Transport != "websocket" {
		t.Errorf("transport = %q", cfg.Stream.Transport)
	}
	// Untouched keys keep their defaults.
	if !cfg.History.Enabled {
		t.Error("history default lost")
	}
	if cfg.Stream.SubmitTimeout != 120 {
		t.Errorf("submitTimeout = %d", cfg.Stream.SubmitTimeout)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("COURIER_TEST_URL", "http://from-env:9999")

	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"general": {"baseUrl": "${COURIER_TEST_URL}", "defaultAgent": "${COURIER_TEST_AGENT:-mailer}"}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.BaseURL != "http://from-env:9999" {
		t.Errorf("baseUrl = %q", cfg.General.BaseURL)
	}
	if cfg.General.DefaultAgent != "mailer" {
		t.Errorf("defaultAgent = %q, want fallback", cfg.General.DefaultAgent)
	}
}

func TestLoad_RejectsBadTransport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"stream": {"transport": "carrier-pigeon"}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Defaults()
	cfg.General.BaseURL = "http://round-trip:1234"

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.General.BaseURL != "http://round-trip:1234" {
		t.Errorf("baseUrl = %q", got.General.BaseURL)
	}
}
