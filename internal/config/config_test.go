package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.AnyDebug() {
		t.Error("debug output should be off by default")
	}
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "eventsys.toml", `
workers = 8
log_level = "debug"

[debug]
eventgen = true
dir = "out"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Workers != 8 || cfg.LogLevel != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.QueueSize != 256 {
		t.Errorf("QueueSize = %d, want default 256", cfg.QueueSize)
	}
	if !cfg.EventGenEnabled() || cfg.FactoryGenEnabled() || cfg.Debug.Dir != "out" {
		t.Errorf("debug = %+v", cfg.Debug)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "eventsys.yaml", `
queue_size: 16
debug:
  enabled: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.QueueSize != 16 {
		t.Errorf("QueueSize = %d", cfg.QueueSize)
	}
	if !cfg.FactoryGenEnabled() || !cfg.EventGenEnabled() || !cfg.ListenerGenEnabled() {
		t.Error("debug.enabled should enable every kind")
	}
}

func TestLoad_Missing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg != Default() {
		t.Errorf("missing file should yield defaults, got %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	bad := writeFile(t, "bad.toml", "workers = [")
	_, err := Load(bad)
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Path != bad {
		t.Errorf("expected ParseError for %s, got %v", bad, err)
	}

	unknown := writeFile(t, "cfg.ini", "workers=1")
	if _, err := Load(unknown); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("EVENTSYS_WORKERS", "2")
	t.Setenv("EVENTSYS_DEBUG_LISTENERGEN", "true")
	t.Setenv("EVENTSYS_DEBUG_DIR", "/tmp/gen")

	cfg := Default()
	cfg.LogLevel = "warn"
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.Workers != 2 || !cfg.Debug.ListenerGen || cfg.Debug.Dir != "/tmp/gen" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("unset variable overwrote LogLevel: %q", cfg.LogLevel)
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	t.Setenv("EVENTSYS_WORKERS", "many")
	cfg := Default()
	if err := ApplyEnv(&cfg); err == nil {
		t.Error("expected error for non-numeric EVENTSYS_WORKERS")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative queue", func(c *Config) { c.QueueSize = -1 }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
		{"debug without dir", func(c *Config) { c.Debug.EventGen = true; c.Debug.Dir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrValidationFailed) {
				t.Errorf("Validate() = %v, want ErrValidationFailed", err)
			}
		})
	}
}

func TestLoadAll(t *testing.T) {
	path := writeFile(t, "c.yml", "workers: 3\n")
	t.Setenv("EVENTSYS_QUEUE_SIZE", "9")
	cfg, err := LoadAll(path)
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if cfg.Workers != 3 || cfg.QueueSize != 9 {
		t.Errorf("cfg = %+v", cfg)
	}
}
