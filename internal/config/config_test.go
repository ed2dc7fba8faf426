package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.SampleInterval != 30*time.Millisecond || cfg.EmitInterval != 1500*time.Millisecond {
		t.Fatalf("unexpected default intervals: %s / %s", cfg.SampleInterval, cfg.EmitInterval)
	}
	if cfg.Alpha != 0.3 || cfg.TopN != 10 {
		t.Fatalf("unexpected smoothing defaults: alpha=%v top=%d", cfg.Alpha, cfg.TopN)
	}
}

func TestFromFlagsPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sysmoni.yaml")
	data := `
sample_interval: 50ms
emit_interval: 2s
top_n: 5
alpha: 0.5
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SYSMONI_TOP", "7")
	t.Setenv("SYSMONI_EMIT_INTERVAL", "3")

	cfg, err := FromFlags([]string{"-config", path, "-alpha", "0.2"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.SampleInterval != 50*time.Millisecond {
		t.Fatalf("expected yaml sample interval 50ms, got %s", cfg.SampleInterval)
	}
	if cfg.EmitInterval != 3*time.Second {
		t.Fatalf("expected env emit interval 3s, got %s", cfg.EmitInterval)
	}
	if cfg.TopN != 7 {
		t.Fatalf("expected env top 7, got %d", cfg.TopN)
	}
	if cfg.Alpha != 0.2 {
		t.Fatalf("expected flag alpha 0.2, got %v", cfg.Alpha)
	}
}

func TestFromFlagsModeShortcuts(t *testing.T) {
	cfg, err := FromFlags([]string{"-json-stream"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != ModeJSONStream {
		t.Fatalf("expected json-stream mode, got %s", cfg.Mode)
	}

	cfg, err = FromFlags([]string{"-json"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != ModeJSON {
		t.Fatalf("expected json mode, got %s", cfg.Mode)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(*Config)
		field string
	}{
		{"alpha zero", func(c *Config) { c.Alpha = 0 }, "alpha"},
		{"alpha above one", func(c *Config) { c.Alpha = 1.5 }, "alpha"},
		{"top zero", func(c *Config) { c.TopN = 0 }, "topn"},
		{"bad mode", func(c *Config) { c.Mode = "gui" }, "mode"},
		{"emit shorter than sample", func(c *Config) { c.EmitInterval = time.Millisecond; c.SampleInterval = time.Second }, "emitinterval"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mut(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Fatalf("expected error mentioning %s, got %v", tc.field, err)
			}
		})
	}
}

func TestFromFlagsMissingFile(t *testing.T) {
	if _, err := FromFlags([]string{"-config", filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestEnvOverridesEveryTunable(t *testing.T) {
	t.Setenv("SYSMONI_DRAIN", "true")
	t.Setenv("SYSMONI_CANDIDATES_PER_CORE", "6")
	t.Setenv("SYSMONI_MIN_CANDIDATES", "20")
	t.Setenv("SYSMONI_PROCESS_TTL", "4")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SYSMONI_LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("SYSMONI_LOG_FORMAT", "JSON")

	cfg, err := FromFlags(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Drain || cfg.CandidatesPerCore != 6 || cfg.MinCandidates != 20 || cfg.ProcessTTL != 4 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Fatalf("prefixed log settings should win: level=%s format=%s", cfg.LogLevel, cfg.LogFormat)
	}

	cfg, err = FromFlags([]string{"-drain=false", "-min-candidates", "3"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Drain || cfg.MinCandidates != 3 {
		t.Fatalf("flags should override env: drain=%v min=%d", cfg.Drain, cfg.MinCandidates)
	}
}
