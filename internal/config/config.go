package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ModeTUI        = "tui"
	ModeJSON       = "json"
	ModeJSONStream = "json-stream"
	ModeServe      = "serve"
)

// Config carries runtime options for sysmoni.
type Config struct {
	SampleInterval    time.Duration `yaml:"sample_interval" validate:"min=1ms"`
	EmitInterval      time.Duration `yaml:"emit_interval" validate:"min=1ms,gtefield=SampleInterval"`
	Alpha             float64       `yaml:"alpha" validate:"gt=0,lte=1"`
	TopN              int           `yaml:"top_n" validate:"min=1"`
	CandidatesPerCore int           `yaml:"candidates_per_core" validate:"min=1"`
	MinCandidates     int           `yaml:"min_candidates" validate:"min=0"`
	ProcessTTL        int           `yaml:"process_ttl" validate:"min=0"`
	Drain             bool          `yaml:"drain"`
	Mode              string        `yaml:"mode" validate:"oneof=tui json json-stream serve"`
	Addr              string        `yaml:"addr" validate:"required"`
	LogLevel          string        `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat         string        `yaml:"log_format" validate:"oneof=text json"`
}

func Default() Config {
	return Config{
		SampleInterval:    30 * time.Millisecond,
		EmitInterval:      1500 * time.Millisecond,
		Alpha:             0.3,
		TopN:              10,
		CandidatesPerCore: 4,
		MinCandidates:     10,
		ProcessTTL:        0,
		Drain:             false,
		Mode:              ModeTUI,
		Addr:              ":9273",
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

var validate = validator.New()

// Validate reports the first invalid field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("config: %s failed %q (value %v)", strings.ToLower(fe.Field()), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("config: %w", err)
}

func bind(fs *flag.FlagSet, cfg *Config) {
	fs.DurationVar(&cfg.SampleInterval, "sample-interval", cfg.SampleInterval, "sampler tick")
	fs.DurationVar(&cfg.EmitInterval, "emit-interval", cfg.EmitInterval, "aggregation window")
	fs.Float64Var(&cfg.Alpha, "alpha", cfg.Alpha, "process CPU smoothing factor (0,1]")
	fs.IntVar(&cfg.TopN, "top", cfg.TopN, "processes in the published top list")
	fs.IntVar(&cfg.CandidatesPerCore, "candidates-per-core", cfg.CandidatesPerCore, "process candidates sampled per core")
	fs.IntVar(&cfg.MinCandidates, "min-candidates", cfg.MinCandidates, "minimum process candidates per sample")
	fs.IntVar(&cfg.ProcessTTL, "process-ttl", cfg.ProcessTTL, "windows before an unseen process is forgotten (0 = never)")
	fs.BoolVar(&cfg.Drain, "drain", cfg.Drain, "clear the cache on read instead of re-reading the latest sample")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "tui|json|json-stream|serve")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address for serve mode")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug|info|warn|error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text|json")
}

// FromFlags builds the config from defaults, an optional YAML file, .env and
// environment overrides, then explicitly set flags, in that order.
func FromFlags(args []string) (Config, error) {
	scratch := Default()
	fs := flag.NewFlagSet("sysmoni", flag.ContinueOnError)
	bind(fs, &scratch)
	path := fs.String("config", "", "path to YAML config file")
	jsonOnce := fs.Bool("json", false, "output one-shot JSON and exit")
	jsonStream := fs.Bool("json-stream", false, "stream NDJSON until interrupted")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if *path != "" {
		if err := cfg.loadFile(*path); err != nil {
			return Config{}, err
		}
	}

	_ = godotenv.Load()
	cfg.applyEnv()

	final := flag.NewFlagSet("sysmoni", flag.ContinueOnError)
	bind(final, &cfg)
	var setErr error
	fs.Visit(func(f *flag.Flag) {
		if final.Lookup(f.Name) == nil || setErr != nil {
			return
		}
		setErr = final.Set(f.Name, f.Value.String())
	})
	if setErr != nil {
		return Config{}, setErr
	}

	switch {
	case *jsonOnce:
		cfg.Mode = ModeJSON
	case *jsonStream:
		cfg.Mode = ModeJSONStream
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v, ok := envDuration("SYSMONI_SAMPLE_INTERVAL"); ok {
		c.SampleInterval = v
	}
	if v, ok := envDuration("SYSMONI_EMIT_INTERVAL"); ok {
		c.EmitInterval = v
	}
	if v := os.Getenv("SYSMONI_ALPHA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Alpha = f
		}
	}
	envInt("SYSMONI_TOP", &c.TopN)
	envInt("SYSMONI_CANDIDATES_PER_CORE", &c.CandidatesPerCore)
	envInt("SYSMONI_MIN_CANDIDATES", &c.MinCandidates)
	envInt("SYSMONI_PROCESS_TTL", &c.ProcessTTL)
	if v := os.Getenv("SYSMONI_DRAIN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Drain = b
		}
	}
	if v := os.Getenv("SYSMONI_MODE"); v != "" {
		c.Mode = v
	}
	if v := os.Getenv("SYSMONI_ADDR"); v != "" {
		c.Addr = v
	}
	// Plain LOG_* is kept for .env files shared with other services.
	for _, key := range []string{"LOG_LEVEL", "SYSMONI_LOG_LEVEL"} {
		if v := os.Getenv(key); v != "" {
			c.LogLevel = strings.ToLower(v)
		}
	}
	for _, key := range []string{"LOG_FORMAT", "SYSMONI_LOG_FORMAT"} {
		if v := os.Getenv(key); v != "" {
			c.LogFormat = strings.ToLower(v)
		}
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// envDuration accepts Go durations and bare seconds ("2" == "2s").
func envDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	if parsed, err := time.ParseDuration(v); err == nil {
		return parsed, true
	}
	if parsed, err := time.ParseDuration(v + "s"); err == nil {
		return parsed, true
	}
	return 0, false
}
