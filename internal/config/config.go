// Package config loads the optional feynman.toml file and overlays
// environment variables on top of it.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/abhisek/feynman/internal/llm"
	"github.com/abhisek/feynman/internal/pipeline"
)

// Config is the file-level configuration.
type Config struct {
	LLM      LLMConfig      `toml:"llm"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Store    StoreConfig    `toml:"store"`
	Log      LogConfig      `toml:"log"`
}

// LLMConfig selects and tunes the content provider. API keys are never read
// from the file; they come from the environment.
type LLMConfig struct {
	Provider          string `toml:"provider"`
	Model             string `toml:"model"`    // applied to the selected provider
	BaseURL           string `toml:"base_url"` // openai and openrouter only
	RateLimitRPM      int    `toml:"rate_limit_rpm"`
	TimeoutSeconds    int    `toml:"timeout_seconds"` // 0 = no deadline
	MaxAttempts       int    `toml:"max_attempts"`
	MaxBackoffSeconds int    `toml:"max_backoff_seconds"`
	RetryInvalid      bool   `toml:"retry_invalid"` // retry a malformed structured reply once
}

// PipelineConfig overrides content generation limits.
type PipelineConfig struct {
	NotesLimit      int     `toml:"notes_limit"`
	ExcerptLimit    int     `toml:"excerpt_limit"`
	MinCheckpoints  int     `toml:"min_checkpoints"`
	MaxCheckpoints  int     `toml:"max_checkpoints"`
	QuestionCount   int     `toml:"question_count"`
	LessonMaxTokens int     `toml:"lesson_max_tokens"`
	Temperature     float64 `toml:"temperature"`
	DistinctOptions bool    `toml:"distinct_options"` // reject quizzes that repeat an option
}

// StoreConfig locates the event log. An empty DSN means the default SQLite
// file.
type StoreConfig struct {
	DSN string `toml:"dsn"`
}

// LogConfig controls the host logger.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text or json
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// DefaultPath returns the config file location: FEYNMAN_CONFIG, then
// $XDG_CONFIG_HOME/feynman/config.toml, then ~/.config/feynman/config.toml.
func DefaultPath() (string, error) {
	if p := os.Getenv("FEYNMAN_CONFIG"); p != "" {
		return p, nil
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("finding home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "feynman", "config.toml"), nil
}

// Load reads the TOML file at path, applies defaults and environment
// overrides, and validates the result. An empty path falls back to
// DefaultPath, where a missing file is not an error.
func Load(path string) (*Config, error) {
	optional := false
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path, optional = p, true
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyDefaults(cfg)
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "anthropic"
	}
	if cfg.LLM.MaxAttempts == 0 {
		cfg.LLM.MaxAttempts = 3
	}
	if cfg.LLM.MaxBackoffSeconds == 0 {
		cfg.LLM.MaxBackoffSeconds = 10
	}

	def := pipeline.DefaultConfig()
	p := &cfg.Pipeline
	if p.NotesLimit == 0 {
		p.NotesLimit = def.NotesLimit
	}
	if p.ExcerptLimit == 0 {
		p.ExcerptLimit = def.ExcerptLimit
	}
	if p.MinCheckpoints == 0 {
		p.MinCheckpoints = def.MinCheckpoints
	}
	if p.MaxCheckpoints == 0 {
		p.MaxCheckpoints = def.MaxCheckpoints
	}
	if p.QuestionCount == 0 {
		p.QuestionCount = def.QuestionCount
	}
	if p.LessonMaxTokens == 0 {
		p.LessonMaxTokens = def.LessonMaxTokens
	}
	if p.Temperature == 0 {
		p.Temperature = def.Temperature
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// ApplyEnv overlays FEYNMAN_DB, FEYNMAN_LOG_LEVEL and FEYNMAN_LOG_FORMAT.
// Provider variables are applied by LLMConfig.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("FEYNMAN_DB"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("FEYNMAN_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FEYNMAN_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.LLM.RateLimitRPM < 0 {
		return fmt.Errorf("llm.rate_limit_rpm must not be negative, got %d", c.LLM.RateLimitRPM)
	}
	if c.LLM.TimeoutSeconds < 0 {
		return fmt.Errorf("llm.timeout_seconds must not be negative, got %d", c.LLM.TimeoutSeconds)
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("llm.max_attempts must be at least 1, got %d", c.LLM.MaxAttempts)
	}

	p := c.Pipeline
	if p.NotesLimit < 0 || p.ExcerptLimit < 0 {
		return fmt.Errorf("pipeline limits must not be negative")
	}
	if p.MinCheckpoints < 1 || p.MaxCheckpoints < p.MinCheckpoints {
		return fmt.Errorf("pipeline checkpoint range %d..%d is invalid", p.MinCheckpoints, p.MaxCheckpoints)
	}
	if p.QuestionCount < 1 {
		return fmt.Errorf("pipeline.question_count must be at least 1, got %d", p.QuestionCount)
	}
	if p.Temperature < 0 || p.Temperature > 1 {
		return fmt.Errorf("pipeline.temperature must be within [0, 1], got %g", p.Temperature)
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// LLMConfig projects the file settings onto llm.Config. FEYNMAN_* provider
// variables are applied afterwards, so the environment wins.
func (c *Config) LLMConfig() llm.Config {
	out := llm.DefaultConfig()
	out.Provider = c.LLM.Provider
	out.RateLimitRPM = c.LLM.RateLimitRPM
	out.Timeout = time.Duration(c.LLM.TimeoutSeconds) * time.Second
	out.Retry.MaxAttempts = c.LLM.MaxAttempts
	out.Retry.MaxWait = time.Duration(c.LLM.MaxBackoffSeconds) * time.Second
	out.Retry.RetryInvalid = c.LLM.RetryInvalid

	if m := c.LLM.Model; m != "" {
		switch c.LLM.Provider {
		case "anthropic":
			out.Anthropic.Model = m
		case "openai":
			out.OpenAI.Model = m
		case "gemini":
			out.Gemini.Model = m
		case "openrouter":
			out.OpenRouter.Model = m
		}
	}
	if u := c.LLM.BaseURL; u != "" {
		switch c.LLM.Provider {
		case "openai":
			out.OpenAI.BaseURL = u
		case "openrouter":
			out.OpenRouter.BaseURL = u
		}
	}

	llm.ApplyEnv(&out)
	return out
}

// PipelineConfig returns pipeline defaults with the file overrides applied.
func (c *Config) PipelineConfig() pipeline.Config {
	out := pipeline.DefaultConfig()
	p := c.Pipeline
	out.NotesLimit = p.NotesLimit
	out.ExcerptLimit = p.ExcerptLimit
	out.MinCheckpoints = p.MinCheckpoints
	out.MaxCheckpoints = p.MaxCheckpoints
	out.QuestionCount = p.QuestionCount
	out.LessonMaxTokens = p.LessonMaxTokens
	out.Temperature = p.Temperature
	if p.DistinctOptions {
		out = out.StrictOptions()
	}
	return out
}

// Logger builds the host logger writing to w. verbose forces debug level.
func (c *Config) Logger(w io.Writer, verbose bool) *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
