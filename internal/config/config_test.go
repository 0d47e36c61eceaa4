package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abhisek/feynman/internal/pipeline"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"FEYNMAN_CONFIG", "FEYNMAN_DB", "FEYNMAN_LOG_LEVEL", "FEYNMAN_LOG_FORMAT",
		"FEYNMAN_LLM_PROVIDER", "FEYNMAN_OPENAI_MODEL", "FEYNMAN_OPENAI_BASE_URL",
		"FEYNMAN_LLM_RATE_LIMIT_RPM", "FEYNMAN_LLM_MAX_ATTEMPTS",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("provider = %q", cfg.LLM.Provider)
	}
	if cfg.Pipeline.MinCheckpoints != 3 || cfg.Pipeline.MaxCheckpoints != 5 {
		t.Errorf("checkpoint range = %d..%d", cfg.Pipeline.MinCheckpoints, cfg.Pipeline.MaxCheckpoints)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[llm]
provider = "openai"
model = "gpt-4.1-mini"
base_url = "http://localhost:8080/v1"
rate_limit_rpm = 30
timeout_seconds = 45
retry_invalid = true

[pipeline]
question_count = 5
excerpt_limit = 1000
distinct_options = true

[store]
dsn = "postgres://feynman@localhost/feynman"

[log]
level = "debug"
format = "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.QuestionCount != 5 || cfg.Pipeline.ExcerptLimit != 1000 {
		t.Errorf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.NotesLimit != 500 {
		t.Errorf("unset notes_limit should default to 500, got %d", cfg.Pipeline.NotesLimit)
	}
	if cfg.Store.DSN != "postgres://feynman@localhost/feynman" {
		t.Errorf("dsn = %q", cfg.Store.DSN)
	}

	lc := cfg.LLMConfig()
	if lc.Provider != "openai" || lc.OpenAI.Model != "gpt-4.1-mini" || lc.OpenAI.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("llm config = %+v", lc.OpenAI)
	}
	if lc.RateLimitRPM != 30 || lc.Timeout != 45*time.Second {
		t.Errorf("rpm=%d timeout=%s", lc.RateLimitRPM, lc.Timeout)
	}
	if lc.Anthropic.Model != "claude-haiku" {
		t.Errorf("other providers keep defaults, got %q", lc.Anthropic.Model)
	}

	if !lc.Retry.RetryInvalid {
		t.Error("retry_invalid should reach the retry config")
	}

	pc := cfg.PipelineConfig()
	if pc.QuestionCount != 5 || pc.ExcerptLimit != 1000 {
		t.Errorf("pipeline config = %+v", pc)
	}
	if got, want := len(pc.QuestionValidators), len(pipeline.DefaultConfig().QuestionValidators)+1; got != want {
		t.Errorf("distinct_options should add a validator: got %d, want %d", got, want)
	}
}

func TestDefaultsMatchSessionRules(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLMConfig().Retry.RetryInvalid {
		t.Error("malformed replies must not be retried unless configured")
	}
	if got := len(cfg.PipelineConfig().QuestionValidators); got != 1 {
		t.Errorf("default question chain has %d validators, want 1", got)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[llm]
provider = "openai"
rate_limit_rpm = 30

[store]
dsn = "from-file.db"
`)
	t.Setenv("FEYNMAN_DB", "from-env.db")
	t.Setenv("FEYNMAN_LLM_PROVIDER", "gemini")
	t.Setenv("FEYNMAN_LLM_RATE_LIMIT_RPM", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.DSN != "from-env.db" {
		t.Errorf("dsn = %q", cfg.Store.DSN)
	}
	lc := cfg.LLMConfig()
	if lc.Provider != "gemini" || lc.RateLimitRPM != 5 {
		t.Errorf("provider=%q rpm=%d", lc.Provider, lc.RateLimitRPM)
	}
}

func TestLoadMissing(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("explicit missing file should fail")
	}

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("implicit missing file should fall back to defaults: %v", err)
	}
	if cfg.LLM.MaxAttempts != 3 {
		t.Errorf("max attempts = %d", cfg.LLM.MaxAttempts)
	}
}

func TestDefaultPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	p, err := DefaultPath()
	if err != nil || p != filepath.Join("/tmp/xdg", "feynman", "config.toml") {
		t.Fatalf("DefaultPath() = %q, %v", p, err)
	}

	t.Setenv("FEYNMAN_CONFIG", "/etc/feynman.toml")
	if p, _ := DefaultPath(); p != "/etc/feynman.toml" {
		t.Fatalf("FEYNMAN_CONFIG ignored: %q", p)
	}
}

func TestLoadInvalid(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "[llm\nprovider=", "parse"},
		{"negative rpm", "[llm]\nrate_limit_rpm = -1", "rate_limit_rpm"},
		{"bad range", "[pipeline]\nmin_checkpoints = 6\nmax_checkpoints = 4", "checkpoint range"},
		{"temperature", "[pipeline]\ntemperature = 1.5", "temperature"},
		{"log level", "[log]\nlevel = \"chatty\"", "log.level"},
		{"log format", "[log]\nformat = \"xml\"", "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	cfg := Default()
	var buf bytes.Buffer

	cfg.Logger(&buf, false).Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info level: %q", buf.String())
	}

	cfg.Logger(&buf, true).Debug("shown", "checkpoint", 2)
	if !strings.Contains(buf.String(), "checkpoint=2") {
		t.Fatalf("verbose text log missing: %q", buf.String())
	}

	buf.Reset()
	cfg.Log.Format = "json"
	cfg.Logger(&buf, false).Info("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected json output, got %q", buf.String())
	}
}
