package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abhisek/feynman/internal/store"
)

// Options carries the collaborators wrapped around the base provider.
// Every field is optional.
type Options struct {
	EventRepo store.EventRepo
	Metrics   MetricsRecorder
	Logger    *slog.Logger
}

// NewProvider creates a Provider from configuration, wrapped with the
// middleware chain:
//
//	caller → retry → rate limit → timeout → metrics → logging → base
//
// Retry sits outermost so each attempt is throttled, bounded, and recorded
// individually.
func NewProvider(ctx context.Context, cfg Config, opts Options) (Provider, error) {
	base, err := newBaseProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Provider == "mock" {
		return base, nil
	}

	p := WithLogging(base, cfg.Provider, opts.EventRepo, opts.Logger)
	p = WithMetrics(p, opts.Metrics)
	p = WithTimeout(p, cfg.Timeout)
	p = WithRateLimit(p, cfg.RateLimitRPM)
	p = WithRetry(p, cfg.Retry)
	return p, nil
}

func newBaseProvider(ctx context.Context, cfg Config) (Provider, error) {
	var (
		base Provider
		err  error
	)

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}
	return base, nil
}

// ResolveConfig returns cfg if its provider has credentials, otherwise the
// first provider discovered from the standard *_API_KEY variables. The
// result is validated.
func ResolveConfig(cfg Config) (Config, error) {
	if !cfg.HasKey() {
		if found, ok := DiscoverConfig(); ok {
			found.Retry = cfg.Retry
			found.RateLimitRPM = cfg.RateLimitRPM
			found.Timeout = cfg.Timeout
			cfg = found
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
