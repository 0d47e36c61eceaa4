package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/feynman/internal/store"
)

// fakeEventRepo records LLM events; other methods are unused here.
type fakeEventRepo struct {
	store.EventRepo

	mu     sync.Mutex
	events []store.LLMRequestEventData
	err    error
}

func (f *fakeEventRepo) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, data)
	return f.err
}

type observation struct {
	model, purpose string
	err            error
}

type fakeRecorder struct {
	mu  sync.Mutex
	obs []observation
}

func (f *fakeRecorder) ObserveLLMRequest(model, purpose string, _ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.obs = append(f.obs, observation{model, purpose, err})
}

func TestLogging_RecordsSuccessAndFailure(t *testing.T) {
	repo := &fakeEventRepo{}
	mock := NewMockProvider(
		MockResponse{Content: []byte("A lesson on vectors."), Usage: Usage{InputTokens: 12, OutputTokens: 40}},
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
	)
	p := WithLogging(mock, "anthropic", repo, nil)

	ctx := WithPurpose(context.Background(), PurposeLesson)
	req := Request{
		System:   "You are a tutor.",
		Messages: []Message{{Role: RoleUser, Content: "Teach vectors."}},
		Schema:   testSchema(),
	}
	if _, err := p.Generate(ctx, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Generate(ctx, req); err == nil {
		t.Fatal("expected error on second call")
	}

	if len(repo.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(repo.events))
	}
	ok, failed := repo.events[0], repo.events[1]
	if ok.Provider != "anthropic" || ok.Model != "mock" || ok.Purpose != PurposeLesson {
		t.Errorf("unexpected labels %+v", ok)
	}
	if !ok.Success || ok.InputTokens != 12 || ok.OutputTokens != 40 || ok.ResponseBody != "A lesson on vectors." {
		t.Errorf("unexpected success event %+v", ok)
	}
	for _, want := range []string{"[system]", "[user]", "Teach vectors.", "[schema: test-checkpoint]"} {
		if !strings.Contains(ok.RequestBody, want) {
			t.Errorf("request body missing %q", want)
		}
	}
	if failed.Success || failed.ErrorMessage == "" {
		t.Errorf("unexpected failure event %+v", failed)
	}
}

func TestLogging_RepoFailureDoesNotFailCall(t *testing.T) {
	repo := &fakeEventRepo{err: errors.New("disk full")}
	p := WithLogging(NewMockProvider(MockText("ok")), "mock", repo, nil)

	resp, err := p.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "ok" {
		t.Fatalf("unexpected content %q", resp.Text())
	}
}

func TestLogging_NilRepo(t *testing.T) {
	p := WithLogging(NewMockProvider(MockText("ok")), "mock", nil, nil)
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMetrics_ObservesEachCall(t *testing.T) {
	rec := &fakeRecorder{}
	mock := NewMockProvider(MockText("ok"), MockResponse{Err: &ErrRateLimit{}})
	p := WithMetrics(mock, rec)

	ctx := WithPurpose(context.Background(), PurposeQuiz)
	_, _ = p.Generate(ctx, Request{})
	_, _ = p.Generate(ctx, Request{})

	if len(rec.obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(rec.obs))
	}
	if rec.obs[0].model != "mock" || rec.obs[0].purpose != PurposeQuiz || rec.obs[0].err != nil {
		t.Errorf("unexpected first observation %+v", rec.obs[0])
	}
	if rec.obs[1].err == nil {
		t.Error("expected error on second observation")
	}
}

func TestMetrics_NilRecorderIsPassthrough(t *testing.T) {
	mock := NewMockProvider()
	if p := WithMetrics(mock, nil); p != Provider(mock) {
		t.Fatal("expected the inner provider back")
	}
}

func TestTimeout_CancelsSlowCall(t *testing.T) {
	mock := NewMockProvider(MockResponse{Hold: make(chan struct{})})
	p := WithTimeout(mock, 10*time.Millisecond)

	_, err := p.Generate(context.Background(), Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestTimeout_ZeroIsPassthrough(t *testing.T) {
	mock := NewMockProvider()
	if p := WithTimeout(mock, 0); p != Provider(mock) {
		t.Fatal("expected the inner provider back")
	}
}

func TestRateLimit_ThrottlesAfterBurst(t *testing.T) {
	mock := NewMockProvider(MockText("a"), MockText("b"))
	// 600 rpm: burst of 120, then one token every 100ms. Drain the bucket
	// via the limiter directly so the second call must wait.
	p := WithRateLimit(mock, 600).(*RateLimitedProvider)
	p.limiter.AllowN(time.Now(), 120)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Generate(ctx, Request{})
	if err == nil {
		t.Fatal("expected the throttled call to fail under a short deadline")
	}
	if mock.CallCount() != 0 {
		t.Fatalf("throttled call reached the provider")
	}

	resp, err := p.Generate(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "a" {
		t.Fatalf("unexpected content %q", resp.Text())
	}
}

func TestRateLimit_DisabledIsPassthrough(t *testing.T) {
	mock := NewMockProvider()
	if p := WithRateLimit(mock, 0); p != Provider(mock) {
		t.Fatal("expected the inner provider back")
	}
}

func TestNewProvider_Mock(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Provider: "mock"}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*MockProvider); !ok {
		t.Fatalf("expected bare mock provider, got %T", p)
	}
}

func TestNewProvider_WrapsMiddleware(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "openai"
	cfg.OpenAI.APIKey = "sk-test"
	cfg.RateLimitRPM = 60
	cfg.Timeout = time.Second

	p, err := NewProvider(context.Background(), cfg, Options{EventRepo: &fakeEventRepo{}, Metrics: &fakeRecorder{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	retry, ok := p.(*RetryProvider)
	if !ok {
		t.Fatalf("expected retry outermost, got %T", p)
	}
	if _, ok := retry.inner.(*RateLimitedProvider); !ok {
		t.Fatalf("expected rate limiter under retry, got %T", retry.inner)
	}
	if p.ModelID() != "gpt-4o-mini" {
		t.Fatalf("model = %q", p.ModelID())
	}
}

func TestNewProvider_UnknownProvider(t *testing.T) {
	if _, err := NewProvider(context.Background(), Config{Provider: "carrier-pigeon"}, Options{}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
