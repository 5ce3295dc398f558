package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimitProvider_Name(t *testing.T) {
	rl := NewRateLimitProvider(&scriptedProvider{name: "test-provider"}, nil)
	if rl.Name() != "test-provider" {
		t.Fatalf("expected 'test-provider', got %s", rl.Name())
	}
}

func TestRateLimitProvider_BurstAllowed(t *testing.T) {
	inner := &scriptedProvider{name: "test"}
	rl := NewRateLimitProvider(inner, &RateLimitConfig{RequestsPerMinute: 1, BurstSize: 3})

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := rl.Complete(ctx, UserPrompt("x"), nil); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("burst calls should not wait, took %v", elapsed)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", inner.calls)
	}
}

func TestRateLimitProvider_BlocksUntilContextDone(t *testing.T) {
	inner := &scriptedProvider{name: "test"}
	rl := NewRateLimitProvider(inner, &RateLimitConfig{RequestsPerMinute: 1, BurstSize: 1})

	if _, err := rl.Complete(context.Background(), UserPrompt("x"), nil); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := rl.Complete(ctx, UserPrompt("x"), nil)
	if err == nil {
		t.Fatal("expected limiter wait to fail")
	}
	if inner.calls != 1 {
		t.Fatalf("inner should not be called while limited, got %d calls", inner.calls)
	}
}

func TestRateLimitProvider_EmbedShareLimiter(t *testing.T) {
	inner := &scriptedProvider{
		name:           "test",
		embedResponses: [][][]float32{{{1}}},
	}
	rl := NewRateLimitProvider(inner, &RateLimitConfig{RequestsPerMinute: 1, BurstSize: 1})

	if _, err := rl.Embed(context.Background(), []string{"a"}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := rl.Complete(ctx, UserPrompt("x"), nil); err == nil {
		t.Fatal("expected completion to wait on the shared limiter")
	}
}

func TestRateLimitProvider_Unlimited(t *testing.T) {
	inner := &scriptedProvider{name: "test"}
	rl := NewRateLimitProvider(inner, &RateLimitConfig{})
	for i := 0; i < 50; i++ {
		if _, err := rl.Complete(context.Background(), UserPrompt("x"), nil); err != nil {
			t.Fatal(err)
		}
	}
}

func TestWithRateLimit(t *testing.T) {
	if WithRateLimit(nil, DefaultRateLimitConfig()) != nil {
		t.Error("expected nil for nil provider")
	}
	p := &scriptedProvider{}
	if got := WithRateLimit(p, &RateLimitConfig{}); got != Provider(p) {
		t.Error("zero rate should return provider unchanged")
	}
	if _, ok := WithRateLimit(p, DefaultRateLimitConfig()).(*RateLimitProvider); !ok {
		t.Error("expected RateLimitProvider")
	}
}

func TestStatusError_Message(t *testing.T) {
	err := error(&StatusError{Provider: "ollama", Code: 503})
	if err.Error() != "ollama: 503 Service Unavailable" {
		t.Errorf("unexpected message %q", err.Error())
	}
	var se *StatusError
	if !errors.As(err, &se) || !se.Retryable() {
		t.Error("503 should be retryable")
	}
}
