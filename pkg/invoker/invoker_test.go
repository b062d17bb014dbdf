package invoker

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/zen-systems/mindgate/pkg/provider"
)

const validAnalysis = `{"category":"anxiety","confidence":0.8,"reasoning":"worry language throughout"}`

func testInvoker(p provider.Provider) *Invoker {
	cfg := DefaultConfig()
	cfg.Timeout = 2 * time.Second
	return New(p, cfg,
		WithRand(func() float64 { return 0.5 }),
		WithSleep(func(time.Duration) {}),
	)
}

func TestInvokeSuccess(t *testing.T) {
	mock := provider.NewMockProvider(validAnalysis)
	inv := testInvoker(mock)

	out := inv.Invoke(context.Background(), userMessage("how are you"), Options{})
	if !out.Success {
		t.Fatalf("expected success, got %+v", out)
	}
	if out.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", out.Attempts)
	}
	if out.Payload.Category != "anxiety" || out.Payload.Confidence != 0.8 {
		t.Fatalf("unexpected payload: %+v", out.Payload)
	}
	if out.RequestID == "" {
		t.Fatalf("missing request id")
	}
}

func TestInvokeRetriesTransientThenSucceeds(t *testing.T) {
	mock := provider.NewMockProvider(validAnalysis)
	mock.EnqueueError(fmt.Errorf("network error: connection refused"))
	mock.EnqueueError(fmt.Errorf("network error: connection refused"))
	mock.Enqueue(validAnalysis)
	inv := testInvoker(mock)

	out := inv.Invoke(context.Background(), userMessage("hello"), Options{})
	if !out.Success {
		t.Fatalf("expected success after retries, got kind=%s", out.ErrorKind)
	}
	if out.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", out.Attempts)
	}
	if mock.Calls != 3 {
		t.Fatalf("expected 3 provider calls, got %d", mock.Calls)
	}
}

func TestInvokeStopsOnClientError(t *testing.T) {
	mock := provider.NewMockProvider(validAnalysis)
	mock.EnqueueError(&provider.ProviderError{Status: 401, Err: fmt.Errorf("unauthorized")})
	inv := testInvoker(mock)

	out := inv.Invoke(context.Background(), userMessage("hello"), Options{})
	if out.Success {
		t.Fatalf("expected fallback for 401")
	}
	if out.Attempts != 1 {
		t.Fatalf("expected no retry on 401, got %d attempts", out.Attempts)
	}
	if mock.Calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", mock.Calls)
	}
}

func TestInvokeRateLimitedRetries(t *testing.T) {
	mock := provider.NewMockProvider(validAnalysis)
	mock.EnqueueError(&provider.ProviderError{Status: 429, Err: fmt.Errorf("too many requests")})
	mock.Enqueue(validAnalysis)
	inv := testInvoker(mock)

	out := inv.Invoke(context.Background(), userMessage("hello"), Options{})
	if !out.Success || out.Attempts != 2 {
		t.Fatalf("expected success on second attempt, got %+v", out)
	}
}

func TestInvokeValidationError(t *testing.T) {
	mock := provider.NewMockProvider(validAnalysis)
	inv := testInvoker(mock)

	out := inv.Invoke(context.Background(), nil, Options{})
	if out.ErrorKind != ErrKindValidation {
		t.Fatalf("expected validation_error, got %s", out.ErrorKind)
	}
	if mock.Calls != 0 {
		t.Fatalf("expected no provider call, got %d", mock.Calls)
	}

	out = inv.Invoke(context.Background(), []provider.Message{{Role: "user"}}, Options{})
	if out.ErrorKind != ErrKindValidation {
		t.Fatalf("expected validation_error for empty content, got %s", out.ErrorKind)
	}
}

func TestInvokeWithoutProviderReturnsStub(t *testing.T) {
	inv := testInvoker(nil)

	out := inv.Invoke(context.Background(), userMessage("hello"), Options{})
	if !out.Stub || !out.Fallback {
		t.Fatalf("expected stub fallback, got %+v", out)
	}
	if out.ErrorKind != ErrKindProviderUnavailable {
		t.Fatalf("expected provider_unavailable, got %s", out.ErrorKind)
	}

	snap := inv.Metrics().Snapshot()
	if snap.Successes != 1 || snap.Failures != 0 {
		t.Fatalf("stub path should count as success: %+v", snap)
	}
}

func TestInvokeParsingErrorDoesNotRetry(t *testing.T) {
	mock := provider.NewMockProvider("")
	mock.Enqueue("I cannot help with that request.")
	inv := testInvoker(mock)

	out := inv.Invoke(context.Background(), userMessage("hello"), Options{PriorConfidence: 0.8})
	if out.ErrorKind != ErrKindParsing {
		t.Fatalf("expected parsing_error, got %s", out.ErrorKind)
	}
	if mock.Calls != 1 {
		t.Fatalf("parsing error must not retry, got %d calls", mock.Calls)
	}
	if !strings.Contains(out.Payload.Reasoning, "I cannot help") {
		t.Fatalf("raw text missing from reasoning: %q", out.Payload.Reasoning)
	}
	if out.Payload.Confidence != 0.4 {
		t.Fatalf("expected prior*0.5 = 0.4, got %f", out.Payload.Confidence)
	}
	if out.Raw == "" {
		t.Fatalf("raw model text not preserved")
	}
}

func TestInvokeStructuralErrorRetries(t *testing.T) {
	mock := provider.NewMockProvider("")
	// Valid JSON but reasoning below the minimum length.
	mock.Enqueue(`{"category":"anxiety","confidence":0.8,"reasoning":"no"}`)
	mock.Enqueue(validAnalysis)
	inv := testInvoker(mock)

	out := inv.Invoke(context.Background(), userMessage("hello"), Options{})
	if !out.Success {
		t.Fatalf("expected success after structural retry, got %s", out.ErrorKind)
	}
	if out.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", out.Attempts)
	}
}

func TestInvokeBreakerRejection(t *testing.T) {
	mock := provider.NewMockProvider(validAnalysis)
	inv := testInvoker(mock)

	for i := 0; i < DefaultConfig().BreakerThreshold; i++ {
		inv.Breaker().OnFailure()
	}

	out := inv.Invoke(context.Background(), userMessage("hello"), Options{})
	if out.ErrorKind != ErrKindProviderUnavailable {
		t.Fatalf("expected provider_unavailable from open breaker, got %s", out.ErrorKind)
	}
	if mock.Calls != 0 {
		t.Fatalf("open breaker must not call the provider")
	}
}

func TestInvokeExhaustedSynthesizesTypedFallback(t *testing.T) {
	mock := provider.NewMockProvider("")
	for i := 0; i < 3; i++ {
		mock.EnqueueError(fmt.Errorf("request timed out"))
	}
	inv := testInvoker(mock)

	out := inv.Invoke(context.Background(), userMessage("hello"), Options{})
	if out.ErrorKind != ErrKindTimeout {
		t.Fatalf("expected timeout kind, got %s", out.ErrorKind)
	}
	if out.Payload.Category != "general_mental_health" {
		t.Fatalf("fallback category mismatch: %s", out.Payload.Category)
	}
	if !strings.Contains(out.Payload.Reasoning, "too long") {
		t.Fatalf("expected timeout-specific reasoning, got %q", out.Payload.Reasoning)
	}
}

func TestInvokeTimeoutRace(t *testing.T) {
	slow := &slowProvider{delay: 500 * time.Millisecond}
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	cfg.MaxRetries = 0
	inv := New(slow, cfg,
		WithRand(func() float64 { return 0.5 }),
		WithSleep(func(time.Duration) {}),
	)

	out := inv.Invoke(context.Background(), userMessage("hello"), Options{})
	if out.Success {
		t.Fatalf("expected timeout fallback")
	}
	if out.ErrorKind != ErrKindTimeout {
		t.Fatalf("expected timeout, got %s", out.ErrorKind)
	}
}

func TestMetricsSnapshotAndReset(t *testing.T) {
	m := NewMetrics()
	m.RecordSuccess(100 * time.Millisecond)
	m.RecordSuccess(300 * time.Millisecond)
	m.RecordFailure(200 * time.Millisecond)

	snap := m.Snapshot()
	if snap.TotalCalls != 3 || snap.Successes != 2 || snap.Failures != 1 {
		t.Fatalf("unexpected counters: %+v", snap)
	}
	if snap.SuccessRate < 0.66 || snap.SuccessRate > 0.67 {
		t.Fatalf("unexpected success rate: %f", snap.SuccessRate)
	}
	if snap.AvgLatencyMs != 200 {
		t.Fatalf("unexpected avg latency: %f", snap.AvgLatencyMs)
	}

	m.Reset()
	snap = m.Snapshot()
	if snap.TotalCalls != 0 || snap.AvgLatencyMs != 0 {
		t.Fatalf("reset did not clear counters: %+v", snap)
	}
}

type slowProvider struct {
	delay time.Duration
}

func (p *slowProvider) Complete(_ context.Context, _ []provider.Message, _ provider.CallOptions) (*provider.Response, error) {
	time.Sleep(p.delay)
	return provider.TextResponse(validAnalysis), nil
}

func (p *slowProvider) ProviderName() string { return "slow" }

func (p *slowProvider) Models() []string { return nil }

func userMessage(content string) []provider.Message {
	return []provider.Message{{Role: "user", Content: content}}
}
