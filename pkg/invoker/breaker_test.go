package invoker

import (
	"testing"
	"time"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewCircuitBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		b.OnFailure()
		if !b.CanExecute() {
			t.Fatalf("breaker opened before threshold at failure %d", i+1)
		}
	}

	b.OnFailure()
	if b.State() != StateOpen {
		t.Fatalf("expected open after threshold, got %s", b.State())
	}
	if b.CanExecute() {
		t.Fatalf("open breaker admitted a call")
	}
}

func TestBreakerHalfOpenSingleTrial(t *testing.T) {
	b := NewCircuitBreaker(1, time.Minute)

	current := time.Now()
	b.now = func() time.Time { return current }

	b.OnFailure()
	if b.CanExecute() {
		t.Fatalf("expected open breaker")
	}

	current = current.Add(2 * time.Minute)
	if !b.CanExecute() {
		t.Fatalf("expected half-open trial after reset timeout")
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open, got %s", b.State())
	}
	if b.CanExecute() {
		t.Fatalf("half-open breaker admitted a second trial")
	}
}

func TestBreakerHalfOpenSuccessCloses(t *testing.T) {
	b := NewCircuitBreaker(1, time.Minute)
	current := time.Now()
	b.now = func() time.Time { return current }

	b.OnFailure()
	current = current.Add(2 * time.Minute)
	if !b.CanExecute() {
		t.Fatalf("expected half-open trial")
	}

	b.OnSuccess()
	if b.State() != StateClosed {
		t.Fatalf("expected closed after trial success, got %s", b.State())
	}
	if b.failures != 0 {
		t.Fatalf("expected failure counter reset, got %d", b.failures)
	}
	if !b.CanExecute() {
		t.Fatalf("closed breaker rejected a call")
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewCircuitBreaker(1, time.Minute)
	current := time.Now()
	b.now = func() time.Time { return current }

	b.OnFailure()
	current = current.Add(2 * time.Minute)
	if !b.CanExecute() {
		t.Fatalf("expected half-open trial")
	}

	b.OnFailure()
	if b.State() != StateOpen {
		t.Fatalf("expected reopened breaker, got %s", b.State())
	}
	// lastFailure was refreshed, so the cooldown starts over.
	current = current.Add(30 * time.Second)
	if b.CanExecute() {
		t.Fatalf("breaker admitted a call before the new cooldown elapsed")
	}
}

func TestBreakerSuccessResetsCounter(t *testing.T) {
	b := NewCircuitBreaker(3, time.Minute)

	b.OnFailure()
	b.OnFailure()
	b.OnSuccess()
	b.OnFailure()
	b.OnFailure()
	if b.State() != StateClosed {
		t.Fatalf("counter did not reset on success")
	}
}
