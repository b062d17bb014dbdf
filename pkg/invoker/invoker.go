// Package invoker wraps model calls in a reliability layer: message
// validation, a circuit breaker, per-attempt timeouts, retry with jittered
// backoff, and fallback synthesis. Invoke never returns an error; a
// degraded structured answer always comes back instead.
package invoker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zen-systems/mindgate/pkg/jsonx"
	"github.com/zen-systems/mindgate/pkg/provider"
	"github.com/zen-systems/mindgate/pkg/schema"
)

const (
	baseBackoff     = 1000 * time.Millisecond
	maxBackoff      = 10000 * time.Millisecond
	minBackoff      = 100 * time.Millisecond
	attemptStretch  = 5000 * time.Millisecond
	defaultPrior    = 0.6
	minReasoningLen = 5
)

// Config holds invoker tuning knobs.
type Config struct {
	MaxRetries          int
	Timeout             time.Duration
	BreakerThreshold    int
	BreakerResetTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:          2,
		Timeout:             30 * time.Second,
		BreakerThreshold:    5,
		BreakerResetTimeout: 30 * time.Second,
	}
}

// Options configures a single invocation.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int

	// PriorConfidence is the caller's confidence before this call. It
	// anchors the degraded confidence when the model replies with prose
	// instead of JSON.
	PriorConfidence float64

	// RawContent skips payload extraction and validation; the outcome
	// carries the response text only. Callers that expect a shape other
	// than the standard analysis payload parse it themselves.
	RawContent bool
}

// Outcome is the result of an invocation, real or synthesized.
type Outcome struct {
	Success   bool                 `json:"success"`
	Fallback  bool                 `json:"fallback"`
	Stub      bool                 `json:"stub,omitempty"`
	Payload   schema.ModelAnalysis `json:"payload"`
	Raw       string               `json:"raw,omitempty"`
	RequestID string               `json:"request_id"`
	Attempts  int                  `json:"attempts"`
	LatencyMs int64                `json:"latency_ms"`
	ErrorKind ErrorKind            `json:"error_kind,omitempty"`
}

// Invoker executes model calls through the reliability layer. Each
// instance owns its breaker and metrics pair.
type Invoker struct {
	provider provider.Provider
	cfg      Config
	model    string
	breaker  *CircuitBreaker
	metrics  *Metrics
	randFn   func() float64
	sleep    func(time.Duration)
	debug    bool
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithModel sets the default model for invocations that don't name one.
func WithModel(model string) Option {
	return func(inv *Invoker) { inv.model = model }
}

// WithRand sets the random source used for jitter and stub latency.
func WithRand(fn func() float64) Option {
	return func(inv *Invoker) { inv.randFn = fn }
}

// WithSleep replaces the sleep function, letting tests skip real delays.
func WithSleep(fn func(time.Duration)) Option {
	return func(inv *Invoker) { inv.sleep = fn }
}

// WithDebug enables debug logging.
func WithDebug(debug bool) Option {
	return func(inv *Invoker) { inv.debug = debug }
}

// New creates an invoker for the given provider. provider may be nil, in
// which case every invocation returns a stub fallback.
func New(p provider.Provider, cfg Config, opts ...Option) *Invoker {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	inv := &Invoker{
		provider: p,
		cfg:      cfg,
		breaker:  NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerResetTimeout),
		metrics:  NewMetrics(),
		randFn:   rand.Float64,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Breaker exposes the invoker's circuit breaker.
func (inv *Invoker) Breaker() *CircuitBreaker {
	return inv.breaker
}

// Metrics exposes the invoker's metrics collector.
func (inv *Invoker) Metrics() *Metrics {
	return inv.metrics
}

// ProviderName returns the backing provider's name, or "none".
func (inv *Invoker) ProviderName() string {
	if inv.provider == nil {
		return "none"
	}
	return inv.provider.ProviderName()
}

// Invoke runs the reliability loop around one model call. It never
// returns an error: validation failures, breaker rejections, exhausted
// retries and unparseable content all yield synthesized outcomes.
func (inv *Invoker) Invoke(ctx context.Context, messages []provider.Message, opts Options) *Outcome {
	start := time.Now()
	out := &Outcome{RequestID: uuid.NewString()}
	finish := func() *Outcome {
		out.LatencyMs = time.Since(start).Milliseconds()
		return out
	}
	prior := opts.PriorConfidence
	if prior <= 0 {
		prior = defaultPrior
	}
	if opts.Model == "" {
		opts.Model = inv.model
	}

	if err := validateMessages(messages); err != nil {
		if inv.debug {
			log.Printf("[invoker] rejected request: %v", err)
		}
		out.Fallback = true
		out.ErrorKind = ErrKindValidation
		out.Payload = synthesizeFallback(ErrKindValidation)
		inv.metrics.RecordFailure(time.Since(start))
		return finish()
	}

	// Intentional no-op path: without a provider, simulate a short call
	// and return a stub. Counts as a metrics success.
	if inv.provider == nil {
		inv.sleep(inv.stubLatency())
		out.Fallback = true
		out.Stub = true
		out.ErrorKind = ErrKindProviderUnavailable
		out.Payload = synthesizeFallback(ErrKindProviderUnavailable)
		inv.metrics.RecordSuccess(time.Since(start))
		return finish()
	}

	if !inv.breaker.CanExecute() {
		if inv.debug {
			log.Printf("[invoker] breaker open, rejecting call")
		}
		out.Fallback = true
		out.ErrorKind = ErrKindProviderUnavailable
		out.Payload = synthesizeFallback(ErrKindProviderUnavailable)
		inv.metrics.RecordFailure(time.Since(start))
		return finish()
	}

	lastKind := ErrKindUnknown
	for attempt := 0; attempt <= inv.cfg.MaxRetries; attempt++ {
		out.Attempts = attempt + 1

		resp, err := inv.callWithTimeout(ctx, messages, opts, attempt)
		if err == nil {
			text, ok := resp.Text()
			if !ok {
				err = fmt.Errorf("malformed provider response: no choices or content")
			} else {
				if opts.RawContent {
					out.Success = true
					out.Raw = text
					inv.breaker.OnSuccess()
					inv.metrics.RecordSuccess(time.Since(start))
					return finish()
				}
				done, kind := inv.consumeContent(out, text, prior, start)
				if done {
					return finish()
				}
				lastKind = kind
				if attempt < inv.cfg.MaxRetries {
					inv.sleep(inv.backoff(attempt))
				}
				continue
			}
			lastKind = ErrKindStructural
			if attempt < inv.cfg.MaxRetries {
				inv.sleep(inv.backoff(attempt))
			}
			continue
		}

		kind, retryable := classifyError(err)
		lastKind = kind
		if inv.debug {
			log.Printf("[invoker] attempt %d failed (%s): %v", attempt+1, kind, err)
		}
		if !retryable {
			break
		}
		if attempt < inv.cfg.MaxRetries {
			inv.sleep(inv.backoff(attempt))
		}
	}

	inv.breaker.OnFailure()
	inv.metrics.RecordFailure(time.Since(start))
	out.Fallback = true
	out.ErrorKind = lastKind
	out.Payload = synthesizeFallback(lastKind)
	return finish()
}

// consumeContent parses and validates model text. done=true means the
// outcome is final (success or non-retryable parsing degradation);
// otherwise the returned kind is retryable.
func (inv *Invoker) consumeContent(out *Outcome, text string, prior float64, start time.Time) (done bool, kind ErrorKind) {
	candidate, ok := jsonx.Extract(text)
	if !ok {
		// Prose instead of JSON. The provider itself is healthy, so the
		// breaker records a success; the loop ends with a degraded answer.
		out.Raw = text
		out.Fallback = true
		out.ErrorKind = ErrKindParsing
		out.Payload = synthesizeParsingFallback(text, prior)
		inv.breaker.OnSuccess()
		inv.metrics.RecordFailure(time.Since(start))
		return true, ErrKindParsing
	}

	var payload schema.ModelAnalysis
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return false, ErrKindStructural
	}
	if err := validatePayload(&payload); err != nil {
		if inv.debug {
			log.Printf("[invoker] structural validation failed: %v", err)
		}
		return false, ErrKindStructural
	}

	payload.Confidence = schema.Clamp01(payload.Confidence)
	out.Success = true
	out.Raw = text
	out.Payload = payload
	inv.breaker.OnSuccess()
	inv.metrics.RecordSuccess(time.Since(start))
	return true, ""
}

// callWithTimeout races the provider call against a timer. On timeout the
// in-flight call is abandoned, not cancelled; duplicate side effects from
// an abandoned call are an accepted risk.
func (inv *Invoker) callWithTimeout(ctx context.Context, messages []provider.Message, opts Options, attempt int) (*provider.Response, error) {
	timeout := inv.attemptTimeout(attempt)

	type callResult struct {
		resp *provider.Response
		err  error
	}
	ch := make(chan callResult, 1)
	go func() {
		resp, err := inv.provider.Complete(ctx, messages, provider.CallOptions{
			Model:       opts.Model,
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
		})
		ch <- callResult{resp: resp, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r.resp, r.err
	case <-timer.C:
		return nil, &provider.ProviderError{
			Temporary: true,
			Err:       fmt.Errorf("call timed out after %s", timeout),
		}
	}
}

// attemptTimeout grows the base timeout per attempt, capped at twice the base.
func (inv *Invoker) attemptTimeout(attempt int) time.Duration {
	timeout := inv.cfg.Timeout + time.Duration(attempt)*attemptStretch
	if cap := inv.cfg.Timeout * 2; timeout > cap {
		return cap
	}
	return timeout
}

// backoff returns the exponential delay for a retry, with ±25% jitter and
// a 100ms floor.
func (inv *Invoker) backoff(attempt int) time.Duration {
	delay := baseBackoff << attempt
	if delay > maxBackoff {
		delay = maxBackoff
	}
	jittered := time.Duration(float64(delay) * (0.75 + 0.5*inv.randFn()))
	if jittered < minBackoff {
		jittered = minBackoff
	}
	return jittered
}

func (inv *Invoker) stubLatency() time.Duration {
	return 50*time.Millisecond + time.Duration(inv.randFn()*float64(100*time.Millisecond))
}

func validateMessages(messages []provider.Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("message list is empty")
	}
	for i, m := range messages {
		if strings.TrimSpace(m.Role) == "" {
			return fmt.Errorf("message %d has no role", i)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("message %d has no content", i)
		}
	}
	return nil
}

func validatePayload(payload *schema.ModelAnalysis) error {
	if strings.TrimSpace(payload.Category) == "" {
		return fmt.Errorf("missing category")
	}
	if payload.Confidence < 0 || payload.Confidence > 1 {
		return fmt.Errorf("confidence out of range: %f", payload.Confidence)
	}
	if len(strings.TrimSpace(payload.Explanation())) < minReasoningLen {
		return fmt.Errorf("reasoning too short")
	}
	return nil
}
