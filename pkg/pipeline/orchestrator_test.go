package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zen-systems/mindgate/pkg/evidence"
	"github.com/zen-systems/mindgate/pkg/invoker"
	"github.com/zen-systems/mindgate/pkg/notify"
	"github.com/zen-systems/mindgate/pkg/provider"
	"github.com/zen-systems/mindgate/pkg/router"
	"github.com/zen-systems/mindgate/pkg/schema"
)

type captureNotifier struct {
	alerts []notify.Alert
	err    error
}

func (n *captureNotifier) SendCrisisAlert(_ context.Context, alert notify.Alert) error {
	n.alerts = append(n.alerts, alert)
	return n.err
}

func newTestOrchestrator(mock *provider.MockProvider, notifier notify.Notifier) *Orchestrator {
	inv := invoker.New(mock, invoker.DefaultConfig(),
		invoker.WithRand(func() float64 { return 0.5 }),
		invoker.WithSleep(func(time.Duration) {}),
	)
	cache := evidence.NewCache(evidence.New(evidence.DefaultConfig()), time.Minute, 10)
	return New(router.New(inv), inv, cache, WithNotifier(notifier))
}

func TestAnalyzeCrisisShortCircuit(t *testing.T) {
	mock := provider.NewMockProvider("")
	notifier := &captureNotifier{}
	o := newTestOrchestrator(mock, notifier)

	result := o.Analyze(context.Background(), "I want to end my life", nil)

	if !result.IsCrisis || result.Category != schema.CategoryCrisis {
		t.Fatalf("expected crisis result: %+v", result)
	}
	if !result.HasMentalHealthIssue {
		t.Fatalf("crisis implies a mental health issue")
	}
	if mock.Calls != 0 {
		t.Fatalf("crisis route must skip all model calls, got %d", mock.Calls)
	}
	if len(notifier.alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(notifier.alerts))
	}
	if result.RawModelOutput != nil {
		t.Fatalf("model analysis must be skipped on crisis routes")
	}
	if len(result.SupportingEvidence) == 0 {
		t.Fatalf("expected matched keywords as evidence")
	}
}

func TestAnalyzeFullFlow(t *testing.T) {
	mock := provider.NewMockProvider("")
	mock.Enqueue(`{"category":"depression","confidence":0.85,"reasoning":"persistent low mood and anhedonia","supporting_evidence":["lost interest in everything"]}`)
	notifier := &captureNotifier{}
	o := newTestOrchestrator(mock, notifier)

	result := o.Analyze(context.Background(), "I feel depressed and I lost interest in everything", nil)

	if result.Category != schema.CategoryDepression {
		t.Fatalf("expected depression, got %s", result.Category)
	}
	if result.Confidence != 0.85 {
		t.Fatalf("confidence must take the model's higher value, got %f", result.Confidence)
	}
	if result.Explanation != "persistent low mood and anhedonia" {
		t.Fatalf("unexpected explanation: %q", result.Explanation)
	}
	if mock.Calls != 1 {
		t.Fatalf("expected one model call, got %d", mock.Calls)
	}
	if len(result.SupportingEvidence) == 0 || result.SupportingEvidence[0] != "lost interest in everything" {
		t.Fatalf("model evidence must come first: %v", result.SupportingEvidence)
	}
	if result.IsCrisis || len(notifier.alerts) != 0 {
		t.Fatalf("non-crisis flow must not alert")
	}
	if result.RawModelOutput == nil {
		t.Fatalf("expected raw model output artifact")
	}
	if len(result.Failures) != 0 {
		t.Fatalf("unexpected failures: %+v", result.Failures)
	}
	if result.RoutingDecision == nil || result.RoutingDecision.Method != schema.MethodKeyword {
		t.Fatalf("routing decision must be preserved: %+v", result.RoutingDecision)
	}
}

func TestAnalyzeModelOverridesCategory(t *testing.T) {
	mock := provider.NewMockProvider("")
	mock.Enqueue(`{"category":"depression","confidence":0.9,"reasoning":"the worry reads as depressive rumination"}`)
	o := newTestOrchestrator(mock, &captureNotifier{})

	// Routed as anxiety by keyword at 0.7; the model disagrees at 0.9.
	result := o.Analyze(context.Background(), "I feel anxious all the time", nil)

	if result.Category != schema.CategoryDepression {
		t.Fatalf("more confident model category must win, got %s", result.Category)
	}
	if result.Confidence != 0.9 {
		t.Fatalf("confidence must be the max, got %f", result.Confidence)
	}
}

func TestAnalyzeModelKeepsLessConfidentCategory(t *testing.T) {
	mock := provider.NewMockProvider("")
	mock.Enqueue(`{"category":"depression","confidence":0.5,"reasoning":"possibly depressive undertone"}`)
	o := newTestOrchestrator(mock, &captureNotifier{})

	result := o.Analyze(context.Background(), "I feel anxious all the time", nil)

	if result.Category != schema.CategoryAnxiety {
		t.Fatalf("less confident model category must not override, got %s", result.Category)
	}
	if result.Confidence != 0.7 {
		t.Fatalf("routed confidence must stand, got %f", result.Confidence)
	}
}

func TestAnalyzeModelDiscoversCrisis(t *testing.T) {
	mock := provider.NewMockProvider("")
	mock.Enqueue(`{"category":"crisis","confidence":0.9,"is_critical":true,"reasoning":"passive ideation behind the flat affect"}`)
	notifier := &captureNotifier{}
	o := newTestOrchestrator(mock, notifier)

	result := o.Analyze(context.Background(), "I feel depressed and nothing matters", nil)

	if !result.IsCrisis || result.Category != schema.CategoryCrisis {
		t.Fatalf("crisis discovered by the model must set the flag: %+v", result)
	}
	if len(notifier.alerts) != 1 {
		t.Fatalf("expected the late escalation alert, got %d", len(notifier.alerts))
	}
}

func TestAnalyzeNotifierFailureKeepsCrisisFlag(t *testing.T) {
	mock := provider.NewMockProvider("")
	notifier := &captureNotifier{err: errors.New("pager service down")}
	o := newTestOrchestrator(mock, notifier)

	result := o.Analyze(context.Background(), "I am thinking about suicide", nil)

	if !result.IsCrisis {
		t.Fatalf("alert delivery failure must not clear the crisis flag")
	}
}

func TestAnalyzeParsingDegradation(t *testing.T) {
	mock := provider.NewMockProvider("")
	mock.Enqueue("I'm sorry to hear that. It sounds like a difficult time.")
	o := newTestOrchestrator(mock, &captureNotifier{})

	result := o.Analyze(context.Background(), "I feel so depressed", nil)

	if result.Category != schema.CategoryDepression {
		t.Fatalf("routed category must survive parsing degradation, got %s", result.Category)
	}
	// Routed at 0.7; non-JSON content halves it.
	if result.Confidence != 0.35 {
		t.Fatalf("expected halved confidence 0.35, got %f", result.Confidence)
	}
	if result.Explanation == "" {
		t.Fatalf("degraded result still needs an explanation")
	}
	if len(result.Failures) != 1 || result.Failures[0].Type != "model_analysis" {
		t.Fatalf("expected one model_analysis failure: %+v", result.Failures)
	}
}

func TestAnalyzeModelFailureKeepsRoutedDecision(t *testing.T) {
	mock := provider.NewMockProvider("")
	mock.EnqueueError(&provider.ProviderError{Status: 401, Err: errors.New("unauthorized")})
	o := newTestOrchestrator(mock, &captureNotifier{})

	result := o.Analyze(context.Background(), "I feel so depressed", nil)

	if result.Category != schema.CategoryDepression || result.Confidence != 0.7 {
		t.Fatalf("routed decision must stand when the model call fails: %+v", result)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("expected one recorded failure: %+v", result.Failures)
	}
	if result.Explanation == "" {
		t.Fatalf("fallback explanation missing")
	}
}

func TestAnalyzeContextHintsInEvidence(t *testing.T) {
	mock := provider.NewMockProvider("")
	mock.Enqueue(`{"category":"depression","confidence":0.8,"reasoning":"consistent with prior sessions"}`)
	o := newTestOrchestrator(mock, &captureNotifier{})

	reqCtx := &schema.RequestContext{PreviousConversationState: "two prior low-mood sessions"}
	result := o.Analyze(context.Background(), "I feel depressed again", reqCtx)

	var found bool
	for _, ev := range result.SupportingEvidence {
		if ev == "prior session: two prior low-mood sessions" {
			found = true
		}
	}
	if !found {
		t.Fatalf("context hint missing from evidence: %v", result.SupportingEvidence)
	}
}

func TestAnalyzeWithoutModelOrCache(t *testing.T) {
	o := New(router.New(nil), nil, nil, WithNotifier(&captureNotifier{}))

	result := o.Analyze(context.Background(), "just checking in about my day", nil)

	if result.Category != schema.CategoryGeneral {
		t.Fatalf("expected default route, got %s", result.Category)
	}
	if result.Confidence != 0.3 {
		t.Fatalf("expected default confidence, got %f", result.Confidence)
	}
	if !result.HasMentalHealthIssue {
		t.Fatalf("general category still counts as an issue flag")
	}
	if result.Timestamp.IsZero() {
		t.Fatalf("finalize must stamp the result")
	}
}
