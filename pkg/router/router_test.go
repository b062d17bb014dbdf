package router

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/zen-systems/mindgate/pkg/invoker"
	"github.com/zen-systems/mindgate/pkg/provider"
	"github.com/zen-systems/mindgate/pkg/schema"
)

func testRouter(p provider.Provider) *Router {
	cfg := invoker.DefaultConfig()
	inv := invoker.New(p, cfg,
		invoker.WithRand(func() float64 { return 0.5 }),
		invoker.WithSleep(func(time.Duration) {}),
	)
	return New(inv)
}

func TestRouteCrisisKeywordShortCircuits(t *testing.T) {
	mock := provider.NewMockProvider(`{"category":"none","confidence":0.9,"reason":"irrelevant"}`)
	r := testRouter(mock)

	decision := r.Route(context.Background(), "I want to end it all", nil)
	if decision.Category != schema.CategoryCrisis {
		t.Fatalf("expected crisis, got %s", decision.Category)
	}
	if !decision.IsCritical {
		t.Fatalf("crisis decision must be critical")
	}
	if decision.Method != schema.MethodKeyword {
		t.Fatalf("expected keyword method, got %s", decision.Method)
	}
	if decision.Confidence != 0.9 {
		t.Fatalf("expected confidence 0.9, got %f", decision.Confidence)
	}
	if mock.Calls != 0 {
		t.Fatalf("crisis keyword must not trigger a model call, got %d", mock.Calls)
	}
	if hits, ok := decision.Insights["matchedKeywords"].([]string); !ok || len(hits) == 0 {
		t.Fatalf("expected matched keywords in insights: %+v", decision.Insights)
	}
}

func TestRouteExplicitHint(t *testing.T) {
	r := testRouter(provider.NewMockProvider(""))

	cases := []struct {
		hint       string
		category   schema.Category
		confidence float64
		critical   bool
	}{
		{"crisis_intervention", schema.CategoryCrisis, 0.95, true},
		{"suicide_risk", schema.CategoryCrisis, 0.95, true},
		{"depression_check", schema.CategoryDepression, 0.8, false},
		{"anxiety_screen", schema.CategoryAnxiety, 0.8, false},
		{"wellness", schema.CategoryGeneral, 0.5, false},
	}
	for _, tc := range cases {
		decision := r.Route(context.Background(), "anything at all", &schema.RequestContext{ExplicitTaskHint: tc.hint})
		if decision.Category != tc.category || decision.Confidence != tc.confidence || decision.IsCritical != tc.critical {
			t.Fatalf("hint %q: unexpected decision %+v", tc.hint, decision)
		}
		if decision.Method != schema.MethodExplicitHint {
			t.Fatalf("hint %q: expected explicit_hint method, got %s", tc.hint, decision.Method)
		}
	}
}

func TestRouteDepressionAndAnxietyKeywords(t *testing.T) {
	r := testRouter(provider.NewMockProvider(""))

	decision := r.Route(context.Background(), "I feel so hopeless lately", nil)
	if decision.Category != schema.CategoryDepression || decision.Confidence != 0.7 {
		t.Fatalf("unexpected depression decision: %+v", decision)
	}

	decision = r.Route(context.Background(), "I had a panic attack at work", nil)
	if decision.Category != schema.CategoryAnxiety || decision.Confidence != 0.7 {
		t.Fatalf("unexpected anxiety decision: %+v", decision)
	}
	if decision.Method != schema.MethodKeyword {
		t.Fatalf("expected keyword method, got %s", decision.Method)
	}
}

func TestRouteModelDecision(t *testing.T) {
	mock := provider.NewMockProvider("")
	mock.Enqueue(`{"category":"anxiety","confidence":0.85,"is_critical":false,"reason":"persistent worry language"}`)
	r := testRouter(mock)

	decision := r.Route(context.Background(), "My mind keeps circling the same thoughts at night", nil)
	if decision.Category != schema.CategoryAnxiety {
		t.Fatalf("expected anxiety from model, got %s", decision.Category)
	}
	if decision.Method != schema.MethodLLM {
		t.Fatalf("expected llm method, got %s", decision.Method)
	}
	if decision.Confidence != 0.85 {
		t.Fatalf("unexpected confidence: %f", decision.Confidence)
	}
}

func TestRouteModelSynonymMapping(t *testing.T) {
	mock := provider.NewMockProvider("")
	mock.Enqueue(`{"category":"panic","confidence":0.75,"reason":"acute panic symptoms"}`)
	r := testRouter(mock)

	decision := r.Route(context.Background(), "My chest gets tight in crowded places", nil)
	if decision.Category != schema.CategoryAnxiety {
		t.Fatalf("expected synonym mapping to anxiety, got %s", decision.Category)
	}

	mock.Enqueue(`{"category":"somatic_disorder","confidence":0.75,"reason":"unmapped label case"}`)
	decision = r.Route(context.Background(), "My chest gets tight in crowded places", nil)
	if decision.Category != schema.CategoryGeneral {
		t.Fatalf("expected unmapped label to become general, got %s", decision.Category)
	}
}

func TestRouteModelCrisisFlagForcesCritical(t *testing.T) {
	mock := provider.NewMockProvider("")
	mock.Enqueue(`{"category":"crisis","confidence":0.9,"reason":"veiled finality language"}`)
	r := testRouter(mock)

	decision := r.Route(context.Background(), "Everything will be over soon either way", nil)
	if !decision.IsCritical {
		t.Fatalf("mapped crisis must set critical flag")
	}
}

func TestRouteFirstWordHeuristic(t *testing.T) {
	mock := provider.NewMockProvider("")
	mock.Enqueue("Depression, most likely, though I could not produce the requested format.")
	r := testRouter(mock)

	decision := r.Route(context.Background(), "Some days are heavier than others", nil)
	if decision.Category != schema.CategoryDepression {
		t.Fatalf("expected first-word heuristic to pick depression, got %s", decision.Category)
	}
	if decision.Confidence != 0.5 {
		t.Fatalf("expected heuristic confidence 0.5, got %f", decision.Confidence)
	}
	if decision.Method != schema.MethodLLM {
		t.Fatalf("expected llm method, got %s", decision.Method)
	}
}

func TestRouteDefaultWithoutProvider(t *testing.T) {
	cfg := invoker.DefaultConfig()
	inv := invoker.New(nil, cfg,
		invoker.WithRand(func() float64 { return 0 }),
		invoker.WithSleep(func(time.Duration) {}),
	)
	r := New(inv)

	decision := r.Route(context.Background(), "Tell me about your day", nil)
	if decision.Category != schema.CategoryGeneral {
		t.Fatalf("expected general default, got %s", decision.Category)
	}
	if decision.Confidence != 0.3 || decision.Method != schema.MethodDefault {
		t.Fatalf("unexpected default decision: %+v", decision)
	}
}

func TestRouteModelErrorFallsToDefault(t *testing.T) {
	mock := provider.NewMockProvider("")
	for i := 0; i <= invoker.DefaultConfig().MaxRetries; i++ {
		mock.EnqueueError(fmt.Errorf("connection reset"))
	}
	r := testRouter(mock)

	decision := r.Route(context.Background(), "Just thinking out loud today", nil)
	if decision.Method != schema.MethodDefault {
		t.Fatalf("expected default after model errors, got %+v", decision)
	}
}

func TestMapCategoryTable(t *testing.T) {
	cases := map[string]schema.Category{
		"Crisis":        schema.CategoryCrisis,
		"suicidal":      schema.CategoryCrisis,
		"depressed":     schema.CategoryDepression,
		"WORRY":         schema.CategoryAnxiety,
		"none":          schema.CategoryNone,
		"unclear":       schema.CategoryUnknown,
		"made_up_label": schema.CategoryGeneral,
		"":              schema.CategoryGeneral,
	}
	for raw, want := range cases {
		if got := MapCategory(raw); got != want {
			t.Fatalf("MapCategory(%q) = %s, want %s", raw, got, want)
		}
	}
}
