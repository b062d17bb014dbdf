// Package router decides the triage category for a piece of text. The
// decision falls through a fixed priority chain: explicit hint, crisis
// keywords, depression keywords, anxiety keywords, model classification,
// default. Route never fails; every rung either decides or passes.
package router

import (
	"context"
	"log"
	"strings"

	"github.com/zen-systems/mindgate/pkg/invoker"
	"github.com/zen-systems/mindgate/pkg/jsonx"
	"github.com/zen-systems/mindgate/pkg/prompt"
	"github.com/zen-systems/mindgate/pkg/provider"
	"github.com/zen-systems/mindgate/pkg/schema"
)

const (
	hintCrisisConfidence  = 0.95
	hintConfidence        = 0.8
	hintGeneralConfidence = 0.5
	crisisConfidence      = 0.9
	keywordConfidence     = 0.7
	firstWordConfidence   = 0.5
	defaultConfidence     = 0.3
)

// Router implements the priority-chain classifier.
type Router struct {
	invoker *invoker.Invoker
	debug   bool
}

// Option configures a Router.
type Option func(*Router)

// WithDebug enables debug logging.
func WithDebug(debug bool) Option {
	return func(r *Router) { r.debug = debug }
}

// New creates a router. inv may be nil, which disables the model rung.
func New(inv *invoker.Invoker, opts ...Option) *Router {
	r := &Router{invoker: inv}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route walks the priority chain and returns the first decision. The
// model rung degrades to "no decision" on any invocation or parse problem,
// so the default rung is always reachable.
func (r *Router) Route(ctx context.Context, text string, reqCtx *schema.RequestContext) schema.RoutingDecision {
	lower := strings.ToLower(text)

	if reqCtx != nil && strings.TrimSpace(reqCtx.ExplicitTaskHint) != "" {
		return routeFromHint(reqCtx.ExplicitTaskHint)
	}

	if hits := matchKeywords(lower, crisisKeywords); len(hits) > 0 {
		return schema.RoutingDecision{
			Category:   schema.CategoryCrisis,
			Confidence: crisisConfidence,
			IsCritical: true,
			Method:     schema.MethodKeyword,
			Insights:   map[string]any{"matchedKeywords": hits},
		}
	}

	if hits := matchKeywords(lower, depressionKeywords); len(hits) > 0 {
		return keywordDecision(schema.CategoryDepression, hits)
	}

	if hits := matchKeywords(lower, anxietyKeywords); len(hits) > 0 {
		return keywordDecision(schema.CategoryAnxiety, hits)
	}

	if decision, ok := r.routeWithModel(ctx, text); ok {
		return decision
	}

	return schema.RoutingDecision{
		Category:   schema.CategoryGeneral,
		Confidence: defaultConfidence,
		Method:     schema.MethodDefault,
	}
}

// routeFromHint substring-matches the caller's explicit hint.
func routeFromHint(hint string) schema.RoutingDecision {
	lower := strings.ToLower(hint)
	decision := schema.RoutingDecision{
		Method:   schema.MethodExplicitHint,
		Insights: map[string]any{"hint": hint},
	}

	switch {
	case strings.Contains(lower, "crisis") || strings.Contains(lower, "suicide"):
		decision.Category = schema.CategoryCrisis
		decision.Confidence = hintCrisisConfidence
		decision.IsCritical = true
	case strings.Contains(lower, "depression"):
		decision.Category = schema.CategoryDepression
		decision.Confidence = hintConfidence
	case strings.Contains(lower, "anxiety"):
		decision.Category = schema.CategoryAnxiety
		decision.Confidence = hintConfidence
	default:
		decision.Category = schema.CategoryGeneral
		decision.Confidence = hintGeneralConfidence
	}
	return decision
}

func keywordDecision(category schema.Category, hits []string) schema.RoutingDecision {
	return schema.RoutingDecision{
		Category:   category,
		Confidence: keywordConfidence,
		Method:     schema.MethodKeyword,
		Insights:   map[string]any{"matchedKeywords": hits},
	}
}

// routeWithModel asks the model for a classification. ok is false when no
// usable decision came back.
func (r *Router) routeWithModel(ctx context.Context, text string) (schema.RoutingDecision, bool) {
	if r.invoker == nil {
		return schema.RoutingDecision{}, false
	}

	messages := []provider.Message{
		{Role: "user", Content: prompt.Classification(text)},
	}
	out := r.invoker.Invoke(ctx, messages, invoker.Options{Temperature: 0.1})

	switch {
	case out.Success:
		category := MapCategory(out.Payload.Category)
		confidence := schema.Clamp01(out.Payload.Confidence)
		return schema.RoutingDecision{
			Category:   category,
			Confidence: confidence,
			IsCritical: out.Payload.IsCritical || category.IsCrisis(),
			Method:     schema.MethodLLM,
			Insights: map[string]any{
				"reason":      out.Payload.Explanation(),
				"rawCategory": out.Payload.Category,
				"requestId":   out.RequestID,
			},
		}, true

	case out.ErrorKind == invoker.ErrKindParsing && out.Raw != "":
		// No JSON anywhere in the reply. Last resort: treat the first
		// word as a category guess at reduced confidence, but only when
		// it is a recognized label.
		if category, ok := lookupCategory(jsonx.FirstWord(out.Raw)); ok {
			return schema.RoutingDecision{
				Category:   category,
				Confidence: firstWordConfidence,
				IsCritical: category.IsCrisis(),
				Method:     schema.MethodLLM,
				Insights:   map[string]any{"heuristic": "first_word", "requestId": out.RequestID},
			}, true
		}
		if r.debug {
			log.Printf("[router] model reply had no usable category: %.80q", out.Raw)
		}
		return schema.RoutingDecision{}, false

	default:
		if r.debug {
			log.Printf("[router] model rung yielded no decision (%s)", out.ErrorKind)
		}
		return schema.RoutingDecision{}, false
	}
}
