// Package pipeline composes the router, model invoker and evidence cache
// into the end-to-end analysis flow. A request moves through routing,
// model analysis, evidence enhancement and finalization; a crisis route
// short-circuits straight to a terminal result. Stage errors accumulate
// on the result instead of aborting, so a degraded backend still produces
// a complete answer.
package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/zen-systems/mindgate/pkg/artifact"
	"github.com/zen-systems/mindgate/pkg/evidence"
	"github.com/zen-systems/mindgate/pkg/invoker"
	"github.com/zen-systems/mindgate/pkg/notify"
	"github.com/zen-systems/mindgate/pkg/prompt"
	"github.com/zen-systems/mindgate/pkg/provider"
	"github.com/zen-systems/mindgate/pkg/router"
	"github.com/zen-systems/mindgate/pkg/schema"
)

const (
	// escalationBar is the confidence above which a crisis discovered
	// after routing triggers a second alert.
	escalationBar = 0.7

	evidenceViewMax = 5
)

// Orchestrator runs the analysis pipeline.
type Orchestrator struct {
	router   *router.Router
	inv      *invoker.Invoker
	cache    *evidence.Cache
	notifier notify.Notifier
	debug    bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets the crisis alert sink.
func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithDebug enables debug logging.
func WithDebug(debug bool) Option {
	return func(o *Orchestrator) { o.debug = debug }
}

// New creates an orchestrator. inv and cache may be nil; the matching
// stages are then skipped and the routing decision carries the result.
func New(r *router.Router, inv *invoker.Invoker, cache *evidence.Cache, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		router:   r,
		inv:      inv,
		cache:    cache,
		notifier: notify.NewLogNotifier(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Analyze runs the full pipeline for one piece of text. It never returns
// an error; stage problems are recorded on the result.
func (o *Orchestrator) Analyze(ctx context.Context, text string, reqCtx *schema.RequestContext) *schema.AnalysisResult {
	decision := o.router.Route(ctx, text, reqCtx)

	if decision.IsCritical || decision.Category.IsCrisis() {
		return o.crisisResult(ctx, text, decision, reqCtx)
	}

	result := &schema.AnalysisResult{
		Category:        decision.Category,
		Confidence:      decision.Confidence,
		Explanation:     "Routed by " + string(decision.Method) + " without model analysis.",
		RoutingDecision: &decision,
	}

	o.modelAnalysis(ctx, text, decision, result)
	o.enhanceEvidence(ctx, text, decision, result, reqCtx)
	o.finalize(ctx, text, decision, result, reqCtx)
	return result
}

// crisisResult is the terminal short-circuit for a crisis route. Model
// analysis and evidence enhancement are skipped; the alert goes out
// immediately.
func (o *Orchestrator) crisisResult(ctx context.Context, text string, decision schema.RoutingDecision, reqCtx *schema.RequestContext) *schema.AnalysisResult {
	result := &schema.AnalysisResult{
		HasMentalHealthIssue: true,
		Category:             schema.CategoryCrisis,
		Confidence:           decision.Confidence,
		Explanation:          "Crisis indicators detected during routing; escalated without further analysis.",
		IsCrisis:             true,
		Timestamp:            time.Now().UTC(),
		RoutingDecision:      &decision,
	}
	if hits, ok := decision.Insights["matchedKeywords"].([]string); ok {
		result.SupportingEvidence = hits
	}

	o.alert(ctx, text, &decision, result, reqCtx)
	return result
}

// modelAnalysis runs the category-specific deep analysis. The model's
// category wins only when it differs from the router's and is more
// confident; confidence always takes the larger of the two.
func (o *Orchestrator) modelAnalysis(ctx context.Context, text string, decision schema.RoutingDecision, result *schema.AnalysisResult) {
	if o.inv == nil {
		return
	}

	messages := []provider.Message{
		{Role: "user", Content: prompt.Analysis(decision.Category, text)},
	}
	out := o.inv.Invoke(ctx, messages, invoker.Options{
		Temperature:     0.2,
		PriorConfidence: decision.Confidence,
	})

	if out.Raw != "" {
		result.RawModelOutput = artifact.New(out.Raw, o.inv.ProviderName(), "")
	}

	switch {
	case out.Success:
		modelCategory := router.MapCategory(out.Payload.Category)
		modelConfidence := schema.Clamp01(out.Payload.Confidence)
		if modelCategory != decision.Category && modelConfidence > decision.Confidence {
			result.Category = modelCategory
		}
		if modelConfidence > result.Confidence {
			result.Confidence = modelConfidence
		}
		result.Explanation = out.Payload.Explanation()
		result.SupportingEvidence = append(result.SupportingEvidence, out.Payload.SupportingEvidence...)

	case out.ErrorKind == invoker.ErrKindParsing:
		// Prose instead of JSON. The synthesized payload already quotes
		// the raw text and halves the routing confidence.
		result.Confidence = out.Payload.Confidence
		result.Explanation = out.Payload.Explanation()
		result.AddFailure("model_analysis", "model returned non-JSON content", nil)

	default:
		result.Explanation = out.Payload.Explanation()
		result.AddFailure("model_analysis", "model call failed ("+string(out.ErrorKind)+")", nil)
		if o.debug {
			log.Printf("[pipeline] model analysis degraded (%s), keeping routed category %s", out.ErrorKind, decision.Category)
		}
	}
}

// enhanceEvidence merges cached pattern evidence into whatever the model
// already supplied. Context hints ride along outside the item cap.
func (o *Orchestrator) enhanceEvidence(ctx context.Context, text string, decision schema.RoutingDecision, result *schema.AnalysisResult, reqCtx *schema.RequestContext) {
	if o.cache == nil {
		return
	}

	extracted, hit := o.cache.GetOrCompute(ctx, text, result.Category, &decision)
	if o.debug && hit {
		log.Printf("[pipeline] evidence served from cache for category %s", result.Category)
	}

	texts := evidence.TopTexts(extracted, evidenceViewMax, contextHints(reqCtx)...)

	seen := make(map[string]bool, len(result.SupportingEvidence))
	for _, existing := range result.SupportingEvidence {
		seen[existing] = true
	}
	for _, t := range texts {
		if !seen[t] {
			seen[t] = true
			result.SupportingEvidence = append(result.SupportingEvidence, t)
		}
	}
}

// finalize recomputes the crisis flag from the resolved category and
// fires the second, independent escalation when model analysis surfaced a
// crisis the router missed.
func (o *Orchestrator) finalize(ctx context.Context, text string, decision schema.RoutingDecision, result *schema.AnalysisResult, reqCtx *schema.RequestContext) {
	result.IsCrisis = result.Category.IsCrisis()
	result.HasMentalHealthIssue = result.Category != schema.CategoryNone
	result.Timestamp = time.Now().UTC()

	if result.IsCrisis && result.Confidence > escalationBar {
		o.alert(ctx, text, &decision, result, reqCtx)
	}
}

// alert dispatches a crisis notification. Delivery failure is logged and
// never propagates; the result keeps its crisis flag regardless.
func (o *Orchestrator) alert(ctx context.Context, text string, decision *schema.RoutingDecision, result *schema.AnalysisResult, reqCtx *schema.RequestContext) {
	if o.notifier == nil {
		return
	}

	a := notify.Alert{
		Timestamp:  time.Now().UTC(),
		TextSample: notify.Sample(text),
		Decision:   decision,
		Analysis:   result,
	}
	if reqCtx != nil {
		a.UserID = reqCtx.UserID
		a.SessionID = reqCtx.SessionID
		a.SessionType = reqCtx.SessionType
		a.ExplicitTaskHint = reqCtx.ExplicitTaskHint
	}

	if err := o.notifier.SendCrisisAlert(ctx, a); err != nil {
		log.Printf("[pipeline] crisis alert dispatch failed: %v", err)
	}
}

// contextHints turns request context fields into evidence hint strings.
func contextHints(reqCtx *schema.RequestContext) []string {
	if reqCtx == nil {
		return nil
	}
	var hints []string
	if reqCtx.ExplicitTaskHint != "" {
		hints = append(hints, "caller hint: "+reqCtx.ExplicitTaskHint)
	}
	if reqCtx.PreviousConversationState != "" {
		hints = append(hints, "prior session: "+reqCtx.PreviousConversationState)
	}
	return hints
}
