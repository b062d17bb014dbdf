package schema

import (
	"time"

	"github.com/zen-systems/mindgate/pkg/artifact"
)

// Category is the closed set of triage categories. Raw model output is
// mapped onto this set before any downstream component sees it.
type Category string

const (
	CategoryCrisis     Category = "crisis"
	CategoryDepression Category = "depression"
	CategoryAnxiety    Category = "anxiety"
	CategoryGeneral    Category = "general_mental_health"
	CategoryUnknown    Category = "unknown"
	CategoryNone       Category = "none"
)

// IsCrisis reports whether the category requires escalation.
func (c Category) IsCrisis() bool {
	return c == CategoryCrisis
}

// RouteMethod identifies which rung of the routing chain produced a decision.
type RouteMethod string

const (
	MethodExplicitHint RouteMethod = "explicit_hint"
	MethodKeyword      RouteMethod = "keyword"
	MethodLLM          RouteMethod = "llm"
	MethodDefault      RouteMethod = "default"
)

// RequestContext carries optional caller metadata alongside the text.
type RequestContext struct {
	UserID                    string `json:"user_id,omitempty"`
	SessionID                 string `json:"session_id,omitempty"`
	SessionType               string `json:"session_type,omitempty"`
	ExplicitTaskHint          string `json:"explicit_task_hint,omitempty"`
	PreviousConversationState string `json:"previous_conversation_state,omitempty"`
}

// RoutingDecision captures the outcome of the routing chain.
// Invariant: IsCritical is true whenever Category is crisis.
type RoutingDecision struct {
	Category   Category       `json:"category"`
	Confidence float64        `json:"confidence"`
	IsCritical bool           `json:"is_critical"`
	Method     RouteMethod    `json:"method"`
	Insights   map[string]any `json:"insights,omitempty"`
}

// ModelAnalysis is the structured payload expected from a model call,
// real or synthesized. Reasoning is accepted under both "reasoning" and
// "reason" keys since providers are inconsistent about which they emit.
type ModelAnalysis struct {
	Category           string   `json:"category"`
	Confidence         float64  `json:"confidence"`
	Reasoning          string   `json:"reasoning,omitempty"`
	Reason             string   `json:"reason,omitempty"`
	IsCritical         bool     `json:"is_critical,omitempty"`
	SupportingEvidence []string `json:"supporting_evidence,omitempty"`
}

// Explanation returns whichever reasoning field the model populated.
func (m *ModelAnalysis) Explanation() string {
	if m.Reasoning != "" {
		return m.Reasoning
	}
	return m.Reason
}

// Failure records a non-fatal pipeline stage error.
type Failure struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// AnalysisResult is the caller-facing output of the pipeline. A degraded
// backend still produces a complete result; stage errors accumulate in
// Failures instead of aborting.
type AnalysisResult struct {
	HasMentalHealthIssue bool               `json:"has_mental_health_issue"`
	Category             Category           `json:"category"`
	Confidence           float64            `json:"confidence"`
	Explanation          string             `json:"explanation"`
	SupportingEvidence   []string           `json:"supporting_evidence"`
	IsCrisis             bool               `json:"is_crisis"`
	Timestamp            time.Time          `json:"timestamp"`
	RoutingDecision      *RoutingDecision   `json:"routing_decision,omitempty"`
	RawModelOutput       *artifact.Artifact `json:"raw_model_output,omitempty"`
	Failures             []Failure          `json:"failures,omitempty"`
}

// AddFailure appends a non-fatal failure entry to the result.
func (r *AnalysisResult) AddFailure(failureType, message string, err error) {
	f := Failure{
		Type:      failureType,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		f.Error = err.Error()
	}
	r.Failures = append(r.Failures, f)
}

// Clamp01 clamps a confidence value to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
