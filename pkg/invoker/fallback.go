package invoker

import (
	"fmt"

	"github.com/zen-systems/mindgate/pkg/schema"
)

const fallbackConfidence = 0.3

// fallbackReasoning returns the bespoke explanation text for an
// error-type-specific synthesized answer.
func fallbackReasoning(kind ErrorKind) string {
	switch kind {
	case ErrKindTimeout:
		return "The analysis service took too long to respond. This is a conservative placeholder assessment; the text was not fully analyzed."
	case ErrKindRateLimited:
		return "The analysis service is temporarily rate limited. This is a conservative placeholder assessment produced without a model call."
	case ErrKindProviderUnavailable:
		return "No analysis provider is currently reachable. This is a conservative placeholder assessment produced without a model call."
	case ErrKindValidation:
		return "The request was malformed and no model call was attempted. This is a conservative placeholder assessment."
	default:
		return "The analysis service returned an unexpected error. This is a conservative placeholder assessment; the text was not fully analyzed."
	}
}

// synthesizeFallback builds the degraded payload for a failed invocation.
func synthesizeFallback(kind ErrorKind) schema.ModelAnalysis {
	return schema.ModelAnalysis{
		Category:   string(schema.CategoryGeneral),
		Confidence: fallbackConfidence,
		Reasoning:  fallbackReasoning(kind),
	}
}

// synthesizeParsingFallback builds the degraded payload for content that
// was not JSON. The raw model text is preserved in the reasoning and the
// confidence is halved relative to the caller's prior.
func synthesizeParsingFallback(raw string, priorConfidence float64) schema.ModelAnalysis {
	return schema.ModelAnalysis{
		Category:   string(schema.CategoryGeneral),
		Confidence: schema.Clamp01(priorConfidence * 0.5),
		Reasoning:  fmt.Sprintf("The model did not return structured output. Raw reply: %s", raw),
	}
}
