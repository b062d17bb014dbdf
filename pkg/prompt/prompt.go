// Package prompt builds the model prompts used across the pipeline.
package prompt

import (
	"fmt"
	"strings"

	"github.com/zen-systems/mindgate/pkg/schema"
)

// Classification builds the routing-classifier prompt.
func Classification(text string) string {
	var sb strings.Builder

	sb.WriteString("You are a mental-health triage classifier.\n")
	sb.WriteString("Classify the text below into exactly one category:\n")
	sb.WriteString("crisis, depression, anxiety, general_mental_health, none.\n")
	sb.WriteString("\"crisis\" means acute self-harm or suicide risk.\n\n")
	sb.WriteString("Return ONLY JSON: {\"category\":\"...\",\"confidence\":0-1,\"is_critical\":true|false,\"reason\":\"...\"}.\n\n")
	sb.WriteString("Text:\n")
	sb.WriteString(text)

	return sb.String()
}

// Analysis builds the category-specific deep-analysis prompt used after
// routing resolves a non-crisis category.
func Analysis(category schema.Category, text string) string {
	var sb strings.Builder

	sb.WriteString("You are a clinical triage assistant.\n")
	switch category {
	case schema.CategoryDepression:
		sb.WriteString("The text was routed as possible depression. Assess mood, anhedonia, energy, sleep, self-worth and duration.\n")
	case schema.CategoryAnxiety:
		sb.WriteString("The text was routed as possible anxiety. Assess worry, panic, physical symptoms, avoidance and duration.\n")
	case schema.CategoryNone:
		sb.WriteString("The text was routed as having no mental-health concern. Verify that assessment.\n")
	default:
		sb.WriteString("The text was routed as a general mental-health concern. Assess what, if anything, stands out.\n")
	}
	sb.WriteString("If you see acute self-harm or suicide risk, say so with category \"crisis\".\n\n")
	sb.WriteString("Return ONLY JSON: {\"category\":\"...\",\"confidence\":0-1,\"is_critical\":true|false,")
	sb.WriteString("\"reasoning\":\"...\",\"supporting_evidence\":[\"...\"]}.\n\n")
	sb.WriteString("Text:\n")
	sb.WriteString(text)

	return sb.String()
}

// SemanticEvidence builds the evidence-extraction prompt for the
// model-backed evidence strategy.
func SemanticEvidence(category schema.Category, text string) string {
	var sb strings.Builder

	sb.WriteString("Extract verbatim excerpts from the text that support or contradict the category ")
	sb.WriteString(fmt.Sprintf("%q.\n", string(category)))
	sb.WriteString("Each excerpt must appear in the text. Rate clinical relevance as one of: critical, significant, supportive, contextual.\n\n")
	sb.WriteString("Return ONLY JSON: {\"evidence\":[{\"text\":\"...\",\"clinicalRelevance\":\"...\",")
	sb.WriteString("\"confidence\":0-1,\"rationale\":\"...\",\"category\":\"...\"}]}.\n\n")
	sb.WriteString("Text:\n")
	sb.WriteString(text)

	return sb.String()
}
