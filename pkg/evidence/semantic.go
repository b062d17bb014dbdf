package evidence

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

// semanticEnvelope is the JSON shape requested from the model.
type semanticEnvelope struct {
	Evidence []semanticEntry `json:"evidence"`
}

type semanticEntry struct {
	Text              string  `json:"text"`
	ClinicalRelevance string  `json:"clinicalRelevance"`
	Confidence        float64 `json:"confidence"`
	Rationale         string  `json:"rationale"`
	Category          string  `json:"category"`
}

// semanticItems asks the model for evidence excerpts. Entries are
// validated independently, so one bad entry never discards the rest; a
// total call or parse failure yields zero items.
func (e *Engine) semanticItems(ctx context.Context, text string, category schema.Category) []Item {
	if e.inv == nil {
		return nil
	}

	messages := []provider.Message{
		{Role: "user", Content: prompt.SemanticEvidence(category, text)},
	}
	out := e.inv.Invoke(ctx, messages, invoker.Options{Temperature: 0.1, RawContent: true})
	if !out.Success {
		if e.debug {
			log.Printf("[evidence] semantic strategy unavailable (%s)", out.ErrorKind)
		}
		return nil
	}

	var envelope semanticEnvelope
	if !jsonx.Unmarshal(out.Raw, &envelope) {
		if e.debug {
			log.Printf("[evidence] semantic reply was not parseable")
		}
		return nil
	}

	var items []Item
	for _, entry := range envelope.Evidence {
		entry.Text = strings.TrimSpace(entry.Text)
		if entry.Text == "" {
			continue
		}

		conf := entry.Confidence
		if conf <= 0 {
			conf = 0.5
		}
		conf = schema.Clamp01(conf)

		clinical := parseClinical(entry.ClinicalRelevance)
		itemCategory := strings.TrimSpace(entry.Category)
		if itemCategory == "" {
			itemCategory = "semantic_analysis"
		}

		metadata := map[string]string{}
		if entry.Rationale != "" {
			metadata["rationale"] = entry.Rationale
		}

		items = append(items, Item{
			Text:       entry.Text,
			Type:       TypeDirectQuote,
			Confidence: conf,
			Relevance:  bucketRelevance(conf),
			Category:   itemCategory,
			Clinical:   clinical,
			Metadata:   metadata,
		})
	}
	return items
}

func parseClinical(raw string) ClinicalRelevance {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical":
		return ClinicalCritical
	case "significant":
		return ClinicalSignificant
	case "contextual":
		return ClinicalContextual
	default:
		return ClinicalSupportive
	}
}
