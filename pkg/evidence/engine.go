// Package evidence extracts confidence-ranked supporting excerpts from
// input text. Five strategies run independently: weighted pattern tables,
// linguistic expression families, an emotional lexicon, contextual
// crisis/protective scans, and an optional model-backed semantic pass.
// Extraction never fails; any internal error collapses to an empty result.
package evidence

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/zen-systems/mindgate/pkg/invoker"
	"github.com/zen-systems/mindgate/pkg/schema"
)

const highConfidenceBar = 0.7

// Config holds engine tuning knobs.
type Config struct {
	MinConfidence float64
	MaxItems      int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{MinConfidence: 0.3, MaxItems: 10}
}

// Engine runs the extraction strategies and ranks the merged output.
type Engine struct {
	cfg   Config
	inv   *invoker.Invoker
	debug bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithSemantic enables the model-backed semantic strategy.
func WithSemantic(inv *invoker.Invoker) Option {
	return func(e *Engine) { e.inv = inv }
}

// WithDebug enables debug logging.
func WithDebug(debug bool) Option {
	return func(e *Engine) { e.debug = debug }
}

// New creates an evidence engine.
func New(cfg Config, opts ...Option) *Engine {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultConfig().MaxItems
	}
	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs all strategies against the text and returns the ranked,
// deduplicated, quality-scored result. prior may be nil; it gates the
// contextual strategy.
func (e *Engine) Extract(ctx context.Context, text string, category schema.Category, prior *schema.RoutingDecision) (result *Result) {
	// The extractor must never panic out to the caller.
	defer func() {
		if r := recover(); r != nil {
			if e.debug {
				log.Printf("[evidence] extraction panicked: %v", r)
			}
			result = emptyResult()
		}
	}()

	if strings.TrimSpace(text) == "" {
		return emptyResult()
	}

	// The strategies share no data, so they run concurrently. Results
	// land in a fixed slot per strategy, which preserves the dispatch
	// order the dedup tie-break depends on.
	strategies := []func() []Item{
		func() []Item { return patternItems(text, category) },
		func() []Item { return linguisticItems(text) },
		func() []Item { return emotionalItems(text) },
		func() []Item { return contextualItems(text, prior) },
		func() []Item { return e.semanticItems(ctx, text, category) },
	}

	collected := make([][]Item, len(strategies))
	var wg sync.WaitGroup
	for i, strategy := range strategies {
		wg.Add(1)
		go func(slot int, run func() []Item) {
			defer wg.Done()
			collected[slot] = run()
		}(i, strategy)
	}
	wg.Wait()

	var merged []Item
	for _, items := range collected {
		merged = append(merged, items...)
	}

	survivors := e.postProcess(merged)
	return e.buildResult(text, survivors)
}

// postProcess filters, dedupes and ranks the merged items.
func (e *Engine) postProcess(items []Item) []Item {
	filtered := items[:0:0]
	for _, item := range items {
		if item.Confidence >= e.cfg.MinConfidence && strings.TrimSpace(item.Text) != "" {
			filtered = append(filtered, item)
		}
	}

	// First occurrence in dispatch order wins.
	seen := make(map[string]bool, len(filtered))
	deduped := filtered[:0:0]
	for _, item := range filtered {
		key := strings.ToLower(item.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, item)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		ci := strings.Contains(deduped[i].Category, "crisis")
		cj := strings.Contains(deduped[j].Category, "crisis")
		if ci != cj {
			return ci
		}
		ri, rj := deduped[i].Clinical.rank(), deduped[j].Clinical.rank()
		if ri != rj {
			return ri > rj
		}
		return deduped[i].Confidence > deduped[j].Confidence
	})

	if len(deduped) > e.cfg.MaxItems {
		deduped = deduped[:e.cfg.MaxItems]
	}
	return deduped
}

// buildResult groups items and computes quality metrics and the summary.
func (e *Engine) buildResult(text string, items []Item) *Result {
	result := &Result{
		Items:      items,
		ByCategory: make(map[string][]Item),
	}
	for _, item := range items {
		result.ByCategory[item.Category] = append(result.ByCategory[item.Category], item)
	}

	total := len(items)
	if total == 0 || len(text) == 0 {
		result.Items = []Item{}
		result.Summary.OverallStrength = StrengthWeak
		return result
	}

	var coveredLen int
	var specific int
	var clinicalSum float64
	var highConf, risk, supportive int
	for _, item := range items {
		coveredLen += len(item.Text)
		if item.Confidence > highConfidenceBar && item.Type == TypeDirectQuote {
			specific++
		}
		clinicalSum += item.Clinical.weight()
		if item.Confidence > highConfidenceBar {
			highConf++
		}
		if isSupportiveFactor(item) {
			supportive++
		} else if item.Clinical == ClinicalCritical || item.Clinical == ClinicalSignificant {
			risk++
		}
	}

	completeness := float64(coveredLen) / (float64(len(text)) * 0.3)
	if completeness > 1 {
		completeness = 1
	}
	result.Quality = Quality{
		Completeness:      completeness,
		Specificity:       float64(specific) / float64(total),
		ClinicalRelevance: clinicalSum / float64(total),
	}

	result.Summary = Summary{
		TotalEvidence:         total,
		HighConfidenceCount:   highConf,
		RiskIndicatorCount:    risk,
		SupportiveFactorCount: supportive,
		OverallStrength:       strength(highConf, total),
	}
	return result
}

func strength(highConf, total int) Strength {
	switch {
	case highConf >= 3 && total >= 5:
		return StrengthStrong
	case highConf >= 1 && total >= 2:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}

func isSupportiveFactor(item Item) bool {
	return item.Category == "protective_factors" || item.Metadata["valence"] == "positive"
}

// patternItems applies the per-category weighted pattern table. Offsets
// come from the first match only, which can misreport repeated phrases.
func patternItems(text string, category schema.Category) []Item {
	groups, ok := categoryPatterns[category]
	if !ok {
		groups = categoryPatterns[schema.CategoryGeneral]
	}

	subcats := make([]string, 0, len(groups))
	for subcat := range groups {
		subcats = append(subcats, subcat)
	}
	sort.Strings(subcats)

	var items []Item
	for _, subcat := range subcats {
		for _, p := range groups[subcat] {
			loc := p.re.FindStringIndex(text)
			if loc == nil {
				continue
			}
			clinical := ClinicalSupportive
			if p.weight > 0.8 {
				clinical = ClinicalSignificant
			}
			items = append(items, Item{
				Text:       text[loc[0]:loc[1]],
				Type:       TypeDirectQuote,
				Confidence: p.weight,
				Relevance:  bucketRelevance(p.weight),
				Category:   string(category) + "_" + subcat,
				Span:       &Span{Start: loc[0], End: loc[1]},
				Clinical:   clinical,
				Metadata:   map[string]string{"pattern": p.re.String()},
			})
		}
	}
	return items
}

func bucketRelevance(weight float64) Relevance {
	switch {
	case weight > 0.8:
		return RelevanceHigh
	case weight > 0.6:
		return RelevanceMedium
	default:
		return RelevanceLow
	}
}

// linguisticItems scans the fixed expression families.
func linguisticItems(text string) []Item {
	families := make([]string, 0, len(linguisticFamilies))
	for family := range linguisticFamilies {
		families = append(families, family)
	}
	sort.Strings(families)

	var items []Item
	for _, family := range families {
		re := linguisticFamilies[family]
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		items = append(items, Item{
			Text:       text[loc[0]:loc[1]],
			Type:       TypeLinguisticPattern,
			Confidence: 0.6,
			Relevance:  RelevanceMedium,
			Category:   family,
			Span:       &Span{Start: loc[0], End: loc[1]},
			Clinical:   ClinicalSupportive,
			Metadata:   map[string]string{"family": family},
		})
	}
	return items
}

// emotionalItems looks up lexicon words with word-boundary matching.
func emotionalItems(text string) []Item {
	lower := strings.ToLower(text)

	var items []Item
	for _, word := range lexiconWords {
		idx := indexWord(lower, word)
		if idx < 0 {
			continue
		}
		entry := emotionalLexicon[word]
		conf := intensityConfidence(entry.intensity)
		items = append(items, Item{
			Text:       text[idx : idx+len(word)],
			Type:       TypeEmotionalMarker,
			Confidence: conf,
			Relevance:  Relevance(entry.intensity),
			Category:   "emotional_expression",
			Span:       &Span{Start: idx, End: idx + len(word)},
			Clinical:   ClinicalSupportive,
			Metadata:   map[string]string{"valence": entry.valence, "intensity": entry.intensity},
		})
	}
	return items
}

// contextualItems runs only when a prior classification exists. A
// crisis-flagged prior adds a planning/finality scan; protective-factor
// language is always scanned.
func contextualItems(text string, prior *schema.RoutingDecision) []Item {
	if prior == nil {
		return nil
	}

	var items []Item
	if prior.IsCritical || prior.Category.IsCrisis() {
		for _, p := range finalityPatterns {
			loc := p.re.FindStringIndex(text)
			if loc == nil {
				continue
			}
			items = append(items, Item{
				Text:       text[loc[0]:loc[1]],
				Type:       TypeContextualIndicator,
				Confidence: p.weight,
				Relevance:  RelevanceHigh,
				Category:   "crisis_planning",
				Span:       &Span{Start: loc[0], End: loc[1]},
				Clinical:   ClinicalCritical,
				Metadata:   map[string]string{"pattern": p.re.String()},
			})
		}
	}

	for _, p := range protectivePatterns {
		loc := p.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		items = append(items, Item{
			Text:       text[loc[0]:loc[1]],
			Type:       TypeContextualIndicator,
			Confidence: p.weight,
			Relevance:  RelevanceMedium,
			Category:   "protective_factors",
			Span:       &Span{Start: loc[0], End: loc[1]},
			Clinical:   ClinicalSupportive,
			Metadata:   map[string]string{"valence": "positive"},
		})
	}
	return items
}

// lexiconWords is the deterministic iteration order for the lexicon.
var lexiconWords = func() []string {
	words := make([]string, 0, len(emotionalLexicon))
	for word := range emotionalLexicon {
		words = append(words, word)
	}
	sort.Strings(words)
	return words
}()

// indexWord finds word in lower at a word boundary, or -1.
func indexWord(lower, word string) int {
	from := 0
	for {
		idx := strings.Index(lower[from:], word)
		if idx < 0 {
			return -1
		}
		idx += from
		boundedLeft := idx == 0 || !isWordChar(lower[idx-1])
		end := idx + len(word)
		boundedRight := end >= len(lower) || !isWordChar(lower[end])
		if boundedLeft && boundedRight {
			return idx
		}
		from = idx + 1
	}
}

func isWordChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}
