package evidence

// ExtractionType identifies which strategy produced an item.
type ExtractionType string

const (
	TypeDirectQuote         ExtractionType = "direct_quote"
	TypeLinguisticPattern   ExtractionType = "linguistic_pattern"
	TypeEmotionalMarker     ExtractionType = "emotional_marker"
	TypeContextualIndicator ExtractionType = "contextual_indicator"
)

// Relevance is the coarse confidence bucket.
type Relevance string

const (
	RelevanceHigh   Relevance = "high"
	RelevanceMedium Relevance = "medium"
	RelevanceLow    Relevance = "low"
)

// ClinicalRelevance ranks severity-adjacency, independent of confidence.
type ClinicalRelevance string

const (
	ClinicalCritical    ClinicalRelevance = "critical"
	ClinicalSignificant ClinicalRelevance = "significant"
	ClinicalSupportive  ClinicalRelevance = "supportive"
	ClinicalContextual  ClinicalRelevance = "contextual"
)

// rank orders clinical relevance for sorting: critical > significant >
// supportive > contextual.
func (c ClinicalRelevance) rank() int {
	switch c {
	case ClinicalCritical:
		return 4
	case ClinicalSignificant:
		return 3
	case ClinicalSupportive:
		return 2
	case ClinicalContextual:
		return 1
	}
	return 0
}

// weight contributes to the quality score.
func (c ClinicalRelevance) weight() float64 {
	switch c {
	case ClinicalCritical:
		return 1.0
	case ClinicalSignificant:
		return 0.8
	case ClinicalSupportive:
		return 0.6
	case ClinicalContextual:
		return 0.4
	}
	return 0.4
}

// Span marks a byte range in the source text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Item is one scored, categorized excerpt of the input text.
type Item struct {
	Text       string            `json:"text"`
	Type       ExtractionType    `json:"type"`
	Confidence float64           `json:"confidence"`
	Relevance  Relevance         `json:"relevance"`
	Category   string            `json:"category"`
	Span       *Span             `json:"span,omitempty"`
	Clinical   ClinicalRelevance `json:"clinical_relevance,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Quality scores the extraction as a whole. All fields are in [0, 1].
type Quality struct {
	Completeness      float64 `json:"completeness"`
	Specificity       float64 `json:"specificity"`
	ClinicalRelevance float64 `json:"clinical_relevance"`
}

// Strength is the overall evidence strength bucket.
type Strength string

const (
	StrengthStrong   Strength = "strong"
	StrengthModerate Strength = "moderate"
	StrengthWeak     Strength = "weak"
)

// Summary aggregates counts over the surviving items.
type Summary struct {
	TotalEvidence         int      `json:"total_evidence"`
	HighConfidenceCount   int      `json:"high_confidence_count"`
	RiskIndicatorCount    int      `json:"risk_indicator_count"`
	SupportiveFactorCount int      `json:"supportive_factor_count"`
	OverallStrength       Strength `json:"overall_strength"`
}

// Result is the ranked output of an extraction run.
type Result struct {
	Items      []Item            `json:"items"`
	ByCategory map[string][]Item `json:"by_category"`
	Quality    Quality           `json:"quality"`
	Summary    Summary           `json:"summary"`
}

// emptyResult is what any internal failure collapses to.
func emptyResult() *Result {
	return &Result{
		Items:      []Item{},
		ByCategory: map[string][]Item{},
		Summary:    Summary{OverallStrength: StrengthWeak},
	}
}
