package evidence

import (
	"regexp"

	"github.com/zen-systems/mindgate/pkg/schema"
)

// pattern pairs a compiled expression with its confidence weight.
type pattern struct {
	re     *regexp.Regexp
	weight float64
}

// categoryPatterns drives the pattern strategy: per category, groups of
// weighted expressions keyed by sub-category. Matched items get the
// category "{category}_{subcat}".
var categoryPatterns = map[schema.Category]map[string][]pattern{
	schema.CategoryDepression: {
		"mood": {
			{regexp.MustCompile(`(?i)\b(sad|hopeless|miserable|empty|numb)\b`), 0.75},
			{regexp.MustCompile(`(?i)feel(ing)?\s+(down|low|awful|terrible)`), 0.7},
		},
		"anhedonia": {
			{regexp.MustCompile(`(?i)(lost interest|no longer enjoy|nothing (is )?fun|stopped caring)`), 0.85},
		},
		"energy": {
			{regexp.MustCompile(`(?i)\b(exhausted|drained|unmotivated|no energy|fatigued)\b`), 0.75},
			{regexp.MustCompile(`(?i)can'?t get out of bed`), 0.8},
		},
		"sleep_appetite": {
			{regexp.MustCompile(`(?i)(can'?t sleep|barely sleep|sleep(ing)? all day|insomnia|not eating|no appetite)`), 0.7},
		},
		"self_worth": {
			{regexp.MustCompile(`(?i)\b(worthless|useless|failure|burden)\b`), 0.85},
		},
		"duration": {
			{regexp.MustCompile(`(?i)for (weeks|months|years)`), 0.7},
		},
	},
	schema.CategoryAnxiety: {
		"worry": {
			{regexp.MustCompile(`(?i)(can'?t stop worrying|constantly worr(ied|ying)|worry about everything)`), 0.85},
			{regexp.MustCompile(`(?i)\b(worried|worrying|dread)\b`), 0.65},
		},
		"panic": {
			{regexp.MustCompile(`(?i)(panic attack|heart (was )?racing|racing heart|hyperventilat)`), 0.85},
		},
		"physical": {
			{regexp.MustCompile(`(?i)(chest (is |gets )?tight|can'?t breathe|shaking|sweating|nauseous)`), 0.75},
		},
		"avoidance": {
			{regexp.MustCompile(`(?i)(avoid(ing)? (people|going|leaving)|can'?t face|too scared to)`), 0.75},
		},
		"rumination": {
			{regexp.MustCompile(`(?i)(racing thoughts|mind (keeps|won'?t stop)|overthink)`), 0.7},
		},
	},
	schema.CategoryCrisis: {
		"ideation": {
			{regexp.MustCompile(`(?i)(kill myself|end my life|end it all|want to die|suicid)`), 0.95},
			{regexp.MustCompile(`(?i)(better off dead|no reason to live|not worth living)`), 0.9},
		},
		"planning": {
			{regexp.MustCompile(`(?i)(made a plan|wrote a (note|letter)|stockpil|give away my)`), 0.9},
		},
		"hopelessness": {
			{regexp.MustCompile(`(?i)(no way out|can'?t go on|no point (in )?(anymore|living|trying))`), 0.85},
		},
		"self_harm": {
			{regexp.MustCompile(`(?i)(hurt myself|harm myself|cutting)`), 0.9},
		},
	},
	schema.CategoryGeneral: {
		"distress": {
			{regexp.MustCompile(`(?i)\b(struggling|overwhelmed|stressed|burn(ed|t) out)\b`), 0.6},
			{regexp.MustCompile(`(?i)not (doing|feeling) (well|good|great|okay)`), 0.65},
		},
		"isolation": {
			{regexp.MustCompile(`(?i)\b(alone|lonely|isolated|no one to talk to)\b`), 0.65},
		},
	},
}

// linguisticFamilies are category-independent expression families. Every
// match yields a medium-relevance item at fixed confidence.
var linguisticFamilies = map[string]*regexp.Regexp{
	"absolutist_thinking": regexp.MustCompile(`(?i)\b(always|never|nothing|everything|completely|totally|forever)\b`),
	"negation":            regexp.MustCompile(`(?i)\b(can'?t|cannot|won'?t|couldn'?t|don'?t want to)\b`),
	"overgeneralization":  regexp.MustCompile(`(?i)\b(everyone|everybody|no one|nobody|every time|all the time)\b`),
	"pressure_language":   regexp.MustCompile(`(?i)\b(should|must|have to|supposed to|need to)\b`),
	"symptom_duration":    regexp.MustCompile(`(?i)(for (days|weeks|months|years)|getting worse|worse every (day|week)|since last)`),
}

// lexiconEntry is one emotional word with valence and intensity.
type lexiconEntry struct {
	valence   string
	intensity string
}

// emotionalLexicon maps words to valence and intensity; intensity sets
// confidence (high .8, medium .6, low .4).
var emotionalLexicon = map[string]lexiconEntry{
	"devastated": {"negative", "high"},
	"hopeless":   {"negative", "high"},
	"terrified":  {"negative", "high"},
	"worthless":  {"negative", "high"},
	"unbearable": {"negative", "high"},
	"desperate":  {"negative", "high"},
	"sad":        {"negative", "medium"},
	"anxious":    {"negative", "medium"},
	"angry":      {"negative", "medium"},
	"lonely":     {"negative", "medium"},
	"scared":     {"negative", "medium"},
	"ashamed":    {"negative", "medium"},
	"guilty":     {"negative", "medium"},
	"tired":      {"negative", "low"},
	"stressed":   {"negative", "low"},
	"upset":      {"negative", "low"},
	"uneasy":     {"negative", "low"},
	"grateful":   {"positive", "high"},
	"hopeful":    {"positive", "high"},
	"loved":      {"positive", "high"},
	"supported":  {"positive", "medium"},
	"calm":       {"positive", "medium"},
	"better":     {"positive", "medium"},
	"okay":       {"positive", "low"},
	"fine":       {"positive", "low"},
}

// Contextual strategy expressions. Planning/finality only runs after a
// crisis-flagged prior classification; protective factors always run when
// a prior classification exists.
var (
	finalityPatterns = []pattern{
		{regexp.MustCompile(`(?i)(say(ing)? goodbye|last time|won'?t be (here|around)|after i'?m gone)`), 0.9},
		{regexp.MustCompile(`(?i)(put my affairs in order|give away|wrote (a|my) (note|will))`), 0.9},
	}
	protectivePatterns = []pattern{
		{regexp.MustCompile(`(?i)(my (family|friends|kids|children|therapist)|people who care)`), 0.7},
		{regexp.MustCompile(`(?i)\b(support(ed)?|grateful|hope(ful)?|looking forward)\b`), 0.7},
		{regexp.MustCompile(`(?i)reasons? to (live|keep going)`), 0.7},
	}
)

func intensityConfidence(intensity string) float64 {
	switch intensity {
	case "high":
		return 0.8
	case "medium":
		return 0.6
	default:
		return 0.4
	}
}
