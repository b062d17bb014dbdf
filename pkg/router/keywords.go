package router

import "strings"

// Keyword tables for the fast routing rungs. Matching is lowercase
// substring, crisis first; a crisis hit short-circuits everything that
// would otherwise need a model call.

var crisisKeywords = []string{
	"kill myself", "end my life", "end it all", "suicide", "suicidal",
	"want to die", "wish i was dead", "better off dead", "no reason to live",
	"not worth living", "hurt myself", "harm myself", "take my own life",
	"self-harm", "self harm", "cutting myself",
}

var depressionKeywords = []string{
	"depressed", "depression", "hopeless", "worthless", "empty inside",
	"no energy", "unmotivated", "can't get out of bed", "numb",
	"nothing matters", "lost interest", "crying all the time",
}

var anxietyKeywords = []string{
	"anxious", "anxiety", "panic attack", "panic", "can't stop worrying",
	"constantly worried", "on edge", "racing heart", "racing thoughts",
	"overwhelmed", "dread", "can't breathe",
}

// matchKeywords returns every keyword contained in the lowercased text.
func matchKeywords(lower string, keywords []string) []string {
	var hits []string
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}
