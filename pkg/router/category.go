package router

import (
	"strings"

	"github.com/zen-systems/mindgate/pkg/schema"
)

// synonyms maps raw model category strings onto the closed category set.
// The table is fixed; anything unrecognized becomes general_mental_health
// so an unmapped label can never leak past the router.
var synonyms = map[string]schema.Category{
	"crisis":                schema.CategoryCrisis,
	"suicide":               schema.CategoryCrisis,
	"suicidal":              schema.CategoryCrisis,
	"self_harm":             schema.CategoryCrisis,
	"self-harm":             schema.CategoryCrisis,
	"emergency":             schema.CategoryCrisis,
	"depression":            schema.CategoryDepression,
	"depressed":             schema.CategoryDepression,
	"depressive":            schema.CategoryDepression,
	"low_mood":              schema.CategoryDepression,
	"anxiety":               schema.CategoryAnxiety,
	"anxious":               schema.CategoryAnxiety,
	"panic":                 schema.CategoryAnxiety,
	"worry":                 schema.CategoryAnxiety,
	"general_mental_health": schema.CategoryGeneral,
	"general":               schema.CategoryGeneral,
	"mental_health":         schema.CategoryGeneral,
	"stress":                schema.CategoryGeneral,
	"unknown":               schema.CategoryUnknown,
	"unclear":               schema.CategoryUnknown,
	"none":                  schema.CategoryNone,
	"no_issue":              schema.CategoryNone,
	"healthy":               schema.CategoryNone,
}

// MapCategory normalizes a raw category label to the closed set.
func MapCategory(raw string) schema.Category {
	if c, ok := lookupCategory(raw); ok {
		return c
	}
	return schema.CategoryGeneral
}

// lookupCategory reports whether the raw label is a known synonym.
func lookupCategory(raw string) (schema.Category, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.Trim(key, ".,:;!?\"'")
	c, ok := synonyms[key]
	return c, ok
}
