// Package jsonx extracts JSON objects from free-form model output.
// Models asked for JSON routinely wrap it in markdown fences or prose, so
// extraction tries a fenced code block first, then the outermost brace
// pair. Near-JSON candidates get one repair pass before being rejected.
package jsonx

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// Extract returns the first JSON object found in content. ok is false when
// no parseable object exists.
func Extract(content string) (string, bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", false
	}

	if m := fenceRe.FindStringSubmatch(content); m != nil {
		if candidate, ok := validate(m[1]); ok {
			return candidate, true
		}
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		if candidate, ok := validate(content[start : end+1]); ok {
			return candidate, true
		}
	}

	return "", false
}

// Unmarshal extracts a JSON object from content and decodes it into v.
func Unmarshal(content string, v any) bool {
	candidate, ok := Extract(content)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(candidate), v) == nil
}

// FirstWord returns the first whitespace-delimited word of content with
// surrounding punctuation stripped, lowercased. Callers use it as a
// last-resort category guess when no JSON is present.
func FirstWord(content string) string {
	fields := strings.Fields(strings.TrimSpace(content))
	if len(fields) == 0 {
		return ""
	}
	word := strings.ToLower(fields[0])
	return strings.Trim(word, ".,:;!?\"'`")
}

func validate(candidate string) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	if json.Valid([]byte(candidate)) {
		return candidate, true
	}
	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return "", false
	}
	if !json.Valid([]byte(repaired)) {
		return "", false
	}
	return repaired, true
}
