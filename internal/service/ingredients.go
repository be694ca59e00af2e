package service

import (
	"regexp"
	"strings"
)

// ingredientDelimiters matches every separator seen in registry ingredient text:
// slash, middle dots (Latin and Hangul), ASCII and full-width commas, and line breaks.
var ingredientDelimiters = regexp.MustCompile(`[/·ㆍ,，\r\n]+`)

// SplitIngredientText splits free ingredient text into trimmed, non-empty, de-duplicated
// tokens in order of first occurrence.
func SplitIngredientText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	return uniqueStrings(ingredientDelimiters.Split(text, -1))
}

// uniqueStrings trims values, drops blanks and keeps the first occurrence of each value.
// The result is never nil.
func uniqueStrings(values ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, list := range values {
		for _, v := range list {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// trimmedItems trims values and drops blanks, keeping duplicates and order
func trimmedItems(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// nonNil returns an empty slice in place of nil so JSON encodes [] rather than null
func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
