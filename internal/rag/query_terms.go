package rag

import (
	"strings"
	"unicode"
)

const simpleQueryMaxWords = 10

var comprehensiveTerms = map[string]struct{}{
	"everything": {}, "all": {}, "comprehensive": {}, "detailed": {}, "complete": {}, "full": {},
}

var analyticalTerms = map[string]struct{}{
	"explain": {}, "describe": {}, "compare": {}, "analyze": {}, "list": {}, "detail": {}, "how": {}, "why": {},
}

// contextBudget is how many of the closest chunks each length class may include.
var contextBudget = map[LengthClass]int{
	LengthSimple:        3,
	LengthDefault:       8,
	LengthComprehensive: 12,
}

// classifyLength picks a length class from the query's wording.
// Comprehensive terms win over everything else; a short query with no
// analytical term is simple.
func classifyLength(query string) LengthClass {
	tokens := tokenize(query)
	if containsAny(tokens, comprehensiveTerms) {
		return LengthComprehensive
	}
	if len(strings.Fields(query)) <= simpleQueryMaxWords && !containsAny(tokens, analyticalTerms) {
		return LengthSimple
	}
	return LengthDefault
}

func containsAny(tokens []string, set map[string]struct{}) bool {
	for _, t := range tokens {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// tokenize lowercases text and splits it on anything that is not a letter or digit.
func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	tokens := strings.Fields(builder.String())
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}
