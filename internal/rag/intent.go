package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrClassificationMalformed is returned when the model's classification is not the expected JSON.
var ErrClassificationMalformed = errors.New("malformed intent classification")

// Intent is the pedagogical purpose of a question.
type Intent string

// Intents the classifier may return.
const (
	IntentTeachSequential Intent = "teach_sequential"
	IntentExplainConcept  Intent = "explain_concept"
	IntentQuiz            Intent = "quiz"
	IntentMindmap         Intent = "mindmap"
	IntentClarify         Intent = "clarify"
)

// DefaultIntent is used whenever classification fails.
const DefaultIntent = IntentExplainConcept

// Profile is the retrieval shape for an intent: which hierarchy levels to search and how many results.
type Profile struct {
	Levels []int
	TopK   int
}

var profiles = map[Intent]Profile{
	IntentMindmap:         {Levels: []int{2, 3}, TopK: 15},
	IntentTeachSequential: {Levels: []int{2, 3}, TopK: 8},
	IntentExplainConcept:  {Levels: []int{3, 4}, TopK: 10},
	IntentQuiz:            {Levels: []int{2, 3}, TopK: 10},
	IntentClarify:         {Levels: []int{3, 4}, TopK: 5},
}

// ProfileFor returns the retrieval profile of intent, or the default intent's profile if it is unknown.
func ProfileFor(intent Intent) Profile {
	if p, ok := profiles[intent]; ok {
		return p
	}
	return profiles[DefaultIntent]
}

// IntentResult is a parsed classification.
type IntentResult struct {
	Intent      Intent
	TargetUnits []string
	DetailLevel string // high, medium or low
}

// IntentClassifier uses the generative model as a zero-shot intent classifier.
type IntentClassifier struct {
	gen Generator
}

// NewIntentClassifier creates a classifier backed by gen.
func NewIntentClassifier(gen Generator) *IntentClassifier {
	return &IntentClassifier{gen: gen}
}

// Classify asks the model for the query's intent. Generation errors are
// returned as is; unparseable output yields ErrClassificationMalformed.
func (c *IntentClassifier) Classify(ctx context.Context, query string, sc SessionContext) (IntentResult, error) {
	raw, err := c.gen.Generate(ctx, classificationPrompt(query, sc), "")
	if err != nil {
		return IntentResult{}, fmt.Errorf("intent classification: %w", err)
	}
	return parseIntent(raw)
}

func classificationPrompt(query string, sc SessionContext) string {
	var b strings.Builder
	b.WriteString("Analyze this student query and classify its intent.\n\n")
	fmt.Fprintf(&b, "Query: %q\n\n", query)
	fmt.Fprintf(&b, "Current context: unit=%q, teaching_mode=%q, last_topic=%q\n\n",
		sc.CurrentUnitName, sc.TeachingMode, sc.LastTopic)
	b.WriteString(`Classify into ONE of these intents:
1. teach_sequential - the student wants to learn a topic step by step
2. explain_concept - the student wants an explanation of a specific concept
3. quiz - the student wants practice questions or testing
4. mindmap - the student wants a visual overview or mindmap
5. clarify - a follow-up question on the previous topic

Also identify:
- target_units: which units or sections are relevant (list)
- detail_level: high, medium or low

Respond ONLY with JSON:
{"intent": "...", "target_units": [...], "detail_level": "..."}`)
	return b.String()
}

type rawIntent struct {
	Intent      string `json:"intent"`
	TargetUnits []any  `json:"target_units"`
	DetailLevel string `json:"detail_level"`
}

// parseIntent extracts the outermost JSON object from raw model output.
// Models often wrap JSON in prose or code fences, so text around the object is ignored.
func parseIntent(raw string) (IntentResult, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return IntentResult{}, fmt.Errorf("%w: no JSON object in %q", ErrClassificationMalformed, truncate(raw, 80))
	}

	var r rawIntent
	if err := json.Unmarshal([]byte(raw[start:end+1]), &r); err != nil {
		return IntentResult{}, fmt.Errorf("%w: %w", ErrClassificationMalformed, err)
	}

	intent := Intent(strings.ToLower(strings.TrimSpace(r.Intent)))
	if _, ok := profiles[intent]; !ok {
		return IntentResult{}, fmt.Errorf("%w: unknown intent %q", ErrClassificationMalformed, r.Intent)
	}

	units := make([]string, 0, len(r.TargetUnits))
	for _, u := range r.TargetUnits {
		units = append(units, fmt.Sprint(u))
	}

	detail := strings.ToLower(strings.TrimSpace(r.DetailLevel))
	switch detail {
	case "high", "medium", "low":
	default:
		detail = "medium"
	}

	return IntentResult{Intent: intent, TargetUnits: units, DetailLevel: detail}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
