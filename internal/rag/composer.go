package rag

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"strings"

	"coursetutor/internal/chunking"
	"coursetutor/internal/contextutil"
)

// DefaultGroundingThreshold is the distance below which the closest chunk counts as supporting evidence.
const DefaultGroundingThreshold = 1.2

// UngroundedDisclaimer opens every answer that is not backed by course material.
const UngroundedDisclaimer = "I couldn't find this in your course materials, so this answer is based on general knowledge."

var errStreamAbandoned = errors.New("stream abandoned by consumer")

// Composer turns retrieved chunks and a question into an answer.
type Composer struct {
	gen       Generator
	threshold float64
}

// NewComposer creates a composer. A non-positive threshold selects DefaultGroundingThreshold.
func NewComposer(gen Generator, threshold float64) *Composer {
	if threshold <= 0 {
		threshold = DefaultGroundingThreshold
	}
	return &Composer{gen: gen, threshold: threshold}
}

// Threshold returns the grounding distance threshold in use.
func (c *Composer) Threshold() float64 { return c.threshold }

// RelevanceLabel buckets a distance for display in a source header.
func RelevanceLabel(distance float64) string {
	switch {
	case distance < 0.5:
		return "HIGH"
	case distance < 1.0:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// IsGrounded reports whether the closest chunk is within threshold.
func IsGrounded(chunks []chunking.RetrievedChunk, threshold float64) bool {
	if len(chunks) == 0 {
		return false
	}
	best := math.Inf(1)
	for _, ch := range chunks {
		best = min(best, ch.Distance)
	}
	return best < threshold
}

// prompt is an assembled model request plus the facts the answer reports.
type prompt struct {
	system   string
	user     string
	grounded bool
	used     int
	length   LengthClass
}

func (p prompt) answer(text string) Answer {
	return Answer{Text: text, Grounded: p.grounded, ChunksUsed: p.used, Length: p.length}
}

// prepare assembles the prompt. It has no side effects.
func (c *Composer) prepare(in ComposeInput) prompt {
	p := prompt{
		grounded: IsGrounded(in.Chunks, c.threshold),
		length:   classifyLength(in.Query),
	}

	sources := in.Chunks
	if !p.grounded {
		sources = nil
	}
	if budget := contextBudget[p.length]; len(sources) > budget {
		sources = sources[:budget]
	}
	p.used = len(sources)

	p.system = systemInstruction(in, p.grounded, p.length)
	p.user = userMessage(in.Query, sources)
	return p
}

func systemInstruction(in ComposeInput, grounded bool, length LengthClass) string {
	var b strings.Builder

	course := in.CourseName
	if course == "" {
		course = "this course"
	}
	fmt.Fprintf(&b, "You are an expert tutor for the course: %s.\n\n", course)

	sc := in.Session
	b.WriteString("Current session context:\n")
	fmt.Fprintf(&b, "- Current unit: %s\n", orDefault(sc.CurrentUnitName, "not specified"))
	fmt.Fprintf(&b, "- Teaching mode: %s\n", orDefault(sc.TeachingMode, "qa"))
	fmt.Fprintf(&b, "- Previous topic: %s\n\n", orDefault(sc.LastTopic, "none"))

	if grounded {
		b.WriteString("Answer using ONLY the numbered course sources in the message. ")
		b.WriteString("Treat nothing outside them as fact. ")
		b.WriteString("Cite sources by number, e.g. [1]. ")
		b.WriteString("If the sources do not fully cover the question, say explicitly which part is missing from the course material.\n")
	} else {
		fmt.Fprintf(&b, "No relevant course material was found. Begin your answer with exactly: %q\n", UngroundedDisclaimer)
		b.WriteString("Then answer from general knowledge, and finish by recommending that the student upload material covering this topic.\n")
	}

	switch length {
	case LengthSimple:
		b.WriteString("Keep the answer brief: a few sentences.\n")
	case LengthComprehensive:
		b.WriteString("Give a thorough, well-structured answer with examples.\n")
	default:
		b.WriteString("Match the depth of the answer to the complexity of the question.\n")
	}

	if sc.TeachingMode == TeachingModeMindmap {
		b.WriteString("Format the answer as a mindmap using mermaid syntax inside a ```mermaid code block.\n")
	}
	return b.String()
}

func userMessage(query string, sources []chunking.RetrievedChunk) string {
	if len(sources) == 0 {
		return "Question: " + query
	}

	var b strings.Builder
	b.WriteString("--- Course sources ---\n\n")
	for i, ch := range sources {
		fmt.Fprintf(&b, "[%d] [Source: %s] (relevance: %s)\n", i+1, sourceName(ch), RelevanceLabel(ch.Distance))
		b.WriteString(ch.Content)
		b.WriteString("\n\n")
	}
	b.WriteString("--- End sources ---\n\n")
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}

func sourceName(ch chunking.RetrievedChunk) string {
	if ch.Metadata.UnitName != "" {
		return ch.Metadata.UnitName
	}
	if ch.Metadata.Source != "" {
		return ch.Metadata.Source
	}
	return "course material"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Compose generates the whole answer in one call.
func (c *Composer) Compose(ctx context.Context, in ComposeInput) (Answer, error) {
	p := c.prepare(in)

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "composing answer",
		"grounded", p.grounded,
		"length", p.length,
		"chunks_used", p.used,
	)

	text, err := c.gen.Generate(ctx, p.user, p.system)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to generate answer: %w", err)
	}
	return p.answer(text), nil
}

// Stream returns the answer as a sequence of fragments. Nothing is generated
// until the sequence is ranged over. onComplete, if set, receives the full
// answer once after the last fragment; it is not called when the consumer
// stops early or generation fails. A failure is yielded as the final element.
func (c *Composer) Stream(ctx context.Context, in ComposeInput, onComplete func(Answer)) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		p := c.prepare(in)

		var text strings.Builder
		abandoned := false
		err := c.gen.GenerateStream(ctx, p.user, p.system, func(fragment string) error {
			text.WriteString(fragment)
			if !yield(fragment, nil) {
				abandoned = true
				return errStreamAbandoned
			}
			return nil
		})
		if abandoned {
			return
		}
		if err != nil {
			yield("", fmt.Errorf("failed to stream answer: %w", err))
			return
		}
		if onComplete != nil {
			onComplete(p.answer(text.String()))
		}
	}
}
