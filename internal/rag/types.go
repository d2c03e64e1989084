package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_rag.go -package=mocks coursetutor/internal/rag Generator,Index

import (
	"context"

	"coursetutor/internal/chunking"
	"coursetutor/internal/vectorstore"
)

// Generator produces text from a prompt and an optional system instruction.
// llm.Client and llm.GeminiClient implement it.
type Generator interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
	// GenerateStream delivers fragments in arrival order. An error returned by
	// callback stops generation and is returned wrapped.
	GenerateStream(ctx context.Context, prompt, system string, callback func(chunk string) error) error
}

// Index runs similarity queries against a course's collection.
// vectorstore.CourseIndex implements it.
type Index interface {
	Query(ctx context.Context, courseID int64, text string, topK int, filter vectorstore.Filter) ([]chunking.RetrievedChunk, error)
}

// SessionContext carries situational hints for one chat session.
// The chat service owns and mutates it; retrieval and composition only read it.
type SessionContext struct {
	CurrentUnitID   int64  `json:"current_unit_id,omitempty"`
	CurrentUnitName string `json:"current_unit_name,omitempty"`
	TeachingMode    string `json:"teaching_mode,omitempty"`
	LastTopic       string `json:"last_topic,omitempty"`
}

// TeachingModeMindmap asks the composer for a mermaid mindmap.
const TeachingModeMindmap = "mindmap"

// LengthClass selects how long an answer should be and how much context it gets.
type LengthClass string

// Length classes.
const (
	LengthSimple        LengthClass = "simple"
	LengthDefault       LengthClass = "default"
	LengthComprehensive LengthClass = "comprehensive"
)

// ComposeInput is everything the composer needs to answer one question.
type ComposeInput struct {
	Query      string
	Chunks     []chunking.RetrievedChunk // Closest first
	Session    SessionContext
	CourseName string
}

// Answer is a composed response.
type Answer struct {
	Text       string
	Grounded   bool
	ChunksUsed int // Chunks placed in the prompt as numbered sources
	Length     LengthClass
}
