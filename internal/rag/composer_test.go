package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"coursetutor/internal/chunking"
	"coursetutor/internal/rag/mocks"
)

func TestRelevanceLabel(t *testing.T) {
	tests := []struct {
		distance float64
		want     string
	}{
		{0, "HIGH"},
		{0.49, "HIGH"},
		{0.5, "MEDIUM"},
		{0.99, "MEDIUM"},
		{1.0, "LOW"},
		{1.7, "LOW"},
	}
	for _, tt := range tests {
		if got := RelevanceLabel(tt.distance); got != tt.want {
			t.Errorf("RelevanceLabel(%v) = %q, want %q", tt.distance, got, tt.want)
		}
	}
}

func TestIsGrounded_Monotonic(t *testing.T) {
	const threshold = 1.2

	assert.False(t, IsGrounded(nil, threshold))
	assert.False(t, IsGrounded(chunksAt(1.2, 1.6), threshold), "threshold is exclusive")
	assert.True(t, IsGrounded(chunksAt(1.6, 1.19), threshold), "closest chunk decides, wherever it ranks")

	// Moving the closest chunk nearer never turns a grounded answer ungrounded.
	prev := false
	for step := 40; step >= 0; step-- {
		best := float64(step) / 10
		g := IsGrounded(chunksAt(best, 2.5, 3.1), threshold)
		if prev && !g {
			t.Fatalf("grounding flipped back to false at min distance %.1f", best)
		}
		assert.Equal(t, best < threshold, g, "min distance %.1f", best)
		prev = g
	}
	assert.True(t, prev)
}

func TestComposer_Prepare(t *testing.T) {
	many := func(n int) []chunking.RetrievedChunk {
		d := make([]float64, n)
		for i := range d {
			d[i] = 0.1 + float64(i)*0.06
		}
		return chunksAt(d...)
	}

	tests := []struct {
		name         string
		in           ComposeInput
		wantGrounded bool
		wantUsed     int
		wantLength   LengthClass
		systemHas    []string
		userHas      []string
	}{
		{
			name:         "no chunks gives disclaimer",
			in:           ComposeInput{Query: "What is osmosis?", CourseName: "Biology"},
			wantGrounded: false,
			wantUsed:     0,
			wantLength:   LengthSimple,
			systemHas:    []string{UngroundedDisclaimer, "upload material", "course: Biology"},
		},
		{
			name:         "weak chunks are not cited",
			in:           ComposeInput{Query: "What is osmosis?", Chunks: chunksAt(1.3, 1.5)},
			wantGrounded: false,
			wantUsed:     0,
			wantLength:   LengthSimple,
			systemHas:    []string{UngroundedDisclaimer},
		},
		{
			name:         "simple query takes three sources",
			in:           ComposeInput{Query: "What is osmosis?", Chunks: many(20)},
			wantGrounded: true,
			wantUsed:     3,
			wantLength:   LengthSimple,
			systemHas:    []string{"ONLY the numbered course sources", "brief"},
			userHas:      []string{"[1] [Source: Cells] (relevance: HIGH)", "[3] ", "Question: What is osmosis?"},
		},
		{
			name:         "analytical query takes eight",
			in:           ComposeInput{Query: "Explain osmosis", Chunks: many(20)},
			wantGrounded: true,
			wantUsed:     8,
			wantLength:   LengthDefault,
			userHas:      []string{"[8] [Source: Cells] (relevance: MEDIUM)"},
		},
		{
			name:         "comprehensive takes twelve",
			in:           ComposeInput{Query: "Tell me everything about osmosis", Chunks: many(20)},
			wantGrounded: true,
			wantUsed:     12,
			wantLength:   LengthComprehensive,
			systemHas:    []string{"examples"},
			userHas:      []string{"[12] "},
		},
		{
			name: "session context and mindmap",
			in: ComposeInput{
				Query:   "Map out osmosis",
				Chunks:  chunksAt(0.2),
				Session: SessionContext{CurrentUnitName: "Membranes", TeachingMode: TeachingModeMindmap, LastTopic: "diffusion"},
			},
			wantGrounded: true,
			wantUsed:     1,
			wantLength:   LengthSimple,
			systemHas:    []string{"Current unit: Membranes", "Teaching mode: mindmap", "Previous topic: diffusion", "mermaid"},
		},
	}

	c := NewComposer(nil, 0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := c.prepare(tt.in)
			assert.Equal(t, tt.wantGrounded, p.grounded)
			assert.Equal(t, tt.wantUsed, p.used)
			assert.Equal(t, tt.wantLength, p.length)
			for _, s := range tt.systemHas {
				assert.Contains(t, p.system, s)
			}
			for _, s := range tt.userHas {
				assert.Contains(t, p.user, s)
			}
			if !tt.wantGrounded {
				assert.NotContains(t, p.user, "[Source:")
			}
		})
	}
}

func TestComposer_Compose(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	c := NewComposer(gen, 0)
	assert.Equal(t, DefaultGroundingThreshold, c.Threshold())

	gen.EXPECT().
		Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, prompt, system string) (string, error) {
			assert.Contains(t, prompt, "[Source: Cells]")
			assert.Contains(t, system, "expert tutor")
			return "Osmosis is diffusion of water [1].", nil
		})

	ans, err := c.Compose(context.Background(), ComposeInput{Query: "What is osmosis?", Chunks: chunksAt(0.3, 0.8)})
	require.NoError(t, err)
	assert.Equal(t, Answer{Text: "Osmosis is diffusion of water [1].", Grounded: true, ChunksUsed: 2, Length: LengthSimple}, ans)

	genErr := errors.New("boom")
	gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return("", genErr)
	_, err = c.Compose(context.Background(), ComposeInput{Query: "x"})
	assert.ErrorIs(t, err, genErr)
}

// streamFragments makes a GenerateStream stub that feeds fragments to the callback like the llm clients do.
func streamFragments(fragments []string, final error) func(context.Context, string, string, func(string) error) error {
	return func(_ context.Context, _, _ string, cb func(string) error) error {
		for _, f := range fragments {
			if err := cb(f); err != nil {
				return fmt.Errorf("callback error: %w", err)
			}
		}
		return final
	}
}

func TestComposer_Stream(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	c := NewComposer(gen, 0)
	in := ComposeInput{Query: "What is osmosis?", Chunks: chunksAt(0.3)}

	t.Run("natural completion", func(t *testing.T) {
		gen.EXPECT().GenerateStream(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(streamFragments([]string{"Water ", "moves ", "across."}, nil))

		var calls int
		var final Answer
		var got []string
		for frag, err := range c.Stream(context.Background(), in, func(a Answer) { calls++; final = a }) {
			require.NoError(t, err)
			got = append(got, frag)
		}
		assert.Equal(t, []string{"Water ", "moves ", "across."}, got)
		assert.Equal(t, 1, calls)
		assert.Equal(t, Answer{Text: "Water moves across.", Grounded: true, ChunksUsed: 1, Length: LengthSimple}, final)
	})

	t.Run("consumer stops early", func(t *testing.T) {
		var producerErr error
		gen.EXPECT().GenerateStream(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, p, s string, cb func(string) error) error {
				producerErr = streamFragments([]string{"a", "b", "c"}, nil)(ctx, p, s, cb)
				return producerErr
			})

		called := false
		var got []string
		for frag := range c.Stream(context.Background(), in, func(Answer) { called = true }) {
			got = append(got, frag)
			break
		}
		assert.Equal(t, []string{"a"}, got)
		assert.False(t, called)
		assert.ErrorIs(t, producerErr, errStreamAbandoned)
	})

	t.Run("generation failure", func(t *testing.T) {
		genErr := errors.New("connection reset")
		gen.EXPECT().GenerateStream(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(streamFragments([]string{"partial"}, genErr))

		called := false
		var errs []error
		var text strings.Builder
		for frag, err := range c.Stream(context.Background(), in, func(Answer) { called = true }) {
			if err != nil {
				errs = append(errs, err)
				continue
			}
			text.WriteString(frag)
		}
		assert.Equal(t, "partial", text.String())
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], genErr)
		assert.False(t, called)
	})

	t.Run("lazy until ranged", func(t *testing.T) {
		seq := c.Stream(context.Background(), in, nil)
		assert.NotNil(t, seq)
	})
}
