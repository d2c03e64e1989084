package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"coursetutor/internal/chunking"
	"coursetutor/internal/rag/mocks"
	"coursetutor/internal/vectorstore"
)

func chunksAt(distances ...float64) []chunking.RetrievedChunk {
	out := make([]chunking.RetrievedChunk, len(distances))
	for i, d := range distances {
		out[i] = chunking.RetrievedChunk{
			Chunk: chunking.Chunk{
				Content:  "content",
				Metadata: chunking.Metadata{UnitName: "Cells", ChunkIndex: i},
			},
			ID:       chunking.ChunkID(1, 1, i),
			Distance: d,
		}
	}
	return out
}

func TestRetriever_Semantic(t *testing.T) {
	ctrl := gomock.NewController(t)
	index := mocks.NewMockIndex(ctrl)
	want := chunksAt(0.2, 0.4)

	index.EXPECT().Query(gomock.Any(), int64(1), "what is a cell", DefaultTopK, gomock.Nil()).Return(want, nil)

	r := NewRetriever(index, nil, PolicySemantic, 0)
	got, err := r.Retrieve(context.Background(), 1, "what is a cell", SessionContext{CurrentUnitID: 9})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRetriever_Intent(t *testing.T) {
	levels := func(l ...any) vectorstore.In {
		return vectorstore.In{Field: chunking.FieldHierarchyLevel, Values: l}
	}

	tests := []struct {
		name       string
		classified string
		classErr   error
		session    SessionContext
		wantTopK   int
		wantFilter vectorstore.Filter
	}{
		{
			name:       "mindmap in current unit",
			classified: `{"intent":"mindmap","target_units":[],"detail_level":"high"}`,
			session:    SessionContext{CurrentUnitID: 5},
			wantTopK:   15,
			wantFilter: vectorstore.And{levels(2, 3), vectorstore.Eq{Field: chunking.FieldUnitID, Value: int64(5)}},
		},
		{
			name:       "clarify without unit",
			classified: `{"intent":"clarify"}`,
			wantTopK:   5,
			wantFilter: levels(3, 4),
		},
		{
			name:       "malformed falls back to default",
			classified: "I think the student wants a quiz",
			wantTopK:   10,
			wantFilter: levels(3, 4),
		},
		{
			name:       "generation failure falls back to default",
			classErr:   errors.New("rate limited"),
			wantTopK:   10,
			wantFilter: levels(3, 4),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			gen := mocks.NewMockGenerator(ctrl)
			index := mocks.NewMockIndex(ctrl)
			want := chunksAt(0.3)

			gen.EXPECT().Generate(gomock.Any(), gomock.Any(), "").Return(tt.classified, tt.classErr)
			index.EXPECT().Query(gomock.Any(), int64(2), "q", tt.wantTopK, tt.wantFilter).Return(want, nil)

			r := NewRetriever(index, NewIntentClassifier(gen), PolicyIntent, 0)
			got, err := r.Retrieve(context.Background(), 2, "q", tt.session)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestRetriever_IntentFallsBackToUnfiltered(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockGenerator(ctrl)
	index := mocks.NewMockIndex(ctrl)
	want := chunksAt(0.6)

	gen.EXPECT().Generate(gomock.Any(), gomock.Any(), "").Return(`{"intent":"quiz"}`, nil)
	gomock.InOrder(
		index.EXPECT().Query(gomock.Any(), int64(1), "q", 10, gomock.Not(gomock.Nil())).Return(nil, nil),
		index.EXPECT().Query(gomock.Any(), int64(1), "q", 10, gomock.Nil()).Return(want, nil),
	)

	r := NewRetriever(index, NewIntentClassifier(gen), PolicyIntent, 0)
	got, err := r.Retrieve(context.Background(), 1, "q", SessionContext{})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRetriever_IndexError(t *testing.T) {
	ctrl := gomock.NewController(t)
	index := mocks.NewMockIndex(ctrl)
	index.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, vectorstore.ErrIndexUnavailable)

	r := NewRetriever(index, nil, PolicyIntent, 0)
	_, err := r.Retrieve(context.Background(), 1, "q", SessionContext{})
	assert.ErrorIs(t, err, vectorstore.ErrIndexUnavailable)
}
