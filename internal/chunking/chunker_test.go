package chunking

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sentencesOf builds n sentences of wordsEach words, numbering every word so
// order and duplication are visible.
func sentencesOf(n, wordsEach int) string {
	var b strings.Builder
	w := 0
	for i := 0; i < n; i++ {
		for j := 0; j < wordsEach; j++ {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "w%d", w)
			w++
		}
		b.WriteByte('.')
	}
	return b.String()
}

// stitch rebuilds the word sequence from chunks by dropping each chunk's
// carried-over prefix.
func stitch(chunks []Chunk, overlap int) []string {
	var out []string
	var prev []string
	for i, c := range chunks {
		words := strings.Fields(c.Content)
		if i > 0 {
			n := min(overlap, len(prev))
			words = words[n:]
		}
		out = append(out, words...)
		prev = strings.Fields(c.Content)
	}
	return out
}

func TestChunker_Empty(t *testing.T) {
	c := New(DefaultChunkSize, DefaultOverlap)
	assert.Empty(t, c.Chunk("", Metadata{}))
	assert.Empty(t, c.Chunk("   \n\t  ", Metadata{}))
}

func TestChunker_ShortText(t *testing.T) {
	c := New(DefaultChunkSize, DefaultOverlap)
	chunks := c.Chunk("Photosynthesis   converts light.\n\nPlants  use it!", Metadata{UnitID: 3, Source: "bio.pdf"})

	require.Len(t, chunks, 1)
	assert.Equal(t, "Photosynthesis converts light. Plants use it!", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Metadata.ChunkIndex)
	assert.Equal(t, int64(3), chunks[0].Metadata.UnitID)
	assert.Equal(t, "bio.pdf", chunks[0].Metadata.Source)
}

func TestChunker_DefaultScenario(t *testing.T) {
	// 250 sentences of 10 words = 2500 words.
	text := sentencesOf(250, 10)
	c := New(DefaultChunkSize, DefaultOverlap)

	chunks := c.Chunk(text, Metadata{})

	require.Len(t, chunks, 3)
	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1].Content)
		cur := strings.Fields(chunks[i].Content)
		assert.Equal(t, prev[len(prev)-DefaultOverlap:], cur[:DefaultOverlap], "chunk %d should start with the previous chunk's last 200 words", i)
	}
}

func TestChunker_SizingAndIndexes(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		overlap   int
		sentences int
		words     int
	}{
		{name: "small chunks", size: 20, overlap: 5, sentences: 40, words: 3},
		{name: "no overlap", size: 15, overlap: 0, sentences: 30, words: 4},
		{name: "uneven sentences", size: 50, overlap: 10, sentences: 33, words: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.size, tt.overlap)
			text := sentencesOf(tt.sentences, tt.words)
			chunks := c.Chunk(text, Metadata{})
			require.NotEmpty(t, chunks)

			for i, ch := range chunks {
				assert.Equal(t, i, ch.Metadata.ChunkIndex)
				assert.NotEmpty(t, ch.Content)
				if i < len(chunks)-1 {
					assert.LessOrEqual(t, len(strings.Fields(ch.Content)), tt.size)
				}
			}

			// Every input word appears exactly once, in order, once overlap is removed.
			assert.Equal(t, strings.Fields(strings.ReplaceAll(text, ".", "")), stripDots(stitch(chunks, tt.overlap)))
		})
	}
}

func TestChunker_OverlapSeedOverflow(t *testing.T) {
	c := New(20, 15)
	text := sentencesOf(6, 8)

	chunks := c.Chunk(text, Metadata{})

	counts := make([]int, len(chunks))
	for i, ch := range chunks {
		counts[i] = len(strings.Fields(ch.Content))
	}
	// 15 carried words plus one 8-word sentence: the seed wins over the size.
	assert.Equal(t, []int{16, 23, 23, 23, 23}, counts)

	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1].Content)
		seed := strings.Join(prev[len(prev)-15:], " ")
		assert.True(t, strings.HasPrefix(chunks[i].Content, seed), "chunk %d should start with the previous chunk's last 15 words", i)
		assert.Equal(t, 15+8, counts[i], "chunk %d should add exactly one sentence to the seed", i)
	}
	assert.Equal(t, strings.Fields(strings.ReplaceAll(text, ".", "")), stripDots(stitch(chunks, 15)))
}

func stripDots(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.TrimSuffix(w, ".")
	}
	return out
}

func TestChunker_OversizedSentence(t *testing.T) {
	c := New(10, 2)
	long := strings.TrimSuffix(sentencesOf(1, 25), ".") + "."
	text := "Intro sentence here. " + long + " Short end."

	chunks := c.Chunk(text, Metadata{})

	require.Len(t, chunks, 3)
	assert.Equal(t, "Intro sentence here.", chunks[0].Content)
	// The long sentence is never split, and carries the overlap seed.
	assert.Equal(t, 2+25, len(strings.Fields(chunks[1].Content)))
	assert.True(t, strings.HasPrefix(chunks[1].Content, "sentence here. w0"))
	assert.True(t, strings.HasSuffix(chunks[2].Content, "Short end."))
}

func TestChunker_Deterministic(t *testing.T) {
	c := New(30, 8)
	text := sentencesOf(50, 6)
	meta := Metadata{FileID: 9, UnitID: 2, HierarchyLevel: IntPtr(3)}

	assert.Equal(t, c.Chunk(text, meta), c.Chunk(text, meta))
}

func TestNew_Clamps(t *testing.T) {
	assert.Equal(t, DefaultChunkSize, New(0, 10).Size())
	assert.Equal(t, 0, New(10, -1).Overlap())
	assert.Equal(t, 9, New(10, 10).Overlap())
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "no terminator", in: "just words here", want: []string{"just words here"}},
		{name: "mixed punctuation", in: "One. Two! Three? Four", want: []string{"One.", "Two!", "Three?", "Four"}},
		{name: "decimal not split", in: "Pi is 3.14 today. Yes.", want: []string{"Pi is 3.14 today.", "Yes."}},
		{name: "whitespace collapsed", in: "A.\n\n  B.", want: []string{"A.", "B."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.in))
		})
	}
}

func TestMetadataFieldsRoundTrip(t *testing.T) {
	m := Metadata{FileID: 4, Source: "a.pdf", UnitID: 7, UnitName: "Cells", ChunkIndex: 2, HierarchyLevel: IntPtr(1)}
	assert.Equal(t, m, MetadataFromFields(m.Fields()))

	noLevel := Metadata{FileID: 1}
	_, ok := noLevel.Fields()[FieldHierarchyLevel]
	assert.False(t, ok)
}

func TestChunkID(t *testing.T) {
	assert.Equal(t, "12/34/5", ChunkID(12, 34, 5))
}
