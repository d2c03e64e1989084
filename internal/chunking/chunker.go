// Package chunking splits extracted document text into overlapping,
// sentence-aware segments sized for embedding.
package chunking

import (
	"strings"
)

const (
	DefaultChunkSize = 1000 // words
	DefaultOverlap   = 200  // words
)

// Chunker splits text into chunks of at most Size words, carrying the last
// Overlap words of each closed chunk into the next one.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. Non-positive sizes fall back to the defaults and an
// overlap that is negative or not smaller than size is clamped.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Size returns the nominal chunk size in words.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of words carried between consecutive chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text into chunks. Each chunk carries meta with its ChunkIndex set.
// A single sentence longer than the chunk size is emitted whole. The overlap
// seed is never trimmed, so when seed plus the next sentence exceeds the size
// that chunk holds the seed and exactly one new sentence.
func (c *Chunker) Chunk(text string, meta Metadata) []Chunk {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var (
		chunks  []Chunk
		current []string
		fresh   int // words in current that were not carried over
	)

	emit := func() {
		m := meta
		m.ChunkIndex = len(chunks)
		chunks = append(chunks, Chunk{Content: strings.Join(current, " "), Metadata: m})
	}

	for _, sentence := range sentences {
		words := strings.Fields(sentence)
		if fresh > 0 && len(current)+len(words) > c.size {
			emit()
			current = tail(current, c.overlap)
			fresh = 0
		}
		current = append(current, words...)
		fresh += len(words)
	}
	if fresh > 0 {
		emit()
	}

	return chunks
}

// SplitSentences collapses whitespace runs and splits after '.', '!' or '?'
// when followed by whitespace.
func SplitSentences(text string) []string {
	cleaned := strings.Join(strings.Fields(text), " ")
	if cleaned == "" {
		return nil
	}

	var sentences []string
	start := 0
	for i := 0; i < len(cleaned)-1; i++ {
		switch cleaned[i] {
		case '.', '!', '?':
			if cleaned[i+1] == ' ' {
				sentences = append(sentences, cleaned[start:i+1])
				start = i + 2
			}
		}
	}
	if start < len(cleaned) {
		sentences = append(sentences, cleaned[start:])
	}
	return sentences
}

// tail returns a copy of the last n words.
func tail(words []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if n > len(words) {
		n = len(words)
	}
	out := make([]string, n)
	copy(out, words[len(words)-n:])
	return out
}
