package knowledge

import (
	"fmt"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

// DefaultSeparators are tried in order, from paragraph breaks down to single
// characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter breaks long text into overlapping chunks no longer than ChunkSize
// characters. Lengths are counted in runes.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string

	rc textsplitter.RecursiveCharacter
}

// NewSplitter returns a Splitter using DefaultSeparators.
func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", chunkOverlap, chunkSize)
	}
	return &Splitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   DefaultSeparators,
		rc: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(DefaultSeparators),
			textsplitter.WithLenFunc(utf8.RuneCountInString),
		),
	}, nil
}

// Split returns the chunks of text. Empty or whitespace-only chunks are dropped.
func (s *Splitter) Split(text string) ([]string, error) {
	chunks, err := s.rc.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}
	out := chunks[:0]
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out, nil
}
