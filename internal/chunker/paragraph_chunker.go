package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

// ParagraphChunker splits text on blank-line paragraph boundaries and slices
// oversized paragraphs into fixed overlapping windows.
type ParagraphChunker struct {
	maxSize  int
	overlap  int
	splitter *regexp.Regexp
}

// NewParagraphChunker creates a chunker producing chunks of at most maxSize
// runes. Consecutive windows of an oversized paragraph share overlap runes.
// An overlap at or above maxSize would stall the window and is rejected.
func NewParagraphChunker(maxSize, overlap int) (*ParagraphChunker, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("max chunk size must be positive, got %d", maxSize)
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxSize {
		return nil, fmt.Errorf("overlap %d must be smaller than max chunk size %d", overlap, maxSize)
	}
	return &ParagraphChunker{
		maxSize:  maxSize,
		overlap:  overlap,
		splitter: regexp.MustCompile(`\n\s*\n`),
	}, nil
}

// Chunk splits text into ordered chunks. A paragraph at or under the size
// limit becomes one chunk verbatim; larger paragraphs are windowed. Chunks
// that are empty after trimming are dropped. Output is deterministic for
// identical input and parameters.
func (c *ParagraphChunker) Chunk(text string) []string {
	var chunks []string
	for _, paragraph := range c.splitter.Split(text, -1) {
		if strings.TrimSpace(paragraph) == "" {
			continue
		}
		runes := []rune(paragraph)
		if len(runes) <= c.maxSize {
			chunks = append(chunks, paragraph)
			continue
		}
		step := c.maxSize - c.overlap
		for start := 0; start < len(runes); start += step {
			end := start + c.maxSize
			if end > len(runes) {
				end = len(runes)
			}
			if piece := string(runes[start:end]); strings.TrimSpace(piece) != "" {
				chunks = append(chunks, piece)
			}
			if end == len(runes) {
				break
			}
		}
	}
	return chunks
}
