package pipeline

import (
	"fmt"
	"iter"
	"unicode"
)

// Chunker splits cleaned text into a sliding window of bounded, overlapping
// segments. Cuts prefer a paragraph break, then a sentence end, then any
// whitespace inside the window; a mid-word hard cut happens only when the
// window contains no boundary at all.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}

	return &Chunker{size: size, overlap: overlap}, nil
}

// Split returns a lazy, restartable sequence of chunks covering text left to
// right. Each chunk after the first starts overlap characters before the end
// of the previous one, so no content falls between chunks. Empty text yields
// an empty sequence. Sizes count runes, not bytes.
func (c *Chunker) Split(text string) iter.Seq[string] {
	runes := []rune(text)

	return func(yield func(string) bool) {
		n := len(runes)
		pos := 0
		for pos < n {
			end := min(pos+c.size, n)
			if end < n {
				end = c.snap(runes, pos, end)
			}

			if !yield(string(runes[pos:end])) {
				return
			}
			if end >= n {
				return
			}

			pos = end - c.overlap
		}
	}
}

// snap moves the cut point back to the latest natural boundary inside the
// window. It never moves the cut to or before pos+overlap, which would stall
// the window.
func (c *Chunker) snap(runes []rune, pos, end int) int {
	low := pos + c.overlap + 1
	para, sentence, space := -1, -1, -1

	for i := end - 1; i >= low; i-- {
		r := runes[i]
		if para < 0 && r == '\n' && i > pos && runes[i-1] == '\n' {
			para = i + 1
		}
		if sentence < 0 && isSentenceEnd(r) {
			sentence = i + 1
		}
		if space < 0 && unicode.IsSpace(r) {
			space = i + 1
		}
	}

	switch {
	case para > 0:
		return para
	case sentence > 0:
		return sentence
	case space > 0:
		return space
	}

	return end
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '।', '॥': // danda and double danda
		return true
	}
	return false
}
