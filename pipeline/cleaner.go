package pipeline

import (
	"context"
	"errors"
	"strings"
)

// Generator is the generative-text capability used for OCR cleanup.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const cleanupPrompt = "Correct the following OCR text. Fix recognition errors, broken words and " +
	"stray characters without changing the meaning. Return only the corrected text.\n\nRAW TEXT:\n---\n"

// CleanResult carries the text to index and whether cleanup degraded to the
// raw input. Degradation is not an error: the pipeline proceeds with the
// original text and only logs the cause.
type CleanResult struct {
	Text     string
	Degraded bool
	Cause    error
}

// Cleaner runs extracted text through the language model to correct OCR
// noise.
type Cleaner struct {
	gen Generator
}

func NewCleaner(gen Generator) *Cleaner {
	return &Cleaner{gen: gen}
}

// Clean returns the corrected text, or the input verbatim when the model
// fails or returns nothing. Empty input is returned as-is without a model
// call.
func (c *Cleaner) Clean(ctx context.Context, text string) CleanResult {
	if text == "" {
		return CleanResult{}
	}

	cleaned, err := c.gen.Generate(ctx, cleanupPrompt+text)
	if err != nil {
		return CleanResult{Text: text, Degraded: true, Cause: err}
	}
	if strings.TrimSpace(cleaned) == "" {
		return CleanResult{Text: text, Degraded: true, Cause: errors.New("model returned empty text")}
	}

	return CleanResult{Text: cleaned}
}
