// Package answer synthesizes natural-language answers over retrieved chunks.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mantravadi/granthalaya/corpus"
)

// InsufficientInfo is the fixed response when retrieval finds nothing.
const InsufficientInfo = "I'm sorry, I couldn't find any relevant information to answer your question."

const promptTemplate = `You are a helpful assistant. Answer the question as detailed as possible based on the provided context.
If the answer is not in the context, say "I don't have enough information to answer that."
Context: %s
Question: %s
Answer:`

// Searcher retrieves the most similar chunks for a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]corpus.SearchResult, error)
}

// Generator is the generative-text capability used for answer synthesis.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenerationError reports a failed synthesis call. The retrieved sources are
// still returned alongside it.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("answer synthesis failed: %s", e.Err) }

func (e *GenerationError) Unwrap() error { return e.Err }

// Answer is the response to a query: generated text plus the provenance of
// the chunks it was conditioned on, most relevant first.
type Answer struct {
	Text    string             `json:"answer"`
	Sources []corpus.SourceRef `json:"sources"`
}

type Answerer struct {
	log   *slog.Logger
	index Searcher
	gen   Generator
	topK  int
}

func New(log *slog.Logger, index Searcher, gen Generator, topK int) *Answerer {
	if topK <= 0 {
		topK = 3
	}
	return &Answerer{log: log, index: index, gen: gen, topK: topK}
}

// Answer retrieves the top chunks for query and conditions one generation
// call on them. No retrieved chunks is a defined terminal case, not an
// error. When generation fails the sources are still returned with the
// GenerationError.
func (a *Answerer) Answer(ctx context.Context, query string) (Answer, error) {
	results, err := a.index.Search(ctx, query, a.topK)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieving context: %w", err)
	}
	if len(results) == 0 {
		a.log.Info("no relevant chunks for query")
		return Answer{Text: InsufficientInfo, Sources: []corpus.SourceRef{}}, nil
	}

	contexts := make([]string, 0, len(results))
	sources := make([]corpus.SourceRef, 0, len(results))
	for _, r := range results {
		contexts = append(contexts, r.Chunk.Text)
		sources = append(sources, r.Source())
	}

	prompt := fmt.Sprintf(promptTemplate, strings.Join(contexts, "\n\n"), query)
	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return Answer{Sources: sources}, &GenerationError{Err: err}
	}

	return Answer{Text: text, Sources: sources}, nil
}
