package answer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mantravadi/granthalaya/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results []corpus.SearchResult
	err     error
	lastK   int
}

func (s *fakeSearcher) Search(ctx context.Context, query string, k int) ([]corpus.SearchResult, error) {
	s.lastK = k
	return s.results, s.err
}

type fakeGenerator struct {
	response string
	err      error
	calls    int
	prompt   string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	g.prompt = prompt
	return g.response, g.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func result(text, recordID, title string, score float32) corpus.SearchResult {
	return corpus.SearchResult{
		Chunk: corpus.Chunk{Text: text, Meta: corpus.Metadata{RecordID: recordID, Title: title}},
		Score: score,
	}
}

func Test_Answer(t *testing.T) {
	searcher := &fakeSearcher{results: []corpus.SearchResult{
		result("the sky is blue", "r1", "Sky", 0.9),
		result("the sea is green", "r2", "Sea", 0.5),
	}}
	gen := &fakeGenerator{response: "The sky is blue."}
	a := New(discard(), searcher, gen, 3)

	ans, err := a.Answer(context.Background(), "what color is the sky?")
	require.NoError(t, err)

	assert.Equal(t, 3, searcher.lastK)
	assert.Equal(t, "The sky is blue.", ans.Text)
	// source order matches retrieval rank order
	require.Len(t, ans.Sources, 2)
	assert.Equal(t, "r1", ans.Sources[0].RecordID)
	assert.Equal(t, "r2", ans.Sources[1].RecordID)

	assert.Contains(t, gen.prompt, "the sky is blue")
	assert.Contains(t, gen.prompt, "what color is the sky?")
	assert.True(t, strings.Contains(gen.prompt, "I don't have enough information"))
}

func Test_Answer_EmptyIndex(t *testing.T) {
	gen := &fakeGenerator{}
	a := New(discard(), &fakeSearcher{}, gen, 3)

	ans, err := a.Answer(context.Background(), "anything")
	require.NoError(t, err)

	assert.Equal(t, InsufficientInfo, ans.Text)
	assert.Empty(t, ans.Sources)
	assert.Equal(t, 0, gen.calls)
}

func Test_Answer_SearchError(t *testing.T) {
	a := New(discard(), &fakeSearcher{err: errors.New("index down")}, &fakeGenerator{}, 3)

	_, err := a.Answer(context.Background(), "anything")
	assert.Error(t, err)
}

func Test_Answer_GenerationError(t *testing.T) {
	searcher := &fakeSearcher{results: []corpus.SearchResult{
		result("some context", "r1", "T", 0.8),
	}}
	a := New(discard(), searcher, &fakeGenerator{err: errors.New("model down")}, 3)

	ans, err := a.Answer(context.Background(), "anything")

	var gerr *GenerationError
	require.ErrorAs(t, err, &gerr)
	assert.Empty(t, ans.Text)
	// the retrieved sources are still known
	require.Len(t, ans.Sources, 1)
	assert.Equal(t, "r1", ans.Sources[0].RecordID)
}
