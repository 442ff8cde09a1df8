package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/mantravadi/granthalaya/corpus"
	"github.com/mantravadi/granthalaya/extract"
	"github.com/mantravadi/granthalaya/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOCR struct {
	fragments []string
}

func (o *fakeOCR) Recognize(ctx context.Context, img image.Image) ([]string, error) {
	return o.fragments, nil
}

type fakeEmbedder struct {
	mu     sync.Mutex
	calls  int
	failOn int
}

func (e *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	call := e.calls
	e.mu.Unlock()

	if e.failOn > 0 && call == e.failOn {
		return nil, errors.New("embedding provider failed")
	}

	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		vec := make([]float32, 16)
		for i, r := range t {
			vec[(i+int(r))%16] += 1
		}
		out = append(out, vec)
	}
	return out, nil
}

type fakeArchive struct {
	saved map[string]string
	err   error
}

func (a *fakeArchive) SaveRecord(ctx context.Context, meta corpus.Metadata, content string) error {
	if a.err != nil {
		return a.err
	}
	if a.saved == nil {
		a.saved = make(map[string]string)
	}
	a.saved[meta.RecordID] = content
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(t *testing.T, ocr extract.Recognizer, gen Generator, idx Indexer, archive Archiver) *Pipeline {
	t.Helper()
	chunker, err := NewChunker(1000, 100)
	require.NoError(t, err)

	return New(discard(), extract.NewExtractor(ocr), NewCleaner(gen), chunker, idx, archive)
}

func Test_Ingest_PlainText(t *testing.T) {
	emb := &fakeEmbedder{}
	idx := index.NewMemory(emb)
	gen := &stubGenerator{response: "ఆకాశం నీలం"}
	p := newTestPipeline(t, &fakeOCR{}, gen, idx, nil)

	receipt, err := p.Ingest(context.Background(),
		corpus.Document{Bytes: []byte("ఆకాశం నీలం"), Kind: corpus.KindText},
		corpus.Metadata{Title: "Sample"},
	)
	require.NoError(t, err)
	require.NotEmpty(t, receipt.RecordID)
	assert.Equal(t, 1, receipt.ChunkCount)

	res, err := idx.Search(context.Background(), "ఆకాశం నీలం గురించి చెప్పు", 3)
	require.NoError(t, err)
	require.NotEmpty(t, res)
	assert.Equal(t, receipt.RecordID, res[0].Chunk.Meta.RecordID)
	assert.Equal(t, "Sample", res[0].Chunk.Meta.Title)
}

func Test_Ingest_ImageWithFailedCleanup(t *testing.T) {
	emb := &fakeEmbedder{}
	idx := index.NewMemory(emb)
	gen := &stubGenerator{err: errors.New("cleanup unavailable")}
	p := newTestPipeline(t, &fakeOCR{fragments: []string{"raw ocr text"}}, gen, idx, nil)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))

	receipt, err := p.Ingest(context.Background(),
		corpus.Document{Bytes: buf.Bytes(), Kind: corpus.KindImage},
		corpus.Metadata{Title: "Scan"},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, receipt.ChunkCount)

	// fallback to the uncleaned text
	res, err := idx.Search(context.Background(), "raw ocr text", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "raw ocr text", res[0].Chunk.Text)
}

func Test_Ingest_ExtractionErrorAbortsIndexing(t *testing.T) {
	emb := &fakeEmbedder{}
	idx := index.NewMemory(emb)
	p := newTestPipeline(t, &fakeOCR{}, &stubGenerator{}, idx, nil)

	_, err := p.Ingest(context.Background(),
		corpus.Document{Bytes: []byte("x"), Kind: corpus.MediaKind("audio")},
		corpus.Metadata{Title: "Nope"},
	)

	var xerr *extract.ExtractionError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, 0, idx.Count())
	assert.Equal(t, 0, emb.calls)
}

func Test_Ingest_EmptyTextCompletesWithZeroChunks(t *testing.T) {
	emb := &fakeEmbedder{}
	idx := index.NewMemory(emb)
	gen := &stubGenerator{}
	// OCR finds nothing on the page
	p := newTestPipeline(t, &fakeOCR{fragments: nil}, gen, idx, nil)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))

	receipt, err := p.Ingest(context.Background(),
		corpus.Document{Bytes: buf.Bytes(), Kind: corpus.KindImage},
		corpus.Metadata{Title: "Blank"},
	)
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.RecordID)
	assert.Equal(t, 0, receipt.ChunkCount)
	assert.Equal(t, 0, gen.calls)
	assert.Equal(t, 0, idx.Count())
}

func Test_Ingest_EmbeddingFailureSurfacedWithPartialInsert(t *testing.T) {
	emb := &fakeEmbedder{failOn: 2}
	idx := index.NewMemory(emb)
	gen := &stubGenerator{err: errors.New("skip cleanup")}

	chunker, err := NewChunker(12, 2)
	require.NoError(t, err)
	p := New(discard(), extract.NewExtractor(&fakeOCR{}), NewCleaner(gen), chunker, idx, nil)

	// 30 characters with no natural boundary: three hard-cut chunks
	text := "012345678901234567890123456789"
	receipt, err := p.Ingest(context.Background(),
		corpus.Document{Bytes: []byte(text), Kind: corpus.KindText},
		corpus.Metadata{Title: "Partial"},
	)

	var eerr *index.EmbeddingError
	require.ErrorAs(t, err, &eerr)
	assert.Equal(t, 1, eerr.Inserted)
	assert.Equal(t, 1, receipt.ChunkCount)

	// the chunk embedded before the failure stays in the index
	assert.Equal(t, 1, idx.Count())
	res, err := idx.Search(context.Background(), "012345678901", 3)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, receipt.RecordID, res[0].Chunk.Meta.RecordID)
}

func Test_Ingest_ArchivesCleanedText(t *testing.T) {
	emb := &fakeEmbedder{}
	idx := index.NewMemory(emb)
	archive := &fakeArchive{}
	gen := &stubGenerator{response: "cleaned body"}
	p := newTestPipeline(t, &fakeOCR{}, gen, idx, archive)

	receipt, err := p.Ingest(context.Background(),
		corpus.Document{Bytes: []byte("cl3aned body"), Kind: corpus.KindText},
		corpus.Metadata{Title: "Archived"},
	)
	require.NoError(t, err)
	assert.Equal(t, "cleaned body", archive.saved[receipt.RecordID])
}

func Test_Ingest_ArchiveFailureDoesNotFailIngestion(t *testing.T) {
	emb := &fakeEmbedder{}
	idx := index.NewMemory(emb)
	archive := &fakeArchive{err: errors.New("disk full")}
	gen := &stubGenerator{response: "body"}
	p := newTestPipeline(t, &fakeOCR{}, gen, idx, archive)

	receipt, err := p.Ingest(context.Background(),
		corpus.Document{Bytes: []byte("body"), Kind: corpus.KindText},
		corpus.Metadata{Title: "T"},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, receipt.ChunkCount)
}

func Test_Ingest_KeepsCallerRecordID(t *testing.T) {
	emb := &fakeEmbedder{}
	idx := index.NewMemory(emb)
	gen := &stubGenerator{response: "body"}
	p := newTestPipeline(t, &fakeOCR{}, gen, idx, nil)

	receipt, err := p.Ingest(context.Background(),
		corpus.Document{Bytes: []byte("body"), Kind: corpus.KindText},
		corpus.Metadata{RecordID: "caller-id-1", Title: "T"},
	)
	require.NoError(t, err)
	assert.Equal(t, "caller-id-1", receipt.RecordID)
}
