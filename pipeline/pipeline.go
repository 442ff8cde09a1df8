// Package pipeline orchestrates the ingestion path: extraction, OCR cleanup,
// chunking and indexing, with provenance metadata stamped on every chunk.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mantravadi/granthalaya/corpus"
)

// Extractor turns a document into plain text.
type Extractor interface {
	Extract(ctx context.Context, doc corpus.Document) (string, error)
}

// Indexer appends chunks to the vector index and reports how many made it in.
type Indexer interface {
	AddDocuments(ctx context.Context, chunks []corpus.Chunk) (int, error)
}

// Archiver persists the cleaned text of a record. Archive failures do not
// fail ingestion.
type Archiver interface {
	SaveRecord(ctx context.Context, meta corpus.Metadata, content string) error
}

// Receipt correlates an ingestion with its record.
type Receipt struct {
	RecordID   string `json:"record_id"`
	ChunkCount int    `json:"chunk_count"`
}

type Pipeline struct {
	log       *slog.Logger
	extractor Extractor
	cleaner   *Cleaner
	chunker   *Chunker
	index     Indexer
	archive   Archiver
}

// New wires the ingestion stages together. archive may be nil.
func New(log *slog.Logger, extractor Extractor, cleaner *Cleaner, chunker *Chunker, index Indexer, archive Archiver) *Pipeline {
	return &Pipeline{
		log:       log,
		extractor: extractor,
		cleaner:   cleaner,
		chunker:   chunker,
		index:     index,
		archive:   archive,
	}
}

// Ingest runs extract, clean, chunk and index in order, returning the record
// id and the number of chunks indexed. A document that produced no readable
// text completes with zero chunks rather than failing. On an indexing error
// the receipt still reports the chunks inserted before the failure; those
// remain in the index and can be removed by record id.
func (p *Pipeline) Ingest(ctx context.Context, doc corpus.Document, meta corpus.Metadata) (Receipt, error) {
	if meta.RecordID == "" {
		meta.RecordID = uuid.NewString()
	}

	text, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		return Receipt{}, err
	}

	res := p.cleaner.Clean(ctx, text)
	if res.Degraded {
		p.log.Warn("cleanup degraded, indexing raw text",
			"record_id", meta.RecordID, "error", res.Cause)
	}
	if res.Text == "" {
		p.log.Info("document produced no text", "record_id", meta.RecordID)
		return Receipt{RecordID: meta.RecordID}, nil
	}

	var chunks []corpus.Chunk
	for c := range p.chunker.Split(res.Text) {
		chunks = append(chunks, corpus.Chunk{Text: c, Meta: meta})
	}

	added, err := p.index.AddDocuments(ctx, chunks)
	if err != nil {
		p.log.Error("indexing failed",
			"record_id", meta.RecordID, "inserted", added, "of", len(chunks), "error", err)
		return Receipt{RecordID: meta.RecordID, ChunkCount: added}, err
	}

	if p.archive != nil {
		if err := p.archive.SaveRecord(ctx, meta, res.Text); err != nil {
			p.log.Warn("failed to archive record text", "record_id", meta.RecordID, "error", err)
		}
	}

	return Receipt{RecordID: meta.RecordID, ChunkCount: added}, nil
}
