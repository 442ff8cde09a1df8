// Package corpus holds the data model shared by the ingestion and retrieval
// sides: submitted documents, their provenance metadata, and the chunks the
// index stores and returns.
package corpus

import "errors"

// MediaKind declares how a document's bytes should be interpreted.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindPDF   MediaKind = "pdf"
	KindText  MediaKind = "text"
)

// ParseMediaKind maps a wire value onto a MediaKind.
func ParseMediaKind(s string) (MediaKind, error) {
	switch MediaKind(s) {
	case KindImage, KindPDF, KindText:
		return MediaKind(s), nil
	}
	return "", errors.New("unknown media kind: " + s)
}

// Document is a submitted unit of content. Immutable once extraction
// completes; re-ingestion creates a new record.
type Document struct {
	Bytes []byte
	Kind  MediaKind
}

// Metadata is the caller-supplied provenance attached to every chunk
// produced from a document.
type Metadata struct {
	RecordID      string
	Title         string
	Filename      string
	CategoryID    string
	Language      string
	ReleaseRights string
}

// Chunk is the atomic retrievable unit: a bounded segment of cleaned text
// plus the provenance of the record it came from.
type Chunk struct {
	Text string
	Meta Metadata
}

// SearchResult is one ranked hit from the vector index.
type SearchResult struct {
	Chunk Chunk
	Score float32
}

// SourceRef identifies the record a retrieved chunk came from.
type SourceRef struct {
	RecordID string `json:"record_id"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
}

// Source returns the provenance reference for a search result.
func (r SearchResult) Source() SourceRef {
	return SourceRef{
		RecordID: r.Chunk.Meta.RecordID,
		Title:    r.Chunk.Meta.Title,
		Filename: r.Chunk.Meta.Filename,
	}
}
