package index

import (
	"context"
	"fmt"
	"sync"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/mantravadi/granthalaya/corpus"
)

const (
	attrRecordID = "record_id"
	attrTitle    = "title"
	attrFilename = "filename"
)

// ChromaConfig configures the Chroma-backed index.
type ChromaConfig struct {
	BaseURL    string
	Collection string
	Embedder   Embedder
	// Reset drops the collection before first use.
	Reset bool
}

// Chroma is a VectorIndex backed by a Chroma collection. The collection is
// created with the cosine space so the metric matches the in-memory backend;
// reported scores are 1 - distance.
type Chroma struct {
	cfg    ChromaConfig
	client chroma.Client

	mu  sync.Mutex
	col chroma.Collection
}

func NewChroma(ctx context.Context, cfg ChromaConfig) (*Chroma, error) {
	client, err := chroma.NewHTTPClient(chroma.WithBaseURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("creating chroma client: %w", err)
	}

	c := &Chroma{cfg: cfg, client: client}
	if cfg.Reset {
		// Ignore failure: the collection may not exist yet.
		_ = client.DeleteCollection(ctx, cfg.Collection)
	}

	return c, nil
}

func (c *Chroma) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.col != nil {
		return nil
	}

	col, err := c.client.GetOrCreateCollection(ctx, c.cfg.Collection,
		chroma.WithEmbeddingFunctionCreate(&embedderFunc{embedder: c.cfg.Embedder}),
		chroma.WithHNSWSpaceCreate(embeddings.COSINE),
	)
	if err != nil {
		return fmt.Errorf("creating chroma collection %s: %w", c.cfg.Collection, err)
	}

	c.col = col
	return nil
}

func (c *Chroma) collection() chroma.Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.col
}

func (c *Chroma) AddDocuments(ctx context.Context, chunks []corpus.Chunk) (int, error) {
	if err := c.Initialize(ctx); err != nil {
		return 0, &EmbeddingError{Err: err}
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, 0, len(chunks))
	metadatas := make([]chroma.DocumentMetadata, 0, len(chunks))
	for _, ch := range chunks {
		texts = append(texts, ch.Text)
		metadatas = append(metadatas, chroma.NewDocumentMetadata(
			chroma.NewStringAttribute(attrRecordID, ch.Meta.RecordID),
			chroma.NewStringAttribute(attrTitle, ch.Meta.Title),
			chroma.NewStringAttribute(attrFilename, ch.Meta.Filename),
		))
	}

	err := c.collection().Add(ctx,
		chroma.WithTexts(texts...),
		chroma.WithIDGenerator(chroma.NewULIDGenerator()),
		chroma.WithMetadatas(metadatas...),
	)
	if err != nil {
		// Chroma adds the batch atomically, so nothing was inserted.
		return 0, &EmbeddingError{Err: err}
	}

	return len(chunks), nil
}

func (c *Chroma) Search(ctx context.Context, query string, k int) ([]corpus.SearchResult, error) {
	col := c.collection()
	if col == nil || k <= 0 {
		return nil, nil
	}

	r, err := col.Query(ctx,
		chroma.WithQueryTexts(query),
		chroma.WithNResults(k),
	)
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}

	docGroups := r.GetDocumentsGroups()
	if len(docGroups) == 0 {
		return nil, nil
	}

	docs := docGroups[0]
	metadatas := r.GetMetadatasGroups()[0]
	distances := r.GetDistancesGroups()[0]

	results := make([]corpus.SearchResult, 0, len(docs))
	for i := range docs {
		recordID, _ := metadatas[i].GetString(attrRecordID)
		title, _ := metadatas[i].GetString(attrTitle)
		filename, _ := metadatas[i].GetString(attrFilename)

		results = append(results, corpus.SearchResult{
			Chunk: corpus.Chunk{
				Text: docs[i].ContentString(),
				Meta: corpus.Metadata{
					RecordID: recordID,
					Title:    title,
					Filename: filename,
				},
			},
			Score: 1 - float32(distances[i]),
		})
	}

	return results, nil
}

func (c *Chroma) RemoveRecord(ctx context.Context, recordID string) (int, error) {
	col := c.collection()
	if col == nil {
		return 0, nil
	}

	err := col.Delete(ctx, chroma.WithWhereDelete(chroma.EqString(attrRecordID, recordID)))
	if err != nil {
		return 0, fmt.Errorf("removing record %s: %w", recordID, err)
	}

	// Chroma's delete API does not report a count.
	return 0, nil
}

// embedderFunc adapts the core Embedder capability to Chroma's embedding
// function interface so insertion and search use the same provider.
type embedderFunc struct {
	embedder Embedder
}

func (f *embedderFunc) EmbedDocuments(ctx context.Context, texts []string) ([]embeddings.Embedding, error) {
	vecs, err := f.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	out := make([]embeddings.Embedding, 0, len(vecs))
	for _, v := range vecs {
		out = append(out, embeddings.NewEmbeddingFromFloat32(v))
	}
	return out, nil
}

func (f *embedderFunc) EmbedQuery(ctx context.Context, text string) (embeddings.Embedding, error) {
	vecs, err := f.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedding provider returned no vector")
	}

	return embeddings.NewEmbeddingFromFloat32(vecs[0]), nil
}
