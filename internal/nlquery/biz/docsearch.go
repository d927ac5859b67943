package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/nlquery/internal/model"
	"github.com/kart-io/nlquery/internal/nlquery/store"
	"github.com/kart-io/nlquery/pkg/llm"
)

// DefaultTopK is the number of document chunks returned when the caller does
// not ask for a specific count.
const DefaultTopK = 5

// DocumentPath answers a query by semantic search over the ingested document
// chunks.
type DocumentPath struct {
	embedder llm.Embedder
	index    store.VectorIndex
	docs     *store.DocumentStore
}

// NewDocumentPath creates the document search path.
func NewDocumentPath(embedder llm.Embedder, index store.VectorIndex, docs *store.DocumentStore) *DocumentPath {
	return &DocumentPath{embedder: embedder, index: index, docs: docs}
}

// Run embeds the query and returns the topK nearest chunks. An empty store
// short-circuits to an empty result with a note rather than an error; real
// failures are reported inside the result so a hybrid response stays partial
// instead of failing whole.
func (p *DocumentPath) Run(ctx context.Context, query string, topK int) *model.DocumentResult {
	if topK <= 0 {
		topK = DefaultTopK
	}
	start := time.Now()

	if p.docs.Len() == 0 {
		return &model.DocumentResult{
			Results:        []model.DocumentMatch{},
			ElapsedSeconds: time.Since(start).Seconds(),
			Note:           "no indexed documents",
		}
	}

	vector, err := p.embedder.EmbedSingle(ctx, query)
	if err != nil {
		logger.Errorw("query embedding failed", "error", err.Error())
		return &model.DocumentResult{
			ElapsedSeconds: time.Since(start).Seconds(),
			Error:          fmt.Sprintf("embedding failed: %v", err),
		}
	}

	slots, dists, err := p.index.Search(ctx, vector, topK)
	if err != nil {
		logger.Errorw("vector search failed", "error", err.Error())
		return &model.DocumentResult{
			ElapsedSeconds: time.Since(start).Seconds(),
			Error:          fmt.Sprintf("vector search failed: %v", err),
		}
	}

	matches := make([]model.DocumentMatch, 0, len(slots))
	for i, slot := range slots {
		if slot == store.NoMatch {
			continue
		}
		rec, ok := p.docs.Lookup(slot)
		if !ok {
			continue
		}
		matches = append(matches, model.DocumentMatch{
			DocID:    rec.DocID,
			Filename: rec.Filename,
			Chunk:    rec.Chunk,
			Distance: dists[i],
		})
	}

	return &model.DocumentResult{
		Results:        matches,
		ElapsedSeconds: time.Since(start).Seconds(),
	}
}
