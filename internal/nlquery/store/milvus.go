package store

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
)

// MilvusConfig holds the Milvus-backed index configuration.
type MilvusConfig struct {
	Address    string
	Username   string
	Password   string
	Database   string
	Collection string
	Dimension  int
}

// MilvusIndex is a VectorIndex backed by a Milvus collection. Embedding slots
// are stored as the explicit int64 primary key so search results join back to
// the document store without a secondary lookup.
type MilvusIndex struct {
	client *milvusclient.Client
	cfg    *MilvusConfig

	// mu serializes Add calls so slot assignment stays consecutive.
	mu sync.Mutex
}

// NewMilvusIndex connects to Milvus and ensures the collection exists.
func NewMilvusIndex(ctx context.Context, cfg *MilvusConfig) (*MilvusIndex, error) {
	if cfg == nil {
		return nil, fmt.Errorf("milvus config is nil")
	}

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	idx := &MilvusIndex{client: c, cfg: cfg}
	if err := idx.ensureCollection(ctx); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	return idx, nil
}

func (m *MilvusIndex) ensureCollection(ctx context.Context) error {
	exists, err := m.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(m.cfg.Collection))
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	schema := entity.NewSchema().
		WithName(m.cfg.Collection).
		WithDescription("document chunk embeddings keyed by slot")

	schema.WithField(
		entity.NewField().
			WithName("slot").
			WithDataType(entity.FieldTypeInt64).
			WithIsPrimaryKey(true),
	)
	schema.WithField(
		entity.NewField().
			WithName("embedding").
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(m.cfg.Dimension)),
	)

	if err := m.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(m.cfg.Collection, schema)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx := index.NewIvfFlatIndex(entity.L2, 128)
	createTask, err := m.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(m.cfg.Collection, "embedding", idx))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := createTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for index creation: %w", err)
	}

	loadTask, err := m.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(m.cfg.Collection))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}
	return nil
}

// Add inserts vectors with consecutive slot IDs and returns the first slot.
func (m *MilvusIndex) Add(ctx context.Context, vectors [][]float32) (int64, error) {
	if len(vectors) == 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	first, err := m.Count(ctx)
	if err != nil {
		return 0, err
	}

	slots := make([]int64, len(vectors))
	for i := range vectors {
		slots[i] = first + int64(i)
	}

	cols := []column.Column{
		column.NewColumnInt64("slot", slots),
		column.NewColumnFloatVector("embedding", m.cfg.Dimension, vectors),
	}
	if _, err := m.client.Insert(ctx, milvusclient.NewColumnBasedInsertOption(m.cfg.Collection, cols...)); err != nil {
		return 0, fmt.Errorf("failed to insert into milvus: %w", err)
	}

	// Flush so the vectors are searchable immediately after ingestion.
	flushTask, err := m.client.Flush(ctx, milvusclient.NewFlushOption(m.cfg.Collection))
	if err != nil {
		return 0, fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return 0, fmt.Errorf("failed to wait for flush: %w", err)
	}

	return first, nil
}

// Search returns the nearest topK slots, padded with NoMatch when the
// collection holds fewer vectors.
func (m *MilvusIndex) Search(ctx context.Context, vector []float32, topK int) ([]int64, []float32, error) {
	if topK <= 0 {
		return nil, nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	searchVectors := []entity.Vector{entity.FloatVector(vector)}
	results, err := m.client.Search(ctx, milvusclient.NewSearchOption(
		m.cfg.Collection,
		topK,
		searchVectors,
	).WithANNSField("embedding").
		WithSearchParam("nprobe", "16"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to search milvus: %w", err)
	}

	return collectHits(results, topK)
}

// collectHits converts a Milvus result set into slot and distance slices of
// exactly topK entries, padded with NoMatch. The copy is clamped to the
// shorter of the ID and score columns; a truncated server response must not
// index past either.
func collectHits(results []milvusclient.ResultSet, topK int) ([]int64, []float32, error) {
	slots := make([]int64, topK)
	dists := make([]float32, topK)
	for i := range slots {
		slots[i] = NoMatch
		dists[i] = float32(math.Inf(1))
	}

	if len(results) == 0 {
		return slots, dists, nil
	}

	ids, ok := results[0].IDs.(*column.ColumnInt64)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected id column type %T", results[0].IDs)
	}

	n := len(ids.Data())
	if len(results[0].Scores) < n {
		n = len(results[0].Scores)
	}
	if topK < n {
		n = topK
	}
	for i := 0; i < n; i++ {
		slots[i] = ids.Data()[i]
		dists[i] = results[0].Scores[i]
	}
	return slots, dists, nil
}

// Count returns the number of stored vectors.
func (m *MilvusIndex) Count(ctx context.Context) (int64, error) {
	stats, err := m.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(m.cfg.Collection))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection stats: %w", err)
	}
	if val, ok := stats["row_count"]; ok {
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, nil
}

// Close closes the Milvus connection.
func (m *MilvusIndex) Close(ctx context.Context) error {
	return m.client.Close(ctx)
}

var _ VectorIndex = (*MilvusIndex)(nil)
