package biz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/nlquery/internal/model"
	"github.com/kart-io/nlquery/internal/nlquery/metrics"
	"github.com/kart-io/nlquery/internal/nlquery/store"
)

// Service is the query engine surface the handlers consume.
type Service interface {
	// ProcessQuery answers one natural language query. It always returns a
	// response; failures are reported inside it.
	ProcessQuery(ctx context.Context, query string, topK int) *model.Response

	// History returns up to limit recent queries, newest first.
	History(limit int) []model.HistoryRecord

	// ConnectDatabase connects to dsn, analyzes its schema and swaps the
	// active handle.
	ConnectDatabase(ctx context.Context, dsn string) (*model.SchemaSummary, error)

	// IngestDocuments indexes a batch of uploaded documents.
	IngestDocuments(ctx context.Context, files []store.IngestFile) (*store.IngestReport, error)

	// Connected reports whether a database is attached.
	Connected() bool

	// Stats returns engine counters and sizes.
	Stats() map[string]any
}

// Engine orchestrates classification, the SQL and document paths, the
// response cache and the history log.
type Engine struct {
	sqlPath *SQLPath
	docPath *DocumentPath
	cache   *ResponseCache
	history *HistoryLog
	docs    *store.DocumentStore
	metrics *metrics.EngineMetrics

	mu         sync.RWMutex
	db         *store.Database
	schema     *model.SchemaSummary
	schemaHash string
}

// EngineConfig carries the collaborators an Engine needs.
type EngineConfig struct {
	SQLPath *SQLPath
	DocPath *DocumentPath
	Cache   *ResponseCache
	History *HistoryLog
	Docs    *store.DocumentStore
	Metrics *metrics.EngineMetrics
}

// NewEngine creates an engine with no database attached.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewEngineMetrics()
	}
	return &Engine{
		sqlPath:    cfg.SQLPath,
		docPath:    cfg.DocPath,
		cache:      cfg.Cache,
		history:    cfg.History,
		docs:       cfg.Docs,
		metrics:    cfg.Metrics,
		schema:     &model.SchemaSummary{},
		schemaHash: (&model.SchemaSummary{}).Hash(),
	}
}

// ConnectDatabase opens dsn, analyzes the schema and swaps the active handle.
// The previous handle is left open so in-flight queries finish against it.
func (e *Engine) ConnectDatabase(ctx context.Context, dsn string) (*model.SchemaSummary, error) {
	db, err := store.Open(dsn)
	if err != nil {
		return nil, err
	}

	schema, err := store.AnalyzeSchema(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schema analysis failed: %w", err)
	}

	e.mu.Lock()
	e.db = db
	e.schema = schema
	e.schemaHash = schema.Hash()
	e.mu.Unlock()

	logger.Infow("database connected", "dialect", db.Dialect(), "tables", len(schema.Tables))
	return schema, nil
}

// Connected reports whether a database is attached.
func (e *Engine) Connected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.db != nil
}

// snapshot returns the current database, schema and schema hash as one
// consistent view.
func (e *Engine) snapshot() (*store.Database, *model.SchemaSummary, string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.db, e.schema, e.schemaHash
}

// ProcessQuery answers one query: cache lookup, classification, path
// dispatch, then cache and history recording. A panic anywhere inside is
// converted into a generic error response so one bad query never takes the
// process down.
func (e *Engine) ProcessQuery(ctx context.Context, query string, topK int) (resp *model.Response) {
	e.metrics.IncQueries()
	db, schema, schemaHash := e.snapshot()

	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("query processing panicked", "query", query, "panic", fmt.Sprintf("%v", r))
			e.metrics.IncQueryErrors()
			resp = &model.Response{
				Query:     query,
				QueryType: model.QueryTypeUnknown,
				Error:     "internal error while processing query",
				Metrics:   model.Metrics{Timestamp: time.Now().UTC().Format(time.RFC3339)},
			}
		}
	}()

	key := CacheKey(query, schemaHash)
	if cached, ok := e.cache.Get(key); ok {
		e.metrics.IncCacheHits()
		e.record(query, cached.QueryType, true)
		return cached
	}
	e.metrics.IncCacheMisses()

	qtype := Classify(query, schema)
	e.metrics.IncClassified(string(qtype))
	resp = &model.Response{Query: query, QueryType: qtype}

	switch qtype {
	case model.QueryTypeSQL:
		resp.GeneratedSQL, resp.SQLResult = e.runSQLGuarded(ctx, query, schema, db)
	case model.QueryTypeDocument:
		resp.DocumentResult = e.runDocsGuarded(ctx, query, topK)
	case model.QueryTypeHybrid:
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			resp.GeneratedSQL, resp.SQLResult = e.runSQLGuarded(ctx, query, schema, db)
		}()
		go func() {
			defer wg.Done()
			resp.DocumentResult = e.runDocsGuarded(ctx, query, topK)
		}()
		wg.Wait()
	default:
		resp.Error = "could not determine query intent"
	}

	if (resp.SQLResult != nil && resp.SQLResult.Error != "") ||
		(resp.DocumentResult != nil && resp.DocumentResult.Error != "") {
		e.metrics.IncQueryErrors()
	}

	resp.Metrics = model.Metrics{Timestamp: time.Now().UTC().Format(time.RFC3339)}
	e.cache.Put(key, resp)
	e.record(query, qtype, false)
	return resp
}

// runSQLGuarded runs the SQL path behind its own recover. Hybrid dispatch
// runs each path in its own goroutine, and a panic is recoverable only inside
// the goroutine that raised it, so the guard must live here rather than in
// ProcessQuery.
func (e *Engine) runSQLGuarded(ctx context.Context, query string, schema *model.SchemaSummary, db *store.Database) (sql string, result *model.SQLResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("SQL path panicked", "query", query, "panic", fmt.Sprintf("%v", r))
			result = &model.SQLResult{Error: "internal error in SQL path"}
		}
	}()

	var exec Executor
	if db != nil {
		exec = db
	}
	sql, result = e.sqlPath.Run(ctx, query, schema, exec)
	if result.Error == "" {
		e.metrics.ObserveSQLExecution(time.Duration(result.ElapsedSeconds * float64(time.Second)))
	}
	return sql, result
}

// runDocsGuarded runs the document path behind its own recover, for the same
// reason as runSQLGuarded.
func (e *Engine) runDocsGuarded(ctx context.Context, query string, topK int) (result *model.DocumentResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("document path panicked", "query", query, "panic", fmt.Sprintf("%v", r))
			result = &model.DocumentResult{Error: "internal error in document search"}
		}
	}()

	result = e.docPath.Run(ctx, query, topK)
	if result.Error == "" {
		e.metrics.ObserveDocSearch(time.Duration(result.ElapsedSeconds * float64(time.Second)))
	}
	return result
}

func (e *Engine) record(query string, qtype model.QueryType, cached bool) {
	e.history.Append(model.HistoryRecord{
		Query:     query,
		Cached:    cached,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		QueryType: qtype,
	})
}

// History returns up to limit recent queries, newest first.
func (e *Engine) History(limit int) []model.HistoryRecord {
	return e.history.Recent(limit)
}

// IngestDocuments indexes a batch of uploaded documents.
func (e *Engine) IngestDocuments(ctx context.Context, files []store.IngestFile) (*store.IngestReport, error) {
	return e.docs.Ingest(ctx, files)
}

// Stats returns engine counters plus cache, history and document store sizes.
func (e *Engine) Stats() map[string]any {
	_, schema, schemaHash := e.snapshot()

	stats := e.metrics.Snapshot()
	stats["cache_entries"] = e.cache.Len()
	stats["history_entries"] = e.history.Len()
	stats["indexed_chunks"] = e.docs.Len()
	stats["database_connected"] = e.Connected()
	stats["schema_tables"] = len(schema.Tables)
	stats["schema_hash"] = schemaHash
	return stats
}

var _ Service = (*Engine)(nil)
