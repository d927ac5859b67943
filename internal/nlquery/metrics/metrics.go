// Package metrics collects engine counters. The collector is constructed and
// injected, never global, so parallel engines and tests do not share state.
package metrics

import (
	"sync/atomic"
	"time"
)

// EngineMetrics counts queries, cache activity, SQL path and document path
// outcomes. All methods are safe for concurrent use.
type EngineMetrics struct {
	queriesTotal     atomic.Int64
	cacheHits        atomic.Int64
	cacheMisses      atomic.Int64
	queryErrors      atomic.Int64
	sqlGenerations   atomic.Int64
	safetyRejections atomic.Int64
	sqlExecutions    atomic.Int64
	sqlNanos         atomic.Int64
	docSearches      atomic.Int64
	docNanos         atomic.Int64

	classifiedSQL      atomic.Int64
	classifiedDocument atomic.Int64
	classifiedHybrid   atomic.Int64
	classifiedUnknown  atomic.Int64
}

// NewEngineMetrics creates a zeroed collector.
func NewEngineMetrics() *EngineMetrics {
	return &EngineMetrics{}
}

func (m *EngineMetrics) IncQueries()          { m.queriesTotal.Add(1) }
func (m *EngineMetrics) IncCacheHits()        { m.cacheHits.Add(1) }
func (m *EngineMetrics) IncCacheMisses()      { m.cacheMisses.Add(1) }
func (m *EngineMetrics) IncQueryErrors()      { m.queryErrors.Add(1) }
func (m *EngineMetrics) IncSQLGenerations()   { m.sqlGenerations.Add(1) }
func (m *EngineMetrics) IncSafetyRejections() { m.safetyRejections.Add(1) }

// IncClassified counts one classification outcome by its label.
func (m *EngineMetrics) IncClassified(label string) {
	switch label {
	case "SQL":
		m.classifiedSQL.Add(1)
	case "DOCUMENT":
		m.classifiedDocument.Add(1)
	case "HYBRID":
		m.classifiedHybrid.Add(1)
	default:
		m.classifiedUnknown.Add(1)
	}
}

// ObserveSQLExecution records one SQL execution and its duration.
func (m *EngineMetrics) ObserveSQLExecution(d time.Duration) {
	m.sqlExecutions.Add(1)
	m.sqlNanos.Add(int64(d))
}

// ObserveDocSearch records one document search and its duration.
func (m *EngineMetrics) ObserveDocSearch(d time.Duration) {
	m.docSearches.Add(1)
	m.docNanos.Add(int64(d))
}

// Snapshot returns the current counter values as a flat map for the stats
// endpoint.
func (m *EngineMetrics) Snapshot() map[string]any {
	snap := map[string]any{
		"queries_total":       m.queriesTotal.Load(),
		"cache_hits":          m.cacheHits.Load(),
		"cache_misses":        m.cacheMisses.Load(),
		"query_errors":        m.queryErrors.Load(),
		"sql_generations":     m.sqlGenerations.Load(),
		"safety_rejections":   m.safetyRejections.Load(),
		"sql_executions":      m.sqlExecutions.Load(),
		"doc_searches":        m.docSearches.Load(),
		"classified_sql":      m.classifiedSQL.Load(),
		"classified_document": m.classifiedDocument.Load(),
		"classified_hybrid":   m.classifiedHybrid.Load(),
		"classified_unknown":  m.classifiedUnknown.Load(),
	}
	if n := m.sqlExecutions.Load(); n > 0 {
		snap["sql_avg_seconds"] = time.Duration(m.sqlNanos.Load() / n).Seconds()
	}
	if n := m.docSearches.Load(); n > 0 {
		snap["doc_search_avg_seconds"] = time.Duration(m.docNanos.Load() / n).Seconds()
	}
	return snap
}
