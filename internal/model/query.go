// Package model defines the shared data types of the query engine: query
// classification labels, responses, history records and the database schema
// summary.
package model

// QueryType labels the execution path a query is routed to.
type QueryType string

const (
	QueryTypeSQL      QueryType = "SQL"
	QueryTypeDocument QueryType = "DOCUMENT"
	QueryTypeHybrid   QueryType = "HYBRID"
	QueryTypeUnknown  QueryType = "UNKNOWN"
)

// Row is one result row: column name to value, as returned by the driver.
type Row map[string]any

// SQLResult carries the outcome of the SQL execution path. Exactly one of
// Rows or Error is meaningful.
type SQLResult struct {
	Rows           []Row   `json:"rows,omitempty"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Error          string  `json:"error,omitempty"`
}

// DocumentMatch is one document chunk returned by semantic search.
type DocumentMatch struct {
	DocID    string  `json:"doc_id"`
	Filename string  `json:"filename"`
	Chunk    string  `json:"chunk"`
	Distance float32 `json:"distance"`
}

// DocumentResult carries the outcome of the document search path.
type DocumentResult struct {
	Results        []DocumentMatch `json:"results"`
	ElapsedSeconds float64         `json:"elapsed_seconds"`
	Note           string          `json:"note,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Metrics is the per-response processing metadata.
type Metrics struct {
	Timestamp string `json:"timestamp"`
}

// Response is the complete answer to one natural language query.
type Response struct {
	Query          string          `json:"query"`
	QueryType      QueryType       `json:"query_type"`
	GeneratedSQL   string          `json:"sql,omitempty"`
	SQLResult      *SQLResult      `json:"sql_result,omitempty"`
	DocumentResult *DocumentResult `json:"document_result,omitempty"`
	Metrics        Metrics         `json:"metrics"`
	Error          string          `json:"error,omitempty"`
	CacheHit       bool            `json:"cache_hit"`
}

// HistoryRecord is one entry in the bounded query history.
type HistoryRecord struct {
	Query     string    `json:"query"`
	Cached    bool      `json:"cached"`
	Timestamp string    `json:"time"`
	QueryType QueryType `json:"type"`
}
