package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/kart-io/logger"

	"github.com/kart-io/nlquery/pkg/llm"
)

// ChunkRecord is one stored document chunk, joined to the vector index by its
// embedding slot.
type ChunkRecord struct {
	DocID    string
	Filename string
	Chunk    string
	Slot     int64
}

// IngestFile is one uploaded document: a filename plus its raw bytes.
type IngestFile struct {
	Filename string
	Content  []byte
}

// IngestReport summarizes one ingestion batch.
type IngestReport struct {
	Status         string   `json:"status"`
	ProcessedFiles []string `json:"processed_files"`
	TotalDocuments int      `json:"total_documents_processed"`
	TotalChunks    int      `json:"total_chunks_indexed"`
}

// DocumentStore holds ingested document chunks and their slot mapping. It is
// written by ingestion and read by the document search path; both may run
// concurrently with queries.
type DocumentStore struct {
	embedder llm.Embedder
	index    VectorIndex

	mu      sync.RWMutex
	bySlot  map[int64]*ChunkRecord
	records []*ChunkRecord
}

// NewDocumentStore creates an empty store writing into the given index.
func NewDocumentStore(embedder llm.Embedder, index VectorIndex) *DocumentStore {
	return &DocumentStore{
		embedder: embedder,
		index:    index,
		bySlot:   make(map[int64]*ChunkRecord),
	}
}

// Ingest extracts, chunks, embeds and indexes a batch of uploaded files.
// Files with unsupported extensions or no extractable text are skipped, not
// failed. Chunking splits on blank-line boundaries.
func (s *DocumentStore) Ingest(ctx context.Context, files []IngestFile) (*IngestReport, error) {
	report := &IngestReport{Status: "success", ProcessedFiles: []string{}}

	for _, file := range files {
		text := extractText(file.Filename, file.Content)
		if text == "" {
			logger.Warnw("skipping file with no extractable text", "filename", file.Filename)
			continue
		}

		chunks := splitChunks(text)
		if len(chunks) == 0 {
			continue
		}

		embeddings, err := s.embedder.Embed(ctx, chunks)
		if err != nil {
			return nil, fmt.Errorf("failed to embed %s: %w", file.Filename, err)
		}
		if len(embeddings) != len(chunks) {
			return nil, fmt.Errorf("embedding count mismatch for %s: got %d chunks, %d embeddings",
				file.Filename, len(chunks), len(embeddings))
		}

		firstSlot, err := s.index.Add(ctx, embeddings)
		if err != nil {
			return nil, fmt.Errorf("failed to index %s: %w", file.Filename, err)
		}

		s.mu.Lock()
		for i, chunk := range chunks {
			slot := firstSlot + int64(i)
			rec := &ChunkRecord{
				DocID:    fmt.Sprintf("%s_%d", file.Filename, len(s.records)),
				Filename: file.Filename,
				Chunk:    chunk,
				Slot:     slot,
			}
			s.records = append(s.records, rec)
			// A slot collision keeps the first record; later ones stay
			// reachable through records but never win a lookup.
			if _, exists := s.bySlot[slot]; !exists {
				s.bySlot[slot] = rec
			}
		}
		s.mu.Unlock()

		report.ProcessedFiles = append(report.ProcessedFiles, file.Filename)
		logger.Infow("document ingested", "filename", file.Filename, "chunks", len(chunks))
	}

	report.TotalDocuments = len(report.ProcessedFiles)
	report.TotalChunks = s.Len()
	return report, nil
}

// Lookup resolves an embedding slot to its stored chunk.
func (s *DocumentStore) Lookup(slot int64) (*ChunkRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.bySlot[slot]
	return rec, ok
}

// Len returns the number of stored chunks.
func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// extractText pulls plain text out of an uploaded file. Text and markdown
// pass through; binary document formats (PDF, DOCX) are parsed upstream by
// the ingestion collaborators, so unknown extensions are skipped here.
func extractText(filename string, content []byte) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".markdown", ".text":
		if !utf8.Valid(content) {
			return strings.ToValidUTF8(string(content), "")
		}
		return string(content)
	default:
		return ""
	}
}

// splitChunks splits text on blank-line boundaries and trims the pieces.
func splitChunks(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(normalized, "\n\n")

	chunks := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
	}
	return chunks
}
