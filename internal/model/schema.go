package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Column describes one column of an introspected table.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
}

// ForeignKey describes one foreign key constraint.
type ForeignKey struct {
	ConstrainedColumns []string `json:"constrained_columns"`
	ReferredTable      string   `json:"referred_table"`
	ReferredColumns    []string `json:"referred_columns"`
}

// Table describes one introspected table.
type Table struct {
	Name        string       `json:"name"`
	Columns     []Column     `json:"columns"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
}

// SchemaSummary is the read-only snapshot of a connected database's schema.
// It is replaced wholesale on reconnect, never mutated.
type SchemaSummary struct {
	Tables []Table `json:"tables"`
}

// Empty reports whether the summary has no tables.
func (s *SchemaSummary) Empty() bool {
	return s == nil || len(s.Tables) == 0
}

// Names returns the lowercased table and column names, used by the classifier
// to score schema-name mentions in a query.
func (s *SchemaSummary) Names() map[string]struct{} {
	names := make(map[string]struct{})
	if s == nil {
		return names
	}
	for _, t := range s.Tables {
		names[strings.ToLower(t.Name)] = struct{}{}
		for _, c := range t.Columns {
			names[strings.ToLower(c.Name)] = struct{}{}
		}
	}
	return names
}

// Render formats the summary as the compact text block embedded in SQL
// generation prompts, one "Table name(col, col)" line per table.
func (s *SchemaSummary) Render() string {
	if s.Empty() {
		return ""
	}
	var b strings.Builder
	for _, t := range s.Tables {
		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = c.Name
		}
		fmt.Fprintf(&b, "Table %s(%s)\n", t.Name, strings.Join(cols, ", "))
	}
	return b.String()
}

// Hash returns a stable fingerprint of the rendered summary. It keys the
// response cache so entries from a previous schema never satisfy a query
// against a new one.
func (s *SchemaSummary) Hash() string {
	sum := sha256.Sum256([]byte(s.Render()))
	return hex.EncodeToString(sum[:])
}
