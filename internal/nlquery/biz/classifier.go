// Package biz implements the query orchestration engine: intent
// classification, the SQL safety gate, the response cache, query history and
// the SQL and document execution paths.
package biz

import (
	"strings"

	"github.com/kart-io/nlquery/internal/model"
)

// sqlKeywords are phrases that signal relational intent. Matched as
// substrings of the lowercased query.
var sqlKeywords = []string{
	"how many", "count", "average", "avg", "sum", "total", "top", "highest",
	"lowest", "list", "show", "find", "get", "which", "who", "what are", "what is",
}

// docKeywords are phrases that signal document intent.
var docKeywords = []string{
	"resume", "cv", "policy", "contract", "review", "document", "pdf",
}

// Classify decides which execution path a query needs. It is a pure function
// of the query text and the schema: keyword phrases score one point each, and
// every query word that names a table or column (or its plural) scores two,
// since a direct name hit is a stronger signal than a generic verb.
func Classify(query string, schema *model.SchemaSummary) model.QueryType {
	lowered := strings.ToLower(query)
	words := strings.Fields(lowered)

	sqlScore := 0
	for _, kw := range sqlKeywords {
		if strings.Contains(lowered, kw) {
			sqlScore++
		}
	}

	schemaNames := schema.Names()
	for _, word := range words {
		if _, ok := schemaNames[word]; ok {
			sqlScore += 2
			continue
		}
		if strings.HasSuffix(word, "s") {
			if _, ok := schemaNames[strings.TrimSuffix(word, "s")]; ok {
				sqlScore += 2
			}
		}
	}

	docScore := 0
	for _, kw := range docKeywords {
		if strings.Contains(lowered, kw) {
			docScore++
		}
	}

	switch {
	case sqlScore > 0 && docScore == 0:
		return model.QueryTypeSQL
	case docScore > 0 && sqlScore == 0:
		return model.QueryTypeDocument
	case sqlScore > docScore:
		return model.QueryTypeSQL
	case docScore > sqlScore:
		return model.QueryTypeDocument
	}

	if strings.TrimSpace(query) != "" {
		return model.QueryTypeHybrid
	}
	return model.QueryTypeUnknown
}
