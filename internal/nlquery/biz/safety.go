package biz

import (
	"fmt"
	"regexp"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// DefaultRowLimit is the row cap appended to admitted statements that carry
// no LIMIT clause of their own.
const DefaultRowLimit = 200

// forbiddenKeywords are the data-mutating, DDL and permission keywords that
// reject a candidate outright. Statement separators are deliberately absent:
// a semicolon alone is harmless because only the first parsed statement is
// ever executed.
var forbiddenKeywords = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "ALTER", "TRUNCATE",
	"GRANT", "REVOKE", "EXEC", "EXECUTE",
}

var forbiddenPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(forbiddenKeywords))
	for i, kw := range forbiddenKeywords {
		patterns[i] = regexp.MustCompile(`(?i)\b` + kw + `\b`)
	}
	return patterns
}()

// fencePattern matches the markdown code-fence artifacts LLMs wrap SQL in.
var fencePattern = regexp.MustCompile("(?i)```(?:sql)?")

// RejectionError is the structured reason a candidate failed the safety gate.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

// CleanSQL strips markdown code fences from a generated candidate.
func CleanSQL(sql string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(sql, ""))
}

// Validator is the mandatory gate between any candidate SQL text and
// execution. Nothing reaches the database without passing it.
type Validator struct {
	defaultLimit int
}

// NewValidator creates a Validator appending the given row limit to admitted
// statements. A non-positive limit falls back to DefaultRowLimit.
func NewValidator(defaultLimit int) *Validator {
	if defaultLimit <= 0 {
		defaultLimit = DefaultRowLimit
	}
	return &Validator{defaultLimit: defaultLimit}
}

// Validate admits or rejects a candidate SQL string. On admission it returns
// the normalized statement, row-limited if the candidate had no LIMIT clause.
// On rejection the error is a *RejectionError naming the reason.
//
// The keyword blacklist is a fast first pass; the parse of the first
// statement is the authoritative SELECT/WITH check. Only the first top-level
// statement is considered.
func (v *Validator) Validate(sql string) (string, error) {
	cleaned := CleanSQL(sql)
	if cleaned == "" {
		return "", &RejectionError{Reason: "empty SQL statement"}
	}

	for i, pattern := range forbiddenPatterns {
		if pattern.MatchString(cleaned) {
			return "", &RejectionError{Reason: fmt.Sprintf("forbidden SQL pattern detected: %s", forbiddenKeywords[i])}
		}
	}

	result, err := pg_query.Parse(cleaned)
	if err != nil {
		return "", &RejectionError{Reason: fmt.Sprintf("unable to parse SQL: %v", err)}
	}
	if len(result.Stmts) == 0 {
		return "", &RejectionError{Reason: "unable to parse SQL: no statement found"}
	}

	if kind := statementKind(result.Stmts[0]); kind != "SELECT" {
		return "", &RejectionError{Reason: fmt.Sprintf("only SELECT/WITH statements allowed, found: %s", kind)}
	}

	return v.applyRowLimit(cleaned), nil
}

// statementKind names the statement type of a parsed top-level statement.
// SELECT covers both plain SELECT and WITH ... SELECT, which the parser
// represents as a select with a CTE clause.
func statementKind(stmt *pg_query.RawStmt) string {
	node := stmt.GetStmt()
	if node == nil {
		return "UNKNOWN"
	}
	switch node.GetNode().(type) {
	case *pg_query.Node_SelectStmt:
		return "SELECT"
	case *pg_query.Node_ExplainStmt:
		return "EXPLAIN"
	case *pg_query.Node_InsertStmt:
		return "INSERT"
	case *pg_query.Node_UpdateStmt:
		return "UPDATE"
	case *pg_query.Node_DeleteStmt:
		return "DELETE"
	default:
		name := fmt.Sprintf("%T", node.GetNode())
		name = strings.TrimPrefix(name, "*pg_query.Node_")
		return strings.ToUpper(strings.TrimSuffix(name, "Stmt"))
	}
}

// applyRowLimit appends the default LIMIT clause when the statement carries
// none, trimming any trailing separator first.
func (v *Validator) applyRowLimit(sql string) string {
	if strings.Contains(strings.ToLower(sql), "limit") {
		return sql
	}
	trimmed := strings.TrimRight(strings.TrimSpace(sql), ";")
	return fmt.Sprintf("%s LIMIT %d", strings.TrimSpace(trimmed), v.defaultLimit)
}
