package biz

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/nlquery/internal/model"
	"github.com/kart-io/nlquery/internal/nlquery/metrics"
	"github.com/kart-io/nlquery/pkg/llm"
)

// Executor runs admitted SQL against the connected database.
type Executor interface {
	Execute(ctx context.Context, sql string) ([]model.Row, time.Duration, error)
}

// verbatimSQL matches queries that are already SQL, which skip generation and
// go straight to the safety gate.
var verbatimSQL = regexp.MustCompile(`(?i)^\s*(select|with)\b`)

const sqlPromptTemplate = `You are a helpful assistant that converts natural language into SQL.

Database schema:
%s
User question: %s

Output ONLY a SQL query. Do not include explanations.`

// SQLPath turns a natural language query into an executed, safety-gated SQL
// statement.
type SQLPath struct {
	completer llm.Completer
	validator *Validator
	metrics   *metrics.EngineMetrics
}

// NewSQLPath creates the SQL execution path.
func NewSQLPath(completer llm.Completer, validator *Validator, m *metrics.EngineMetrics) *SQLPath {
	if m == nil {
		m = metrics.NewEngineMetrics()
	}
	return &SQLPath{completer: completer, validator: validator, metrics: m}
}

// Run generates, validates and executes SQL for the query. Failures are
// reported inside the result, never as a returned error, so a partial hybrid
// response can still carry the other path's outcome. The generated (or
// verbatim) statement is returned even when execution fails, for display.
func (p *SQLPath) Run(ctx context.Context, query string, schema *model.SchemaSummary, exec Executor) (string, *model.SQLResult) {
	if exec == nil {
		return "", &model.SQLResult{Error: "no database connected"}
	}

	var candidate string
	if verbatimSQL.MatchString(query) {
		candidate = strings.TrimSpace(query)
	} else {
		prompt := fmt.Sprintf(sqlPromptTemplate, schema.Render(), query)
		generated, err := p.completer.Complete(ctx, prompt)
		if err != nil {
			logger.Errorw("SQL generation failed", "error", err.Error())
			return "", &model.SQLResult{Error: fmt.Sprintf("could not generate SQL: %v", err)}
		}
		p.metrics.IncSQLGenerations()
		candidate = generated
	}

	admitted, err := p.validator.Validate(candidate)
	if err != nil {
		p.metrics.IncSafetyRejections()
		logger.Warnw("SQL rejected by safety gate", "reason", err.Error())
		return CleanSQL(candidate), &model.SQLResult{Error: fmt.Sprintf("SQL safety check failed: %v", err)}
	}

	rows, elapsed, err := exec.Execute(ctx, admitted)
	if err != nil {
		return admitted, &model.SQLResult{
			ElapsedSeconds: elapsed.Seconds(),
			Error:          fmt.Sprintf("SQL execution error: %v", err),
		}
	}

	return admitted, &model.SQLResult{
		Rows:           rows,
		ElapsedSeconds: elapsed.Seconds(),
	}
}
