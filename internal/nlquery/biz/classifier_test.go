package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/nlquery/internal/model"
)

func testSchema() *model.SchemaSummary {
	return &model.SchemaSummary{
		Tables: []model.Table{
			{
				Name: "employees",
				Columns: []model.Column{
					{Name: "id", Type: "INTEGER"},
					{Name: "name", Type: "TEXT"},
					{Name: "salary", Type: "REAL"},
				},
			},
			{
				Name: "departments",
				Columns: []model.Column{
					{Name: "id", Type: "INTEGER"},
					{Name: "title", Type: "TEXT"},
				},
			},
		},
	}
}

func TestClassify(t *testing.T) {
	schema := testSchema()

	tests := []struct {
		name  string
		query string
		want  model.QueryType
	}{
		{
			name:  "aggregate question over a known table",
			query: "how many employees are there",
			want:  model.QueryTypeSQL,
		},
		{
			name:  "column mention",
			query: "what is the average salary",
			want:  model.QueryTypeSQL,
		},
		{
			name:  "document wording",
			query: "summarize the vacation policy document",
			want:  model.QueryTypeDocument,
		},
		{
			name:  "document wording beats a single sql verb",
			query: "find the resume policy document",
			want:  model.QueryTypeDocument,
		},
		{
			name:  "balanced signals",
			query: "show the contract",
			want:  model.QueryTypeHybrid,
		},
		{
			name:  "no signals at all",
			query: "tell me something interesting",
			want:  model.QueryTypeHybrid,
		},
		{
			name:  "empty query",
			query: "",
			want:  model.QueryTypeUnknown,
		},
		{
			name:  "whitespace only",
			query: "   ",
			want:  model.QueryTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query, schema))
		})
	}
}

func TestClassifyPluralSchemaMention(t *testing.T) {
	schema := testSchema()

	// "title" is the column; the plural mention still counts.
	got := Classify("titles per department please", schema)
	assert.Equal(t, model.QueryTypeSQL, got)
}

func TestClassifyEmptySchema(t *testing.T) {
	schema := &model.SchemaSummary{}

	assert.Equal(t, model.QueryTypeSQL, Classify("how many rows", schema))
	assert.Equal(t, model.QueryTypeDocument, Classify("read the resume", schema))
}
