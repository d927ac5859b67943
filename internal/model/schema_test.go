package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleSchema() *SchemaSummary {
	return &SchemaSummary{
		Tables: []Table{
			{
				Name: "Employees",
				Columns: []Column{
					{Name: "ID", Type: "INTEGER"},
					{Name: "Name", Type: "TEXT"},
				},
			},
		},
	}
}

func TestSchemaNamesAreLowercased(t *testing.T) {
	names := sampleSchema().Names()

	assert.Contains(t, names, "employees")
	assert.Contains(t, names, "id")
	assert.Contains(t, names, "name")
	assert.NotContains(t, names, "Employees")
}

func TestSchemaRender(t *testing.T) {
	assert.Equal(t, "Table Employees(ID, Name)\n", sampleSchema().Render())
	assert.Equal(t, "", (&SchemaSummary{}).Render())
}

func TestSchemaHashIsStable(t *testing.T) {
	a := sampleSchema()
	b := sampleSchema()
	assert.Equal(t, a.Hash(), b.Hash())

	b.Tables[0].Columns = append(b.Tables[0].Columns, Column{Name: "Salary"})
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestSchemaEmpty(t *testing.T) {
	var nilSchema *SchemaSummary
	assert.True(t, nilSchema.Empty())
	assert.True(t, (&SchemaSummary{}).Empty())
	assert.False(t, sampleSchema().Empty())
}
