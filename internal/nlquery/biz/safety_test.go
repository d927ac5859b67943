package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAdmitsSelect(t *testing.T) {
	v := NewValidator(0)

	got, err := v.Validate("SELECT name FROM employees")
	require.NoError(t, err)
	assert.Equal(t, "SELECT name FROM employees LIMIT 200", got)
}

func TestValidateAdmitsWith(t *testing.T) {
	v := NewValidator(0)

	got, err := v.Validate("WITH top AS (SELECT id FROM employees) SELECT * FROM top")
	require.NoError(t, err)
	assert.Equal(t, "WITH top AS (SELECT id FROM employees) SELECT * FROM top LIMIT 200", got)
}

func TestValidateStripsCodeFences(t *testing.T) {
	v := NewValidator(0)

	got, err := v.Validate("```sql\nSELECT id FROM employees\n```")
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM employees LIMIT 200", got)
}

func TestValidateKeepsExistingLimit(t *testing.T) {
	v := NewValidator(0)

	got, err := v.Validate("SELECT id FROM employees LIMIT 5")
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM employees LIMIT 5", got)
}

func TestValidateTrimsTrailingSemicolon(t *testing.T) {
	v := NewValidator(0)

	got, err := v.Validate("SELECT id FROM employees;")
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM employees LIMIT 200", got)
}

func TestValidateCustomLimit(t *testing.T) {
	v := NewValidator(25)

	got, err := v.Validate("SELECT id FROM employees")
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM employees LIMIT 25", got)
}

func TestValidateRejectsForbiddenKeywords(t *testing.T) {
	v := NewValidator(0)

	tests := []struct {
		sql     string
		keyword string
	}{
		{"DROP TABLE employees", "DROP"},
		{"DELETE FROM employees", "DELETE"},
		{"UPDATE employees SET salary = 0", "UPDATE"},
		{"INSERT INTO employees VALUES (1)", "INSERT"},
		{"ALTER TABLE employees ADD COLUMN x INT", "ALTER"},
		{"TRUNCATE employees", "TRUNCATE"},
		{"GRANT ALL ON employees TO intruder", "GRANT"},
		{"SELECT id FROM employees; DELETE FROM employees", "DELETE"},
	}

	for _, tt := range tests {
		_, err := v.Validate(tt.sql)
		require.Error(t, err, tt.sql)

		var rej *RejectionError
		require.ErrorAs(t, err, &rej, tt.sql)
		assert.Contains(t, rej.Reason, tt.keyword)
	}
}

func TestValidateRejectsNonSelectStatements(t *testing.T) {
	v := NewValidator(0)

	_, err := v.Validate("CREATE TABLE scratch (id INT)")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only SELECT/WITH statements allowed")
}

func TestValidateRejectsUnparsableInput(t *testing.T) {
	v := NewValidator(0)

	_, err := v.Validate("please give me all the things")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to parse SQL")
}

func TestValidateRejectsEmptyInput(t *testing.T) {
	v := NewValidator(0)

	for _, sql := range []string{"", "   ", "```sql\n```"} {
		_, err := v.Validate(sql)
		require.Error(t, err, "input %q", sql)
	}
}

func TestCleanSQL(t *testing.T) {
	assert.Equal(t, "SELECT 1", CleanSQL("```sql\nSELECT 1\n```"))
	assert.Equal(t, "SELECT 1", CleanSQL("```\nSELECT 1\n```"))
	assert.Equal(t, "SELECT 1", CleanSQL("  SELECT 1  "))
}
