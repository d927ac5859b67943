package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/kart-io/logger"

	"github.com/kart-io/nlquery/internal/model"
)

// AnalyzeSchema discovers the schema of a connected database: every table
// with its columns (name, type, nullability, default) and foreign keys. The
// result is read-only to the rest of the engine and replaced wholesale on
// reconnect.
func AnalyzeSchema(ctx context.Context, db *Database) (*model.SchemaSummary, error) {
	migrator := db.GORM().WithContext(ctx).Migrator()

	tables, err := migrator.GetTables()
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	sort.Strings(tables)

	summary := &model.SchemaSummary{Tables: make([]model.Table, 0, len(tables))}
	for _, name := range tables {
		columnTypes, err := migrator.ColumnTypes(name)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect table %s: %w", name, err)
		}

		table := model.Table{Name: name}
		for _, ct := range columnTypes {
			col := model.Column{
				Name: ct.Name(),
				Type: ct.DatabaseTypeName(),
			}
			if nullable, ok := ct.Nullable(); ok {
				col.Nullable = nullable
			}
			if def, ok := ct.DefaultValue(); ok {
				col.Default = def
			}
			table.Columns = append(table.Columns, col)
		}

		fks, err := foreignKeys(ctx, db, name)
		if err != nil {
			// Foreign keys enrich the summary but are not required for
			// classification or prompting; log and continue.
			logger.Warnw("failed to discover foreign keys", "table", name, "error", err.Error())
		}
		table.ForeignKeys = fks

		summary.Tables = append(summary.Tables, table)
	}

	logger.Infow("schema discovered", "tables", len(summary.Tables), "hash", summary.Hash())
	return summary, nil
}

// foreignKeys lists the foreign keys of a table using the dialect's catalog.
func foreignKeys(ctx context.Context, db *Database, table string) ([]model.ForeignKey, error) {
	switch db.Dialect() {
	case "sqlite":
		return sqliteForeignKeys(ctx, db, table)
	case "postgres":
		return postgresForeignKeys(ctx, db, table)
	case "mysql":
		return mysqlForeignKeys(ctx, db, table)
	default:
		return nil, nil
	}
}

func sqliteForeignKeys(ctx context.Context, db *Database, table string) ([]model.ForeignKey, error) {
	rows, _, err := db.Execute(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%q)", table))
	if err != nil {
		return nil, err
	}

	var fks []model.ForeignKey
	for _, row := range rows {
		fks = append(fks, model.ForeignKey{
			ConstrainedColumns: []string{asString(row["from"])},
			ReferredTable:      asString(row["table"]),
			ReferredColumns:    []string{asString(row["to"])},
		})
	}
	return fks, nil
}

func postgresForeignKeys(ctx context.Context, db *Database, table string) ([]model.ForeignKey, error) {
	query := fmt.Sprintf(`SELECT kcu.column_name AS column_name,
		ccu.table_name AS referred_table,
		ccu.column_name AS referred_column
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
		ON tc.constraint_name = kcu.constraint_name
	JOIN information_schema.constraint_column_usage ccu
		ON tc.constraint_name = ccu.constraint_name
	WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_name = '%s'`, table)

	rows, _, err := db.Execute(ctx, query)
	if err != nil {
		return nil, err
	}
	return catalogRowsToFKs(rows), nil
}

func mysqlForeignKeys(ctx context.Context, db *Database, table string) ([]model.ForeignKey, error) {
	query := fmt.Sprintf(`SELECT column_name AS column_name,
		referenced_table_name AS referred_table,
		referenced_column_name AS referred_column
	FROM information_schema.key_column_usage
	WHERE table_schema = DATABASE() AND table_name = '%s'
		AND referenced_table_name IS NOT NULL`, table)

	rows, _, err := db.Execute(ctx, query)
	if err != nil {
		return nil, err
	}
	return catalogRowsToFKs(rows), nil
}

func catalogRowsToFKs(rows []model.Row) []model.ForeignKey {
	var fks []model.ForeignKey
	for _, row := range rows {
		fks = append(fks, model.ForeignKey{
			ConstrainedColumns: []string{asString(row["column_name"])},
			ReferredTable:      asString(row["referred_table"]),
			ReferredColumns:    []string{asString(row["referred_column"])},
		})
	}
	return fks
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
