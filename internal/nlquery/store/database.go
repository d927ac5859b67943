package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/nlquery/internal/model"
)

// Database wraps a live relational database handle. It is the only component
// that executes SQL; everything it runs has already passed the safety gate.
// On reconnect the handle is replaced, not mutated, so in-flight queries
// finish against the old one.
type Database struct {
	db      *gorm.DB
	dialect string
}

// Open connects to the database described by dsn. The dialect is derived from
// the DSN shape: postgres://... and postgresql://... select Postgres, a
// user:pass@tcp(...)/db or mysql://... string selects MySQL, anything else is
// treated as a SQLite file path.
func Open(dsn string) (*Database, error) {
	dialector, dialect, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{db: db, dialect: dialect}, nil
}

func dialectorFor(dsn string) (gorm.Dialector, string, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, "", fmt.Errorf("empty connection string")
	}

	switch {
	case strings.HasPrefix(trimmed, "postgres://"), strings.HasPrefix(trimmed, "postgresql://"):
		return postgres.Open(trimmed), "postgres", nil
	case strings.HasPrefix(trimmed, "mysql://"):
		return mysql.Open(strings.TrimPrefix(trimmed, "mysql://")), "mysql", nil
	case strings.Contains(trimmed, "@tcp("):
		return mysql.Open(trimmed), "mysql", nil
	case strings.HasPrefix(trimmed, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(trimmed, "sqlite://")), "sqlite", nil
	default:
		return sqlite.Open(trimmed), "sqlite", nil
	}
}

// Dialect returns the connected dialect name.
func (d *Database) Dialect() string {
	return d.dialect
}

// GORM exposes the underlying handle for schema introspection.
func (d *Database) GORM() *gorm.DB {
	return d.db
}

// Execute runs a read query and returns the rows as ordered column-name to
// value mappings plus the elapsed wall-clock time. Driver failures come back
// as errors, never as panics.
func (d *Database) Execute(ctx context.Context, sqlText string) ([]model.Row, time.Duration, error) {
	start := time.Now()

	rows, err := d.db.WithContext(ctx).Raw(sqlText).Rows()
	if err != nil {
		return nil, time.Since(start), fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, time.Since(start), fmt.Errorf("failed to read columns: %w", err)
	}

	var result []model.Row
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, time.Since(start), fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(model.Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Since(start), fmt.Errorf("row iteration failed: %w", err)
	}

	return result, time.Since(start), nil
}

// normalizeValue converts driver byte slices to strings so rows serialize as
// readable JSON.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// Close releases the connection pool.
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
