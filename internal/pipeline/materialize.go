package pipeline

// materialize.go - Whole-table rebuild with atomic swap semantics

import (
	"context"
	"fmt"
	"strings"

	"github.com/northstack-labs/shelfline/internal/adapter"
)

// Materialize rebuilds a schema-qualified table from a SELECT statement.
// The result is built into a scratch table first and swapped in within a
// single transaction, so a rebuild never leaves the table absent if the
// process is interrupted mid-way.
func Materialize(ctx context.Context, db adapter.Adapter, table, selectSQL string) (int64, error) {
	schema, name := splitTable(table)

	if schema != "" {
		if err := db.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
			return 0, fmt.Errorf("failed to create schema %s: %w", schema, err)
		}
	}

	scratch := name + "__build"
	qualifiedScratch := qualify(schema, scratch)

	if err := db.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", qualifiedScratch)); err != nil {
		return 0, fmt.Errorf("failed to drop scratch table %s: %w", qualifiedScratch, err)
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s AS %s", qualifiedScratch, selectSQL)
	if err := db.Exec(ctx, createSQL); err != nil {
		return 0, fmt.Errorf("failed to build %s: %w", table, err)
	}

	if err := swapInto(ctx, db, schema, scratch, name); err != nil {
		return 0, err
	}

	return countRows(ctx, db, table)
}

// MaterializeRows rebuilds a schema-qualified table from rows computed in Go.
// columnsDDL is the column definition list for the CREATE TABLE statement;
// every row must match it positionally. Swap semantics match Materialize.
func MaterializeRows(ctx context.Context, db adapter.Adapter, table, columnsDDL string, rows [][]any) (int64, error) {
	schema, name := splitTable(table)

	if schema != "" {
		if err := db.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
			return 0, fmt.Errorf("failed to create schema %s: %w", schema, err)
		}
	}

	scratch := name + "__build"
	qualifiedScratch := qualify(schema, scratch)

	if err := db.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", qualifiedScratch)); err != nil {
		return 0, fmt.Errorf("failed to drop scratch table %s: %w", qualifiedScratch, err)
	}

	if err := db.Exec(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", qualifiedScratch, columnsDDL)); err != nil {
		return 0, fmt.Errorf("failed to create scratch table %s: %w", qualifiedScratch, err)
	}

	if len(rows) > 0 {
		placeholders := "(" + strings.Repeat("?, ", len(rows[0])-1) + "?)"
		insertSQL := fmt.Sprintf("INSERT INTO %s VALUES %s", qualifiedScratch, placeholders)

		tx, err := db.Begin(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to begin insert transaction: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, insertSQL)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("failed to prepare insert for %s: %w", table, err)
		}
		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				_ = stmt.Close()
				_ = tx.Rollback()
				return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
			}
		}
		_ = stmt.Close()
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("failed to commit inserts for %s: %w", table, err)
		}
	}

	if err := swapInto(ctx, db, schema, scratch, name); err != nil {
		return 0, err
	}

	return int64(len(rows)), nil
}

// swapInto publishes the scratch table under the target name in one transaction.
func swapInto(ctx context.Context, db adapter.Adapter, schema, scratch, name string) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin swap transaction: %w", err)
	}

	target := qualify(schema, name)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", target)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to drop %s during swap: %w", target, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", qualify(schema, scratch), name)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to publish %s: %w", target, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit swap for %s: %w", target, err)
	}
	return nil
}

func countRows(ctx context.Context, db adapter.Adapter, table string) (int64, error) {
	rows, err := db.Query(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
	if err != nil {
		return 0, nil // Table built but count unavailable
	}
	defer func() { _ = rows.Close() }()

	var count int64
	if rows.Next() {
		_ = rows.Scan(&count)
	}
	return count, rows.Err()
}

func splitTable(table string) (schema, name string) {
	if parts := strings.SplitN(table, ".", 2); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", table
}

func qualify(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}
