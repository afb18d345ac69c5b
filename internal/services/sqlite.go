package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

// writeSQLite replaces path with a database holding one table per export
// plus a runs table recording the run id.
func writeSQLite(ctx context.Context, path, runID string, tables []*table) error {
	_ = os.Remove(path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sqlite export: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE TABLE "runs" ("run_id" TEXT PRIMARY KEY, "created_at" TEXT DEFAULT CURRENT_TIMESTAMP)`); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO "runs" ("run_id") VALUES (?)`, runID); err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	for _, t := range tables {
		if err := insertTable(ctx, tx, t); err != nil {
			return fmt.Errorf("export %s: %w", t.name, err)
		}
	}
	return tx.Commit()
}

func insertTable(ctx context.Context, tx *sql.Tx, t *table) error {
	defs := make([]string, len(t.columns))
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		defs[i] = fmt.Sprintf("%q %s", c.name, c.kind)
		names[i] = fmt.Sprintf("%q", c.name)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %q (%s)`, t.name, strings.Join(defs, ","))); err != nil {
		return err
	}

	ph := strings.TrimRight(strings.Repeat("?,", len(t.columns)), ",")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`, t.name, strings.Join(names, ","), ph))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range t.rows {
		args := make([]any, len(row))
		for i, v := range row {
			args[i] = sqliteValue(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

func sqliteValue(v any) any {
	switch t := v.(type) {
	case bool:
		if t {
			return 1
		}
		return 0
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return t
	default:
		return t
	}
}
