// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// insertBatchSize is the number of rows per multi-row INSERT statement.
const insertBatchSize = 500

// insertRows writes n rows into table inside tx using multi-row INSERT
// statements. row(i) returns the values of row i in cols order.
func insertRows(ctx context.Context, tx *sql.Tx, table string, cols []string, n int, row func(i int) []any) error {
	if n == 0 {
		return nil
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = `"` + c + `"`
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",") + ")"
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", table, strings.Join(quoted, ", "))

	var stmt *sql.Stmt
	defer func() {
		if stmt != nil {
			closeQuietly(stmt)
		}
	}()
	stmtRows := 0

	for start := 0; start < n; start += insertBatchSize {
		end := min(start+insertBatchSize, n)
		size := end - start

		// Full batches share one prepared statement; the tail gets its own.
		if stmt == nil || size != stmtRows {
			if stmt != nil {
				closeQuietly(stmt)
			}
			tuples := strings.TrimSuffix(strings.Repeat(tuple+",", size), ",")
			var err error
			stmt, err = tx.PrepareContext(ctx, prefix+tuples)
			if err != nil {
				stmt = nil
				return fmt.Errorf("prepare insert into %s: %w", table, err)
			}
			stmtRows = size
		}

		args := make([]any, 0, size*len(cols))
		for i := start; i < end; i++ {
			args = append(args, row(i)...)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert rows %d-%d into %s: %w", start, end-1, table, err)
		}
	}
	return nil
}
