// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package database

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// embeddingTable holds one row per indexed track: track_id, PC1..PCk.
const embeddingTable = "pr_comps"

// componentColumn names the i-th (0-based) embedding column.
func componentColumn(i int) string {
	return fmt.Sprintf("PC%d", i+1)
}

// WriteEmbeddings replaces the embedding table with the given vectors.
// All vectors must share one length, which becomes the number of PC columns.
func (db *DB) WriteEmbeddings(ctx context.Context, ids []string, vectors [][]float64) (err error) {
	if len(ids) != len(vectors) {
		return fmt.Errorf("write embeddings: %d ids for %d vectors", len(ids), len(vectors))
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return fmt.Errorf("write embeddings: nothing to write")
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("write embeddings: vector %d has %d components, want %d", i, len(v), dim)
		}
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("write_embeddings", embeddingTable, start, err) }(time.Now())

	err = db.writeEmbeddingsTx(ctx, ids, vectors, dim)
	if isTransactionConflict(err) {
		// A concurrent reader held the old table; one retry is enough.
		err = db.writeEmbeddingsTx(ctx, ids, vectors, dim)
	}
	return err
}

func (db *DB) writeEmbeddingsTx(ctx context.Context, ids []string, vectors [][]float64, dim int) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	cols := make([]string, dim+1)
	defs := make([]string, dim+1)
	cols[0] = "track_id"
	defs[0] = "track_id VARCHAR PRIMARY KEY"
	for i := 0; i < dim; i++ {
		cols[i+1] = componentColumn(i)
		defs[i+1] = fmt.Sprintf(`"%s" DOUBLE NOT NULL`, componentColumn(i))
	}

	if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+embeddingTable); err != nil {
		return fmt.Errorf("drop %s: %w", embeddingTable, err)
	}
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", embeddingTable, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create %s: %w", embeddingTable, err)
	}

	err = insertRows(ctx, tx, embeddingTable, cols, len(ids), func(i int) []any {
		row := make([]any, dim+1)
		row[0] = ids[i]
		for j, v := range vectors[i] {
			row[j+1] = v
		}
		return row
	})
	if err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit embeddings: %w", err)
	}
	return nil
}

// embeddingColumns returns the PC columns of the stored table in order and
// checks they are exactly PC1..PCk.
func (db *DB) embeddingColumns(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_schema = 'main' AND table_name = ? AND column_name <> 'track_id'
		 ORDER BY ordinal_position`, embeddingTable)
	if err != nil {
		return nil, fmt.Errorf("list %s columns: %w", embeddingTable, err)
	}
	defer closeWithLog(rows, "rows")

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		if !strings.EqualFold(name, componentColumn(len(cols))) {
			return nil, fmt.Errorf("%s has unexpected column %q at position %d", embeddingTable, name, len(cols)+1)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, embeddingTable)
	}
	return cols, nil
}

// ReadEmbeddings returns every stored (id, embedding) pair ordered by id.
func (db *DB) ReadEmbeddings(ctx context.Context) (ids []string, vectors [][]float64, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer func(start time.Time) { observe("read_embeddings", embeddingTable, start, err) }(time.Now())

	cols, err := db.embeddingColumns(ctx)
	if err != nil {
		return nil, nil, err
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = `"` + c + `"`
	}
	query := fmt.Sprintf("SELECT track_id, %s FROM %s ORDER BY track_id", strings.Join(quoted, ", "), embeddingTable)

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("query %s: %w", embeddingTable, err)
	}
	defer closeWithLog(rows, "rows")

	dest := make([]any, len(cols)+1)
	for rows.Next() {
		var id string
		vec := make([]float64, len(cols))
		dest[0] = &id
		for i := range vec {
			dest[i+1] = &vec[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("scan embedding row: %w", err)
		}
		ids = append(ids, id)
		vectors = append(vectors, vec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate embeddings: %w", err)
	}
	return ids, vectors, nil
}
