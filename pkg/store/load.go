package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LoadStats summarizes a CSV load
type LoadStats struct {
	Rows    int
	Columns int
}

// LoadCSV replaces table with the contents of the CSV file at path.
// Column types are inferred from the data and empty cells are stored as 0.
func LoadCSV(ctx context.Context, db *sql.DB, dialect Dialect, path, table string) (LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadStats{}, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	return Load(ctx, db, dialect, f, table)
}

// Load is LoadCSV reading from r
func Load(ctx context.Context, db *sql.DB, dialect Dialect, r io.Reader, table string) (LoadStats, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return LoadStats{}, fmt.Errorf("dataset has no header row")
		}
		return LoadStats{}, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
		if header[i] == "" {
			return LoadStats{}, fmt.Errorf("column %d has an empty name", i+1)
		}
	}

	records, err := reader.ReadAll()
	if err != nil {
		return LoadStats{}, fmt.Errorf("failed to read dataset: %w", err)
	}

	kinds := InferKinds(len(header), records)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return LoadStats{}, fmt.Errorf("failed to begin load transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	quoted := dialect.Quote(table)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoted); err != nil {
		return LoadStats{}, fmt.Errorf("failed to drop %s: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(dialect, table, header, kinds)); err != nil {
		return LoadStats{}, fmt.Errorf("failed to create %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(dialect, table, header))
	if err != nil {
		return LoadStats{}, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(header))
	for n, record := range records {
		for i := range header {
			var cell string
			if i < len(record) {
				cell = record[i]
			}
			args[i] = convertCell(cell, kinds[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return LoadStats{}, fmt.Errorf("failed to insert row %d: %w", n+2, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return LoadStats{}, fmt.Errorf("failed to commit load: %w", err)
	}

	return LoadStats{Rows: len(records), Columns: len(header)}, nil
}

// InferKinds picks the narrowest kind that fits every non-empty cell of each column.
// Columns with no values at all are integers, since they will hold only zeros.
func InferKinds(columns int, records [][]string) []ColumnKind {
	kinds := make([]ColumnKind, columns)
	for _, record := range records {
		for i := 0; i < columns && i < len(record); i++ {
			cell := strings.TrimSpace(record[i])
			if cell == "" || kinds[i] == KindText {
				continue
			}
			if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err == nil {
				kinds[i] = KindReal
				continue
			}
			kinds[i] = KindText
		}
	}
	return kinds
}

func convertCell(cell string, kind ColumnKind) any {
	cell = strings.TrimSpace(cell)
	switch kind {
	case KindInteger:
		v, _ := strconv.ParseInt(cell, 10, 64)
		return v
	case KindReal:
		v, _ := strconv.ParseFloat(cell, 64)
		return v
	default:
		if cell == "" {
			return "0"
		}
		return cell
	}
}

func createTableSQL(dialect Dialect, table string, header []string, kinds []ColumnKind) string {
	cols := make([]string, len(header))
	for i, name := range header {
		cols[i] = dialect.Quote(name) + " " + dialect.ColumnType(kinds[i])
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", dialect.Quote(table), strings.Join(cols, ", "))
}

func insertSQL(dialect Dialect, table string, header []string) string {
	cols := make([]string, len(header))
	marks := make([]string, len(header))
	for i, name := range header {
		cols[i] = dialect.Quote(name)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", dialect.Quote(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
}
