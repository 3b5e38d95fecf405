// Package lookup runs the two metric queries against the states-history table.
package lookup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/inercia/statesqa/pkg/store"
)

// Status is the outcome of a lookup
type Status int

const (
	StatusNotFound Status = iota
	StatusFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusFailed:
		return "failed"
	default:
		return "not_found"
	}
}

// Result is the outcome of a single lookup. Record is only set when Status is StatusFound.
type Result struct {
	Status     Status
	Record     map[string]any
	Err        error
	Duplicates bool
}

// NotFound is the result of a lookup that matched no row
var NotFound = Result{Status: StatusNotFound}

// IsNotFound reports whether r carries no data, either because no row
// matched or because the query failed
func (r Result) IsNotFound() bool {
	return r.Status != StatusFound
}

// Service answers metric lookups keyed by state and date
type Service struct {
	db     *sql.DB
	logger logrus.FieldLogger

	hospitalizedQuery  string
	positiveCasesQuery string
}

// New creates a Service reading from table, quoted for dialect. A nil logger
// discards output.
func New(db *sql.DB, dialect store.Dialect, table string, logger logrus.FieldLogger) *Service {
	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	q := dialect.Quote
	// LIMIT 2 is enough to notice duplicate rows
	where := fmt.Sprintf("FROM %s WHERE %s = ? AND %s = ? LIMIT 2", q(table), q("state"), q("date"))
	return &Service{
		db:     db,
		logger: logger,
		hospitalizedQuery: fmt.Sprintf("SELECT %s, %s, %s %s",
			q("date"), q("state"), q("hospitalized"), where),
		positiveCasesQuery: fmt.Sprintf("SELECT %s, %s, %s AS positive_cases %s",
			q("date"), q("state"), q("positive"), where),
	}
}

// Hospitalized returns the number of hospitalized people in state on date
func (s *Service) Hospitalized(ctx context.Context, state, date string) Result {
	return s.query(ctx, "hospitalized", s.hospitalizedQuery, state, date)
}

// PositiveCases returns the number of positive cases in state on date
func (s *Service) PositiveCases(ctx context.Context, state, date string) Result {
	return s.query(ctx, "positive_cases", s.positiveCasesQuery, state, date)
}

func (s *Service) query(ctx context.Context, metric, query, state, date string) Result {
	log := s.logger.WithFields(logrus.Fields{
		"metric": metric,
		"state":  state,
		"date":   date,
	})

	rows, err := s.fetch(ctx, query, state, date)
	if err != nil {
		log.WithError(err).Error("lookup failed")
		return Result{Status: StatusFailed, Err: err}
	}

	if len(rows) == 0 {
		log.Debug("no matching row")
		return NotFound
	}

	res := Result{Status: StatusFound, Record: rows[0]}
	if len(rows) > 1 {
		res.Duplicates = true
		log.Warn("more than one row matched, using the first")
	}
	return res
}

// fetch runs query on a dedicated connection, released on every path
func (s *Service) fetch(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]any, len(cols))
	args := make([]any, len(cols))
	for i := range values {
		args[i] = &values[i]
	}

	var result []map[string]any
	for rows.Next() {
		if err := rows.Scan(args...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = normalize(values[i])
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// normalize turns driver values into plain scalars
func normalize(v any) any {
	switch v := v.(type) {
	case []byte:
		return string(v)
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return int64(v)
		}
		return v
	default:
		return v
	}
}
