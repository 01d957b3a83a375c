package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// SQL runs telemetry queries over database/sql, e.g. a TimescaleDB or
// PostgreSQL mirror of the orbit dataset.
type SQL struct {
	db *sql.DB
}

// NewSQL wraps an open database handle.
func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db}
}

// OpenPostgres opens a PostgreSQL connection from dsn.
func OpenPostgres(dsn string) (*SQL, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return NewSQL(db), nil
}

// Query implements Warehouse.
func (s *SQL) Query(ctx context.Context, query string) ([]Row, error) {
	rs, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	cols, err := rs.Columns()
	if err != nil {
		return nil, err
	}
	var rows []Row
	for rs.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		rows = append(rows, row)
	}
	return rows, rs.Err()
}

// Close closes the database handle.
func (s *SQL) Close() error { return s.db.Close() }
