package repository

import (
	"context"
	"database/sql"
	"strings"
)

// AdminRepo backs the administrative SQL surface. It runs operator-supplied
// statements verbatim: no sanitization, no allow-list. It must only ever be
// reachable through an authorized admin route.
type AdminRepo struct{ DB *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{DB: db} }

// IsSelect reports whether the statement text starts with "select",
// case-insensitively. Selects return rows; everything else returns only a
// success indication.
func IsSelect(query string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(query)), "select")
}

// Query runs a SELECT statement and returns its rows as generic maps keyed by
// column name, the way an operator console expects them.
func (r *AdminRepo) Query(ctx context.Context, query string) ([]map[string]interface{}, error) {
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]map[string]interface{}, 0)
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(cols))
		for i, c := range cols {
			v := vals[i]
			// The MySQL driver returns text columns as []byte.
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[c] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Exec runs a non-SELECT statement.
func (r *AdminRepo) Exec(ctx context.Context, query string) error {
	_, err := r.DB.ExecContext(ctx, query)
	return err
}

// Ping issues a trivial liveness probe against the store.
func (r *AdminRepo) Ping(ctx context.Context) error {
	var one int
	return r.DB.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}
