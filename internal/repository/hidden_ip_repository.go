package repository

import (
	"context"
	"database/sql"

	"github.com/jok6r1/src-diplom/internal/model"
)

// HiddenIPRepo reads the operator-curated suppressed IP list in `h_ip`.
// The core never mutates this table; rows appear and disappear through the
// administrative SQL surface.
type HiddenIPRepo struct{ DB *sql.DB }

func NewHiddenIPRepo(db *sql.DB) *HiddenIPRepo { return &HiddenIPRepo{DB: db} }

// All lists every suppressed IP.
func (r *HiddenIPRepo) All(ctx context.Context) ([]model.HiddenIP, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, ip FROM h_ip")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.HiddenIP, 0)
	for rows.Next() {
		var h model.HiddenIP
		if err := rows.Scan(&h.ID, &h.IP); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
