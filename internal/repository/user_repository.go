package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jok6r1/src-diplom/internal/model"
	"github.com/jok6r1/src-diplom/internal/utils"
)

// UserRepo provides persistence for accounts in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create hashes the password and inserts a new account with the default role
// and active flag, returning its id. A unique-constraint violation on
// username or email yields ErrDuplicateAccount.
func (r *UserRepo) Create(ctx context.Context, username, email, password string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash) VALUES (?,?,?)",
		username, email, hash)
	if err != nil {
		// MySQL error 1062: duplicate entry for a unique key
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrDuplicateAccount
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches an account by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var (
		u       model.User
		refresh sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,username,email,password_hash,is_active,role,refresh_token,created_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsActive, &u.Role, &refresh, &u.CreatedAt)
	if err != nil {
		return model.User{}, err
	}
	if refresh.Valid {
		t := refresh.String
		u.RefreshToken = &t
	}
	return u, nil
}

// Exists reports whether any account matches the username OR the email. Used
// by the client to pre-validate registration without learning which of the
// two fields collided.
func (r *UserRepo) Exists(ctx context.Context, username, email string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM users WHERE username=? OR email=? LIMIT 1",
		username, email).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// StoreRefreshToken persists the given refresh token on the account row,
// overwriting any prior one. At most one refresh token is live per account.
func (r *UserRepo) StoreRefreshToken(ctx context.Context, id uint64, token string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET refresh_token=? WHERE id=?", token, id)
	return err
}

// List returns account summaries with optional active/role filters and
// limit/offset paging.
func (r *UserRepo) List(ctx context.Context, active *bool, role string, limit, offset int) ([]model.UserSummary, error) {
	query := "SELECT id,username,email,is_active,role,created_at FROM users"
	var (
		where []string
		args  []interface{}
	)
	if active != nil {
		where = append(where, "is_active=?")
		args = append(args, *active)
	}
	if role != "" {
		where = append(where, "role=?")
		args = append(args, role)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// All returns every account summary. Used by the live "who's active" view,
// which merges accounts with very recent traffic.
func (r *UserRepo) All(ctx context.Context) ([]model.UserSummary, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,username,email,is_active,role,created_at FROM users")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func scanSummaries(rows *sql.Rows) ([]model.UserSummary, error) {
	out := make([]model.UserSummary, 0)
	for rows.Next() {
		var s model.UserSummary
		if err := rows.Scan(&s.ID, &s.Username, &s.Email, &s.IsActive, &s.Role, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
