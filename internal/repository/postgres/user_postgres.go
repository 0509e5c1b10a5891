package postgres

import (
	"context"
	"database/sql"

	"docmanager/internal/model"
	"docmanager/internal/repository"
)

// UserPostgres reads identities from the users table.
type UserPostgres struct {
	db *sql.DB
}

// NewUserPostgres creates a new UserPostgres repository.
func NewUserPostgres(db *sql.DB) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ repository.UserRepository = (*UserPostgres)(nil)

// FindByUsername returns sql.ErrNoRows when no user has the given name.
func (r *UserPostgres) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	const q = `SELECT id, username, role, created_at FROM users WHERE username = $1`
	var (
		u    model.User
		role string
	)
	if err := r.db.QueryRowContext(ctx, q, username).Scan(&u.ID, &u.Username, &role, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = model.ParseRole(role)
	return &u, nil
}
