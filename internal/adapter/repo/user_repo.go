package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"wardrobe/internal/domain"
)

// UserRepositoryPG persists users.
type UserRepositoryPG struct {
	db Querier
}

// NewUserRepository creates a user repository over db.
func NewUserRepository(db Querier) *UserRepositoryPG {
	return &UserRepositoryPG{db: db}
}

// Create inserts a new user. A duplicate email maps to ErrDuplicateEmail.
func (r *UserRepositoryPG) Create(ctx context.Context, u *domain.User) error {
	query := `
INSERT INTO users (id, email, password_hash, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := r.db.Exec(ctx, query, u.ID, u.Email, u.PasswordHash, u.IsActive, u.CreatedAt, u.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrDuplicateEmail
	}
	return err
}

// GetByID fetches a user by identifier.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
SELECT id, email, password_hash, is_active, created_at, updated_at
FROM users
WHERE id = $1;
`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// GetByEmail fetches a user by email.
func (r *UserRepositoryPG) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
SELECT id, email, password_hash, is_active, created_at, updated_at
FROM users
WHERE email = $1;
`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
