package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrUserNotFound is returned when an auth user lookup misses.
var ErrUserNotFound = errors.New("user not found")

// User is a login identity attached to a tenant.
type User struct {
	ID             uuid.UUID  `json:"id"`
	TenantID       uuid.UUID  `json:"tenant_id"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"`
	Role           string     `json:"role"`
	IsActive       bool       `json:"is_active"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// PgxPool is the pool surface the repository needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores auth users.
type Repository struct {
	pool PgxPool
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool PgxPool) *Repository {
	if pool == nil {
		panic("auth: pgx pool required")
	}
	return &Repository{pool: pool}
}

// Create inserts a new user row.
func (r *Repository) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = "owner"
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO auth_users (id, tenant_id, email, hashed_password, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, u.ID, u.TenantID, u.Email, u.HashedPassword, u.Role, u.IsActive).Scan(&u.CreatedAt)
	if err != nil {
		return fmt.Errorf("auth: insert user: %w", err)
	}
	return nil
}

// GetByEmail fetches a user by unique email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, email, hashed_password, role, is_active, last_login_at, created_at
		FROM auth_users WHERE email = $1
	`, email).Scan(&u.ID, &u.TenantID, &u.Email, &u.HashedPassword, &u.Role, &u.IsActive, &u.LastLoginAt, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("auth: select user: %w", err)
	}
	return &u, nil
}

// TouchLastLogin records a successful login.
func (r *Repository) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `UPDATE auth_users SET last_login_at = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("auth: touch last login: %w", err)
	}
	return nil
}
