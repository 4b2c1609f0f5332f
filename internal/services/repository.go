package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the pool surface the repository needs; pgxmock satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores the tenant service catalog.
type Repository struct {
	pool PgxPool
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool PgxPool) *Repository {
	if pool == nil {
		panic("services: pgx pool required")
	}
	return &Repository{pool: pool}
}

const serviceColumns = `id, tenant_id, name, COALESCE(description, ''), duration_minutes,
	price_amount, price_currency, calcom_event_type_id, display_order, is_active, created_at, updated_at`

func scanService(row pgx.Row) (*Service, error) {
	var s Service
	err := row.Scan(
		&s.ID, &s.TenantID, &s.Name, &s.Description, &s.DurationMinutes,
		&s.PriceAmount, &s.PriceCurrency, &s.CalComEventTypeID, &s.DisplayOrder,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("services: scan: %w", err)
	}
	return &s, nil
}

// Create inserts a new service row.
func (r *Repository) Create(ctx context.Context, tenantID uuid.UUID, req *CreateRequest) (*Service, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	id := uuid.New()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO services (id, tenant_id, name, description, duration_minutes,
			price_amount, price_currency, calcom_event_type_id, display_order, is_active)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10)
		RETURNING `+serviceColumns,
		id, tenantID, req.Name, req.Description, req.DurationMinutes,
		req.PriceAmount, req.PriceCurrency, req.CalComEventTypeID, req.DisplayOrder, isActive)

	svc, err := scanService(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrNameTaken
		}
		return nil, err
	}
	return svc, nil
}

// GetForTenant fetches a service scoped to the tenant.
func (r *Repository) GetForTenant(ctx context.Context, tenantID, serviceID uuid.UUID) (*Service, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1 AND tenant_id = $2`, serviceID, tenantID)
	return scanService(row)
}

// ListByTenant returns the catalog ordered for display.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]*Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE tenant_id = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY display_order, name`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("services: list: %w", err)
	}
	defer rows.Close()

	var out []*Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

// Update applies a partial update scoped to the tenant.
func (r *Repository) Update(ctx context.Context, tenantID, serviceID uuid.UUID, req *UpdateRequest) (*Service, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE services SET
			name = COALESCE($3, name),
			description = COALESCE($4, description),
			duration_minutes = COALESCE($5, duration_minutes),
			price_amount = COALESCE($6, price_amount),
			price_currency = COALESCE($7, price_currency),
			calcom_event_type_id = COALESCE($8, calcom_event_type_id),
			display_order = COALESCE($9, display_order),
			is_active = COALESCE($10, is_active),
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+serviceColumns,
		serviceID, tenantID, req.Name, req.Description, req.DurationMinutes,
		req.PriceAmount, req.PriceCurrency, req.CalComEventTypeID, req.DisplayOrder, req.IsActive)

	svc, err := scanService(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrNameTaken
		}
		return nil, err
	}
	return svc, nil
}

// Delete removes a service scoped to the tenant.
func (r *Repository) Delete(ctx context.Context, tenantID, serviceID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM services WHERE id = $1 AND tenant_id = $2`, serviceID, tenantID)
	if err != nil {
		return fmt.Errorf("services: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

// FindByName matches a service by case-insensitive name, used by the
// conversational agent to resolve extracted service names.
func (r *Repository) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*Service, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+serviceColumns+` FROM services
		WHERE tenant_id = $1 AND lower(name) = lower($2) AND is_active
	`, tenantID, name)
	return scanService(row)
}
