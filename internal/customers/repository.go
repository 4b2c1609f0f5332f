package customers

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

// Repository stores the tenant customer directory.
type Repository struct {
	pool PgxPool
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool PgxPool) *Repository {
	if pool == nil {
		panic("customers: pgx pool required")
	}
	return &Repository{pool: pool}
}

const customerColumns = `id, tenant_id, first_name, last_name, COALESCE(email, ''), phone,
	whatsapp_optin, whatsapp_optin_date, COALESCE(source, ''), COALESCE(notes, ''), created_at, updated_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.TenantID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.WhatsAppOptIn, &c.WhatsAppOptInDate, &c.Source, &c.Notes,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("customers: scan: %w", err)
	}
	return &c, nil
}

// UpsertByPhone creates a customer or refreshes an existing one keyed by
// (tenant, phone). The opt-in timestamp is set only on the first transition
// into opt-in and is never cleared afterwards.
func (r *Repository) UpsertByPhone(ctx context.Context, tenantID uuid.UUID, req *UpsertRequest) (*Customer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO customers (id, tenant_id, first_name, last_name, email, phone,
			whatsapp_optin, whatsapp_optin_date, source, notes)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6,
			$7, CASE WHEN $7 THEN now() END, NULLIF($8, ''), NULLIF($9, ''))
		ON CONFLICT (tenant_id, phone) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = COALESCE(EXCLUDED.email, customers.email),
			whatsapp_optin = EXCLUDED.whatsapp_optin,
			whatsapp_optin_date = CASE
				WHEN EXCLUDED.whatsapp_optin AND customers.whatsapp_optin_date IS NULL THEN now()
				ELSE customers.whatsapp_optin_date
			END,
			source = COALESCE(customers.source, EXCLUDED.source),
			notes = COALESCE(EXCLUDED.notes, customers.notes),
			updated_at = now()
		RETURNING `+customerColumns,
		uuid.New(), tenantID, req.FirstName, req.LastName, req.Email, req.Phone,
		req.WhatsAppOptIn, req.Source, req.Notes)

	return scanCustomer(row)
}

// GetForTenant fetches a customer scoped to the tenant.
func (r *Repository) GetForTenant(ctx context.Context, tenantID, customerID uuid.UUID) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1 AND tenant_id = $2`, customerID, tenantID)
	return scanCustomer(row)
}

// GetByPhone looks up a customer by phone within the tenant.
func (r *Repository) GetByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE tenant_id = $1 AND phone = $2`, tenantID, phone)
	return scanCustomer(row)
}

// ListByTenant returns customers most recently updated first.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*Customer, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+customerColumns+` FROM customers
		WHERE tenant_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("customers: list: %w", err)
	}
	defer rows.Close()

	var out []*Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
