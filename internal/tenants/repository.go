package tenants

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

// Repository stores tenants in the relational database.
type Repository struct {
	pool PgxPool
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool PgxPool) *Repository {
	if pool == nil {
		panic("tenants: pgx pool required")
	}
	return &Repository{pool: pool}
}

const tenantColumns = `id, slug, business_name, COALESCE(description, ''), email, COALESCE(phone, ''),
	COALESCE(whatsapp_phone_number, ''), COALESCE(whatsapp_phone_number_id, ''), COALESCE(whatsapp_access_token, ''), COALESCE(whatsapp_waba_id, ''),
	COALESCE(calcom_api_key, ''), COALESCE(calcom_username, ''),
	COALESCE(nequi_number, ''), COALESCE(daviviplata_number, ''),
	brand_settings, status, created_at, updated_at`

func scanTenant(row pgx.Row) (*Tenant, error) {
	var t Tenant
	err := row.Scan(
		&t.ID, &t.Slug, &t.BusinessName, &t.Description, &t.Email, &t.Phone,
		&t.WhatsAppPhoneNumber, &t.WhatsAppPhoneNumberID, &t.WhatsAppAccessToken, &t.WhatsAppWABAID,
		&t.CalComAPIKey, &t.CalComUsername,
		&t.NequiNumber, &t.DaviviplataNumber,
		&t.BrandSettings, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("tenants: scan: %w", err)
	}
	return &t, nil
}

// Create inserts a new tenant row.
func (r *Repository) Create(ctx context.Context, t *Tenant) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = "active"
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tenants (id, slug, business_name, description, email, phone, status)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7)
		RETURNING created_at, updated_at
	`, t.ID, t.Slug, t.BusinessName, t.Description, t.Email, t.Phone, t.Status).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "tenants_email_key" {
				return ErrEmailTaken
			}
			return ErrSlugTaken
		}
		return fmt.Errorf("tenants: insert: %w", err)
	}
	return nil
}

// GetByID fetches a tenant by primary key.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

// GetBySlug fetches a tenant by its unique slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = $1`, slug)
	return scanTenant(row)
}

// GetByEmail fetches a tenant by its registration email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Tenant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE email = $1`, email)
	return scanTenant(row)
}

// GetByWhatsAppNumberID resolves the tenant owning an inbound webhook event.
func (r *Repository) GetByWhatsAppNumberID(ctx context.Context, phoneNumberID string) (*Tenant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE whatsapp_phone_number_id = $1`, phoneNumberID)
	return scanTenant(row)
}

// UpdateProfile applies the mutable profile fields; nil pointers are left unchanged.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*Tenant, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tenants SET
			business_name = COALESCE($2, business_name),
			description = COALESCE($3, description),
			phone = COALESCE($4, phone),
			nequi_number = COALESCE($5, nequi_number),
			daviviplata_number = COALESCE($6, daviviplata_number),
			brand_settings = COALESCE($7, brand_settings),
			updated_at = now()
		WHERE id = $1
		RETURNING `+tenantColumns,
		id, upd.BusinessName, upd.Description, upd.Phone,
		upd.NequiNumber, upd.DaviviplataNumber, upd.BrandSettings)
	return scanTenant(row)
}

// SaveCalComConnection persists validated scheduling credentials.
func (r *Repository) SaveCalComConnection(ctx context.Context, id uuid.UUID, conn CalComConnection) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tenants SET calcom_api_key = $2, calcom_username = $3, updated_at = now()
		WHERE id = $1
	`, id, conn.APIKey, conn.Username)
	if err != nil {
		return fmt.Errorf("tenants: save calcom connection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// SaveWhatsAppConnection persists validated messaging credentials.
func (r *Repository) SaveWhatsAppConnection(ctx context.Context, id uuid.UUID, conn WhatsAppConnection) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tenants SET
			whatsapp_phone_number = $2,
			whatsapp_phone_number_id = $3,
			whatsapp_access_token = $4,
			whatsapp_waba_id = $5,
			updated_at = now()
		WHERE id = $1
	`, id, conn.PhoneNumber, conn.PhoneNumberID, conn.AccessToken, conn.WABAID)
	if err != nil {
		return fmt.Errorf("tenants: save whatsapp connection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}
