package customers

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrCustomerNotFound = errors.New("customers: customer not found")
	ErrInvalidPhone     = errors.New("customers: phone is required")
	ErrInvalidName      = errors.New("customers: first name is required")
)

// Customer is a tenant-scoped end customer, keyed by phone within the tenant.
type Customer struct {
	ID                uuid.UUID  `json:"id"`
	TenantID          uuid.UUID  `json:"tenant_id"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Email             string     `json:"email,omitempty"`
	Phone             string     `json:"phone"`
	WhatsAppOptIn     bool       `json:"whatsapp_optin"`
	WhatsAppOptInDate *time.Time `json:"whatsapp_optin_date,omitempty"`
	Source            string     `json:"source,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// FullName joins first and last name for display use.
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// UpsertRequest creates or refreshes a customer keyed by (tenant, phone).
type UpsertRequest struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	WhatsAppOptIn bool   `json:"whatsapp_optin"`
	Source        string `json:"source"`
	Notes         string `json:"notes"`
}

// Validate normalizes and checks the request fields.
func (r *UpsertRequest) Validate() error {
	r.Phone = strings.TrimSpace(r.Phone)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	if r.Phone == "" {
		return ErrInvalidPhone
	}
	if r.FirstName == "" {
		return ErrInvalidName
	}
	return nil
}
