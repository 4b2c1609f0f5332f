package tenants

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Tenant is a business account, the root of all scoping.
type Tenant struct {
	ID           uuid.UUID `json:"id"`
	Slug         string    `json:"slug"`
	BusinessName string    `json:"business_name"`
	Description  string    `json:"description,omitempty"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`

	WhatsAppPhoneNumber   string `json:"whatsapp_phone_number,omitempty"`
	WhatsAppPhoneNumberID string `json:"whatsapp_phone_number_id,omitempty"`
	WhatsAppAccessToken   string `json:"-"`
	WhatsAppWABAID        string `json:"whatsapp_waba_id,omitempty"`

	CalComAPIKey   string `json:"-"`
	CalComUsername string `json:"calcom_username,omitempty"`

	NequiNumber       string `json:"nequi_number,omitempty"`
	DaviviplataNumber string `json:"daviviplata_number,omitempty"`

	BrandSettings json.RawMessage `json:"brand_settings,omitempty"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// WhatsAppConnected reports whether messaging credentials are attached.
func (t *Tenant) WhatsAppConnected() bool {
	return t != nil && t.WhatsAppAccessToken != "" && t.WhatsAppPhoneNumberID != ""
}

// CalComConnected reports whether scheduling credentials are attached.
func (t *Tenant) CalComConnected() bool {
	return t != nil && t.CalComAPIKey != ""
}

// PublicProfile is the unauthenticated view served at /tenants/by-slug.
type PublicProfile struct {
	Slug          string          `json:"slug"`
	BusinessName  string          `json:"business_name"`
	Description   string          `json:"description,omitempty"`
	BrandSettings json.RawMessage `json:"brand_settings,omitempty"`
}

// ProfileUpdate carries the PATCH /tenants/me mutable fields.
type ProfileUpdate struct {
	BusinessName      *string         `json:"business_name,omitempty"`
	Description       *string         `json:"description,omitempty"`
	Phone             *string         `json:"phone,omitempty"`
	NequiNumber       *string         `json:"nequi_number,omitempty"`
	DaviviplataNumber *string         `json:"daviviplata_number,omitempty"`
	BrandSettings     json.RawMessage `json:"brand_settings,omitempty"`
}

// CalComConnection is the validated credential payload for the scheduling provider.
type CalComConnection struct {
	APIKey   string `json:"api_key"`
	Username string `json:"username"`
}

// WhatsAppConnection is the validated credential payload for the messaging provider.
type WhatsAppConnection struct {
	PhoneNumber   string `json:"phone_number"`
	PhoneNumberID string `json:"phone_number_id"`
	AccessToken   string `json:"access_token"`
	WABAID        string `json:"waba_id"`
}
