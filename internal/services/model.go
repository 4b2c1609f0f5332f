package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MinDurationMinutes and MaxDurationMinutes bound a bookable service.
	MinDurationMinutes = 15
	MaxDurationMinutes = 480
)

var (
	// ErrServiceNotFound is returned when a service lookup misses or is tenant-mismatched.
	ErrServiceNotFound = errors.New("service not found")

	// ErrNameTaken is returned when a tenant already has a service with the name.
	ErrNameTaken = errors.New("service name already exists")

	// ErrInvalidDuration is returned when duration is out of range.
	ErrInvalidDuration = errors.New("duration must be between 15 and 480 minutes")

	// ErrInvalidPrice is returned when price is negative.
	ErrInvalidPrice = errors.New("price must be zero or positive")

	// ErrInvalidName is returned when the name is blank.
	ErrInvalidName = errors.New("name is required")
)

// Service is a bookable offering belonging to a tenant.
type Service struct {
	ID                uuid.UUID `json:"id"`
	TenantID          uuid.UUID `json:"tenant_id"`
	Name              string    `json:"name"`
	Description       string    `json:"description,omitempty"`
	DurationMinutes   int       `json:"duration_minutes"`
	PriceAmount       float64   `json:"price_amount"`
	PriceCurrency     string    `json:"price_currency"`
	CalComEventTypeID *int      `json:"calcom_event_type_id,omitempty"`
	DisplayOrder      int       `json:"display_order"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CreateRequest is the POST /services body.
type CreateRequest struct {
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	DurationMinutes   int     `json:"duration_minutes"`
	PriceAmount       float64 `json:"price_amount"`
	PriceCurrency     string  `json:"price_currency"`
	CalComEventTypeID *int    `json:"calcom_event_type_id"`
	DisplayOrder      int     `json:"display_order"`
	IsActive          *bool   `json:"is_active"`
}

// Validate enforces catalog invariants before any write.
func (req *CreateRequest) Validate() error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return ErrInvalidName
	}
	if req.DurationMinutes < MinDurationMinutes || req.DurationMinutes > MaxDurationMinutes {
		return ErrInvalidDuration
	}
	if req.PriceAmount < 0 {
		return ErrInvalidPrice
	}
	if req.PriceCurrency == "" {
		req.PriceCurrency = "COP"
	}
	return nil
}

// UpdateRequest is the PATCH /services/{id} body; nil fields are unchanged.
type UpdateRequest struct {
	Name              *string  `json:"name"`
	Description       *string  `json:"description"`
	DurationMinutes   *int     `json:"duration_minutes"`
	PriceAmount       *float64 `json:"price_amount"`
	PriceCurrency     *string  `json:"price_currency"`
	CalComEventTypeID *int     `json:"calcom_event_type_id"`
	DisplayOrder      *int     `json:"display_order"`
	IsActive          *bool    `json:"is_active"`
}

// Validate enforces the same invariants on partial updates.
func (req *UpdateRequest) Validate() error {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return ErrInvalidName
		}
		*req.Name = trimmed
	}
	if req.DurationMinutes != nil && (*req.DurationMinutes < MinDurationMinutes || *req.DurationMinutes > MaxDurationMinutes) {
		return ErrInvalidDuration
	}
	if req.PriceAmount != nil && *req.PriceAmount < 0 {
		return ErrInvalidPrice
	}
	return nil
}
