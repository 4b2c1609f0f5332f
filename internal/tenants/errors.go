package tenants

import "errors"

var (
	// ErrTenantNotFound is returned when a tenant lookup misses.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrSlugTaken is returned when the requested slug already exists.
	ErrSlugTaken = errors.New("slug already taken")

	// ErrEmailTaken is returned when the registration email already exists.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned when a provider rejects the
	// credentials supplied on a connection attempt.
	ErrInvalidCredentials = errors.New("provider rejected the supplied credentials")

	// ErrMissingField is returned when a connection payload lacks a
	// required field.
	ErrMissingField = errors.New("missing required field")
)
