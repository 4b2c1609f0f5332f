package bookings

import "errors"

var (
	ErrBookingNotFound   = errors.New("bookings: booking not found")
	ErrSlotConflict      = errors.New("bookings: time slot overlaps an existing booking")
	ErrInvalidService    = errors.New("bookings: service not found or inactive for this tenant")
	ErrInvalidCustomer   = errors.New("bookings: customer not found for this tenant")
	ErrInvalidTimeRange  = errors.New("bookings: start time must be in the future")
	ErrInvalidTransition = errors.New("bookings: status transition not allowed")
	ErrSchedulingOffline = errors.New("bookings: scheduling provider unavailable")
	ErrNotConnected      = errors.New("bookings: tenant has no scheduling connection")
)
