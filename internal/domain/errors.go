package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a reservation, room type or payment
	// lookup matches nothing.
	ErrNotFound = errors.New("booking: not found")

	// ErrContention is returned when a ledger transaction lost a lock or
	// version race. Callers retry a bounded number of times before
	// surfacing it.
	ErrContention = errors.New("booking: inventory contention")
)

// ValidationError reports malformed or contradictory input. It is never
// retried and never corrected silently.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientInventoryError is the business rejection for a stay that
// cannot be covered. Date is the first blocking day in check-in order.
type InsufficientInventoryError struct {
	Date time.Time
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory on %s", e.Date.Format(DayFormat))
}

// InvalidTransitionError reports a lifecycle operation applied to a
// reservation whose current status does not permit it.
type InvalidTransitionError struct {
	From Status
	Op   Op
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a %s reservation", e.Op, e.From)
}

// ConfigurationError reports a room type with no configured capacity.
type ConfigurationError struct {
	RoomTypeID string
	Reason     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("room type %s: %s", e.RoomTypeID, e.Reason)
}

// PaymentShortfallError is returned by confirm when the successful payment
// total does not yet cover the reservation.
type PaymentShortfallError struct {
	RequiredCents int64
	PaidCents     int64
}

func (e *PaymentShortfallError) Error() string {
	return fmt.Sprintf("payment covers %d of %d cents", e.PaidCents, e.RequiredCents)
}
