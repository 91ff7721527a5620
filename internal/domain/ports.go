package domain

import (
	"context"
	"time"
)

// InventoryLedger owns the per-day counters. Reserve and Release are the
// only mutation points on shared capacity and are atomic across the whole
// stay: a partially applied range must never be observable.
type InventoryLedger interface {
	// GetOrInitDay returns the row for the day, creating it from the room
	// type's capacity template if absent. Returns *ConfigurationError when
	// the room type has no configured capacity.
	GetOrInitDay(ctx context.Context, hotelID, roomTypeID string, date time.Time) (InventoryDay, error)

	// Reserve increments reservedUnits by units for every day of the stay,
	// or mutates nothing and returns *InsufficientInventoryError carrying
	// the first blocking date. May return ErrContention under lock races.
	Reserve(ctx context.Context, hotelID, roomTypeID string, stay Stay, units int) error

	// Release decrements reservedUnits by units for every day of the stay,
	// floored at zero. Safe to apply more than once.
	Release(ctx context.Context, hotelID, roomTypeID string, stay Stay, units int) error

	// Days reads the existing rows covering the stay, in date order,
	// without creating missing ones.
	Days(ctx context.Context, hotelID, roomTypeID string, stay Stay) ([]InventoryDay, error)
}

// ReservationStore persists reservations. Rows are never deleted.
type ReservationStore interface {
	Create(ctx context.Context, r Reservation) error
	Get(ctx context.Context, id string) (Reservation, error)
	Update(ctx context.Context, r Reservation) error
	ListByGuest(ctx context.Context, guestID string) ([]Reservation, error)
	ListByHotel(ctx context.Context, hotelID string, status Status) ([]Reservation, error)
}

// CapacityProvider exposes room-type configuration to the core.
type CapacityProvider interface {
	// GetCapacity returns ErrNotFound for an unknown room type.
	GetCapacity(ctx context.Context, roomTypeID string) (RoomTypeCapacity, error)
}

// PaymentReader observes the payment aggregate; the core never mutates it.
type PaymentReader interface {
	SuccessfulPaymentTotal(ctx context.Context, reservationID string) (int64, error)
}

// Cache is a read-through JSON cache for advisory availability lookups.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Clock is injected wherever the core needs the current moment.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }
