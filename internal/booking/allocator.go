// Package booking holds the core services: allocation, advisory
// availability reads, and the reservation lifecycle.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"easybooking/internal/adapters/observability"
	"easybooking/internal/domain"
)

// AllocateRequest is the input to Allocator.Allocate.
type AllocateRequest struct {
	GuestID    string `json:"guest_id"`
	HotelID    string `json:"hotel_id"`
	RoomTypeID string `json:"room_type_id"`

	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`

	Adults   int `json:"adults"`
	Children int `json:"children"`
	Units    int `json:"units"`

	SpecialRequests string `json:"special_requests,omitempty"`
}

// Allocator is the transactional boundary for new reservations: it
// validates the request, consumes ledger inventory atomically, and only
// then persists the reservation.
type Allocator struct {
	ledger       domain.InventoryLedger
	reservations domain.ReservationStore
	capacity     domain.CapacityProvider
	cache        domain.Cache
	clock        domain.Clock
	retries      int
}

func NewAllocator(l domain.InventoryLedger, r domain.ReservationStore, c domain.CapacityProvider, cache domain.Cache, clock domain.Clock, retries int) *Allocator {
	if retries < 1 {
		retries = 1
	}
	return &Allocator{ledger: l, reservations: r, capacity: c, cache: cache, clock: clock, retries: retries}
}

// Allocate admits a booking request or rejects it with a typed error.
// Two overlapping requests never both succeed past capacity: the ledger's
// atomic reserve decides, first committer wins.
func (a *Allocator) Allocate(ctx context.Context, req AllocateRequest) (domain.Reservation, error) {
	stay, err := domain.NewStay(req.CheckIn, req.CheckOut)
	if err != nil {
		return domain.Reservation{}, err
	}
	if req.Units < 1 {
		return domain.Reservation{}, &domain.ValidationError{Field: "units", Reason: "at least one unit is required"}
	}
	if req.Adults < 1 {
		return domain.Reservation{}, &domain.ValidationError{Field: "adults", Reason: "at least one adult is required"}
	}
	if req.Children < 0 {
		return domain.Reservation{}, &domain.ValidationError{Field: "children", Reason: "cannot be negative"}
	}
	if req.GuestID == "" || req.HotelID == "" || req.RoomTypeID == "" {
		return domain.Reservation{}, &domain.ValidationError{Field: "ids", Reason: "guest, hotel and room type are required"}
	}

	now := a.clock.Now()
	if stay.CheckIn.Before(domain.Day(now)) {
		return domain.Reservation{}, &domain.ValidationError{Field: "check_in", Reason: "cannot be in the past"}
	}

	cap, err := a.capacity.GetCapacity(ctx, req.RoomTypeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Reservation{}, &domain.ConfigurationError{RoomTypeID: req.RoomTypeID, Reason: "no configured capacity"}
		}
		return domain.Reservation{}, err
	}
	if !cap.CanAccommodate(req.Adults, req.Children, req.Units) {
		return domain.Reservation{}, &domain.ValidationError{Field: "occupancy", Reason: "party exceeds room type capacity for requested units"}
	}

	if err := a.reserveWithRetry(ctx, req.HotelID, req.RoomTypeID, stay, req.Units); err != nil {
		var iie *domain.InsufficientInventoryError
		if errors.As(err, &iie) {
			observability.ObserveAllocation("rejected")
		} else {
			observability.ObserveAllocation("error")
		}
		return domain.Reservation{}, err
	}

	r := domain.Reservation{
		ID:                 uuid.NewString(),
		GuestID:            req.GuestID,
		HotelID:            req.HotelID,
		RoomTypeID:         req.RoomTypeID,
		Stay:               stay,
		Units:              req.Units,
		Adults:             req.Adults,
		Children:           req.Children,
		PricePerNightCents: cap.PricePerNightCents,
		TotalAmountCents:   cap.PricePerNightCents * int64(stay.Nights()) * int64(req.Units),
		Status:             domain.StatusPending,
		SpecialRequests:    req.SpecialRequests,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := a.reservations.Create(ctx, r); err != nil {
		// Inventory was consumed but the reservation cannot be recorded;
		// hand the units back before reporting.
		if rerr := a.ledger.Release(ctx, req.HotelID, req.RoomTypeID, stay, req.Units); rerr != nil {
			log.Error().Err(rerr).Str("reservation", r.ID).Msg("release after failed create")
		}
		observability.ObserveAllocation("error")
		return domain.Reservation{}, fmt.Errorf("persist reservation: %w", err)
	}

	observability.ObserveAllocation("accepted")
	invalidateAvailability(ctx, a.cache, req.HotelID, req.RoomTypeID)
	log.Info().
		Str("reservation", r.ID).
		Str("hotel", r.HotelID).
		Str("room_type", r.RoomTypeID).
		Int("units", r.Units).
		Int("nights", r.Nights()).
		Msg("reservation allocated")
	return r, nil
}

// reserveWithRetry absorbs a bounded number of transient ledger conflicts
// before surfacing ErrContention.
func (a *Allocator) reserveWithRetry(ctx context.Context, hotelID, roomTypeID string, stay domain.Stay, units int) error {
	var err error
	for attempt := 0; attempt < a.retries; attempt++ {
		if attempt > 0 {
			observability.ObserveContentionRetry()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
			}
		}
		err = a.ledger.Reserve(ctx, hotelID, roomTypeID, stay, units)
		if !errors.Is(err, domain.ErrContention) {
			return err
		}
	}
	return err
}
