package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"easybooking/internal/domain"
)

// Queries serves the advisory read side: availability lookups for
// search/browse flows and reservation reads. Availability answers are
// cached with a short TTL and invalidated by generation whenever the
// ledger mutates; they are still never trusted by the allocator, which
// re-validates under the ledger's own transaction.
type Queries struct {
	ledger       domain.InventoryLedger
	reservations domain.ReservationStore
	capacity     domain.CapacityProvider
	cache        domain.Cache
	cacheTTL     time.Duration
}

func NewQueries(l domain.InventoryLedger, r domain.ReservationStore, c domain.CapacityProvider, cache domain.Cache, ttl time.Duration) *Queries {
	return &Queries{ledger: l, reservations: r, capacity: c, cache: cache, cacheTTL: ttl}
}

// Cached availability keys carry a per-(hotel, room type) generation.
// Allocations and releases drop the generation key, which orphans every
// cached answer for that room type at once; the entries themselves age
// out by TTL and are never read again.
const generationTTLSec = 3600

func genKey(hotelID, roomTypeID string) string {
	return "avail-gen:" + hotelID + ":" + roomTypeID
}

// generation returns the room type's current cache generation, minting
// one if none is cached.
func (s *Queries) generation(ctx context.Context, hotelID, roomTypeID string) string {
	k := genKey(hotelID, roomTypeID)
	var gen string
	if ok, _ := s.cache.Get(ctx, k, &gen); ok && gen != "" {
		return gen
	}
	gen = uuid.NewString()
	_ = s.cache.Set(ctx, k, gen, generationTTLSec)
	return gen
}

// invalidateAvailability is called by the allocator and the lifecycle
// after any inventory mutation.
func invalidateAvailability(ctx context.Context, cache domain.Cache, hotelID, roomTypeID string) {
	if cache == nil {
		return
	}
	if err := cache.Del(ctx, genKey(hotelID, roomTypeID)); err != nil {
		log.Warn().Err(err).Str("hotel", hotelID).Str("room_type", roomTypeID).Msg("availability invalidation failed")
	}
}

// CheckAvailability reports, day by day, whether the stay can take the
// requested units. A day with no ledger row counts at the room type's
// template capacity. Pure read: the ledger is never mutated.
func (s *Queries) CheckAvailability(ctx context.Context, hotelID, roomTypeID string, checkIn, checkOut time.Time, units int) (domain.Availability, error) {
	stay, err := domain.NewStay(checkIn, checkOut)
	if err != nil {
		return domain.Availability{}, err
	}
	if units < 1 {
		return domain.Availability{}, &domain.ValidationError{Field: "units", Reason: "at least one unit is required"}
	}

	key := fmt.Sprintf("avail:%s:%s:%s:%s:%s:%d",
		hotelID, roomTypeID, s.generation(ctx, hotelID, roomTypeID),
		stay.CheckIn.Format(domain.DayFormat), stay.CheckOut.Format(domain.DayFormat), units)
	var av domain.Availability
	if ok, _ := s.cache.Get(ctx, key, &av); ok {
		return av, nil
	}

	cap, err := s.capacity.GetCapacity(ctx, roomTypeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Availability{}, &domain.ConfigurationError{RoomTypeID: roomTypeID, Reason: "no configured capacity"}
		}
		return domain.Availability{}, err
	}
	rows, err := s.ledger.Days(ctx, hotelID, roomTypeID, stay)
	if err != nil {
		return domain.Availability{}, err
	}

	av = computeAvailability(stay, rows, cap, units)
	_ = s.cache.Set(ctx, key, av, int(s.cacheTTL.Seconds()))
	return av, nil
}

// computeAvailability folds existing ledger rows over the stay, filling
// gaps from the capacity template.
func computeAvailability(stay domain.Stay, rows []domain.InventoryDay, cap domain.RoomTypeCapacity, units int) domain.Availability {
	byDate := make(map[string]domain.InventoryDay, len(rows))
	for _, d := range rows {
		byDate[d.Date.Format(domain.DayFormat)] = d
	}

	av := domain.Availability{Available: true, Units: units}
	for _, date := range stay.Days() {
		remaining := cap.TotalUnitsPerDay
		if d, ok := byDate[date.Format(domain.DayFormat)]; ok {
			remaining = d.Remaining()
		}
		av.Days = append(av.Days, domain.DayAvailability{Date: date, Remaining: remaining})
		if remaining < units && av.FirstBlocked == nil {
			d := date
			av.Available = false
			av.FirstBlocked = &d
		}
	}
	return av
}

// GetReservation returns a reservation by id.
func (s *Queries) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	return s.reservations.Get(ctx, id)
}

// ListByGuest returns a guest's reservations, oldest first.
func (s *Queries) ListByGuest(ctx context.Context, guestID string) ([]domain.Reservation, error) {
	return s.reservations.ListByGuest(ctx, guestID)
}

// ListByHotel returns a hotel's reservations, optionally filtered by status.
func (s *Queries) ListByHotel(ctx context.Context, hotelID string, status domain.Status) ([]domain.Reservation, error) {
	return s.reservations.ListByHotel(ctx, hotelID, status)
}
