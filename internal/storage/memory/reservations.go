package memory

import (
	"context"
	"sort"
	"sync"

	"easybooking/internal/domain"
)

// ReservationStore keeps reservations in a guarded map. Updates replace
// the stored copy wholesale; nothing is ever deleted.
type ReservationStore struct {
	mu   sync.RWMutex
	rows map[string]domain.Reservation
}

func NewReservationStore() *ReservationStore {
	return &ReservationStore{rows: make(map[string]domain.Reservation)}
}

func (s *ReservationStore) Create(_ context.Context, r domain.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[r.ID]; ok {
		return &domain.ValidationError{Field: "id", Reason: "reservation already exists"}
	}
	s.rows[r.ID] = r
	return nil
}

func (s *ReservationStore) Get(_ context.Context, id string) (domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[id]
	if !ok {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *ReservationStore) Update(_ context.Context, r domain.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[r.ID]; !ok {
		return domain.ErrNotFound
	}
	s.rows[r.ID] = r
	return nil
}

func (s *ReservationStore) ListByGuest(_ context.Context, guestID string) ([]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Reservation
	for _, r := range s.rows {
		if r.GuestID == guestID {
			out = append(out, r)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (s *ReservationStore) ListByHotel(_ context.Context, hotelID string, status domain.Status) ([]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Reservation
	for _, r := range s.rows {
		if r.HotelID != hotelID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, r)
	}
	sortByCreated(out)
	return out, nil
}

func sortByCreated(rs []domain.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].CreatedAt.Before(rs[j].CreatedAt)
	})
}

// CapacityMap is a fixed in-memory CapacityProvider keyed by room type.
type CapacityMap map[string]domain.RoomTypeCapacity

func (m CapacityMap) GetCapacity(_ context.Context, roomTypeID string) (domain.RoomTypeCapacity, error) {
	c, ok := m[roomTypeID]
	if !ok {
		return domain.RoomTypeCapacity{}, domain.ErrNotFound
	}
	return c, nil
}
