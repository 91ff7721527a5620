// Package memory holds mutex-guarded in-process implementations of the
// storage ports. They back unit tests and single-node deployments where
// MySQL durability is not needed.
package memory

import (
	"context"
	"sync"
	"time"

	"easybooking/internal/domain"
)

type dayKey struct {
	hotelID    string
	roomTypeID string
	date       string
}

// Ledger is an in-memory inventory ledger. A single mutex serializes
// range mutations, which makes every Reserve/Release trivially atomic
// across the whole stay.
type Ledger struct {
	mu       sync.Mutex
	capacity domain.CapacityProvider
	days     map[dayKey]*domain.InventoryDay
}

func NewLedger(capacity domain.CapacityProvider) *Ledger {
	return &Ledger{capacity: capacity, days: make(map[dayKey]*domain.InventoryDay)}
}

func key(hotelID, roomTypeID string, date time.Time) dayKey {
	return dayKey{hotelID: hotelID, roomTypeID: roomTypeID, date: date.Format(domain.DayFormat)}
}

// getOrInit must be called with mu held.
func (l *Ledger) getOrInit(ctx context.Context, hotelID, roomTypeID string, date time.Time) (*domain.InventoryDay, error) {
	k := key(hotelID, roomTypeID, date)
	if d, ok := l.days[k]; ok {
		return d, nil
	}
	cap, err := l.capacity.GetCapacity(ctx, roomTypeID)
	if err != nil {
		return nil, &domain.ConfigurationError{RoomTypeID: roomTypeID, Reason: "no configured capacity"}
	}
	d := &domain.InventoryDay{
		HotelID:       hotelID,
		RoomTypeID:    roomTypeID,
		Date:          domain.Day(date),
		TotalUnits:    cap.TotalUnitsPerDay,
		ReservedUnits: 0,
	}
	l.days[k] = d
	return d, nil
}

func (l *Ledger) GetOrInitDay(ctx context.Context, hotelID, roomTypeID string, date time.Time) (domain.InventoryDay, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, err := l.getOrInit(ctx, hotelID, roomTypeID, date)
	if err != nil {
		return domain.InventoryDay{}, err
	}
	return *d, nil
}

func (l *Ledger) Reserve(ctx context.Context, hotelID, roomTypeID string, stay domain.Stay, units int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Check every day before touching any, so a shortfall mid-range
	// leaves the ledger untouched.
	rows := make([]*domain.InventoryDay, 0, stay.Nights())
	for _, date := range stay.Days() {
		d, err := l.getOrInit(ctx, hotelID, roomTypeID, date)
		if err != nil {
			return err
		}
		if d.ReservedUnits+units > d.TotalUnits {
			return &domain.InsufficientInventoryError{Date: d.Date}
		}
		rows = append(rows, d)
	}
	for _, d := range rows {
		d.ReservedUnits += units
	}
	return nil
}

func (l *Ledger) Release(_ context.Context, hotelID, roomTypeID string, stay domain.Stay, units int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, date := range stay.Days() {
		d, ok := l.days[key(hotelID, roomTypeID, date)]
		if !ok {
			continue
		}
		d.ReservedUnits -= units
		if d.ReservedUnits < 0 {
			d.ReservedUnits = 0
		}
	}
	return nil
}

func (l *Ledger) Days(_ context.Context, hotelID, roomTypeID string, stay domain.Stay) ([]domain.InventoryDay, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.InventoryDay
	for _, date := range stay.Days() {
		if d, ok := l.days[key(hotelID, roomTypeID, date)]; ok {
			out = append(out, *d)
		}
	}
	return out, nil
}
