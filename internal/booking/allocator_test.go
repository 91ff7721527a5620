package booking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"easybooking/internal/booking"
	"easybooking/internal/domain"
	"easybooking/internal/storage/memory"
)

// ---- fakes ----

type fakeCache struct{ store map[string]any }

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *domain.Availability:
		*d = v.(domain.Availability)
	case *string:
		*d = v.(string)
	}
	return true, nil
}
func (c *fakeCache) Set(_ context.Context, key string, v any, _ int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}
func (c *fakeCache) Del(_ context.Context, key string) error {
	delete(c.store, key)
	return nil
}

type fakePayments struct{ totals map[string]int64 }

func (p *fakePayments) SuccessfulPaymentTotal(_ context.Context, id string) (int64, error) {
	return p.totals[id], nil
}

// flakyLedger returns ErrContention a fixed number of times before
// delegating to the real ledger.
type flakyLedger struct {
	domain.InventoryLedger
	conflicts int
}

func (l *flakyLedger) Reserve(ctx context.Context, hotelID, roomTypeID string, stay domain.Stay, units int) error {
	if l.conflicts > 0 {
		l.conflicts--
		return domain.ErrContention
	}
	return l.InventoryLedger.Reserve(ctx, hotelID, roomTypeID, stay, units)
}

func day(s string) time.Time {
	t, _ := time.Parse(domain.DayFormat, s)
	return t
}

func fixedClock(s string) domain.Clock {
	return domain.ClockFunc(func() time.Time { return day(s) })
}

func testCapacity() memory.CapacityMap {
	return memory.CapacityMap{
		"rt-1": {TotalUnitsPerDay: 2, MaxAdultsPerUnit: 2, MaxChildrenPerUnit: 1, PricePerNightCents: 15000},
	}
}

func validRequest() booking.AllocateRequest {
	return booking.AllocateRequest{
		GuestID:    "g-1",
		HotelID:    "h-1",
		RoomTypeID: "rt-1",
		CheckIn:    day("2024-06-01"),
		CheckOut:   day("2024-06-03"),
		Adults:     2,
		Units:      1,
	}
}

// ---- tests ----

func TestAllocate_Success(t *testing.T) {
	caps := testCapacity()
	ledger := memory.NewLedger(caps)
	store := memory.NewReservationStore()
	a := booking.NewAllocator(ledger, store, caps, nil, fixedClock("2024-05-01"), 3)

	r, err := a.Allocate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if r.Status != domain.StatusPending {
		t.Fatalf("status = %s, want PENDING", r.Status)
	}
	if r.PricePerNightCents != 15000 || r.TotalAmountCents != 30000 {
		t.Fatalf("pricing wrong: per-night %d total %d", r.PricePerNightCents, r.TotalAmountCents)
	}

	stored, err := store.Get(context.Background(), r.ID)
	if err != nil || stored.Status != domain.StatusPending {
		t.Fatalf("reservation not persisted: %+v, %v", stored, err)
	}
	days, _ := ledger.Days(context.Background(), "h-1", "rt-1", r.Stay)
	for _, d := range days {
		if d.ReservedUnits != 1 {
			t.Fatalf("ledger not consumed on %s: %+v", d.Date.Format(domain.DayFormat), d)
		}
	}
}

func TestAllocate_ThirdRequestBlockedOnFirstDay(t *testing.T) {
	caps := testCapacity() // totalUnits = 2
	ledger := memory.NewLedger(caps)
	a := booking.NewAllocator(ledger, memory.NewReservationStore(), caps, nil, fixedClock("2024-05-01"), 3)

	for i := 0; i < 2; i++ {
		if _, err := a.Allocate(context.Background(), validRequest()); err != nil {
			t.Fatalf("allocate #%d: %v", i+1, err)
		}
	}
	_, err := a.Allocate(context.Background(), validRequest())
	var iie *domain.InsufficientInventoryError
	if !errors.As(err, &iie) {
		t.Fatalf("expected InsufficientInventoryError, got %v", err)
	}
	if !iie.Date.Equal(day("2024-06-01")) {
		t.Fatalf("blocking date = %s, want 2024-06-01", iie.Date.Format(domain.DayFormat))
	}
}

func TestAllocate_ValidationBeforeLedger(t *testing.T) {
	caps := testCapacity()
	ledger := memory.NewLedger(caps)
	a := booking.NewAllocator(ledger, memory.NewReservationStore(), caps, nil, fixedClock("2024-05-01"), 3)

	cases := []struct {
		name string
		mut  func(*booking.AllocateRequest)
	}{
		{"zero-length stay", func(r *booking.AllocateRequest) { r.CheckOut = r.CheckIn }},
		{"past check-in", func(r *booking.AllocateRequest) { r.CheckIn = day("2024-04-01"); r.CheckOut = day("2024-04-02") }},
		{"zero units", func(r *booking.AllocateRequest) { r.Units = 0 }},
		{"no adults", func(r *booking.AllocateRequest) { r.Adults = 0 }},
		{"over occupancy", func(r *booking.AllocateRequest) { r.Adults = 5 }},
	}
	for _, c := range cases {
		req := validRequest()
		c.mut(&req)
		_, err := a.Allocate(context.Background(), req)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected ValidationError, got %v", c.name, err)
		}
	}

	// None of the rejected requests may have touched the ledger.
	st, _ := domain.NewStay(day("2024-06-01"), day("2024-06-03"))
	days, _ := ledger.Days(context.Background(), "h-1", "rt-1", st)
	if len(days) != 0 {
		t.Fatalf("ledger touched by rejected requests: %+v", days)
	}
}

func TestAllocate_UnknownRoomType(t *testing.T) {
	caps := testCapacity()
	a := booking.NewAllocator(memory.NewLedger(caps), memory.NewReservationStore(), caps, nil, fixedClock("2024-05-01"), 3)

	req := validRequest()
	req.RoomTypeID = "rt-missing"
	_, err := a.Allocate(context.Background(), req)
	var ce *domain.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestAllocate_RetriesContention(t *testing.T) {
	caps := testCapacity()
	real := memory.NewLedger(caps)
	a := booking.NewAllocator(&flakyLedger{InventoryLedger: real, conflicts: 2}, memory.NewReservationStore(), caps, nil, fixedClock("2024-05-01"), 3)

	if _, err := a.Allocate(context.Background(), validRequest()); err != nil {
		t.Fatalf("allocate should survive 2 conflicts with 3 attempts: %v", err)
	}
}

func TestAllocate_SurfacesContentionAfterBudget(t *testing.T) {
	caps := testCapacity()
	real := memory.NewLedger(caps)
	a := booking.NewAllocator(&flakyLedger{InventoryLedger: real, conflicts: 10}, memory.NewReservationStore(), caps, nil, fixedClock("2024-05-01"), 3)

	_, err := a.Allocate(context.Background(), validRequest())
	if !errors.Is(err, domain.ErrContention) {
		t.Fatalf("expected ErrContention, got %v", err)
	}
}

func TestAllocate_ThenCancelRestoresLedger(t *testing.T) {
	caps := testCapacity()
	ledger := memory.NewLedger(caps)
	store := memory.NewReservationStore()
	clock := fixedClock("2024-05-01")
	a := booking.NewAllocator(ledger, store, caps, nil, clock, 3)
	lc := booking.NewLifecycle(store, ledger, &fakePayments{}, nil, clock)

	r, err := a.Allocate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if _, err := lc.Cancel(context.Background(), r.ID, "change of plans"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	days, _ := ledger.Days(context.Background(), "h-1", "rt-1", r.Stay)
	for _, d := range days {
		if d.ReservedUnits != 0 {
			t.Fatalf("ledger not restored on %s: %+v", d.Date.Format(domain.DayFormat), d)
		}
	}
}
