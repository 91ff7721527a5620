//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"golang.org/x/sync/errgroup"

	"easybooking/internal/domain"
	mysqlstore "easybooking/internal/storage/mysql"
)

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/migrations)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=booking",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/booking?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC", hostPort)

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

func day(s string) time.Time {
	t, _ := time.Parse(domain.DayFormat, s)
	return t
}

func mustStay(t *testing.T, in, out string) domain.Stay {
	t.Helper()
	st, err := domain.NewStay(day(in), day(out))
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func TestMySQL_LedgerAndStores(t *testing.T) {
	db := startMySQL(t)
	ctx := context.Background()

	store := mysqlstore.NewStore(db)
	ledger := mysqlstore.NewLedger(db)

	rt := domain.RoomTypeConfig{
		RoomTypeID: "11111111-1111-1111-1111-111111111111",
		HotelID:    "22222222-2222-2222-2222-222222222222",
		Name:       "Deluxe King",
		Capacity: domain.RoomTypeCapacity{
			TotalUnitsPerDay:   2,
			MaxAdultsPerUnit:   2,
			MaxChildrenPerUnit: 1,
			PricePerNightCents: 25000,
		},
	}
	if err := store.UpsertRoomType(ctx, rt); err != nil {
		t.Fatalf("UpsertRoomType: %v", err)
	}
	if cap, err := store.GetCapacity(ctx, rt.RoomTypeID); err != nil || cap.TotalUnitsPerDay != 2 {
		t.Fatalf("GetCapacity: %+v, %v", cap, err)
	}

	st := mustStay(t, "2024-06-01", "2024-06-03")

	// Lazy init from the template.
	d, err := ledger.GetOrInitDay(ctx, rt.HotelID, rt.RoomTypeID, day("2024-06-01"))
	if err != nil || d.TotalUnits != 2 || d.ReservedUnits != 0 {
		t.Fatalf("GetOrInitDay: %+v, %v", d, err)
	}

	// Two single-unit reserves fill the range; the third is rejected on
	// the first day.
	for i := 0; i < 2; i++ {
		if err := ledger.Reserve(ctx, rt.HotelID, rt.RoomTypeID, st, 1); err != nil {
			t.Fatalf("reserve #%d: %v", i+1, err)
		}
	}
	err = ledger.Reserve(ctx, rt.HotelID, rt.RoomTypeID, st, 1)
	var iie *domain.InsufficientInventoryError
	if !errors.As(err, &iie) || !iie.Date.Equal(day("2024-06-01")) {
		t.Fatalf("expected block on 2024-06-01, got %v", err)
	}

	// Release is floored and idempotent.
	for i := 0; i < 3; i++ {
		if err := ledger.Release(ctx, rt.HotelID, rt.RoomTypeID, st, 2); err != nil {
			t.Fatalf("release #%d: %v", i+1, err)
		}
	}
	days, err := ledger.Days(ctx, rt.HotelID, rt.RoomTypeID, st)
	if err != nil || len(days) != 2 {
		t.Fatalf("Days: %v, %d rows", err, len(days))
	}
	for _, d := range days {
		if d.ReservedUnits != 0 {
			t.Fatalf("release left %+v", d)
		}
	}

	// Unknown room type surfaces as a configuration problem.
	var ce *domain.ConfigurationError
	if err := ledger.Reserve(ctx, rt.HotelID, "33333333-3333-3333-3333-333333333333", st, 1); !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}

	// Reservation round trip.
	now := time.Now().UTC().Truncate(time.Second)
	res := domain.Reservation{
		ID:                 "44444444-4444-4444-4444-444444444444",
		GuestID:            "55555555-5555-5555-5555-555555555555",
		HotelID:            rt.HotelID,
		RoomTypeID:         rt.RoomTypeID,
		Stay:               st,
		Units:              1,
		Adults:             2,
		Children:           1,
		PricePerNightCents: 25000,
		TotalAmountCents:   50000,
		Status:             domain.StatusPending,
		SpecialRequests:    "late arrival",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := store.Create(ctx, res); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := store.Get(ctx, res.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.StatusPending || got.TotalAmountCents != 50000 ||
		!got.Stay.CheckIn.Equal(st.CheckIn) || !got.Stay.CheckOut.Equal(st.CheckOut) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	got.Status = domain.StatusCancelled
	got.CancellationReason = "tested"
	cancelled := now.Add(time.Minute)
	got.CancelledAt = &cancelled
	got.UpdatedAt = cancelled
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	back, _ := store.Get(ctx, res.ID)
	if back.Status != domain.StatusCancelled || back.CancellationReason != "tested" || back.CancelledAt == nil {
		t.Fatalf("update not persisted: %+v", back)
	}

	if lst, err := store.ListByGuest(ctx, res.GuestID); err != nil || len(lst) != 1 {
		t.Fatalf("ListByGuest: %v, %d rows", err, len(lst))
	}
	if lst, err := store.ListByHotel(ctx, rt.HotelID, domain.StatusCancelled); err != nil || len(lst) != 1 {
		t.Fatalf("ListByHotel: %v, %d rows", err, len(lst))
	}

	// Payment aggregate: only SUCCESS rows count.
	for i, p := range []struct {
		amount int64
		status string
	}{{30000, "SUCCESS"}, {20000, "SUCCESS"}, {99999, "FAILED"}} {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO payments (payment_id, reservation_id, amount_cents, status) VALUES (?, ?, ?, ?)`,
			fmt.Sprintf("66666666-6666-6666-6666-66666666666%d", i), res.ID, p.amount, p.status,
		); err != nil {
			t.Fatalf("insert payment: %v", err)
		}
	}
	if total, err := store.SuccessfulPaymentTotal(ctx, res.ID); err != nil || total != 50000 {
		t.Fatalf("SuccessfulPaymentTotal = %d, %v; want 50000", total, err)
	}
}

func TestMySQL_NoOverbookingUnderConcurrency(t *testing.T) {
	db := startMySQL(t)
	ctx := context.Background()

	store := mysqlstore.NewStore(db)
	ledger := mysqlstore.NewLedger(db)

	rt := domain.RoomTypeConfig{
		RoomTypeID: "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa",
		HotelID:    "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb",
		Name:       "Standard Twin",
		Capacity:   domain.RoomTypeCapacity{TotalUnitsPerDay: 5, MaxAdultsPerUnit: 2, PricePerNightCents: 12000},
	}
	if err := store.UpsertRoomType(ctx, rt); err != nil {
		t.Fatalf("UpsertRoomType: %v", err)
	}

	st := mustStay(t, "2024-08-01", "2024-08-04")
	const callers = 20

	var g errgroup.Group
	results := make([]error, callers)
	for i := 0; i < callers; i++ {
		i := i
		g.Go(func() error {
			// Bounded retry over transient lock conflicts, as the
			// allocator does.
			for attempt := 0; attempt < 5; attempt++ {
				err := ledger.Reserve(ctx, rt.HotelID, rt.RoomTypeID, st, 1)
				if !errors.Is(err, domain.ErrContention) {
					results[i] = err
					return nil
				}
				time.Sleep(time.Duration(attempt+1) * 20 * time.Millisecond)
				results[i] = err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	ok := 0
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrContention):
			t.Fatalf("contention not resolved within retry budget: %v", err)
		default:
			var iie *domain.InsufficientInventoryError
			if !errors.As(err, &iie) {
				t.Fatalf("unexpected reserve error: %v", err)
			}
		}
	}
	if ok != rt.Capacity.TotalUnitsPerDay {
		t.Fatalf("%d of %d reserves succeeded, want exactly %d", ok, callers, rt.Capacity.TotalUnitsPerDay)
	}

	days, err := ledger.Days(ctx, rt.HotelID, rt.RoomTypeID, st)
	if err != nil || len(days) != st.Nights() {
		t.Fatalf("Days: %v, %d rows", err, len(days))
	}
	for _, d := range days {
		if d.ReservedUnits != rt.Capacity.TotalUnitsPerDay || d.ReservedUnits > d.TotalUnits {
			t.Fatalf("invariant broken: %+v", d)
		}
	}
}
