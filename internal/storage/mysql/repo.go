package mysql

import (
	"context"
	"database/sql"
	"time"

	"easybooking/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func strVal(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// Store implements the reservation, room-type and payment ports over a
// single *sql.DB.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Create(ctx context.Context, r domain.Reservation) error {
	_, err := s.db.ExecContext(ctx, insertReservationSQL,
		r.ID, r.GuestID, r.HotelID, r.RoomTypeID,
		r.Stay.CheckIn.Format(domain.DayFormat), r.Stay.CheckOut.Format(domain.DayFormat),
		r.Units, r.Adults, r.Children,
		r.PricePerNightCents, r.TotalAmountCents, r.AmountPaidCents,
		string(r.Status), valStr(r.PaymentReference), valStr(r.SpecialRequests),
		valStr(r.CancellationReason), r.CancelledAt, r.CreatedAt, r.UpdatedAt,
	)
	return err
}

func (s *Store) Update(ctx context.Context, r domain.Reservation) error {
	res, err := s.db.ExecContext(ctx, updateReservationSQL,
		string(r.Status), r.AmountPaidCents, valStr(r.PaymentReference),
		valStr(r.CancellationReason), r.CancelledAt, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (domain.Reservation, error) {
	r, err := scanReservation(s.db.QueryRowContext(ctx, getReservationSQL, id))
	if err == sql.ErrNoRows {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return r, err
}

func (s *Store) ListByGuest(ctx context.Context, guestID string) ([]domain.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, listByGuestSQL, guestID)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func (s *Store) ListByHotel(ctx context.Context, hotelID string, status domain.Status) ([]domain.Reservation, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = s.db.QueryContext(ctx, listByHotelSQL, hotelID)
	} else {
		rows, err = s.db.QueryContext(ctx, listByHotelStatusSQL, hotelID, string(status))
	}
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

type rowScanner interface{ Scan(dest ...any) error }

func scanReservation(row rowScanner) (domain.Reservation, error) {
	var r domain.Reservation
	var status string
	var checkIn, checkOut time.Time
	var payRef, special, reason sql.NullString
	var cancelledAt sql.NullTime

	err := row.Scan(
		&r.ID, &r.GuestID, &r.HotelID, &r.RoomTypeID,
		&checkIn, &checkOut, &r.Units, &r.Adults, &r.Children,
		&r.PricePerNightCents, &r.TotalAmountCents, &r.AmountPaidCents,
		&status, &payRef, &special, &reason, &cancelledAt,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return domain.Reservation{}, err
	}
	r.Stay = domain.Stay{CheckIn: domain.Day(checkIn), CheckOut: domain.Day(checkOut)}
	r.Status = domain.Status(status)
	r.PaymentReference = strVal(payRef)
	r.SpecialRequests = strVal(special)
	r.CancellationReason = strVal(reason)
	if cancelledAt.Valid {
		t := cancelledAt.Time
		r.CancelledAt = &t
	}
	return r, nil
}

func collectReservations(rows *sql.Rows) ([]domain.Reservation, error) {
	defer rows.Close()
	var out []domain.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---- room types ----

func (s *Store) UpsertRoomType(ctx context.Context, rt domain.RoomTypeConfig) error {
	_, err := s.db.ExecContext(ctx, upsertRoomTypeSQL,
		rt.RoomTypeID, rt.HotelID, rt.Name,
		rt.Capacity.TotalUnitsPerDay, rt.Capacity.MaxAdultsPerUnit,
		rt.Capacity.MaxChildrenPerUnit, rt.Capacity.PricePerNightCents,
	)
	return err
}

func (s *Store) GetCapacity(ctx context.Context, roomTypeID string) (domain.RoomTypeCapacity, error) {
	var c domain.RoomTypeCapacity
	err := s.db.QueryRowContext(ctx, getCapacitySQL, roomTypeID).
		Scan(&c.TotalUnitsPerDay, &c.MaxAdultsPerUnit, &c.MaxChildrenPerUnit, &c.PricePerNightCents)
	if err == sql.ErrNoRows {
		return domain.RoomTypeCapacity{}, domain.ErrNotFound
	}
	return c, err
}

func (s *Store) ListRoomTypes(ctx context.Context) ([]domain.RoomTypeConfig, error) {
	rows, err := s.db.QueryContext(ctx, listRoomTypesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RoomTypeConfig
	for rows.Next() {
		var rt domain.RoomTypeConfig
		if err := rows.Scan(
			&rt.RoomTypeID, &rt.HotelID, &rt.Name,
			&rt.Capacity.TotalUnitsPerDay, &rt.Capacity.MaxAdultsPerUnit,
			&rt.Capacity.MaxChildrenPerUnit, &rt.Capacity.PricePerNightCents,
		); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// ---- payments ----

func (s *Store) SuccessfulPaymentTotal(ctx context.Context, reservationID string) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, paymentTotalSQL, reservationID).Scan(&total)
	return total, err
}
