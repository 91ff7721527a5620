package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"easybooking/internal/domain"
)

// Ledger is the MySQL inventory ledger. Every Reserve runs as one
// transaction: missing day rows are seeded from the room-type template,
// the range is locked in day order, checked, and either updated as a
// whole or rolled back untouched. Connections must use parseTime=true.
type Ledger struct{ db *sql.DB }

func NewLedger(db *sql.DB) *Ledger { return &Ledger{db: db} }

func (l *Ledger) GetOrInitDay(ctx context.Context, hotelID, roomTypeID string, date time.Time) (domain.InventoryDay, error) {
	day := domain.Day(date).Format(domain.DayFormat)
	if _, err := l.db.ExecContext(ctx, seedDaySQL, hotelID, day, roomTypeID); err != nil {
		return domain.InventoryDay{}, err
	}
	var d domain.InventoryDay
	err := l.db.QueryRowContext(ctx, selectDaySQL, hotelID, roomTypeID, day).
		Scan(&d.HotelID, &d.RoomTypeID, &d.Date, &d.TotalUnits, &d.ReservedUnits)
	if err == sql.ErrNoRows {
		// The seed inserted nothing and no row exists: the room type has
		// no template.
		return domain.InventoryDay{}, &domain.ConfigurationError{RoomTypeID: roomTypeID, Reason: "no configured capacity"}
	}
	if err != nil {
		return domain.InventoryDay{}, err
	}
	d.Date = domain.Day(d.Date)
	return d, nil
}

func (l *Ledger) Reserve(ctx context.Context, hotelID, roomTypeID string, stay domain.Stay, units int) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	from := stay.CheckIn.Format(domain.DayFormat)
	to := stay.CheckOut.Format(domain.DayFormat)

	for _, date := range stay.Days() {
		if _, err := tx.ExecContext(ctx, seedDaySQL, hotelID, date.Format(domain.DayFormat), roomTypeID); err != nil {
			return contention(err)
		}
	}

	rows, err := tx.QueryContext(ctx, lockRangeSQL, hotelID, roomTypeID, from, to)
	if err != nil {
		return contention(err)
	}
	locked := 0
	for rows.Next() {
		var day time.Time
		var total, reserved int
		if err := rows.Scan(&day, &total, &reserved); err != nil {
			rows.Close()
			return err
		}
		if reserved+units > total {
			rows.Close()
			return &domain.InsufficientInventoryError{Date: domain.Day(day)}
		}
		locked++
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return contention(err)
	}
	rows.Close()

	if locked != stay.Nights() {
		// Seeding inserted nothing for at least one day: the room type
		// has no template row.
		return &domain.ConfigurationError{RoomTypeID: roomTypeID, Reason: "no configured capacity"}
	}

	res, err := tx.ExecContext(ctx, reserveRangeSQL, units, hotelID, roomTypeID, from, to)
	if err != nil {
		return contention(err)
	}
	if n, err := res.RowsAffected(); err == nil && n != int64(stay.Nights()) {
		return fmt.Errorf("reserve updated %d of %d days", n, stay.Nights())
	}
	return contention(tx.Commit())
}

func (l *Ledger) Release(ctx context.Context, hotelID, roomTypeID string, stay domain.Stay, units int) error {
	_, err := l.db.ExecContext(ctx, releaseRangeSQL,
		units, hotelID, roomTypeID,
		stay.CheckIn.Format(domain.DayFormat), stay.CheckOut.Format(domain.DayFormat))
	return contention(err)
}

func (l *Ledger) Days(ctx context.Context, hotelID, roomTypeID string, stay domain.Stay) ([]domain.InventoryDay, error) {
	rows, err := l.db.QueryContext(ctx, readRangeSQL,
		hotelID, roomTypeID,
		stay.CheckIn.Format(domain.DayFormat), stay.CheckOut.Format(domain.DayFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.InventoryDay
	for rows.Next() {
		var d domain.InventoryDay
		if err := rows.Scan(&d.HotelID, &d.RoomTypeID, &d.Date, &d.TotalUnits, &d.ReservedUnits); err != nil {
			return nil, err
		}
		d.Date = domain.Day(d.Date)
		out = append(out, d)
	}
	return out, rows.Err()
}

// contention maps InnoDB lock-wait timeouts (1205) and deadlocks (1213)
// to the retryable sentinel; everything else passes through.
func contention(err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && (me.Number == 1205 || me.Number == 1213) {
		return fmt.Errorf("%w: %s", domain.ErrContention, me.Message)
	}
	return err
}
