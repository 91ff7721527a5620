package domain

import "time"

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusCheckedIn  Status = "CHECKED_IN"
	StatusCheckedOut Status = "CHECKED_OUT"
	StatusCancelled  Status = "CANCELLED"
	StatusNoShow     Status = "NO_SHOW"
)

// Op is a lifecycle operation applied to a reservation.
type Op string

const (
	OpConfirm  Op = "confirm"
	OpCheckIn  Op = "check-in"
	OpCheckOut Op = "check-out"
	OpCancel   Op = "cancel"
	OpNoShow   Op = "no-show"
)

// Next returns the status that results from applying op to cur. It is a
// pure function of the state machine; callers enforce date and payment
// guards separately.
//
//	PENDING -> CONFIRMED -> CHECKED_IN -> CHECKED_OUT
//	PENDING|CONFIRMED   -> CANCELLED | NO_SHOW
func Next(cur Status, op Op) (Status, error) {
	switch op {
	case OpConfirm:
		if cur == StatusPending {
			return StatusConfirmed, nil
		}
	case OpCheckIn:
		if cur == StatusConfirmed {
			return StatusCheckedIn, nil
		}
	case OpCheckOut:
		if cur == StatusCheckedIn {
			return StatusCheckedOut, nil
		}
	case OpCancel, OpNoShow:
		if cur == StatusPending || cur == StatusConfirmed {
			if op == OpCancel {
				return StatusCancelled, nil
			}
			return StatusNoShow, nil
		}
	}
	return cur, &InvalidTransitionError{From: cur, Op: op}
}

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusCheckedOut || s == StatusCancelled || s == StatusNoShow
}

// HoldsInventory reports whether reservations in this status account for
// reserved units in the ledger. CHECKED_OUT keeps its units: the stay
// already elapsed and historical occupancy is not rewritten.
func (s Status) HoldsInventory() bool {
	return s != StatusCancelled && s != StatusNoShow
}

// Reservation is a guest's booking of one or more units of a room type
// over a stay. Rows are soft-retained forever; money is in cents.
type Reservation struct {
	ID         string `json:"id"`
	GuestID    string `json:"guest_id"`
	HotelID    string `json:"hotel_id"`
	RoomTypeID string `json:"room_type_id"`

	Stay  Stay `json:"stay"`
	Units int  `json:"units"`

	Adults   int `json:"adults"`
	Children int `json:"children"`

	// Nightly rate snapshot taken at allocation time, so later rate
	// changes do not alter historical bookings.
	PricePerNightCents int64 `json:"price_per_night_cents"`
	TotalAmountCents   int64 `json:"total_amount_cents"`
	AmountPaidCents    int64 `json:"amount_paid_cents"`

	Status           Status `json:"status"`
	PaymentReference string `json:"payment_reference,omitempty"`
	SpecialRequests  string `json:"special_requests,omitempty"`

	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Nights is the stay length in nights.
func (r Reservation) Nights() int { return r.Stay.Nights() }

// FullyPaid reports whether the recorded payments cover the total.
func (r Reservation) FullyPaid() bool { return r.AmountPaidCents >= r.TotalAmountCents }
