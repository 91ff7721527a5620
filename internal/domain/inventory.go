package domain

import "time"

// DayFormat is the wire/storage format for inventory days.
const DayFormat = "2006-01-02"

// InventoryDay is one (hotel, room type, calendar day) counter pair.
// ReservedUnits never exceeds TotalUnits; rows are never deleted.
type InventoryDay struct {
	HotelID       string    `json:"hotel_id"`
	RoomTypeID    string    `json:"room_type_id"`
	Date          time.Time `json:"date"`
	TotalUnits    int       `json:"total_units"`
	ReservedUnits int       `json:"reserved_units"`
}

// Remaining is the uncommitted capacity for the day.
func (d InventoryDay) Remaining() int { return d.TotalUnits - d.ReservedUnits }

// Stay is a half-open date range: the check-in day is occupied, the
// check-out day is not.
type Stay struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

// NewStay normalizes both dates to UTC midnight and validates the range.
// Sub-day components and empty or inverted ranges are rejected.
func NewStay(checkIn, checkOut time.Time) (Stay, error) {
	ci := Day(checkIn)
	co := Day(checkOut)
	if !ci.Equal(checkIn.UTC()) || !co.Equal(checkOut.UTC()) {
		return Stay{}, &ValidationError{Field: "dates", Reason: "sub-day precision is not supported"}
	}
	if !co.After(ci) {
		return Stay{}, &ValidationError{Field: "dates", Reason: "check-out must be after check-in"}
	}
	return Stay{CheckIn: ci, CheckOut: co}, nil
}

// Nights is the number of occupied nights, equal to the number of
// inventory days the stay consumes.
func (s Stay) Nights() int {
	return int(s.CheckOut.Sub(s.CheckIn).Hours() / 24)
}

// Days lists every occupied day in check-in order.
func (s Stay) Days() []time.Time {
	out := make([]time.Time, 0, s.Nights())
	for d := s.CheckIn; d.Before(s.CheckOut); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// Day truncates t to UTC midnight.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Availability is the advisory result of a capacity check over a stay.
type Availability struct {
	Available    bool              `json:"available"`
	Units        int               `json:"units"`
	FirstBlocked *time.Time        `json:"first_blocked,omitempty"`
	Days         []DayAvailability `json:"days"`
}

// DayAvailability is one day's remaining capacity within a checked stay.
type DayAvailability struct {
	Date      time.Time `json:"date"`
	Remaining int       `json:"remaining"`
}
