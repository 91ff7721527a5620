package domain

// RoomTypeCapacity is the configuration template for a room type: how many
// units exist per day, what each unit can accommodate, and its current
// nightly rate. The per-day ledger row is authoritative once created; this
// template only seeds new rows and prices new bookings.
type RoomTypeCapacity struct {
	TotalUnitsPerDay   int   `json:"total_units_per_day"`
	MaxAdultsPerUnit   int   `json:"max_adults_per_unit"`
	MaxChildrenPerUnit int   `json:"max_children_per_unit"`
	PricePerNightCents int64 `json:"price_per_night_cents"`
}

// CanAccommodate checks the occupancy rule for units booked together:
// adults and children each within the scaled per-unit maxima, and the
// combined party within total occupancy.
func (c RoomTypeCapacity) CanAccommodate(adults, children, units int) bool {
	if adults > c.MaxAdultsPerUnit*units {
		return false
	}
	if children > c.MaxChildrenPerUnit*units {
		return false
	}
	return adults+children <= (c.MaxAdultsPerUnit+c.MaxChildrenPerUnit)*units
}

// RoomTypeConfig pairs a room type's identity with its capacity template.
type RoomTypeConfig struct {
	RoomTypeID string           `json:"room_type_id"`
	HotelID    string           `json:"hotel_id"`
	Name       string           `json:"name"`
	Capacity   RoomTypeCapacity `json:"capacity"`
}
