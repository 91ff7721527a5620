package mysql

// Inventory ledger. The day row is lazily seeded from the room-type
// template; once present it is authoritative and the seed insert is a
// no-op (INSERT IGNORE).
const seedDaySQL = `
INSERT IGNORE INTO room_type_inventory (hotel_id, room_type_id, day, total_units, reserved_units)
SELECT ?, rt.room_type_id, ?, rt.total_units_per_day, 0
FROM room_types rt
WHERE rt.room_type_id = ?
`

const selectDaySQL = `
SELECT hotel_id, room_type_id, day, total_units, reserved_units
FROM room_type_inventory
WHERE hotel_id = ? AND room_type_id = ? AND day = ?
`

// Row locks are taken in day order for every reserve, so two overlapping
// reserves always collide instead of deadlocking on each other's tail.
const lockRangeSQL = `
SELECT day, total_units, reserved_units
FROM room_type_inventory
WHERE hotel_id = ? AND room_type_id = ? AND day >= ? AND day < ?
ORDER BY day
FOR UPDATE
`

const reserveRangeSQL = `
UPDATE room_type_inventory
SET reserved_units = reserved_units + ?
WHERE hotel_id = ? AND room_type_id = ? AND day >= ? AND day < ?
`

const releaseRangeSQL = `
UPDATE room_type_inventory
SET reserved_units = GREATEST(reserved_units - ?, 0)
WHERE hotel_id = ? AND room_type_id = ? AND day >= ? AND day < ?
`

const readRangeSQL = `
SELECT hotel_id, room_type_id, day, total_units, reserved_units
FROM room_type_inventory
WHERE hotel_id = ? AND room_type_id = ? AND day >= ? AND day < ?
ORDER BY day
`

// Reservations.
const insertReservationSQL = `
INSERT INTO reservations
  (reservation_id, guest_id, hotel_id, room_type_id,
   check_in_date, check_out_date, units, adults, children,
   price_per_night_cents, total_amount_cents, amount_paid_cents,
   status, payment_reference, special_requests,
   cancellation_reason, cancelled_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateReservationSQL = `
UPDATE reservations
SET status = ?,
    amount_paid_cents = ?,
    payment_reference = ?,
    cancellation_reason = ?,
    cancelled_at = ?,
    updated_at = ?
WHERE reservation_id = ?
`

const selectReservationSQL = `
SELECT reservation_id, guest_id, hotel_id, room_type_id,
       check_in_date, check_out_date, units, adults, children,
       price_per_night_cents, total_amount_cents, amount_paid_cents,
       status, payment_reference, special_requests,
       cancellation_reason, cancelled_at, created_at, updated_at
FROM reservations
`

const getReservationSQL = selectReservationSQL + `WHERE reservation_id = ?`

const listByGuestSQL = selectReservationSQL + `WHERE guest_id = ? ORDER BY created_at, reservation_id`

const listByHotelSQL = selectReservationSQL + `WHERE hotel_id = ? ORDER BY created_at, reservation_id`

const listByHotelStatusSQL = selectReservationSQL + `WHERE hotel_id = ? AND status = ? ORDER BY created_at, reservation_id`

// Room types.
const upsertRoomTypeSQL = `
INSERT INTO room_types
  (room_type_id, hotel_id, name, total_units_per_day,
   max_adults_per_unit, max_children_per_unit, price_per_night_cents)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  name                  = VALUES(name),
  total_units_per_day   = VALUES(total_units_per_day),
  max_adults_per_unit   = VALUES(max_adults_per_unit),
  max_children_per_unit = VALUES(max_children_per_unit),
  price_per_night_cents = VALUES(price_per_night_cents),
  updated_at            = CURRENT_TIMESTAMP
`

const getCapacitySQL = `
SELECT total_units_per_day, max_adults_per_unit, max_children_per_unit, price_per_night_cents
FROM room_types
WHERE room_type_id = ? AND is_active = 1
`

const listRoomTypesSQL = `
SELECT room_type_id, hotel_id, name,
       total_units_per_day, max_adults_per_unit, max_children_per_unit, price_per_night_cents
FROM room_types
WHERE is_active = 1
ORDER BY hotel_id, room_type_id
`

// Payments. The core only reads the successful total.
const paymentTotalSQL = `
SELECT COALESCE(SUM(amount_cents), 0)
FROM payments
WHERE reservation_id = ? AND status = 'SUCCESS'
`
