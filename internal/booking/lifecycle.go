package booking

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"easybooking/internal/adapters/observability"
	"easybooking/internal/domain"
)

// Lifecycle drives a reservation through its state machine and applies
// the matching inventory release rules. Transition legality lives in
// domain.Next; this service adds the date, payment and ledger effects.
type Lifecycle struct {
	reservations domain.ReservationStore
	ledger       domain.InventoryLedger
	payments     domain.PaymentReader
	cache        domain.Cache
	clock        domain.Clock
}

func NewLifecycle(r domain.ReservationStore, l domain.InventoryLedger, p domain.PaymentReader, cache domain.Cache, clock domain.Clock) *Lifecycle {
	return &Lifecycle{reservations: r, ledger: l, payments: p, cache: cache, clock: clock}
}

// Confirm moves PENDING to CONFIRMED once successful payments cover the
// total amount.
func (s *Lifecycle) Confirm(ctx context.Context, id string) (domain.Reservation, error) {
	return s.transition(ctx, id, domain.OpConfirm, func(ctx context.Context, r *domain.Reservation) error {
		paid, err := s.payments.SuccessfulPaymentTotal(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("read payment total: %w", err)
		}
		if paid < r.TotalAmountCents {
			return &domain.PaymentShortfallError{RequiredCents: r.TotalAmountCents, PaidCents: paid}
		}
		r.AmountPaidCents = paid
		return nil
	}, nil)
}

// CheckIn moves CONFIRMED to CHECKED_IN, rejecting attempts before the
// check-in date.
func (s *Lifecycle) CheckIn(ctx context.Context, id string) (domain.Reservation, error) {
	return s.transition(ctx, id, domain.OpCheckIn, func(_ context.Context, r *domain.Reservation) error {
		if domain.Day(s.clock.Now()).Before(r.Stay.CheckIn) {
			return &domain.ValidationError{Field: "check_in", Reason: "stay has not started yet"}
		}
		return nil
	}, nil)
}

// CheckOut completes the stay. Inventory stays consumed: the covered
// dates already elapsed.
func (s *Lifecycle) CheckOut(ctx context.Context, id string) (domain.Reservation, error) {
	return s.transition(ctx, id, domain.OpCheckOut, nil, nil)
}

// Cancel releases the reservation's inventory and records the reason.
// Only PENDING and CONFIRMED reservations are cancellable.
func (s *Lifecycle) Cancel(ctx context.Context, id, reason string) (domain.Reservation, error) {
	return s.transition(ctx, id, domain.OpCancel, func(_ context.Context, r *domain.Reservation) error {
		now := s.clock.Now()
		r.CancellationReason = reason
		r.CancelledAt = &now
		return nil
	}, s.releaseInventory)
}

// MarkNoShow releases inventory like a cancellation once the check-in
// date has passed without a check-in.
func (s *Lifecycle) MarkNoShow(ctx context.Context, id string) (domain.Reservation, error) {
	return s.transition(ctx, id, domain.OpNoShow, func(_ context.Context, r *domain.Reservation) error {
		if domain.Day(s.clock.Now()).Before(r.Stay.CheckIn) {
			return &domain.ValidationError{Field: "check_in", Reason: "check-in date has not passed"}
		}
		return nil
	}, s.releaseInventory)
}

func (s *Lifecycle) releaseInventory(ctx context.Context, r *domain.Reservation) error {
	if err := s.ledger.Release(ctx, r.HotelID, r.RoomTypeID, r.Stay, r.Units); err != nil {
		return fmt.Errorf("release inventory: %w", err)
	}
	invalidateAvailability(ctx, s.cache, r.HotelID, r.RoomTypeID)
	return nil
}

// transition loads the reservation, validates the state change, runs the
// operation's guard, persists the new state, and only then applies the
// release effect. The guard runs before anything mutates, so an illegal
// transition leaves both the reservation and the ledger untouched. The
// release runs strictly after the terminal status is durable: a failed
// update keeps the hold intact and the operation retryable, while a
// retried call against the persisted state is rejected by domain.Next
// and can never free the same units twice.
func (s *Lifecycle) transition(ctx context.Context, id string, op domain.Op, guard, release func(context.Context, *domain.Reservation) error) (domain.Reservation, error) {
	r, err := s.reservations.Get(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}

	next, err := domain.Next(r.Status, op)
	if err != nil {
		observability.ObserveTransition(string(op), "invalid")
		return domain.Reservation{}, err
	}
	if guard != nil {
		if err := guard(ctx, &r); err != nil {
			observability.ObserveTransition(string(op), "rejected")
			return domain.Reservation{}, err
		}
	}

	r.Status = next
	r.UpdatedAt = s.clock.Now()
	if err := s.reservations.Update(ctx, r); err != nil {
		observability.ObserveTransition(string(op), "error")
		return domain.Reservation{}, fmt.Errorf("persist %s: %w", op, err)
	}
	if release != nil {
		// The reservation is already terminal here; a release failure
		// leaves its units held until released out of band, which
		// over-counts but can never overbook a co-holder.
		if err := release(ctx, &r); err != nil {
			observability.ObserveTransition(string(op), "error")
			return domain.Reservation{}, err
		}
	}

	observability.ObserveTransition(string(op), "ok")
	log.Info().Str("reservation", r.ID).Str("op", string(op)).Str("status", string(r.Status)).Msg("reservation transition")
	return r, nil
}
