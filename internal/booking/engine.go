package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fitstudio/internal/apperr"
	"fitstudio/internal/audit"
	"fitstudio/internal/db"
	"fitstudio/internal/events"
	"fitstudio/internal/ledger"
	"fitstudio/internal/logger"
	"fitstudio/internal/metrics"
	"fitstudio/internal/session"
	"fitstudio/internal/waitlist"
)

var (
	ErrSessionUnavailable = apperr.New(apperr.ErrConflict, "session is not open for booking")
	ErrInvalidTransition  = apperr.New(apperr.ErrConflict, "booking cannot make this transition")
	ErrSessionFull        = apperr.New(apperr.ErrConflict, "session is full")
	ErrNotOwner           = apperr.New(apperr.ErrForbidden, "can only cancel own bookings")
)

type Sessions interface {
	LockByID(ctx context.Context, tenantID, id uuid.UUID) (*session.Session, error)
}

type Entitlements interface {
	Claim(ctx context.Context, tenantID, userID uuid.UUID) (ledger.Ref, error)
	ClaimAndConsume(ctx context.Context, tenantID, userID uuid.UUID) (ledger.Ref, error)
	Release(ctx context.Context, ref ledger.Ref) error
}

type Waitlist interface {
	Enqueue(ctx context.Context, tenantID, sessionID, userID uuid.UUID) (*waitlist.Entry, error)
	Head(ctx context.Context, sessionID uuid.UUID) (*waitlist.Entry, error)
	Remove(ctx context.Context, entryID uuid.UUID) error
	RemoveForUser(ctx context.Context, sessionID, userID uuid.UUID) (bool, error)
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithAudit(sink audit.Sink) Option {
	return func(e *Engine) { e.audit = sink }
}

func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.events = p }
}

// Engine runs the booking state machine. Every mutation locks the session row
// first and the user's entitlement rows second, inside one transaction.
type Engine struct {
	repo         Repository
	sessions     Sessions
	entitlements Entitlements
	waitlist     Waitlist
	tx           db.TxManager
	audit        audit.Sink
	events       events.Publisher
	now          func() time.Time
}

func NewEngine(repo Repository, sessions Sessions, entitlements Entitlements, queue Waitlist, tx db.TxManager, opts ...Option) *Engine {
	e := &Engine{
		repo:         repo,
		sessions:     sessions,
		entitlements: entitlements,
		waitlist:     queue,
		tx:           tx,
		audit:        audit.NopSink{},
		events:       events.Nop{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// change is a committed transition reported to audit and event consumers.
type change struct {
	action  string
	key     string
	booking *Booking
}

// Book admits userID into the session or queues them when it is full.
// Repeating the request returns the existing booking.
func (e *Engine) Book(ctx context.Context, tenantID, sessionID, userID uuid.UUID, source string) (*Booking, error) {
	if source == "" {
		source = SourceWeb
	}

	var (
		result  *Booking
		changed *change
	)
	err := e.tx.WithinTx(ctx, func(ctx context.Context) error {
		sess, err := e.sessions.LockByID(ctx, tenantID, sessionID)
		if err != nil {
			return err
		}

		now := e.now()
		if !sess.BookableAt(now) {
			return ErrSessionUnavailable
		}

		active, err := e.repo.CountBooked(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("count booked: %w", err)
		}

		existing, err := e.repo.FindForUser(ctx, sessionID, userID)
		switch {
		case err == nil:
			result = existing
			if existing.Status != StatusCancelled || active >= sess.Capacity {
				return nil
			}
			if err := e.admit(ctx, existing, now); err != nil {
				return err
			}
			changed = &change{action: audit.ActionBookingReactivated, key: events.BookingBooked, booking: existing}
			return nil
		case !errors.Is(err, ErrBookingNotFound):
			return fmt.Errorf("find booking: %w", err)
		}

		b := &Booking{
			ID:        uuid.New(),
			TenantID:  tenantID,
			SessionID: sessionID,
			UserID:    userID,
			Source:    source,
			BookedAt:  now,
		}

		if active >= sess.Capacity {
			if _, err := e.entitlements.Claim(ctx, tenantID, userID); err != nil {
				return err
			}
			b.Status = StatusWaitlist
			if err := e.repo.Insert(ctx, b); err != nil {
				return fmt.Errorf("insert booking: %w", err)
			}
			if _, err := e.waitlist.Enqueue(ctx, tenantID, sessionID, userID); err != nil {
				return fmt.Errorf("enqueue: %w", err)
			}
			result = b
			changed = &change{action: audit.ActionWaitlistJoined, key: events.BookingWaitlisted, booking: b}
			return nil
		}

		ref, err := e.entitlements.ClaimAndConsume(ctx, tenantID, userID)
		if err != nil {
			return err
		}
		b.Status = StatusBooked
		b.SetEntitlement(&ref)
		if err := e.repo.Insert(ctx, b); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		result = b
		changed = &change{action: audit.ActionBookingCreated, key: events.BookingBooked, booking: b}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed != nil {
		e.notify(ctx, &userID, *changed)
		metrics.RecordBooking(string(changed.booking.Status), entitlementLabel(changed.booking))
	}
	return result, nil
}

// admit claims and consumes an entitlement and moves b to booked.
func (e *Engine) admit(ctx context.Context, b *Booking, now time.Time) error {
	ref, err := e.entitlements.ClaimAndConsume(ctx, b.TenantID, b.UserID)
	if err != nil {
		return err
	}

	b.Status = StatusBooked
	b.SetEntitlement(&ref)
	b.BookedAt = now
	b.CancelledAt = nil
	if err := e.repo.Update(ctx, b); err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	return nil
}

// Cancel releases the booking's entitlement and hands the freed seat to the
// waitlist. Cancelling twice is a no-op.
func (e *Engine) Cancel(ctx context.Context, tenantID, bookingID uuid.UUID, actor Actor) (*Booking, error) {
	var (
		result   *Booking
		promoted *Booking
		changed  bool
	)
	err := e.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, sess, err := e.lockBooking(ctx, tenantID, bookingID)
		if err != nil {
			return err
		}
		if !actor.Staff && b.UserID != actor.ID {
			return ErrNotOwner
		}

		result = b
		switch b.Status {
		case StatusCancelled:
			return nil
		case StatusAttended, StatusNoShow:
			return ErrInvalidTransition
		}

		wasWaitlisted := b.Status == StatusWaitlist
		if ref := b.Entitlement(); ref != nil {
			if err := e.entitlements.Release(ctx, *ref); err != nil {
				return fmt.Errorf("release entitlement: %w", err)
			}
		}

		now := e.now()
		b.Status = StatusCancelled
		b.CancelledAt = &now
		b.SetEntitlement(nil)
		if err := e.repo.Update(ctx, b); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		changed = true

		if wasWaitlisted {
			if _, err := e.waitlist.RemoveForUser(ctx, b.SessionID, b.UserID); err != nil {
				return fmt.Errorf("remove waitlist entry: %w", err)
			}
			return nil
		}

		promoted, err = e.promote(ctx, sess)
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		e.notify(ctx, &actor.ID, change{action: audit.ActionBookingCancelled, key: events.BookingCancelled, booking: result})
		metrics.RecordBookingCancellation()
	}
	if promoted != nil {
		e.notifyPromoted(ctx, promoted)
	}
	return result, nil
}

// Promote fills a free seat from the head of the session's waitlist.
// It returns nil when nothing was promoted.
func (e *Engine) Promote(ctx context.Context, tenantID, sessionID uuid.UUID) (*Booking, error) {
	var promoted *Booking
	err := e.tx.WithinTx(ctx, func(ctx context.Context) error {
		sess, err := e.sessions.LockByID(ctx, tenantID, sessionID)
		if err != nil {
			return err
		}
		promoted, err = e.promote(ctx, sess)
		return err
	})
	if err != nil {
		return nil, err
	}

	if promoted != nil {
		e.notifyPromoted(ctx, promoted)
	}
	return promoted, nil
}

// promote must run with the session row locked. Only the head entry is
// considered: when its user has no entitlement left the queue stays as is.
func (e *Engine) promote(ctx context.Context, sess *session.Session) (*Booking, error) {
	active, err := e.repo.CountBooked(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("count booked: %w", err)
	}

	for active < sess.Capacity {
		entry, err := e.waitlist.Head(ctx, sess.ID)
		if err != nil {
			if errors.Is(err, waitlist.ErrEntryNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("waitlist head: %w", err)
		}

		b, err := e.repo.FindForUser(ctx, sess.ID, entry.UserID)
		if err != nil && !errors.Is(err, ErrBookingNotFound) {
			return nil, fmt.Errorf("find booking: %w", err)
		}
		if b == nil || b.Status != StatusWaitlist {
			logger.Warn("dropping stale waitlist entry", "entry_id", entry.ID, "session_id", sess.ID)
			if err := e.waitlist.Remove(ctx, entry.ID); err != nil {
				return nil, fmt.Errorf("remove waitlist entry: %w", err)
			}
			continue
		}

		if err := e.admit(ctx, b, e.now()); err != nil {
			if errors.Is(err, apperr.ErrNoEntitlement) {
				logger.Info("waitlist head has no entitlement", "booking_id", b.ID, "session_id", sess.ID)
				return nil, nil
			}
			return nil, err
		}

		if err := e.waitlist.Remove(ctx, entry.ID); err != nil {
			return nil, fmt.Errorf("remove waitlist entry: %w", err)
		}
		return b, nil
	}

	return nil, nil
}

// CheckIn marks a booked seat as attended.
func (e *Engine) CheckIn(ctx context.Context, tenantID, bookingID uuid.UUID, method string, actor Actor) (*Checkin, error) {
	if method == "" {
		method = "staff"
	}

	var checkin *Checkin
	b, err := e.transition(ctx, tenantID, bookingID, func(ctx context.Context, b *Booking, _ *session.Session) error {
		if b.Status != StatusBooked {
			return ErrInvalidTransition
		}

		b.Status = StatusAttended
		if err := e.repo.Update(ctx, b); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}

		checkin = &Checkin{ID: uuid.New(), BookingID: b.ID, CheckedInAt: e.now(), Method: method}
		if err := e.repo.InsertCheckin(ctx, checkin); err != nil {
			return fmt.Errorf("insert checkin: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, e.audit, audit.NewEvent(tenantID, &actor.ID, audit.ActionCheckinCreated, "booking", b.ID,
		map[string]interface{}{"method": method}))
	metrics.RecordCheckin("attended")
	return checkin, nil
}

// UndoCheckIn reverts attended to booked. The seat counts again, so the
// session must still have room.
func (e *Engine) UndoCheckIn(ctx context.Context, tenantID, bookingID uuid.UUID, actor Actor) (*Booking, error) {
	b, err := e.transition(ctx, tenantID, bookingID, func(ctx context.Context, b *Booking, sess *session.Session) error {
		if b.Status != StatusAttended {
			return ErrInvalidTransition
		}

		active, err := e.repo.CountBooked(ctx, sess.ID)
		if err != nil {
			return fmt.Errorf("count booked: %w", err)
		}
		if active >= sess.Capacity {
			return ErrSessionFull
		}

		b.Status = StatusBooked
		if err := e.repo.Update(ctx, b); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		return e.repo.DeleteCheckin(ctx, b.ID)
	})
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, e.audit, audit.NewEvent(tenantID, &actor.ID, audit.ActionCheckinDeleted, "booking", b.ID, nil))
	metrics.RecordCheckin("undone")
	return b, nil
}

// MarkNoShow forfeits the booking. The entitlement stays consumed.
func (e *Engine) MarkNoShow(ctx context.Context, tenantID, bookingID uuid.UUID, actor Actor) (*Booking, error) {
	b, err := e.transition(ctx, tenantID, bookingID, func(ctx context.Context, b *Booking, _ *session.Session) error {
		if b.Status != StatusBooked {
			return ErrInvalidTransition
		}

		b.Status = StatusNoShow
		return e.repo.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, e.audit, audit.NewEvent(tenantID, &actor.ID, audit.ActionBookingNoShow, "booking", b.ID, nil))
	metrics.RecordCheckin("no_show")
	return b, nil
}

func (e *Engine) transition(ctx context.Context, tenantID, bookingID uuid.UUID, fn func(ctx context.Context, b *Booking, sess *session.Session) error) (*Booking, error) {
	var result *Booking
	err := e.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, sess, err := e.lockBooking(ctx, tenantID, bookingID)
		if err != nil {
			return err
		}
		if err := fn(ctx, b, sess); err != nil {
			return err
		}
		result = b
		return nil
	})
	return result, err
}

// lockBooking locks the booking's session and rereads the booking under
// that lock.
func (e *Engine) lockBooking(ctx context.Context, tenantID, bookingID uuid.UUID) (*Booking, *session.Session, error) {
	b, err := e.repo.GetByID(ctx, tenantID, bookingID)
	if err != nil {
		return nil, nil, err
	}

	sess, err := e.sessions.LockByID(ctx, tenantID, b.SessionID)
	if err != nil {
		return nil, nil, err
	}

	b, err = e.repo.FindForUser(ctx, b.SessionID, b.UserID)
	if err != nil {
		return nil, nil, err
	}
	return b, sess, nil
}

// GetBooking returns a booking the caller may see. Members only see their own.
func (e *Engine) GetBooking(ctx context.Context, tenantID, bookingID uuid.UUID, actor Actor) (*Booking, error) {
	b, err := e.repo.GetByID(ctx, tenantID, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.Staff && b.UserID != actor.ID {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

func (e *Engine) ListMyBookings(ctx context.Context, tenantID, userID uuid.UUID) ([]Booking, error) {
	return e.repo.ListByUser(ctx, tenantID, userID)
}

func (e *Engine) ListSessionBookings(ctx context.Context, tenantID, sessionID uuid.UUID) ([]Booking, error) {
	return e.repo.ListBySession(ctx, tenantID, sessionID)
}

func (e *Engine) notifyPromoted(ctx context.Context, b *Booking) {
	e.notify(ctx, nil, change{action: audit.ActionWaitlistPromoted, key: events.BookingPromoted, booking: b})
	metrics.RecordPromotion()
}

func (e *Engine) notify(ctx context.Context, actorID *uuid.UUID, c change) {
	b := c.booking
	audit.Log(ctx, e.audit, audit.NewEvent(b.TenantID, actorID, c.action, "booking", b.ID,
		map[string]interface{}{"session_id": b.SessionID.String(), "status": string(b.Status)}))

	events.Emit(ctx, e.events, c.key, events.BookingEvent{
		TenantID:   b.TenantID,
		BookingID:  b.ID,
		SessionID:  b.SessionID,
		UserID:     b.UserID,
		Status:     string(b.Status),
		OccurredAt: e.now(),
	})
}

func entitlementLabel(b *Booking) string {
	if ref := b.Entitlement(); ref != nil {
		return string(ref.Kind)
	}
	return "none"
}
