package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"fitstudio/internal/booking"
)

type bookingRepo struct{ s *Store }

func (r bookingRepo) CountBooked(ctx context.Context, sessionID uuid.UUID) (int, error) {
	count := 0
	err := r.s.run(ctx, func(d *data) error {
		for _, b := range d.bookings {
			if b.SessionID == sessionID && b.Status == booking.StatusBooked {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r bookingRepo) FindForUser(ctx context.Context, sessionID, userID uuid.UUID) (*booking.Booking, error) {
	var out *booking.Booking
	err := r.s.run(ctx, func(d *data) error {
		for _, b := range d.bookings {
			if b.SessionID == sessionID && b.UserID == userID {
				out = &b
				return nil
			}
		}
		return booking.ErrBookingNotFound
	})
	return out, err
}

func (r bookingRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*booking.Booking, error) {
	var out *booking.Booking
	err := r.s.run(ctx, func(d *data) error {
		b, ok := d.bookings[id]
		if !ok || b.TenantID != tenantID {
			return booking.ErrBookingNotFound
		}
		out = &b
		return nil
	})
	return out, err
}

func (r bookingRepo) Insert(ctx context.Context, b *booking.Booking) error {
	return r.s.run(ctx, func(d *data) error {
		for _, other := range d.bookings {
			if other.ID == b.ID || (other.SessionID == b.SessionID && other.UserID == b.UserID) {
				return ErrDuplicate
			}
		}
		d.bookings[b.ID] = *b
		d.track(b.ID)
		return nil
	})
}

func (r bookingRepo) Update(ctx context.Context, b *booking.Booking) error {
	return r.s.run(ctx, func(d *data) error {
		cur, ok := d.bookings[b.ID]
		if !ok {
			return booking.ErrBookingNotFound
		}
		cur.Status = b.Status
		cur.CreditID = b.CreditID
		cur.MembershipID = b.MembershipID
		cur.BookedAt = b.BookedAt
		cur.CancelledAt = b.CancelledAt
		d.bookings[b.ID] = cur
		return nil
	})
}

func (r bookingRepo) ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]booking.Booking, error) {
	out, err := r.list(ctx, func(b booking.Booking) bool {
		return b.TenantID == tenantID && b.UserID == userID
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].BookedAt.After(out[j].BookedAt) })
	return out, err
}

func (r bookingRepo) ListBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]booking.Booking, error) {
	out, err := r.list(ctx, func(b booking.Booking) bool {
		return b.TenantID == tenantID && b.SessionID == sessionID
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].BookedAt.Before(out[j].BookedAt) })
	return out, err
}

func (r bookingRepo) list(ctx context.Context, keep func(booking.Booking) bool) ([]booking.Booking, error) {
	var out []booking.Booking
	err := r.s.run(ctx, func(d *data) error {
		for _, b := range d.bookings {
			if keep(b) {
				out = append(out, b)
			}
		}
		sort.Slice(out, func(i, j int) bool { return d.seq[out[i].ID] < d.seq[out[j].ID] })
		return nil
	})
	return out, err
}

func (r bookingRepo) InsertCheckin(ctx context.Context, c *booking.Checkin) error {
	return r.s.run(ctx, func(d *data) error {
		if _, ok := d.checkins[c.BookingID]; ok {
			return ErrDuplicate
		}
		d.checkins[c.BookingID] = *c
		return nil
	})
}

func (r bookingRepo) DeleteCheckin(ctx context.Context, bookingID uuid.UUID) error {
	return r.s.run(ctx, func(d *data) error {
		delete(d.checkins, bookingID)
		return nil
	})
}

// Checkin returns the check-in recorded for a booking.
func (s *Store) Checkin(bookingID uuid.UUID) (booking.Checkin, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.d.checkins[bookingID]
	return c, ok
}
