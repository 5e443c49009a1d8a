package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"fitstudio/internal/booking"
	"fitstudio/internal/catalog"
	"fitstudio/internal/session"
)

type sessionRepo struct{ s *Store }

func (r sessionRepo) Insert(ctx context.Context, sess *session.Session) error {
	return r.s.run(ctx, func(d *data) error {
		if _, ok := d.sessions[sess.ID]; ok {
			return ErrDuplicate
		}
		d.sessions[sess.ID] = *sess
		d.track(sess.ID)
		return nil
	})
}

func (r sessionRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*session.Session, error) {
	var out *session.Session
	err := r.s.run(ctx, func(d *data) error {
		sess, ok := d.sessions[id]
		if !ok || sess.TenantID != tenantID {
			return session.ErrSessionNotFound
		}
		out = &sess
		return nil
	})
	return out, err
}

// LockByID is GetByID: the transaction already holds the store lock.
func (r sessionRepo) LockByID(ctx context.Context, tenantID, id uuid.UUID) (*session.Session, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r sessionRepo) ListWithAvailability(ctx context.Context, tenantID uuid.UUID, from *time.Time) ([]session.WithAvailability, error) {
	var out []session.WithAvailability
	err := r.s.run(ctx, func(d *data) error {
		booked := map[uuid.UUID]int{}
		for _, b := range d.bookings {
			if b.Status == booking.StatusBooked {
				booked[b.SessionID]++
			}
		}

		for _, sess := range d.sessions {
			if sess.TenantID != tenantID {
				continue
			}
			if from != nil && !sess.StartsAt.After(*from) {
				continue
			}
			out = append(out, session.NewWithAvailability(sess, booked[sess.ID]))
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, err
}

type catalogRepo struct{ s *Store }

func (r catalogRepo) GetProduct(ctx context.Context, tenantID, productID uuid.UUID) (*catalog.Product, error) {
	var out *catalog.Product
	err := r.s.run(ctx, func(d *data) error {
		p, ok := d.products[productID]
		if !ok || p.TenantID != tenantID {
			return catalog.ErrProductNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

// AddProduct stores a catalog product. The catalog is managed outside this
// service, so there is no repository method for it.
func (s *Store) AddProduct(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.products[p.ID] = p
	s.d.track(p.ID)
}
