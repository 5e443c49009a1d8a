package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"fitstudio/internal/waitlist"
)

type waitlistRepo struct{ s *Store }

func (r waitlistRepo) NextPosition(ctx context.Context, sessionID uuid.UUID) (int, error) {
	next := 0
	err := r.s.run(ctx, func(d *data) error {
		next = d.waitlistSeq[sessionID]
		for _, e := range d.entries {
			if e.SessionID == sessionID && e.Position > next {
				next = e.Position
			}
		}
		next++
		d.waitlistSeq[sessionID] = next
		return nil
	})
	return next, err
}

func (r waitlistRepo) Insert(ctx context.Context, e *waitlist.Entry) error {
	return r.s.run(ctx, func(d *data) error {
		for _, other := range d.entries {
			if other.SessionID != e.SessionID {
				continue
			}
			if other.UserID == e.UserID || other.Position == e.Position {
				return ErrDuplicate
			}
		}
		d.entries[e.ID] = *e
		d.track(e.ID)
		return nil
	})
}

func (r waitlistRepo) Head(ctx context.Context, sessionID uuid.UUID) (*waitlist.Entry, error) {
	var out *waitlist.Entry
	err := r.s.run(ctx, func(d *data) error {
		for _, e := range d.entries {
			if e.SessionID != sessionID {
				continue
			}
			if out == nil || e.Position < out.Position {
				head := e
				out = &head
			}
		}
		if out == nil {
			return waitlist.ErrEntryNotFound
		}
		return nil
	})
	return out, err
}

func (r waitlistRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.run(ctx, func(d *data) error {
		if _, ok := d.entries[id]; !ok {
			return waitlist.ErrEntryNotFound
		}
		delete(d.entries, id)
		return nil
	})
}

func (r waitlistRepo) DeleteForUser(ctx context.Context, sessionID, userID uuid.UUID) (bool, error) {
	removed := false
	err := r.s.run(ctx, func(d *data) error {
		for id, e := range d.entries {
			if e.SessionID == sessionID && e.UserID == userID {
				delete(d.entries, id)
				removed = true
			}
		}
		return nil
	})
	return removed, err
}

func (r waitlistRepo) ListBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]waitlist.Entry, error) {
	var out []waitlist.Entry
	err := r.s.run(ctx, func(d *data) error {
		for _, e := range d.entries {
			if e.TenantID == tenantID && e.SessionID == sessionID {
				out = append(out, e)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, err
}

func (r waitlistRepo) ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]waitlist.Ranked, error) {
	var out []waitlist.Ranked
	err := r.s.run(ctx, func(d *data) error {
		for _, e := range d.entries {
			if e.TenantID != tenantID || e.UserID != userID {
				continue
			}
			rank := 0
			for _, other := range d.entries {
				if other.SessionID == e.SessionID && other.Position <= e.Position {
					rank++
				}
			}
			out = append(out, waitlist.Ranked{Entry: e, Rank: rank})
		}
		sort.Slice(out, func(i, j int) bool { return d.seq[out[i].ID] > d.seq[out[j].ID] })
		return nil
	})
	return out, err
}
