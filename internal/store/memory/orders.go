package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"fitstudio/internal/order"
)

type orderRepo struct{ s *Store }

func (r orderRepo) Insert(ctx context.Context, o *order.Order) error {
	return r.s.run(ctx, func(d *data) error {
		if _, ok := d.orders[o.ID]; ok {
			return ErrDuplicate
		}
		stored := *o
		stored.Items = nil
		d.orders[o.ID] = stored
		d.track(o.ID)
		return nil
	})
}

func (r orderRepo) InsertItems(ctx context.Context, items []order.Item) error {
	return r.s.run(ctx, func(d *data) error {
		for _, it := range items {
			if _, ok := d.orders[it.OrderID]; !ok {
				return order.ErrOrderNotFound
			}
			if _, ok := d.items[it.ID]; ok {
				return ErrDuplicate
			}
			d.items[it.ID] = it
			d.track(it.ID)
		}
		return nil
	})
}

func (r orderRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*order.Order, error) {
	return r.get(ctx, id, func(o order.Order) bool { return o.TenantID == tenantID })
}

func (r orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.get(ctx, id, func(order.Order) bool { return true })
}

// LockByID is GetByID: the transaction already holds the store lock.
func (r orderRepo) LockByID(ctx context.Context, tenantID, id uuid.UUID) (*order.Order, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r orderRepo) get(ctx context.Context, id uuid.UUID, visible func(order.Order) bool) (*order.Order, error) {
	var out *order.Order
	err := r.s.run(ctx, func(d *data) error {
		o, ok := d.orders[id]
		if !ok || !visible(o) {
			return order.ErrOrderNotFound
		}
		out = &o
		return nil
	})
	return out, err
}

func (r orderRepo) Update(ctx context.Context, o *order.Order) error {
	return r.s.run(ctx, func(d *data) error {
		cur, ok := d.orders[o.ID]
		if !ok {
			return order.ErrOrderNotFound
		}
		cur.Status = o.Status
		cur.Provider = o.Provider
		cur.ProviderRef = o.ProviderRef
		cur.PaidAt = o.PaidAt
		d.orders[o.ID] = cur
		return nil
	})
}

func (r orderRepo) ListItems(ctx context.Context, orderID uuid.UUID) ([]order.Item, error) {
	var out []order.Item
	err := r.s.run(ctx, func(d *data) error {
		for _, it := range d.items {
			if it.OrderID == orderID {
				out = append(out, it)
			}
		}
		sort.Slice(out, func(i, j int) bool { return d.seq[out[i].ID] < d.seq[out[j].ID] })
		return nil
	})
	return out, err
}

func (r orderRepo) ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]order.Order, error) {
	return r.list(ctx, func(o order.Order) bool { return o.TenantID == tenantID && o.UserID == userID }, true, 0)
}

func (r orderRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]order.Order, error) {
	return r.list(ctx, func(o order.Order) bool { return o.TenantID == tenantID }, true, 0)
}

func (r orderRepo) ListPendingBefore(ctx context.Context, provider string, before time.Time, limit int) ([]order.Order, error) {
	return r.list(ctx, func(o order.Order) bool {
		return o.Status == order.StatusPending && o.Provider == provider && o.CreatedAt.Before(before)
	}, false, limit)
}

func (r orderRepo) list(ctx context.Context, keep func(order.Order) bool, newestFirst bool, limit int) ([]order.Order, error) {
	var out []order.Order
	err := r.s.run(ctx, func(d *data) error {
		for _, o := range d.orders {
			if keep(o) {
				out = append(out, o)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if newestFirst {
				return d.seq[out[i].ID] > d.seq[out[j].ID]
			}
			return d.seq[out[i].ID] < d.seq[out[j].ID]
		})
		return nil
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}
