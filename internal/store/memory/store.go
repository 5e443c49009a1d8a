// Package memory is an in-process implementation of every repository. It
// backs local runs without PostgreSQL and the end-to-end service tests.
//
// The store is single-writer: a transaction holds one mutex for its whole
// duration, which gives the same serialization the row locks give in
// PostgreSQL. A failed transaction restores the snapshot taken when it began.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"

	"fitstudio/internal/apperr"
	"fitstudio/internal/booking"
	"fitstudio/internal/catalog"
	"fitstudio/internal/ledger"
	"fitstudio/internal/order"
	"fitstudio/internal/session"
	"fitstudio/internal/waitlist"
)

var ErrDuplicate = apperr.New(apperr.ErrConflict, "duplicate key")

type data struct {
	products    map[uuid.UUID]catalog.Product
	sessions    map[uuid.UUID]session.Session
	bookings    map[uuid.UUID]booking.Booking
	checkins    map[uuid.UUID]booking.Checkin
	credits     map[uuid.UUID]ledger.Credit
	memberships map[uuid.UUID]ledger.Membership
	entries     map[uuid.UUID]waitlist.Entry
	orders      map[uuid.UUID]order.Order
	items       map[uuid.UUID]order.Item
	// waitlistSeq is the last waitlist position handed out per session.
	waitlistSeq map[uuid.UUID]int
	// seq records insertion order, which breaks ties between equal timestamps.
	seq  map[uuid.UUID]int64
	next int64
}

func newData() *data {
	return &data{
		products:    map[uuid.UUID]catalog.Product{},
		sessions:    map[uuid.UUID]session.Session{},
		bookings:    map[uuid.UUID]booking.Booking{},
		checkins:    map[uuid.UUID]booking.Checkin{},
		credits:     map[uuid.UUID]ledger.Credit{},
		memberships: map[uuid.UUID]ledger.Membership{},
		entries:     map[uuid.UUID]waitlist.Entry{},
		orders:      map[uuid.UUID]order.Order{},
		items:       map[uuid.UUID]order.Item{},
		waitlistSeq: map[uuid.UUID]int{},
		seq:         map[uuid.UUID]int64{},
	}
}

func (d *data) clone() *data {
	return &data{
		products:    maps.Clone(d.products),
		sessions:    maps.Clone(d.sessions),
		bookings:    maps.Clone(d.bookings),
		checkins:    maps.Clone(d.checkins),
		credits:     maps.Clone(d.credits),
		memberships: maps.Clone(d.memberships),
		entries:     maps.Clone(d.entries),
		orders:      maps.Clone(d.orders),
		items:       maps.Clone(d.items),
		waitlistSeq: maps.Clone(d.waitlistSeq),
		seq:         maps.Clone(d.seq),
		next:        d.next,
	}
}

func (d *data) track(id uuid.UUID) {
	d.next++
	d.seq[id] = d.next
}

type txKey struct{}

// Store holds all rows. It implements db.TxManager.
type Store struct {
	mu sync.Mutex
	d  *data
}

func New() *Store {
	return &Store{d: newData()}
}

// WithinTx runs fn holding the store lock. Nested calls join the outer
// transaction. An error or panic restores the state from before the call.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	defer func() {
		if p := recover(); p != nil {
			s.d = snapshot
			panic(p)
		} else if err != nil {
			s.d = snapshot
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, true))
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// run gives fn the data, taking the lock unless ctx already holds it.
func (s *Store) run(ctx context.Context, fn func(d *data) error) error {
	if inTx(ctx) {
		return fn(s.d)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.d)
}

func (s *Store) Sessions() session.Repository { return sessionRepo{s} }
func (s *Store) Bookings() booking.Repository { return bookingRepo{s} }
func (s *Store) Ledger() ledger.Repository { return ledgerRepo{s} }
func (s *Store) Waitlist() waitlist.Repository { return waitlistRepo{s} }
func (s *Store) Orders() order.Repository { return orderRepo{s} }
func (s *Store) Catalog() catalog.Lookup { return catalogRepo{s} }
