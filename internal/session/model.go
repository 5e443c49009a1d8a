package session

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
	StatusDone      Status = "done"
)

type Session struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	TenantID  uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	ClassType string     `db:"class_type" json:"class_type"`
	StartsAt  time.Time  `db:"starts_at" json:"starts_at"`
	EndsAt    *time.Time `db:"ends_at" json:"ends_at,omitempty"`
	Capacity  int        `db:"capacity" json:"capacity"`
	Status    Status     `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// BookableAt reports whether new bookings may be admitted at now.
func (s Session) BookableAt(now time.Time) bool {
	return s.Status == StatusScheduled && s.StartsAt.After(now)
}

type WithAvailability struct {
	Session
	BookedCount int  `db:"booked_count" json:"booked_count"`
	Available   int  `db:"-" json:"available"`
	IsFull      bool `db:"-" json:"is_full"`
}

// NewWithAvailability derives the free seats of s from its booked count.
func NewWithAvailability(s Session, booked int) WithAvailability {
	w := WithAvailability{Session: s, BookedCount: booked}
	w.fill()
	return w
}

func (w *WithAvailability) fill() {
	w.Available = w.Capacity - w.BookedCount
	if w.Available < 0 {
		w.Available = 0
	}
	w.IsFull = w.BookedCount >= w.Capacity
}

type CreateRequest struct {
	ClassType string `json:"class_type" binding:"required"`
	StartsAt  string `json:"starts_at" binding:"required"`
	EndsAt    string `json:"ends_at"`
	Capacity  int    `json:"capacity" binding:"required,min=1"`
}
