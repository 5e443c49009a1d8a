package waitlist

import (
	"time"

	"github.com/google/uuid"
)

// Entry holds a user's place in a session's queue. Positions only grow and
// are never renumbered, so gaps are expected after removals.
type Entry struct {
	ID        uuid.UUID `db:"id" json:"id"`
	TenantID  uuid.UUID `db:"tenant_id" json:"tenant_id"`
	SessionID uuid.UUID `db:"session_id" json:"session_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Ranked is an entry with its 1-based place among the entries still queued.
type Ranked struct {
	Entry
	Rank int `db:"rank" json:"rank"`
}
