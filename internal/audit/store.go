package audit

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"
)

type Store interface {
	Insert(ctx context.Context, ev Event) error
}

type store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) Store {
	return &store{db: db}
}

// Insert ignores duplicates so a retried event is stored once.
func (s *store) Insert(ctx context.Context, ev Event) error {
	meta := []byte("{}")
	if ev.Meta != nil {
		var err error
		if meta, err = json.Marshal(ev.Meta); err != nil {
			return err
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, tenant_id, actor_id, action, entity, entity_id, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, ev.ID, ev.TenantID, ev.ActorID, ev.Action, ev.Entity, ev.EntityID, meta, ev.CreatedAt)
	return err
}
