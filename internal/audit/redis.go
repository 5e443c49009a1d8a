package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"fitstudio/internal/logger"
	"fitstudio/internal/metrics"
)

const maxTries = 3

type job struct {
	Event Event `json:"event"`
	Tries int   `json:"tries"`
}

// RedisSink queues events on a redis list for the Drainer.
type RedisSink struct {
	redis *redis.Client
	queue string
}

func NewRedisSink(client *redis.Client, queue string) *RedisSink {
	return &RedisSink{redis: client, queue: queue}
}

func (s *RedisSink) Record(ctx context.Context, ev Event) error {
	data, err := json.Marshal(job{Event: ev})
	if err != nil {
		return err
	}

	if err := s.redis.LPush(ctx, s.queue, string(data)).Err(); err != nil {
		return err
	}

	logger.Debug("audit event queued", "action", ev.Action, "entity_id", ev.EntityID)
	return nil
}

// Drainer moves queued events into the Store. Events that keep failing are
// parked on "<queue>:failed".
type Drainer struct {
	redis      *redis.Client
	store      Store
	queue      string
	retryDelay time.Duration
}

func NewDrainer(client *redis.Client, store Store, queue string) *Drainer {
	return &Drainer{redis: client, store: store, queue: queue, retryDelay: 5 * time.Second}
}

func (d *Drainer) Start(ctx context.Context) {
	logger.Info("Audit drainer started", "queue", d.queue)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Audit drainer stopped")
			return
		default:
			d.processNext(ctx)
		}
	}
}

func (d *Drainer) processNext(ctx context.Context) {
	result, err := d.redis.BRPop(ctx, 2*time.Second, d.queue).Result()
	if err != nil {
		return
	}

	var j job
	if err := json.Unmarshal([]byte(result[1]), &j); err != nil {
		logger.Errorf("Bad audit event data: %v", err)
		return
	}

	j.Tries++
	if err := d.store.Insert(ctx, j.Event); err != nil {
		logger.Errorf("Failed to store audit event %s: %v", j.Event.ID, err)
		metrics.RecordAuditEvent("failed")

		if j.Tries < maxTries {
			time.Sleep(d.retryDelay)
			data, _ := json.Marshal(j)
			d.redis.LPush(context.Background(), d.queue, string(data))
		} else {
			d.saveFailed(j, err)
		}
		return
	}

	metrics.RecordAuditEvent("stored")
}

func (d *Drainer) saveFailed(j job, err error) {
	failed := map[string]interface{}{
		"job":   j,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	d.redis.LPush(context.Background(), d.queue+":failed", string(data))
	logger.Errorf("Audit event %s moved to failed queue", j.Event.ID)
}

func (d *Drainer) QueueLength(ctx context.Context) int64 {
	length, _ := d.redis.LLen(ctx, d.queue).Result()
	metrics.AuditQueueLength.Set(float64(length))
	return length
}
