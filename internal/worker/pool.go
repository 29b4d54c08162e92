package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rentalcash/internal/dto"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueOrphanRepair = "jobs:orphan_repair"

	JobOrphanRepair = "orphan_repair"

	// MaxJobAttempts is how many times a job runs before it goes to the DLQ.
	MaxJobAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// pusher is the slice of *redis.Client used to enqueue.
type pusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// queueClient is what the Dispatcher needs from Redis.
type queueClient interface {
	pusher
	dlqReader
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb queueClient
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueOrphanRepair queues a repair run. uuid.Nil means every store.
func (d *Dispatcher) EnqueueOrphanRepair(ctx context.Context, storeID, userID uuid.UUID) error {
	payload := RepairJobPayload{RequestedBy: userID.String()}
	if storeID != uuid.Nil {
		payload.StoreID = storeID.String()
	}
	return d.enqueue(ctx, QueueOrphanRepair, Job{Type: JobOrphanRepair}, payload)
}

// DeadLetters reports the orphan repair DLQ: its size and the newest limit entries.
func (d *Dispatcher) DeadLetters(ctx context.Context, limit int64) (*dto.DeadLetterResponse, error) {
	total, err := DLQLength(ctx, d.rdb, QueueOrphanRepair)
	if err != nil {
		return nil, err
	}
	entries, err := DLQEntries(ctx, d.rdb, QueueOrphanRepair, limit)
	if err != nil {
		return nil, err
	}
	resp := &dto.DeadLetterResponse{Queue: QueueOrphanRepair, Total: total, Data: make([]dto.DeadLetter, 0, len(entries))}
	for _, e := range entries {
		resp.Data = append(resp.Data, dto.DeadLetter{
			JobType:  e.JobType,
			Payload:  e.Payload,
			Reason:   e.Reason,
			FailedAt: e.FailedAt,
			Attempts: e.Attempts,
		})
	}
	return resp, nil
}

func (d *Dispatcher) enqueue(ctx context.Context, queue string, job Job, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job.Payload = data
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// JobHandler processes one job payload. A returned error schedules a retry.
type JobHandler interface {
	Handle(ctx context.Context, payload json.RawMessage) error
}

// Handlers maps job types to their handler.
type Handlers map[string]JobHandler

// StartWorkerPool launches numWorkers goroutines consuming the job queues.
// Each goroutine blocks on BRPOP, zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers Handlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers Handlers, id int) {
	queues := []string{QueueOrphanRepair}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop, waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

// processJob runs one raw job. Failures are re-queued with Attempts+1 until
// MaxJobAttempts, then moved to the DLQ.
func processJob(ctx context.Context, rdb pusher, handlers Handlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, rdb, queue, "unknown", json.RawMessage(fmt.Sprintf("%q", raw)), "malformed job: "+err.Error(), 0)
		return
	}
	h, ok := handlers[job.Type]
	if !ok {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, "no handler for job type", job.Attempts)
		return
	}

	job.Attempts++
	err := h.Handle(ctx, job.Payload)
	if err == nil {
		log.Info().Str("type", job.Type).Str("queue", queue).Int("attempt", job.Attempts).Msg("job processed")
		return
	}

	if job.Attempts >= MaxJobAttempts {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload,
			fmt.Sprintf("max attempts (%d) exceeded: %s", MaxJobAttempts, err), job.Attempts)
		return
	}
	log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).Msg("job failed, re-queued")
	encoded, mErr := json.Marshal(job)
	if mErr != nil {
		log.Error().Err(mErr).Msg("failed to marshal job for retry")
		return
	}
	if pErr := rdb.LPush(ctx, queue, encoded).Err(); pErr != nil {
		log.Error().Err(pErr).Str("queue", queue).Msg("failed to re-queue job")
	}
}
