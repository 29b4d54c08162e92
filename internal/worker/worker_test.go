package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"rentalcash/internal/dto"
	"rentalcash/internal/infra"
	"rentalcash/internal/tenant"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis records LPush calls.
type fakeRedis struct {
	mu     sync.Mutex
	pushed map[string][]string
}

func newFakeRedis() *fakeRedis { return &fakeRedis{pushed: map[string][]string{}} }

func (f *fakeRedis) LPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range values {
		switch b := v.(type) {
		case []byte:
			f.pushed[key] = append(f.pushed[key], string(b))
		case string:
			f.pushed[key] = append(f.pushed[key], b)
		}
	}
	return redis.NewIntResult(int64(len(f.pushed[key])), nil)
}

// LRange reads newest first, like a list fed by LPUSH.
func (f *fakeRedis) LRange(_ context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.pushed[key]
	newest := make([]string, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		newest = append(newest, list[i])
	}
	if stop >= int64(len(newest)) {
		stop = int64(len(newest)) - 1
	}
	if start > stop {
		return redis.NewStringSliceResult([]string{}, nil)
	}
	return redis.NewStringSliceResult(newest[start:stop+1], nil)
}

func (f *fakeRedis) LLen(_ context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	return redis.NewIntResult(int64(len(f.pushed[key])), nil)
}

type fakeRepair struct {
	mu      sync.Mutex
	stores  []uuid.UUID
	fail    map[uuid.UUID]error
	scopes  []tenant.Scope
	fixedBy int
}

func (f *fakeRepair) FindOrphans(context.Context, tenant.Scope) ([]dto.Orphan, error) {
	return nil, nil
}

func (f *fakeRepair) Repair(_ context.Context, scope tenant.Scope, _ uuid.UUID) (*dto.RepairResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scopes = append(f.scopes, scope)
	if id, ok := scope.StoreID(); ok && f.fail[id] != nil {
		return nil, f.fail[id]
	}
	return &dto.RepairResult{TotalOrphansFound: f.fixedBy, FixedCount: f.fixedBy, Errors: []string{}}, nil
}

func (f *fakeRepair) Stores(context.Context) ([]uuid.UUID, error) { return f.stores, nil }

type handlerFunc func(ctx context.Context, payload json.RawMessage) error

func (h handlerFunc) Handle(ctx context.Context, payload json.RawMessage) error { return h(ctx, payload) }

func TestDispatcher_EnqueueOrphanRepair(t *testing.T) {
	rdb := newFakeRedis()
	d := &Dispatcher{rdb: rdb}
	store, user := uuid.New(), uuid.New()

	require.NoError(t, d.EnqueueOrphanRepair(context.Background(), store, user))
	require.NoError(t, d.EnqueueOrphanRepair(context.Background(), uuid.Nil, user))

	raws := rdb.pushed[QueueOrphanRepair]
	require.Len(t, raws, 2)

	var job Job
	require.NoError(t, json.Unmarshal([]byte(raws[0]), &job))
	assert.Equal(t, JobOrphanRepair, job.Type)
	var p RepairJobPayload
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	assert.Equal(t, store.String(), p.StoreID)
	assert.Equal(t, user.String(), p.RequestedBy)

	job, p = Job{}, RepairJobPayload{}
	require.NoError(t, json.Unmarshal([]byte(raws[1]), &job))
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	assert.Empty(t, p.StoreID)
	assert.Equal(t, user.String(), p.RequestedBy)
}

func TestProcessJob_RetriesThenDeadLetters(t *testing.T) {
	rdb := newFakeRedis()
	calls := 0
	handlers := Handlers{JobOrphanRepair: handlerFunc(func(context.Context, json.RawMessage) error {
		calls++
		return errors.New("database unavailable")
	})}

	raw, _ := json.Marshal(Job{Type: JobOrphanRepair, Payload: json.RawMessage(`{}`)})
	processJob(context.Background(), rdb, handlers, QueueOrphanRepair, string(raw))

	// first failure is re-queued with the attempt counted
	require.Len(t, rdb.pushed[QueueOrphanRepair], 1)
	var job Job
	require.NoError(t, json.Unmarshal([]byte(rdb.pushed[QueueOrphanRepair][0]), &job))
	assert.Equal(t, 1, job.Attempts)

	job.Attempts = MaxJobAttempts - 1
	raw, _ = json.Marshal(job)
	processJob(context.Background(), rdb, handlers, QueueOrphanRepair, string(raw))

	require.Len(t, rdb.pushed[DLQPrefix+QueueOrphanRepair], 1)
	var entry DLQEntry
	require.NoError(t, json.Unmarshal([]byte(rdb.pushed[DLQPrefix+QueueOrphanRepair][0]), &entry))
	assert.Equal(t, MaxJobAttempts, entry.Attempts)
	assert.Equal(t, JobOrphanRepair, entry.JobType)
	assert.Contains(t, entry.Reason, "database unavailable")
	assert.Equal(t, 2, calls)
}

func TestDispatcher_DeadLetters(t *testing.T) {
	rdb := newFakeRedis()
	d := &Dispatcher{rdb: rdb}
	ctx := context.Background()

	empty, err := d.DeadLetters(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Empty(t, empty.Data)

	processJob(ctx, rdb, Handlers{}, QueueOrphanRepair, `{"type":"first","payload":{}}`)
	processJob(ctx, rdb, Handlers{}, QueueOrphanRepair, `{"type":"second","payload":{}}`)

	got, err := d.DeadLetters(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, QueueOrphanRepair, got.Queue)
	assert.EqualValues(t, 2, got.Total)
	require.Len(t, got.Data, 1)
	assert.Equal(t, "second", got.Data[0].JobType)
	assert.Equal(t, "no handler for job type", got.Data[0].Reason)
}

func TestProcessJob_UnknownAndMalformed(t *testing.T) {
	rdb := newFakeRedis()
	processJob(context.Background(), rdb, Handlers{}, QueueOrphanRepair, `{"type":"nope","payload":{}}`)
	processJob(context.Background(), rdb, Handlers{}, QueueOrphanRepair, `not json`)

	assert.Len(t, rdb.pushed[DLQPrefix+QueueOrphanRepair], 2)
	assert.Empty(t, rdb.pushed[QueueOrphanRepair])
}

func TestRepairWorker_Handle(t *testing.T) {
	svc := &fakeRepair{}
	w := NewRepairWorker(svc)
	store := uuid.New()

	require.NoError(t, w.Handle(context.Background(), json.RawMessage(`{"store_id":"`+store.String()+`"}`)))
	require.NoError(t, w.Handle(context.Background(), json.RawMessage(`{}`)))
	// malformed payloads are dropped, not retried
	require.NoError(t, w.Handle(context.Background(), json.RawMessage(`{"store_id":"x"}`)))

	require.Len(t, svc.scopes, 2)
	assert.True(t, svc.scopes[0].Allows(store))
	assert.False(t, svc.scopes[0].IsPlatform())
	assert.True(t, svc.scopes[1].IsPlatform())
}

func TestRepairWorker_HandleReturnsServiceError(t *testing.T) {
	store := uuid.New()
	svc := &fakeRepair{fail: map[uuid.UUID]error{store: errors.New("boom")}}
	err := NewRepairWorker(svc).Handle(context.Background(), json.RawMessage(`{"store_id":"`+store.String()+`"}`))
	assert.Error(t, err)
}

func TestRunRepairTick_BreakerIsolatesFailingStore(t *testing.T) {
	good, bad := uuid.New(), uuid.New()
	svc := &fakeRepair{
		stores:  []uuid.UUID{good, bad},
		fail:    map[uuid.UUID]error{bad: errors.New("boom")},
		fixedBy: 2,
	}
	cfg := RepairCronConfig{
		Repair:   svc,
		Breakers: infra.NewBreakerSet(infra.CircuitBreakerConfig{FailureThreshold: 1}),
	}

	assert.Equal(t, 2, runRepairTick(context.Background(), cfg))
	assert.Equal(t, infra.CBOpen, cfg.Breakers.For(bad.String()).State())
	assert.Equal(t, infra.CBClosed, cfg.Breakers.For(good.String()).State())
	assert.Equal(t, []string{bad.String()}, openBreakers(cfg.Breakers.States()))

	// the open breaker skips the failing store on the next tick
	svc.scopes = nil
	assert.Equal(t, 2, runRepairTick(context.Background(), cfg))
	require.Len(t, svc.scopes, 1)
	assert.True(t, svc.scopes[0].Allows(good))
}
