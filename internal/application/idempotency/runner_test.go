package idempotency

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tesoreria/backend/internal/domain/idempotency"
	"github.com/tesoreria/backend/internal/domain/shared"
)

// memoryRepository mimics the durable record table, including the unique
// index behavior on (tenant, operation, key)
type memoryRepository struct {
	mu      sync.Mutex
	records map[string]*idempotency.Record
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{records: make(map[string]*idempotency.Record)}
}

func recordKey(tenantID uuid.UUID, op idempotency.OperationType, key string) string {
	return tenantID.String() + "|" + op.String() + "|" + key
}

func (r *memoryRepository) Create(_ context.Context, record *idempotency.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := recordKey(record.TenantID, record.OperationType, record.Key)
	if _, ok := r.records[k]; ok {
		return shared.ErrAlreadyExists
	}
	stored := *record
	r.records[k] = &stored
	return nil
}

func (r *memoryRepository) Find(_ context.Context, tenantID uuid.UUID, op idempotency.OperationType, key string) (*idempotency.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[recordKey(tenantID, op, key)]
	if !ok {
		return nil, nil
	}
	copied := *stored
	return &copied, nil
}

func (r *memoryRepository) Update(_ context.Context, record *idempotency.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := recordKey(record.TenantID, record.OperationType, record.Key)
	if _, ok := r.records[k]; !ok {
		return shared.ErrNotFound
	}
	stored := *record
	r.records[k] = &stored
	return nil
}

func (r *memoryRepository) DeleteOlderThan(_ context.Context, retentionDays int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	var deleted int64
	for k, rec := range r.records {
		if rec.Status != idempotency.StatusInProgress && rec.CreatedAt.Before(cutoff) {
			delete(r.records, k)
			deleted++
		}
	}
	return deleted, nil
}

// blockingGate rejects every acquire after the first, simulating a
// concurrent duplicate already holding the key
type blockingGate struct {
	mu   sync.Mutex
	held map[string]bool
}

func newBlockingGate() *blockingGate {
	return &blockingGate{held: make(map[string]bool)}
}

func (g *blockingGate) TryAcquire(_ context.Context, tenantID uuid.UUID, op idempotency.OperationType, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	k := recordKey(tenantID, op, key)
	if g.held[k] {
		return false, nil
	}
	g.held[k] = true
	return true, nil
}

func (g *blockingGate) Release(_ context.Context, tenantID uuid.UUID, op idempotency.OperationType, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, recordKey(tenantID, op, key))
}

func newTestRunner(repo idempotency.Repository, gate idempotency.InFlightGate, opts ...RunnerOption) *Runner {
	return NewRunner(repo, gate, zap.NewNop(), opts...)
}

func TestRunner_FirstExecutionRunsFn(t *testing.T) {
	repo := newMemoryRepository()
	runner := newTestRunner(repo, nil)
	tenantID := uuid.New()

	calls := 0
	result, err := runner.Execute(context.Background(), tenantID, idempotency.OpCreateCheque, "key-1",
		func(ctx context.Context) (*Outcome, error) {
			calls++
			var outcome Outcome
			require.NoError(t, outcome.Store(http.StatusCreated, "cheque", uuid.New(), map[string]string{"number": "0001"}))
			return &outcome, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, result.Replayed)
	assert.Equal(t, http.StatusCreated, result.ResultCode)
	assert.JSONEq(t, `{"number":"0001"}`, string(result.Payload))
}

func TestRunner_ReplayReturnsStoredOutcomeWithoutInvokingFn(t *testing.T) {
	repo := newMemoryRepository()
	runner := newTestRunner(repo, nil)
	tenantID := uuid.New()

	calls := 0
	fn := func(ctx context.Context) (*Outcome, error) {
		calls++
		var outcome Outcome
		require.NoError(t, outcome.Store(http.StatusCreated, "deposit", uuid.New(), map[string]int{"n": calls}))
		return &outcome, nil
	}

	first, err := runner.Execute(context.Background(), tenantID, idempotency.OpCreateDeposit, "key-1", fn)
	require.NoError(t, err)
	require.False(t, first.Replayed)

	second, err := runner.Execute(context.Background(), tenantID, idempotency.OpCreateDeposit, "key-1", fn)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.ResultCode, second.ResultCode)
	assert.Equal(t, string(first.Payload), string(second.Payload))
}

func TestRunner_SameKeyDifferentTenantsExecuteIndependently(t *testing.T) {
	repo := newMemoryRepository()
	runner := newTestRunner(repo, nil)

	calls := 0
	fn := func(ctx context.Context) (*Outcome, error) {
		calls++
		var outcome Outcome
		require.NoError(t, outcome.Store(http.StatusCreated, "cheque", uuid.New(), map[string]string{}))
		return &outcome, nil
	}

	_, err := runner.Execute(context.Background(), uuid.New(), idempotency.OpCreateCheque, "shared-key", fn)
	require.NoError(t, err)
	_, err = runner.Execute(context.Background(), uuid.New(), idempotency.OpCreateCheque, "shared-key", fn)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestRunner_InFlightDuplicateConflicts(t *testing.T) {
	repo := newMemoryRepository()
	gate := newBlockingGate()
	runner := newTestRunner(repo, gate)
	tenantID := uuid.New()

	acquired, err := gate.TryAcquire(context.Background(), tenantID, idempotency.OpConfirmDeposit, "key-1")
	require.NoError(t, err)
	require.True(t, acquired)

	_, err = runner.Execute(context.Background(), tenantID, idempotency.OpConfirmDeposit, "key-1",
		func(ctx context.Context) (*Outcome, error) {
			t.Fatal("fn must not run while the key is in flight")
			return nil, nil
		})

	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestRunner_ConcurrentSameKeyExecutesExactlyOnce(t *testing.T) {
	repo := newMemoryRepository()
	runner := newTestRunner(repo, nil)
	tenantID := uuid.New()

	const attempts = 16
	var calls int32
	results := make([]*Result, attempts)
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = runner.Execute(context.Background(), tenantID, idempotency.OpConfirmDeposit, "deposit-7",
				func(ctx context.Context) (*Outcome, error) {
					atomic.AddInt32(&calls, 1)
					var outcome Outcome
					if err := outcome.Store(http.StatusOK, "deposit", uuid.New(), map[string]string{"status": "CONFIRMED"}); err != nil {
						return nil, err
					}
					return &outcome, nil
				})
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, atomic.LoadInt32(&calls))

	// Every loser is either replayed or conflicted, never a second execution
	executed, replayed, conflicted := 0, 0, 0
	for i := 0; i < attempts; i++ {
		switch {
		case errs[i] == nil && !results[i].Replayed:
			executed++
		case errs[i] == nil && results[i].Replayed:
			replayed++
		case errors.Is(errs[i], shared.ErrConflict):
			conflicted++
		default:
			t.Fatalf("attempt %d: unexpected outcome: %v", i, errs[i])
		}
	}
	assert.Equal(t, 1, executed)
	assert.Equal(t, attempts, executed+replayed+conflicted)
}

func TestRunner_ConcurrentInProgressRecordConflicts(t *testing.T) {
	repo := newMemoryRepository()
	runner := newTestRunner(repo, nil)
	tenantID := uuid.New()

	record, err := idempotency.NewRecord(tenantID, idempotency.OpVoidCheque, "key-1")
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), record))

	_, err = runner.Execute(context.Background(), tenantID, idempotency.OpVoidCheque, "key-1",
		func(ctx context.Context) (*Outcome, error) {
			t.Fatal("fn must not run against a live IN_PROGRESS record")
			return nil, nil
		})

	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestRunner_StaleInProgressRecordIsReclaimed(t *testing.T) {
	repo := newMemoryRepository()
	runner := newTestRunner(repo, nil, WithStaleness(time.Minute))
	tenantID := uuid.New()

	record, err := idempotency.NewRecord(tenantID, idempotency.OpBounceCheque, "key-1")
	require.NoError(t, err)
	record.CreatedAt = time.Now().Add(-10 * time.Minute)
	require.NoError(t, repo.Create(context.Background(), record))

	result, err := runner.Execute(context.Background(), tenantID, idempotency.OpBounceCheque, "key-1",
		func(ctx context.Context) (*Outcome, error) {
			var outcome Outcome
			require.NoError(t, outcome.Store(http.StatusOK, "cheque", uuid.New(), map[string]string{"state": "REJECTED"}))
			return &outcome, nil
		})

	require.NoError(t, err)
	assert.False(t, result.Replayed)
	assert.Equal(t, http.StatusOK, result.ResultCode)
}

func TestRunner_FailedAttemptReleasesKeyForRetry(t *testing.T) {
	repo := newMemoryRepository()
	runner := newTestRunner(repo, nil)
	tenantID := uuid.New()

	boom := errors.New("downstream unavailable")
	_, err := runner.Execute(context.Background(), tenantID, idempotency.OpCreateClosing, "key-1",
		func(ctx context.Context) (*Outcome, error) {
			return nil, boom
		})
	require.ErrorIs(t, err, boom)

	stored, err := repo.Find(context.Background(), tenantID, idempotency.OpCreateClosing, "key-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, idempotency.StatusFailed, stored.Status)

	result, err := runner.Execute(context.Background(), tenantID, idempotency.OpCreateClosing, "key-1",
		func(ctx context.Context) (*Outcome, error) {
			var outcome Outcome
			require.NoError(t, outcome.Store(http.StatusCreated, "closing", uuid.New(), map[string]bool{"ok": true}))
			return &outcome, nil
		})
	require.NoError(t, err)
	assert.False(t, result.Replayed)
	assert.Equal(t, http.StatusCreated, result.ResultCode)
}

func TestRunner_GateReleasedAfterExecution(t *testing.T) {
	repo := newMemoryRepository()
	gate := newBlockingGate()
	runner := newTestRunner(repo, gate)
	tenantID := uuid.New()

	fn := func(ctx context.Context) (*Outcome, error) {
		var outcome Outcome
		require.NoError(t, outcome.Store(http.StatusCreated, "deposit", uuid.New(), map[string]string{}))
		return &outcome, nil
	}

	first, err := runner.Execute(context.Background(), tenantID, idempotency.OpCreateDeposit, "key-1", fn)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	// The gate must not block the replay of a settled key
	second, err := runner.Execute(context.Background(), tenantID, idempotency.OpCreateDeposit, "key-1", fn)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
}

func TestResolveKey(t *testing.T) {
	tenantID := uuid.New()

	key, err := ResolveKey(idempotency.OpCreateCheque, tenantID, "client-chosen", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, "client-chosen", key)

	derived1, err := ResolveKey(idempotency.OpCreateCheque, tenantID, "", []byte(`{"a":1}`))
	require.NoError(t, err)
	derived2, err := ResolveKey(idempotency.OpCreateCheque, tenantID, "", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, derived1, derived2)

	other, err := ResolveKey(idempotency.OpCreateCheque, tenantID, "", []byte(`{"a":2}`))
	require.NoError(t, err)
	assert.NotEqual(t, derived1, other)

	_, err = ResolveKey(idempotency.OpCreateCheque, tenantID, "", nil)
	assert.ErrorIs(t, err, shared.ErrNonIdempotent)
}
