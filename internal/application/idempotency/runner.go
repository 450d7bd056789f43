// Package idempotency coordinates the durable record and the in-flight gate
// so protected write operations execute at most once per key.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tesoreria/backend/internal/domain/idempotency"
	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultStaleness is how long an IN_PROGRESS record blocks a key before a
// retry may reclaim it. A crashed process cannot mark its record FAILED, so
// without reclamation the key would deadlock forever.
const DefaultStaleness = 5 * time.Minute

// Outcome is what a protected operation produces for replay storage
type Outcome struct {
	Payload    []byte
	ResultCode int
	EntityType string
	EntityID   *uuid.UUID
}

// Store marshals body as the replayable payload of the operation
func (o *Outcome) Store(resultCode int, entityType string, entityID uuid.UUID, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	id := entityID
	o.Payload = payload
	o.ResultCode = resultCode
	o.EntityType = entityType
	o.EntityID = &id
	return nil
}

// Result is what the runner hands back to the transport layer. Replayed
// distinguishes "already done" from "just did it"; both carry the same body.
type Result struct {
	Payload    []byte
	ResultCode int
	Replayed   bool
}

// Runner wraps business transactions between begin and complete/fail on the
// durable idempotency record. The in-flight gate is a fast pre-check only;
// the unique index on the record table is the source of truth.
type Runner struct {
	repo      idempotency.Repository
	gate      idempotency.InFlightGate
	staleness time.Duration
	logger    *zap.Logger
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithStaleness overrides the IN_PROGRESS reclamation threshold
func WithStaleness(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.staleness = d
	}
}

// NewRunner creates a Runner. The gate may be nil, in which case only the
// durable record serializes duplicates.
func NewRunner(repo idempotency.Repository, gate idempotency.InFlightGate, logger *zap.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		repo:      repo,
		gate:      gate,
		staleness: DefaultStaleness,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs fn exactly once for the given (tenant, operation, key).
// A replay of a COMPLETED key returns the stored outcome without invoking
// fn. A concurrent duplicate observes shared.ErrConflict. When fn fails the
// record is marked FAILED so a legitimate retry can proceed.
func (r *Runner) Execute(
	ctx context.Context,
	tenantID uuid.UUID,
	op idempotency.OperationType,
	key string,
	fn func(ctx context.Context) (*Outcome, error),
) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "idempotency", "execute")
	defer span.End()
	telemetry.SetAttributes(span, "operation", op.String(), "key", key)

	if r.gate != nil {
		acquired, err := r.gate.TryAcquire(ctx, tenantID, op, key)
		if err != nil {
			// Gate unavailable: fall through to the durable record
			r.logger.Warn("in-flight gate unavailable, relying on durable record",
				zap.String("operation", op.String()),
				zap.Error(err))
		} else if !acquired {
			telemetry.AddEvent(span, "duplicate_in_flight")
			return nil, shared.ErrConflict
		} else {
			defer r.gate.Release(ctx, tenantID, op, key)
		}
	}

	record, replay, err := r.begin(ctx, tenantID, op, key)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if replay != nil {
		telemetry.AddEvent(span, "replayed")
		return replay, nil
	}

	outcome, err := fn(ctx)
	if err != nil {
		record.Fail()
		if updateErr := r.repo.Update(ctx, record); updateErr != nil {
			r.logger.Error("failed to mark idempotency record failed",
				zap.String("operation", op.String()),
				zap.String("key", key),
				zap.Error(updateErr))
		}
		return nil, err
	}

	record.Complete(outcome.Payload, outcome.ResultCode, outcome.EntityType, outcome.EntityID)
	if err := r.repo.Update(ctx, record); err != nil {
		// The business transaction committed; surface the result anyway
		r.logger.Error("failed to complete idempotency record",
			zap.String("operation", op.String()),
			zap.String("key", key),
			zap.Error(err))
	}

	return &Result{
		Payload:    outcome.Payload,
		ResultCode: outcome.ResultCode,
		Replayed:   false,
	}, nil
}

// begin opens or adjudicates the record for the key. Exactly one of
// (record, replay) is non-nil on success.
func (r *Runner) begin(
	ctx context.Context,
	tenantID uuid.UUID,
	op idempotency.OperationType,
	key string,
) (*idempotency.Record, *Result, error) {
	existing, err := r.repo.Find(ctx, tenantID, op, key)
	if err != nil {
		return nil, nil, err
	}

	if existing == nil {
		record, err := idempotency.NewRecord(tenantID, op, key)
		if err != nil {
			return nil, nil, err
		}
		if err := r.repo.Create(ctx, record); err != nil {
			if errors.Is(err, shared.ErrAlreadyExists) {
				// Lost the insert race; adjudicate against the winner
				winner, findErr := r.repo.Find(ctx, tenantID, op, key)
				if findErr != nil {
					return nil, nil, findErr
				}
				if winner == nil {
					return nil, nil, shared.ErrConflict
				}
				return r.adjudicate(ctx, winner)
			}
			return nil, nil, err
		}
		return record, nil, nil
	}

	return r.adjudicate(ctx, existing)
}

func (r *Runner) adjudicate(ctx context.Context, record *idempotency.Record) (*idempotency.Record, *Result, error) {
	switch record.Status {
	case idempotency.StatusCompleted:
		return nil, &Result{
			Payload:    record.ResultPayload,
			ResultCode: record.ResultCode,
			Replayed:   true,
		}, nil

	case idempotency.StatusFailed:
		record.Reclaim()
		if err := r.repo.Update(ctx, record); err != nil {
			return nil, nil, err
		}
		return record, nil, nil

	default: // IN_PROGRESS
		if !record.IsStale(r.staleness) {
			return nil, nil, shared.ErrConflict
		}
		r.logger.Warn("reclaiming stale idempotency record",
			zap.String("operation", record.OperationType.String()),
			zap.String("key", record.Key),
			zap.Time("started_at", record.CreatedAt))
		record.Reclaim()
		if err := r.repo.Update(ctx, record); err != nil {
			return nil, nil, err
		}
		return record, nil, nil
	}
}

// ResolveKey returns the caller-supplied key when present, otherwise derives
// a deterministic fallback from the request content.
func ResolveKey(op idempotency.OperationType, tenantID uuid.UUID, headerKey string, content []byte) (string, error) {
	if headerKey != "" {
		return headerKey, nil
	}
	return idempotency.DeriveKey(op, tenantID, content)
}
