package idempotency

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for idempotency record persistence
type Repository interface {
	// Create inserts a new IN_PROGRESS record. Returns
	// shared.ErrAlreadyExists when the unique (tenant, operation, key)
	// index rejects the insert.
	Create(ctx context.Context, record *Record) error

	// Find returns the record for a key, or nil when none exists
	Find(ctx context.Context, tenantID uuid.UUID, op OperationType, key string) (*Record, error)

	// Update persists a status change on an existing record
	Update(ctx context.Context, record *Record) error

	// DeleteOlderThan removes closed records past the retention window
	DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// InFlightGate is a fast shared lock over in-flight keys, consulted before
// the durable record to cheaply reject concurrent duplicates. Best-effort:
// the durable unique index remains the source of truth.
type InFlightGate interface {
	// TryAcquire claims the key; false means another request holds it
	TryAcquire(ctx context.Context, tenantID uuid.UUID, op OperationType, key string) (bool, error)

	// Release frees the key after the durable record is settled
	Release(ctx context.Context, tenantID uuid.UUID, op OperationType, key string)
}
