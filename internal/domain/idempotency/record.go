package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tesoreria/backend/internal/domain/shared"
)

// OperationType identifies the write operation an idempotency key protects
type OperationType string

const (
	OpCreateCheque          OperationType = "CREATE_CHEQUE"
	OpVoidCheque            OperationType = "VOID_CHEQUE"
	OpBounceCheque          OperationType = "BOUNCE_CHEQUE"
	OpCreateDeposit         OperationType = "CREATE_DEPOSIT"
	OpConfirmDeposit        OperationType = "CONFIRM_DEPOSIT"
	OpRejectDeposit         OperationType = "REJECT_DEPOSIT"
	OpCreateClosing         OperationType = "CREATE_CLOSING"
	OpConfirmReconciliation OperationType = "CONFIRM_RECONCILIATION"
)

// IsValid checks if the operation type is known
func (t OperationType) IsValid() bool {
	switch t {
	case OpCreateCheque, OpVoidCheque, OpBounceCheque,
		OpCreateDeposit, OpConfirmDeposit, OpRejectDeposit,
		OpCreateClosing, OpConfirmReconciliation:
		return true
	}
	return false
}

// String returns the string representation of OperationType
func (t OperationType) String() string {
	return string(t)
}

// RecordStatus is the lifecycle status of an idempotency record
type RecordStatus string

const (
	StatusInProgress RecordStatus = "IN_PROGRESS"
	StatusCompleted  RecordStatus = "COMPLETED"
	StatusFailed     RecordStatus = "FAILED"
)

// String returns the string representation of RecordStatus
func (s RecordStatus) String() string {
	return string(s)
}

// Record is the durable memory of one protected write. Unique on
// (tenant, operation, key): at most one COMPLETED record per key, and a
// concurrent request against an IN_PROGRESS record is a conflict.
// Records are never deleted by normal flow; garbage collection after a
// retention window is an operational concern.
type Record struct {
	shared.BaseEntity
	TenantID      uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_idem_tenant_op_key,priority:1"`
	OperationType OperationType `gorm:"type:varchar(50);not null;uniqueIndex:idx_idem_tenant_op_key,priority:2"`
	Key           string        `gorm:"type:varchar(128);not null;uniqueIndex:idx_idem_tenant_op_key,priority:3"`
	Status        RecordStatus  `gorm:"type:varchar(20);not null;default:'IN_PROGRESS';index"`
	ResultPayload []byte        `gorm:"type:jsonb"`
	ResultCode    int           `gorm:"not null;default:0"`
	EntityType    string        `gorm:"type:varchar(50)"`
	EntityID      *uuid.UUID    `gorm:"type:uuid"`
	CompletedAt   *time.Time
}

// TableName returns the table name for GORM
func (Record) TableName() string {
	return "idempotency_records"
}

// NewRecord opens an IN_PROGRESS record for a fresh request
func NewRecord(tenantID uuid.UUID, op OperationType, key string) (*Record, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !op.IsValid() {
		return nil, shared.NewDomainError("INVALID_OPERATION", "Unknown idempotent operation type")
	}
	if strings.TrimSpace(key) == "" {
		return nil, shared.ErrNonIdempotent
	}

	return &Record{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      tenantID,
		OperationType: op,
		Key:           strings.TrimSpace(key),
		Status:        StatusInProgress,
	}, nil
}

// Complete stores the result and closes the record
func (r *Record) Complete(payload []byte, resultCode int, entityType string, entityID *uuid.UUID) {
	now := time.Now()
	r.Status = StatusCompleted
	r.ResultPayload = payload
	r.ResultCode = resultCode
	r.EntityType = entityType
	r.EntityID = entityID
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// Fail closes the record releasing the key for a future retry
func (r *Record) Fail() {
	now := time.Now()
	r.Status = StatusFailed
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// IsStale reports whether an IN_PROGRESS record has outlived the threshold,
// which happens when the owning process crashed mid-transaction. A stale
// record may be reclaimed by a new request with the same key.
func (r *Record) IsStale(threshold time.Duration) bool {
	return r.Status == StatusInProgress && time.Since(r.CreatedAt) > threshold
}

// Reclaim reopens a stale record for the retrying request
func (r *Record) Reclaim() {
	r.Status = StatusInProgress
	r.ResultPayload = nil
	r.ResultCode = 0
	r.CompletedAt = nil
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Now()
}

// DeriveKey builds a deterministic fallback key from request content for
// clients that do not supply one, so naive retries of an identical request
// still deduplicate. Returns ErrNonIdempotent when there is no content to
// derive from.
func DeriveKey(op OperationType, tenantID uuid.UUID, content []byte) (string, error) {
	if len(content) == 0 {
		return "", shared.ErrNonIdempotent
	}
	h := sha256.New()
	h.Write([]byte(op))
	h.Write(tenantID[:])
	h.Write(content)
	return "derived-" + hex.EncodeToString(h.Sum(nil)), nil
}
