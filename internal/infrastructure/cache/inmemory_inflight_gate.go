package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tesoreria/backend/internal/domain/idempotency"
)

// heldKey tracks a claimed key with expiration
type heldKey struct {
	expiresAt time.Time
}

// InMemoryInFlightGate implements InFlightGate using an in-memory map.
// This is suitable for single-instance deployments and testing.
type InMemoryInFlightGate struct {
	mu   sync.Mutex
	held map[string]heldKey
	ttl  time.Duration
}

// NewInMemoryInFlightGate creates a new in-memory in-flight gate
func NewInMemoryInFlightGate(ttl time.Duration) *InMemoryInFlightGate {
	return &InMemoryInFlightGate{
		held: make(map[string]heldKey),
		ttl:  ttl,
	}
}

// TryAcquire claims the key; false means another request holds it
func (g *InMemoryInFlightGate) TryAcquire(ctx context.Context, tenantID uuid.UUID, op idempotency.OperationType, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	gk := gateKey(tenantID, op, key)
	if h, exists := g.held[gk]; exists && time.Now().Before(h.expiresAt) {
		return false, nil
	}
	g.held[gk] = heldKey{expiresAt: time.Now().Add(g.ttl)}
	return true, nil
}

// Release frees the key
func (g *InMemoryInFlightGate) Release(ctx context.Context, tenantID uuid.UUID, op idempotency.OperationType, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, gateKey(tenantID, op, key))
}

// Size returns the number of held keys (for testing/monitoring)
func (g *InMemoryInFlightGate) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.held)
}

func gateKey(tenantID uuid.UUID, op idempotency.OperationType, key string) string {
	return tenantID.String() + ":" + string(op) + ":" + key
}

// Ensure InMemoryInFlightGate implements InFlightGate
var _ idempotency.InFlightGate = (*InMemoryInFlightGate)(nil)
