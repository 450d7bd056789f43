package treasury

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/domain/treasury"
	"github.com/tesoreria/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ReconciliationService matches imported bank statement lines against
// internal payments. Scoring runs read-only over durable data; only the
// explicit confirm step mutates state, and the pattern learning that
// follows a confirm is advisory and never fails the match.
type ReconciliationService struct {
	bankMovementRepo treasury.BankMovementRepository
	paymentRepo      treasury.PaymentRepository
	patternRepo      treasury.PatternRepository
	txScope          TransactionScope
	cfg              treasury.MatcherConfig
	publisher        shared.EventPublisher
	logger           *zap.Logger
}

// ReconciliationServiceOption configures a ReconciliationService
type ReconciliationServiceOption func(*ReconciliationService)

// WithMatcherConfig overrides the scoring constants
func WithMatcherConfig(cfg treasury.MatcherConfig) ReconciliationServiceOption {
	return func(s *ReconciliationService) {
		s.cfg = cfg
	}
}

// WithReconciliationEventPublisher sets the event publisher
func WithReconciliationEventPublisher(p shared.EventPublisher) ReconciliationServiceOption {
	return func(s *ReconciliationService) {
		s.publisher = p
	}
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	bankMovementRepo treasury.BankMovementRepository,
	paymentRepo treasury.PaymentRepository,
	patternRepo treasury.PatternRepository,
	txScope TransactionScope,
	logger *zap.Logger,
	opts ...ReconciliationServiceOption,
) *ReconciliationService {
	s := &ReconciliationService{
		bankMovementRepo: bankMovementRepo,
		paymentRepo:      paymentRepo,
		patternRepo:      patternRepo,
		txScope:          txScope,
		cfg:              treasury.DefaultMatcherConfig(),
		logger:           logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ImportBankMovements records a batch of statement lines as PENDING.
// Lines that fail validation are skipped and reported back.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  []string `json:"skipped,omitempty"`
}

// ImportBankMovements saves externally reported statement lines
func (s *ReconciliationService) ImportBankMovements(ctx context.Context, tenantID uuid.UUID, inputs []treasury.NewBankMovementInput) (*ImportResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "import")
	defer span.End()
	telemetry.SetAttributes(span, "line_count", len(inputs))

	result := &ImportResult{}
	for i, input := range inputs {
		movement, err := treasury.NewBankMovement(tenantID, input)
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("line %d: %v", i+1, err))
			continue
		}
		if err := s.bankMovementRepo.Save(ctx, movement); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to save statement line %d: %w", i+1, err)
		}
		result.Imported++
	}

	s.logger.Info("bank statement imported",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", len(result.Skipped)))

	return result, nil
}

// RegisterPayment records an internal payment as a reconciliation candidate
func (s *ReconciliationService) RegisterPayment(ctx context.Context, tenantID uuid.UUID, input treasury.NewPaymentInput) (*treasury.Payment, error) {
	payment, err := treasury.NewPayment(tenantID, input)
	if err != nil {
		return nil, err
	}
	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}
	return payment, nil
}

// ListBankMovements lists statement lines matching the filter
func (s *ReconciliationService) ListBankMovements(ctx context.Context, tenantID uuid.UUID, filter treasury.BankMovementFilter) ([]*treasury.BankMovement, int64, error) {
	return s.bankMovementRepo.FindAllForTenant(ctx, tenantID, filter)
}

// GetSuggestions scores every candidate payment against every pending
// statement line and returns ranked suggestions. Movements with no
// plausible candidate are omitted.
func (s *ReconciliationService) GetSuggestions(ctx context.Context, tenantID uuid.UUID, bankAccountID *uuid.UUID) ([]treasury.MatchSuggestion, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "suggestions")
	defer span.End()

	movements, err := s.bankMovementRepo.FindPending(ctx, tenantID, bankAccountID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load pending statement lines: %w", err)
	}
	if len(movements) == 0 {
		return nil, nil
	}

	from, to := candidateWindow(movements, s.cfg.DateWindowDays)
	payments, err := s.paymentRepo.FindCandidates(ctx, tenantID, bankAccountID, from, to)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load candidate payments: %w", err)
	}

	patterns, err := s.patternRepo.LoadForTenant(ctx, tenantID)
	if err != nil {
		// Patterns only boost scores; match without them
		s.logger.Warn("failed to load reconciliation patterns", zap.Error(err))
		patterns = nil
	}

	suggestions := treasury.BuildSuggestions(s.cfg, movements, payments, patterns)

	telemetry.SetAttributes(span,
		"pending_lines", len(movements),
		"candidates", len(payments),
		"suggestions", len(suggestions))

	return suggestions, nil
}

// ConfirmMatch reconciles a statement line with a payment, then learns the
// description/counterparty association. The learning write is best-effort:
// its failure is logged and never rolls back the reconciliation.
func (s *ReconciliationService) ConfirmMatch(ctx context.Context, tenantID, bankMovementID, paymentID, confirmedBy uuid.UUID) (*treasury.BankMovement, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "confirm")
	defer span.End()
	telemetry.SetAttributes(span,
		"bank_movement_id", bankMovementID.String(),
		"payment_id", paymentID.String())

	var movement *treasury.BankMovement
	var payment *treasury.Payment
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		movement, err = repos.BankMovementRepo().FindByIDForTenant(ctx, tenantID, bankMovementID)
		if err != nil {
			return err
		}
		if movement == nil {
			return shared.ErrNotFound
		}

		payment, err = repos.PaymentRepo().FindByIDForTenant(ctx, tenantID, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return shared.ErrNotFound
		}

		if err := movement.Reconcile(payment.ID, confirmedBy); err != nil {
			return err
		}
		if err := payment.MarkReconciled(); err != nil {
			return err
		}

		if err := repos.BankMovementRepo().SaveWithLock(ctx, movement); err != nil {
			return fmt.Errorf("failed to save statement line: %w", err)
		}
		if err := repos.PaymentRepo().Save(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.learnPattern(ctx, tenantID, movement, payment)
	s.publishEvents(ctx, movement)

	s.logger.Info("reconciliation confirmed",
		zap.String("bank_movement_id", movement.ID.String()),
		zap.String("payment_id", payment.ID.String()))

	return movement, nil
}

// learnPattern associates the statement description with the counterparty.
// Advisory: a failure here must not undo the reconciliation.
func (s *ReconciliationService) learnPattern(ctx context.Context, tenantID uuid.UUID, movement *treasury.BankMovement, payment *treasury.Payment) {
	key := treasury.NormalizeDescription(movement.Description)
	if key == "" {
		return
	}
	if err := s.patternRepo.Upsert(ctx, tenantID, key, payment.CounterpartyID); err != nil {
		s.logger.Warn("failed to learn reconciliation pattern",
			zap.String("description", key),
			zap.String("counterparty_id", payment.CounterpartyID.String()),
			zap.Error(err))
	}
}

func (s *ReconciliationService) publishEvents(ctx context.Context, movement *treasury.BankMovement) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, movement.GetDomainEvents()...); err != nil {
		s.logger.Warn("failed to publish reconciliation events", zap.Error(err))
	}
	movement.ClearDomainEvents()
}

// candidateWindow derives the payment query range from the statement lines'
// date spread plus the scoring window on both sides.
func candidateWindow(movements []*treasury.BankMovement, windowDays int) (time.Time, time.Time) {
	earliest, latest := movements[0].Date, movements[0].Date
	for _, m := range movements[1:] {
		if m.Date.Before(earliest) {
			earliest = m.Date
		}
		if m.Date.After(latest) {
			latest = m.Date
		}
	}
	pad := time.Duration(windowDays) * 24 * time.Hour
	return earliest.Add(-pad), latest.Add(pad)
}
