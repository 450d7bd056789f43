package treasury

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/domain/treasury"
	"github.com/tesoreria/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ClosingService computes expected-vs-counted balances for cash accounts
// and records the end-of-day closing.
type ClosingService struct {
	closingRepo  treasury.ClosingRepository
	movementRepo treasury.MovementRepository
	chequeRepo   treasury.ChequeRepository
	publisher    shared.EventPublisher
	logger       *zap.Logger
}

// ClosingServiceOption configures a ClosingService
type ClosingServiceOption func(*ClosingService)

// WithClosingEventPublisher sets the event publisher
func WithClosingEventPublisher(p shared.EventPublisher) ClosingServiceOption {
	return func(s *ClosingService) {
		s.publisher = p
	}
}

// NewClosingService creates a new ClosingService
func NewClosingService(
	closingRepo treasury.ClosingRepository,
	movementRepo treasury.MovementRepository,
	chequeRepo treasury.ChequeRepository,
	logger *zap.Logger,
	opts ...ClosingServiceOption,
) *ClosingService {
	s := &ClosingService{
		closingRepo:  closingRepo,
		movementRepo: movementRepo,
		chequeRepo:   chequeRepo,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PreviewClosing computes the system-expected balance for a cash account as
// of a date. Read-only: confirmed cash movements dated up to the end of the
// day plus cheques currently held at the cash point.
func (s *ClosingService) PreviewClosing(ctx context.Context, tenantID, cashAccountID uuid.UUID, date time.Time) (*treasury.ClosingPreview, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "closing", "preview")
	defer span.End()

	systemCash, systemCheques, err := s.systemBalances(ctx, tenantID, cashAccountID, date)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	preview := treasury.NewClosingPreview(cashAccountID, date, systemCash, systemCheques)
	return &preview, nil
}

// CreateClosingRequest carries the counted amounts for a closing
type CreateClosingRequest struct {
	CashAccountID  uuid.UUID
	Date           time.Time
	CountedCash    decimal.Decimal
	CountedCheques decimal.Decimal
	Notes          string
	ClosedBy       uuid.UUID
}

// ClosingResult pairs the persisted closing with its operator summary
type ClosingResult struct {
	Closing *treasury.CashClosing `json:"closing"`
	Summary string                `json:"summary"`
}

// CreateClosing records the closing for (account, date). Fails with
// DuplicateClosing when one already exists for that pair.
func (s *ClosingService) CreateClosing(ctx context.Context, tenantID uuid.UUID, req CreateClosingRequest) (*ClosingResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "closing", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		"cash_account_id", req.CashAccountID.String(),
		"date", req.Date.Format("2006-01-02"))

	existing, err := s.closingRepo.FindByAccountAndDate(ctx, tenantID, req.CashAccountID, req.Date)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if existing != nil {
		return nil, shared.ErrDuplicateClosing
	}

	systemCash, systemCheques, err := s.systemBalances(ctx, tenantID, req.CashAccountID, req.Date)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	closing, err := treasury.NewCashClosing(tenantID, treasury.NewCashClosingInput{
		CashAccountID:  req.CashAccountID,
		Date:           req.Date,
		SystemCash:     systemCash,
		SystemCheques:  systemCheques,
		CountedCash:    req.CountedCash,
		CountedCheques: req.CountedCheques,
		Notes:          req.Notes,
		ClosedBy:       req.ClosedBy,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	// The unique index backs up the existence check against a concurrent
	// closing for the same (account, date).
	if err := s.closingRepo.Save(ctx, closing); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, closing)

	s.logger.Info("cash closing recorded",
		zap.String("closing_id", closing.ID.String()),
		zap.String("cash_account_id", closing.CashAccountID.String()),
		zap.String("state", closing.State.String()),
		zap.String("discrepancy", closing.Discrepancy.String()))

	return &ClosingResult{Closing: closing, Summary: closing.Summary()}, nil
}

// GetClosing returns one closing by ID
func (s *ClosingService) GetClosing(ctx context.Context, tenantID, closingID uuid.UUID) (*treasury.CashClosing, error) {
	closing, err := s.closingRepo.FindByIDForTenant(ctx, tenantID, closingID)
	if err != nil {
		return nil, err
	}
	if closing == nil {
		return nil, shared.ErrNotFound
	}
	return closing, nil
}

// ListClosings lists closings for a cash account, newest first
func (s *ClosingService) ListClosings(ctx context.Context, tenantID, cashAccountID uuid.UUID, filter shared.Filter) ([]*treasury.CashClosing, int64, error) {
	return s.closingRepo.FindAllForAccount(ctx, tenantID, cashAccountID, filter)
}

// systemBalances sums confirmed cash movements up to the end of the day and
// the cheques held in portfolio at the cash point.
func (s *ClosingService) systemBalances(ctx context.Context, tenantID, cashAccountID uuid.UUID, date time.Time) (decimal.Decimal, decimal.Decimal, error) {
	endOfDay := endOfDayUTC(date)

	systemCash, err := s.movementRepo.SumConfirmedForAccount(ctx, tenantID, treasury.AccountTypeCash, cashAccountID, endOfDay)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to sum cash movements: %w", err)
	}

	systemCheques, err := s.chequeRepo.SumInPortfolioByCashAccount(ctx, tenantID, cashAccountID, endOfDay)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to sum portfolio cheques: %w", err)
	}

	return systemCash, systemCheques, nil
}

func (s *ClosingService) publishEvents(ctx context.Context, closing *treasury.CashClosing) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, closing.GetDomainEvents()...); err != nil {
		s.logger.Warn("failed to publish closing events", zap.Error(err))
	}
	closing.ClearDomainEvents()
}

func endOfDayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
}
