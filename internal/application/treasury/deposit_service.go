package treasury

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/domain/treasury"
	"github.com/tesoreria/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DepositService orchestrates cash deposits. Creating a slip opens the
// paired PENDING ledger legs and parks every cheque; confirming or
// rejecting settles the slip, both legs and all cheques in one transaction
// so no partial flip can ever be observed.
type DepositService struct {
	depositRepo treasury.DepositRepository
	txScope     TransactionScope
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// DepositServiceOption configures a DepositService
type DepositServiceOption func(*DepositService)

// WithDepositEventPublisher sets the event publisher
func WithDepositEventPublisher(p shared.EventPublisher) DepositServiceOption {
	return func(s *DepositService) {
		s.publisher = p
	}
}

// NewDepositService creates a new DepositService
func NewDepositService(
	depositRepo treasury.DepositRepository,
	txScope TransactionScope,
	logger *zap.Logger,
	opts ...DepositServiceOption,
) *DepositService {
	s := &DepositService{
		depositRepo: depositRepo,
		txScope:     txScope,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDepositRequest carries the input to open a deposit slip
type CreateDepositRequest struct {
	CashAccountID uuid.UUID
	BankAccountID uuid.UUID
	ChequeIDs     []uuid.UUID
	CashAmount    decimal.Decimal
	Currency      string
	DepositDate   time.Time
	Reference     string
	CreatedBy     uuid.UUID
}

// CreateDeposit validates every cheque is available, opens the PENDING slip
// with its paired outbound/inbound ledger movements and parks the cheques,
// all inside one transaction.
func (s *DepositService) CreateDeposit(ctx context.Context, tenantID uuid.UUID, req CreateDepositRequest) (*treasury.CashDeposit, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "deposit", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		"cash_account_id", req.CashAccountID.String(),
		"bank_account_id", req.BankAccountID.String(),
		"cheque_count", len(req.ChequeIDs))

	var deposit *treasury.CashDeposit
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		deposit, err = treasury.NewCashDeposit(tenantID, treasury.NewCashDepositInput{
			DepositNumber: generateDepositNumber(),
			CashAccountID: req.CashAccountID,
			BankAccountID: req.BankAccountID,
			CashAmount:    req.CashAmount,
			Currency:      req.Currency,
			DepositDate:   req.DepositDate,
			Reference:     req.Reference,
			CreatedBy:     req.CreatedBy,
		})
		if err != nil {
			return err
		}

		cheques, err := s.collectCheques(ctx, repos, tenantID, req.ChequeIDs)
		if err != nil {
			return err
		}

		for _, cheque := range cheques {
			if err := cheque.AttachToDeposit(deposit.ID, deposit.BankAccountID, deposit.DepositDate); err != nil {
				return err
			}
			if err := deposit.AttachCheque(cheque.ID, cheque.Amount); err != nil {
				return err
			}
		}

		total := deposit.TotalAmount()
		if !total.IsPositive() {
			return shared.NewDomainError("INVALID_AMOUNT", "Deposit total must be positive")
		}

		outbound, err := treasury.NewTreasuryMovement(tenantID,
			treasury.AccountTypeCash, deposit.CashAccountID, total.Neg(), deposit.Currency,
			treasury.RelatedEntityCashDeposit, deposit.ID, deposit.DepositDate,
			"Deposit "+deposit.DepositNumber+" to bank")
		if err != nil {
			return err
		}
		inbound, err := treasury.NewTreasuryMovement(tenantID,
			treasury.AccountTypeBank, deposit.BankAccountID, total, deposit.Currency,
			treasury.RelatedEntityCashDeposit, deposit.ID, deposit.DepositDate,
			"Deposit "+deposit.DepositNumber+" from cash")
		if err != nil {
			return err
		}

		if err := repos.MovementRepo().Save(ctx, outbound); err != nil {
			return fmt.Errorf("failed to save outbound movement: %w", err)
		}
		if err := repos.MovementRepo().Save(ctx, inbound); err != nil {
			return fmt.Errorf("failed to save inbound movement: %w", err)
		}
		deposit.LinkMovements(outbound.ID, inbound.ID)

		for _, cheque := range cheques {
			if err := repos.ChequeRepo().SaveWithLock(ctx, cheque); err != nil {
				return fmt.Errorf("failed to save cheque %s: %w", cheque.Number, err)
			}
		}

		if err := repos.DepositRepo().Save(ctx, deposit); err != nil {
			return fmt.Errorf("failed to save deposit: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, deposit)

	s.logger.Info("deposit created",
		zap.String("deposit_id", deposit.ID.String()),
		zap.String("deposit_number", deposit.DepositNumber),
		zap.String("total", deposit.TotalAmount().String()),
		zap.Int("cheque_count", len(deposit.Cheques)))

	return deposit, nil
}

// GetDeposit returns one deposit with its cheque lines
func (s *DepositService) GetDeposit(ctx context.Context, tenantID, depositID uuid.UUID) (*treasury.CashDeposit, error) {
	deposit, err := s.depositRepo.FindByIDForTenant(ctx, tenantID, depositID)
	if err != nil {
		return nil, err
	}
	if deposit == nil {
		return nil, shared.ErrNotFound
	}
	return deposit, nil
}

// ListDeposits lists deposits for the tenant
func (s *DepositService) ListDeposits(ctx context.Context, tenantID uuid.UUID, filter treasury.DepositFilter) ([]*treasury.CashDeposit, int64, error) {
	return s.depositRepo.FindAllForTenant(ctx, tenantID, filter)
}

// ConfirmDeposit settles the slip as accepted: deposit CONFIRMED, both
// movements CONFIRMED, every cheque DEPOSITED, atomically. A concurrent
// settle attempt on the same deposit loses on the status guard and gets
// InvalidState, never a second execution.
func (s *DepositService) ConfirmDeposit(ctx context.Context, tenantID, depositID, confirmedBy uuid.UUID) (*treasury.CashDeposit, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "deposit", "confirm")
	defer span.End()
	telemetry.SetAttributes(span, "deposit_id", depositID.String())

	var deposit *treasury.CashDeposit
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		deposit, err = repos.DepositRepo().FindByIDForTenant(ctx, tenantID, depositID)
		if err != nil {
			return err
		}
		if deposit == nil {
			return shared.ErrNotFound
		}

		if err := deposit.Confirm(confirmedBy); err != nil {
			return err
		}
		if err := repos.DepositRepo().TransitionStatus(ctx, deposit, treasury.DepositStatusPending); err != nil {
			return err
		}

		if err := s.settleMovements(ctx, repos, deposit, func(m *treasury.TreasuryMovement) error {
			return m.Confirm()
		}); err != nil {
			return err
		}

		return s.settleCheques(ctx, repos, deposit, func(c *treasury.Cheque) error {
			return c.ConfirmDeposit()
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, deposit)

	s.logger.Info("deposit confirmed",
		zap.String("deposit_id", deposit.ID.String()),
		zap.String("deposit_number", deposit.DepositNumber))

	return deposit, nil
}

// RejectDeposit settles the slip as refused: deposit REJECTED, both
// movements REVERSED, every cheque back in portfolio, atomically.
func (s *DepositService) RejectDeposit(ctx context.Context, tenantID, depositID, rejectedBy uuid.UUID, reason string) (*treasury.CashDeposit, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "deposit", "reject")
	defer span.End()
	telemetry.SetAttributes(span, "deposit_id", depositID.String())

	var deposit *treasury.CashDeposit
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		deposit, err = repos.DepositRepo().FindByIDForTenant(ctx, tenantID, depositID)
		if err != nil {
			return err
		}
		if deposit == nil {
			return shared.ErrNotFound
		}

		if err := deposit.Reject(rejectedBy, reason); err != nil {
			return err
		}
		if err := repos.DepositRepo().TransitionStatus(ctx, deposit, treasury.DepositStatusPending); err != nil {
			return err
		}

		if err := s.settleMovements(ctx, repos, deposit, func(m *treasury.TreasuryMovement) error {
			return m.Reverse()
		}); err != nil {
			return err
		}

		return s.settleCheques(ctx, repos, deposit, func(c *treasury.Cheque) error {
			return c.ReturnToPortfolio()
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, deposit)

	s.logger.Info("deposit rejected",
		zap.String("deposit_id", deposit.ID.String()),
		zap.String("deposit_number", deposit.DepositNumber),
		zap.String("reason", reason))

	return deposit, nil
}

// collectCheques loads and validates every cheque for a new slip
func (s *DepositService) collectCheques(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, chequeIDs []uuid.UUID) ([]*treasury.Cheque, error) {
	if len(chequeIDs) == 0 {
		return nil, nil
	}

	cheques, err := repos.ChequeRepo().FindByIDsForTenant(ctx, tenantID, chequeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load cheques: %w", err)
	}
	if len(cheques) != len(chequeIDs) {
		return nil, shared.NewDomainError("CHEQUE_NOT_FOUND", "One or more cheques do not exist")
	}

	for _, cheque := range cheques {
		if !cheque.IsInPortfolio() {
			return nil, shared.NewInvalidStateError("Cheque "+cheque.Number,
				cheque.State.String(), treasury.ChequeStateInPortfolio.String())
		}
		referenced, err := repos.DepositRepo().ExistsPendingWithCheque(ctx, tenantID, cheque.ID)
		if err != nil {
			return nil, err
		}
		if referenced {
			return nil, shared.NewDomainError("CHEQUE_IN_OPEN_DEPOSIT",
				fmt.Sprintf("Cheque %s is already referenced by a pending deposit", cheque.Number))
		}
	}
	return cheques, nil
}

// settleMovements applies a transition to both ledger legs of the slip
func (s *DepositService) settleMovements(ctx context.Context, repos TransactionalRepositories, deposit *treasury.CashDeposit, transition func(*treasury.TreasuryMovement) error) error {
	movements, err := repos.MovementRepo().FindByRelatedEntity(ctx, deposit.TenantID, treasury.RelatedEntityCashDeposit, deposit.ID)
	if err != nil {
		return fmt.Errorf("failed to load deposit movements: %w", err)
	}
	for _, movement := range movements {
		if err := transition(movement); err != nil {
			return err
		}
		if err := repos.MovementRepo().Save(ctx, movement); err != nil {
			return fmt.Errorf("failed to save movement: %w", err)
		}
	}
	return nil
}

// settleCheques applies a transition to every cheque attached to the slip
func (s *DepositService) settleCheques(ctx context.Context, repos TransactionalRepositories, deposit *treasury.CashDeposit, transition func(*treasury.Cheque) error) error {
	ids := deposit.ChequeIDs()
	if len(ids) == 0 {
		return nil
	}
	cheques, err := repos.ChequeRepo().FindByIDsForTenant(ctx, deposit.TenantID, ids)
	if err != nil {
		return fmt.Errorf("failed to load deposit cheques: %w", err)
	}
	for _, cheque := range cheques {
		if err := transition(cheque); err != nil {
			return err
		}
		if err := repos.ChequeRepo().SaveWithLock(ctx, cheque); err != nil {
			return fmt.Errorf("failed to save cheque %s: %w", cheque.Number, err)
		}
	}
	return nil
}

func (s *DepositService) publishEvents(ctx context.Context, deposit *treasury.CashDeposit) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, deposit.GetDomainEvents()...); err != nil {
		s.logger.Warn("failed to publish deposit events", zap.Error(err))
	}
	deposit.ClearDomainEvents()
}

// generateDepositNumber builds a human-scannable slip number. Uniqueness is
// enforced by the index on (tenant, deposit_number); the random suffix makes
// collisions within a day negligible.
func generateDepositNumber() string {
	suffix := strings.ToUpper(uuid.New().String()[:8])
	return fmt.Sprintf("DEP-%s-%s", time.Now().Format("20060102"), suffix)
}
