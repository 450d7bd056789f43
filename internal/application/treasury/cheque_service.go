package treasury

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/domain/shared/valueobject"
	"github.com/tesoreria/backend/internal/domain/treasury"
	"github.com/tesoreria/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ChequeService owns the cheque state machine outside of deposit
// orchestration: recording, clearing, bouncing and voiding instruments.
type ChequeService struct {
	chequeRepo  treasury.ChequeRepository
	depositRepo treasury.DepositRepository
	txScope     TransactionScope
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// ChequeServiceOption configures a ChequeService
type ChequeServiceOption func(*ChequeService)

// WithChequeEventPublisher sets the event publisher
func WithChequeEventPublisher(p shared.EventPublisher) ChequeServiceOption {
	return func(s *ChequeService) {
		s.publisher = p
	}
}

// NewChequeService creates a new ChequeService
func NewChequeService(
	chequeRepo treasury.ChequeRepository,
	depositRepo treasury.DepositRepository,
	txScope TransactionScope,
	logger *zap.Logger,
	opts ...ChequeServiceOption,
) *ChequeService {
	s := &ChequeService{
		chequeRepo:  chequeRepo,
		depositRepo: depositRepo,
		txScope:     txScope,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateChequeRequest carries the input to record a cheque
type CreateChequeRequest struct {
	Origin        treasury.ChequeOrigin
	Kind          treasury.ChequeKind
	DocumentClass treasury.DocumentClass
	Number        string
	Bank          string
	Holder        string
	Amount        valueobject.Money
	IssueDate     time.Time
	DueDate       time.Time
	BankAccountID *uuid.UUID
	CashAccountID *uuid.UUID
}

// CreateCheque records a new cheque in portfolio
func (s *ChequeService) CreateCheque(ctx context.Context, tenantID uuid.UUID, req CreateChequeRequest) (*treasury.Cheque, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cheque", "create")
	defer span.End()
	telemetry.SetAttributes(span, "cheque_number", req.Number, "bank", req.Bank)

	existing, err := s.chequeRepo.FindByNumber(ctx, tenantID, req.Bank, req.Number)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to check cheque number: %w", err)
	}
	if existing != nil {
		return nil, shared.NewDomainError("DUPLICATE_CHEQUE",
			fmt.Sprintf("Cheque %s from %s is already recorded", req.Number, req.Bank))
	}

	cheque, err := treasury.NewCheque(tenantID, treasury.NewChequeInput{
		Origin:        req.Origin,
		Kind:          req.Kind,
		DocumentClass: req.DocumentClass,
		Number:        req.Number,
		Bank:          req.Bank,
		Holder:        req.Holder,
		Amount:        req.Amount,
		IssueDate:     req.IssueDate,
		DueDate:       req.DueDate,
		BankAccountID: req.BankAccountID,
		CashAccountID: req.CashAccountID,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.chequeRepo.Save(ctx, cheque); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save cheque: %w", err)
	}

	s.publishEvents(ctx, cheque)

	s.logger.Info("cheque recorded",
		zap.String("cheque_id", cheque.ID.String()),
		zap.String("number", cheque.Number),
		zap.String("bank", cheque.Bank),
		zap.String("amount", cheque.Amount.String()))

	return cheque, nil
}

// GetCheque returns one cheque by ID
func (s *ChequeService) GetCheque(ctx context.Context, tenantID, chequeID uuid.UUID) (*treasury.Cheque, error) {
	cheque, err := s.chequeRepo.FindByIDForTenant(ctx, tenantID, chequeID)
	if err != nil {
		return nil, err
	}
	if cheque == nil {
		return nil, shared.ErrNotFound
	}
	return cheque, nil
}

// ListCheques lists cheques for the tenant
func (s *ChequeService) ListCheques(ctx context.Context, tenantID uuid.UUID, filter treasury.ChequeFilter) ([]*treasury.Cheque, int64, error) {
	return s.chequeRepo.FindAllForTenant(ctx, tenantID, filter)
}

// ClearCheque marks a deposited cheque as honoured by the drawee bank
func (s *ChequeService) ClearCheque(ctx context.Context, tenantID, chequeID uuid.UUID) (*treasury.Cheque, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cheque", "clear")
	defer span.End()

	cheque, err := s.GetCheque(ctx, tenantID, chequeID)
	if err != nil {
		return nil, err
	}

	if err := cheque.Clear(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.chequeRepo.SaveWithLock(ctx, cheque); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save cheque: %w", err)
	}

	s.publishEvents(ctx, cheque)
	return cheque, nil
}

// BounceCheque records a bank-reported rejection. When the cheque's value
// had already been confirmed into a bank account, a compensating movement
// of equal and opposite amount is appended in the same transaction.
func (s *ChequeService) BounceCheque(ctx context.Context, tenantID, chequeID uuid.UUID) (*treasury.Cheque, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cheque", "bounce")
	defer span.End()

	var cheque *treasury.Cheque
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		cheque, err = repos.ChequeRepo().FindByIDForTenant(ctx, tenantID, chequeID)
		if err != nil {
			return err
		}
		if cheque == nil {
			return shared.ErrNotFound
		}

		wasDeposited := cheque.State == treasury.ChequeStateDeposited

		if err := cheque.Bounce(); err != nil {
			return err
		}
		if err := repos.ChequeRepo().SaveWithLock(ctx, cheque); err != nil {
			return fmt.Errorf("failed to save cheque: %w", err)
		}

		if wasDeposited {
			return s.appendCompensation(ctx, repos, cheque, "Bounced cheque "+cheque.Number)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, cheque)

	s.logger.Warn("cheque bounced",
		zap.String("cheque_id", cheque.ID.String()),
		zap.String("number", cheque.Number))

	return cheque, nil
}

// VoidCheque administratively cancels a cheque with a mandatory reason
func (s *ChequeService) VoidCheque(ctx context.Context, tenantID, chequeID, voidedBy uuid.UUID, reason string) (*treasury.Cheque, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cheque", "void")
	defer span.End()

	var cheque *treasury.Cheque
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		cheque, err = repos.ChequeRepo().FindByIDForTenant(ctx, tenantID, chequeID)
		if err != nil {
			return err
		}
		if cheque == nil {
			return shared.ErrNotFound
		}

		inOpenDeposit, err := repos.DepositRepo().ExistsPendingWithCheque(ctx, tenantID, chequeID)
		if err != nil {
			return err
		}
		if inOpenDeposit {
			return shared.NewDomainError("CHEQUE_IN_OPEN_DEPOSIT",
				fmt.Sprintf("Cheque %s is referenced by a pending deposit; settle the deposit first", cheque.Number))
		}

		wasDeposited := cheque.State == treasury.ChequeStateDeposited

		if err := cheque.Void(voidedBy, reason); err != nil {
			return err
		}
		if err := repos.ChequeRepo().SaveWithLock(ctx, cheque); err != nil {
			return fmt.Errorf("failed to save cheque: %w", err)
		}

		// A deposited cheque has a confirmed ledger posting behind it;
		// historical movements are never edited, so append the reversal.
		if wasDeposited {
			return s.appendCompensation(ctx, repos, cheque, "Voided cheque "+cheque.Number)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, cheque)

	s.logger.Info("cheque voided",
		zap.String("cheque_id", cheque.ID.String()),
		zap.String("reason", reason))

	return cheque, nil
}

// appendCompensation posts a confirmed outflow undoing the cheque's value
// on the bank account it was deposited into.
func (s *ChequeService) appendCompensation(ctx context.Context, repos TransactionalRepositories, cheque *treasury.Cheque, description string) error {
	if cheque.DepositedAccountID == nil {
		return nil
	}
	compensation, err := treasury.NewConfirmedMovement(
		cheque.TenantID,
		treasury.AccountTypeBank,
		*cheque.DepositedAccountID,
		cheque.Amount.Neg(),
		cheque.Currency,
		treasury.RelatedEntityCheque,
		cheque.ID,
		time.Now(),
		description,
	)
	if err != nil {
		return err
	}
	if err := repos.MovementRepo().Save(ctx, compensation); err != nil {
		return fmt.Errorf("failed to save compensating movement: %w", err)
	}
	return nil
}

func (s *ChequeService) publishEvents(ctx context.Context, cheque *treasury.Cheque) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, cheque.GetDomainEvents()...); err != nil {
		s.logger.Warn("failed to publish cheque events", zap.Error(err))
	}
	cheque.ClearDomainEvents()
}
