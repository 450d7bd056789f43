package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	idemapp "github.com/tesoreria/backend/internal/application/idempotency"
	treasuryapp "github.com/tesoreria/backend/internal/application/treasury"
	"github.com/tesoreria/backend/internal/domain/idempotency"
	"github.com/tesoreria/backend/internal/domain/treasury"
)

// ReconciliationHandler handles bank statement and reconciliation API endpoints
type ReconciliationHandler struct {
	BaseHandler
	service *treasuryapp.ReconciliationService
	runner  *idemapp.Runner
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(service *treasuryapp.ReconciliationService, runner *idemapp.Runner) *ReconciliationHandler {
	return &ReconciliationHandler{
		service: service,
		runner:  runner,
	}
}

// ===================== Request/Response DTOs =====================

// BankMovementResponse represents a bank statement line in API responses
type BankMovementResponse struct {
	ID               string     `json:"id"`
	TenantID         string     `json:"tenant_id"`
	BankAccountID    string     `json:"bank_account_id"`
	Date             time.Time  `json:"date"`
	Description      string     `json:"description"`
	Amount           float64    `json:"amount"`
	Direction        string     `json:"direction"`
	Currency         string     `json:"currency"`
	BankReference    string     `json:"bank_reference,omitempty"`
	Status           string     `json:"status"`
	MatchedPaymentID *string    `json:"matched_payment_id,omitempty"`
	ReconciledBy     *string    `json:"reconciled_by,omitempty"`
	ReconciledAt     *time.Time `json:"reconciled_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Version          int        `json:"version"`
}

// PaymentResponse represents a registered payment in API responses
type PaymentResponse struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenant_id"`
	BankAccountID    string    `json:"bank_account_id"`
	CounterpartyID   string    `json:"counterparty_id"`
	CounterpartyName string    `json:"counterparty_name"`
	Direction        string    `json:"direction"`
	Amount           float64   `json:"amount"`
	Currency         string    `json:"currency"`
	Date             time.Time `json:"date"`
	Reference        string    `json:"reference,omitempty"`
	Reconciled       bool      `json:"reconciled"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MatchCandidateResponse represents one scored payment candidate
type MatchCandidateResponse struct {
	PaymentID        string    `json:"payment_id"`
	CounterpartyID   string    `json:"counterparty_id"`
	CounterpartyName string    `json:"counterparty_name"`
	Amount           float64   `json:"amount"`
	Date             time.Time `json:"date"`
	Score            float64   `json:"score"`
	Confidence       string    `json:"confidence"`
	PatternHit       bool      `json:"pattern_hit"`
}

// MatchSuggestionResponse pairs a pending movement with its ranked candidates
type MatchSuggestionResponse struct {
	BankMovement BankMovementResponse     `json:"bank_movement"`
	Candidates   []MatchCandidateResponse `json:"candidates"`
}

// ImportBankMovementLine represents one statement line in an import request
type ImportBankMovementLine struct {
	BankAccountID string  `json:"bank_account_id" binding:"required,uuid"`
	Date          string  `json:"date" binding:"required"`
	Description   string  `json:"description" binding:"required"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	Direction     string  `json:"direction" binding:"required,oneof=CREDIT DEBIT"`
	Currency      string  `json:"currency" binding:"omitempty,len=3"`
	BankReference string  `json:"bank_reference"`
}

// ImportBankMovementsRequest represents a statement import request
type ImportBankMovementsRequest struct {
	Movements []ImportBankMovementLine `json:"movements" binding:"required,min=1,dive"`
}

// ImportResultResponse summarizes a statement import
type ImportResultResponse struct {
	Imported int      `json:"imported"`
	Skipped  []string `json:"skipped,omitempty"`
}

// RegisterPaymentRequest represents a request to register an expected payment
type RegisterPaymentRequest struct {
	BankAccountID    string  `json:"bank_account_id" binding:"required,uuid"`
	CounterpartyID   string  `json:"counterparty_id" binding:"required,uuid"`
	CounterpartyName string  `json:"counterparty_name" binding:"required"`
	Direction        string  `json:"direction" binding:"required,oneof=INCOMING OUTGOING"`
	Amount           float64 `json:"amount" binding:"required,gt=0"`
	Currency         string  `json:"currency" binding:"omitempty,len=3"`
	Date             string  `json:"date" binding:"required"`
	Reference        string  `json:"reference"`
}

// ConfirmMatchRequest represents a request to confirm a reconciliation match
type ConfirmMatchRequest struct {
	BankMovementID string `json:"bank_movement_id" binding:"required,uuid"`
	PaymentID      string `json:"payment_id" binding:"required,uuid"`
}

// BankMovementListFilter represents filter parameters for statement lines
type BankMovementListFilter struct {
	Search        string `form:"search"`
	BankAccountID string `form:"bank_account_id" binding:"omitempty,uuid" json:"bank_account_id"`
	Status        string `form:"status"`
	Direction     string `form:"direction" binding:"omitempty,oneof=CREDIT DEBIT"`
	FromDate      string `form:"from_date" json:"from_date"`
	ToDate        string `form:"to_date" json:"to_date"`
	Page          int    `form:"page,omitempty" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size,omitempty" binding:"omitempty,min=1,max=100" json:"page_size"`
}

// ===================== Bank Movement Handlers =====================

// ImportBankMovements loads statement lines as PENDING movements. Lines that
// fail validation are skipped and reported back.
func (h *ReconciliationHandler) ImportBankMovements(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	var req ImportBankMovementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	inputs := make([]treasury.NewBankMovementInput, 0, len(req.Movements))
	for _, line := range req.Movements {
		date, err := parseDateTime(line.Date)
		if err != nil {
			h.BadRequest(c, "Invalid date in statement line")
			return
		}
		inputs = append(inputs, treasury.NewBankMovementInput{
			BankAccountID: uuid.MustParse(line.BankAccountID),
			Date:          date,
			Description:   line.Description,
			Amount:        decimal.NewFromFloat(line.Amount),
			Direction:     treasury.BankMovementDirection(line.Direction),
			Currency:      line.Currency,
			BankReference: line.BankReference,
		})
	}

	result, err := h.service.ImportBankMovements(c.Request.Context(), tenantID, inputs)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ImportResultResponse(*result))
}

// ListBankMovements lists imported bank statement lines.
func (h *ReconciliationHandler) ListBankMovements(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	var filter BankMovementListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	serviceFilter := treasury.BankMovementFilter{}
	serviceFilter.Page = filter.Page
	serviceFilter.PageSize = filter.PageSize
	serviceFilter.Search = filter.Search
	serviceFilter.BankAccountID = parseOptionalUUID(&filter.BankAccountID)
	if filter.Status != "" {
		status := treasury.ReconciliationStatus(filter.Status)
		if !status.IsValid() {
			h.BadRequest(c, "Invalid reconciliation status")
			return
		}
		serviceFilter.Status = &status
	}
	if filter.Direction != "" {
		direction := treasury.BankMovementDirection(filter.Direction)
		serviceFilter.Direction = &direction
	}
	if filter.FromDate != "" {
		if t, err := parseDate(filter.FromDate); err == nil {
			serviceFilter.DateFrom = &t
		}
	}
	if filter.ToDate != "" {
		if t, err := parseDate(filter.ToDate); err == nil {
			t = t.Add(24*time.Hour - time.Second)
			serviceFilter.DateTo = &t
		}
	}

	movements, total, err := h.service.ListBankMovements(c.Request.Context(), tenantID, serviceFilter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	response := make([]BankMovementResponse, len(movements))
	for i, movement := range movements {
		response[i] = toBankMovementResponse(movement)
	}

	h.SuccessWithMeta(c, response, total, filter.Page, filter.PageSize)
}

// RegisterPayment records a payment or collection so the matcher can pair it
// with statement lines.
func (h *ReconciliationHandler) RegisterPayment(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	var req RegisterPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	date, err := parseDateTime(req.Date)
	if err != nil {
		h.BadRequest(c, "Invalid date format")
		return
	}

	payment, err := h.service.RegisterPayment(c.Request.Context(), tenantID, treasury.NewPaymentInput{
		BankAccountID:    uuid.MustParse(req.BankAccountID),
		CounterpartyID:   uuid.MustParse(req.CounterpartyID),
		CounterpartyName: req.CounterpartyName,
		Direction:        treasury.PaymentDirection(req.Direction),
		Amount:           decimal.NewFromFloat(req.Amount),
		Currency:         req.Currency,
		Date:             date,
		Reference:        req.Reference,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toPaymentResponse(payment))
}

// GetSuggestions scores every pending statement line against unreconciled
// payments and returns ranked candidates.
func (h *ReconciliationHandler) GetSuggestions(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	var bankAccountID *uuid.UUID
	if raw := c.Query("bank_account_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid bank_account_id")
			return
		}
		bankAccountID = &id
	}

	suggestions, err := h.service.GetSuggestions(c.Request.Context(), tenantID, bankAccountID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	response := make([]MatchSuggestionResponse, len(suggestions))
	for i, suggestion := range suggestions {
		response[i] = toSuggestionResponse(suggestion)
	}

	h.Success(c, response)
}

// ConfirmMatch marks the statement line RECONCILED, flags the payment
// reconciled, and learns the description pattern. Safe to retry with the
// Idempotency-Key header.
func (h *ReconciliationHandler) ConfirmMatch(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	userID, _ := getUserID(c)
	if userID == uuid.Nil {
		h.Unauthorized(c, "Missing user identity")
		return
	}

	var req ConfirmMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	bankMovementID := uuid.MustParse(req.BankMovementID)
	paymentID := uuid.MustParse(req.PaymentID)

	h.runIdempotent(c, h.runner, tenantID, idempotency.OpConfirmReconciliation, &req, func(outcome *idemapp.Outcome) error {
		movement, err := h.service.ConfirmMatch(c.Request.Context(), tenantID, bankMovementID, paymentID, userID)
		if err != nil {
			return err
		}
		return outcome.Store(http.StatusOK, "bank_movement", movement.ID, toBankMovementResponse(movement))
	})
}

func toBankMovementResponse(movement *treasury.BankMovement) BankMovementResponse {
	return BankMovementResponse{
		ID:               movement.ID.String(),
		TenantID:         movement.TenantID.String(),
		BankAccountID:    movement.BankAccountID.String(),
		Date:             movement.Date,
		Description:      movement.Description,
		Amount:           movement.Amount.InexactFloat64(),
		Direction:        string(movement.Direction),
		Currency:         movement.Currency,
		BankReference:    movement.BankReference,
		Status:           string(movement.Status),
		MatchedPaymentID: uuidToString(movement.MatchedPaymentID),
		ReconciledBy:     uuidToString(movement.ReconciledBy),
		ReconciledAt:     movement.ReconciledAt,
		CreatedAt:        movement.CreatedAt,
		UpdatedAt:        movement.UpdatedAt,
		Version:          movement.Version,
	}
}

func toPaymentResponse(payment *treasury.Payment) PaymentResponse {
	return PaymentResponse{
		ID:               payment.ID.String(),
		TenantID:         payment.TenantID.String(),
		BankAccountID:    payment.BankAccountID.String(),
		CounterpartyID:   payment.CounterpartyID.String(),
		CounterpartyName: payment.CounterpartyName,
		Direction:        string(payment.Direction),
		Amount:           payment.Amount.InexactFloat64(),
		Currency:         payment.Currency,
		Date:             payment.Date,
		Reference:        payment.Reference,
		Reconciled:       payment.Reconciled,
		CreatedAt:        payment.CreatedAt,
		UpdatedAt:        payment.UpdatedAt,
	}
}

func toSuggestionResponse(suggestion treasury.MatchSuggestion) MatchSuggestionResponse {
	candidates := make([]MatchCandidateResponse, len(suggestion.Candidates))
	for i, candidate := range suggestion.Candidates {
		candidates[i] = MatchCandidateResponse{
			PaymentID:        candidate.PaymentID.String(),
			CounterpartyID:   candidate.CounterpartyID.String(),
			CounterpartyName: candidate.CounterpartyName,
			Amount:           candidate.Amount.InexactFloat64(),
			Date:             candidate.Date,
			Score:            candidate.Score.InexactFloat64(),
			Confidence:       string(candidate.Confidence),
			PatternHit:       candidate.PatternHit,
		}
	}

	return MatchSuggestionResponse{
		BankMovement: toBankMovementResponse(suggestion.BankMovement),
		Candidates:   candidates,
	}
}

// RegisterRoutes registers all reconciliation routes
func (h *ReconciliationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	treasuryGroup := rg.Group("/treasury")
	{
		treasuryGroup.POST("/bank-movements/import", h.ImportBankMovements)
		treasuryGroup.GET("/bank-movements", h.ListBankMovements)
		treasuryGroup.POST("/payments", h.RegisterPayment)
		treasuryGroup.GET("/reconciliation/suggestions", h.GetSuggestions)
		treasuryGroup.POST("/reconciliation/confirm", h.ConfirmMatch)
	}
}
