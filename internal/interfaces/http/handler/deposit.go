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

// DepositHandler handles deposit slip API endpoints
type DepositHandler struct {
	BaseHandler
	service *treasuryapp.DepositService
	runner  *idemapp.Runner
}

// NewDepositHandler creates a new DepositHandler
func NewDepositHandler(service *treasuryapp.DepositService, runner *idemapp.Runner) *DepositHandler {
	return &DepositHandler{
		service: service,
		runner:  runner,
	}
}

// ===================== Request/Response DTOs =====================

// DepositChequeResponse represents a cheque line on a deposit slip
type DepositChequeResponse struct {
	ChequeID string  `json:"cheque_id"`
	Amount   float64 `json:"amount"`
}

// DepositResponse represents a deposit slip in API responses
type DepositResponse struct {
	ID                 string                  `json:"id"`
	TenantID           string                  `json:"tenant_id"`
	DepositNumber      string                  `json:"deposit_number"`
	CashAccountID      string                  `json:"cash_account_id"`
	BankAccountID      string                  `json:"bank_account_id"`
	CashAmount         float64                 `json:"cash_amount"`
	ChequesTotal       float64                 `json:"cheques_total"`
	TotalAmount        float64                 `json:"total_amount"`
	Currency           string                  `json:"currency"`
	Status             string                  `json:"status"`
	DepositDate        time.Time               `json:"deposit_date"`
	Reference          string                  `json:"reference,omitempty"`
	OutboundMovementID *string                 `json:"outbound_movement_id,omitempty"`
	InboundMovementID  *string                 `json:"inbound_movement_id,omitempty"`
	Cheques            []DepositChequeResponse `json:"cheques"`
	ConfirmedBy        *string                 `json:"confirmed_by,omitempty"`
	ConfirmedAt        *time.Time              `json:"confirmed_at,omitempty"`
	RejectedBy         *string                 `json:"rejected_by,omitempty"`
	RejectedAt         *time.Time              `json:"rejected_at,omitempty"`
	RejectReason       string                  `json:"reject_reason,omitempty"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
	Version            int                     `json:"version"`
}

// CreateDepositRequest represents a request to open a deposit slip
type CreateDepositRequest struct {
	CashAccountID string   `json:"cash_account_id" binding:"required,uuid"`
	BankAccountID string   `json:"bank_account_id" binding:"required,uuid"`
	ChequeIDs     []string `json:"cheque_ids" binding:"omitempty,dive,uuid"`
	CashAmount    float64  `json:"cash_amount" binding:"omitempty,gte=0"`
	Currency      string   `json:"currency" binding:"omitempty,len=3"`
	DepositDate   string   `json:"deposit_date" binding:"required"`
	Reference     string   `json:"reference"`
}

// RejectDepositRequest represents a request to reject a pending deposit
type RejectDepositRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// DepositListFilter represents filter parameters for deposit list
type DepositListFilter struct {
	Status        string `form:"status"`
	CashAccountID string `form:"cash_account_id" binding:"omitempty,uuid" json:"cash_account_id"`
	BankAccountID string `form:"bank_account_id" binding:"omitempty,uuid" json:"bank_account_id"`
	FromDate      string `form:"from_date" json:"from_date"`
	ToDate        string `form:"to_date" json:"to_date"`
	Page          int    `form:"page,omitempty" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size,omitempty" binding:"omitempty,min=1,max=100" json:"page_size"`
}

// ===================== Deposit Handlers =====================

// ListDeposits returns a paginated view of deposit slips.
func (h *DepositHandler) ListDeposits(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	var filter DepositListFilter
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

	serviceFilter := treasury.DepositFilter{}
	serviceFilter.Page = filter.Page
	serviceFilter.PageSize = filter.PageSize
	if filter.Status != "" {
		status := treasury.DepositStatus(filter.Status)
		if !status.IsValid() {
			h.BadRequest(c, "Invalid deposit status")
			return
		}
		serviceFilter.Status = &status
	}
	serviceFilter.CashAccountID = parseOptionalUUID(&filter.CashAccountID)
	serviceFilter.BankAccountID = parseOptionalUUID(&filter.BankAccountID)
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

	deposits, total, err := h.service.ListDeposits(c.Request.Context(), tenantID, serviceFilter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	response := make([]DepositResponse, len(deposits))
	for i, deposit := range deposits {
		response[i] = toDepositResponse(deposit)
	}

	h.SuccessWithMeta(c, response, total, filter.Page, filter.PageSize)
}

// GetDeposit returns a deposit slip by id.
func (h *DepositHandler) GetDeposit(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	depositID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid deposit ID")
		return
	}

	deposit, err := h.service.GetDeposit(c.Request.Context(), tenantID, depositID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDepositResponse(deposit))
}

// CreateDeposit parks cash and cheques on a PENDING slip with its paired
// ledger movements. Safe to retry with the Idempotency-Key header.
func (h *DepositHandler) CreateDeposit(c *gin.Context) {
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

	var req CreateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	depositDate, err := parseDate(req.DepositDate)
	if err != nil {
		h.BadRequest(c, "Invalid deposit_date format")
		return
	}

	chequeIDs := make([]uuid.UUID, 0, len(req.ChequeIDs))
	for _, raw := range req.ChequeIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid cheque ID in cheque_ids")
			return
		}
		chequeIDs = append(chequeIDs, id)
	}

	serviceReq := treasuryapp.CreateDepositRequest{
		CashAccountID: uuid.MustParse(req.CashAccountID),
		BankAccountID: uuid.MustParse(req.BankAccountID),
		ChequeIDs:     chequeIDs,
		CashAmount:    decimal.NewFromFloat(req.CashAmount),
		Currency:      req.Currency,
		DepositDate:   depositDate,
		Reference:     req.Reference,
		CreatedBy:     userID,
	}

	h.runIdempotent(c, h.runner, tenantID, idempotency.OpCreateDeposit, &req, func(outcome *idemapp.Outcome) error {
		deposit, err := h.service.CreateDeposit(c.Request.Context(), tenantID, serviceReq)
		if err != nil {
			return err
		}
		return outcome.Store(http.StatusCreated, "deposit", deposit.ID, toDepositResponse(deposit))
	})
}

// ConfirmDeposit settles both ledger legs and marks attached cheques
// DEPOSITED in one transaction. Safe to retry with the Idempotency-Key header.
func (h *DepositHandler) ConfirmDeposit(c *gin.Context) {
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

	depositID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid deposit ID")
		return
	}

	h.runIdempotent(c, h.runner, tenantID, idempotency.OpConfirmDeposit, depositID, func(outcome *idemapp.Outcome) error {
		deposit, err := h.service.ConfirmDeposit(c.Request.Context(), tenantID, depositID, userID)
		if err != nil {
			return err
		}
		return outcome.Store(http.StatusOK, "deposit", deposit.ID, toDepositResponse(deposit))
	})
}

// RejectDeposit cancels both ledger legs and returns attached cheques to the
// portfolio. Safe to retry with the Idempotency-Key header.
func (h *DepositHandler) RejectDeposit(c *gin.Context) {
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

	depositID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid deposit ID")
		return
	}

	var req RejectDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	content := struct {
		DepositID uuid.UUID `json:"deposit_id"`
		Reason    string    `json:"reason"`
	}{depositID, req.Reason}

	h.runIdempotent(c, h.runner, tenantID, idempotency.OpRejectDeposit, content, func(outcome *idemapp.Outcome) error {
		deposit, err := h.service.RejectDeposit(c.Request.Context(), tenantID, depositID, userID, req.Reason)
		if err != nil {
			return err
		}
		return outcome.Store(http.StatusOK, "deposit", deposit.ID, toDepositResponse(deposit))
	})
}

func toDepositResponse(deposit *treasury.CashDeposit) DepositResponse {
	cheques := make([]DepositChequeResponse, len(deposit.Cheques))
	chequesTotal := decimal.Zero
	for i, line := range deposit.Cheques {
		cheques[i] = DepositChequeResponse{
			ChequeID: line.ChequeID.String(),
			Amount:   line.Amount.InexactFloat64(),
		}
		chequesTotal = chequesTotal.Add(line.Amount)
	}

	return DepositResponse{
		ID:                 deposit.ID.String(),
		TenantID:           deposit.TenantID.String(),
		DepositNumber:      deposit.DepositNumber,
		CashAccountID:      deposit.CashAccountID.String(),
		BankAccountID:      deposit.BankAccountID.String(),
		CashAmount:         deposit.CashAmount.InexactFloat64(),
		ChequesTotal:       chequesTotal.InexactFloat64(),
		TotalAmount:        deposit.CashAmount.Add(chequesTotal).InexactFloat64(),
		Currency:           deposit.Currency,
		Status:             string(deposit.Status),
		DepositDate:        deposit.DepositDate,
		Reference:          deposit.Reference,
		OutboundMovementID: uuidToString(deposit.OutboundMovementID),
		InboundMovementID:  uuidToString(deposit.InboundMovementID),
		Cheques:            cheques,
		ConfirmedBy:        uuidToString(deposit.ConfirmedBy),
		ConfirmedAt:        deposit.ConfirmedAt,
		RejectedBy:         uuidToString(deposit.RejectedBy),
		RejectedAt:         deposit.RejectedAt,
		RejectReason:       deposit.RejectReason,
		CreatedAt:          deposit.CreatedAt,
		UpdatedAt:          deposit.UpdatedAt,
		Version:            deposit.Version,
	}
}

// RegisterRoutes registers all deposit routes
func (h *DepositHandler) RegisterRoutes(rg *gin.RouterGroup) {
	deposits := rg.Group("/treasury/deposits")
	{
		deposits.GET("", h.ListDeposits)
		deposits.GET("/:id", h.GetDeposit)
		deposits.POST("", h.CreateDeposit)
		deposits.POST("/:id/confirm", h.ConfirmDeposit)
		deposits.POST("/:id/reject", h.RejectDeposit)
	}
}
