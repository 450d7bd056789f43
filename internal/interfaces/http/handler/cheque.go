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
	"github.com/tesoreria/backend/internal/domain/shared/valueobject"
	"github.com/tesoreria/backend/internal/domain/treasury"
)

// ChequeHandler handles cheque portfolio API endpoints
type ChequeHandler struct {
	BaseHandler
	service *treasuryapp.ChequeService
	runner  *idemapp.Runner
}

// NewChequeHandler creates a new ChequeHandler
func NewChequeHandler(service *treasuryapp.ChequeService, runner *idemapp.Runner) *ChequeHandler {
	return &ChequeHandler{
		service: service,
		runner:  runner,
	}
}

// ===================== Request/Response DTOs =====================

// ChequeResponse represents a cheque in API responses
type ChequeResponse struct {
	ID                 string     `json:"id"`
	TenantID           string     `json:"tenant_id"`
	Origin             string     `json:"origin"`
	Kind               string     `json:"kind"`
	DocumentClass      string     `json:"document_class"`
	Number             string     `json:"number"`
	Bank               string     `json:"bank"`
	Holder             string     `json:"holder"`
	Amount             float64    `json:"amount"`
	Currency           string     `json:"currency"`
	IssueDate          time.Time  `json:"issue_date"`
	DueDate            time.Time  `json:"due_date"`
	State              string     `json:"state"`
	BankAccountID      *string    `json:"bank_account_id,omitempty"`
	CashAccountID      *string    `json:"cash_account_id,omitempty"`
	DepositedAccountID *string    `json:"deposited_account_id,omitempty"`
	DepositID          *string    `json:"deposit_id,omitempty"`
	DepositDate        *time.Time `json:"deposit_date,omitempty"`
	VoidReason         string     `json:"void_reason,omitempty"`
	VoidedBy           *string    `json:"voided_by,omitempty"`
	VoidedAt           *time.Time `json:"voided_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	Version            int        `json:"version"`
}

// CreateChequeRequest represents a request to record a cheque in portfolio
type CreateChequeRequest struct {
	Origin        string  `json:"origin" binding:"required,oneof=RECEIVED ISSUED"`
	Kind          string  `json:"kind" binding:"required,oneof=PHYSICAL ELECTRONIC"`
	DocumentClass string  `json:"document_class" binding:"required,oneof=COMMON DEFERRED"`
	Number        string  `json:"number" binding:"required"`
	Bank          string  `json:"bank" binding:"required"`
	Holder        string  `json:"holder" binding:"required"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	Currency      string  `json:"currency" binding:"omitempty,len=3"`
	IssueDate     string  `json:"issue_date" binding:"required"`
	DueDate       string  `json:"due_date" binding:"required"`
	BankAccountID *string `json:"bank_account_id" binding:"omitempty,uuid"`
	CashAccountID *string `json:"cash_account_id" binding:"omitempty,uuid"`
}

// VoidChequeRequest represents a request to administratively void a cheque
type VoidChequeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ChequeListFilter represents filter parameters for cheque list
type ChequeListFilter struct {
	Search   string `form:"search"`
	State    string `form:"state"`
	Origin   string `form:"origin"`
	Bank     string `form:"bank"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
	Page     int    `form:"page,omitempty" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size,omitempty" binding:"omitempty,min=1,max=100" json:"page_size"`
}

// ===================== Cheque Handlers =====================

// ListCheques returns a paginated view of the portfolio.
func (h *ChequeHandler) ListCheques(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	var filter ChequeListFilter
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

	serviceFilter := treasury.ChequeFilter{Bank: filter.Bank}
	serviceFilter.Page = filter.Page
	serviceFilter.PageSize = filter.PageSize
	serviceFilter.Search = filter.Search
	serviceFilter.OrderBy = filter.OrderBy
	serviceFilter.OrderDir = filter.OrderDir
	if filter.State != "" {
		state := treasury.ChequeState(filter.State)
		if !state.IsValid() {
			h.BadRequest(c, "Invalid cheque state")
			return
		}
		serviceFilter.State = &state
	}
	if filter.Origin != "" {
		origin := treasury.ChequeOrigin(filter.Origin)
		if !origin.IsValid() {
			h.BadRequest(c, "Invalid cheque origin")
			return
		}
		serviceFilter.Origin = &origin
	}

	cheques, total, err := h.service.ListCheques(c.Request.Context(), tenantID, serviceFilter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	response := make([]ChequeResponse, len(cheques))
	for i, cheque := range cheques {
		response[i] = toChequeResponse(cheque)
	}

	h.SuccessWithMeta(c, response, total, filter.Page, filter.PageSize)
}

// GetCheque returns a single cheque by id.
func (h *ChequeHandler) GetCheque(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	chequeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid cheque ID")
		return
	}

	cheque, err := h.service.GetCheque(c.Request.Context(), tenantID, chequeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toChequeResponse(cheque))
}

// CreateCheque records a received or issued cheque. Safe to retry with the
// Idempotency-Key header.
func (h *ChequeHandler) CreateCheque(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	var req CreateChequeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	issueDate, err := parseDate(req.IssueDate)
	if err != nil {
		h.BadRequest(c, "Invalid issue_date format")
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		h.BadRequest(c, "Invalid due_date format")
		return
	}

	currency := valueobject.Currency(req.Currency)
	if req.Currency == "" {
		currency = valueobject.DefaultCurrency
	}
	amount, err := valueobject.NewMoney(decimal.NewFromFloat(req.Amount), currency)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	serviceReq := treasuryapp.CreateChequeRequest{
		Origin:        treasury.ChequeOrigin(req.Origin),
		Kind:          treasury.ChequeKind(req.Kind),
		DocumentClass: treasury.DocumentClass(req.DocumentClass),
		Number:        req.Number,
		Bank:          req.Bank,
		Holder:        req.Holder,
		Amount:        amount,
		IssueDate:     issueDate,
		DueDate:       dueDate,
		BankAccountID: parseOptionalUUID(req.BankAccountID),
		CashAccountID: parseOptionalUUID(req.CashAccountID),
	}

	h.runIdempotent(c, h.runner, tenantID, idempotency.OpCreateCheque, &req, func(outcome *idemapp.Outcome) error {
		cheque, err := h.service.CreateCheque(c.Request.Context(), tenantID, serviceReq)
		if err != nil {
			return err
		}
		return outcome.Store(http.StatusCreated, "cheque", cheque.ID, toChequeResponse(cheque))
	})
}

// ClearCheque marks a deposited cheque as cleared.
func (h *ChequeHandler) ClearCheque(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	chequeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid cheque ID")
		return
	}

	cheque, err := h.service.ClearCheque(c.Request.Context(), tenantID, chequeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toChequeResponse(cheque))
}

// BounceCheque marks the cheque REJECTED and reverses its deposit credit when
// it had already been deposited. Safe to retry with the Idempotency-Key header.
func (h *ChequeHandler) BounceCheque(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	chequeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid cheque ID")
		return
	}

	h.runIdempotent(c, h.runner, tenantID, idempotency.OpBounceCheque, chequeID, func(outcome *idemapp.Outcome) error {
		cheque, err := h.service.BounceCheque(c.Request.Context(), tenantID, chequeID)
		if err != nil {
			return err
		}
		return outcome.Store(http.StatusOK, "cheque", cheque.ID, toChequeResponse(cheque))
	})
}

// VoidCheque voids a cheque that is not attached to an open deposit. Safe to
// retry with the Idempotency-Key header.
func (h *ChequeHandler) VoidCheque(c *gin.Context) {
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

	chequeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid cheque ID")
		return
	}

	var req VoidChequeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	content := struct {
		ChequeID uuid.UUID `json:"cheque_id"`
		Reason   string    `json:"reason"`
	}{chequeID, req.Reason}

	h.runIdempotent(c, h.runner, tenantID, idempotency.OpVoidCheque, content, func(outcome *idemapp.Outcome) error {
		cheque, err := h.service.VoidCheque(c.Request.Context(), tenantID, chequeID, userID, req.Reason)
		if err != nil {
			return err
		}
		return outcome.Store(http.StatusOK, "cheque", cheque.ID, toChequeResponse(cheque))
	})
}

func toChequeResponse(cheque *treasury.Cheque) ChequeResponse {
	return ChequeResponse{
		ID:                 cheque.ID.String(),
		TenantID:           cheque.TenantID.String(),
		Origin:             string(cheque.Origin),
		Kind:               string(cheque.Kind),
		DocumentClass:      string(cheque.DocumentClass),
		Number:             cheque.Number,
		Bank:               cheque.Bank,
		Holder:             cheque.Holder,
		Amount:             cheque.Amount.InexactFloat64(),
		Currency:           cheque.Currency,
		IssueDate:          cheque.IssueDate,
		DueDate:            cheque.DueDate,
		State:              cheque.State.String(),
		BankAccountID:      uuidToString(cheque.BankAccountID),
		CashAccountID:      uuidToString(cheque.CashAccountID),
		DepositedAccountID: uuidToString(cheque.DepositedAccountID),
		DepositID:          uuidToString(cheque.DepositID),
		DepositDate:        cheque.DepositDate,
		VoidReason:         cheque.VoidReason,
		VoidedBy:           uuidToString(cheque.VoidedBy),
		VoidedAt:           cheque.VoidedAt,
		CreatedAt:          cheque.CreatedAt,
		UpdatedAt:          cheque.UpdatedAt,
		Version:            cheque.Version,
	}
}

// RegisterRoutes registers all cheque routes
func (h *ChequeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	cheques := rg.Group("/treasury/cheques")
	{
		cheques.GET("", h.ListCheques)
		cheques.GET("/:id", h.GetCheque)
		cheques.POST("", h.CreateCheque)
		cheques.POST("/:id/clear", h.ClearCheque)
		cheques.POST("/:id/bounce", h.BounceCheque)
		cheques.POST("/:id/void", h.VoidCheque)
	}
}
