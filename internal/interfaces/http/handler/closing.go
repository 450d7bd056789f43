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
	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/domain/treasury"
)

// ClosingHandler handles daily cash closing API endpoints
type ClosingHandler struct {
	BaseHandler
	service *treasuryapp.ClosingService
	runner  *idemapp.Runner
}

// NewClosingHandler creates a new ClosingHandler
func NewClosingHandler(service *treasuryapp.ClosingService, runner *idemapp.Runner) *ClosingHandler {
	return &ClosingHandler{
		service: service,
		runner:  runner,
	}
}

// ===================== Request/Response DTOs =====================

// ClosingResponse represents a cash closing in API responses
type ClosingResponse struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	CashAccountID  string    `json:"cash_account_id"`
	Date           time.Time `json:"date"`
	SystemCash     float64   `json:"system_cash"`
	SystemCheques  float64   `json:"system_cheques"`
	CountedCash    float64   `json:"counted_cash"`
	CountedCheques float64   `json:"counted_cheques"`
	Discrepancy    float64   `json:"discrepancy"`
	State          string    `json:"state"`
	Notes          string    `json:"notes,omitempty"`
	ClosedBy       string    `json:"closed_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Version        int       `json:"version"`
}

// ClosingResultResponse pairs the persisted closing with its operator summary
type ClosingResultResponse struct {
	Closing ClosingResponse `json:"closing"`
	Summary string          `json:"summary"`
}

// ClosingPreviewResponse represents the expected balances before counting
type ClosingPreviewResponse struct {
	CashAccountID string    `json:"cash_account_id"`
	Date          time.Time `json:"date"`
	SystemCash    float64   `json:"system_cash"`
	SystemCheques float64   `json:"system_cheques"`
	SystemTotal   float64   `json:"system_total"`
}

// CreateClosingRequest represents a request to record a daily closing
type CreateClosingRequest struct {
	CashAccountID  string  `json:"cash_account_id" binding:"required,uuid"`
	Date           string  `json:"date" binding:"required"`
	CountedCash    float64 `json:"counted_cash" binding:"gte=0"`
	CountedCheques float64 `json:"counted_cheques" binding:"gte=0"`
	Notes          string  `json:"notes"`
}

// ClosingListFilter represents filter parameters for closing list
type ClosingListFilter struct {
	CashAccountID string `form:"cash_account_id" binding:"required,uuid" json:"cash_account_id"`
	OrderBy       string `form:"order_by"`
	OrderDir      string `form:"order_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
	Page          int    `form:"page,omitempty" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size,omitempty" binding:"omitempty,min=1,max=100" json:"page_size"`
}

// ===================== Closing Handlers =====================

// PreviewClosing computes the expected cash and cheque balances for an account
// and date without persisting anything.
func (h *ClosingHandler) PreviewClosing(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	cashAccountID, err := uuid.Parse(c.Query("cash_account_id"))
	if err != nil {
		h.BadRequest(c, "Invalid cash_account_id")
		return
	}

	date, err := parseDate(c.Query("date"))
	if err != nil {
		h.BadRequest(c, "Invalid date format")
		return
	}

	preview, err := h.service.PreviewClosing(c.Request.Context(), tenantID, cashAccountID, date)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ClosingPreviewResponse{
		CashAccountID: preview.CashAccountID.String(),
		Date:          preview.Date,
		SystemCash:    preview.SystemCash.InexactFloat64(),
		SystemCheques: preview.SystemCheques.InexactFloat64(),
		SystemTotal:   preview.SystemTotal.InexactFloat64(),
	})
}

// CreateClosing snapshots system balances against counted values for an
// account and date. One closing per account per day. Safe to retry with the
// Idempotency-Key header.
func (h *ClosingHandler) CreateClosing(c *gin.Context) {
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

	var req CreateClosingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		h.BadRequest(c, "Invalid date format")
		return
	}

	serviceReq := treasuryapp.CreateClosingRequest{
		CashAccountID:  uuid.MustParse(req.CashAccountID),
		Date:           date,
		CountedCash:    decimal.NewFromFloat(req.CountedCash),
		CountedCheques: decimal.NewFromFloat(req.CountedCheques),
		Notes:          req.Notes,
		ClosedBy:       userID,
	}

	h.runIdempotent(c, h.runner, tenantID, idempotency.OpCreateClosing, &req, func(outcome *idemapp.Outcome) error {
		result, err := h.service.CreateClosing(c.Request.Context(), tenantID, serviceReq)
		if err != nil {
			return err
		}
		return outcome.Store(http.StatusCreated, "closing", result.Closing.ID, ClosingResultResponse{
			Closing: toClosingResponse(result.Closing),
			Summary: result.Summary,
		})
	})
}

// GetClosing returns a cash closing by id.
func (h *ClosingHandler) GetClosing(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	closingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid closing ID")
		return
	}

	closing, err := h.service.GetClosing(c.Request.Context(), tenantID, closingID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toClosingResponse(closing))
}

// ListClosings lists the cash closings recorded for an account.
func (h *ClosingHandler) ListClosings(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil || tenantID == uuid.Nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	var filter ClosingListFilter
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

	serviceFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
	}

	closings, total, err := h.service.ListClosings(c.Request.Context(), tenantID, uuid.MustParse(filter.CashAccountID), serviceFilter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	response := make([]ClosingResponse, len(closings))
	for i, closing := range closings {
		response[i] = toClosingResponse(closing)
	}

	h.SuccessWithMeta(c, response, total, filter.Page, filter.PageSize)
}

func toClosingResponse(closing *treasury.CashClosing) ClosingResponse {
	return ClosingResponse{
		ID:             closing.ID.String(),
		TenantID:       closing.TenantID.String(),
		CashAccountID:  closing.CashAccountID.String(),
		Date:           closing.Date,
		SystemCash:     closing.SystemCash.InexactFloat64(),
		SystemCheques:  closing.SystemCheques.InexactFloat64(),
		CountedCash:    closing.CountedCash.InexactFloat64(),
		CountedCheques: closing.CountedCheques.InexactFloat64(),
		Discrepancy:    closing.Discrepancy.InexactFloat64(),
		State:          string(closing.State),
		Notes:          closing.Notes,
		ClosedBy:       closing.ClosedBy.String(),
		CreatedAt:      closing.CreatedAt,
		UpdatedAt:      closing.UpdatedAt,
		Version:        closing.Version,
	}
}

// RegisterRoutes registers all closing routes
func (h *ClosingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	closings := rg.Group("/treasury/closings")
	{
		closings.GET("", h.ListClosings)
		closings.GET("/preview", h.PreviewClosing)
		closings.GET("/:id", h.GetClosing)
		closings.POST("", h.CreateClosing)
	}
}
