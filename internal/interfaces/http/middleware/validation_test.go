package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tesoreria/backend/internal/interfaces/http/dto"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	require.NotNil(t, v)
}

func TestHandleBindingError_FieldDetails(t *testing.T) {
	type slipRequest struct {
		CashAccountID string  `json:"cash_account_id" binding:"required,uuid"`
		CashAmount    float64 `json:"cash_amount" binding:"omitempty,gte=0"`
	}

	SetupValidator()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/deposits", func(c *gin.Context) {
		var req slipRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleBindingError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
	})

	t.Run("reports failed fields by json tag name", func(t *testing.T) {
		body := strings.NewReader(`{"cash_account_id": "not-a-uuid", "cash_amount": -5}`)
		req := httptest.NewRequest(http.MethodPost, "/deposits", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		require.Len(t, resp.Error.Details, 2)

		fields := []string{resp.Error.Details[0].Field, resp.Error.Details[1].Field}
		assert.Contains(t, fields, "cash_account_id")
		assert.Contains(t, fields, "cash_amount")
	})

	t.Run("malformed body gets a generic message", func(t *testing.T) {
		body := strings.NewReader(`{"cash_account_id": `)
		req := httptest.NewRequest(http.MethodPost, "/deposits", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
		assert.Empty(t, resp.Error.Details)
	})

	t.Run("valid input passes through", func(t *testing.T) {
		body := strings.NewReader(`{"cash_account_id": "0b53bd33-7a75-4b15-ae29-8f9a7a2b2b11", "cash_amount": 100}`)
		req := httptest.NewRequest(http.MethodPost, "/deposits", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestFieldMessage(t *testing.T) {
	type input struct {
		Number    string  `binding:"required"`
		AccountID string  `binding:"omitempty,uuid"`
		Direction string  `binding:"omitempty,oneof=CREDIT DEBIT"`
		Amount    float64 `binding:"omitempty,gt=0"`
		Currency  string  `binding:"omitempty,len=3"`
		PageSize  int     `binding:"omitempty,max=100"`
	}

	v := validator.New()
	v.SetTagName("binding")
	err := v.Struct(input{
		AccountID: "oops",
		Direction: "SIDEWAYS",
		Amount:    -1,
		Currency:  "PESOS",
		PageSize:  500,
	})
	require.Error(t, err)

	expected := map[string]string{
		"Number":    "This field is required",
		"AccountID": "Must be a valid UUID",
		"Direction": "Must be one of: CREDIT, DEBIT",
		"Amount":    "Must be greater than 0",
		"Currency":  "Must be exactly 3 characters",
		"PageSize":  "Must be at most 100",
	}

	verrs, ok := err.(validator.ValidationErrors)
	require.True(t, ok)
	require.Len(t, verrs, len(expected))
	for _, e := range verrs {
		assert.Equal(t, expected[e.StructField()], fieldMessage(e), e.StructField())
	}
}
