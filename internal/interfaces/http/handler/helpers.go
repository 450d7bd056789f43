package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	idemapp "github.com/tesoreria/backend/internal/application/idempotency"
	"github.com/tesoreria/backend/internal/domain/idempotency"
	"github.com/tesoreria/backend/internal/interfaces/http/dto"
)

// parseDate parses a plain calendar date
func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// parseDateTime parses a timestamp in the formats clients actually send
func parseDateTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02 15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %s", s)
}

// parseOptionalUUID converts an optional string field to a UUID pointer.
// Invalid values become nil; binding validation rejects them before this runs.
func parseOptionalUUID(s *string) *uuid.UUID {
	if s == nil || *s == "" {
		return nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil
	}
	return &id
}

func uuidToString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// runIdempotent binds the key resolution, runner execution and response
// emission shared by every protected write endpoint. The content value is
// hashed into a derived key when the client did not send an Idempotency-Key
// header. Replays answer with the stored payload and a marker header.
func (h *BaseHandler) runIdempotent(
	c *gin.Context,
	runner *idemapp.Runner,
	tenantID uuid.UUID,
	op idempotency.OperationType,
	content any,
	fn func(outcome *idemapp.Outcome) error,
) {
	raw, err := json.Marshal(content)
	if err != nil {
		h.InternalError(c, "Failed to derive idempotency key")
		return
	}

	key, err := idemapp.ResolveKey(op, tenantID, c.GetHeader("Idempotency-Key"), raw)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := runner.Execute(c.Request.Context(), tenantID, op, key, func(context.Context) (*idemapp.Outcome, error) {
		var outcome idemapp.Outcome
		if err := fn(&outcome); err != nil {
			return nil, err
		}
		return &outcome, nil
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.Replayed {
		c.Header("Idempotency-Replayed", "true")
	}
	c.JSON(result.ResultCode, dto.Response{
		Success: true,
		Data:    json.RawMessage(result.Payload),
	})
}
