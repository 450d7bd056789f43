package persistence

import (
	"strings"

	"github.com/tesoreria/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed
// fields. Returns the defaultField if the input is invalid, empty, or not in
// the whitelist. Ordering clauses are built from these validated values only,
// never from raw request input.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// ChequeSortFields contains allowed sort fields for cheques
var ChequeSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"number":     true,
	"bank":       true,
	"amount":     true,
	"due_date":   true,
	"state":      true,
}

// DepositSortFields contains allowed sort fields for cash deposits
var DepositSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"deposit_number": true,
	"deposit_date":   true,
	"status":         true,
}

// MovementSortFields contains allowed sort fields for treasury movements
var MovementSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"date":       true,
	"amount":     true,
	"status":     true,
}

// BankMovementSortFields contains allowed sort fields for statement lines
var BankMovementSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"date":       true,
	"amount":     true,
	"status":     true,
}

// ClosingSortFields contains allowed sort fields for cash closings
var ClosingSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"date":        true,
	"discrepancy": true,
	"state":       true,
}

// applyPagination applies page/page-size limits from a filter
func applyPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}
	return query
}

// applySort applies a validated ordering clause from a filter
func applySort(query *gorm.DB, filter shared.Filter, allowedFields map[string]bool, defaultField string) *gorm.DB {
	field := ValidateSortField(filter.OrderBy, allowedFields, defaultField)
	return query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
}
