package persistence

import (
	"strings"
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

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
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

// SheetSortFields contains allowed sort fields for settlement sheets
var SheetSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"sheet_number": true,
	"sheet_date":   true,
	"status":       true,
}

// SettlementSortFields contains allowed sort fields for settlements
var SettlementSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"settlement_number": true,
	"status":            true,
	"submitted_at":      true,
	"reviewed_at":       true,
}

// RouteSortFields contains allowed sort fields for delivery routes
var RouteSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"route_number": true,
	"route_date":   true,
	"driver_name":  true,
	"status":       true,
}

// CollectionSheetSortFields contains allowed sort fields for collection sheets
var CollectionSheetSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"sheet_number": true,
	"status":       true,
	"validated_at": true,
}

// orderClause builds a validated ORDER BY clause for list queries
func orderClause(orderBy, orderDir string, allowed map[string]bool, defaultField string) string {
	return ValidateSortField(orderBy, allowed, defaultField) + " " + ValidateSortOrder(orderDir)
}
