package repository

import (
	"errors"
	"strings"

	"github.com/tripdesk/agency-api/internal/auth"
	"gorm.io/gorm"
)

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SortConfig holds sorting configuration for list queries
type SortConfig struct {
	Field string    // The field to sort by (API field name)
	Order SortOrder // asc or desc
}

// DefaultSortConfig returns a default sort configuration (created_at DESC)
func DefaultSortConfig() SortConfig {
	return SortConfig{
		Field: "createdAt",
		Order: SortOrderDesc,
	}
}

// ParseSortOrder parses a string into SortOrder, defaulting to desc
func ParseSortOrder(s string) SortOrder {
	if strings.ToLower(s) == "asc" {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// BuildOrderClause builds the SQL ORDER BY clause from field mapping and sort config
// fieldMap maps API field names to database column names
// Returns the default sort if field is not in whitelist
func BuildOrderClause(config SortConfig, fieldMap map[string]string, defaultColumn string) string {
	column, ok := fieldMap[config.Field]
	if !ok {
		column = defaultColumn
	}

	order := "DESC"
	if config.Order == SortOrderAsc {
		order = "ASC"
	}

	return column + " " + order
}

// ErrVersionConflict is returned when an optimistic-locked row changed underneath the caller
var ErrVersionConflict = errors.New("version conflict")

// ApplyScope restricts a query to the rows an actor may see.
// Columns are agency_id and created_by_id on the query's main table.
func ApplyScope(query *gorm.DB, scope auth.Scope) *gorm.DB {
	return ApplyScopeWithAlias(query, scope, "")
}

// ApplyScopeWithAlias applies the scope using a table alias
// Use this when joining tables that also carry agency_id or created_by_id
func ApplyScopeWithAlias(query *gorm.DB, scope auth.Scope, tableAlias string) *gorm.DB {
	prefix := ""
	if tableAlias != "" {
		prefix = tableAlias + "."
	}
	if scope.Empty {
		return query.Where("1 = 0")
	}
	if scope.AgencyID != nil {
		query = query.Where(prefix+"agency_id = ?", *scope.AgencyID)
	}
	if scope.CreatedBy != nil {
		query = query.Where(prefix+"created_by_id = ?", *scope.CreatedBy)
	}
	return query
}

// Paginate applies offset and limit for a 1-based page
func Paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}

// likePattern builds a case-insensitive LIKE pattern for a search term
func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}
