package repository

import (
	"context"
	"strings"

	"github.com/fieldline/casework-api/internal/auth"
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

// DefaultSortConfig returns a default sort configuration (updated_at DESC)
func DefaultSortConfig() SortConfig {
	return SortConfig{
		Field: "updatedAt",
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

// BuildOrderClause builds the SQL ORDER BY clause from field mapping and sort config.
// fieldMap maps API field names to database column names; unknown fields fall
// back to defaultColumn.
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

// ApplyOrgFilter applies the multi-tenant organization filter to a GORM query.
// If no filter is set (caller has access to all organizations), the query is
// returned unchanged.
func ApplyOrgFilter(ctx context.Context, query *gorm.DB) *gorm.DB {
	orgID := auth.GetEffectiveOrgFilter(ctx)
	if orgID != nil {
		return query.Where("organization_id = ?", *orgID)
	}
	return query
}

// ApplyOrgFilterWithAlias applies the organization filter using a table alias.
// Use this when joining multiple tables and the organization_id column needs
// qualification.
func ApplyOrgFilterWithAlias(ctx context.Context, query *gorm.DB, tableAlias string) *gorm.DB {
	orgID := auth.GetEffectiveOrgFilter(ctx)
	if orgID != nil {
		return query.Where(tableAlias+".organization_id = ?", *orgID)
	}
	return query
}

// MustHaveOrgAccess checks if the caller may touch a record owned by the
// given organization.
func MustHaveOrgAccess(ctx context.Context, recordOrgID string) bool {
	orgID := auth.GetEffectiveOrgFilter(ctx)
	if orgID == nil {
		return true
	}
	return string(*orgID) == recordOrgID
}
