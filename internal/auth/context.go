package auth

import (
	"context"
	"strings"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/google/uuid"
)

// UserContext holds authenticated user information
type UserContext struct {
	UserID         uuid.UUID
	DisplayName    string
	Email          string
	Roles          []domain.UserRoleType
	OrganizationID domain.OrganizationID
}

type contextKey string

const userContextKey contextKey = "userContext"
const orgFilterKey contextKey = "orgFilter"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// MustFromContext extracts user context or panics
func MustFromContext(ctx context.Context) *UserContext {
	user, ok := FromContext(ctx)
	if !ok {
		panic("user context not found in context")
	}
	return user
}

// HasRole checks if user has a specific role
func (u *UserContext) HasRole(role domain.UserRoleType) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks if user has any of the specified roles
func (u *UserContext) HasAnyRole(roles ...domain.UserRoleType) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// IsAdmin checks if user is an admin
func (u *UserContext) IsAdmin() bool {
	return u.HasRole(domain.RoleAdmin)
}

// CanSeeInternalPRCode reports whether the caller may read the restricted
// procurement reference on quotations. Enforced at the mapping layer: the
// field is never serialized to anyone else.
func (u *UserContext) CanSeeInternalPRCode() bool {
	return u.HasAnyRole(domain.RoleAdmin, domain.RoleSalesGM, domain.RoleQuotation)
}

// CanResolveAudit reports whether the caller may settle a procurement audit
func (u *UserContext) CanResolveAudit() bool {
	return u.HasAnyRole(domain.RoleAdmin, domain.RoleProcurement)
}

// CanApprovePlans reports whether the caller may work the approval gates
func (u *UserContext) CanApprovePlans() bool {
	return u.HasAnyRole(domain.RoleAdmin, domain.RoleSalesGM)
}

// CanPostInvoices reports whether the caller may post to the ledger
func (u *UserContext) CanPostInvoices() bool {
	return u.HasAnyRole(domain.RoleAdmin, domain.RoleFinance, domain.RoleAPIService)
}

// CanAccessOrganization checks if user can access data for an organization.
// Admins are not bound to a single organization.
func (u *UserContext) CanAccessOrganization(orgID domain.OrganizationID) bool {
	if u.IsAdmin() {
		return true
	}
	return u.OrganizationID == orgID
}

// GetOrgFilter returns the organization ID to filter queries by.
// Returns nil for admins (no filtering needed).
func (u *UserContext) GetOrgFilter() *domain.OrganizationID {
	if u.IsAdmin() {
		return nil
	}
	return &u.OrganizationID
}

// GetDisplayNameInitials returns initials from the display name (e.g., "John Doe" -> "JD")
func (u *UserContext) GetDisplayNameInitials() string {
	if u.DisplayName == "" {
		return ""
	}
	parts := strings.Fields(u.DisplayName)
	initials := ""
	for _, part := range parts {
		if len(part) > 0 {
			initials += strings.ToUpper(string(part[0]))
		}
	}
	return initials
}

// RolesAsStrings returns roles as a slice of strings
func (u *UserContext) RolesAsStrings() []string {
	result := make([]string, len(u.Roles))
	for i, role := range u.Roles {
		result[i] = string(role)
	}
	return result
}

// OrgFilter represents the effective organization filter for queries.
// Set by middleware based on user context and query parameters.
type OrgFilter struct {
	// OrganizationID is the organization to filter by (nil means no filter)
	OrganizationID *domain.OrganizationID
	// RequestedByAdmin indicates an admin explicitly scoped the request
	RequestedByAdmin bool
}

// WithOrgFilter adds an organization filter to the context
func WithOrgFilter(ctx context.Context, filter *OrgFilter) context.Context {
	return context.WithValue(ctx, orgFilterKey, filter)
}

// OrgFilterFromContext extracts the organization filter from the context
func OrgFilterFromContext(ctx context.Context) (*OrgFilter, bool) {
	filter, ok := ctx.Value(orgFilterKey).(*OrgFilter)
	return filter, ok
}

// GetEffectiveOrgFilter returns the organization ID repositories should
// filter by. Returns nil if no filtering should be applied.
func GetEffectiveOrgFilter(ctx context.Context) *domain.OrganizationID {
	if filter, ok := OrgFilterFromContext(ctx); ok && filter != nil {
		return filter.OrganizationID
	}

	if userCtx, ok := FromContext(ctx); ok {
		return userCtx.GetOrgFilter()
	}

	return nil
}
