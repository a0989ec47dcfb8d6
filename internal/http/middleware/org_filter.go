package middleware

import (
	"net/http"

	"github.com/fieldline/casework-api/internal/auth"
	"github.com/fieldline/casework-api/internal/domain"
	"go.uber.org/zap"
)

// OrgFilterMiddleware handles multi-tenant data isolation. It derives the
// effective organization filter from the authenticated user and optionally
// lets admins scope a request to a specific organization.
type OrgFilterMiddleware struct {
	logger *zap.Logger
}

// NewOrgFilterMiddleware creates a new organization filter middleware
func NewOrgFilterMiddleware(logger *zap.Logger) *OrgFilterMiddleware {
	return &OrgFilterMiddleware{
		logger: logger,
	}
}

// Filter sets the effective organization filter in the request context.
// - Admins can optionally filter by ?organization_id=<org>
// - Everyone else is always filtered to their own organization
// - An admin without an explicit filter sees all organizations
func (m *OrgFilterMiddleware) Filter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userCtx, ok := auth.FromContext(r.Context())
		if !ok {
			// No user context - authentication middleware should have already
			// rejected unauthenticated requests
			next.ServeHTTP(w, r)
			return
		}

		var filter *auth.OrgFilter

		requestedOrgID := r.URL.Query().Get("organization_id")

		if requestedOrgID != "" {
			orgID := domain.OrganizationID(requestedOrgID)

			if !userCtx.CanAccessOrganization(orgID) {
				m.logger.Warn("user attempted to access unauthorized organization",
					zap.String("user_id", userCtx.UserID.String()),
					zap.String("user_organization", string(userCtx.OrganizationID)),
					zap.String("requested_organization", requestedOrgID),
				)
				http.Error(w, "Access denied: you cannot access data for this organization", http.StatusForbidden)
				return
			}

			filter = &auth.OrgFilter{OrganizationID: &orgID}
		} else if userCtx.OrganizationID != "" && !userCtx.IsAdmin() {
			orgID := userCtx.OrganizationID
			filter = &auth.OrgFilter{OrganizationID: &orgID}
		} else if userCtx.OrganizationID != "" {
			// Admins default to their own organization too; cross-org reads
			// are an explicit query-parameter decision
			orgID := userCtx.OrganizationID
			filter = &auth.OrgFilter{OrganizationID: &orgID}
		} else {
			filter = &auth.OrgFilter{OrganizationID: nil}
		}

		ctx := auth.WithOrgFilter(r.Context(), filter)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
