package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/fieldline/casework-api/internal/service"
)

type OrganizationHandler struct {
	orgService *service.OrganizationService
	logger     *zap.Logger
}

func NewOrganizationHandler(orgService *service.OrganizationService, logger *zap.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		orgService: orgService,
		logger:     logger,
	}
}

// @Summary List organizations
// @Tags Organizations
// @Produce json
// @Success 200 {array} domain.Organization
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /organizations [get]
func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgService.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list organizations", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orgs)
}

// @Summary Get organization
// @Tags Organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Success 200 {object} domain.Organization
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /organizations/{id} [get]
func (h *OrganizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := domain.OrganizationID(chi.URLParam(r, "id"))
	org, err := h.orgService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, org)
}
