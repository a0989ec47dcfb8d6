package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/fieldline/casework-api/internal/repository"
	"github.com/fieldline/casework-api/internal/service"
)

type CaseHandler struct {
	caseService *service.CaseService
	logger      *zap.Logger
}

func NewCaseHandler(caseService *service.CaseService, logger *zap.Logger) *CaseHandler {
	return &CaseHandler{
		caseService: caseService,
		logger:      logger,
	}
}

// @Summary List cases
// @Tags Cases
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param status query string false "Filter by case status"
// @Param clientName query string false "Filter by client name"
// @Param assignedUser query string false "Filter by assigned team member"
// @Param archived query bool false "Include only archived or only live cases"
// @Param createdAfter query string false "Created after (RFC 3339)"
// @Param createdBefore query string false "Created before (RFC 3339)"
// @Param q query string false "Free-text search on title and client name"
// @Param sortBy query string false "Sort option" Enums(created_desc, created_asc, updated_desc, title_asc, budget_desc)
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases [get]
func (h *CaseHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	filters := &repository.CaseFilters{}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.CaseStatus(s)
		if !status.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid case status")
			return
		}
		filters.Status = &status
	}
	if c := r.URL.Query().Get("clientName"); c != "" {
		filters.ClientName = &c
	}
	if u := r.URL.Query().Get("assignedUser"); u != "" {
		filters.AssignedUser = &u
	}
	if a := r.URL.Query().Get("archived"); a != "" {
		archived := a == "true"
		filters.Archived = &archived
	}
	if ca := r.URL.Query().Get("createdAfter"); ca != "" {
		if t, err := time.Parse(time.RFC3339, ca); err == nil {
			filters.CreatedAfter = &t
		}
	}
	if cb := r.URL.Query().Get("createdBefore"); cb != "" {
		if t, err := time.Parse(time.RFC3339, cb); err == nil {
			filters.CreatedBefore = &t
		}
	}
	if q := r.URL.Query().Get("q"); q != "" {
		filters.SearchQuery = &q
	}

	sortBy := repository.CaseSortByCreatedDesc
	if s := r.URL.Query().Get("sortBy"); s != "" {
		sortBy = repository.CaseSortOption(s)
	}

	cases, total, err := h.caseService.ListCases(r.Context(), page, pageSize, filters, sortBy)
	if err != nil {
		h.logger.Error("failed to list cases", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, paginated(cases, total, page, pageSize))
}

// @Summary Create case
// @Description Opens a new case. The case starts in the site-visit pipeline with a
// @Description SITE_VISIT task, or in the budget approval gate when
// @Description requiresBudgetApproval is set.
// @Tags Cases
// @Accept json
// @Produce json
// @Param request body domain.CreateCaseRequest true "Case data"
// @Success 201 {object} domain.CaseDTO
// @Failure 400 {object} domain.APIError "Validation error"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases [post]
func (h *CaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	c, err := h.caseService.CreateCase(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create case", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, c)
}

// @Summary Get case
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} domain.CaseDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases/{id} [get]
func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid case ID")
		return
	}

	c, err := h.caseService.GetCase(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

// @Summary Get case detail
// @Description Returns the case with its tasks, bills of quantities, quotations
// @Description and activity history in one snapshot read.
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} domain.CaseDetailDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases/{id}/detail [get]
func (h *CaseHandler) GetDetail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid case ID")
		return
	}

	detail, err := h.caseService.GetCaseDetail(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load case detail", zap.Error(err), zap.String("case_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

// @Summary Case status overview
// @Description Returns the number of live cases per status.
// @Tags Cases
// @Produce json
// @Success 200 {object} map[string]int64
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases/status-overview [get]
func (h *CaseHandler) StatusOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.caseService.StatusOverview(r.Context())
	if err != nil {
		h.logger.Error("failed to build status overview", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, overview)
}

// @Summary Update case team
// @Description Replaces the role→user assignment map. Successor tasks pick
// @Description their assignee from this map at creation time.
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param request body domain.UpdateCaseTeamRequest true "Team assignments"
// @Success 200 {object} domain.CaseDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases/{id}/team [put]
func (h *CaseHandler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid case ID")
		return
	}

	var req domain.UpdateCaseTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	c, err := h.caseService.UpdateTeam(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to update case team", zap.Error(err), zap.String("case_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

// @Summary Approve case budget
// @Description Moves a case from pending_budget_approval to active. Admin only.
// @Description Approving an already active case is a no-op success.
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} domain.CaseDTO
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Case is not awaiting budget approval"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases/{id}/approve-budget [post]
func (h *CaseHandler) ApproveBudget(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid case ID")
		return
	}

	c, err := h.caseService.ApproveBudget(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to approve budget", zap.Error(err), zap.String("case_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

// @Summary Reject case budget
// @Description Moves a case from pending_budget_approval to
// @Description pending_execution_approval. A rejection reason is required.
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param request body domain.RejectPlanRequest true "Rejection reason"
// @Success 200 {object} domain.CaseDTO
// @Failure 400 {object} domain.APIError "Missing rejection reason"
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases/{id}/reject-budget [post]
func (h *CaseHandler) RejectBudget(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid case ID")
		return
	}

	var req domain.RejectPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	c, err := h.caseService.RejectBudget(r.Context(), id, req.Reason)
	if err != nil {
		h.logger.Error("failed to reject budget", zap.Error(err), zap.String("case_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

// @Summary Approve execution after budget rejection
// @Description Moves a case from pending_execution_approval to active.
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} domain.CaseDTO
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases/{id}/approve-execution [post]
func (h *CaseHandler) ApproveExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid case ID")
		return
	}

	c, err := h.caseService.ApproveExecution(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to approve execution", zap.Error(err), zap.String("case_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

// @Summary Close case
// @Description Financial closure: moves an active case to closed. Closing an
// @Description already closed case is a no-op success.
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} domain.CaseDTO
// @Failure 409 {object} domain.APIError "Case is not active"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases/{id}/close [post]
func (h *CaseHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid case ID")
		return
	}

	c, err := h.caseService.CloseCase(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to close case", zap.Error(err), zap.String("case_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

// @Summary Archive case
// @Description Soft-deletes a closed case. Archived cases remain readable
// @Description through list filters but accept no further writes.
// @Tags Cases
// @Param id path string true "Case ID"
// @Success 204 "No Content"
// @Failure 409 {object} domain.APIError "Only closed cases can be archived"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases/{id} [delete]
func (h *CaseHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid case ID")
		return
	}

	if err := h.caseService.ArchiveCase(r.Context(), id); err != nil {
		h.logger.Error("failed to archive case", zap.Error(err), zap.String("case_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// @Summary List case activity history
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Param limit query int false "Maximum entries" default(100)
// @Success 200 {array} domain.ActivityDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases/{id}/activities [get]
func (h *CaseHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid case ID")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	activities, err := h.caseService.ListActivities(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("failed to list case activities", zap.Error(err), zap.String("case_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, activities)
}

// parsePagination reads page/pageSize query params with the shared defaults
func parsePagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}

func paginated(data interface{}, total int64, page, pageSize int) *domain.PaginatedResponse {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &domain.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
