package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldline/casework-api/internal/domain"
)

// Execution-plan gate endpoints. These drive the
// planning_submitted / waiting_for_planning / active leg of the case
// state machine.

// @Summary Submit execution plan
// @Description Stores the financial plan and phase list, completes the
// @Description EXECUTION_PLANNING task and moves the case to planning_submitted.
// @Description Requires the case to be in quotation status with an approved audit.
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param request body domain.SubmitExecutionPlanRequest true "Plan data"
// @Success 200 {object} domain.CaseDTO
// @Failure 409 {object} domain.APIError "Case is not in quotation status or audit not approved"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases/{id}/plan [post]
func (h *CaseHandler) SubmitPlan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid case ID")
		return
	}

	var req domain.SubmitExecutionPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	c, err := h.caseService.SubmitExecutionPlan(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to submit execution plan", zap.Error(err), zap.String("case_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

// @Summary Approve execution plan
// @Description Admin approval: marks the plan approved and moves the case to
// @Description active. Approving an already active case is a no-op success.
// @Description A master record document is generated in the background.
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} domain.CaseDTO
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError "No plan awaiting approval"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases/{id}/plan/approve [post]
func (h *CaseHandler) ApprovePlan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid case ID")
		return
	}

	c, err := h.caseService.ApproveExecutionPlan(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to approve execution plan", zap.Error(err), zap.String("case_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

// @Summary Reject execution plan
// @Description Moves the case from planning_submitted back to
// @Description waiting_for_planning. A rejection reason is required.
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
// @Router /cases/{id}/plan/reject [post]
func (h *CaseHandler) RejectPlan(w http.ResponseWriter, r *http.Request) {
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

	c, err := h.caseService.RejectExecutionPlan(r.Context(), id, req.Reason)
	if err != nil {
		h.logger.Error("failed to reject execution plan", zap.Error(err), zap.String("case_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

// @Summary Resubmit execution plan
// @Description Reworks a rejected plan: moves the case from
// @Description waiting_for_planning back to planning_submitted with the new
// @Description plan content.
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param request body domain.SubmitExecutionPlanRequest true "Revised plan data"
// @Success 200 {object} domain.CaseDTO
// @Failure 409 {object} domain.APIError "Case has no rejected plan to rework"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases/{id}/plan/resubmit [post]
func (h *CaseHandler) ResubmitPlan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid case ID")
		return
	}

	var req domain.SubmitExecutionPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	c, err := h.caseService.ResubmitPlanning(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to resubmit execution plan", zap.Error(err), zap.String("case_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}
