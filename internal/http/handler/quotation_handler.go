package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/fieldline/casework-api/internal/service"
)

type QuotationHandler struct {
	quotationService *service.QuotationService
	logger           *zap.Logger
}

func NewQuotationHandler(quotationService *service.QuotationService, logger *zap.Logger) *QuotationHandler {
	return &QuotationHandler{
		quotationService: quotationService,
		logger:           logger,
	}
}

// @Summary Get quotation
// @Description The internal PR code is included only for callers holding the
// @Description admin, sales GM or quotation role.
// @Tags Quotations
// @Produce json
// @Param id path string true "Quotation ID"
// @Success 200 {object} domain.QuotationDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/{id} [get]
func (h *QuotationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quotation ID")
		return
	}

	q, err := h.quotationService.GetQuotation(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, q)
}

// @Summary List case quotations
// @Tags Quotations
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {array} domain.QuotationDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases/{id}/quotations [get]
func (h *QuotationHandler) ListByCase(w http.ResponseWriter, r *http.Request) {
	caseID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid case ID")
		return
	}

	quotations, err := h.quotationService.ListByCase(r.Context(), caseID)
	if err != nil {
		h.logger.Error("failed to list case quotations", zap.Error(err), zap.String("case_id", caseID.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, quotations)
}

// @Summary List quotations pending audit
// @Description Returns quotations awaiting a procurement audit decision.
// @Description Requires the admin, sales GM or procurement role.
// @Tags Quotations
// @Produce json
// @Success 200 {array} domain.QuotationDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/pending-audit [get]
func (h *QuotationHandler) ListPendingAudit(w http.ResponseWriter, r *http.Request) {
	quotations, err := h.quotationService.ListPendingAudit(r.Context())
	if err != nil {
		h.logger.Error("failed to list quotations pending audit", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, quotations)
}

// @Summary Submit quotation
// @Description Prices the latest BOQ of the case. In one transaction the BOQ
// @Description is locked, the quotation is written with auditStatus=pending,
// @Description the QUOTATION task is completed (queueing PROCUREMENT_AUDIT)
// @Description and the case moves to quotation status. Totals are computed
// @Description as subtotal, minus discount, plus tax, rounded once to cents.
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param request body domain.SubmitQuotationRequest true "Priced lines and rates"
// @Success 201 {object} domain.QuotationDTO
// @Failure 409 {object} domain.APIError "No BOQ, BOQ locked, or case not ready"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases/{id}/quotations [post]
func (h *QuotationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	caseID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid case ID")
		return
	}

	var req domain.SubmitQuotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	q, err := h.quotationService.SubmitQuotation(r.Context(), caseID, &req)
	if err != nil {
		h.logger.Error("failed to submit quotation", zap.Error(err), zap.String("case_id", caseID.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, q)
}

// @Summary Resolve procurement audit
// @Description Approves or rejects a pending quotation audit. Approval
// @Description completes the PROCUREMENT_AUDIT task and queues
// @Description EXECUTION_PLANNING; rejection requires a note and waits for a
// @Description resubmitted quotation. Requires the admin, sales GM or
// @Description procurement role.
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path string true "Quotation ID"
// @Param request body domain.ResolveAuditRequest true "Audit decision"
// @Success 200 {object} domain.QuotationDTO
// @Failure 400 {object} domain.APIError "Rejection without a note"
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Audit already resolved"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /quotations/{id}/audit [post]
func (h *QuotationHandler) ResolveAudit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid quotation ID")
		return
	}

	var req domain.ResolveAuditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	q, err := h.quotationService.ResolveAudit(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to resolve quotation audit", zap.Error(err), zap.String("quotation_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, q)
}
