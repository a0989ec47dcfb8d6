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

type BOQHandler struct {
	boqService *service.BOQService
	logger     *zap.Logger
}

func NewBOQHandler(boqService *service.BOQService, logger *zap.Logger) *BOQHandler {
	return &BOQHandler{
		boqService: boqService,
		logger:     logger,
	}
}

// @Summary Get bill of quantities
// @Tags BOQ
// @Produce json
// @Param id path string true "BOQ ID"
// @Success 200 {object} domain.BOQDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /boqs/{id} [get]
func (h *BOQHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid BOQ ID")
		return
	}

	boq, err := h.boqService.GetBOQ(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, boq)
}

// @Summary List case BOQs
// @Tags BOQ
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {array} domain.BOQDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases/{id}/boqs [get]
func (h *BOQHandler) ListByCase(w http.ResponseWriter, r *http.Request) {
	caseID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid case ID")
		return
	}

	boqs, err := h.boqService.ListByCase(r.Context(), caseID)
	if err != nil {
		h.logger.Error("failed to list case BOQs", zap.Error(err), zap.String("case_id", caseID.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, boqs)
}

// @Summary Create bill of quantities
// @Description Records the unpriced quantity survey for a case. Rates are
// @Description forced to zero; pricing happens on the quotation. Creation
// @Description completes the case's DRAWING task, which queues the QUOTATION
// @Description task and moves the case to boq_completed. A PDF rendition is
// @Description generated in the background.
// @Tags BOQ
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param request body domain.CreateBOQRequest true "BOQ lines"
// @Success 201 {object} domain.BOQDTO
// @Failure 409 {object} domain.APIError "Case is not awaiting a drawing"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases/{id}/boqs [post]
func (h *BOQHandler) Create(w http.ResponseWriter, r *http.Request) {
	caseID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid case ID")
		return
	}

	var req domain.CreateBOQRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	boq, err := h.boqService.CreateBOQ(r.Context(), caseID, &req)
	if err != nil {
		h.logger.Error("failed to create BOQ", zap.Error(err), zap.String("case_id", caseID.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, boq)
}

// @Summary Update bill of quantities
// @Description Replaces the line set of an unlocked BOQ. A BOQ locks
// @Description permanently when a quotation is submitted against it.
// @Tags BOQ
// @Accept json
// @Produce json
// @Param id path string true "BOQ ID"
// @Param request body domain.CreateBOQRequest true "Replacement lines"
// @Success 200 {object} domain.BOQDTO
// @Failure 409 {object} domain.APIError "BOQ is locked"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /boqs/{id} [put]
func (h *BOQHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid BOQ ID")
		return
	}

	var req domain.CreateBOQRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	boq, err := h.boqService.UpdateBOQ(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to update BOQ", zap.Error(err), zap.String("boq_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, boq)
}
