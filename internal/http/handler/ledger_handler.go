package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/fieldline/casework-api/internal/repository"
	"github.com/fieldline/casework-api/internal/service"
)

type LedgerHandler struct {
	ledgerService *service.LedgerService
	logger        *zap.Logger
}

func NewLedgerHandler(ledgerService *service.LedgerService, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// @Summary Post sales invoice
// @Description Issues a sales invoice. In one transaction the next SAL number
// @Description is claimed, the invoice is created as pending_approval and a
// @Description balanced DEBIT accounts_receivable / CREDIT revenue pair is
// @Description written at the gross total. Requires the admin or finance role.
// @Tags Ledger
// @Accept json
// @Produce json
// @Param request body domain.PostInvoiceRequest true "Invoice data"
// @Success 201 {object} domain.InvoiceDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/sales [post]
func (h *LedgerHandler) PostSales(w http.ResponseWriter, r *http.Request) {
	var req domain.PostInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	inv, err := h.ledgerService.PostSalesInvoice(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to post sales invoice", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, inv)
}

// @Summary Post purchase invoice
// @Description Records a supplier invoice. In one transaction the next PUR
// @Description number is claimed, the invoice is created and a balanced
// @Description DEBIT expense / CREDIT accounts_payable pair is written at the
// @Description pre-tax amount. When the invoice targets a case with a cost
// @Description center the case spend is incremented atomically; the whole
// @Description posting fails when the budget would be exceeded. Requires the
// @Description admin or finance role.
// @Tags Ledger
// @Accept json
// @Produce json
// @Param request body domain.PostInvoiceRequest true "Invoice data"
// @Success 201 {object} domain.InvoiceDTO
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Cost center budget exceeded"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/purchases [post]
func (h *LedgerHandler) PostPurchase(w http.ResponseWriter, r *http.Request) {
	var req domain.PostInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	inv, err := h.ledgerService.PostPurchaseInvoice(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to post purchase invoice", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, inv)
}

// @Summary Mark invoice paid
// @Description Flips the invoice status to paid and stamps the payment time.
// @Description Posts no ledger entries. Marking an already paid invoice is a
// @Description no-op success.
// @Tags Ledger
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} domain.InvoiceDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id}/paid [post]
func (h *LedgerHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	inv, err := h.ledgerService.MarkInvoicePaid(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to mark invoice paid", zap.Error(err), zap.String("invoice_id", id.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, inv)
}

// @Summary Get invoice
// @Tags Ledger
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} domain.InvoiceDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id} [get]
func (h *LedgerHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	inv, err := h.ledgerService.GetInvoice(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, inv)
}

// @Summary List invoices
// @Tags Ledger
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param kind query string false "Filter by kind" Enums(sales, purchase)
// @Param status query string false "Filter by status" Enums(pending_approval, approved, paid)
// @Param caseId query string false "Filter by case ID"
// @Param issuedAfter query string false "Issued after (RFC 3339)"
// @Param issuedBefore query string false "Issued before (RFC 3339)"
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices [get]
func (h *LedgerHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	filters := &repository.InvoiceFilters{}
	if k := r.URL.Query().Get("kind"); k != "" {
		kind := domain.InvoiceKind(k)
		if !kind.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid invoice kind")
			return
		}
		filters.Kind = &kind
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.InvoiceStatus(s)
		filters.Status = &status
	}
	if cid := r.URL.Query().Get("caseId"); cid != "" {
		if id, err := uuid.Parse(cid); err == nil {
			filters.CaseID = &id
		}
	}
	if ia := r.URL.Query().Get("issuedAfter"); ia != "" {
		if t, err := time.Parse(time.RFC3339, ia); err == nil {
			filters.IssuedAfter = &t
		}
	}
	if ib := r.URL.Query().Get("issuedBefore"); ib != "" {
		if t, err := time.Parse(time.RFC3339, ib); err == nil {
			filters.IssuedBefore = &t
		}
	}

	invoices, total, err := h.ledgerService.ListInvoices(r.Context(), page, pageSize, filters)
	if err != nil {
		h.logger.Error("failed to list invoices", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, paginated(invoices, total, page, pageSize))
}

// @Summary List ledger entries
// @Tags Ledger
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /ledger [get]
func (h *LedgerHandler) ListLedger(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	entries, total, err := h.ledgerService.ListLedger(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("failed to list ledger entries", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, paginated(entries, total, page, pageSize))
}

// @Summary List case ledger entries
// @Tags Ledger
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {array} domain.LedgerEntryDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /cases/{id}/ledger [get]
func (h *LedgerHandler) ListCaseLedger(w http.ResponseWriter, r *http.Request) {
	caseID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid case ID")
		return
	}

	entries, err := h.ledgerService.ListCaseLedger(r.Context(), caseID)
	if err != nil {
		h.logger.Error("failed to list case ledger", zap.Error(err), zap.String("case_id", caseID.String()))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

// @Summary Trial balance
// @Description Sums debits and credits per account for the caller's
// @Description organization. A healthy ledger always reports balanced=true.
// @Tags Ledger
// @Produce json
// @Success 200 {object} domain.TrialBalanceDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /ledger/trial-balance [get]
func (h *LedgerHandler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.ledgerService.TrialBalance(r.Context())
	if err != nil {
		h.logger.Error("failed to compute trial balance", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, balance)
}
