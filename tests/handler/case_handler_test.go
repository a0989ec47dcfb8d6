package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/fieldline/casework-api/internal/domain"
	"github.com/fieldline/casework-api/internal/http/handler"
	"github.com/fieldline/casework-api/internal/repository"
	"github.com/fieldline/casework-api/internal/service"
	"github.com/fieldline/casework-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// newCaseRouter mounts the case routes behind a middleware that injects the
// given authenticated context, standing in for the JWT middleware.
func newCaseRouter(db *gorm.DB, roles ...domain.UserRoleType) *chi.Mux {
	svc := service.NewCaseService(
		db,
		repository.NewCaseRepository(db),
		repository.NewTaskRepository(db),
		repository.NewActivityRepository(db),
		nil,
		zap.NewNop(),
	)
	h := handler.NewCaseHandler(svc, zap.NewNop())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := testutil.ContextWithUser(roles...)
			ctx = context.WithValue(ctx, chi.RouteCtxKey, chi.RouteContext(req.Context()))
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/cases", h.Create)
	r.Get("/cases/{id}", h.Get)
	r.Post("/cases/{id}/close", h.Close)
	r.Post("/cases/{id}/plan/approve", h.ApprovePlan)
	return r
}

func TestCaseHandler_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newCaseRouter(db, domain.RoleSalesGM)

	body, _ := json.Marshal(map[string]interface{}{
		"title":      "Warehouse extension",
		"clientName": "Nordbygg AS",
		"assignedTeam": map[string]string{
			"site_visit": "visitor@fieldline.io",
		},
		"totalBudgetCents": 500000,
	})

	req := httptest.NewRequest(http.MethodPost, "/cases", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var dto domain.CaseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, "Warehouse extension", dto.Title)
	assert.Equal(t, domain.CaseStatusSiteVisitPending, dto.Status)
}

func TestCaseHandler_Create_ValidationError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newCaseRouter(db, domain.RoleSalesGM)

	// Missing required title and team.
	req := httptest.NewRequest(http.MethodPost, "/cases", bytes.NewReader([]byte(`{"clientName":"Nordbygg AS"}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCaseHandler_Create_MalformedJSON(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newCaseRouter(db, domain.RoleSalesGM)

	req := httptest.NewRequest(http.MethodPost, "/cases", bytes.NewReader([]byte(`{not json`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCaseHandler_Get(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newCaseRouter(db, domain.RoleViewer)

	c := testutil.CreateTestCase(t, db, domain.CaseStatusActive)

	req := httptest.NewRequest(http.MethodGet, "/cases/"+c.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var dto domain.CaseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, c.ID, dto.ID)
}

func TestCaseHandler_Get_InvalidID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newCaseRouter(db, domain.RoleViewer)

	req := httptest.NewRequest(http.MethodGet, "/cases/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCaseHandler_Get_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newCaseRouter(db, domain.RoleViewer)

	req := httptest.NewRequest(http.MethodGet, "/cases/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCaseHandler_Close_StaleStateIs412(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newCaseRouter(db, domain.RoleFinance)

	c := testutil.CreateTestCase(t, db, domain.CaseStatusQuotation)

	req := httptest.NewRequest(http.MethodPost, "/cases/"+c.ID.String()+"/close", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusPreconditionFailed, rec.Code)

	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrorTypeStaleState, apiErr.Type)
}

func TestCaseHandler_ApprovePlan_Forbidden(t *testing.T) {
	db := testutil.SetupTestDB(t)
	router := newCaseRouter(db, domain.RoleExecution)

	c := testutil.CreateTestCase(t, db, domain.CaseStatusPlanningSubmitted)

	req := httptest.NewRequest(http.MethodPost, "/cases/"+c.ID.String()+"/plan/approve", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
