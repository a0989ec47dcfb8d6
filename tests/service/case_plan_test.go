package service_test

import (
	"testing"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/fieldline/casework-api/internal/repository"
	"github.com/fieldline/casework-api/internal/service"
	"github.com/fieldline/casework-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newCaseService(db *gorm.DB) *service.CaseService {
	return service.NewCaseService(
		db,
		repository.NewCaseRepository(db),
		repository.NewTaskRepository(db),
		repository.NewActivityRepository(db),
		nil, // no docgen in tests
		zap.NewNop(),
	)
}

var planRequest = &domain.SubmitExecutionPlanRequest{
	FinancialPlan: "Phased draw-down against the approved quotation",
	Phases:        []string{"Groundwork", "Steel frame", "Envelope", "Handover"},
}

func TestSubmitExecutionPlan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newCaseService(db)
	ctx := testutil.ContextWithUser(domain.RoleExecution)

	c := testutil.CreateTestCase(t, db, domain.CaseStatusQuotation)
	task := testutil.CreateTestTask(t, db, c.ID, domain.TaskTypeExecutionPlanning, domain.TaskStatusStarted)

	dto, err := svc.SubmitExecutionPlan(ctx, c.ID, planRequest)
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusPlanningSubmitted, dto.Status)
	assert.Equal(t, planRequest.FinancialPlan, dto.FinancialPlan)
	assert.Equal(t, planRequest.Phases, dto.Phases)

	// Submission completes the planning task.
	var reloaded domain.CaseTask
	require.NoError(t, db.First(&reloaded, "id = ?", task.ID).Error)
	assert.Equal(t, domain.TaskStatusCompleted, reloaded.Status)
}

func TestSubmitExecutionPlan_NoPlanningTask(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newCaseService(db)
	ctx := testutil.ContextWithUser(domain.RoleExecution)

	// No execution_planning task means the audit was never approved.
	c := testutil.CreateTestCase(t, db, domain.CaseStatusQuotation)

	_, err := svc.SubmitExecutionPlan(ctx, c.ID, planRequest)
	assert.ErrorIs(t, err, service.ErrStaleState)

	var reloaded domain.Case
	require.NoError(t, db.First(&reloaded, "id = ?", c.ID).Error)
	assert.Equal(t, domain.CaseStatusQuotation, reloaded.Status)
}

func TestApproveExecutionPlan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newCaseService(db)
	ctx := testutil.ContextWithUser(domain.RoleSalesGM)

	c := testutil.CreateTestCase(t, db, domain.CaseStatusPlanningSubmitted)

	dto, err := svc.ApproveExecutionPlan(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusActive, dto.Status)
	assert.True(t, dto.ApprovedByAdmin)
	assert.NotEmpty(t, dto.ApprovedByID)
	assert.NotNil(t, dto.ApprovedAt)

	// Re-approving an active case is a no-op success.
	again, err := svc.ApproveExecutionPlan(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusActive, again.Status)
	assert.Equal(t, dto.ApprovedByID, again.ApprovedByID)
}

func TestApproveExecutionPlan_PermissionDenied(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newCaseService(db)
	ctx := testutil.ContextWithUser(domain.RoleExecution)

	c := testutil.CreateTestCase(t, db, domain.CaseStatusPlanningSubmitted)

	_, err := svc.ApproveExecutionPlan(ctx, c.ID)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
}

func TestRejectExecutionPlan(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newCaseService(db)
	ctx := testutil.ContextWithUser(domain.RoleAdmin)

	c := testutil.CreateTestCase(t, db, domain.CaseStatusPlanningSubmitted)

	// Rejection without a reason changes nothing.
	_, err := svc.RejectExecutionPlan(ctx, c.ID, "")
	assert.ErrorIs(t, err, service.ErrReasonRequired)

	var unchanged domain.Case
	require.NoError(t, db.First(&unchanged, "id = ?", c.ID).Error)
	assert.Equal(t, domain.CaseStatusPlanningSubmitted, unchanged.Status)

	dto, err := svc.RejectExecutionPlan(ctx, c.ID, "Phase budget missing")
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusWaitingForPlanning, dto.Status)
	assert.Equal(t, "Phase budget missing", dto.RejectionReason)
}

func TestResubmitPlanning(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newCaseService(db)
	adminCtx := testutil.ContextWithUser(domain.RoleAdmin)
	execCtx := testutil.ContextWithUser(domain.RoleExecution)

	c := testutil.CreateTestCase(t, db, domain.CaseStatusPlanningSubmitted)

	_, err := svc.RejectExecutionPlan(adminCtx, c.ID, "Phase budget missing")
	require.NoError(t, err)

	revised := &domain.SubmitExecutionPlanRequest{
		FinancialPlan: "Revised draw-down with phase budgets",
		Phases:        []string{"Groundwork", "Steel frame", "Envelope", "Snagging", "Handover"},
	}
	dto, err := svc.ResubmitPlanning(execCtx, c.ID, revised)
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusPlanningSubmitted, dto.Status)
	assert.Equal(t, revised.FinancialPlan, dto.FinancialPlan)
	assert.Len(t, dto.Phases, 5)

	// And the gate opens again.
	approved, err := svc.ApproveExecutionPlan(adminCtx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CaseStatusActive, approved.Status)
}
