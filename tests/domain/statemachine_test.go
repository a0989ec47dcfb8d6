package domain_test

import (
	"testing"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition_ForwardPath(t *testing.T) {
	tests := []struct {
		name string
		from domain.CaseStatus
		to   domain.CaseStatus
		want bool
	}{
		{"site visit to drawing", domain.CaseStatusSiteVisitPending, domain.CaseStatusWaitingForDrawing, true},
		{"drawing to boq completed", domain.CaseStatusWaitingForDrawing, domain.CaseStatusBOQCompleted, true},
		{"boq completed to quotation", domain.CaseStatusBOQCompleted, domain.CaseStatusQuotation, true},
		{"quotation to planning submitted", domain.CaseStatusQuotation, domain.CaseStatusPlanningSubmitted, true},
		{"planning submitted to active", domain.CaseStatusPlanningSubmitted, domain.CaseStatusActive, true},
		{"active to closed", domain.CaseStatusActive, domain.CaseStatusClosed, true},
		{"skip ahead site visit to quotation", domain.CaseStatusSiteVisitPending, domain.CaseStatusQuotation, false},
		{"backwards drawing to site visit", domain.CaseStatusWaitingForDrawing, domain.CaseStatusSiteVisitPending, false},
		{"closed cannot reopen", domain.CaseStatusClosed, domain.CaseStatusActive, false},
		{"active cannot go back to planning", domain.CaseStatusActive, domain.CaseStatusPlanningSubmitted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.CanTransition(tt.from, tt.to))
		})
	}
}

func TestCanTransition_BudgetGate(t *testing.T) {
	// A funded case enters through the budget gate instead of site visit.
	assert.True(t, domain.CanTransition(domain.CaseStatusPendingBudgetApproval, domain.CaseStatusActive))
	assert.True(t, domain.CanTransition(domain.CaseStatusPendingBudgetApproval, domain.CaseStatusPendingExecutionApproval))
	assert.True(t, domain.CanTransition(domain.CaseStatusPendingExecutionApproval, domain.CaseStatusActive))

	// The budget gate is not reachable from the pipeline path.
	assert.False(t, domain.CanTransition(domain.CaseStatusQuotation, domain.CaseStatusPendingBudgetApproval))
	assert.False(t, domain.CanTransition(domain.CaseStatusPendingExecutionApproval, domain.CaseStatusClosed))
}

func TestCanTransition_PlanningLoop(t *testing.T) {
	// Rejection sends the plan back, resubmission brings it forward again.
	assert.True(t, domain.CanTransition(domain.CaseStatusPlanningSubmitted, domain.CaseStatusWaitingForPlanning))
	assert.True(t, domain.CanTransition(domain.CaseStatusWaitingForPlanning, domain.CaseStatusPlanningSubmitted))
	assert.False(t, domain.CanTransition(domain.CaseStatusWaitingForPlanning, domain.CaseStatusActive))
}

func TestIsRejectionEdge(t *testing.T) {
	assert.True(t, domain.IsRejectionEdge(domain.CaseStatusPlanningSubmitted, domain.CaseStatusWaitingForPlanning))
	assert.True(t, domain.IsRejectionEdge(domain.CaseStatusPendingBudgetApproval, domain.CaseStatusPendingExecutionApproval))

	// Forward edges never require a reason.
	assert.False(t, domain.IsRejectionEdge(domain.CaseStatusPlanningSubmitted, domain.CaseStatusActive))
	assert.False(t, domain.IsRejectionEdge(domain.CaseStatusActive, domain.CaseStatusClosed))
	assert.False(t, domain.IsRejectionEdge(domain.CaseStatusSiteVisitPending, domain.CaseStatusWaitingForDrawing))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, domain.IsTerminal(domain.CaseStatusClosed))
	assert.False(t, domain.IsTerminal(domain.CaseStatusActive))
	assert.False(t, domain.IsTerminal(domain.CaseStatusSiteVisitPending))
}

func TestNextStatuses(t *testing.T) {
	next := domain.NextStatuses(domain.CaseStatusPlanningSubmitted)
	assert.ElementsMatch(t, []domain.CaseStatus{domain.CaseStatusActive, domain.CaseStatusWaitingForPlanning}, next)

	assert.Empty(t, domain.NextStatuses(domain.CaseStatusClosed))

	// Returned slice is a copy, mutating it must not poison the table.
	next[0] = domain.CaseStatusClosed
	again := domain.NextStatuses(domain.CaseStatusPlanningSubmitted)
	assert.ElementsMatch(t, []domain.CaseStatus{domain.CaseStatusActive, domain.CaseStatusWaitingForPlanning}, again)
}
