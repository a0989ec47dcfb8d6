package domain_test

import (
	"testing"
	"time"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSuccessorFor(t *testing.T) {
	tests := []struct {
		name           string
		taskType       domain.TaskType
		wantNext       domain.TaskType
		wantRole       string
		wantDeadline   time.Duration
		wantTransition domain.CaseStatus
	}{
		{
			name:           "site visit spawns drawing",
			taskType:       domain.TaskTypeSiteVisit,
			wantNext:       domain.TaskTypeDrawing,
			wantRole:       "drawing",
			wantDeadline:   4 * time.Hour,
			wantTransition: domain.CaseStatusWaitingForDrawing,
		},
		{
			name:           "drawing spawns quotation",
			taskType:       domain.TaskTypeDrawing,
			wantNext:       domain.TaskTypeQuotation,
			wantRole:       "quotation",
			wantDeadline:   48 * time.Hour,
			wantTransition: domain.CaseStatusBOQCompleted,
		},
		{
			name:           "quotation spawns procurement audit",
			taskType:       domain.TaskTypeQuotation,
			wantNext:       domain.TaskTypeProcurementAudit,
			wantRole:       "procurement",
			wantDeadline:   24 * time.Hour,
			wantTransition: domain.CaseStatusQuotation,
		},
		{
			name:         "procurement audit spawns execution planning without case transition",
			taskType:     domain.TaskTypeProcurementAudit,
			wantNext:     domain.TaskTypeExecutionPlanning,
			wantRole:     "execution",
			wantDeadline: 72 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			successor, ok := domain.SuccessorFor(tt.taskType)
			assert.True(t, ok)
			assert.Equal(t, tt.wantNext, successor.NextType)
			assert.Equal(t, tt.wantRole, successor.AssigneeRole)
			assert.Equal(t, tt.wantDeadline, successor.DeadlineAfter)
			assert.Equal(t, tt.wantTransition, successor.CaseTransition)
		})
	}
}

func TestSuccessorFor_ExecutionPlanningIsLast(t *testing.T) {
	// Execution planning completes through plan submission, not the pipeline.
	_, ok := domain.SuccessorFor(domain.TaskTypeExecutionPlanning)
	assert.False(t, ok)
}

func TestQuotationRetryStep(t *testing.T) {
	step := domain.QuotationRetryStep()

	// Same role binding and deadline budget as the regular quotation step,
	// but no case transition: the case already sits at quotation.
	assert.Equal(t, domain.TaskTypeQuotation, step.NextType)
	assert.Equal(t, "quotation", step.AssigneeRole)
	assert.Equal(t, 48*time.Hour, step.DeadlineAfter)
	assert.Empty(t, step.CaseTransition)
}
