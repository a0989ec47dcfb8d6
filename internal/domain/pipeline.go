package domain

import "time"

// TaskSuccessor describes what completing a task of a given type spawns:
// the successor task, the team role it is assigned from, how long the new
// assignee gets, and the case transition that rides along.
type TaskSuccessor struct {
	NextType       TaskType
	AssigneeRole   string
	DeadlineAfter  time.Duration
	CaseTransition CaseStatus // empty when completion leaves the case status alone
}

// taskPipeline is the successor table for the fixed five-step pipeline.
// EXECUTION_PLANNING has no row: its completion is driven by the
// execution-plan submission, not by the pipeline.
var taskPipeline = map[TaskType]TaskSuccessor{
	TaskTypeSiteVisit: {
		NextType:       TaskTypeDrawing,
		AssigneeRole:   "drawing",
		DeadlineAfter:  4 * time.Hour,
		CaseTransition: CaseStatusWaitingForDrawing,
	},
	TaskTypeDrawing: {
		NextType:       TaskTypeQuotation,
		AssigneeRole:   "quotation",
		DeadlineAfter:  48 * time.Hour,
		CaseTransition: CaseStatusBOQCompleted,
	},
	TaskTypeQuotation: {
		NextType:       TaskTypeProcurementAudit,
		AssigneeRole:   "procurement",
		DeadlineAfter:  24 * time.Hour,
		CaseTransition: CaseStatusQuotation,
	},
	TaskTypeProcurementAudit: {
		NextType:      TaskTypeExecutionPlanning,
		AssigneeRole:  "execution",
		DeadlineAfter: 72 * time.Hour,
	},
}

// SuccessorFor returns the pipeline row for a task type, if any.
func SuccessorFor(t TaskType) (TaskSuccessor, bool) {
	s, ok := taskPipeline[t]
	return s, ok
}

// QuotationRetryStep returns the parameters for reopening the quotation step
// after a rejected procurement audit: the regular quotation role binding and
// deadline budget, with no case transition since the case already sits at
// quotation.
func QuotationRetryStep() TaskSuccessor {
	step := taskPipeline[TaskTypeDrawing]
	step.CaseTransition = ""
	return step
}
