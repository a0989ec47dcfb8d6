package domain

// caseTransitions enumerates the legal status edges. Anything absent is an
// invalid transition. The budget gate (pending_budget_approval and
// pending_execution_approval) is an independent entry path for cases opened
// against an already-funded budget.
var caseTransitions = map[CaseStatus][]CaseStatus{
	CaseStatusSiteVisitPending:         {CaseStatusWaitingForDrawing},
	CaseStatusWaitingForDrawing:        {CaseStatusBOQCompleted},
	CaseStatusBOQCompleted:             {CaseStatusQuotation},
	CaseStatusQuotation:                {CaseStatusPlanningSubmitted},
	CaseStatusPlanningSubmitted:        {CaseStatusActive, CaseStatusWaitingForPlanning},
	CaseStatusWaitingForPlanning:       {CaseStatusPlanningSubmitted},
	CaseStatusPendingBudgetApproval:    {CaseStatusActive, CaseStatusPendingExecutionApproval},
	CaseStatusPendingExecutionApproval: {CaseStatusActive},
	CaseStatusActive:                   {CaseStatusClosed},
	CaseStatusClosed:                   {},
}

// rejectionEdges are the backward edges that demand a non-empty reason.
var rejectionEdges = map[CaseStatus]map[CaseStatus]bool{
	CaseStatusPlanningSubmitted:     {CaseStatusWaitingForPlanning: true},
	CaseStatusPendingBudgetApproval: {CaseStatusPendingExecutionApproval: true},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to CaseStatus) bool {
	for _, next := range caseTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsRejectionEdge reports whether from -> to is a backward edge that
// requires a recorded reason.
func IsRejectionEdge(from, to CaseStatus) bool {
	return rejectionEdges[from][to]
}

// IsTerminal reports whether no edges leave the status.
func IsTerminal(s CaseStatus) bool {
	return len(caseTransitions[s]) == 0
}

// NextStatuses returns the statuses reachable in one step.
func NextStatuses(from CaseStatus) []CaseStatus {
	out := make([]CaseStatus, len(caseTransitions[from]))
	copy(out, caseTransitions[from])
	return out
}
