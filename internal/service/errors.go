package service

import "errors"

// Common service errors
var (
	// ErrPermissionDenied is returned when a user doesn't have permission for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized is returned when user is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidTransition is returned when a requested case status edge is
	// not defined in the state machine
	ErrInvalidTransition = errors.New("invalid case transition")

	// ErrStaleState is returned when the case moved away from the expected
	// status before the command landed, or when commit-conflict retries are
	// exhausted
	ErrStaleState = errors.New("case state is stale")

	// ErrLedgerImbalance is returned when a posting's debits and credits do
	// not net to zero; the transaction is rolled back
	ErrLedgerImbalance = errors.New("ledger entries do not balance")

	// ErrBOQLocked is returned when a write targets a BOQ referenced by a
	// quotation
	ErrBOQLocked = errors.New("boq is locked")

	// ErrReasonRequired is returned when a rejection edge is taken without a
	// reason
	ErrReasonRequired = errors.New("a reason is required for rejection")

	// ErrBudgetExceeded is returned when a posting would push spending past
	// the case budget
	ErrBudgetExceeded = errors.New("cost center budget exceeded")

	// ErrOrganizationNotFound is returned when an organization is not found
	ErrOrganizationNotFound = errors.New("organization not found")
)
