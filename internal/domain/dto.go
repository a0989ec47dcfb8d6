package domain

import (
	"time"

	"github.com/google/uuid"
)

// DTOs for API responses. Timestamps serialize as ISO 8601 strings.

type CaseDTO struct {
	ID               uuid.UUID         `json:"id"`
	OrganizationID   OrganizationID    `json:"organizationId"`
	Title            string            `json:"title"`
	ClientName       string            `json:"clientName"`
	Status           CaseStatus        `json:"status"`
	AssignedTeam     map[string]string `json:"assignedTeam"`
	TotalBudgetCents Cents             `json:"totalBudgetCents"`
	SpentCents       Cents             `json:"spentCents"`
	RemainingCents   Cents             `json:"remainingCents"`
	FinancialPlan    string            `json:"financialPlan,omitempty"`
	Phases           []string          `json:"phases,omitempty"`
	ApprovedByAdmin  bool              `json:"approvedByAdmin"`
	ApprovedByID     string            `json:"approvedById,omitempty"`
	ApprovedAt       *string           `json:"approvedAt,omitempty"`
	RejectionReason  string            `json:"rejectionReason,omitempty"`
	MasterRecordURL  string            `json:"masterRecordUrl,omitempty"`
	Archived         bool              `json:"archived"`
	CreatedAt        string            `json:"createdAt"` // ISO 8601
	UpdatedAt        string            `json:"updatedAt"` // ISO 8601
}

// CaseDetailDTO is the full read model for a single case
type CaseDetailDTO struct {
	CaseDTO
	Tasks      []TaskDTO      `json:"tasks"`
	BOQs       []BOQDTO       `json:"boqs"`
	Quotations []QuotationDTO `json:"quotations"`
	Activities []ActivityDTO  `json:"activities,omitempty"`
}

type TaskDTO struct {
	ID          uuid.UUID  `json:"id"`
	CaseID      uuid.UUID  `json:"caseId"`
	Type        TaskType   `json:"type"`
	Status      TaskStatus `json:"status"`
	AssignedTo  string     `json:"assignedTo"`
	Deadline    *string    `json:"deadline,omitempty"`
	StartedAt   *string    `json:"startedAt,omitempty"`
	CompletedAt *string    `json:"completedAt,omitempty"`
	Report      string     `json:"report,omitempty"`
	Overdue     bool       `json:"overdue"`
	CreatedAt   string     `json:"createdAt"`
}

type BOQItemDTO struct {
	Name       string  `json:"name"`
	Unit       string  `json:"unit"`
	Quantity   float64 `json:"quantity"`
	RateCents  Cents   `json:"rateCents"`
	TotalCents Cents   `json:"totalCents"`
}

type BOQDTO struct {
	ID            uuid.UUID    `json:"id"`
	CaseID        uuid.UUID    `json:"caseId"`
	Items         []BOQItemDTO `json:"items"`
	SubtotalCents Cents        `json:"subtotalCents"`
	CreatedBy     string       `json:"createdBy"`
	Locked        bool         `json:"locked"`
	PDFURL        string       `json:"pdfUrl,omitempty"`
	CreatedAt     string       `json:"createdAt"`
}

type QuotationDTO struct {
	ID              uuid.UUID    `json:"id"`
	CaseID          uuid.UUID    `json:"caseId"`
	BOQID           uuid.UUID    `json:"boqId"`
	Items           []BOQItemDTO `json:"items"`
	TaxRatePercent  float64      `json:"taxRatePercent"`
	DiscountPercent float64      `json:"discountPercent"`
	SubtotalCents   Cents        `json:"subtotalCents"`
	GrandTotalCents Cents        `json:"grandTotalCents"`
	InternalPRCode  string       `json:"internalPRCode,omitempty"` // stripped unless caller may see it
	AuditStatus     AuditStatus  `json:"auditStatus"`
	AuditNote       string       `json:"auditNote,omitempty"`
	AuditResolvedBy string       `json:"auditResolvedBy,omitempty"`
	AuditResolvedAt *string      `json:"auditResolvedAt,omitempty"`
	CreatedBy       string       `json:"createdBy"`
	PDFURL          string       `json:"pdfUrl,omitempty"`
	CreatedAt       string       `json:"createdAt"`
}

type InvoiceDTO struct {
	ID               uuid.UUID      `json:"id"`
	OrganizationID   OrganizationID `json:"organizationId"`
	CaseID           *uuid.UUID     `json:"caseId,omitempty"`
	Kind             InvoiceKind    `json:"kind"`
	CounterpartyName string         `json:"counterpartyName"`
	InvoiceNumber    string         `json:"invoiceNumber"`
	AmountCents      Cents          `json:"amountCents"`
	TaxAmountCents   Cents          `json:"taxAmountCents"`
	TotalAmountCents Cents          `json:"totalAmountCents"`
	IssueDate        string         `json:"issueDate"`
	DueDate          *string        `json:"dueDate,omitempty"`
	Status           InvoiceStatus  `json:"status"`
	PaidAt           *string        `json:"paidAt,omitempty"`
	CreatedAt        string         `json:"createdAt"`
}

type LedgerEntryDTO struct {
	ID            uuid.UUID        `json:"id"`
	TransactionID uuid.UUID        `json:"transactionId"`
	CaseID        *uuid.UUID       `json:"caseId,omitempty"`
	EntryDate     string           `json:"entryDate"`
	Type          EntryType        `json:"type"`
	AmountCents   Cents            `json:"amountCents"`
	Account       LedgerAccount    `json:"account"`
	SourceType    LedgerSourceType `json:"sourceType"`
	SourceID      uuid.UUID        `json:"sourceId"`
}

// TrialBalanceLineDTO is one account row of the trial balance
type TrialBalanceLineDTO struct {
	Account     LedgerAccount `json:"account"`
	DebitCents  Cents         `json:"debitCents"`
	CreditCents Cents         `json:"creditCents"`
}

type TrialBalanceDTO struct {
	Lines            []TrialBalanceLineDTO `json:"lines"`
	TotalDebitCents  Cents                 `json:"totalDebitCents"`
	TotalCreditCents Cents                 `json:"totalCreditCents"`
	Balanced         bool                  `json:"balanced"`
}

type ActivityDTO struct {
	ID         uuid.UUID `json:"id"`
	CaseID     uuid.UUID `json:"caseId"`
	Title      string    `json:"title"`
	Body       string    `json:"body,omitempty"`
	ActorID    string    `json:"actorId,omitempty"`
	ActorName  string    `json:"actorName,omitempty"`
	OccurredAt string    `json:"occurredAt"`
}

type FileDTO struct {
	ID          uuid.UUID `json:"id"`
	CaseID      uuid.UUID `json:"caseId"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploadedBy,omitempty"`
	CreatedAt   string    `json:"createdAt"`
}

// AuthUserDTO describes the authenticated caller
type AuthUserDTO struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Roles          []string `json:"roles"`
	OrganizationID string   `json:"organizationId,omitempty"`
	Initials       string   `json:"initials"`
	IsAdmin        bool     `json:"isAdmin"`
}

// PaginatedResponse wraps list payloads with paging metadata
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// Request DTOs

type CreateCaseRequest struct {
	Title            string            `json:"title" validate:"required,max=200"`
	ClientName       string            `json:"clientName" validate:"required,max=200"`
	AssignedTeam     map[string]string `json:"assignedTeam" validate:"required"`
	TotalBudgetCents Cents             `json:"totalBudgetCents,omitempty" validate:"gte=0"`
	// RequiresBudgetApproval opens the case in the budget gate instead of the
	// site-visit pipeline.
	RequiresBudgetApproval bool `json:"requiresBudgetApproval,omitempty"`
}

type UpdateCaseTeamRequest struct {
	AssignedTeam map[string]string `json:"assignedTeam" validate:"required"`
}

type StartTaskRequest struct {
	// Empty body; the acting user comes from the auth context.
}

type CompleteTaskRequest struct {
	Report string `json:"report,omitempty" validate:"max=5000"`
}

type BOQLineRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Unit     string  `json:"unit" validate:"required,max=20"`
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
}

type CreateBOQRequest struct {
	Items []BOQLineRequest `json:"items" validate:"required,min=1,dive"`
}

type QuotationLineRequest struct {
	Name      string  `json:"name" validate:"required,max=200"`
	Unit      string  `json:"unit" validate:"required,max=20"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
	RateCents Cents   `json:"rateCents" validate:"required,gt=0"`
}

type SubmitQuotationRequest struct {
	Items           []QuotationLineRequest `json:"items" validate:"required,min=1,dive"`
	TaxRatePercent  float64                `json:"taxRatePercent" validate:"gte=0,lte=100"`
	DiscountPercent float64                `json:"discountPercent" validate:"gte=0,lte=100"`
	InternalPRCode  string                 `json:"internalPRCode,omitempty" validate:"max=100"`
}

type ResolveAuditRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Note     string `json:"note,omitempty" validate:"max=2000"`
}

type SubmitExecutionPlanRequest struct {
	FinancialPlan string   `json:"financialPlan" validate:"required"`
	Phases        []string `json:"phases" validate:"required,min=1,dive,required,max=200"`
}

type RejectPlanRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

type PostInvoiceRequest struct {
	CaseID           *uuid.UUID `json:"caseId,omitempty"`
	CounterpartyName string     `json:"counterpartyName" validate:"required,max=200"`
	AmountCents      Cents      `json:"amountCents" validate:"required,gt=0"`
	TaxAmountCents   Cents      `json:"taxAmountCents,omitempty" validate:"gte=0"`
	IssueDate        time.Time  `json:"issueDate" validate:"required"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
}
