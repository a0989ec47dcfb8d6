package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// BeforeCreate assigns an ID when the caller did not set one.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Cents is a money amount in integer cents. All ledger arithmetic is integer
// arithmetic; fractional rates are applied once, via decimal, at computation
// time (see money.go).
type Cents int64

// RoleMap maps a team role (e.g. "drawing") to the user id bound to that role
// on a case. Stored as a JSON column so it round-trips on both postgres and
// sqlite.
type RoleMap map[string]string

func (m RoleMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

func (m *RoleMap) Scan(value interface{}) error {
	if value == nil {
		*m = RoleMap{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for RoleMap: %T", value)
	}
	return json.Unmarshal(data, m)
}

// StringList is a JSON-encoded string slice column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for StringList: %T", value)
	}
	return json.Unmarshal(data, l)
}

// OrganizationID identifies a tenant organization
type OrganizationID string

// Organization represents a tenant of the system
type Organization struct {
	ID        OrganizationID `gorm:"type:varchar(50);primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(200);not null" json:"name"`
	IsActive  bool           `gorm:"not null;default:true;column:is_active" json:"isActive"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// CaseStatus represents where a case sits in the workflow
type CaseStatus string

const (
	CaseStatusSiteVisitPending         CaseStatus = "site_visit_pending"
	CaseStatusWaitingForDrawing        CaseStatus = "waiting_for_drawing"
	CaseStatusBOQCompleted             CaseStatus = "boq_completed"
	CaseStatusQuotation                CaseStatus = "quotation"
	CaseStatusPlanningSubmitted        CaseStatus = "planning_submitted"
	CaseStatusWaitingForPlanning       CaseStatus = "waiting_for_planning"
	CaseStatusActive                   CaseStatus = "active"
	CaseStatusPendingBudgetApproval    CaseStatus = "pending_budget_approval"
	CaseStatusPendingExecutionApproval CaseStatus = "pending_execution_approval"
	CaseStatusClosed                   CaseStatus = "closed"
)

// IsValid checks if the CaseStatus is a known enum value
func (s CaseStatus) IsValid() bool {
	switch s {
	case CaseStatusSiteVisitPending, CaseStatusWaitingForDrawing, CaseStatusBOQCompleted,
		CaseStatusQuotation, CaseStatusPlanningSubmitted, CaseStatusWaitingForPlanning,
		CaseStatusActive, CaseStatusPendingBudgetApproval, CaseStatusPendingExecutionApproval,
		CaseStatusClosed:
		return true
	}
	return false
}

// Case is the central aggregate: one client engagement carrying the workflow
// status, the team assignment, the cost center, and the execution plan.
// Cases are never deleted, only archived.
type Case struct {
	BaseModel
	OrganizationID OrganizationID `gorm:"type:varchar(50);not null;index;column:organization_id" json:"organizationId"`
	Organization   *Organization  `gorm:"foreignKey:OrganizationID" json:"-"`
	Title          string         `gorm:"type:varchar(200);not null;index" json:"title"`
	ClientName     string         `gorm:"type:varchar(200);not null;column:client_name" json:"clientName"`
	Status         CaseStatus     `gorm:"type:varchar(50);not null;default:'site_visit_pending';index" json:"status"`
	AssignedTeam   RoleMap        `gorm:"type:jsonb;column:assigned_team" json:"assignedTeam"`

	// Cost center. remaining is always recomputed in the same statement that
	// touches spent, never client-side.
	TotalBudgetCents Cents `gorm:"not null;default:0;column:total_budget_cents" json:"totalBudgetCents"`
	SpentCents       Cents `gorm:"not null;default:0;column:spent_cents" json:"spentCents"`
	RemainingCents   Cents `gorm:"not null;default:0;column:remaining_cents" json:"remainingCents"`

	// Execution plan
	FinancialPlan   string     `gorm:"type:text;column:financial_plan" json:"financialPlan,omitempty"`
	Phases          StringList `gorm:"type:jsonb" json:"phases,omitempty"`
	ApprovedByAdmin bool       `gorm:"not null;default:false;column:approved_by_admin" json:"approvedByAdmin"`
	ApprovedByID    string     `gorm:"type:varchar(100);column:approved_by_id" json:"approvedById,omitempty"`
	ApprovedAt      *time.Time `gorm:"column:approved_at" json:"approvedAt,omitempty"`
	RejectionReason string     `gorm:"type:text;column:rejection_reason" json:"rejectionReason,omitempty"`
	MasterRecordURL string     `gorm:"type:varchar(500);column:master_record_url" json:"masterRecordUrl,omitempty"`

	Archived bool `gorm:"not null;default:false" json:"archived"`

	Tasks      []CaseTask      `gorm:"foreignKey:CaseID" json:"tasks,omitempty"`
	BOQs       []CaseBOQ       `gorm:"foreignKey:CaseID" json:"boqs,omitempty"`
	Quotations []CaseQuotation `gorm:"foreignKey:CaseID" json:"quotations,omitempty"`
}

// HasCostCenter reports whether the case tracks a budget at all.
func (c *Case) HasCostCenter() bool {
	return c.TotalBudgetCents > 0
}

// TaskType represents the kind of work a case task carries
type TaskType string

const (
	TaskTypeSiteVisit         TaskType = "site_visit"
	TaskTypeDrawing           TaskType = "drawing"
	TaskTypeQuotation         TaskType = "quotation"
	TaskTypeProcurementAudit  TaskType = "procurement_audit"
	TaskTypeExecutionPlanning TaskType = "execution_planning"
)

// IsValid checks if the TaskType is a known enum value
func (t TaskType) IsValid() bool {
	switch t {
	case TaskTypeSiteVisit, TaskTypeDrawing, TaskTypeQuotation,
		TaskTypeProcurementAudit, TaskTypeExecutionPlanning:
		return true
	}
	return false
}

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusStarted   TaskStatus = "started"
	TaskStatusCompleted TaskStatus = "completed"
)

// IsValid checks if the TaskStatus is a known enum value
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusStarted, TaskStatusCompleted:
		return true
	}
	return false
}

// CaseTask is one step of a case's pipeline. Terminal once completed.
type CaseTask struct {
	BaseModel
	CaseID      uuid.UUID  `gorm:"type:uuid;not null;index;column:case_id" json:"caseId"`
	Case        *Case      `gorm:"foreignKey:CaseID" json:"-"`
	Type        TaskType   `gorm:"type:varchar(50);not null;index" json:"type"`
	Status      TaskStatus `gorm:"type:varchar(50);not null;default:'pending';index" json:"status"`
	AssignedTo  string     `gorm:"type:varchar(100);not null;column:assigned_to" json:"assignedTo"`
	Deadline    *time.Time `gorm:"index" json:"deadline,omitempty"`
	StartedAt   *time.Time `gorm:"column:started_at" json:"startedAt,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completedAt,omitempty"`
	Report      string     `gorm:"type:text" json:"report,omitempty"`
	EscalatedAt *time.Time `gorm:"column:escalated_at" json:"escalatedAt,omitempty"`
}

// BOQItem is one line of a bill of quantities. Rate and total stay zero until
// the quotation team prices the line; the drawing team only records quantity.
type BOQItem struct {
	Name       string  `json:"name"`
	Unit       string  `json:"unit"`
	Quantity   float64 `json:"quantity"`
	RateCents  Cents   `json:"rateCents"`
	TotalCents Cents   `json:"totalCents"`
}

// BOQItems is the ordered line list, stored as a JSON column.
type BOQItems []BOQItem

func (l BOQItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *BOQItems) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for BOQItems: %T", value)
	}
	return json.Unmarshal(data, l)
}

// CaseBOQ is an unpriced bill of quantities produced by the drawing team.
// The instant a quotation references it, Locked flips and the record becomes
// immutable.
type CaseBOQ struct {
	BaseModel
	CaseID        uuid.UUID `gorm:"type:uuid;not null;index;column:case_id" json:"caseId"`
	Case          *Case     `gorm:"foreignKey:CaseID" json:"-"`
	Items         BOQItems  `gorm:"type:jsonb;not null" json:"items"`
	SubtotalCents Cents     `gorm:"not null;default:0;column:subtotal_cents" json:"subtotalCents"`
	CreatedBy     string    `gorm:"type:varchar(100);not null;column:created_by" json:"createdBy"`
	Locked        bool      `gorm:"not null;default:false" json:"locked"`
	PDFURL        string    `gorm:"type:varchar(500);column:pdf_url" json:"pdfUrl,omitempty"`
}

// AuditStatus represents the procurement-audit state of a quotation
type AuditStatus string

const (
	AuditStatusPending  AuditStatus = "pending"
	AuditStatusApproved AuditStatus = "approved"
	AuditStatusRejected AuditStatus = "rejected"
)

// IsValid checks if the AuditStatus is a known enum value
func (s AuditStatus) IsValid() bool {
	switch s {
	case AuditStatusPending, AuditStatusApproved, AuditStatusRejected:
		return true
	}
	return false
}

// CaseQuotation prices the latest BOQ. History is append-only: resubmission
// creates a new quotation, never mutates an audited one.
type CaseQuotation struct {
	BaseModel
	CaseID          uuid.UUID   `gorm:"type:uuid;not null;index;column:case_id" json:"caseId"`
	Case            *Case       `gorm:"foreignKey:CaseID" json:"-"`
	BOQID           uuid.UUID   `gorm:"type:uuid;not null;index;column:boq_id" json:"boqId"`
	BOQ             *CaseBOQ    `gorm:"foreignKey:BOQID" json:"-"`
	Items           BOQItems    `gorm:"type:jsonb;not null" json:"items"`
	TaxRatePercent  float64     `gorm:"not null;default:0;column:tax_rate_percent" json:"taxRatePercent"`
	DiscountPercent float64     `gorm:"not null;default:0;column:discount_percent" json:"discountPercent"`
	SubtotalCents   Cents       `gorm:"not null;default:0;column:subtotal_cents" json:"subtotalCents"`
	GrandTotalCents Cents       `gorm:"not null;default:0;column:grand_total_cents" json:"grandTotalCents"`
	InternalPRCode  string      `gorm:"type:varchar(100);column:internal_pr_code" json:"-"`
	AuditStatus     AuditStatus `gorm:"type:varchar(50);not null;default:'pending';index;column:audit_status" json:"auditStatus"`
	AuditNote       string      `gorm:"type:text;column:audit_note" json:"auditNote,omitempty"`
	AuditResolvedBy string      `gorm:"type:varchar(100);column:audit_resolved_by" json:"auditResolvedBy,omitempty"`
	AuditResolvedAt *time.Time  `gorm:"column:audit_resolved_at" json:"auditResolvedAt,omitempty"`
	CreatedBy       string      `gorm:"type:varchar(100);not null;column:created_by" json:"createdBy"`
	PDFURL          string      `gorm:"type:varchar(500);column:pdf_url" json:"pdfUrl,omitempty"`
}

// InvoiceKind discriminates sales from purchase invoices
type InvoiceKind string

const (
	InvoiceKindSales    InvoiceKind = "sales"
	InvoiceKindPurchase InvoiceKind = "purchase"
)

// IsValid checks if the InvoiceKind is a known enum value
func (k InvoiceKind) IsValid() bool {
	return k == InvoiceKindSales || k == InvoiceKindPurchase
}

// InvoiceStatus represents the payment state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPendingApproval InvoiceStatus = "pending_approval"
	InvoiceStatusPaid            InvoiceStatus = "paid"
)

// Invoice is an append-only financial document. Posting one writes a balanced
// ledger pair in the same transaction; nothing ever deletes an invoice.
type Invoice struct {
	BaseModel
	OrganizationID   OrganizationID `gorm:"type:varchar(50);not null;index;column:organization_id" json:"organizationId"`
	CaseID           *uuid.UUID     `gorm:"type:uuid;index;column:case_id" json:"caseId,omitempty"`
	Kind             InvoiceKind    `gorm:"type:varchar(20);not null;index" json:"kind"`
	CounterpartyName string         `gorm:"type:varchar(200);not null;column:counterparty_name" json:"counterpartyName"`
	InvoiceNumber    string         `gorm:"type:varchar(50);not null;uniqueIndex;column:invoice_number" json:"invoiceNumber"`
	AmountCents      Cents          `gorm:"not null;column:amount_cents" json:"amountCents"`
	TaxAmountCents   Cents          `gorm:"not null;default:0;column:tax_amount_cents" json:"taxAmountCents"`
	TotalAmountCents Cents          `gorm:"not null;column:total_amount_cents" json:"totalAmountCents"`
	IssueDate        time.Time      `gorm:"not null;column:issue_date" json:"issueDate"`
	DueDate          *time.Time     `gorm:"column:due_date" json:"dueDate,omitempty"`
	Status           InvoiceStatus  `gorm:"type:varchar(50);not null;default:'pending_approval';index" json:"status"`
	PaidAt           *time.Time     `gorm:"column:paid_at" json:"paidAt,omitempty"`
}

// EntryType is one half of a double-entry posting
type EntryType string

const (
	EntryTypeDebit  EntryType = "debit"
	EntryTypeCredit EntryType = "credit"
)

// LedgerAccount is the account a ledger entry posts against
type LedgerAccount string

const (
	AccountRevenue            LedgerAccount = "revenue"
	AccountAccountsReceivable LedgerAccount = "accounts_receivable"
	AccountExpense            LedgerAccount = "expense"
	AccountAccountsPayable    LedgerAccount = "accounts_payable"
)

// LedgerSourceType identifies what produced a posting
type LedgerSourceType string

const (
	SourceTypeSalesInvoice    LedgerSourceType = "sales_invoice"
	SourceTypePurchaseInvoice LedgerSourceType = "purchase_invoice"
)

// LedgerEntry is immutable once written. Entries sharing a TransactionID
// always balance: the sum of debits equals the sum of credits.
type LedgerEntry struct {
	ID             uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	TransactionID  uuid.UUID        `gorm:"type:uuid;not null;index;column:transaction_id" json:"transactionId"`
	OrganizationID OrganizationID   `gorm:"type:varchar(50);not null;index;column:organization_id" json:"organizationId"`
	CaseID         *uuid.UUID       `gorm:"type:uuid;index;column:case_id" json:"caseId,omitempty"`
	EntryDate      time.Time        `gorm:"not null;index;column:entry_date" json:"entryDate"`
	Type           EntryType        `gorm:"type:varchar(10);not null" json:"type"`
	AmountCents    Cents            `gorm:"not null;column:amount_cents" json:"amountCents"`
	Account        LedgerAccount    `gorm:"type:varchar(50);not null;index" json:"account"`
	SourceType     LedgerSourceType `gorm:"type:varchar(50);not null;column:source_type" json:"sourceType"`
	SourceID       uuid.UUID        `gorm:"type:uuid;not null;column:source_id" json:"sourceId"`
	CreatedAt      time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// BeforeCreate assigns an ID when the caller did not set one.
func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// TableName overrides the default pluralization
func (LedgerEntry) TableName() string {
	return "general_ledger"
}

// NumberSequence issues per-org, per-kind document numbers. The next value is
// claimed with an atomic increment inside the posting transaction.
type NumberSequence struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	OrganizationID OrganizationID `gorm:"type:varchar(50);not null;uniqueIndex:ux_numseq_org_kind_year;column:organization_id" json:"organizationId"`
	Kind           string         `gorm:"type:varchar(20);not null;uniqueIndex:ux_numseq_org_kind_year" json:"kind"`
	Year           int            `gorm:"not null;uniqueIndex:ux_numseq_org_kind_year" json:"year"`
	NextValue      int64          `gorm:"not null;default:1;column:next_value" json:"nextValue"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// BeforeCreate assigns an ID when the caller did not set one.
func (n *NumberSequence) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// Activity is an event-log entry recorded alongside workflow transitions,
// used for case history display.
type Activity struct {
	BaseModel
	CaseID     uuid.UUID `gorm:"type:uuid;not null;index;column:case_id" json:"caseId"`
	Title      string    `gorm:"type:varchar(200);not null" json:"title"`
	Body       string    `gorm:"type:varchar(2000)" json:"body,omitempty"`
	ActorID    string    `gorm:"type:varchar(100);column:actor_id" json:"actorId,omitempty"`
	ActorName  string    `gorm:"type:varchar(200);column:actor_name" json:"actorName,omitempty"`
	OccurredAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index;column:occurred_at" json:"occurredAt"`
}

// DocumentKind is the kind of artifact the external generator produces
type DocumentKind string

const (
	DocumentKindBOQPDF           DocumentKind = "boq_pdf"
	DocumentKindQuotationPDF     DocumentKind = "quotation_pdf"
	DocumentKindMasterProjectPDF DocumentKind = "master_project_pdf"
)

// DocumentStatus is the generation state of a queued document
type DocumentStatus string

const (
	DocumentStatusPending DocumentStatus = "pending"
	DocumentStatusDone    DocumentStatus = "done"
	DocumentStatusFailed  DocumentStatus = "failed"
)

// GeneratedDocument queues a post-commit document-generation request.
// Generation is best-effort: it is retried out-of-band and its failure never
// rolls back the workflow or ledger state that enqueued it.
type GeneratedDocument struct {
	BaseModel
	CaseID   uuid.UUID      `gorm:"type:uuid;not null;index;column:case_id" json:"caseId"`
	SourceID uuid.UUID      `gorm:"type:uuid;not null;column:source_id" json:"sourceId"`
	Kind     DocumentKind   `gorm:"type:varchar(50);not null" json:"kind"`
	Status   DocumentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Attempts int            `gorm:"not null;default:0" json:"attempts"`
	URL      string         `gorm:"type:varchar(500)" json:"url,omitempty"`
	LastErr  string         `gorm:"type:text;column:last_error" json:"-"`
}

// File represents an uploaded case attachment (site-visit photo, drawing)
type File struct {
	BaseModel
	CaseID      uuid.UUID `gorm:"type:uuid;not null;index;column:case_id" json:"caseId"`
	Filename    string    `gorm:"type:varchar(255);not null" json:"filename"`
	ContentType string    `gorm:"type:varchar(100);not null;column:content_type" json:"contentType"`
	Size        int64     `gorm:"not null" json:"size"`
	StoragePath string    `gorm:"type:varchar(500);not null;unique;column:storage_path" json:"-"`
	UploadedBy  string    `gorm:"type:varchar(100);column:uploaded_by" json:"uploadedBy,omitempty"`
}

// UserRoleType represents a role a user can hold
type UserRoleType string

const (
	RoleAdmin       UserRoleType = "admin"
	RoleSalesGM     UserRoleType = "sales_gm"
	RoleFinance     UserRoleType = "finance"
	RoleSiteVisit   UserRoleType = "site_visit"
	RoleDrawing     UserRoleType = "drawing"
	RoleQuotation   UserRoleType = "quotation"
	RoleProcurement UserRoleType = "procurement"
	RoleExecution   UserRoleType = "execution"
	RoleViewer      UserRoleType = "viewer"
	RoleAPIService  UserRoleType = "api_service"
)

// TeamRoleKeys are the assignedTeam map keys a case may bind.
var TeamRoleKeys = []string{
	"site_visit", "drawing", "quotation", "procurement", "execution",
}
