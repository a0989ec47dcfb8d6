package mapper

import (
	"context"
	"time"

	"github.com/fieldline/casework-api/internal/auth"
	"github.com/fieldline/casework-api/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timeFormat)
	return &s
}

// ToCaseDTO converts a Case to CaseDTO
func ToCaseDTO(c *domain.Case) domain.CaseDTO {
	return domain.CaseDTO{
		ID:               c.ID,
		OrganizationID:   c.OrganizationID,
		Title:            c.Title,
		ClientName:       c.ClientName,
		Status:           c.Status,
		AssignedTeam:     c.AssignedTeam,
		TotalBudgetCents: c.TotalBudgetCents,
		SpentCents:       c.SpentCents,
		RemainingCents:   c.RemainingCents,
		FinancialPlan:    c.FinancialPlan,
		Phases:           c.Phases,
		ApprovedByAdmin:  c.ApprovedByAdmin,
		ApprovedByID:     c.ApprovedByID,
		ApprovedAt:       formatTimePtr(c.ApprovedAt),
		RejectionReason:  c.RejectionReason,
		MasterRecordURL:  c.MasterRecordURL,
		Archived:         c.Archived,
		CreatedAt:        c.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:        c.UpdatedAt.UTC().Format(timeFormat),
	}
}

// ToCaseDetailDTO converts a Case with preloaded relations and its activity
// history to the full read model.
func ToCaseDetailDTO(ctx context.Context, c *domain.Case, activities []domain.Activity) domain.CaseDetailDTO {
	detail := domain.CaseDetailDTO{
		CaseDTO:    ToCaseDTO(c),
		Tasks:      make([]domain.TaskDTO, len(c.Tasks)),
		BOQs:       make([]domain.BOQDTO, len(c.BOQs)),
		Quotations: make([]domain.QuotationDTO, len(c.Quotations)),
	}
	for i := range c.Tasks {
		detail.Tasks[i] = ToTaskDTO(&c.Tasks[i])
	}
	for i := range c.BOQs {
		detail.BOQs[i] = ToBOQDTO(&c.BOQs[i])
	}
	for i := range c.Quotations {
		detail.Quotations[i] = ToQuotationDTO(ctx, &c.Quotations[i])
	}
	for _, a := range activities {
		detail.Activities = append(detail.Activities, ToActivityDTO(&a))
	}
	return detail
}

// ToTaskDTO converts a CaseTask to TaskDTO
func ToTaskDTO(t *domain.CaseTask) domain.TaskDTO {
	return domain.TaskDTO{
		ID:          t.ID,
		CaseID:      t.CaseID,
		Type:        t.Type,
		Status:      t.Status,
		AssignedTo:  t.AssignedTo,
		Deadline:    formatTimePtr(t.Deadline),
		StartedAt:   formatTimePtr(t.StartedAt),
		CompletedAt: formatTimePtr(t.CompletedAt),
		Report:      t.Report,
		Overdue:     t.Status != domain.TaskStatusCompleted && t.Deadline != nil && t.Deadline.Before(time.Now()),
		CreatedAt:   t.CreatedAt.UTC().Format(timeFormat),
	}
}

func toBOQItemDTOs(items domain.BOQItems) []domain.BOQItemDTO {
	out := make([]domain.BOQItemDTO, len(items))
	for i, it := range items {
		out[i] = domain.BOQItemDTO{
			Name:       it.Name,
			Unit:       it.Unit,
			Quantity:   it.Quantity,
			RateCents:  it.RateCents,
			TotalCents: it.TotalCents,
		}
	}
	return out
}

// ToBOQDTO converts a CaseBOQ to BOQDTO
func ToBOQDTO(b *domain.CaseBOQ) domain.BOQDTO {
	return domain.BOQDTO{
		ID:            b.ID,
		CaseID:        b.CaseID,
		Items:         toBOQItemDTOs(b.Items),
		SubtotalCents: b.SubtotalCents,
		CreatedBy:     b.CreatedBy,
		Locked:        b.Locked,
		PDFURL:        b.PDFURL,
		CreatedAt:     b.CreatedAt.UTC().Format(timeFormat),
	}
}

// ToQuotationDTO converts a CaseQuotation to QuotationDTO. The restricted
// internalPRCode field is only populated when the caller's roles allow it;
// everyone else never receives the field at all.
func ToQuotationDTO(ctx context.Context, q *domain.CaseQuotation) domain.QuotationDTO {
	dto := domain.QuotationDTO{
		ID:              q.ID,
		CaseID:          q.CaseID,
		BOQID:           q.BOQID,
		Items:           toBOQItemDTOs(q.Items),
		TaxRatePercent:  q.TaxRatePercent,
		DiscountPercent: q.DiscountPercent,
		SubtotalCents:   q.SubtotalCents,
		GrandTotalCents: q.GrandTotalCents,
		AuditStatus:     q.AuditStatus,
		AuditNote:       q.AuditNote,
		AuditResolvedBy: q.AuditResolvedBy,
		AuditResolvedAt: formatTimePtr(q.AuditResolvedAt),
		CreatedBy:       q.CreatedBy,
		PDFURL:          q.PDFURL,
		CreatedAt:       q.CreatedAt.UTC().Format(timeFormat),
	}
	if userCtx, ok := auth.FromContext(ctx); ok && userCtx.CanSeeInternalPRCode() {
		dto.InternalPRCode = q.InternalPRCode
	}
	return dto
}

// ToInvoiceDTO converts an Invoice to InvoiceDTO
func ToInvoiceDTO(inv *domain.Invoice) domain.InvoiceDTO {
	dto := domain.InvoiceDTO{
		ID:               inv.ID,
		OrganizationID:   inv.OrganizationID,
		CaseID:           inv.CaseID,
		Kind:             inv.Kind,
		CounterpartyName: inv.CounterpartyName,
		InvoiceNumber:    inv.InvoiceNumber,
		AmountCents:      inv.AmountCents,
		TaxAmountCents:   inv.TaxAmountCents,
		TotalAmountCents: inv.TotalAmountCents,
		IssueDate:        inv.IssueDate.UTC().Format("2006-01-02"),
		Status:           inv.Status,
		PaidAt:           formatTimePtr(inv.PaidAt),
		CreatedAt:        inv.CreatedAt.UTC().Format(timeFormat),
	}
	if inv.DueDate != nil {
		s := inv.DueDate.UTC().Format("2006-01-02")
		dto.DueDate = &s
	}
	return dto
}

// ToLedgerEntryDTO converts a LedgerEntry to LedgerEntryDTO
func ToLedgerEntryDTO(e *domain.LedgerEntry) domain.LedgerEntryDTO {
	return domain.LedgerEntryDTO{
		ID:            e.ID,
		TransactionID: e.TransactionID,
		CaseID:        e.CaseID,
		EntryDate:     e.EntryDate.UTC().Format(timeFormat),
		Type:          e.Type,
		AmountCents:   e.AmountCents,
		Account:       e.Account,
		SourceType:    e.SourceType,
		SourceID:      e.SourceID,
	}
}

// ToActivityDTO converts an Activity to ActivityDTO
func ToActivityDTO(a *domain.Activity) domain.ActivityDTO {
	return domain.ActivityDTO{
		ID:         a.ID,
		CaseID:     a.CaseID,
		Title:      a.Title,
		Body:       a.Body,
		ActorID:    a.ActorID,
		ActorName:  a.ActorName,
		OccurredAt: a.OccurredAt.UTC().Format(timeFormat),
	}
}

// ToFileDTO converts a File to FileDTO
func ToFileDTO(f *domain.File) domain.FileDTO {
	return domain.FileDTO{
		ID:          f.ID,
		CaseID:      f.CaseID,
		Filename:    f.Filename,
		ContentType: f.ContentType,
		Size:        f.Size,
		UploadedBy:  f.UploadedBy,
		CreatedAt:   f.CreatedAt.UTC().Format(timeFormat),
	}
}
