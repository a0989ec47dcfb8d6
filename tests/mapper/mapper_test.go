package mapper_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/fieldline/casework-api/internal/auth"
	"github.com/fieldline/casework-api/internal/domain"
	"github.com/fieldline/casework-api/internal/mapper"
	"github.com/stretchr/testify/assert"
)

func ctxWithRoles(roles ...domain.UserRoleType) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:         uuid.New(),
		DisplayName:    "Test User",
		Roles:          roles,
		OrganizationID: "fieldline-no",
	})
}

func sampleQuotation() *domain.CaseQuotation {
	return &domain.CaseQuotation{
		BaseModel:       domain.BaseModel{ID: uuid.New(), CreatedAt: time.Now()},
		CaseID:          uuid.New(),
		BOQID:           uuid.New(),
		Items:           domain.BOQItems{{Name: "Concrete", Unit: "m3", Quantity: 10, RateCents: 50000, TotalCents: 500000}},
		SubtotalCents:   500000,
		GrandTotalCents: 625000,
		InternalPRCode:  "PR-7781",
		AuditStatus:     domain.AuditStatusPending,
		CreatedBy:       "pricer@fieldline.io",
	}
}

func TestToQuotationDTO_InternalPRCodeVisibility(t *testing.T) {
	tests := []struct {
		name     string
		roles    []domain.UserRoleType
		wantCode string
	}{
		{"admin sees code", []domain.UserRoleType{domain.RoleAdmin}, "PR-7781"},
		{"sales gm sees code", []domain.UserRoleType{domain.RoleSalesGM}, "PR-7781"},
		{"quotation team sees code", []domain.UserRoleType{domain.RoleQuotation}, "PR-7781"},
		{"procurement does not", []domain.UserRoleType{domain.RoleProcurement}, ""},
		{"finance does not", []domain.UserRoleType{domain.RoleFinance}, ""},
		{"viewer does not", []domain.UserRoleType{domain.RoleViewer}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dto := mapper.ToQuotationDTO(ctxWithRoles(tt.roles...), sampleQuotation())
			assert.Equal(t, tt.wantCode, dto.InternalPRCode)
		})
	}
}

func TestToQuotationDTO_NoUserContext(t *testing.T) {
	// An unauthenticated context never receives the restricted field.
	dto := mapper.ToQuotationDTO(context.Background(), sampleQuotation())
	assert.Empty(t, dto.InternalPRCode)
}

func TestToTaskDTO_Overdue(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	open := &domain.CaseTask{Status: domain.TaskStatusPending, Deadline: &past}
	assert.True(t, mapper.ToTaskDTO(open).Overdue)

	onTime := &domain.CaseTask{Status: domain.TaskStatusStarted, Deadline: &future}
	assert.False(t, mapper.ToTaskDTO(onTime).Overdue)

	// A completed task is never overdue, whatever its deadline was.
	done := &domain.CaseTask{Status: domain.TaskStatusCompleted, Deadline: &past}
	assert.False(t, mapper.ToTaskDTO(done).Overdue)

	noDeadline := &domain.CaseTask{Status: domain.TaskStatusPending}
	assert.False(t, mapper.ToTaskDTO(noDeadline).Overdue)
}
