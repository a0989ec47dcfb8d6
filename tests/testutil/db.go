// Package testutil provides shared helpers for setting up in-memory test
// databases and authenticated contexts.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/fieldline/casework-api/internal/auth"
	"github.com/fieldline/casework-api/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestOrgID is the organization seeded by SetupTestDB
const TestOrgID = domain.OrganizationID("fieldline-no")

// SetupTestDB creates an in-memory SQLite database with the full schema
// migrated and the default test organization seeded.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open test database")

	err = db.AutoMigrate(
		&domain.Organization{},
		&domain.Case{},
		&domain.CaseTask{},
		&domain.CaseBOQ{},
		&domain.CaseQuotation{},
		&domain.Invoice{},
		&domain.LedgerEntry{},
		&domain.NumberSequence{},
		&domain.Activity{},
		&domain.GeneratedDocument{},
		&domain.File{},
	)
	require.NoError(t, err, "failed to migrate test schema")

	SeedOrganization(t, db, TestOrgID, "Fieldline Norge")

	return db
}

// SeedOrganization inserts an organization row.
func SeedOrganization(t *testing.T, db *gorm.DB, id domain.OrganizationID, name string) {
	t.Helper()
	org := &domain.Organization{
		ID:       id,
		Name:     name,
		IsActive: true,
	}
	require.NoError(t, db.Create(org).Error)
}

// ContextWithUser returns a context carrying an authenticated user with the
// given roles, scoped to the default test organization.
func ContextWithUser(roles ...domain.UserRoleType) context.Context {
	return ContextWithOrgUser(TestOrgID, roles...)
}

// ContextWithOrgUser returns a context carrying an authenticated user with the
// given roles, scoped to the given organization.
func ContextWithOrgUser(orgID domain.OrganizationID, roles ...domain.UserRoleType) context.Context {
	userCtx := &auth.UserContext{
		UserID:         uuid.New(),
		DisplayName:    "Test User",
		Email:          "test@fieldline.io",
		Roles:          roles,
		OrganizationID: orgID,
	}
	ctx := auth.WithUserContext(context.Background(), userCtx)
	return auth.WithOrgFilter(ctx, &auth.OrgFilter{OrganizationID: &orgID})
}

// CreateTestCase inserts a case in the given status with a funded cost center.
func CreateTestCase(t *testing.T, db *gorm.DB, status domain.CaseStatus) *domain.Case {
	t.Helper()
	c := &domain.Case{
		OrganizationID:   TestOrgID,
		Title:            "Warehouse extension",
		ClientName:       "Nordbygg AS",
		Status:           status,
		AssignedTeam:     domain.RoleMap{},
		TotalBudgetCents: 10_000_00,
		RemainingCents:   10_000_00,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// CreateTestTask inserts a task for the given case.
func CreateTestTask(t *testing.T, db *gorm.DB, caseID uuid.UUID, taskType domain.TaskType, status domain.TaskStatus) *domain.CaseTask {
	t.Helper()
	deadline := time.Now().Add(48 * time.Hour)
	task := &domain.CaseTask{
		CaseID:     caseID,
		Type:       taskType,
		Status:     status,
		AssignedTo: "worker@fieldline.io",
		Deadline:   &deadline,
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

// CreateTestBOQ inserts an unlocked BOQ with two unpriced lines.
func CreateTestBOQ(t *testing.T, db *gorm.DB, caseID uuid.UUID) *domain.CaseBOQ {
	t.Helper()
	boq := &domain.CaseBOQ{
		CaseID: caseID,
		Items: domain.BOQItems{
			{Name: "Concrete C30", Unit: "m3", Quantity: 12},
			{Name: "Rebar 12mm", Unit: "kg", Quantity: 450},
		},
		CreatedBy: "drawing@fieldline.io",
	}
	require.NoError(t, db.Create(boq).Error)
	return boq
}
