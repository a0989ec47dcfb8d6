package repository_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/fieldline/casework-api/internal/auth"
	"github.com/fieldline/casework-api/internal/domain"
	"github.com/fieldline/casework-api/internal/repository"
	"github.com/fieldline/casework-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestApplyOrgFilter_WithFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)

	orgID := domain.OrganizationID("fieldline-se")
	ctx := auth.WithOrgFilter(context.Background(), &auth.OrgFilter{OrganizationID: &orgID})

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return repository.ApplyOrgFilter(ctx, tx.Model(&domain.Case{})).Find(&[]domain.Case{})
	})

	assert.Contains(t, sql, "organization_id", "query should carry the organization filter")
	assert.Contains(t, sql, "fieldline-se")
}

func TestApplyOrgFilter_AdminUnscoped(t *testing.T) {
	db := testutil.SetupTestDB(t)

	// Admins without an explicit scope see all organizations.
	userCtx := &auth.UserContext{
		UserID:         uuid.New(),
		Roles:          []domain.UserRoleType{domain.RoleAdmin},
		OrganizationID: testutil.TestOrgID,
	}
	ctx := auth.WithUserContext(context.Background(), userCtx)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return repository.ApplyOrgFilter(ctx, tx.Model(&domain.Case{})).Find(&[]domain.Case{})
	})

	assert.NotContains(t, sql, "organization_id")
}

func TestApplyOrgFilter_RegularUserScoped(t *testing.T) {
	db := testutil.SetupTestDB(t)

	userCtx := &auth.UserContext{
		UserID:         uuid.New(),
		Roles:          []domain.UserRoleType{domain.RoleFinance},
		OrganizationID: testutil.TestOrgID,
	}
	ctx := auth.WithUserContext(context.Background(), userCtx)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return repository.ApplyOrgFilter(ctx, tx.Model(&domain.Case{})).Find(&[]domain.Case{})
	})

	assert.Contains(t, sql, "organization_id")
	assert.Contains(t, sql, string(testutil.TestOrgID))
}

func TestOrgFilter_HidesForeignRows(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewCaseRepository(db)

	testutil.SeedOrganization(t, db, "fieldline-se", "Fieldline Sverige")

	mine := testutil.CreateTestCase(t, db, domain.CaseStatusActive)

	foreign := &domain.Case{
		OrganizationID: "fieldline-se",
		Title:          "Stockholm depot",
		ClientName:     "Svensk Bygg AB",
		Status:         domain.CaseStatusActive,
		AssignedTeam:   domain.RoleMap{},
	}
	require.NoError(t, db.Create(foreign).Error)

	ctx := testutil.ContextWithUser(domain.RoleFinance)

	got, err := repo.GetByID(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)

	_, err = repo.GetByID(ctx, foreign.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
