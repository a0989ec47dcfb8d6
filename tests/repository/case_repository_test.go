package repository_test

import (
	"testing"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/fieldline/casework-api/internal/repository"
	"github.com/fieldline/casework-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSpendingTx(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewCaseRepository(db)

	c := testutil.CreateTestCase(t, db, domain.CaseStatusActive) // 10000_00 budget

	tx := db.Begin()
	rows, err := repo.AddSpendingTx(tx, c.ID, 300000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	require.NoError(t, tx.Commit().Error)

	var reloaded domain.Case
	require.NoError(t, db.First(&reloaded, "id = ?", c.ID).Error)
	assert.Equal(t, domain.Cents(300000), reloaded.SpentCents)
	assert.Equal(t, domain.Cents(700000), reloaded.RemainingCents)
}

func TestAddSpendingTx_BudgetGuard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewCaseRepository(db)

	c := testutil.CreateTestCase(t, db, domain.CaseStatusActive)

	tx := db.Begin()
	rows, err := repo.AddSpendingTx(tx, c.ID, 900000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// The guarded update refuses to cross the budget line.
	rows, err = repo.AddSpendingTx(tx, c.ID, 200000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	// Spending exactly up to the limit is allowed.
	rows, err = repo.AddSpendingTx(tx, c.ID, 100000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	require.NoError(t, tx.Commit().Error)

	var reloaded domain.Case
	require.NoError(t, db.First(&reloaded, "id = ?", c.ID).Error)
	assert.Equal(t, domain.Cents(1000000), reloaded.SpentCents)
	assert.Equal(t, domain.Cents(0), reloaded.RemainingCents)
}

func TestCountByStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewCaseRepository(db)

	testutil.CreateTestCase(t, db, domain.CaseStatusActive)
	testutil.CreateTestCase(t, db, domain.CaseStatusActive)
	testutil.CreateTestCase(t, db, domain.CaseStatusQuotation)

	ctx := testutil.ContextWithUser(domain.RoleAdmin)
	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[domain.CaseStatusActive])
	assert.Equal(t, int64(1), counts[domain.CaseStatusQuotation])
}
