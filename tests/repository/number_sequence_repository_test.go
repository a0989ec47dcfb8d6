package repository_test

import (
	"context"
	"testing"

	"github.com/fieldline/casework-api/internal/repository"
	"github.com/fieldline/casework-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimNext_SequenceIncrements(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewNumberSequenceRepository(db)

	for _, want := range []string{"SAL-2026-0001", "SAL-2026-0002", "SAL-2026-0003"} {
		tx := db.Begin()
		number, err := repo.ClaimNext(tx, testutil.TestOrgID, repository.SequenceKindSales, 2026)
		require.NoError(t, err)
		require.NoError(t, tx.Commit().Error)
		assert.Equal(t, want, number)
	}
}

func TestClaimNext_IndependentPerKindAndYear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewNumberSequenceRepository(db)

	tx := db.Begin()
	sales, err := repo.ClaimNext(tx, testutil.TestOrgID, repository.SequenceKindSales, 2026)
	require.NoError(t, err)
	purchase, err := repo.ClaimNext(tx, testutil.TestOrgID, repository.SequenceKindPurchase, 2026)
	require.NoError(t, err)
	nextYear, err := repo.ClaimNext(tx, testutil.TestOrgID, repository.SequenceKindSales, 2027)
	require.NoError(t, err)
	require.NoError(t, tx.Commit().Error)

	assert.Equal(t, "SAL-2026-0001", sales)
	assert.Equal(t, "PUR-2026-0001", purchase)
	assert.Equal(t, "SAL-2027-0001", nextYear)
}

func TestClaimNext_RollbackReleasesNumber(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewNumberSequenceRepository(db)

	tx := db.Begin()
	number, err := repo.ClaimNext(tx, testutil.TestOrgID, repository.SequenceKindSales, 2026)
	require.NoError(t, err)
	assert.Equal(t, "SAL-2026-0001", number)
	require.NoError(t, tx.Rollback().Error)

	// The rolled-back claim never happened.
	tx = db.Begin()
	number, err = repo.ClaimNext(tx, testutil.TestOrgID, repository.SequenceKindSales, 2026)
	require.NoError(t, err)
	require.NoError(t, tx.Commit().Error)
	assert.Equal(t, "SAL-2026-0001", number)
}

func TestPeek(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewNumberSequenceRepository(db)
	ctx := context.Background()

	// Unclaimed sequence peeks at 1.
	next, err := repo.Peek(ctx, testutil.TestOrgID, repository.SequenceKindSales, 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	tx := db.Begin()
	_, err = repo.ClaimNext(tx, testutil.TestOrgID, repository.SequenceKindSales, 2026)
	require.NoError(t, err)
	require.NoError(t, tx.Commit().Error)

	next, err = repo.Peek(ctx, testutil.TestOrgID, repository.SequenceKindSales, 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next)
}
