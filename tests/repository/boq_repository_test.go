package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/fieldline/casework-api/internal/repository"
	"github.com/fieldline/casework-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockTx_SecondLockFails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewBOQRepository(db)

	c := testutil.CreateTestCase(t, db, domain.CaseStatusBOQCompleted)
	boq := testutil.CreateTestBOQ(t, db, c.ID)

	tx := db.Begin()
	require.NoError(t, repo.LockTx(tx, boq.ID))
	require.NoError(t, tx.Commit().Error)

	// A second lock attempt finds the row already locked.
	tx = db.Begin()
	err := repo.LockTx(tx, boq.ID)
	assert.ErrorIs(t, err, repository.ErrBOQLocked)
	tx.Rollback()
}

func TestUpdate_LockedRowRejectsWrites(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewBOQRepository(db)
	ctx := context.Background()

	c := testutil.CreateTestCase(t, db, domain.CaseStatusBOQCompleted)
	boq := testutil.CreateTestBOQ(t, db, c.ID)

	tx := db.Begin()
	require.NoError(t, repo.LockTx(tx, boq.ID))
	require.NoError(t, tx.Commit().Error)

	boq.Items = domain.BOQItems{{Name: "Altered", Unit: "pcs", Quantity: 1}}
	err := repo.Update(ctx, boq)
	assert.ErrorIs(t, err, repository.ErrBOQLocked)

	var reloaded domain.CaseBOQ
	require.NoError(t, db.First(&reloaded, "id = ?", boq.ID).Error)
	require.Len(t, reloaded.Items, 2)
	assert.Equal(t, "Concrete C30", reloaded.Items[0].Name)
}

func TestGetLatestByCase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewBOQRepository(db)
	ctx := context.Background()

	c := testutil.CreateTestCase(t, db, domain.CaseStatusWaitingForDrawing)

	older := &domain.CaseBOQ{
		BaseModel: domain.BaseModel{CreatedAt: time.Now().Add(-time.Hour)},
		CaseID:    c.ID,
		Items:     domain.BOQItems{{Name: "Draft", Unit: "pcs", Quantity: 1}},
		CreatedBy: "drawing@fieldline.io",
	}
	require.NoError(t, db.Create(older).Error)

	newer := &domain.CaseBOQ{
		CaseID:    c.ID,
		Items:     domain.BOQItems{{Name: "Revised", Unit: "pcs", Quantity: 2}},
		CreatedBy: "drawing@fieldline.io",
	}
	require.NoError(t, db.Create(newer).Error)

	latest, err := repo.GetLatestByCase(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)
}
