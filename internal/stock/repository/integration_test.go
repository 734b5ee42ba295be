package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepline/prepline-backend/internal/stock/domain"
	"github.com/prepline/prepline-backend/internal/stock/repository"
	"github.com/prepline/prepline-backend/pkg/database"
	"github.com/prepline/prepline-backend/pkg/errors"
	"github.com/prepline/prepline-backend/pkg/testutil"
)

func TestLedgerRepository_PostgresRoundTrip(t *testing.T) {
	container := testutil.StartPostgres(t)
	ctx := testutil.DefaultTestContext(t)

	raw, err := container.Connect(ctx)
	require.NoError(t, err)
	repo := repository.NewLedgerRepository(database.Wrap(raw, nil))
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Migrate(ctx), "schema must be re-runnable")

	f := testutil.NewFixtureFactory()
	prep := f.Prep(testutil.WithPortions(45))
	dispatch := f.Dispatch(prep, 25, 0, 20)
	prep.Processed = true
	record := domain.SalesRecord{
		ID: "rec-1", DishName: prep.DishName, Location: domain.LocationEastham, BatchNumber: prep.BatchNumber,
		Date: f.Day, ReceivedPortions: 25, RemainingPortions: 25, StorageLocation: domain.StorageFridge,
		Version: 1, CreatedAt: f.Day, UpdatedAt: f.Day,
	}

	writes := []domain.Write{
		domain.Save(domain.TableRecipes, testutil.JollofRecipe()),
	}
	for _, item := range testutil.JollofInventory() {
		writes = append(writes, domain.Save(domain.TableInventoryItems, item))
	}
	writes = append(writes,
		domain.Save(domain.TablePrepEvents, prep),
		domain.Save(domain.TableDispatchEvents, dispatch),
		domain.Save(domain.TableSalesRecords, record),
	)
	require.NoError(t, repo.Commit(ctx, writes...))

	updated := record
	updated.RemainingPortions = 20
	updated.Version = 2
	updated.UpdatedAt = f.Day.Add(time.Hour)
	require.NoError(t, repo.Commit(ctx, domain.Save(domain.TableSalesRecords, updated)))

	err = repo.Commit(ctx, domain.Save(domain.TableSalesRecords, updated))
	assert.True(t, errors.Is(err, errors.ErrStaleRecord), "replaying the same version must be rejected")

	err = repo.Commit(ctx, domain.Save(domain.TablePrepEvents, prep), domain.Save(domain.TableDispatchEvents, f.Dispatch(prep, 45, 0, 0)))
	assert.True(t, errors.Is(err, errors.ErrConflict), "a processed prep cannot be dispatched again")

	overdrawn := updated
	overdrawn.RemainingPortions = 30
	overdrawn.Version = 3
	err = repo.Commit(ctx, domain.Save(domain.TableSalesRecords, overdrawn))
	assert.True(t, errors.Is(err, errors.ErrValidation))

	snap, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.PrepEvents, 1)
	assert.True(t, snap.PrepEvents[0].Processed)
	require.Len(t, snap.DispatchEvents, 1)
	assert.Equal(t, 20, snap.DispatchEvents[0].ColdRoomStock)
	require.Len(t, snap.SalesRecords, 1)
	assert.Equal(t, 20, snap.SalesRecords[0].RemainingPortions)
	assert.Equal(t, 2, snap.SalesRecords[0].Version)
	require.Len(t, snap.Recipes, 1)
	assert.Len(t, snap.Recipes[0].Ingredients, 2)
	assert.Len(t, snap.Inventory, 2)
}
