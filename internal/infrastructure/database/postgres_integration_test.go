//go:build integration

package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/bimakw/facilitator-indexer/internal/domain/entities"
	"github.com/bimakw/facilitator-indexer/internal/infrastructure/database"
	"github.com/bimakw/facilitator-indexer/internal/testutil"
)

func setupTestDB(t *testing.T) *database.PostgresDB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("facilitator_indexer_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.NewPostgresDBFromDSN(ctx, connStr, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(ctx))
	return db
}

func TestTransferEventRepo_InsertManyDeduplicates(t *testing.T) {
	db := setupTestDB(t)
	repo := database.NewTransferEventRepo(db.DB())
	ctx := context.Background()

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	first := testutil.CreateTestTransferEvent(testutil.WithTxHash("0xaaa"), testutil.WithBlockTimestamp(ts))
	second := testutil.CreateTestTransferEvent(testutil.WithTxHash("0xbbb"), testutil.WithBlockTimestamp(ts.Add(time.Hour)))

	n, err := repo.InsertMany(ctx, []entities.TransferEvent{first, second})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// same natural keys plus one new row
	third := testutil.CreateTestTransferEvent(testutil.WithTxHash("0xccc"), testutil.WithBlockTimestamp(ts.Add(2*time.Hour)))
	n, err = repo.InsertMany(ctx, []entities.TransferEvent{first, second, third})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := repo.GetCount(ctx, entities.DefaultTransferEventFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestTransferEventRepo_FindMostRecent(t *testing.T) {
	db := setupTestDB(t)
	repo := database.NewTransferEventRepo(db.DB())
	ctx := context.Background()

	got, err := repo.FindMostRecent(ctx, entities.ChainBase, entities.ProviderBitquery, "coinbase")
	require.NoError(t, err)
	assert.Nil(t, got)

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_, err = repo.InsertMany(ctx, []entities.TransferEvent{
		testutil.CreateTestTransferEvent(testutil.WithTxHash("0x01"), testutil.WithBlockTimestamp(ts)),
		testutil.CreateTestTransferEvent(testutil.WithTxHash("0x02"), testutil.WithBlockTimestamp(ts.Add(5*time.Minute))),
		testutil.CreateTestTransferEvent(testutil.WithTxHash("0x03"), testutil.WithBlockTimestamp(ts.Add(time.Hour)),
			testutil.WithFacilitatorID("other")),
	})
	require.NoError(t, err)

	got, err = repo.FindMostRecent(ctx, entities.ChainBase, entities.ProviderBitquery, "coinbase")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "0x02", got.TxHash)
	assert.True(t, got.BlockTimestamp.Equal(ts.Add(5*time.Minute)))
}

func TestTransferEventRepo_FilterAndStats(t *testing.T) {
	db := setupTestDB(t)
	repo := database.NewTransferEventRepo(db.DB())
	ctx := context.Background()

	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := repo.InsertMany(ctx, []entities.TransferEvent{
		testutil.CreateTestTransferEvent(testutil.WithTxHash("0x01"), testutil.WithBlockTimestamp(ts),
			testutil.WithRecipient(testutil.AliceAddress), testutil.WithAmount(1_000_000)),
		testutil.CreateTestTransferEvent(testutil.WithTxHash("0x02"), testutil.WithBlockTimestamp(ts.Add(time.Hour)),
			testutil.WithRecipient(testutil.BobAddress), testutil.WithAmount(2_500_000)),
	})
	require.NoError(t, err)

	filter := entities.DefaultTransferEventFilter()
	recipient := testutil.BobAddress
	filter.Recipient = &recipient
	got, err := repo.GetByFilter(ctx, filter)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0x02", got[0].TxHash)

	// upper bound is exclusive
	filter = entities.DefaultTransferEventFilter()
	to := ts.Add(time.Hour)
	filter.ToTime = &to
	got, err = repo.GetByFilter(ctx, filter)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0x01", got[0].TxHash)

	stats, err := repo.GetFacilitatorStats(ctx, "coinbase")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(2), stats[0].TotalTransfers)
	assert.Equal(t, "3500000", stats[0].TotalAmount)
	assert.Equal(t, int64(2), stats[0].UniqueRecipients)
	require.NotNil(t, stats[0].LastTransferAt)
	assert.True(t, stats[0].LastTransferAt.Equal(ts.Add(time.Hour)))
}

func TestSyncRunRepo_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := database.NewSyncRunRepo(db.DB())
	ctx := context.Background()

	started := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	run := &entities.SyncRun{
		ID:        "8d1f7d4e-3c8a-4d1e-9c55-5b0f1f0e2a11",
		JobID:     "base-sync-transfers-bitquery",
		Chain:     entities.ChainBase,
		Provider:  entities.ProviderBitquery,
		Status:    entities.SyncRunRunning,
		StartedAt: started,
	}
	require.NoError(t, repo.Create(ctx, run))

	finished := started.Add(time.Minute)
	run.Status = entities.SyncRunSucceeded
	run.Fetched = 10
	run.Saved = 7
	run.FinishedAt = &finished
	require.NoError(t, repo.Finish(ctx, run))

	runs, err := repo.ListRecent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, entities.SyncRunSucceeded, runs[0].Status)
	assert.Equal(t, int64(7), runs[0].Saved)

	runs, err = repo.ListRecent(ctx, "polygon-sync-transfers-bitquery", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
