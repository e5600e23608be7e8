package migration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/hotel/internal/logger"
	"github.com/avstrong/hotel/internal/migration"
	"github.com/avstrong/hotel/internal/storage/memory"
)

func TestUp(t *testing.T) {
	db := memory.New(memory.Config{})
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, migration.Up(ctx, logger.Discard(), db, now))

	rooms, err := db.ListRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, len(migration.Rooms()))

	ok, err := db.AccountExists(ctx, "guest-1")
	require.NoError(t, err)
	assert.True(t, ok)

	welcome, err := db.GetPromo(ctx, "welcome10")
	require.NoError(t, err)
	assert.True(t, welcome.Redeemable(now.AddDate(0, 6, 0)))
	assert.False(t, welcome.Redeemable(now.AddDate(2, 0, 0)))

	summer, err := db.GetPromo(ctx, "SUMMER2025")
	require.NoError(t, err)
	assert.Nil(t, summer.UsageLimit)
}

func TestUp_SkipsSeededStore(t *testing.T) {
	db := memory.New(memory.Config{})
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, migration.Up(ctx, logger.Discard(), db, now))

	trxCtx, err := db.BeginTransaction(ctx, "")
	require.NoError(t, err)

	promo, err := db.GetPromo(trxCtx, "WELCOME10")
	require.NoError(t, err)

	promo.TimesUsed = 7
	require.NoError(t, db.SavePromo(trxCtx, promo))
	require.NoError(t, db.CommitTransaction(trxCtx))

	require.NoError(t, migration.Up(ctx, logger.Discard(), db, now))

	promo, err = db.GetPromo(ctx, "WELCOME10")
	require.NoError(t, err)
	assert.Equal(t, 7, promo.TimesUsed, "a second run keeps usage counters")
}
