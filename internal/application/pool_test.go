package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/XVM-Systems/RAIL/internal/domain"
	"github.com/XVM-Systems/RAIL/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetPrimary_CreatesPool(t *testing.T) {
	env := newTestEnv(t)
	env.prober.succeed("https://rpc.example.com", 42*time.Millisecond)

	result, err := env.service.SetPrimary(context.Background(), 1, "https://rpc.example.com")
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.ChainID)
	assert.Equal(t, entity.RPCURL("https://rpc.example.com"), result.URL)
	assert.Equal(t, int64(42), result.LatencyMs)

	pools := env.service.List(context.Background())
	require.Len(t, pools, 1)
	assert.Equal(t, entity.RPCURL("https://rpc.example.com"), pools[0].Primary.URL)
	assert.Empty(t, pools[0].Backups)
	assert.Equal(t, 1, env.store.saves())
}

func TestSetPrimary_ReplacementKeepsBackups(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.SetPrimary(ctx, 1, "https://a.example.com")
	require.NoError(t, err)
	_, err = env.service.AddBackup(ctx, 1, "https://b.example.com")
	require.NoError(t, err)

	_, err = env.service.SetPrimary(ctx, 1, "https://c.example.com")
	require.NoError(t, err)

	pools := env.service.List(ctx)
	require.Len(t, pools, 1)
	assert.Equal(t, entity.RPCURL("https://c.example.com"), pools[0].Primary.URL)
	require.Len(t, pools[0].Backups, 1)
	assert.Equal(t, entity.RPCURL("https://b.example.com"), pools[0].Backups[0].URL)
}

func TestSetPrimary_ProbeFailureLeavesPoolUnchanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.SetPrimary(ctx, 1, "https://a.example.com")
	require.NoError(t, err)

	env.prober.fail("https://bad.example.com", entity.ErrorKindChainMismatch)
	_, err = env.service.SetPrimary(ctx, 1, "https://bad.example.com")
	require.Error(t, err)

	pools := env.service.List(ctx)
	require.Len(t, pools, 1)
	assert.Equal(t, entity.RPCURL("https://a.example.com"), pools[0].Primary.URL)
}

func TestSetPrimary_RejectsExistingBackup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.SetPrimary(ctx, 1, "https://a.example.com")
	require.NoError(t, err)
	_, err = env.service.AddBackup(ctx, 1, "https://b.example.com")
	require.NoError(t, err)

	_, err = env.service.SetPrimary(ctx, 1, "https://b.example.com")
	require.ErrorIs(t, err, domain.ErrDuplicateEndpoint)

	pools := env.service.List(ctx)
	require.Len(t, pools, 1)
	assert.Equal(t, entity.RPCURL("https://a.example.com"), pools[0].Primary.URL)
	require.Len(t, pools[0].Backups, 1)
	assert.NotEqual(t, pools[0].Primary.URL, pools[0].Backups[0].URL)
}

func TestSetPrimary_InvalidURL(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.SetPrimary(context.Background(), 1, "ftp://nope.example.com")
	require.ErrorIs(t, err, domain.ErrInvalidEndpointURL)
	assert.Empty(t, env.prober.probes())
}

func TestAddBackup_RequiresPrimary(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.AddBackup(context.Background(), 1, "https://b.example.com")
	require.ErrorIs(t, err, domain.ErrNoPrimaryConfigured)
}

func TestAddBackup_RejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.SetPrimary(ctx, 1, "https://a.example.com")
	require.NoError(t, err)

	_, err = env.service.AddBackup(ctx, 1, "https://a.example.com")
	require.ErrorIs(t, err, domain.ErrDuplicateEndpoint)

	_, err = env.service.AddBackup(ctx, 1, "https://b.example.com")
	require.NoError(t, err)
	_, err = env.service.AddBackup(ctx, 1, "https://b.example.com")
	require.ErrorIs(t, err, domain.ErrDuplicateEndpoint)
}

func TestAddBackup_RejectsThirdBackup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.SetPrimary(ctx, 1, "https://a.example.com")
	require.NoError(t, err)
	_, err = env.service.AddBackup(ctx, 1, "https://b.example.com")
	require.NoError(t, err)
	pool, err := env.service.AddBackup(ctx, 1, "https://c.example.com")
	require.NoError(t, err)
	assert.Len(t, pool.Backups, 2)

	_, err = env.service.AddBackup(ctx, 1, "https://d.example.com")
	require.ErrorIs(t, err, domain.ErrPoolFull)

	pools := env.service.List(ctx)
	assert.Len(t, pools[0].Backups, 2)
}

func TestRotate_MovesFirstBackupToPrimary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.SetPrimary(ctx, 1, "https://a.example.com")
	require.NoError(t, err)
	_, err = env.service.AddBackup(ctx, 1, "https://b.example.com")
	require.NoError(t, err)
	_, err = env.service.AddBackup(ctx, 1, "https://c.example.com")
	require.NoError(t, err)

	probesBefore := len(env.prober.probes())
	pool, err := env.service.Rotate(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, entity.RPCURL("https://b.example.com"), pool.Primary.URL)
	require.Len(t, pool.Backups, 2)
	assert.Equal(t, entity.RPCURL("https://c.example.com"), pool.Backups[0].URL)
	assert.Equal(t, entity.RPCURL("https://a.example.com"), pool.Backups[1].URL)

	// Manual rotation never probes.
	assert.Len(t, env.prober.probes(), probesBefore)
}

func TestRotate_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.Rotate(ctx, 1)
	require.ErrorIs(t, err, domain.ErrNoRPCConfigured)

	_, err = env.service.SetPrimary(ctx, 1, "https://a.example.com")
	require.NoError(t, err)
	_, err = env.service.Rotate(ctx, 1)
	require.ErrorIs(t, err, domain.ErrNoBackupsAvailable)
}

func TestPromote_MovesOldPrimaryToFront(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.SetPrimary(ctx, 1, "https://a.example.com")
	require.NoError(t, err)
	_, err = env.service.AddBackup(ctx, 1, "https://b.example.com")
	require.NoError(t, err)
	_, err = env.service.AddBackup(ctx, 1, "https://c.example.com")
	require.NoError(t, err)

	env.service.promote(ctx, 1, "https://c.example.com")

	pools := env.service.List(ctx)
	assert.Equal(t, entity.RPCURL("https://c.example.com"), pools[0].Primary.URL)
	require.Len(t, pools[0].Backups, 2)
	assert.Equal(t, entity.RPCURL("https://a.example.com"), pools[0].Backups[0].URL)
	assert.Equal(t, entity.RPCURL("https://b.example.com"), pools[0].Backups[1].URL)
}

func TestPromote_CurrentPrimaryIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.SetPrimary(ctx, 1, "https://a.example.com")
	require.NoError(t, err)
	_, err = env.service.AddBackup(ctx, 1, "https://b.example.com")
	require.NoError(t, err)

	before := env.service.List(ctx)
	saves := env.store.saves()

	env.service.promote(ctx, 1, "https://a.example.com")

	after := env.service.List(ctx)
	assert.Equal(t, before, after)
	assert.Equal(t, saves, env.store.saves())
}

func TestPromote_UnknownURLIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.SetPrimary(ctx, 1, "https://a.example.com")
	require.NoError(t, err)
	_, err = env.service.AddBackup(ctx, 1, "https://b.example.com")
	require.NoError(t, err)

	before := env.service.List(ctx)
	saves := env.store.saves()

	env.service.promote(ctx, 1, "https://gone.example.com")

	assert.Equal(t, before, env.service.List(ctx))
	assert.Equal(t, saves, env.store.saves())
}

func TestDelete_RemovesPool(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.SetPrimary(ctx, 1, "https://a.example.com")
	require.NoError(t, err)

	require.NoError(t, env.service.Delete(ctx, 1))
	assert.Empty(t, env.service.List(ctx))

	err = env.service.Delete(ctx, 1)
	require.ErrorIs(t, err, domain.ErrNoRPCConfigured)
}

func TestList_SortedByChainID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, chainID := range []int64{137, 1, 56} {
		_, err := env.service.SetPrimary(ctx, chainID, "https://rpc.example.com")
		require.NoError(t, err)
	}

	pools := env.service.List(ctx)
	require.Len(t, pools, 3)
	assert.Equal(t, int64(1), pools[0].ChainID)
	assert.Equal(t, int64(56), pools[1].ChainID)
	assert.Equal(t, int64(137), pools[2].ChainID)
}

func TestSetPrimary_SucceedsWhenPersistenceFails(t *testing.T) {
	env := newTestEnv(t)
	env.store.saveErr = errors.New("disk full")

	_, err := env.service.SetPrimary(context.Background(), 1, "https://a.example.com")
	require.NoError(t, err)

	pools := env.service.List(context.Background())
	require.Len(t, pools, 1)
	assert.Equal(t, entity.RPCURL("https://a.example.com"), pools[0].Primary.URL)
}

func TestPoolInvariant_PrimaryNeverAmongBackups(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.SetPrimary(ctx, 1, "https://a.example.com")
	require.NoError(t, err)
	_, err = env.service.AddBackup(ctx, 1, "https://b.example.com")
	require.NoError(t, err)
	_, err = env.service.AddBackup(ctx, 1, "https://c.example.com")
	require.NoError(t, err)

	check := func() {
		pools := env.service.List(ctx)
		require.Len(t, pools, 1)
		pool := pools[0]
		assert.LessOrEqual(t, len(pool.Backups), entity.MaxBackups)
		for _, b := range pool.Backups {
			assert.NotEqual(t, pool.Primary.URL, b.URL)
		}
	}

	check()
	_, err = env.service.Rotate(ctx, 1)
	require.NoError(t, err)
	check()
	env.service.promote(ctx, 1, "https://a.example.com")
	check()
	_, err = env.service.SetPrimary(ctx, 1, "https://d.example.com")
	require.NoError(t, err)
	check()
}
