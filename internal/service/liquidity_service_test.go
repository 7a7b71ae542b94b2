package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/curvemarket/internal/domain"
	"github.com/alanyoungcy/curvemarket/internal/engine"
)

type liquidityEnv struct {
	db    *memDB
	cache *fakeCache
	locks *fakeLocks
	bus   *fakeBus
	svc   *LiquidityService
}

func newLiquidityEnv(t *testing.T) *liquidityEnv {
	t.Helper()

	db := newMemDB()
	p := testServiceParams()
	db.params = &p

	m, err := engine.NewMarket(p, engine.MarketSeed{
		ID:       "m1",
		YesMint:  "mint-yes",
		NoMint:   "mint-no",
		Creator:  "alice",
		Question: "q",
	}, 100, time.Now())
	require.NoError(t, err)
	db.markets[m.ID] = m

	env := &liquidityEnv{
		db:    db,
		cache: newFakeCache(),
		locks: &fakeLocks{},
		bus:   newFakeBus(),
	}
	env.svc = NewLiquidityService(
		db.stores(), &memTx{db: db}, env.cache, env.locks, env.bus, testLogger(),
	)
	return env
}

func TestAddLiquiditySplitsEvenlyAtGenesis(t *testing.T) {
	env := newLiquidityEnv(t)

	res, err := env.svc.AddLiquidity(context.Background(), "m1", "bob", 1_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), res.SolAmount)
	assert.Equal(t, uint64(500), res.YesSolAmount)
	assert.Equal(t, uint64(500), res.NoSolAmount)
	assert.Equal(t, uint64(1_000), res.TotalLPAmount)

	m := env.db.markets["m1"]
	assert.Equal(t, uint64(500), m.Yes.RealSolReserves)
	assert.Equal(t, uint64(500), m.No.RealSolReserves)
	require.NotNil(t, m.LP("bob"))
	assert.Equal(t, uint64(1_000), m.LP("bob").SolAmount)

	u := env.db.users[userKey("m1", "bob")]
	assert.True(t, u.IsLP)

	assert.Equal(t, []domain.EventKind{domain.EventLiquidity}, env.db.eventKinds("m1"))
	assert.Len(t, env.bus.published[ChannelLiquidity], 1)
	assert.Equal(t, 1, env.cache.invalidations)
	assert.Equal(t, 1, env.locks.acquired)
	assert.Equal(t, 1, env.locks.released)
}

func TestAddLiquidityProportionalSplit(t *testing.T) {
	env := newLiquidityEnv(t)
	m := env.db.markets["m1"]
	m.Yes.RealSolReserves = 300
	m.No.RealSolReserves = 100
	env.db.markets["m1"] = m

	res, err := env.svc.AddLiquidity(context.Background(), "m1", "bob", 400)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), res.YesSolAmount)
	assert.Equal(t, uint64(100), res.NoSolAmount)

	m = env.db.markets["m1"]
	assert.Equal(t, uint64(600), m.Yes.RealSolReserves)
	assert.Equal(t, uint64(200), m.No.RealSolReserves)
}

func TestWithdrawLiquidity(t *testing.T) {
	env := newLiquidityEnv(t)
	ctx := context.Background()

	_, err := env.svc.AddLiquidity(ctx, "m1", "bob", 1_000)
	require.NoError(t, err)

	res, err := env.svc.WithdrawLiquidity(ctx, "m1", "bob", 400)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), res.SolAmount)
	assert.Equal(t, uint64(200), res.YesSolAmount)
	assert.Equal(t, uint64(200), res.NoSolAmount)
	assert.Equal(t, uint64(600), res.TotalLPAmount)

	m := env.db.markets["m1"]
	assert.Equal(t, uint64(300), m.Yes.RealSolReserves)
	assert.Equal(t, uint64(300), m.No.RealSolReserves)
	require.NotNil(t, m.LP("bob"))
	assert.Equal(t, uint64(600), m.LP("bob").SolAmount)
	assert.True(t, env.db.users[userKey("m1", "bob")].IsLP)

	// Withdrawing the remainder removes the LP ledger entry entirely.
	_, err = env.svc.WithdrawLiquidity(ctx, "m1", "bob", 600)
	require.NoError(t, err)

	m = env.db.markets["m1"]
	assert.Nil(t, m.LP("bob"))
	assert.Zero(t, m.TotalLPAmount)
	assert.False(t, env.db.users[userKey("m1", "bob")].IsLP)

	kinds := env.db.eventKinds("m1")
	assert.Equal(t, []domain.EventKind{
		domain.EventLiquidity, domain.EventLiquidity, domain.EventLiquidity,
	}, kinds)
}

func TestWithdrawLiquidityNotLP(t *testing.T) {
	env := newLiquidityEnv(t)

	_, err := env.svc.WithdrawLiquidity(context.Background(), "m1", "mallory", 100)
	assert.ErrorIs(t, err, domain.ErrWithdrawNotLP)
}

func TestWithdrawLiquidityOverContribution(t *testing.T) {
	env := newLiquidityEnv(t)
	ctx := context.Background()

	_, err := env.svc.AddLiquidity(ctx, "m1", "bob", 1_000)
	require.NoError(t, err)

	_, err = env.svc.WithdrawLiquidity(ctx, "m1", "bob", 1_001)
	assert.ErrorIs(t, err, domain.ErrWithdrawAmount)

	m := env.db.markets["m1"]
	assert.Equal(t, uint64(1_000), m.TotalLPAmount)
}

func TestAddLiquidityCompletedMarket(t *testing.T) {
	env := newLiquidityEnv(t)
	m := env.db.markets["m1"]
	m.IsCompleted = true
	env.db.markets["m1"] = m

	_, err := env.svc.AddLiquidity(context.Background(), "m1", "bob", 1_000)
	assert.ErrorIs(t, err, domain.ErrMarketCompleted)
	assert.Empty(t, env.db.eventKinds("m1"))
}

func TestAddLiquidityLockHeld(t *testing.T) {
	env := newLiquidityEnv(t)
	env.locks.held = true

	_, err := env.svc.AddLiquidity(context.Background(), "m1", "bob", 1_000)
	assert.ErrorIs(t, err, domain.ErrLockHeld)
	assert.Empty(t, env.db.eventKinds("m1"))
}
