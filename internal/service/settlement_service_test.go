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

type settlementEnv struct {
	db       *memDB
	cache    *fakeCache
	bus      *fakeBus
	notifier *fakeNotifier
	archiver *fakeArchiver
	svc      *SettlementService
}

// newSettlementEnv seeds one market where bob holds 400 yes tokens and 100 no
// tokens, with enough sol in each pool to cover a 1:1 winning payout.
func newSettlementEnv(t *testing.T) *settlementEnv {
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
	m.Yes.CirculatingSupply = 400
	m.Yes.RealSolReserves = 1_000
	m.No.CirculatingSupply = 100
	m.No.RealSolReserves = 500
	db.markets[m.ID] = m

	db.users[userKey("m1", "bob")] = domain.UserInfo{
		MarketID:      "m1",
		User:          "bob",
		YesBalance:    400,
		NoBalance:     100,
		IsInitialized: true,
	}

	env := &settlementEnv{
		db:       db,
		cache:    newFakeCache(),
		bus:      newFakeBus(),
		notifier: &fakeNotifier{},
		archiver: &fakeArchiver{},
	}
	env.svc = NewSettlementService(
		db.stores(), &memTx{db: db}, env.cache, &fakeLocks{}, env.bus,
		env.notifier, env.archiver, testLogger(),
	)
	return env
}

func TestResolveMarket(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()

	res, err := env.svc.Resolve(ctx, "m1", "alice", domain.SideYes, 400, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.SideYes, res.WinningSide)

	m := env.db.markets["m1"]
	assert.True(t, m.IsCompleted)
	require.NotNil(t, m.WinningSide)
	assert.Equal(t, domain.SideYes, *m.WinningSide)

	assert.Equal(t, []domain.EventKind{domain.EventResolution}, env.db.eventKinds("m1"))
	assert.Len(t, env.bus.published[ChannelResolution], 1)
	assert.Equal(t, []string{"market_resolved"}, env.notifier.events)
	assert.Equal(t, []string{"m1"}, env.archiver.archived)
}

func TestResolveRejectsNonAuthority(t *testing.T) {
	env := newSettlementEnv(t)

	_, err := env.svc.Resolve(context.Background(), "m1", "mallory", domain.SideYes, 400, 100)
	assert.ErrorIs(t, err, domain.ErrResolutionAuthority)
	assert.False(t, env.db.markets["m1"].IsCompleted)
	assert.Empty(t, env.notifier.events)
}

func TestRedeem(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()

	_, err := env.svc.Resolve(ctx, "m1", "alice", domain.SideYes, 400, 100)
	require.NoError(t, err)

	out, err := env.svc.Redeem(ctx, "m1", "bob")
	require.NoError(t, err)
	assert.Equal(t, uint64(400), out.Result.SolAmount)
	assert.Len(t, out.Transfers, 1)

	u := env.db.users[userKey("m1", "bob")]
	assert.Zero(t, u.YesBalance)
	assert.Zero(t, u.NoBalance)

	m := env.db.markets["m1"]
	assert.Equal(t, uint64(600), m.Yes.RealSolReserves)
	assert.Zero(t, m.Yes.CirculatingSupply)
	assert.Zero(t, m.No.CirculatingSupply)

	kinds := env.db.eventKinds("m1")
	assert.Equal(t, []domain.EventKind{domain.EventResolution, domain.EventSettle}, kinds)
}

func TestRedeemIdempotent(t *testing.T) {
	env := newSettlementEnv(t)
	ctx := context.Background()

	_, err := env.svc.Resolve(ctx, "m1", "alice", domain.SideYes, 400, 100)
	require.NoError(t, err)

	_, err = env.svc.Redeem(ctx, "m1", "bob")
	require.NoError(t, err)

	out, err := env.svc.Redeem(ctx, "m1", "bob")
	require.NoError(t, err)
	assert.Zero(t, out.Result.SolAmount)
	assert.Empty(t, out.Transfers)

	// No second settle event for the repeat no-op.
	kinds := env.db.eventKinds("m1")
	assert.Equal(t, []domain.EventKind{domain.EventResolution, domain.EventSettle}, kinds)

	m := env.db.markets["m1"]
	assert.Equal(t, uint64(600), m.Yes.RealSolReserves)
}

func TestRedeemBeforeResolution(t *testing.T) {
	env := newSettlementEnv(t)

	_, err := env.svc.Redeem(context.Background(), "m1", "bob")
	assert.ErrorIs(t, err, domain.ErrMarketNotCompleted)
}
