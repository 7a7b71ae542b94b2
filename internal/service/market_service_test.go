package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

func newMarketService(db *memDB, cache *fakeCache, bus *fakeBus) *MarketService {
	clock := NewSlotClock(time.Now().Add(-time.Hour), 400*time.Millisecond)
	return NewMarketService(db.stores(), &memTx{db: db}, cache, bus, clock, testLogger())
}

func TestCreateMarket(t *testing.T) {
	db := newMemDB()
	p := testServiceParams()
	db.params = &p
	cache := newFakeCache()
	bus := newFakeBus()
	svc := newMarketService(db, cache, bus)

	m, err := svc.CreateMarket(context.Background(), CreateMarketInput{
		Creator:  "alice",
		Question: "will the launch slip",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, m.ID)
	assert.NotEmpty(t, m.YesMint)
	assert.NotEmpty(t, m.NoMint)
	assert.NotEqual(t, m.YesMint, m.NoMint)
	assert.Equal(t, p.InitialTokenReserves, m.Yes.RealTokenReserves)
	assert.Equal(t, p.InitialTokenReserves, m.No.RealTokenReserves)
	assert.Positive(t, m.CreatedSlot)

	stored, ok := db.markets[m.ID]
	require.True(t, ok)
	assert.Equal(t, m.ID, stored.ID)

	assert.Equal(t, []domain.EventKind{domain.EventMarketCreate}, db.eventKinds(m.ID))
	assert.Len(t, bus.published[ChannelMarket], 1)
}

func TestCreateMarketWithoutParams(t *testing.T) {
	db := newMemDB()
	svc := newMarketService(db, newFakeCache(), newFakeBus())

	_, err := svc.CreateMarket(context.Background(), CreateMarketInput{
		Creator:  "alice",
		Question: "q",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, db.markets)
}

func TestGetMarketCacheAside(t *testing.T) {
	db := newMemDB()
	p := testServiceParams()
	db.params = &p
	cache := newFakeCache()
	svc := newMarketService(db, cache, newFakeBus())

	created, err := svc.CreateMarket(context.Background(), CreateMarketInput{
		Creator:  "alice",
		Question: "q",
	})
	require.NoError(t, err)

	// Miss populates the cache.
	got, err := svc.GetMarket(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	_, cached := cache.entries[created.ID]
	assert.True(t, cached)

	// Serve from cache even after the store forgets the market.
	delete(db.markets, created.ID)
	got, err = svc.GetMarket(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestGetMarketNotFound(t *testing.T) {
	svc := newMarketService(newMemDB(), newFakeCache(), newFakeBus())

	_, err := svc.GetMarket(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetUserInfoUninitialized(t *testing.T) {
	svc := newMarketService(newMemDB(), newFakeCache(), newFakeBus())

	u, err := svc.GetUserInfo(context.Background(), "m1", "bob")
	require.NoError(t, err)
	assert.Equal(t, "m1", u.MarketID)
	assert.Equal(t, "bob", u.User)
	assert.False(t, u.IsInitialized)
	assert.Zero(t, u.YesBalance)
	assert.Zero(t, u.NoBalance)
}
