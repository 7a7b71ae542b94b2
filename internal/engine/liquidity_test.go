package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

func TestAddLiquidityGenesisSplit(t *testing.T) {
	p := testParams()
	m := testMarket(t, p)
	u := testUser(m.ID)

	res, err := AddLiquidity(m, u, "bob", 1_000_000, time.Now())
	require.NoError(t, err)

	// Both sides at genesis: even split.
	assert.Equal(t, uint64(500_000), res.YesSolAmount)
	assert.Equal(t, uint64(500_000), res.NoSolAmount)
	assert.Equal(t, uint64(500_000), m.Yes.RealSolReserves)
	assert.Equal(t, uint64(500_000), m.No.RealSolReserves)
	assert.Equal(t, uint64(1_000_000), m.TotalLPAmount)

	require.NotNil(t, m.LP("bob"))
	assert.Equal(t, uint64(1_000_000), m.LP("bob").SolAmount)
	assert.True(t, u.IsLP)

	// Liquidity moves no tokens and mints nothing.
	assert.Equal(t, p.InitialTokenReserves, m.Yes.RealTokenReserves)
	assert.Zero(t, m.Yes.CirculatingSupply)
	assert.Zero(t, u.YesBalance)
}

func TestAddLiquidityProportionalSplit(t *testing.T) {
	p := testParams()
	m := testMarket(t, p)
	u := testUser(m.ID)
	now := time.Now()

	// Skew the YES side first so the split is no longer even.
	_, err := Buy(p, m, u, domain.SideYes, 1_000_000, 0, 100, now)
	require.NoError(t, err)
	yesBefore := m.Yes.RealSolReserves
	require.NotZero(t, yesBefore)
	require.Zero(t, m.No.RealSolReserves)

	res, err := AddLiquidity(m, u, "bob", 600_000, now)
	require.NoError(t, err)

	// All sol sits on the YES side, so the whole contribution lands there.
	assert.Equal(t, uint64(600_000), res.YesSolAmount)
	assert.Zero(t, res.NoSolAmount)
	assert.Equal(t, yesBefore+600_000, m.Yes.RealSolReserves)
}

func TestAddLiquidityAccumulates(t *testing.T) {
	p := testParams()
	m := testMarket(t, p)
	u := testUser(m.ID)
	now := time.Now()

	_, err := AddLiquidity(m, u, "bob", 300, now)
	require.NoError(t, err)
	_, err = AddLiquidity(m, u, "bob", 200, now)
	require.NoError(t, err)

	require.Len(t, m.LPs, 1)
	assert.Equal(t, uint64(500), m.LP("bob").SolAmount)
	assert.Equal(t, uint64(500), m.TotalLPAmount)
}

func TestAddLiquidityValidation(t *testing.T) {
	p := testParams()
	now := time.Now()

	t.Run("zero amount", func(t *testing.T) {
		m := testMarket(t, p)
		_, err := AddLiquidity(m, testUser(m.ID), "bob", 0, now)
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("completed market", func(t *testing.T) {
		m := testMarket(t, p)
		m.IsCompleted = true
		_, err := AddLiquidity(m, testUser(m.ID), "bob", 100, now)
		require.ErrorIs(t, err, domain.ErrMarketCompleted)
	})
}

func TestWithdrawLiquidity(t *testing.T) {
	p := testParams()
	m := testMarket(t, p)
	u := testUser(m.ID)
	now := time.Now()

	_, err := AddLiquidity(m, u, "bob", 1_000_000, now)
	require.NoError(t, err)

	yesSolBefore := m.Yes.RealSolReserves
	yesTokBefore := m.Yes.RealTokenReserves

	res, err := WithdrawLiquidity(p, m, u, "bob", 400_000, now)
	require.NoError(t, err)

	assert.Equal(t, uint64(400_000), res.SolAmount)
	assert.Equal(t, res.SolAmount, res.YesSolAmount+res.NoSolAmount)
	assert.Equal(t, yesSolBefore-res.YesSolAmount, m.Yes.RealSolReserves)
	assert.Equal(t, yesTokBefore-res.YesTokensRetired, m.Yes.RealTokenReserves)

	// With reserves equal to contributions, ledger units burn one to one.
	assert.Equal(t, uint64(600_000), m.LP("bob").SolAmount)
	assert.Equal(t, uint64(600_000), m.TotalLPAmount)
	assert.True(t, u.IsLP)
}

func TestWithdrawLiquidityCapturesAccruedFees(t *testing.T) {
	p := testParams()
	m := testMarket(t, p)
	u := testUser(m.ID)
	now := time.Now()

	_, err := AddLiquidity(m, u, "bob", 1_000_000, now)
	require.NoError(t, err)

	buy, err := Buy(p, m, u, domain.SideYes, 1_000_000, 0, 100, now)
	require.NoError(t, err)
	require.NotZero(t, buy.LPFee)

	// The sole LP's share is valued against the grown reserves, so the cap now
	// exceeds the nominal contribution.
	total := m.Yes.RealSolReserves + m.No.RealSolReserves
	require.Greater(t, total, uint64(1_000_000))
	_, err = WithdrawLiquidity(p, m, u, "bob", total+1, now)
	require.ErrorIs(t, err, domain.ErrWithdrawAmount)

	res, err := WithdrawLiquidity(p, m, u, "bob", 1_000_000+buy.LPFee, now)
	require.NoError(t, err)
	assert.Equal(t, 1_000_000+buy.LPFee, res.SolAmount)

	// Ledger units burn pro rata to the sol leaving the pool, rounded up.
	burned, err := MulDivCeil(1_000_000+buy.LPFee, 1_000_000, total)
	require.NoError(t, err)
	assert.Equal(t, 1_000_000-burned, m.LP("bob").SolAmount)
	assert.Equal(t, 1_000_000-burned, m.TotalLPAmount)
}

func TestWithdrawLiquidityPreservesPrice(t *testing.T) {
	p := testParams()
	m := testMarket(t, p)
	u := testUser(m.ID)
	now := time.Now()

	_, err := Buy(p, m, u, domain.SideYes, 10_000_000, 0, 100, now)
	require.NoError(t, err)
	_, err = AddLiquidity(m, u, "bob", 2_000_000, now)
	require.NoError(t, err)

	effSol := p.MinSolLiquidity + m.Yes.RealSolReserves
	tokBefore := m.Yes.RealTokenReserves

	res, err := WithdrawLiquidity(p, m, u, "bob", 1_000_000, now)
	require.NoError(t, err)

	// Tokens retired in proportion to the sol share leaving the side, so the
	// marginal price tokenReserves/effectiveSol is unchanged up to rounding.
	want, err := MulDiv(tokBefore, res.YesSolAmount, effSol)
	require.NoError(t, err)
	assert.Equal(t, want, res.YesTokensRetired)
}

func TestWithdrawLiquidityFull(t *testing.T) {
	p := testParams()
	m := testMarket(t, p)
	u := testUser(m.ID)
	now := time.Now()

	_, err := AddLiquidity(m, u, "bob", 1_000, now)
	require.NoError(t, err)
	res, err := WithdrawLiquidity(p, m, u, "bob", 1_000, now)
	require.NoError(t, err)

	assert.Zero(t, res.TotalLPAmount)
	assert.Nil(t, m.LP("bob"))
	assert.False(t, u.IsLP)
	assert.Empty(t, m.LPs)
}

func TestWithdrawLiquidityValidation(t *testing.T) {
	p := testParams()
	now := time.Now()

	t.Run("not an LP", func(t *testing.T) {
		m := testMarket(t, p)
		_, err := WithdrawLiquidity(p, m, testUser(m.ID), "bob", 100, now)
		require.ErrorIs(t, err, domain.ErrWithdrawNotLP)
	})

	t.Run("zero amount", func(t *testing.T) {
		m := testMarket(t, p)
		u := testUser(m.ID)
		_, err := AddLiquidity(m, u, "bob", 1_000, now)
		require.NoError(t, err)
		_, err = WithdrawLiquidity(p, m, u, "bob", 0, now)
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("over entitlement", func(t *testing.T) {
		m := testMarket(t, p)
		u := testUser(m.ID)
		_, err := AddLiquidity(m, u, "bob", 1_000, now)
		require.NoError(t, err)
		_, err = WithdrawLiquidity(p, m, u, "bob", 1_001, now)
		require.ErrorIs(t, err, domain.ErrWithdrawAmount)
	})

	t.Run("another user's entitlement", func(t *testing.T) {
		m := testMarket(t, p)
		u := testUser(m.ID)
		_, err := AddLiquidity(m, u, "bob", 1_000, now)
		require.NoError(t, err)
		carol := testUser(m.ID)
		_, err = WithdrawLiquidity(p, m, carol, "carol", 1_000, now)
		require.ErrorIs(t, err, domain.ErrWithdrawNotLP)
	})
}

func TestLPFeesAccrueToPool(t *testing.T) {
	p := testParams()
	m := testMarket(t, p)
	u := testUser(m.ID)
	now := time.Now()

	_, err := AddLiquidity(m, u, "bob", 1_000_000, now)
	require.NoError(t, err)

	res, err := Buy(p, m, u, domain.SideYes, 1_000_000, 0, 100, now)
	require.NoError(t, err)
	require.NotZero(t, res.LPFee)

	// Pool sol grew by the LP contribution, the trade's net input, and the LP
	// fee; the platform fee never entered.
	total := m.Yes.RealSolReserves + m.No.RealSolReserves
	assert.Equal(t, 1_000_000+res.NetSol+res.LPFee, total)
}
