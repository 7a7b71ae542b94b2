package engine

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

func testMarket(t *testing.T, p domain.Params) *domain.Market {
	t.Helper()
	m, err := NewMarket(p, testSeed(), 100, time.Now())
	require.NoError(t, err)
	return &m
}

func testUser(marketID string) *domain.UserInfo {
	u := &domain.UserInfo{}
	EnsureUserInfo(u, marketID, "bob", time.Now())
	return u
}

// effProduct returns effectiveSol * tokenReserves for one side, the quantity
// trades must never shrink.
func effProduct(p domain.Params, c *domain.Curve) *big.Int {
	sol := new(big.Int).SetUint64(p.MinSolLiquidity + c.RealSolReserves)
	tok := new(big.Int).SetUint64(c.RealTokenReserves)
	return sol.Mul(sol, tok)
}

func TestBuyFirstTrade(t *testing.T) {
	p := testParams()
	m := testMarket(t, p)
	u := testUser(m.ID)

	res, err := Buy(p, m, u, domain.SideYes, 1_000_000, 0, 100, time.Now())
	require.NoError(t, err)

	// 1% platform + 1% LP off the gross input.
	assert.Equal(t, uint64(10_000), res.PlatformFee)
	assert.Equal(t, uint64(10_000), res.LPFee)
	assert.Equal(t, uint64(980_000), res.NetSol)

	// k = 30_000_000 * 1e12; new effective sol = 30_980_000;
	// tokens out = 1e12 - floor(k / 30_980_000).
	assert.Equal(t, uint64(31_633_311_815), res.TokenAmount)
	assert.Equal(t, uint64(990_000), res.NewSolReserves, "net input plus LP fee stays in the pool")
	assert.Equal(t, uint64(1_000_000_000_000-31_633_311_815), res.NewTokenReserves)
	assert.False(t, res.Completed)

	assert.Equal(t, res.TokenAmount, u.YesBalance)
	assert.Zero(t, u.NoBalance)
	assert.Equal(t, res.TokenAmount, m.Yes.CirculatingSupply)

	// The NO side is untouched.
	assert.Zero(t, m.No.RealSolReserves)
	assert.Equal(t, p.InitialTokenReserves, m.No.RealTokenReserves)
}

func TestBuyPriceRises(t *testing.T) {
	p := testParams()
	m := testMarket(t, p)
	u := testUser(m.ID)

	first, err := Buy(p, m, u, domain.SideYes, 1_000_000, 0, 100, time.Now())
	require.NoError(t, err)
	second, err := Buy(p, m, u, domain.SideYes, 1_000_000, 0, 100, time.Now())
	require.NoError(t, err)

	assert.Less(t, second.TokenAmount, first.TokenAmount,
		"identical spend must yield strictly fewer tokens as the curve moves")
}

func TestBuySidesIndependent(t *testing.T) {
	p := testParams()
	m := testMarket(t, p)
	u := testUser(m.ID)

	yes, err := Buy(p, m, u, domain.SideYes, 5_000_000, 0, 100, time.Now())
	require.NoError(t, err)
	no, err := Buy(p, m, u, domain.SideNo, 5_000_000, 0, 100, time.Now())
	require.NoError(t, err)

	// Both sides start at genesis, so the same spend prices identically.
	assert.Equal(t, yes.TokenAmount, no.TokenAmount)
	assert.Equal(t, u.YesBalance, u.NoBalance)
}

func TestBuyValidation(t *testing.T) {
	p := testParams()
	now := time.Now()

	t.Run("zero amount", func(t *testing.T) {
		m := testMarket(t, p)
		_, err := Buy(p, m, testUser(m.ID), domain.SideYes, 0, 0, 100, now)
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("invalid side", func(t *testing.T) {
		m := testMarket(t, p)
		_, err := Buy(p, m, testUser(m.ID), domain.Side(2), 1_000, 0, 100, now)
		require.ErrorIs(t, err, domain.ErrInvalidParameter)
	})

	t.Run("amount consumed by fees", func(t *testing.T) {
		m := testMarket(t, p)
		// 2% total fees on 50 leave 50 net; on 1 they floor to 0 fees, so use
		// a full-fee params to reach the zero-net case.
		pf := p
		pf.PlatformBuyFeeBps = 5_000
		pf.LPBuyFeeBps = 5_000
		_, err := Buy(pf, m, testUser(m.ID), domain.SideYes, 10, 0, 100, now)
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("completed market", func(t *testing.T) {
		m := testMarket(t, p)
		m.IsCompleted = true
		_, err := Buy(p, m, testUser(m.ID), domain.SideYes, 1_000, 0, 100, now)
		require.ErrorIs(t, err, domain.ErrCurveComplete)
	})

	t.Run("fee sum overflow", func(t *testing.T) {
		// Both fees at the maximum valid 10_000 bps: each fee equals the full
		// amount, so their sum must overflow-check rather than wrap to zero and
		// let a 200%-fee buy through with the gross amount as net input.
		pf := p
		pf.PlatformBuyFeeBps = 10_000
		pf.LPBuyFeeBps = 10_000
		m := testMarket(t, pf)
		u := testUser(m.ID)
		_, err := Buy(pf, m, u, domain.SideYes, 1<<63, 0, 100, now)
		require.ErrorIs(t, err, domain.ErrOverflow)
		assert.Zero(t, u.YesBalance)
		assert.Zero(t, m.Yes.RealSolReserves)
		assert.Equal(t, pf.InitialTokenReserves, m.Yes.RealTokenReserves)
	})

	t.Run("before start slot", func(t *testing.T) {
		m := testMarket(t, p)
		m.StartSlot = u64(200)
		_, err := Buy(p, m, testUser(m.ID), domain.SideYes, 1_000, 0, 150, now)
		require.ErrorIs(t, err, domain.ErrLaunchPhase)
	})

	t.Run("after ending slot", func(t *testing.T) {
		m := testMarket(t, p)
		m.EndingSlot = u64(200)
		_, err := Buy(p, m, testUser(m.ID), domain.SideYes, 1_000, 0, 200, now)
		require.ErrorIs(t, err, domain.ErrEndTimeElapsed)
	})

	t.Run("drained curve", func(t *testing.T) {
		m := testMarket(t, p)
		m.Yes.RealTokenReserves = 0
		_, err := Buy(p, m, testUser(m.ID), domain.SideYes, 1_000, 0, 100, now)
		require.ErrorIs(t, err, domain.ErrCurveComplete)
	})

	t.Run("slippage bound", func(t *testing.T) {
		m := testMarket(t, p)
		u := testUser(m.ID)
		_, err := Buy(p, m, u, domain.SideYes, 1_000_000, 40_000_000_000, 100, now)
		require.ErrorIs(t, err, domain.ErrReturnTooSmall)
		// A failed trade changes nothing.
		assert.Zero(t, u.YesBalance)
		assert.Zero(t, m.Yes.RealSolReserves)
		assert.Equal(t, p.InitialTokenReserves, m.Yes.RealTokenReserves)
	})
}

func TestSellRoundTripNeverProfits(t *testing.T) {
	now := time.Now()

	t.Run("zero fees", func(t *testing.T) {
		p := testParams()
		p.PlatformBuyFeeBps, p.PlatformSellFeeBps = 0, 0
		p.LPBuyFeeBps, p.LPSellFeeBps = 0, 0
		m := testMarket(t, p)
		u := testUser(m.ID)

		buy, err := Buy(p, m, u, domain.SideYes, 1_000_000, 0, 100, now)
		require.NoError(t, err)
		sell, err := Sell(p, m, u, domain.SideYes, buy.TokenAmount, 0, 100, now)
		require.NoError(t, err)

		assert.LessOrEqual(t, sell.SolAmount, buy.SolAmount)
		assert.Zero(t, u.YesBalance)
		assert.Zero(t, m.Yes.CirculatingSupply)
	})

	t.Run("with fees", func(t *testing.T) {
		p := testParams()
		m := testMarket(t, p)
		u := testUser(m.ID)

		buy, err := Buy(p, m, u, domain.SideYes, 1_000_000, 0, 100, now)
		require.NoError(t, err)
		sell, err := Sell(p, m, u, domain.SideYes, buy.TokenAmount, 0, 100, now)
		require.NoError(t, err)

		assert.Less(t, sell.SolAmount, buy.SolAmount,
			"fees on both legs must make the round trip strictly lossy")
	})
}

func TestSellFeeSplit(t *testing.T) {
	p := testParams()
	m := testMarket(t, p)
	u := testUser(m.ID)
	now := time.Now()

	buy, err := Buy(p, m, u, domain.SideYes, 1_000_000, 0, 100, now)
	require.NoError(t, err)

	solBefore := m.Yes.RealSolReserves
	sell, err := Sell(p, m, u, domain.SideYes, buy.TokenAmount/2, 0, 100, now)
	require.NoError(t, err)

	// Fees come off the gross output leg.
	assert.Equal(t, sell.GrossSol-sell.PlatformFee-sell.LPFee, sell.SolAmount)
	// The LP fee never leaves the pool.
	assert.Equal(t, solBefore-sell.GrossSol+sell.LPFee, m.Yes.RealSolReserves)
}

func TestSellValidation(t *testing.T) {
	p := testParams()
	now := time.Now()

	t.Run("zero amount", func(t *testing.T) {
		m := testMarket(t, p)
		_, err := Sell(p, m, testUser(m.ID), domain.SideYes, 0, 0, 100, now)
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		m := testMarket(t, p)
		u := testUser(m.ID)
		u.YesBalance = 10
		_, err := Sell(p, m, u, domain.SideYes, 11, 0, 100, now)
		require.ErrorIs(t, err, domain.ErrInsufficientTokens)
	})

	t.Run("completed market", func(t *testing.T) {
		m := testMarket(t, p)
		u := testUser(m.ID)
		u.YesBalance = 10
		m.IsCompleted = true
		_, err := Sell(p, m, u, domain.SideYes, 10, 0, 100, now)
		require.ErrorIs(t, err, domain.ErrCurveComplete)
	})

	t.Run("slippage bound", func(t *testing.T) {
		m := testMarket(t, p)
		u := testUser(m.ID)
		buy, err := Buy(p, m, u, domain.SideYes, 1_000_000, 0, 100, now)
		require.NoError(t, err)
		_, err = Sell(p, m, u, domain.SideYes, buy.TokenAmount, 2_000_000, 100, now)
		require.ErrorIs(t, err, domain.ErrInsufficientSol)
	})
}

func TestTradeInvariantNeverShrinks(t *testing.T) {
	p := testParams()
	m := testMarket(t, p)
	u := testUser(m.ID)
	now := time.Now()

	before := effProduct(p, &m.Yes)

	amounts := []uint64{1_000_000, 37, 250_000, 9_999_999, 1_000}
	for _, amt := range amounts {
		_, err := Buy(p, m, u, domain.SideYes, amt, 0, 100, now)
		require.NoError(t, err)
		after := effProduct(p, &m.Yes)
		assert.GreaterOrEqual(t, after.Cmp(before), 0, "buy of %d shrank the invariant", amt)
		before = after
	}

	for u.YesBalance > 0 {
		chunk := u.YesBalance/3 + 1
		if chunk > u.YesBalance {
			chunk = u.YesBalance
		}
		_, err := Sell(p, m, u, domain.SideYes, chunk, 0, 100, now)
		require.NoError(t, err)
		after := effProduct(p, &m.Yes)
		assert.GreaterOrEqual(t, after.Cmp(before), 0, "sell of %d shrank the invariant", chunk)
		before = after
	}
}

func TestBuyTransfers(t *testing.T) {
	p := testParams()
	m := testMarket(t, p)
	u := testUser(m.ID)

	res, err := Buy(p, m, u, domain.SideYes, 1_000_000, 0, 100, time.Now())
	require.NoError(t, err)

	transfers := res.Transfers()
	require.Len(t, transfers, 3)
	assert.Equal(t, domain.Transfer{From: "user", To: "pool", Asset: "sol", Amount: 990_000}, transfers[0])
	assert.Equal(t, domain.Transfer{From: "pool", To: "user", Asset: "yes", Amount: res.TokenAmount}, transfers[1])
	assert.Equal(t, domain.Transfer{From: "user", To: "team", Asset: "sol", Amount: 10_000}, transfers[2])
}
