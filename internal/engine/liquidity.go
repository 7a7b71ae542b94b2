package engine

import (
	"time"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

// AddLiquidityResult describes an applied liquidity contribution and how it
// was split across the two sides.
type AddLiquidityResult struct {
	User          string
	SolAmount     uint64
	YesSolAmount  uint64
	NoSolAmount   uint64
	TotalLPAmount uint64
}

// WithdrawLiquidityResult describes an applied withdrawal: base currency
// removed per side, and the pool tokens retired alongside it to hold each
// side's price constant.
type WithdrawLiquidityResult struct {
	User             string
	SolAmount        uint64
	YesSolAmount     uint64
	NoSolAmount      uint64
	YesTokensRetired uint64
	NoTokensRetired  uint64
	TotalLPAmount    uint64
}

// AddLiquidity contributes base currency to both curves, split proportionally
// to each side's existing sol reserves (equally when both sides are at
// genesis), and records the contribution in the market's LP ledger.
func AddLiquidity(m *domain.Market, u *domain.UserInfo, user string, amount uint64, now time.Time) (*AddLiquidityResult, error) {
	if amount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	if m.IsCompleted {
		return nil, domain.ErrMarketCompleted
	}

	total, err := CheckedAdd(m.Yes.RealSolReserves, m.No.RealSolReserves)
	if err != nil {
		return nil, err
	}

	var yesCut uint64
	if total == 0 {
		yesCut = amount / 2
	} else {
		yesCut, err = MulDiv(amount, m.Yes.RealSolReserves, total)
		if err != nil {
			return nil, err
		}
	}
	noCut := amount - yesCut

	newYes, err := CheckedAdd(m.Yes.RealSolReserves, yesCut)
	if err != nil {
		return nil, err
	}
	newNo, err := CheckedAdd(m.No.RealSolReserves, noCut)
	if err != nil {
		return nil, err
	}
	newTotal, err := CheckedAdd(m.TotalLPAmount, amount)
	if err != nil {
		return nil, err
	}

	m.Yes.RealSolReserves = newYes
	m.No.RealSolReserves = newNo
	m.TotalLPAmount = newTotal

	if lp := m.LP(user); lp != nil {
		lp.SolAmount += amount
	} else {
		m.LPs = append(m.LPs, domain.LpInfo{User: user, SolAmount: amount})
	}
	u.IsLP = true
	u.UpdatedAt = now.UTC()
	m.UpdatedAt = now.UTC()

	return &AddLiquidityResult{
		User:          user,
		SolAmount:     amount,
		YesSolAmount:  yesCut,
		NoSolAmount:   noCut,
		TotalLPAmount: m.TotalLPAmount,
	}, nil
}

// WithdrawLiquidity returns base currency against the caller's pool share.
// The share is fixed at contribution time (lp.SolAmount over TotalLPAmount)
// but it is valued against the pool's current sol reserves, so LP fees
// credited into the reserves since the contribution are captured here. Base
// currency comes out of each side pro rata to that side's sol reserves, and
// pool tokens are retired in proportion so each side's
// tokenReserves/effectiveSol ratio (its price) survives the withdrawal; only
// absolute depth shrinks.
func WithdrawLiquidity(p domain.Params, m *domain.Market, u *domain.UserInfo, user string, amount uint64, now time.Time) (*WithdrawLiquidityResult, error) {
	lp := m.LP(user)
	if lp == nil {
		return nil, domain.ErrWithdrawNotLP
	}
	if amount == 0 {
		return nil, domain.ErrInvalidAmount
	}

	total, err := CheckedAdd(m.Yes.RealSolReserves, m.No.RealSolReserves)
	if err != nil {
		return nil, err
	}
	entitlement, err := MulDiv(lp.SolAmount, total, m.TotalLPAmount)
	if err != nil {
		return nil, err
	}
	if amount > entitlement {
		return nil, domain.ErrWithdrawAmount
	}

	yesCut, err := MulDiv(amount, m.Yes.RealSolReserves, total)
	if err != nil {
		return nil, err
	}
	noCut := amount - yesCut
	if noCut > m.No.RealSolReserves {
		// Rounding pushed the remainder past the NO side; rebalance.
		yesCut += noCut - m.No.RealSolReserves
		noCut = m.No.RealSolReserves
	}

	yesRetired, err := sideTokenCut(p, &m.Yes, yesCut)
	if err != nil {
		return nil, err
	}
	noRetired, err := sideTokenCut(p, &m.No, noCut)
	if err != nil {
		return nil, err
	}

	// Retire ledger units pro rata to the sol leaving the pool, rounding up so
	// a share can never be withdrawn against twice.
	burned, err := MulDivCeil(amount, m.TotalLPAmount, total)
	if err != nil {
		return nil, err
	}
	if burned > lp.SolAmount {
		burned = lp.SolAmount
	}

	m.Yes.RealSolReserves -= yesCut
	m.Yes.RealTokenReserves -= yesRetired
	m.No.RealSolReserves -= noCut
	m.No.RealTokenReserves -= noRetired

	lp.SolAmount -= burned
	m.TotalLPAmount -= burned
	if lp.SolAmount == 0 {
		m.LPs = removeLP(m.LPs, user)
		u.IsLP = false
	}
	u.UpdatedAt = now.UTC()
	m.UpdatedAt = now.UTC()

	return &WithdrawLiquidityResult{
		User:             user,
		SolAmount:        amount,
		YesSolAmount:     yesCut,
		NoSolAmount:      noCut,
		YesTokensRetired: yesRetired,
		NoTokensRetired:  noRetired,
		TotalLPAmount:    m.TotalLPAmount,
	}, nil
}

// sideTokenCut computes the pool tokens to retire when solCut leaves one
// side, keeping tokenReserves/effectiveSol constant.
func sideTokenCut(p domain.Params, c *domain.Curve, solCut uint64) (uint64, error) {
	if solCut == 0 {
		return 0, nil
	}
	effSol, err := CheckedAdd(p.MinSolLiquidity, c.RealSolReserves)
	if err != nil {
		return 0, err
	}
	cut, err := MulDiv(c.RealTokenReserves, solCut, effSol)
	if err != nil {
		return 0, err
	}
	if cut > c.RealTokenReserves {
		return 0, domain.ErrOverflow
	}
	return cut, nil
}

func removeLP(lps []domain.LpInfo, user string) []domain.LpInfo {
	out := lps[:0]
	for _, lp := range lps {
		if lp.User != user {
			out = append(out, lp)
		}
	}
	return out
}
