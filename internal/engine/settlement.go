package engine

import (
	"time"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

// ResolveResult records a finalized outcome.
type ResolveResult struct {
	WinningSide domain.Side
	YesAmount   uint64
	NoAmount    uint64
}

// SettleResult describes one user's redemption. A repeat call for an
// already-settled user yields a zero-amount result, not an error.
type SettleResult struct {
	User        string
	Side        domain.Side
	TokenAmount uint64
	SolAmount   uint64
}

// Transfers returns the custody directive for the payout, if any.
func (r *SettleResult) Transfers() []domain.Transfer {
	if r.SolAmount == 0 {
		return nil
	}
	return []domain.Transfer{
		{From: "pool", To: "user", Asset: "sol", Amount: r.SolAmount},
	}
}

// Resolve finalizes the market outcome. Only the params authority may call
// it; the transition is one-way, and the declared per-side amounts must match
// the engine's recorded circulating supply exactly.
func Resolve(p domain.Params, m *domain.Market, caller string, winner domain.Side, yesAmount, noAmount uint64, now time.Time) (*ResolveResult, error) {
	if caller != p.Authority || p.Authority == "" {
		return nil, domain.ErrResolutionAuthority
	}
	if m.IsCompleted {
		return nil, domain.ErrMarketCompleted
	}
	if !winner.Valid() {
		return nil, domain.ErrResolutionSide
	}
	if yesAmount != m.Yes.CirculatingSupply {
		return nil, domain.ErrResolutionYesAmount
	}
	if noAmount != m.No.CirculatingSupply {
		return nil, domain.ErrResolutionNoAmount
	}

	m.IsCompleted = true
	w := winner
	m.WinningSide = &w
	m.UpdatedAt = now.UTC()

	return &ResolveResult{WinningSide: winner, YesAmount: yesAmount, NoAmount: noAmount}, nil
}

// Settle redeems one user's position after resolution: winning-side tokens
// pay out 1:1 against the winning curve's sol reserves with no further fee;
// losing-side tokens are zeroed with no payout. Both balances end at zero, so
// a second call is a no-op — retries are tolerated, never double-paid.
func Settle(m *domain.Market, u *domain.UserInfo, now time.Time) (*SettleResult, error) {
	if !m.IsCompleted || m.WinningSide == nil {
		return nil, domain.ErrMarketNotCompleted
	}
	winner := *m.WinningSide

	payout := *u.Balance(winner)
	c := m.Curve(winner)
	if payout > c.RealSolReserves {
		return nil, domain.ErrInsufficientSol
	}
	circ, err := CheckedSub(c.CirculatingSupply, payout)
	if err != nil {
		return nil, err
	}
	loser := m.Curve(winner.Opposite())
	loserCirc, err := CheckedSub(loser.CirculatingSupply, *u.Balance(winner.Opposite()))
	if err != nil {
		return nil, err
	}

	c.RealSolReserves -= payout
	c.CirculatingSupply = circ
	loser.CirculatingSupply = loserCirc

	result := &SettleResult{
		User:        u.User,
		Side:        winner,
		TokenAmount: *u.Balance(winner),
		SolAmount:   payout,
	}

	u.YesBalance = 0
	u.NoBalance = 0
	u.UpdatedAt = now.UTC()
	m.UpdatedAt = now.UTC()

	return result, nil
}
