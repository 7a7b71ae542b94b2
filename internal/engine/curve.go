package engine

import (
	"time"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

// BuyResult describes an applied buy: gross base currency in, outcome tokens
// out, and the fee split. Completed is set when the trade drained the side's
// token reserves and froze the curve.
type BuyResult struct {
	Side        domain.Side
	SolAmount   uint64 // gross input
	TokenAmount uint64 // tokens out to the user
	NetSol      uint64 // input net of all fees, credited to the curve
	PlatformFee uint64 // owed to the team wallet
	LPFee       uint64 // accrued into the pool's sol reserves

	NewSolReserves   uint64
	NewTokenReserves uint64
	Completed        bool
}

// Transfers returns the custody directives for the applied buy.
func (r *BuyResult) Transfers() []domain.Transfer {
	out := []domain.Transfer{
		{From: "user", To: "pool", Asset: "sol", Amount: r.NetSol + r.LPFee},
		{From: "pool", To: "user", Asset: r.Side.String(), Amount: r.TokenAmount},
	}
	if r.PlatformFee > 0 {
		out = append(out, domain.Transfer{From: "user", To: "team", Asset: "sol", Amount: r.PlatformFee})
	}
	return out
}

// SellResult describes an applied sell: outcome tokens in, base currency out
// net of fees.
type SellResult struct {
	Side        domain.Side
	TokenAmount uint64 // tokens in from the user
	SolAmount   uint64 // net payout to the user
	GrossSol    uint64 // curve-side value before fees
	PlatformFee uint64
	LPFee       uint64

	NewSolReserves   uint64
	NewTokenReserves uint64
}

// Transfers returns the custody directives for the applied sell.
func (r *SellResult) Transfers() []domain.Transfer {
	out := []domain.Transfer{
		{From: "user", To: "pool", Asset: r.Side.String(), Amount: r.TokenAmount},
		{From: "pool", To: "user", Asset: "sol", Amount: r.SolAmount},
	}
	if r.PlatformFee > 0 {
		out = append(out, domain.Transfer{From: "pool", To: "team", Asset: "sol", Amount: r.PlatformFee})
	}
	return out
}

// Buy spends gross base currency on one side's curve and credits the user
// with outcome tokens. Fees are taken from the gross input: the platform
// portion is owed to the team wallet, the LP portion is credited into the
// pool's sol reserves so LPs capture it on withdrawal. Integer floor division
// on the invariant means rounding always favors the pool.
func Buy(p domain.Params, m *domain.Market, u *domain.UserInfo, side domain.Side, amount, minReceive, currentSlot uint64, now time.Time) (*BuyResult, error) {
	if !side.Valid() {
		return nil, domain.ErrInvalidParameter
	}
	if amount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	if err := checkTradable(m, currentSlot); err != nil {
		return nil, err
	}

	c := m.Curve(side)
	if c.RealTokenReserves == 0 {
		return nil, domain.ErrCurveComplete
	}

	lpFee, err := BpsMul(p.LPBuyFeeBps, amount)
	if err != nil {
		return nil, err
	}
	platformFee, err := BpsMul(p.PlatformBuyFeeBps, amount)
	if err != nil {
		return nil, err
	}
	totalFee, err := CheckedAdd(lpFee, platformFee)
	if err != nil {
		return nil, err
	}
	netIn, err := CheckedSub(amount, totalFee)
	if err != nil {
		return nil, err
	}
	if netIn == 0 {
		return nil, domain.ErrInvalidAmount
	}

	effSol, err := CheckedAdd(p.MinSolLiquidity, c.RealSolReserves)
	if err != nil {
		return nil, err
	}
	effToken := c.RealTokenReserves

	newEffSol, err := CheckedAdd(effSol, netIn)
	if err != nil {
		return nil, err
	}
	// newEffToken = floor(k / newEffSol); the pool never returns more tokens
	// than the invariant allows.
	newEffToken, err := curveQuotient(effSol, effToken, newEffSol)
	if err != nil {
		return nil, err
	}
	tokenOut, err := CheckedSub(effToken, newEffToken)
	if err != nil {
		return nil, err
	}
	if tokenOut > c.RealTokenReserves {
		return nil, domain.ErrInsufficientTokens
	}
	if tokenOut < minReceive {
		return nil, domain.ErrReturnTooSmall
	}

	solCredit, err := CheckedAdd(netIn, lpFee)
	if err != nil {
		return nil, err
	}
	newSol, err := CheckedAdd(c.RealSolReserves, solCredit)
	if err != nil {
		return nil, err
	}
	newBalance, err := CheckedAdd(*u.Balance(side), tokenOut)
	if err != nil {
		return nil, err
	}
	newCirculating, err := CheckedAdd(c.CirculatingSupply, tokenOut)
	if err != nil {
		return nil, err
	}

	// All checks passed; apply atomically.
	c.RealSolReserves = newSol
	c.RealTokenReserves -= tokenOut
	c.CirculatingSupply = newCirculating
	*u.Balance(side) = newBalance
	u.UpdatedAt = now.UTC()
	m.UpdatedAt = now.UTC()

	return &BuyResult{
		Side:             side,
		SolAmount:        amount,
		TokenAmount:      tokenOut,
		NetSol:           netIn,
		PlatformFee:      platformFee,
		LPFee:            lpFee,
		NewSolReserves:   c.RealSolReserves,
		NewTokenReserves: c.RealTokenReserves,
		Completed:        c.RealTokenReserves == 0,
	}, nil
}

// Sell returns outcome tokens to one side's curve for base currency. Fees are
// applied to the output leg; ceiling division on the invariant keeps rounding
// in the pool's favor.
func Sell(p domain.Params, m *domain.Market, u *domain.UserInfo, side domain.Side, tokenAmount, minReceive, currentSlot uint64, now time.Time) (*SellResult, error) {
	if !side.Valid() {
		return nil, domain.ErrInvalidParameter
	}
	if tokenAmount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	if err := checkTradable(m, currentSlot); err != nil {
		return nil, err
	}
	if *u.Balance(side) < tokenAmount {
		return nil, domain.ErrInsufficientTokens
	}

	c := m.Curve(side)
	effSol, err := CheckedAdd(p.MinSolLiquidity, c.RealSolReserves)
	if err != nil {
		return nil, err
	}
	effToken := c.RealTokenReserves

	newEffToken, err := CheckedAdd(effToken, tokenAmount)
	if err != nil {
		return nil, err
	}
	newEffSol, err := curveQuotientCeil(effSol, effToken, newEffToken)
	if err != nil {
		return nil, err
	}
	grossOut, err := CheckedSub(effSol, newEffSol)
	if err != nil {
		return nil, err
	}
	if grossOut > c.RealSolReserves {
		return nil, domain.ErrInsufficientSol
	}

	lpFee, err := BpsMul(p.LPSellFeeBps, grossOut)
	if err != nil {
		return nil, err
	}
	platformFee, err := BpsMul(p.PlatformSellFeeBps, grossOut)
	if err != nil {
		return nil, err
	}
	totalFee, err := CheckedAdd(lpFee, platformFee)
	if err != nil {
		return nil, err
	}
	netOut, err := CheckedSub(grossOut, totalFee)
	if err != nil {
		return nil, err
	}
	if netOut < minReceive {
		return nil, domain.ErrInsufficientSol
	}

	newCirculating, err := CheckedSub(c.CirculatingSupply, tokenAmount)
	if err != nil {
		return nil, err
	}

	// All checks passed; apply atomically. The LP fee stays in the pool.
	c.RealSolReserves = c.RealSolReserves - grossOut + lpFee
	c.RealTokenReserves = newEffToken
	c.CirculatingSupply = newCirculating
	*u.Balance(side) -= tokenAmount
	u.UpdatedAt = now.UTC()
	m.UpdatedAt = now.UTC()

	return &SellResult{
		Side:             side,
		TokenAmount:      tokenAmount,
		SolAmount:        netOut,
		GrossSol:         grossOut,
		PlatformFee:      platformFee,
		LPFee:            lpFee,
		NewSolReserves:   c.RealSolReserves,
		NewTokenReserves: c.RealTokenReserves,
	}, nil
}
