package domain

import (
	"fmt"
	"time"
)

// Side selects one of the two outcome curves of a market.
type Side uint8

const (
	SideYes Side = 0
	SideNo  Side = 1
)

// String returns the lowercase name of the side.
func (s Side) String() string {
	switch s {
	case SideYes:
		return "yes"
	case SideNo:
		return "no"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// Valid reports whether s names an actual outcome side.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// Opposite returns the other outcome side.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// ParseSide converts a lowercase side name to a Side.
func ParseSide(v string) (Side, error) {
	switch v {
	case "yes":
		return SideYes, nil
	case "no":
		return SideNo, nil
	default:
		return 0, fmt.Errorf("unknown side %q: %w", v, ErrInvalidParameter)
	}
}

// Direction selects between the buy and sell leg of a swap.
type Direction uint8

const (
	DirectionBuy  Direction = 0
	DirectionSell Direction = 1
)

// String returns the lowercase name of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionBuy:
		return "buy"
	case DirectionSell:
		return "sell"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// ParseDirection converts a lowercase direction name to a Direction.
func ParseDirection(v string) (Direction, error) {
	switch v {
	case "buy":
		return DirectionBuy, nil
	case "sell":
		return DirectionSell, nil
	default:
		return 0, fmt.Errorf("unknown direction %q: %w", v, ErrInvalidParameter)
	}
}

// Curve holds the reserve state of one outcome side. The two curves of a
// market never interact: base currency paid into one side never moves the
// other side's price.
type Curve struct {
	// InitialTokenReserves is the token baseline fixed at creation.
	InitialTokenReserves uint64 `json:"initial_token_reserves"`
	// RealTokenReserves is the tradable token amount currently held by the pool.
	RealTokenReserves uint64 `json:"real_token_reserves"`
	// RealSolReserves is the base currency currently held by the pool,
	// including accrued LP fees.
	RealSolReserves uint64 `json:"real_sol_reserves"`
	// TokenTotalSupply is the amount minted once at creation; constant.
	TokenTotalSupply uint64 `json:"token_total_supply"`
	// CirculatingSupply is the token amount currently held by users: grown by
	// buys, shrunk by sells and settlement redemptions. Resolution amounts
	// are checked against it.
	CirculatingSupply uint64 `json:"circulating_supply"`
}

// LpInfo records a liquidity provider's base-currency contribution.
// Membership in Market.LPs establishes the pro-rata claim at withdrawal time.
type LpInfo struct {
	User      string `json:"user"`
	SolAmount uint64 `json:"sol_amount"`
}

// Market is one dual-outcome market: two independent constant-product curves
// sharing administrative metadata and a liquidity ledger. Once IsCompleted is
// true the curves are frozen; only settlement payouts mutate reserves.
type Market struct {
	ID       string `json:"id"`
	YesMint  string `json:"yes_mint"`
	NoMint   string `json:"no_mint"`
	Creator  string `json:"creator"`
	Question string `json:"question"`

	Yes Curve `json:"yes"`
	No  Curve `json:"no"`

	IsCompleted bool  `json:"is_completed"`
	WinningSide *Side `json:"winning_side,omitempty"`

	// StartSlot and EndingSlot bound the trading window when set.
	StartSlot   *uint64 `json:"start_slot,omitempty"`
	EndingSlot  *uint64 `json:"ending_slot,omitempty"`
	CreatedSlot uint64  `json:"created_slot"`

	LPs           []LpInfo `json:"lps"`
	TotalLPAmount uint64   `json:"total_lp_amount"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Curve returns a pointer to the reserve state of the given side.
func (m *Market) Curve(side Side) *Curve {
	if side == SideYes {
		return &m.Yes
	}
	return &m.No
}

// LP returns the liquidity entry for user, or nil when the user has no
// position.
func (m *Market) LP(user string) *LpInfo {
	for i := range m.LPs {
		if m.LPs[i].User == user {
			return &m.LPs[i]
		}
	}
	return nil
}

// UserInfo tracks a user's running outcome-token balances inside one market,
// independent of the underlying token ledger. Created lazily on first
// interaction; never deleted.
type UserInfo struct {
	MarketID      string    `json:"market_id"`
	User          string    `json:"user"`
	YesBalance    uint64    `json:"yes_balance"`
	NoBalance     uint64    `json:"no_balance"`
	IsLP          bool      `json:"is_lp"`
	IsInitialized bool      `json:"is_initialized"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Balance returns a pointer to the balance of the given side.
func (u *UserInfo) Balance(side Side) *uint64 {
	if side == SideYes {
		return &u.YesBalance
	}
	return &u.NoBalance
}
