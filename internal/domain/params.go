package domain

import "time"

// BpsDenominator is the basis-point scale: 10000 bps = 100%.
const BpsDenominator uint64 = 10_000

// Params is the global engine configuration: fee schedule, token shape, and
// curve seeding. It is a singleton, created once by the bootstrap authority
// and mutated only through the admin operations. Fee rates apply to gross
// trade value, never to net.
type Params struct {
	Authority string `json:"authority"`
	// PendingAuthority holds the nominee of a two-step ownership transfer;
	// the change takes effect only once the nominee accepts.
	PendingAuthority string `json:"pending_authority"`
	// TeamWallet receives the platform-fee portion of every trade.
	TeamWallet string `json:"team_wallet"`

	PlatformBuyFeeBps  uint64 `json:"platform_buy_fee_bps"`
	PlatformSellFeeBps uint64 `json:"platform_sell_fee_bps"`
	LPBuyFeeBps        uint64 `json:"lp_buy_fee_bps"`
	LPSellFeeBps       uint64 `json:"lp_sell_fee_bps"`

	// TokenSupply is minted once per side at market creation; must be an
	// exact multiple of 10^TokenDecimals.
	TokenSupply   uint64 `json:"token_supply"`
	TokenDecimals uint8  `json:"token_decimals"`

	// InitialTokenReserves seeds each side's curve at market creation.
	InitialTokenReserves uint64 `json:"initial_token_reserves"`

	// MinSolLiquidity is the virtual base-currency depth added beneath every
	// curve so price is finite even at zero real reserves.
	MinSolLiquidity uint64 `json:"min_sol_liquidity"`

	Initialized bool      `json:"initialized"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BuyFeeBps returns the combined platform + LP fee rate for the buy leg.
func (p Params) BuyFeeBps() uint64 {
	return p.PlatformBuyFeeBps + p.LPBuyFeeBps
}

// SellFeeBps returns the combined platform + LP fee rate for the sell leg.
func (p Params) SellFeeBps() uint64 {
	return p.PlatformSellFeeBps + p.LPSellFeeBps
}
