package domain

import "time"

// EventKind labels an engine event record.
type EventKind string

const (
	EventParamsUpdate EventKind = "params_update"
	EventMarketCreate EventKind = "market_create"
	EventTrade        EventKind = "trade"
	EventLiquidity    EventKind = "liquidity"
	EventComplete     EventKind = "complete"
	EventResolution   EventKind = "resolution"
	EventSettle       EventKind = "settle"
)

// EventRecord is the persisted, flat form of an engine event: a kind tag plus
// the JSON payload of one of the typed events below. The event log is
// sufficient to reconstruct a market's state trajectory without replaying
// every store mutation.
type EventRecord struct {
	ID        string    `json:"id"`
	MarketID  string    `json:"market_id"`
	Kind      EventKind `json:"kind"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// ParamsUpdateEvent is emitted when the global engine params are applied.
type ParamsUpdateEvent struct {
	Authority            string    `json:"authority"`
	TeamWallet           string    `json:"team_wallet"`
	TokenSupply          uint64    `json:"token_supply"`
	TokenDecimals        uint8     `json:"token_decimals"`
	InitialTokenReserves uint64    `json:"initial_token_reserves"`
	MinSolLiquidity      uint64    `json:"min_sol_liquidity"`
	Timestamp            time.Time `json:"timestamp"`
}

// CreateMarketEvent is emitted when a market and its two curves are created.
type CreateMarketEvent struct {
	MarketID         string    `json:"market_id"`
	Creator          string    `json:"creator"`
	Question         string    `json:"question"`
	YesMint          string    `json:"yes_mint"`
	NoMint           string    `json:"no_mint"`
	YesTotalSupply   uint64    `json:"yes_total_supply"`
	NoTotalSupply    uint64    `json:"no_total_supply"`
	YesTokenReserves uint64    `json:"yes_token_reserves"`
	NoTokenReserves  uint64    `json:"no_token_reserves"`
	StartSlot        *uint64   `json:"start_slot,omitempty"`
	EndingSlot       *uint64   `json:"ending_slot,omitempty"`
	CreatedSlot      uint64    `json:"created_slot"`
	Timestamp        time.Time `json:"timestamp"`
}

// TradeEvent is emitted for every executed swap. It carries enough state for
// external reconstruction of the curve trajectory.
type TradeEvent struct {
	User     string `json:"user"`
	MarketID string `json:"market_id"`
	YesMint  string `json:"yes_mint"`
	NoMint   string `json:"no_mint"`

	SolAmount   uint64    `json:"sol_amount"` // gross
	TokenAmount uint64    `json:"token_amount"`
	FeeAmount   uint64    `json:"fee_amount"`
	Direction   Direction `json:"direction"`
	Side        Side      `json:"side"`

	RealSolReserves      uint64 `json:"real_sol_reserves"`
	RealYesTokenReserves uint64 `json:"real_yes_token_reserves"`
	RealNoTokenReserves  uint64 `json:"real_no_token_reserves"`

	Timestamp time.Time `json:"timestamp"`
}

// LiquidityEvent is emitted for liquidity additions and withdrawals.
type LiquidityEvent struct {
	User          string    `json:"user"`
	MarketID      string    `json:"market_id"`
	IsAdd         bool      `json:"is_add"`
	SolAmount     uint64    `json:"sol_amount"`
	YesSolAmount  uint64    `json:"yes_sol_amount"`
	NoSolAmount   uint64    `json:"no_sol_amount"`
	TotalLPAmount uint64    `json:"total_lp_amount"`
	Timestamp     time.Time `json:"timestamp"`
}

// CompleteEvent is emitted when one side's curve drains its token reserves
// and freezes.
type CompleteEvent struct {
	MarketID          string    `json:"market_id"`
	Side              Side      `json:"side"`
	RealSolReserves   uint64    `json:"real_sol_reserves"`
	RealTokenReserves uint64    `json:"real_token_reserves"`
	Timestamp         time.Time `json:"timestamp"`
}

// ResolutionEvent is emitted when the authority finalizes a market outcome.
type ResolutionEvent struct {
	MarketID    string    `json:"market_id"`
	WinningSide Side      `json:"winning_side"`
	YesAmount   uint64    `json:"yes_amount"`
	NoAmount    uint64    `json:"no_amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// SettleEvent is emitted when a user redeems winning-side tokens after
// resolution.
type SettleEvent struct {
	MarketID    string    `json:"market_id"`
	User        string    `json:"user"`
	Side        Side      `json:"side"`
	TokenAmount uint64    `json:"token_amount"`
	SolAmount   uint64    `json:"sol_amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// Transfer is a custody directive produced by the engine: the engine decides
// amounts and directions, the caller performs the actual movement of funds.
type Transfer struct {
	From   string `json:"from"` // "user", "pool", or "team"
	To     string `json:"to"`
	Asset  string `json:"asset"` // "sol", "yes", or "no"
	Amount uint64 `json:"amount"`
}
