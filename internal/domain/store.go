package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ParamsStore persists the singleton engine params.
type ParamsStore interface {
	Get(ctx context.Context) (Params, error)
	Put(ctx context.Context, p Params) error
}

// MarketStore persists markets together with their liquidity ledgers.
type MarketStore interface {
	Create(ctx context.Context, m Market) error
	Get(ctx context.Context, id string) (Market, error)
	Update(ctx context.Context, m Market) error
	List(ctx context.Context, opts ListOpts) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// UserInfoStore persists per-user per-market balances.
type UserInfoStore interface {
	Get(ctx context.Context, marketID, user string) (UserInfo, error)
	Upsert(ctx context.Context, u UserInfo) error
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]UserInfo, error)
}

// EventStore persists the append-only engine event log.
type EventStore interface {
	Append(ctx context.Context, rec EventRecord) error
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]EventRecord, error)
}

// Stores bundles every store handle bound to one transaction scope.
type Stores struct {
	Params  ParamsStore
	Markets MarketStore
	Users   UserInfoStore
	Events  EventStore
}

// TxRunner executes fn inside a single database transaction: every store
// mutation made through the Stores handle is committed atomically, or rolled
// back entirely when fn returns an error. This is what gives each engine
// operation its all-or-nothing application.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
