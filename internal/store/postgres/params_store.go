package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

// ParamsStore implements domain.ParamsStore using PostgreSQL. The table holds
// exactly one row, enforced by a CHECK on the id column.
type ParamsStore struct {
	db DB
}

// NewParamsStore creates a ParamsStore backed by db.
func NewParamsStore(db DB) *ParamsStore {
	return &ParamsStore{db: db}
}

// Get retrieves the singleton params row. Returns domain.ErrNotFound when the
// engine has never been initialized.
func (s *ParamsStore) Get(ctx context.Context) (domain.Params, error) {
	const query = `
		SELECT authority, pending_authority, team_wallet,
			platform_buy_fee_bps, platform_sell_fee_bps,
			lp_buy_fee_bps, lp_sell_fee_bps,
			token_supply, token_decimals, initial_token_reserves,
			min_sol_liquidity, initialized, updated_at
		FROM engine_params WHERE id = 1`

	var p domain.Params
	var decimals int16
	err := s.db.QueryRow(ctx, query).Scan(
		&p.Authority, &p.PendingAuthority, &p.TeamWallet,
		&p.PlatformBuyFeeBps, &p.PlatformSellFeeBps,
		&p.LPBuyFeeBps, &p.LPSellFeeBps,
		&p.TokenSupply, &decimals, &p.InitialTokenReserves,
		&p.MinSolLiquidity, &p.Initialized, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Params{}, domain.ErrNotFound
		}
		return domain.Params{}, fmt.Errorf("postgres: get params: %w", err)
	}
	p.TokenDecimals = uint8(decimals)
	return p, nil
}

// Put writes the singleton params row, creating it on first use.
func (s *ParamsStore) Put(ctx context.Context, p domain.Params) error {
	const query = `
		INSERT INTO engine_params (
			id, authority, pending_authority, team_wallet,
			platform_buy_fee_bps, platform_sell_fee_bps,
			lp_buy_fee_bps, lp_sell_fee_bps,
			token_supply, token_decimals, initial_token_reserves,
			min_sol_liquidity, initialized, updated_at
		) VALUES (
			1, $1, $2, $3,
			$4, $5, $6, $7,
			$8, $9, $10, $11, $12, NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			authority              = EXCLUDED.authority,
			pending_authority      = EXCLUDED.pending_authority,
			team_wallet            = EXCLUDED.team_wallet,
			platform_buy_fee_bps   = EXCLUDED.platform_buy_fee_bps,
			platform_sell_fee_bps  = EXCLUDED.platform_sell_fee_bps,
			lp_buy_fee_bps         = EXCLUDED.lp_buy_fee_bps,
			lp_sell_fee_bps        = EXCLUDED.lp_sell_fee_bps,
			token_supply           = EXCLUDED.token_supply,
			token_decimals         = EXCLUDED.token_decimals,
			initial_token_reserves = EXCLUDED.initial_token_reserves,
			min_sol_liquidity      = EXCLUDED.min_sol_liquidity,
			initialized            = EXCLUDED.initialized,
			updated_at             = NOW()`

	_, err := s.db.Exec(ctx, query,
		p.Authority, p.PendingAuthority, p.TeamWallet,
		p.PlatformBuyFeeBps, p.PlatformSellFeeBps,
		p.LPBuyFeeBps, p.LPSellFeeBps,
		p.TokenSupply, int16(p.TokenDecimals), p.InitialTokenReserves,
		p.MinSolLiquidity, p.Initialized,
	)
	if err != nil {
		return fmt.Errorf("postgres: put params: %w", err)
	}
	return nil
}
