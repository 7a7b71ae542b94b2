package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL. The market row
// carries both curves inline; the LP ledger lives in market_lps and is loaded
// and written alongside the market.
type MarketStore struct {
	db DB
}

// NewMarketStore creates a MarketStore backed by db.
func NewMarketStore(db DB) *MarketStore {
	return &MarketStore{db: db}
}

const marketCols = `id, yes_mint, no_mint, creator, question,
	yes_initial_token_reserves, yes_real_token_reserves, yes_real_sol_reserves,
	yes_token_total_supply, yes_circulating_supply,
	no_initial_token_reserves, no_real_token_reserves, no_real_sol_reserves,
	no_token_total_supply, no_circulating_supply,
	is_completed, winning_side, start_slot, ending_slot, created_slot,
	total_lp_amount, created_at, updated_at`

// Create inserts a new market and its (usually empty) LP ledger.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (` + marketCols + `) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20,
			$21, $22, NOW()
		)`

	_, err := s.db.Exec(ctx, query, marketArgs(m)...)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create market %s: %w", m.ID, err)
	}
	return s.writeLPs(ctx, m)
}

// Update overwrites an existing market row and replaces its LP ledger.
func (s *MarketStore) Update(ctx context.Context, m domain.Market) error {
	const query = `
		UPDATE markets SET
			yes_mint = $2, no_mint = $3, creator = $4, question = $5,
			yes_initial_token_reserves = $6, yes_real_token_reserves = $7,
			yes_real_sol_reserves = $8, yes_token_total_supply = $9,
			yes_circulating_supply = $10,
			no_initial_token_reserves = $11, no_real_token_reserves = $12,
			no_real_sol_reserves = $13, no_token_total_supply = $14,
			no_circulating_supply = $15,
			is_completed = $16, winning_side = $17,
			start_slot = $18, ending_slot = $19, created_slot = $20,
			total_lp_amount = $21, created_at = $22, updated_at = NOW()
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, marketArgs(m)...)
	if err != nil {
		return fmt.Errorf("postgres: update market %s: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if _, err := s.db.Exec(ctx, "DELETE FROM market_lps WHERE market_id = $1", m.ID); err != nil {
		return fmt.Errorf("postgres: clear market lps %s: %w", m.ID, err)
	}
	return s.writeLPs(ctx, m)
}

// Get retrieves a market and its LP ledger by id.
func (s *MarketStore) Get(ctx context.Context, id string) (domain.Market, error) {
	row := s.db.QueryRow(ctx, `SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}

	if err := s.loadLPs(ctx, &m); err != nil {
		return domain.Market{}, err
	}
	return m, nil
}

// List returns markets ordered newest first, with pagination and optional
// creation-time filtering. LP ledgers are loaded for every returned market.
func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets`
	var args []any
	argIdx := 1

	var where []string
	if opts.Since != nil {
		where = append(where, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		where = append(where, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, *opts.Until)
		argIdx++
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	query += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets rows: %w", err)
	}

	for i := range markets {
		if err := s.loadLPs(ctx, &markets[i]); err != nil {
			return nil, err
		}
	}
	return markets, nil
}

// Count returns the total number of markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

func marketArgs(m domain.Market) []any {
	var winning *int16
	if m.WinningSide != nil {
		w := int16(*m.WinningSide)
		winning = &w
	}
	return []any{
		m.ID, m.YesMint, m.NoMint, m.Creator, m.Question,
		m.Yes.InitialTokenReserves, m.Yes.RealTokenReserves, m.Yes.RealSolReserves,
		m.Yes.TokenTotalSupply, m.Yes.CirculatingSupply,
		m.No.InitialTokenReserves, m.No.RealTokenReserves, m.No.RealSolReserves,
		m.No.TokenTotalSupply, m.No.CirculatingSupply,
		m.IsCompleted, winning, m.StartSlot, m.EndingSlot, m.CreatedSlot,
		m.TotalLPAmount, m.CreatedAt,
	}
}

func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var winning *int16
	err := row.Scan(
		&m.ID, &m.YesMint, &m.NoMint, &m.Creator, &m.Question,
		&m.Yes.InitialTokenReserves, &m.Yes.RealTokenReserves, &m.Yes.RealSolReserves,
		&m.Yes.TokenTotalSupply, &m.Yes.CirculatingSupply,
		&m.No.InitialTokenReserves, &m.No.RealTokenReserves, &m.No.RealSolReserves,
		&m.No.TokenTotalSupply, &m.No.CirculatingSupply,
		&m.IsCompleted, &winning, &m.StartSlot, &m.EndingSlot, &m.CreatedSlot,
		&m.TotalLPAmount, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	if winning != nil {
		w := domain.Side(*winning)
		m.WinningSide = &w
	}
	return m, nil
}

// writeLPs inserts the market's LP ledger rows. Position preserves ledger
// order across reloads.
func (s *MarketStore) writeLPs(ctx context.Context, m domain.Market) error {
	if len(m.LPs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO market_lps (market_id, position, user_name, sol_amount)
		VALUES ($1, $2, $3, $4)`
	for i, lp := range m.LPs {
		batch.Queue(query, m.ID, i, lp.User, lp.SolAmount)
	}

	var br pgx.BatchResults
	switch db := s.db.(type) {
	case interface {
		SendBatch(context.Context, *pgx.Batch) pgx.BatchResults
	}:
		br = db.SendBatch(ctx, batch)
	default:
		// Fall back to sequential inserts when the DB handle cannot batch.
		for i, lp := range m.LPs {
			if _, err := s.db.Exec(ctx, query, m.ID, i, lp.User, lp.SolAmount); err != nil {
				return fmt.Errorf("postgres: write market lp %d for %s: %w", i, m.ID, err)
			}
		}
		return nil
	}
	defer br.Close()

	for i := range m.LPs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: write market lp %d for %s: %w", i, m.ID, err)
		}
	}
	return nil
}

func (s *MarketStore) loadLPs(ctx context.Context, m *domain.Market) error {
	rows, err := s.db.Query(ctx,
		`SELECT user_name, sol_amount FROM market_lps
		 WHERE market_id = $1 ORDER BY position`, m.ID)
	if err != nil {
		return fmt.Errorf("postgres: load market lps %s: %w", m.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var lp domain.LpInfo
		if err := rows.Scan(&lp.User, &lp.SolAmount); err != nil {
			return fmt.Errorf("postgres: scan market lp %s: %w", m.ID, err)
		}
		m.LPs = append(m.LPs, lp)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("postgres: load market lps rows %s: %w", m.ID, err)
	}
	return nil
}
