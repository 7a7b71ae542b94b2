package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

// UserInfoStore implements domain.UserInfoStore using PostgreSQL. Rows are
// keyed (market_id, user_name) and created lazily on first interaction.
type UserInfoStore struct {
	db DB
}

// NewUserInfoStore creates a UserInfoStore backed by db.
func NewUserInfoStore(db DB) *UserInfoStore {
	return &UserInfoStore{db: db}
}

const userInfoCols = `market_id, user_name, yes_balance, no_balance,
	is_lp, is_initialized, created_at, updated_at`

// Get retrieves one user's record for one market.
func (s *UserInfoStore) Get(ctx context.Context, marketID, user string) (domain.UserInfo, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+userInfoCols+` FROM market_users
		 WHERE market_id = $1 AND user_name = $2`, marketID, user)

	var u domain.UserInfo
	err := row.Scan(
		&u.MarketID, &u.User, &u.YesBalance, &u.NoBalance,
		&u.IsLP, &u.IsInitialized, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserInfo{}, domain.ErrNotFound
		}
		return domain.UserInfo{}, fmt.Errorf("postgres: get user %s in market %s: %w", user, marketID, err)
	}
	return u, nil
}

// Upsert inserts or updates a user's record.
func (s *UserInfoStore) Upsert(ctx context.Context, u domain.UserInfo) error {
	const query = `
		INSERT INTO market_users (` + userInfoCols + `) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW()
		)
		ON CONFLICT (market_id, user_name) DO UPDATE SET
			yes_balance    = EXCLUDED.yes_balance,
			no_balance     = EXCLUDED.no_balance,
			is_lp          = EXCLUDED.is_lp,
			is_initialized = EXCLUDED.is_initialized,
			updated_at     = NOW()`

	_, err := s.db.Exec(ctx, query,
		u.MarketID, u.User, u.YesBalance, u.NoBalance,
		u.IsLP, u.IsInitialized, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert user %s in market %s: %w", u.User, u.MarketID, err)
	}
	return nil
}

// ListByMarket returns every user record for a market, oldest first.
func (s *UserInfoStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.UserInfo, error) {
	query := `SELECT ` + userInfoCols + ` FROM market_users WHERE market_id = $1 ORDER BY created_at`
	args := []any{marketID}
	argIdx := 2

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
		return nil, fmt.Errorf("postgres: list users for market %s: %w", marketID, err)
	}
	defer rows.Close()

	var users []domain.UserInfo
	for rows.Next() {
		var u domain.UserInfo
		if err := rows.Scan(
			&u.MarketID, &u.User, &u.YesBalance, &u.NoBalance,
			&u.IsLP, &u.IsInitialized, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan user for market %s: %w", marketID, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list users rows for market %s: %w", marketID, err)
	}
	return users, nil
}
