package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

// DB is the query surface the stores run against. Both *pgxpool.Pool and
// pgx.Tx satisfy it, so the same store code serves pooled reads and
// transactional writes.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewStores builds the full store bundle against db.
func NewStores(db DB) domain.Stores {
	return domain.Stores{
		Params:  NewParamsStore(db),
		Markets: NewMarketStore(db),
		Users:   NewUserInfoStore(db),
		Events:  NewEventStore(db),
	}
}

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// WithinTx implements domain.TxRunner: fn runs against stores bound to a
// single transaction, committed only when fn returns nil.
func (c *Client) WithinTx(ctx context.Context, fn func(ctx context.Context, s domain.Stores) error) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	if err := fn(ctx, NewStores(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("postgres: rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}
