package postgres

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL. The table is
// append-only; records are never updated or deleted.
type EventStore struct {
	db DB
}

// NewEventStore creates an EventStore backed by db.
func NewEventStore(db DB) *EventStore {
	return &EventStore{db: db}
}

// Append writes one event record.
func (s *EventStore) Append(ctx context.Context, rec domain.EventRecord) error {
	const query = `
		INSERT INTO market_events (id, market_id, kind, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.Exec(ctx, query,
		rec.ID, rec.MarketID, string(rec.Kind), rec.Payload, rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: append event %s: %w", rec.ID, err)
	}
	return nil
}

// ListByMarket returns a market's events oldest first, with pagination and
// optional time filtering.
func (s *EventStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.EventRecord, error) {
	query := `SELECT id, market_id, kind, payload, created_at
		FROM market_events WHERE market_id = $1`
	args := []any{marketID}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at, id"
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
		return nil, fmt.Errorf("postgres: list events for market %s: %w", marketID, err)
	}
	defer rows.Close()

	var events []domain.EventRecord
	for rows.Next() {
		var rec domain.EventRecord
		var kind string
		if err := rows.Scan(&rec.ID, &rec.MarketID, &kind, &rec.Payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan event for market %s: %w", marketID, err)
		}
		rec.Kind = domain.EventKind(kind)
		events = append(events, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list events rows for market %s: %w", marketID, err)
	}
	return events, nil
}
