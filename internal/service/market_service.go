package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/curvemarket/internal/domain"
	"github.com/alanyoungcy/curvemarket/internal/engine"
)

// CreateMarketInput carries the caller-supplied fields for a new market.
type CreateMarketInput struct {
	Creator    string
	Question   string
	StartSlot  *uint64
	EndingSlot *uint64
}

// MarketService handles market creation and lookup.
type MarketService struct {
	stores domain.Stores
	tx     domain.TxRunner
	cache  domain.MarketCache
	bus    domain.SignalBus
	clock  *SlotClock
	logger *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	stores domain.Stores,
	tx domain.TxRunner,
	cache domain.MarketCache,
	bus domain.SignalBus,
	clock *SlotClock,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		stores: stores,
		tx:     tx,
		cache:  cache,
		bus:    bus,
		clock:  clock,
		logger: logger,
	}
}

// CreateMarket seeds a new dual-curve market from the current engine params
// and records the creation event atomically.
func (s *MarketService) CreateMarket(ctx context.Context, in CreateMarketInput) (domain.Market, error) {
	now := time.Now()
	currentSlot := s.clock.Current(now)

	seed := engine.MarketSeed{
		ID:         uuid.NewString(),
		YesMint:    uuid.NewString(),
		NoMint:     uuid.NewString(),
		Creator:    in.Creator,
		Question:   in.Question,
		StartSlot:  in.StartSlot,
		EndingSlot: in.EndingSlot,
	}

	var created domain.Market
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st domain.Stores) error {
		p, err := st.Params.Get(ctx)
		if err != nil {
			return fmt.Errorf("market_service: load params: %w", err)
		}

		m, err := engine.NewMarket(p, seed, currentSlot, now)
		if err != nil {
			return err
		}

		if err := st.Markets.Create(ctx, m); err != nil {
			return fmt.Errorf("market_service: create market: %w", err)
		}

		rec, err := newEventRecord(m.ID, domain.EventMarketCreate, domain.CreateMarketEvent{
			MarketID:         m.ID,
			Creator:          m.Creator,
			Question:         m.Question,
			YesMint:          m.YesMint,
			NoMint:           m.NoMint,
			YesTotalSupply:   m.Yes.TokenTotalSupply,
			NoTotalSupply:    m.No.TokenTotalSupply,
			YesTokenReserves: m.Yes.RealTokenReserves,
			NoTokenReserves:  m.No.RealTokenReserves,
			StartSlot:        m.StartSlot,
			EndingSlot:       m.EndingSlot,
			CreatedSlot:      m.CreatedSlot,
			Timestamp:        now.UTC(),
		}, now)
		if err != nil {
			return err
		}
		if err := st.Events.Append(ctx, rec); err != nil {
			return fmt.Errorf("market_service: append create event: %w", err)
		}

		created = m
		return nil
	})
	if err != nil {
		return domain.Market{}, err
	}

	s.publish(ctx, ChannelMarket, created)
	s.logger.InfoContext(ctx, "market_service: market created",
		slog.String("market_id", created.ID),
		slog.Uint64("created_slot", created.CreatedSlot),
	)
	return created, nil
}

// GetMarket retrieves a market by ID, checking the cache first and falling
// back to the persistent store on a miss.
func (s *MarketService) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	m, err := s.cache.Get(ctx, id)
	if err == nil {
		return m, nil
	}

	m, err = s.stores.Markets.Get(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get %q: %w", id, err)
	}

	// Back-fill cache; log but do not fail on cache write errors.
	if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
		s.logger.WarnContext(ctx, "market_service: cache set failed",
			slog.String("market_id", id),
			slog.String("error", cacheErr.Error()),
		)
	}
	return m, nil
}

// GetUserInfo retrieves one user's balances in a market. Returns a zeroed,
// uninitialized record when the user has never interacted.
func (s *MarketService) GetUserInfo(ctx context.Context, marketID, user string) (domain.UserInfo, error) {
	u, err := s.stores.Users.Get(ctx, marketID, user)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.UserInfo{MarketID: marketID, User: user}, nil
		}
		return domain.UserInfo{}, fmt.Errorf("market_service: get user %q in %q: %w", user, marketID, err)
	}
	return u, nil
}

// ListMarkets returns markets from the persistent store, newest first.
func (s *MarketService) ListMarkets(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.stores.Markets.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets.
func (s *MarketService) Count(ctx context.Context) (int64, error) {
	count, err := s.stores.Markets.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("market_service: count: %w", err)
	}
	return count, nil
}

// ListEvents returns a market's event log, oldest first.
func (s *MarketService) ListEvents(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.EventRecord, error) {
	events, err := s.stores.Events.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list events for %q: %w", marketID, err)
	}
	return events, nil
}

// publish best-effort fan-out; failures are logged, never surfaced, because
// the state change is already committed.
func (s *MarketService) publish(ctx context.Context, channel string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.WarnContext(ctx, "market_service: marshal publish payload failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.bus.Publish(ctx, channel, data); err != nil {
		s.logger.WarnContext(ctx, "market_service: publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
