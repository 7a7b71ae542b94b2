package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/curvemarket/internal/domain"
	"github.com/alanyoungcy/curvemarket/internal/engine"
)

const (
	// marketLockTTL bounds how long a crashed holder can stall a market.
	marketLockTTL = 10 * time.Second

	tradeRateKeyPrefix = "trade:"
)

// SwapInput carries the caller-supplied fields for one swap.
type SwapInput struct {
	MarketID   string
	User       string
	Side       domain.Side
	Direction  domain.Direction
	Amount     uint64
	MinReceive uint64
}

// SwapOutput is the applied swap: the trade event as persisted plus the
// custody directives the caller must execute.
type SwapOutput struct {
	Trade     domain.TradeEvent `json:"trade"`
	Transfers []domain.Transfer `json:"transfers"`
	Completed bool              `json:"completed"`
}

// TradeService executes swaps against market curves. Per-user rate limiting
// runs before any work; per-market locking serializes mutations; the engine
// transition and every store write commit in one transaction.
type TradeService struct {
	stores domain.Stores
	tx     domain.TxRunner
	cache  domain.MarketCache
	locks  domain.LockManager
	rl     domain.RateLimiter
	bus    domain.SignalBus
	clock  *SlotClock
	logger *slog.Logger

	rateLimit  int
	rateWindow time.Duration
}

// NewTradeService creates a TradeService with all required dependencies.
// rateLimit trades per rateWindow are allowed per user; a non-positive limit
// disables rate limiting.
func NewTradeService(
	stores domain.Stores,
	tx domain.TxRunner,
	cache domain.MarketCache,
	locks domain.LockManager,
	rl domain.RateLimiter,
	bus domain.SignalBus,
	clock *SlotClock,
	logger *slog.Logger,
	rateLimit int,
	rateWindow time.Duration,
) *TradeService {
	return &TradeService{
		stores:     stores,
		tx:         tx,
		cache:      cache,
		locks:      locks,
		rl:         rl,
		bus:        bus,
		clock:      clock,
		logger:     logger,
		rateLimit:  rateLimit,
		rateWindow: rateWindow,
	}
}

// Swap executes one buy or sell.
func (s *TradeService) Swap(ctx context.Context, in SwapInput) (SwapOutput, error) {
	if s.rateLimit > 0 {
		allowed, err := s.rl.Allow(ctx, tradeRateKeyPrefix+in.User, s.rateLimit, s.rateWindow)
		if err != nil {
			return SwapOutput{}, fmt.Errorf("trade_service: rate limit check: %w", err)
		}
		if !allowed {
			return SwapOutput{}, domain.ErrRateLimited
		}
	}

	unlock, err := s.locks.Acquire(ctx, "market:"+in.MarketID, marketLockTTL)
	if err != nil {
		return SwapOutput{}, fmt.Errorf("trade_service: lock market %s: %w", in.MarketID, err)
	}
	defer unlock()

	now := time.Now()
	currentSlot := s.clock.Current(now)

	var out SwapOutput
	err = s.tx.WithinTx(ctx, func(ctx context.Context, st domain.Stores) error {
		p, err := st.Params.Get(ctx)
		if err != nil {
			return fmt.Errorf("trade_service: load params: %w", err)
		}
		m, err := st.Markets.Get(ctx, in.MarketID)
		if err != nil {
			return fmt.Errorf("trade_service: load market %s: %w", in.MarketID, err)
		}
		u, err := s.loadUser(ctx, st, in.MarketID, in.User, now)
		if err != nil {
			return err
		}

		trade := domain.TradeEvent{
			User:      in.User,
			MarketID:  m.ID,
			YesMint:   m.YesMint,
			NoMint:    m.NoMint,
			Direction: in.Direction,
			Side:      in.Side,
			Timestamp: now.UTC(),
		}

		var completed bool
		switch in.Direction {
		case domain.DirectionBuy:
			res, err := engine.Buy(p, &m, &u, in.Side, in.Amount, in.MinReceive, currentSlot, now)
			if err != nil {
				return err
			}
			trade.SolAmount = res.SolAmount
			trade.TokenAmount = res.TokenAmount
			trade.FeeAmount = res.PlatformFee + res.LPFee
			out.Transfers = res.Transfers()
			completed = res.Completed
		case domain.DirectionSell:
			res, err := engine.Sell(p, &m, &u, in.Side, in.Amount, in.MinReceive, currentSlot, now)
			if err != nil {
				return err
			}
			trade.SolAmount = res.SolAmount
			trade.TokenAmount = res.TokenAmount
			trade.FeeAmount = res.PlatformFee + res.LPFee
			out.Transfers = res.Transfers()
		default:
			return domain.ErrInvalidParameter
		}

		c := m.Curve(in.Side)
		trade.RealSolReserves = c.RealSolReserves
		trade.RealYesTokenReserves = m.Yes.RealTokenReserves
		trade.RealNoTokenReserves = m.No.RealTokenReserves

		if err := st.Markets.Update(ctx, m); err != nil {
			return fmt.Errorf("trade_service: update market %s: %w", m.ID, err)
		}
		if err := st.Users.Upsert(ctx, u); err != nil {
			return fmt.Errorf("trade_service: upsert user %s: %w", in.User, err)
		}

		rec, err := newEventRecord(m.ID, domain.EventTrade, trade, now)
		if err != nil {
			return err
		}
		if err := st.Events.Append(ctx, rec); err != nil {
			return fmt.Errorf("trade_service: append trade event: %w", err)
		}

		if completed {
			compRec, err := newEventRecord(m.ID, domain.EventComplete, domain.CompleteEvent{
				MarketID:          m.ID,
				Side:              in.Side,
				RealSolReserves:   c.RealSolReserves,
				RealTokenReserves: c.RealTokenReserves,
				Timestamp:         now.UTC(),
			}, now)
			if err != nil {
				return err
			}
			if err := st.Events.Append(ctx, compRec); err != nil {
				return fmt.Errorf("trade_service: append complete event: %w", err)
			}
		}

		out.Trade = trade
		out.Completed = completed
		return nil
	})
	if err != nil {
		return SwapOutput{}, err
	}

	s.afterCommit(ctx, in.MarketID, out.Trade)
	s.logger.InfoContext(ctx, "trade_service: swap executed",
		slog.String("market_id", in.MarketID),
		slog.String("user", in.User),
		slog.String("side", in.Side.String()),
		slog.String("direction", in.Direction.String()),
		slog.Uint64("sol_amount", out.Trade.SolAmount),
		slog.Uint64("token_amount", out.Trade.TokenAmount),
	)
	return out, nil
}

// loadUser fetches the user's per-market record, initializing it lazily.
func (s *TradeService) loadUser(ctx context.Context, st domain.Stores, marketID, user string, now time.Time) (domain.UserInfo, error) {
	u, err := st.Users.Get(ctx, marketID, user)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.UserInfo{}, fmt.Errorf("trade_service: load user %s: %w", user, err)
		}
		u = domain.UserInfo{}
	}
	engine.EnsureUserInfo(&u, marketID, user, now)
	return u, nil
}

// afterCommit drops the cached market and fans the trade out to the live
// channel and the durable stream. All best-effort: the commit already
// happened.
func (s *TradeService) afterCommit(ctx context.Context, marketID string, trade domain.TradeEvent) {
	if err := s.cache.Invalidate(ctx, marketID); err != nil {
		s.logger.WarnContext(ctx, "trade_service: cache invalidate failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}

	data, err := json.Marshal(trade)
	if err != nil {
		s.logger.WarnContext(ctx, "trade_service: marshal trade failed",
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.bus.Publish(ctx, ChannelTrade, data); err != nil {
		s.logger.WarnContext(ctx, "trade_service: publish trade failed",
			slog.String("error", err.Error()),
		)
	}
	if err := s.bus.StreamAppend(ctx, StreamTrades, data); err != nil {
		s.logger.WarnContext(ctx, "trade_service: stream append failed",
			slog.String("error", err.Error()),
		)
	}
}
