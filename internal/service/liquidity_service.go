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

// LiquidityService handles base-currency contributions to and withdrawals
// from market pools.
type LiquidityService struct {
	stores domain.Stores
	tx     domain.TxRunner
	cache  domain.MarketCache
	locks  domain.LockManager
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewLiquidityService creates a LiquidityService with all required
// dependencies.
func NewLiquidityService(
	stores domain.Stores,
	tx domain.TxRunner,
	cache domain.MarketCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	logger *slog.Logger,
) *LiquidityService {
	return &LiquidityService{
		stores: stores,
		tx:     tx,
		cache:  cache,
		locks:  locks,
		bus:    bus,
		logger: logger,
	}
}

// AddLiquidity contributes amount to a market's pools, split across the two
// sides in proportion to their current depth.
func (s *LiquidityService) AddLiquidity(ctx context.Context, marketID, user string, amount uint64) (*engine.AddLiquidityResult, error) {
	unlock, err := s.locks.Acquire(ctx, "market:"+marketID, marketLockTTL)
	if err != nil {
		return nil, fmt.Errorf("liquidity_service: lock market %s: %w", marketID, err)
	}
	defer unlock()

	now := time.Now()
	var result *engine.AddLiquidityResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context, st domain.Stores) error {
		m, err := st.Markets.Get(ctx, marketID)
		if err != nil {
			return fmt.Errorf("liquidity_service: load market %s: %w", marketID, err)
		}
		u, err := s.loadUser(ctx, st, marketID, user, now)
		if err != nil {
			return err
		}

		res, err := engine.AddLiquidity(&m, &u, user, amount, now)
		if err != nil {
			return err
		}

		if err := st.Markets.Update(ctx, m); err != nil {
			return fmt.Errorf("liquidity_service: update market %s: %w", marketID, err)
		}
		if err := st.Users.Upsert(ctx, u); err != nil {
			return fmt.Errorf("liquidity_service: upsert user %s: %w", user, err)
		}

		if err := s.appendEvent(ctx, st, m.ID, true, res.SolAmount, res.YesSolAmount, res.NoSolAmount, res.TotalLPAmount, user, now); err != nil {
			return err
		}

		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, marketID, user, true, result.SolAmount)
	return result, nil
}

// WithdrawLiquidity returns up to the caller's recorded contribution from the
// market's pools.
func (s *LiquidityService) WithdrawLiquidity(ctx context.Context, marketID, user string, amount uint64) (*engine.WithdrawLiquidityResult, error) {
	unlock, err := s.locks.Acquire(ctx, "market:"+marketID, marketLockTTL)
	if err != nil {
		return nil, fmt.Errorf("liquidity_service: lock market %s: %w", marketID, err)
	}
	defer unlock()

	now := time.Now()
	var result *engine.WithdrawLiquidityResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context, st domain.Stores) error {
		p, err := st.Params.Get(ctx)
		if err != nil {
			return fmt.Errorf("liquidity_service: load params: %w", err)
		}
		m, err := st.Markets.Get(ctx, marketID)
		if err != nil {
			return fmt.Errorf("liquidity_service: load market %s: %w", marketID, err)
		}
		u, err := s.loadUser(ctx, st, marketID, user, now)
		if err != nil {
			return err
		}

		res, err := engine.WithdrawLiquidity(p, &m, &u, user, amount, now)
		if err != nil {
			return err
		}

		if err := st.Markets.Update(ctx, m); err != nil {
			return fmt.Errorf("liquidity_service: update market %s: %w", marketID, err)
		}
		if err := st.Users.Upsert(ctx, u); err != nil {
			return fmt.Errorf("liquidity_service: upsert user %s: %w", user, err)
		}

		if err := s.appendEvent(ctx, st, m.ID, false, res.SolAmount, res.YesSolAmount, res.NoSolAmount, res.TotalLPAmount, user, now); err != nil {
			return err
		}

		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, marketID, user, false, result.SolAmount)
	return result, nil
}

func (s *LiquidityService) loadUser(ctx context.Context, st domain.Stores, marketID, user string, now time.Time) (domain.UserInfo, error) {
	u, err := st.Users.Get(ctx, marketID, user)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.UserInfo{}, fmt.Errorf("liquidity_service: load user %s: %w", user, err)
		}
		u = domain.UserInfo{}
	}
	engine.EnsureUserInfo(&u, marketID, user, now)
	return u, nil
}

func (s *LiquidityService) appendEvent(ctx context.Context, st domain.Stores, marketID string, isAdd bool, sol, yesSol, noSol, totalLP uint64, user string, now time.Time) error {
	rec, err := newEventRecord(marketID, domain.EventLiquidity, domain.LiquidityEvent{
		User:          user,
		MarketID:      marketID,
		IsAdd:         isAdd,
		SolAmount:     sol,
		YesSolAmount:  yesSol,
		NoSolAmount:   noSol,
		TotalLPAmount: totalLP,
		Timestamp:     now.UTC(),
	}, now)
	if err != nil {
		return err
	}
	if err := st.Events.Append(ctx, rec); err != nil {
		return fmt.Errorf("liquidity_service: append liquidity event: %w", err)
	}
	return nil
}

func (s *LiquidityService) afterCommit(ctx context.Context, marketID, user string, isAdd bool, amount uint64) {
	if err := s.cache.Invalidate(ctx, marketID); err != nil {
		s.logger.WarnContext(ctx, "liquidity_service: cache invalidate failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}

	payload, err := json.Marshal(map[string]any{
		"market_id": marketID,
		"user":      user,
		"is_add":    isAdd,
		"amount":    amount,
	})
	if err == nil {
		if pubErr := s.bus.Publish(ctx, ChannelLiquidity, payload); pubErr != nil {
			s.logger.WarnContext(ctx, "liquidity_service: publish failed",
				slog.String("error", pubErr.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "liquidity_service: liquidity updated",
		slog.String("market_id", marketID),
		slog.String("user", user),
		slog.Bool("is_add", isAdd),
		slog.Uint64("amount", amount),
	)
}
