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
	"github.com/alanyoungcy/curvemarket/internal/notify"
)

// Notifier is the outbound alerting surface the settlement flow uses.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// MarketArchiver uploads a settled market's event history to object storage.
type MarketArchiver interface {
	ArchiveMarketEvents(ctx context.Context, marketID string) (int64, error)
}

// RedeemOutput is one user's applied settlement.
type RedeemOutput struct {
	Result    *engine.SettleResult `json:"result"`
	Transfers []domain.Transfer    `json:"transfers"`
}

// SettlementService finalizes market outcomes and pays out winning positions.
type SettlementService struct {
	stores   domain.Stores
	tx       domain.TxRunner
	cache    domain.MarketCache
	locks    domain.LockManager
	bus      domain.SignalBus
	notifier Notifier
	archiver MarketArchiver
	logger   *slog.Logger
}

// NewSettlementService creates a SettlementService. notifier and archiver may
// be nil; resolution then skips alerting and archival.
func NewSettlementService(
	stores domain.Stores,
	tx domain.TxRunner,
	cache domain.MarketCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	notifier Notifier,
	archiver MarketArchiver,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		stores:   stores,
		tx:       tx,
		cache:    cache,
		locks:    locks,
		bus:      bus,
		notifier: notifier,
		archiver: archiver,
		logger:   logger,
	}
}

// Resolve finalizes the market outcome. Only the params authority may call
// it, and the declared per-side amounts must match the recorded circulating
// supplies exactly.
func (s *SettlementService) Resolve(ctx context.Context, marketID, caller string, winner domain.Side, yesAmount, noAmount uint64) (*engine.ResolveResult, error) {
	unlock, err := s.locks.Acquire(ctx, "market:"+marketID, marketLockTTL)
	if err != nil {
		return nil, fmt.Errorf("settlement_service: lock market %s: %w", marketID, err)
	}
	defer unlock()

	now := time.Now()
	var result *engine.ResolveResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context, st domain.Stores) error {
		p, err := st.Params.Get(ctx)
		if err != nil {
			return fmt.Errorf("settlement_service: load params: %w", err)
		}
		m, err := st.Markets.Get(ctx, marketID)
		if err != nil {
			return fmt.Errorf("settlement_service: load market %s: %w", marketID, err)
		}

		res, err := engine.Resolve(p, &m, caller, winner, yesAmount, noAmount, now)
		if err != nil {
			return err
		}

		if err := st.Markets.Update(ctx, m); err != nil {
			return fmt.Errorf("settlement_service: update market %s: %w", marketID, err)
		}

		rec, err := newEventRecord(m.ID, domain.EventResolution, domain.ResolutionEvent{
			MarketID:    m.ID,
			WinningSide: res.WinningSide,
			YesAmount:   res.YesAmount,
			NoAmount:    res.NoAmount,
			Timestamp:   now.UTC(),
		}, now)
		if err != nil {
			return err
		}
		if err := st.Events.Append(ctx, rec); err != nil {
			return fmt.Errorf("settlement_service: append resolution event: %w", err)
		}

		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterResolve(ctx, marketID, result)
	return result, nil
}

// Redeem settles one user's position in a resolved market. Winning tokens pay
// 1:1, losing tokens clear unpaid, and a repeat call is a paid-nothing no-op.
func (s *SettlementService) Redeem(ctx context.Context, marketID, user string) (RedeemOutput, error) {
	unlock, err := s.locks.Acquire(ctx, "market:"+marketID, marketLockTTL)
	if err != nil {
		return RedeemOutput{}, fmt.Errorf("settlement_service: lock market %s: %w", marketID, err)
	}
	defer unlock()

	now := time.Now()
	var out RedeemOutput
	err = s.tx.WithinTx(ctx, func(ctx context.Context, st domain.Stores) error {
		m, err := st.Markets.Get(ctx, marketID)
		if err != nil {
			return fmt.Errorf("settlement_service: load market %s: %w", marketID, err)
		}
		u, err := st.Users.Get(ctx, marketID, user)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				u = domain.UserInfo{}
				engine.EnsureUserInfo(&u, marketID, user, now)
			} else {
				return fmt.Errorf("settlement_service: load user %s: %w", user, err)
			}
		}

		res, err := engine.Settle(&m, &u, now)
		if err != nil {
			return err
		}

		if err := st.Markets.Update(ctx, m); err != nil {
			return fmt.Errorf("settlement_service: update market %s: %w", marketID, err)
		}
		if err := st.Users.Upsert(ctx, u); err != nil {
			return fmt.Errorf("settlement_service: upsert user %s: %w", user, err)
		}

		if res.SolAmount > 0 || res.TokenAmount > 0 {
			rec, err := newEventRecord(m.ID, domain.EventSettle, domain.SettleEvent{
				MarketID:    m.ID,
				User:        user,
				Side:        res.Side,
				TokenAmount: res.TokenAmount,
				SolAmount:   res.SolAmount,
				Timestamp:   now.UTC(),
			}, now)
			if err != nil {
				return err
			}
			if err := st.Events.Append(ctx, rec); err != nil {
				return fmt.Errorf("settlement_service: append settle event: %w", err)
			}
		}

		out = RedeemOutput{Result: res, Transfers: res.Transfers()}
		return nil
	})
	if err != nil {
		return RedeemOutput{}, err
	}

	if err := s.cache.Invalidate(ctx, marketID); err != nil {
		s.logger.WarnContext(ctx, "settlement_service: cache invalidate failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
	s.logger.InfoContext(ctx, "settlement_service: position redeemed",
		slog.String("market_id", marketID),
		slog.String("user", user),
		slog.Uint64("sol_amount", out.Result.SolAmount),
	)
	return out, nil
}

// afterResolve runs the post-commit fan-out for a resolution: cache drop,
// live publish, operator alert, and event-history archival. All best-effort.
func (s *SettlementService) afterResolve(ctx context.Context, marketID string, res *engine.ResolveResult) {
	if err := s.cache.Invalidate(ctx, marketID); err != nil {
		s.logger.WarnContext(ctx, "settlement_service: cache invalidate failed",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}

	payload, err := json.Marshal(map[string]any{
		"market_id":    marketID,
		"winning_side": res.WinningSide.String(),
		"yes_amount":   res.YesAmount,
		"no_amount":    res.NoAmount,
	})
	if err == nil {
		if pubErr := s.bus.Publish(ctx, ChannelResolution, payload); pubErr != nil {
			s.logger.WarnContext(ctx, "settlement_service: publish failed",
				slog.String("error", pubErr.Error()),
			)
		}
	}

	if s.notifier != nil {
		msg := fmt.Sprintf("Market %s resolved %s", marketID, res.WinningSide)
		if err := s.notifier.Notify(ctx, notify.EventMarketResolved, "Market resolved", msg); err != nil {
			s.logger.WarnContext(ctx, "settlement_service: notify failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if s.archiver != nil {
		count, err := s.archiver.ArchiveMarketEvents(ctx, marketID)
		if err != nil {
			s.logger.WarnContext(ctx, "settlement_service: archive failed",
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
		} else {
			s.logger.InfoContext(ctx, "settlement_service: event history archived",
				slog.String("market_id", marketID),
				slog.Int64("count", count),
			)
		}
	}

	s.logger.InfoContext(ctx, "settlement_service: market resolved",
		slog.String("market_id", marketID),
		slog.String("winning_side", res.WinningSide.String()),
	)
}
