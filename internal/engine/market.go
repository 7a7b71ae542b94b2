package engine

import (
	"time"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

// MarketSeed carries the identities for a new market; the engine does not
// generate IDs itself.
type MarketSeed struct {
	ID       string
	YesMint  string
	NoMint   string
	Creator  string
	Question string

	StartSlot  *uint64
	EndingSlot *uint64
}

// NewMarket seeds a dual-curve market from the global params: each side gets
// the full initial token reserve and its own total supply. The ending slot,
// when present, must lie in the future but no further than MaxEndingSlotDelay
// past the creation slot.
func NewMarket(p domain.Params, seed MarketSeed, currentSlot uint64, now time.Time) (domain.Market, error) {
	if !p.Initialized {
		return domain.Market{}, domain.ErrNotInitialized
	}
	if seed.ID == "" || seed.YesMint == "" || seed.NoMint == "" || seed.Creator == "" {
		return domain.Market{}, domain.ErrInvalidParameter
	}
	if seed.StartSlot != nil && *seed.StartSlot < currentSlot {
		return domain.Market{}, domain.ErrStartTime
	}
	if seed.EndingSlot != nil {
		if *seed.EndingSlot <= currentSlot {
			return domain.Market{}, domain.ErrEndTime
		}
		if *seed.EndingSlot > currentSlot+MaxEndingSlotDelay {
			return domain.Market{}, domain.ErrValueTooLarge
		}
		if seed.StartSlot != nil && *seed.StartSlot >= *seed.EndingSlot {
			return domain.Market{}, domain.ErrInvalidParameter
		}
	}

	curve := domain.Curve{
		InitialTokenReserves: p.InitialTokenReserves,
		RealTokenReserves:    p.InitialTokenReserves,
		RealSolReserves:      0,
		TokenTotalSupply:     p.TokenSupply,
		CirculatingSupply:    0,
	}

	return domain.Market{
		ID:          seed.ID,
		YesMint:     seed.YesMint,
		NoMint:      seed.NoMint,
		Creator:     seed.Creator,
		Question:    seed.Question,
		Yes:         curve,
		No:          curve,
		StartSlot:   seed.StartSlot,
		EndingSlot:  seed.EndingSlot,
		CreatedSlot: currentSlot,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// EnsureUserInfo lazily initializes a user's per-market record. Guarded by
// IsInitialized so a repeat call is a no-op.
func EnsureUserInfo(u *domain.UserInfo, marketID, user string, now time.Time) {
	if u.IsInitialized {
		return
	}
	u.MarketID = marketID
	u.User = user
	u.IsInitialized = true
	u.CreatedAt = now.UTC()
	u.UpdatedAt = now.UTC()
}

// checkTradable re-validates the market lifecycle window. Called at the start
// of every trade: the market may have been mutated by an intervening operation
// since the caller last read it, so nothing here is ever cached.
func checkTradable(m *domain.Market, currentSlot uint64) error {
	if m.IsCompleted {
		return domain.ErrCurveComplete
	}
	if m.StartSlot != nil && currentSlot < *m.StartSlot {
		return domain.ErrLaunchPhase
	}
	if m.EndingSlot != nil && currentSlot >= *m.EndingSlot {
		return domain.ErrEndTimeElapsed
	}
	return nil
}
