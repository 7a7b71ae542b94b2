package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/curvemarket/internal/domain"
	"github.com/alanyoungcy/curvemarket/internal/engine"
)

// AdminService manages the global engine params: bootstrap, fee updates, and
// the two-step authority transfer.
type AdminService struct {
	stores domain.Stores
	tx     domain.TxRunner
	logger *slog.Logger
}

// NewAdminService creates an AdminService with all required dependencies.
func NewAdminService(stores domain.Stores, tx domain.TxRunner, logger *slog.Logger) *AdminService {
	return &AdminService{stores: stores, tx: tx, logger: logger}
}

// GetParams returns the current engine params. Returns domain.ErrNotFound
// before the first ApplyParams.
func (s *AdminService) GetParams(ctx context.Context) (domain.Params, error) {
	p, err := s.stores.Params.Get(ctx)
	if err != nil {
		return domain.Params{}, fmt.Errorf("admin_service: get params: %w", err)
	}
	return p, nil
}

// ApplyParams validates and writes the params record. The first call
// bootstraps the engine; afterwards only the current authority may overwrite.
func (s *AdminService) ApplyParams(ctx context.Context, next domain.Params, caller string) (domain.Params, error) {
	var applied domain.Params
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st domain.Stores) error {
		current, err := st.Params.Get(ctx)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("admin_service: load params: %w", err)
		}

		if err := engine.ApplyParams(&current, next, caller); err != nil {
			return err
		}
		now := time.Now()
		current.UpdatedAt = now.UTC()

		if err := st.Params.Put(ctx, current); err != nil {
			return fmt.Errorf("admin_service: put params: %w", err)
		}

		rec, err := newEventRecord("", domain.EventParamsUpdate, domain.ParamsUpdateEvent{
			Authority:            current.Authority,
			TeamWallet:           current.TeamWallet,
			TokenSupply:          current.TokenSupply,
			TokenDecimals:        current.TokenDecimals,
			InitialTokenReserves: current.InitialTokenReserves,
			MinSolLiquidity:      current.MinSolLiquidity,
			Timestamp:            now.UTC(),
		}, now)
		if err != nil {
			return err
		}
		if err := st.Events.Append(ctx, rec); err != nil {
			return fmt.Errorf("admin_service: append params event: %w", err)
		}

		applied = current
		return nil
	})
	if err != nil {
		return domain.Params{}, err
	}

	s.logger.InfoContext(ctx, "admin_service: params applied",
		slog.String("authority", applied.Authority),
	)
	return applied, nil
}

// NominateAuthority stages an ownership transfer to nominee.
func (s *AdminService) NominateAuthority(ctx context.Context, caller, nominee string) (domain.Params, error) {
	var out domain.Params
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st domain.Stores) error {
		p, err := st.Params.Get(ctx)
		if err != nil {
			return fmt.Errorf("admin_service: load params: %w", err)
		}
		if err := engine.NominateAuthority(&p, caller, nominee); err != nil {
			return err
		}
		p.UpdatedAt = time.Now().UTC()
		if err := st.Params.Put(ctx, p); err != nil {
			return fmt.Errorf("admin_service: put params: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return domain.Params{}, err
	}

	s.logger.InfoContext(ctx, "admin_service: authority nominated",
		slog.String("nominee", nominee),
	)
	return out, nil
}

// AcceptAuthority commits a staged ownership transfer to the caller.
func (s *AdminService) AcceptAuthority(ctx context.Context, caller string) (domain.Params, error) {
	var out domain.Params
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st domain.Stores) error {
		p, err := st.Params.Get(ctx)
		if err != nil {
			return fmt.Errorf("admin_service: load params: %w", err)
		}
		if err := engine.AcceptAuthority(&p, caller); err != nil {
			return err
		}
		p.UpdatedAt = time.Now().UTC()
		if err := st.Params.Put(ctx, p); err != nil {
			return fmt.Errorf("admin_service: put params: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return domain.Params{}, err
	}

	s.logger.InfoContext(ctx, "admin_service: authority transferred",
		slog.String("authority", caller),
	)
	return out, nil
}
