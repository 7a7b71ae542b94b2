package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

// AdminService defines the params operations the admin handler requires.
type AdminService interface {
	GetParams(ctx context.Context) (domain.Params, error)
	ApplyParams(ctx context.Context, next domain.Params, caller string) (domain.Params, error)
	NominateAuthority(ctx context.Context, caller, nominee string) (domain.Params, error)
	AcceptAuthority(ctx context.Context, caller string) (domain.Params, error)
}

// AdminHandler serves the engine-params endpoints.
type AdminHandler struct {
	admin  AdminService
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler with the given service and logger.
func NewAdminHandler(admin AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

// GetParams returns the current engine params.
// GET /api/params
func (h *AdminHandler) GetParams(w http.ResponseWriter, r *http.Request) {
	p, err := h.admin.GetParams(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "engine params not initialized")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get params failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get params")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// applyParamsRequest is the body of PUT /api/params.
type applyParamsRequest struct {
	Authority            string `json:"authority"`
	TeamWallet           string `json:"team_wallet"`
	PlatformBuyFeeBps    uint64 `json:"platform_buy_fee_bps"`
	PlatformSellFeeBps   uint64 `json:"platform_sell_fee_bps"`
	LPBuyFeeBps          uint64 `json:"lp_buy_fee_bps"`
	LPSellFeeBps         uint64 `json:"lp_sell_fee_bps"`
	TokenSupply          uint64 `json:"token_supply"`
	TokenDecimals        uint8  `json:"token_decimals"`
	InitialTokenReserves uint64 `json:"initial_token_reserves"`
	MinSolLiquidity      uint64 `json:"min_sol_liquidity"`
}

// ApplyParams creates or overwrites the engine params.
// PUT /api/params
func (h *AdminHandler) ApplyParams(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeError(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}

	var req applyParamsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	next := domain.Params{
		Authority:            req.Authority,
		TeamWallet:           req.TeamWallet,
		PlatformBuyFeeBps:    req.PlatformBuyFeeBps,
		PlatformSellFeeBps:   req.PlatformSellFeeBps,
		LPBuyFeeBps:          req.LPBuyFeeBps,
		LPSellFeeBps:         req.LPSellFeeBps,
		TokenSupply:          req.TokenSupply,
		TokenDecimals:        req.TokenDecimals,
		InitialTokenReserves: req.InitialTokenReserves,
		MinSolLiquidity:      req.MinSolLiquidity,
	}

	applied, err := h.admin.ApplyParams(r.Context(), next, caller)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, applied)
}

// nominateRequest is the body of POST /api/params/nominate.
type nominateRequest struct {
	Nominee string `json:"nominee"`
}

// NominateAuthority stages a two-step authority transfer.
// POST /api/params/nominate
func (h *AdminHandler) NominateAuthority(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeError(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}

	var req nominateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p, err := h.admin.NominateAuthority(r.Context(), caller, req.Nominee)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// AcceptAuthority commits a staged authority transfer to the caller.
// POST /api/params/accept
func (h *AdminHandler) AcceptAuthority(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeError(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}

	p, err := h.admin.AcceptAuthority(r.Context(), caller)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
