package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/curvemarket/internal/engine"
)

// LiquidityService defines the pool operations the liquidity handler
// requires.
type LiquidityService interface {
	AddLiquidity(ctx context.Context, marketID, user string, amount uint64) (*engine.AddLiquidityResult, error)
	WithdrawLiquidity(ctx context.Context, marketID, user string, amount uint64) (*engine.WithdrawLiquidityResult, error)
}

// LiquidityHandler serves the pool contribution and withdrawal endpoints.
type LiquidityHandler struct {
	liquidity LiquidityService
	logger    *slog.Logger
}

// NewLiquidityHandler creates a LiquidityHandler with the given service and
// logger.
func NewLiquidityHandler(liquidity LiquidityService, logger *slog.Logger) *LiquidityHandler {
	return &LiquidityHandler{liquidity: liquidity, logger: logger}
}

// liquidityRequest is the body of the add and withdraw endpoints.
type liquidityRequest struct {
	Amount uint64 `json:"amount"`
}

// AddLiquidity contributes base currency to a market's pools.
// POST /api/markets/{id}/liquidity
func (h *LiquidityHandler) AddLiquidity(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	caller := callerID(r)
	if id == "" || caller == "" {
		writeError(w, http.StatusBadRequest, "missing market id or X-User-ID header")
		return
	}

	var req liquidityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.liquidity.AddLiquidity(r.Context(), id, caller, req.Amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// WithdrawLiquidity returns part of the caller's recorded contribution.
// DELETE /api/markets/{id}/liquidity
func (h *LiquidityHandler) WithdrawLiquidity(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	caller := callerID(r)
	if id == "" || caller == "" {
		writeError(w, http.StatusBadRequest, "missing market id or X-User-ID header")
		return
	}

	var req liquidityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.liquidity.WithdrawLiquidity(r.Context(), id, caller, req.Amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
