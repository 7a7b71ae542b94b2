package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/curvemarket/internal/domain"
	"github.com/alanyoungcy/curvemarket/internal/service"
)

// TradeService defines the swap operation the trade handler requires.
type TradeService interface {
	Swap(ctx context.Context, in service.SwapInput) (service.SwapOutput, error)
}

// TradeHandler serves the swap endpoint.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler with the given service and logger.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, logger: logger}
}

// swapRequest is the body of POST /api/markets/{id}/swap. Amount is base
// currency for buys and outcome tokens for sells; min_receive bounds slippage
// in the opposite unit.
type swapRequest struct {
	Side       string `json:"side"`      // "yes" or "no"
	Direction  string `json:"direction"` // "buy" or "sell"
	Amount     uint64 `json:"amount"`
	MinReceive uint64 `json:"min_receive"`
}

// Swap executes a buy or sell against one side's curve.
// POST /api/markets/{id}/swap
func (h *TradeHandler) Swap(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	caller := callerID(r)
	if id == "" || caller == "" {
		writeError(w, http.StatusBadRequest, "missing market id or X-User-ID header")
		return
	}

	var req swapRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	side, err := domain.ParseSide(req.Side)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	direction, err := domain.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.trades.Swap(r.Context(), service.SwapInput{
		MarketID:   id,
		User:       caller,
		Side:       side,
		Direction:  direction,
		Amount:     req.Amount,
		MinReceive: req.MinReceive,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}
