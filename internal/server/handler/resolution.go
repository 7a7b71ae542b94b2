package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/curvemarket/internal/domain"
	"github.com/alanyoungcy/curvemarket/internal/engine"
	"github.com/alanyoungcy/curvemarket/internal/service"
)

// SettlementService defines the resolution and redemption operations the
// handler requires.
type SettlementService interface {
	Resolve(ctx context.Context, marketID, caller string, winner domain.Side, yesAmount, noAmount uint64) (*engine.ResolveResult, error)
	Redeem(ctx context.Context, marketID, user string) (service.RedeemOutput, error)
}

// ResolutionHandler serves the resolve and redeem endpoints.
type ResolutionHandler struct {
	settlement SettlementService
	logger     *slog.Logger
}

// NewResolutionHandler creates a ResolutionHandler with the given service and
// logger.
func NewResolutionHandler(settlement SettlementService, logger *slog.Logger) *ResolutionHandler {
	return &ResolutionHandler{settlement: settlement, logger: logger}
}

// resolveRequest is the body of POST /api/markets/{id}/resolve. The declared
// amounts must match the market's circulating supplies exactly.
type resolveRequest struct {
	WinningSide string `json:"winning_side"` // "yes" or "no"
	YesAmount   uint64 `json:"yes_amount"`
	NoAmount    uint64 `json:"no_amount"`
}

// Resolve declares the market outcome. Authority only.
// POST /api/markets/{id}/resolve
func (h *ResolutionHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	caller := callerID(r)
	if id == "" || caller == "" {
		writeError(w, http.StatusBadRequest, "missing market id or X-User-ID header")
		return
	}

	var req resolveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	winner, err := domain.ParseSide(req.WinningSide)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.settlement.Resolve(r.Context(), id, caller, winner, req.YesAmount, req.NoAmount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Redeem settles the caller's position in a resolved market.
// POST /api/markets/{id}/redeem
func (h *ResolutionHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	caller := callerID(r)
	if id == "" || caller == "" {
		writeError(w, http.StatusBadRequest, "missing market id or X-User-ID header")
		return
	}

	out, err := h.settlement.Redeem(r.Context(), id, caller)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
