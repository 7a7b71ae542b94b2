package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/curvemarket/internal/domain"
	"github.com/alanyoungcy/curvemarket/internal/service"
)

// MarketService defines the methods the market handler requires from the
// service layer.
type MarketService interface {
	CreateMarket(ctx context.Context, in service.CreateMarketInput) (domain.Market, error)
	GetMarket(ctx context.Context, id string) (domain.Market, error)
	GetUserInfo(ctx context.Context, marketID, user string) (domain.UserInfo, error)
	ListMarkets(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error)
	Count(ctx context.Context) (int64, error)
	ListEvents(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.EventRecord, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{markets: markets, logger: logger}
}

// createMarketRequest is the body of POST /api/markets.
type createMarketRequest struct {
	Question   string  `json:"question"`
	StartSlot  *uint64 `json:"start_slot,omitempty"`
	EndingSlot *uint64 `json:"ending_slot,omitempty"`
}

// CreateMarket creates a new dual-curve market.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	caller := callerID(r)
	if caller == "" {
		writeError(w, http.StatusBadRequest, "missing X-User-ID header")
		return
	}

	var req createMarketRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	m, err := h.markets.CreateMarket(r.Context(), service.CreateMarketInput{
		Creator:    caller,
		Question:   req.Question,
		StartSlot:  req.StartSlot,
		EndingSlot: req.EndingSlot,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListMarkets returns markets with pagination, newest first.
// GET /api/markets?limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	markets, err := h.markets.ListMarkets(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}

	total, err := h.markets.Count(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: count markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to count markets")
		return
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	market, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get market failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get market")
		return
	}

	writeJSON(w, http.StatusOK, market)
}

// GetUserInfo returns the caller's balances in a market.
// GET /api/markets/{id}/user
func (h *MarketHandler) GetUserInfo(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	caller := callerID(r)
	if id == "" || caller == "" {
		writeError(w, http.StatusBadRequest, "missing market id or X-User-ID header")
		return
	}

	u, err := h.markets.GetUserInfo(r.Context(), id, caller)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get user info failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get user info")
		return
	}

	writeJSON(w, http.StatusOK, u)
}

// ListEvents returns a market's event log, oldest first.
// GET /api/markets/{id}/events
func (h *MarketHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	events, err := h.markets.ListEvents(r.Context(), id, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list events failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
