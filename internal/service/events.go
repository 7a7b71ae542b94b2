package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

// Pub/sub channels for live event fan-out.
const (
	ChannelTrade      = "ch:trade"
	ChannelMarket     = "ch:market"
	ChannelLiquidity  = "ch:liquidity"
	ChannelResolution = "ch:resolution"
)

// StreamTrades is the durable trade feed; consumers resume from their last
// seen stream ID after a restart.
const StreamTrades = "stream:trades"

// newEventRecord marshals a typed event into a persistable record.
func newEventRecord(marketID string, kind domain.EventKind, payload any, now time.Time) (domain.EventRecord, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return domain.EventRecord{}, fmt.Errorf("service: marshal %s event: %w", kind, err)
	}
	return domain.EventRecord{
		ID:        uuid.NewString(),
		MarketID:  marketID,
		Kind:      kind,
		Payload:   data,
		CreatedAt: now.UTC(),
	}, nil
}
