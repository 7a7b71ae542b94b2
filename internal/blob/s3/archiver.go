package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

// Archiver uploads a market's full event history to object storage as JSONL.
// It runs after resolution, when the log is final; records are not deleted
// from the primary store here.
type Archiver struct {
	writer domain.BlobWriter
	events domain.EventStore
}

// NewArchiver creates an Archiver reading from events and writing through
// writer.
func NewArchiver(writer domain.BlobWriter, events domain.EventStore) *Archiver {
	return &Archiver{writer: writer, events: events}
}

// ArchiveMarketEvents serializes every event of the market to JSONL and
// uploads it to archive/markets/<id>/events.jsonl. It returns the number of
// archived records; zero records skips the upload.
func (a *Archiver) ArchiveMarketEvents(ctx context.Context, marketID string) (int64, error) {
	events, err := a.events.ListByMarket(ctx, marketID, domain.ListOpts{})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive events query %s: %w", marketID, err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(events)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive events marshal %s: %w", marketID, err)
	}

	path := fmt.Sprintf("archive/markets/%s/events.jsonl", marketID)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), ContentTypeNDJSON); err != nil {
		return 0, fmt.Errorf("s3blob: archive events upload %s: %w", marketID, err)
	}

	return int64(len(events)), nil
}

// marshalJSONL serializes records as newline-delimited JSON, one compact line
// per record.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
