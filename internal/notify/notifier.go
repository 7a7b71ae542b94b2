// Package notify fans market lifecycle alerts out to operator channels.
// Resolutions, monitored trade flow, and operational errors are pushed to
// every configured sender; the event filter lets an operator subscribe a
// deployment to only the kinds they want paged on.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Event names used across the engine. The config's notify.events list is
// matched against these.
const (
	EventTrade          = "trade"
	EventMarketResolved = "market_resolved"
	EventError          = "error"
)

// Note is one alert to deliver. Event carries the lifecycle kind so senders
// can tag or route the message.
type Note struct {
	Event string
	Title string
	Body  string
}

// Sender delivers a Note over one channel.
type Sender interface {
	Send(ctx context.Context, note Note) error
	// Name identifies the channel in logs, e.g. "telegram".
	Name() string
}

// Notifier dispatches notes to every registered sender, filtered by event
// kind. An empty filter allows everything.
type Notifier struct {
	senders []Sender
	allowed map[string]struct{}
	logger  *slog.Logger
}

// NewNotifier builds a Notifier delivering to senders. events lists the
// allowed event kinds; leave it empty to forward all of them.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]struct{}, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = struct{}{}
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers to all senders when the event kind passes the filter.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.allowed) > 0 {
		if _, ok := n.allowed[event]; !ok {
			n.logger.DebugContext(ctx, "event filtered out",
				slog.String("event", event),
			)
			return nil
		}
	}
	return n.dispatch(ctx, Note{Event: event, Title: title, Body: message})
}

// NotifyAll delivers regardless of the event filter. Used for alerts that
// must always page, like settlement failures.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, Note{Event: EventError, Title: title, Body: message})
}

// dispatch sends the note to every sender. One failing channel does not stop
// delivery to the rest; failures are joined into the returned error.
func (n *Notifier) dispatch(ctx context.Context, note Note) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, note); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("event", note.Event),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "alert delivered",
			slog.String("sender", s.Name()),
			slog.String("event", note.Event),
		)
	}
	return errors.Join(errs...)
}
