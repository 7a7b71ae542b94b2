package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	name  string
	notes []Note
	err   error
}

func (s *recordingSender) Send(ctx context.Context, note Note) error {
	s.notes = append(s.notes, note)
	return s.err
}

func (s *recordingSender) Name() string { return s.name }

func testNotifyLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyFiltersEvents(t *testing.T) {
	s := &recordingSender{name: "a"}
	n := NewNotifier([]Sender{s}, []string{EventMarketResolved}, testNotifyLogger())
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, EventTrade, "Trade executed", "x"))
	assert.Empty(t, s.notes, "filtered event must not reach senders")

	require.NoError(t, n.Notify(ctx, EventMarketResolved, "Market resolved", "m1 yes"))
	require.Len(t, s.notes, 1)
	assert.Equal(t, EventMarketResolved, s.notes[0].Event)
	assert.Equal(t, "Market resolved", s.notes[0].Title)
}

func TestNotifyEmptyFilterAllowsAll(t *testing.T) {
	s := &recordingSender{name: "a"}
	n := NewNotifier([]Sender{s}, nil, testNotifyLogger())

	require.NoError(t, n.Notify(context.Background(), EventTrade, "t", "b"))
	assert.Len(t, s.notes, 1)
}

func TestNotifyDeliversPastFailingSender(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("webhook down")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, testNotifyLogger())

	err := n.Notify(context.Background(), EventError, "t", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.Len(t, good.notes, 1, "remaining senders still receive the note")
}

func TestNotifyAllBypassesFilter(t *testing.T) {
	s := &recordingSender{name: "a"}
	n := NewNotifier([]Sender{s}, []string{EventMarketResolved}, testNotifyLogger())

	require.NoError(t, n.NotifyAll(context.Background(), "Settlement failing", "details"))
	require.Len(t, s.notes, 1)
	assert.Equal(t, EventError, s.notes[0].Event)
}
