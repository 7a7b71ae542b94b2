package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/alanyoungcy/curvemarket/internal/domain"
)

// memDB is a single in-memory backing store shared by all fake store handles.
type memDB struct {
	params  *domain.Params
	markets map[string]domain.Market
	users   map[string]domain.UserInfo
	events  []domain.EventRecord
}

func newMemDB() *memDB {
	return &memDB{
		markets: make(map[string]domain.Market),
		users:   make(map[string]domain.UserInfo),
	}
}

func (db *memDB) stores() domain.Stores {
	return domain.Stores{
		Params:  (*memParamsStore)(db),
		Markets: (*memMarketStore)(db),
		Users:   (*memUserStore)(db),
		Events:  (*memEventStore)(db),
	}
}

func userKey(marketID, user string) string { return marketID + "/" + user }

type memParamsStore memDB

func (s *memParamsStore) Get(ctx context.Context) (domain.Params, error) {
	if s.params == nil {
		return domain.Params{}, domain.ErrNotFound
	}
	return *s.params, nil
}

func (s *memParamsStore) Put(ctx context.Context, p domain.Params) error {
	s.params = &p
	return nil
}

type memMarketStore memDB

func (s *memMarketStore) Create(ctx context.Context, m domain.Market) error {
	if _, ok := s.markets[m.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.markets[m.ID] = m
	return nil
}

func (s *memMarketStore) Get(ctx context.Context, id string) (domain.Market, error) {
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *memMarketStore) Update(ctx context.Context, m domain.Market) error {
	if _, ok := s.markets[m.ID]; !ok {
		return domain.ErrNotFound
	}
	s.markets[m.ID] = m
	return nil
}

func (s *memMarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	out := make([]domain.Market, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memMarketStore) Count(ctx context.Context) (int64, error) {
	return int64(len(s.markets)), nil
}

type memUserStore memDB

func (s *memUserStore) Get(ctx context.Context, marketID, user string) (domain.UserInfo, error) {
	u, ok := s.users[userKey(marketID, user)]
	if !ok {
		return domain.UserInfo{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *memUserStore) Upsert(ctx context.Context, u domain.UserInfo) error {
	s.users[userKey(u.MarketID, u.User)] = u
	return nil
}

func (s *memUserStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.UserInfo, error) {
	var out []domain.UserInfo
	for _, u := range s.users {
		if u.MarketID == marketID {
			out = append(out, u)
		}
	}
	return out, nil
}

type memEventStore memDB

func (s *memEventStore) Append(ctx context.Context, rec domain.EventRecord) error {
	s.events = append(s.events, rec)
	return nil
}

func (s *memEventStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.EventRecord, error) {
	var out []domain.EventRecord
	for _, rec := range s.events {
		if rec.MarketID == marketID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// eventKinds returns the kinds of all recorded events for a market, in order.
func (db *memDB) eventKinds(marketID string) []domain.EventKind {
	var kinds []domain.EventKind
	for _, rec := range db.events {
		if rec.MarketID == marketID {
			kinds = append(kinds, rec.Kind)
		}
	}
	return kinds
}

// memTx runs the callback against the shared memDB. It does not emulate
// rollback; tests that exercise failure paths assert on returned errors, not
// on partial state.
type memTx struct {
	db *memDB
}

func (t *memTx) WithinTx(ctx context.Context, fn func(ctx context.Context, s domain.Stores) error) error {
	return fn(ctx, t.db.stores())
}

type fakeCache struct {
	entries       map[string]domain.Market
	invalidations int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]domain.Market)}
}

func (c *fakeCache) Set(ctx context.Context, m domain.Market) error {
	c.entries[m.ID] = m
	return nil
}

func (c *fakeCache) Get(ctx context.Context, id string) (domain.Market, error) {
	m, ok := c.entries[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (c *fakeCache) Invalidate(ctx context.Context, id string) error {
	delete(c.entries, id)
	c.invalidations++
	return nil
}

type fakeLocks struct {
	held     bool
	acquired int
	released int
}

func (l *fakeLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l.held {
		return nil, domain.ErrLockHeld
	}
	l.acquired++
	return func() { l.released++ }, nil
}

type fakeLimiter struct {
	allow bool
	calls int
}

func (rl *fakeLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	rl.calls++
	return rl.allow, nil
}

type fakeBus struct {
	published map[string][][]byte
	streams   map[string][][]byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		published: make(map[string][][]byte),
		streams:   make(map[string][][]byte),
	}
}

func (b *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *fakeBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	b.streams[stream] = append(b.streams[stream], payload)
	return nil
}

func (b *fakeBus) StreamRead(ctx context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error) {
	var out []domain.StreamMessage
	for i, p := range b.streams[stream] {
		out = append(out, domain.StreamMessage{ID: string(rune('0' + i)), Payload: p})
	}
	return out, nil
}

type fakeNotifier struct {
	events []string
}

func (n *fakeNotifier) Notify(ctx context.Context, event, title, message string) error {
	n.events = append(n.events, event)
	return nil
}

type fakeArchiver struct {
	archived []string
}

func (a *fakeArchiver) ArchiveMarketEvents(ctx context.Context, marketID string) (int64, error) {
	a.archived = append(a.archived, marketID)
	return 1, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testServiceParams() domain.Params {
	return domain.Params{
		Authority:            "alice",
		TeamWallet:           "team-wallet",
		PlatformBuyFeeBps:    100,
		PlatformSellFeeBps:   100,
		LPBuyFeeBps:          100,
		LPSellFeeBps:         100,
		TokenSupply:          1_000_000_000_000,
		TokenDecimals:        6,
		InitialTokenReserves: 1_000_000_000_000,
		MinSolLiquidity:      30_000_000,
		Initialized:          true,
	}
}
