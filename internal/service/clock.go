// Package service implements the application services that connect the pure
// pricing engine to storage, caching, locking, and event fan-out.
package service

import "time"

// SlotClock maps wall-clock time onto the engine's slot numbering. Markets
// express their trading windows in slots; the clock pins slot zero to a
// configured genesis instant.
type SlotClock struct {
	genesis  time.Time
	duration time.Duration
}

// NewSlotClock creates a SlotClock. A zero duration selects 400ms slots.
func NewSlotClock(genesis time.Time, duration time.Duration) *SlotClock {
	if duration <= 0 {
		duration = 400 * time.Millisecond
	}
	return &SlotClock{genesis: genesis.UTC(), duration: duration}
}

// Current returns the slot containing now. Instants before genesis map to
// slot zero.
func (c *SlotClock) Current(now time.Time) uint64 {
	elapsed := now.UTC().Sub(c.genesis)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / c.duration)
}

// SlotTime returns the wall-clock start of the given slot.
func (c *SlotClock) SlotTime(slot uint64) time.Time {
	return c.genesis.Add(time.Duration(slot) * c.duration)
}
