package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlotClockCurrent(t *testing.T) {
	genesis := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewSlotClock(genesis, 400*time.Millisecond)

	assert.Equal(t, uint64(0), clock.Current(genesis))
	assert.Equal(t, uint64(0), clock.Current(genesis.Add(399*time.Millisecond)))
	assert.Equal(t, uint64(1), clock.Current(genesis.Add(400*time.Millisecond)))
	assert.Equal(t, uint64(150), clock.Current(genesis.Add(time.Minute)))
}

func TestSlotClockPreGenesis(t *testing.T) {
	genesis := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewSlotClock(genesis, 400*time.Millisecond)

	assert.Equal(t, uint64(0), clock.Current(genesis.Add(-time.Hour)))
}

func TestSlotClockDefaultDuration(t *testing.T) {
	genesis := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewSlotClock(genesis, 0)

	// Zero duration falls back to the 400ms default.
	assert.Equal(t, uint64(2), clock.Current(genesis.Add(800*time.Millisecond)))
}

func TestSlotClockSlotTime(t *testing.T) {
	genesis := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewSlotClock(genesis, 400*time.Millisecond)

	assert.Equal(t, genesis, clock.SlotTime(0))
	assert.Equal(t, genesis.Add(4*time.Second), clock.SlotTime(10))

	// Round trip.
	slot := uint64(12345)
	assert.Equal(t, slot, clock.Current(clock.SlotTime(slot)))
}
