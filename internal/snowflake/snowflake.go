// Package snowflake issues time-ordered 64-bit IDs without coordination.
//
// Layout: 41 bits of milliseconds since the 2024-01-01 epoch, 10 bits of
// machine ID, 12 bits of per-millisecond sequence. Two generators with
// distinct machine IDs never collide.
package snowflake

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Epoch is 2024-01-01 00:00:00 UTC in Unix milliseconds.
const Epoch = 1704067200000

const (
	machineBits  = 10
	sequenceBits = 12

	// MaxMachineID is the largest valid machine ID (10 bits).
	MaxMachineID = 1<<machineBits - 1

	maxSequence = 1<<sequenceBits - 1
)

// ErrClockBackwards is returned when the wall clock is observed behind the
// last issued tick. The generator cannot guarantee monotonic IDs after this;
// callers must treat it as fatal for the process.
var ErrClockBackwards = errors.New("snowflake: clock moved backwards, refusing to generate id")

// Generator issues unique IDs. Safe for concurrent use.
type Generator struct {
	mu        sync.Mutex
	machineID int64
	sequence  int64
	lastTick  int64

	// now is swappable for tests.
	now func() int64
}

// New creates a generator for the given machine ID.
func New(machineID int64) (*Generator, error) {
	if machineID < 0 || machineID > MaxMachineID {
		return nil, fmt.Errorf("snowflake: machine ID must be between 0 and %d, got %d", MaxMachineID, machineID)
	}
	return &Generator{
		machineID: machineID,
		lastTick:  -1,
		now:       func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// NextID returns the next unique ID. IDs are non-decreasing in issuance
// order. When the sequence field saturates within a millisecond the call
// blocks until the clock advances to the next tick.
func (g *Generator) NextID() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	tick := g.now()
	if tick < g.lastTick {
		return 0, ErrClockBackwards
	}

	if tick == g.lastTick {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			tick = g.waitNextTick(g.lastTick)
		}
	} else {
		g.sequence = 0
	}

	g.lastTick = tick

	id := (tick-Epoch)<<(machineBits+sequenceBits) |
		g.machineID<<sequenceBits |
		g.sequence
	return id, nil
}

// ExtractTime recovers the issuance timestamp from an ID, at millisecond
// resolution. Pure inverse of the timestamp packing in NextID.
func ExtractTime(id int64) time.Time {
	ms := id>>(machineBits+sequenceBits) + Epoch
	return time.UnixMilli(ms).UTC()
}

// waitNextTick spins until the clock passes last, sleeping briefly each
// round so the wait does not peg a core.
func (g *Generator) waitNextTick(last int64) int64 {
	tick := g.now()
	for tick <= last {
		time.Sleep(50 * time.Microsecond)
		tick = g.now()
	}
	return tick
}
