package cache

import (
	"github.com/sarchlab/rvsim/fault"
)

// A ReplacementPolicy keeps per-row recency or frequency bookkeeping for one
// cache and decides which way to evict on a capacity miss. Instances are not
// safe for concurrent use; the owning memory hierarchy serializes access.
type ReplacementPolicy interface {
	// UpdateStats records one access. With isValid the way becomes the
	// most favored in its row (a hit); without it the way becomes the
	// least favored (just invalidated, or about to be filled). Passing an
	// out-of-range way or row is a defect in the caller and raises a
	// Sanity fault.
	UpdateStats(way, row int, isValid bool)

	// SelectWayToEvict returns the way to evict from the given row. It is
	// a pure query and is valid immediately after construction: every row
	// starts in a well-defined default state.
	SelectWayToEvict(row int) int
}

// NewPolicy builds the replacement policy selected by the configuration. A
// disabled cache owns no policy, so nil is returned for it. The
// configuration is assumed pre-validated; an unknown policy kind in an
// enabled configuration is an internal defect.
func NewPolicy(cfg Config) ReplacementPolicy {
	if !cfg.Enabled {
		return nil
	}

	switch cfg.Policy {
	case PolicyRandom:
		return newRandomPolicy(cfg.Associativity, cfg.SetCount)
	case PolicyLRU:
		return newLRUPolicy(cfg.Associativity, cfg.SetCount)
	case PolicyLFU:
		return newLFUPolicy(cfg.Associativity, cfg.SetCount)
	}

	panic(fault.Internalf("unknown replacement policy %d", int(cfg.Policy)))
}

func mustValidRow(row, setCount int) {
	if row < 0 || row >= setCount {
		panic(fault.Internalf(
			"replacement policy row %d outside [0, %d)", row, setCount))
	}
}

func mustValidWay(way, associativity int) {
	if way < 0 || way >= associativity {
		panic(fault.Internalf(
			"replacement policy way %d outside [0, %d)",
			way, associativity))
	}
}
