package cache

import (
	"math"
)

// lfuPolicy counts valid hits per way. A zero counter means the way is
// invalid or was never used, so zero-counter ways are filled before any real
// eviction happens. Counters saturate instead of wrapping: a wrap-around
// would turn the hottest way into the top eviction candidate.
type lfuPolicy struct {
	associativity int
	rows          [][]uint32
}

func newLFUPolicy(associativity, setCount int) *lfuPolicy {
	p := &lfuPolicy{
		associativity: associativity,
		rows:          make([][]uint32, setCount),
	}

	for r := range p.rows {
		p.rows[r] = make([]uint32, associativity)
	}

	return p
}

func (p *lfuPolicy) UpdateStats(way, row int, isValid bool) {
	mustValidRow(row, len(p.rows))
	mustValidWay(way, p.associativity)

	if !isValid {
		p.rows[row][way] = 0
		return
	}

	if p.rows[row][way] != math.MaxUint32 {
		p.rows[row][way]++
	}
}

// SelectWayToEvict picks the first zero-counter way if any, otherwise the
// lowest counter. Ties resolve to the lowest way index.
func (p *lfuPolicy) SelectWayToEvict(row int) int {
	mustValidRow(row, len(p.rows))

	stats := p.rows[row]

	victim := 0
	lowest := stats[0]
	for i, count := range stats {
		if count == 0 {
			return i
		}
		if count < lowest {
			lowest = count
			victim = i
		}
	}

	return victim
}
