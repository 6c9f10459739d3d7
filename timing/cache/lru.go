package cache

import (
	"github.com/sarchlab/rvsim/fault"
)

// lruPolicy orders the ways of each row by recency. The front of a row is
// the next victim, the back is the most recently used way. Each row is a
// permutation of [0, associativity) at all times.
type lruPolicy struct {
	associativity int
	rows          [][]int
}

func newLRUPolicy(associativity, setCount int) *lruPolicy {
	p := &lruPolicy{
		associativity: associativity,
		rows:          make([][]int, setCount),
	}

	for r := range p.rows {
		row := make([]int, associativity)
		for i := range row {
			row[i] = i
		}
		p.rows[r] = row
	}

	return p
}

// UpdateStats reorders the row in a single O(associativity) pass: the way is
// pulled out of its current position and the elements between it and the
// target end shift by one.
func (p *lruPolicy) UpdateStats(way, row int, isValid bool) {
	mustValidRow(row, len(p.rows))
	mustValidWay(way, p.associativity)

	stats := p.rows[row]

	pos := -1
	for i, w := range stats {
		if w == way {
			pos = i
			break
		}
	}
	if pos < 0 {
		panic(fault.Internalf(
			"LRU lost way %d from the order of row %d", way, row))
	}

	if isValid {
		copy(stats[pos:], stats[pos+1:])
		stats[p.associativity-1] = way
	} else {
		copy(stats[1:pos+1], stats[:pos])
		stats[0] = way
	}
}

func (p *lruPolicy) SelectWayToEvict(row int) int {
	mustValidRow(row, len(p.rows))

	return p.rows[row][0]
}
