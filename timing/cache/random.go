package cache

import (
	"math/rand"
)

// randomPolicySeed makes eviction sequences reproducible across runs of the
// same build on the same platform. Reproducibility is scoped to the process
// environment, not to bit-identical randomness across platforms.
const randomPolicySeed = 1

// randomPolicy keeps no per-row state. Each instance owns its generator, so
// fresh instances replaying the same access sequence evict the same ways.
type randomPolicy struct {
	associativity int
	setCount      int
	rng           *rand.Rand
}

func newRandomPolicy(associativity, setCount int) *randomPolicy {
	return &randomPolicy{
		associativity: associativity,
		setCount:      setCount,
		rng:           rand.New(rand.NewSource(randomPolicySeed)),
	}
}

// UpdateStats keeps no bookkeeping. The bounds contract still holds: an
// out-of-range way or row is a caller defect even when nothing is recorded.
func (p *randomPolicy) UpdateStats(way, row int, isValid bool) {
	mustValidRow(row, p.setCount)
	mustValidWay(way, p.associativity)
}

func (p *randomPolicy) SelectWayToEvict(row int) int {
	mustValidRow(row, p.setCount)

	return p.rng.Intn(p.associativity)
}
