package cache_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/fault"
	"github.com/sarchlab/rvsim/timing/cache"
)

func policyConfig(kind cache.PolicyKind, assoc, sets int) cache.Config {
	return cache.Config{
		Enabled:       true,
		Associativity: assoc,
		SetCount:      sets,
		BlockSize:     64,
		Policy:        kind,
	}
}

// beSanityFault matches a panic value that is a Sanity-kind fault.
func beSanityFault() OmegaMatcher {
	return PanicWith(WithTransform(func(f *fault.Fault) fault.Kind {
		return f.Kind
	}, Equal(fault.Sanity)))
}

var _ = Describe("NewPolicy", func() {
	It("should return no instance for a disabled cache", func() {
		cfg := policyConfig(cache.PolicyLRU, 4, 8)
		cfg.Enabled = false

		Expect(cache.NewPolicy(cfg)).To(BeNil())
	})

	It("should build one instance per configured kind", func() {
		for _, kind := range []cache.PolicyKind{
			cache.PolicyRandom,
			cache.PolicyLRU,
			cache.PolicyLFU,
		} {
			Expect(cache.NewPolicy(policyConfig(kind, 4, 8))).NotTo(BeNil())
		}
	})

	It("should reject a policy kind outside the closed set", func() {
		cfg := policyConfig(cache.PolicyKind(42), 4, 8)

		Expect(func() { cache.NewPolicy(cfg) }).To(beSanityFault())
	})
})

var _ = Describe("LRU policy", func() {
	var p cache.ReplacementPolicy

	BeforeEach(func() {
		p = cache.NewPolicy(policyConfig(cache.PolicyLRU, 4, 8))
	})

	It("should evict way 0 of every row right after construction", func() {
		for row := 0; row < 8; row++ {
			Expect(p.SelectWayToEvict(row)).To(Equal(0))
		}
	})

	It("should not evict the way that was just hit", func() {
		for way := 0; way < 4; way++ {
			p.UpdateStats(way, 3, true)
			Expect(p.SelectWayToEvict(3)).NotTo(Equal(way))
		}
	})

	It("should evict the way that was just invalidated", func() {
		p.UpdateStats(0, 2, true)
		p.UpdateStats(1, 2, true)
		p.UpdateStats(2, 2, true)
		p.UpdateStats(3, 2, true)

		p.UpdateStats(1, 2, false)
		Expect(p.SelectWayToEvict(2)).To(Equal(1))
	})

	It("should walk the scenario for associativity 2", func() {
		p := cache.NewPolicy(policyConfig(cache.PolicyLRU, 2, 1))

		Expect(p.SelectWayToEvict(0)).To(Equal(0))

		p.UpdateStats(0, 0, true)
		Expect(p.SelectWayToEvict(0)).To(Equal(1))

		p.UpdateStats(1, 0, true)
		Expect(p.SelectWayToEvict(0)).To(Equal(0))
	})

	It("should always evict the same way with associativity 1", func() {
		p := cache.NewPolicy(policyConfig(cache.PolicyLRU, 1, 4))

		p.UpdateStats(0, 1, true)
		Expect(p.SelectWayToEvict(1)).To(Equal(0))
	})

	It("should evict each way exactly once when cycling a full row", func() {
		// With 4 ways, hitting the victim after each eviction visits
		// every way before repeating: the order stays a permutation.
		seen := map[int]bool{}
		for i := 0; i < 4; i++ {
			way := p.SelectWayToEvict(5)
			Expect(seen[way]).To(BeFalse())
			seen[way] = true
			p.UpdateStats(way, 5, true)
		}
		Expect(seen).To(HaveLen(4))
	})

	It("should keep rows independent under a random access mix", func() {
		rng := rand.New(rand.NewSource(99))
		for i := 0; i < 1000; i++ {
			p.UpdateStats(rng.Intn(4), rng.Intn(8), rng.Intn(2) == 0)
		}

		// Every row must still name a valid way.
		for row := 0; row < 8; row++ {
			way := p.SelectWayToEvict(row)
			Expect(way).To(BeNumerically(">=", 0))
			Expect(way).To(BeNumerically("<", 4))
		}
	})
})

var _ = Describe("LFU policy", func() {
	var p cache.ReplacementPolicy

	BeforeEach(func() {
		p = cache.NewPolicy(policyConfig(cache.PolicyLFU, 4, 8))
	})

	It("should evict way 0 of every row right after construction", func() {
		for row := 0; row < 8; row++ {
			Expect(p.SelectWayToEvict(row)).To(Equal(0))
		}
	})

	It("should prefer a never-used way over any used way", func() {
		// Ways 0 and 1 get heavy use; ways 2 and 3 stay at zero.
		for i := 0; i < 100; i++ {
			p.UpdateStats(0, 0, true)
			p.UpdateStats(1, 0, true)
		}

		Expect(p.SelectWayToEvict(0)).To(Equal(2))
	})

	It("should evict an invalidated way ahead of any used way", func() {
		for way := 0; way < 4; way++ {
			for i := 0; i <= way; i++ {
				p.UpdateStats(way, 1, true)
			}
		}
		// Counters are now [1, 2, 3, 4].
		p.UpdateStats(3, 1, false)

		Expect(p.SelectWayToEvict(1)).To(Equal(3))
	})

	It("should prefer the lower index when an invalidated way ties "+
		"with a never-used one", func() {
		p.UpdateStats(0, 2, true)
		p.UpdateStats(1, 2, true)
		p.UpdateStats(2, 2, true)
		p.UpdateStats(3, 2, true)

		p.UpdateStats(2, 2, false)
		Expect(p.SelectWayToEvict(2)).To(Equal(2))

		p.UpdateStats(1, 2, false)
		Expect(p.SelectWayToEvict(2)).To(Equal(1))
	})

	It("should walk the scenario for associativity 2", func() {
		p := cache.NewPolicy(policyConfig(cache.PolicyLFU, 2, 1))

		Expect(p.SelectWayToEvict(0)).To(Equal(0))

		p.UpdateStats(0, 0, true)
		Expect(p.SelectWayToEvict(0)).To(Equal(1))

		p.UpdateStats(1, 0, true)
		Expect(p.SelectWayToEvict(0)).To(Equal(0))
	})

	It("should pick the least frequently used way", func() {
		counts := []int{5, 3, 7, 4}
		for way, n := range counts {
			for i := 0; i < n; i++ {
				p.UpdateStats(way, 6, true)
			}
		}

		Expect(p.SelectWayToEvict(6)).To(Equal(1))
	})
})

var _ = Describe("Random policy", func() {
	It("should stay within the way range", func() {
		p := cache.NewPolicy(policyConfig(cache.PolicyRandom, 4, 8))

		for i := 0; i < 1000; i++ {
			way := p.SelectWayToEvict(i % 8)
			Expect(way).To(BeNumerically(">=", 0))
			Expect(way).To(BeNumerically("<", 4))
		}
	})

	It("should give identical eviction sequences to fresh instances", func() {
		cfg := policyConfig(cache.PolicyRandom, 4, 8)
		p1 := cache.NewPolicy(cfg)
		p2 := cache.NewPolicy(cfg)

		for i := 0; i < 1000; i++ {
			Expect(p1.SelectWayToEvict(i % 8)).
				To(Equal(p2.SelectWayToEvict(i % 8)))
		}
	})

	It("should draw the same sequence with interleaved bookkeeping", func() {
		cfg := policyConfig(cache.PolicyRandom, 4, 8)
		p1 := cache.NewPolicy(cfg)
		p2 := cache.NewPolicy(cfg)

		// UpdateStats is a no-op for the random policy: interleaving it
		// must not change the draw sequence.
		for i := 0; i < 100; i++ {
			p1.UpdateStats(i%4, i%8, true)
			Expect(p1.SelectWayToEvict(i % 8)).
				To(Equal(p2.SelectWayToEvict(i % 8)))
		}
	})
})

var _ = Describe("Policy bounds", func() {
	kinds := []cache.PolicyKind{
		cache.PolicyRandom,
		cache.PolicyLRU,
		cache.PolicyLFU,
	}

	It("should raise a Sanity fault for an out-of-range row", func() {
		for _, kind := range kinds {
			p := cache.NewPolicy(policyConfig(kind, 4, 8))

			Expect(func() { p.UpdateStats(0, 8, true) }).To(beSanityFault())
			Expect(func() { p.UpdateStats(0, -1, true) }).To(beSanityFault())
			Expect(func() { p.SelectWayToEvict(8) }).To(beSanityFault())
			Expect(func() { p.SelectWayToEvict(-1) }).To(beSanityFault())
		}
	})

	It("should raise a Sanity fault for an out-of-range way", func() {
		for _, kind := range kinds {
			p := cache.NewPolicy(policyConfig(kind, 4, 8))

			Expect(func() { p.UpdateStats(4, 0, true) }).To(beSanityFault())
			Expect(func() { p.UpdateStats(-1, 0, false) }).To(beSanityFault())
		}
	})

	It("should leave state intact after a rejected call", func() {
		p := cache.NewPolicy(policyConfig(cache.PolicyLRU, 2, 2))
		p.UpdateStats(0, 0, true)

		Expect(func() { p.UpdateStats(5, 0, true) }).To(beSanityFault())
		Expect(p.SelectWayToEvict(0)).To(Equal(1))
	})
})
