package cache_test

import (
	"encoding/json"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/timing/cache"
)

var _ = Describe("Config", func() {
	It("should accept the default configuration", func() {
		cfg := cache.DefaultConfig()
		Expect(cfg.Validate()).To(Succeed())
	})

	It("should accept any disabled configuration", func() {
		cfg := cache.Config{Enabled: false}
		Expect(cfg.Validate()).To(Succeed())
	})

	It("should reject a zero associativity", func() {
		cfg := cache.DefaultConfig()
		cfg.Associativity = 0
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("should reject a zero set count", func() {
		cfg := cache.DefaultConfig()
		cfg.SetCount = 0
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("should reject a policy outside the closed set", func() {
		cfg := cache.DefaultConfig()
		cfg.Policy = cache.PolicyKind(42)
		Expect(cfg.Validate()).To(HaveOccurred())
	})

	It("should decode policy names from config files", func() {
		var cfg cache.Config
		err := json.Unmarshal([]byte(`{
			"enabled": true,
			"associativity": 2,
			"set_count": 8,
			"block_size": 32,
			"replacement_policy": "lfu"
		}`), &cfg)

		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Policy).To(Equal(cache.PolicyLFU))
		Expect(cfg.Associativity).To(Equal(2))
	})

	It("should reject an unknown policy name", func() {
		var cfg cache.Config
		err := json.Unmarshal(
			[]byte(`{"replacement_policy": "mru"}`), &cfg)

		Expect(err).To(HaveOccurred())
	})

	It("should survive a save and load round trip", func() {
		path := filepath.Join(GinkgoT().TempDir(), "cache.json")

		cfg := cache.DefaultConfig()
		cfg.Policy = cache.PolicyRandom
		cfg.SetCount = 128
		Expect(cfg.SaveConfig(path)).To(Succeed())

		loaded, err := cache.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(*loaded).To(Equal(cfg))
	})

	It("should report a missing config file", func() {
		_, err := cache.LoadConfig("does/not/exist.json")
		Expect(err).To(HaveOccurred())
	})
})
