// Package cache models a set-associative cache and the replacement policies
// that decide its evictions.
package cache

import (
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"

	"github.com/sarchlab/rvsim/fault"
)

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool

	// Set and Way locate the block that served the access.
	Set int
	Way int

	// Data is the value read (for read operations).
	Data uint64

	// Evicted is true if a valid block was evicted to serve the access.
	Evicted bool

	// EvictedAddr is the block address of the evicted block.
	EvictedAddr uint64
}

// Statistics holds cache access counters.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// BackingStore is the next level of the memory hierarchy.
type BackingStore interface {
	// Read fetches size bytes from the backing store.
	Read(addr uint64, size int) []byte

	// Write stores data to the backing store.
	Write(addr uint64, data []byte)
}

// block holds the tag state of one (set, way) slot. Data lives in the
// storage, addressed by the slot position.
type block struct {
	tag   uint64
	valid bool
	dirty bool
}

// Cache is a set-associative cache. It owns one replacement policy instance
// and drives it on every access. Write misses allocate; evicted dirty blocks
// are written back.
type Cache struct {
	config  Config
	policy  ReplacementPolicy
	sets    [][]block
	storage *mem.Storage
	backing BackingStore
	stats   Statistics
}

// New builds a cache from an enabled, valid configuration.
func New(cfg Config, backing BackingStore) (*Cache, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("cannot build a disabled cache")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	c := &Cache{
		config:  cfg,
		backing: backing,
	}
	c.reset()

	return c, nil
}

func (c *Cache) reset() {
	c.policy = NewPolicy(c.config)
	c.sets = make([][]block, c.config.SetCount)
	for i := range c.sets {
		c.sets[i] = make([]block, c.config.Associativity)
	}

	totalBytes := uint64(c.config.SetCount) *
		uint64(c.config.Associativity) * uint64(c.config.BlockSize)
	c.storage = mem.NewStorage(totalBytes)
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Policy returns the replacement policy instance owned by the cache.
func (c *Cache) Policy() ReplacementPolicy {
	return c.policy
}

// Stats returns the access counters.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears the access counters.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockAddr(addr uint64) uint64 {
	return addr / uint64(c.config.BlockSize) * uint64(c.config.BlockSize)
}

func (c *Cache) setIndex(blockAddr uint64) int {
	return int(blockAddr / uint64(c.config.BlockSize) %
		uint64(c.config.SetCount))
}

// cacheAddr is the address of a slot's data inside the cache storage.
func (c *Cache) cacheAddr(set, way int) uint64 {
	return uint64(set*c.config.Associativity+way) *
		uint64(c.config.BlockSize)
}

// lookup scans the set of the address for a valid matching tag.
func (c *Cache) lookup(blockAddr uint64) (set, way int, ok bool) {
	set = c.setIndex(blockAddr)
	for w, b := range c.sets[set] {
		if b.valid && b.tag == blockAddr {
			return set, w, true
		}
	}

	return set, 0, false
}

func (c *Cache) readBlock(set, way int) []byte {
	data, err := c.storage.Read(
		c.cacheAddr(set, way), uint64(c.config.BlockSize))
	if err != nil {
		panic(fault.Internalf(
			"cache storage read failed for set %d way %d: %v",
			set, way, err))
	}

	return data
}

func (c *Cache) writeBlock(set, way int, data []byte) {
	err := c.storage.Write(c.cacheAddr(set, way), data)
	if err != nil {
		panic(fault.Internalf(
			"cache storage write failed for set %d way %d: %v",
			set, way, err))
	}
}

// Read performs a cache read of size bytes at addr.
func (c *Cache) Read(addr uint64, size int) AccessResult {
	c.stats.Reads++

	blockAddr := c.blockAddr(addr)
	set, way, ok := c.lookup(blockAddr)

	if ok {
		c.stats.Hits++
		c.policy.UpdateStats(way, set, true)

		data := c.readBlock(set, way)
		return AccessResult{
			Hit:  true,
			Set:  set,
			Way:  way,
			Data: extractData(data, addr%uint64(c.config.BlockSize), size),
		}
	}

	c.stats.Misses++
	return c.handleMiss(addr, size, false, 0)
}

// Write performs a cache write of size bytes at addr. Misses allocate the
// block before writing.
func (c *Cache) Write(addr uint64, size int, value uint64) AccessResult {
	c.stats.Writes++

	blockAddr := c.blockAddr(addr)
	set, way, ok := c.lookup(blockAddr)

	if ok {
		c.stats.Hits++
		c.policy.UpdateStats(way, set, true)

		data := c.readBlock(set, way)
		storeData(data, addr%uint64(c.config.BlockSize), size, value)
		c.writeBlock(set, way, data)
		c.sets[set][way].dirty = true

		return AccessResult{Hit: true, Set: set, Way: way}
	}

	c.stats.Misses++
	return c.handleMiss(addr, size, true, value)
}

// handleMiss fills a block from the backing store, evicting the way the
// replacement policy selects.
func (c *Cache) handleMiss(
	addr uint64,
	size int,
	isWrite bool,
	writeValue uint64,
) AccessResult {
	blockAddr := c.blockAddr(addr)
	set := c.setIndex(blockAddr)
	way := c.policy.SelectWayToEvict(set)

	result := AccessResult{Set: set, Way: way}

	victim := &c.sets[set][way]
	if victim.valid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.tag

		if victim.dirty {
			c.stats.Writebacks++
			c.backing.Write(victim.tag, c.readBlock(set, way))
		}
	}

	data := c.backing.Read(blockAddr, c.config.BlockSize)

	victim.tag = blockAddr
	victim.valid = true
	victim.dirty = false

	offset := addr % uint64(c.config.BlockSize)
	if isWrite {
		storeData(data, offset, size, writeValue)
		victim.dirty = true
	} else {
		result.Data = extractData(data, offset, size)
	}
	c.writeBlock(set, way, data)

	// The freshly filled way becomes the most favored one.
	c.policy.UpdateStats(way, set, true)

	return result
}

// Invalidate drops the block holding addr, if present, without writing it
// back. The way becomes the next eviction candidate of its set.
func (c *Cache) Invalidate(addr uint64) {
	set, way, ok := c.lookup(c.blockAddr(addr))
	if !ok {
		return
	}

	c.sets[set][way].valid = false
	c.sets[set][way].dirty = false
	c.policy.UpdateStats(way, set, false)
}

// Flush writes back all dirty blocks and invalidates everything.
func (c *Cache) Flush() {
	for set := range c.sets {
		for way := range c.sets[set] {
			b := &c.sets[set][way]
			if b.valid && b.dirty {
				c.stats.Writebacks++
				c.backing.Write(b.tag, c.readBlock(set, way))
			}
			if b.valid {
				b.valid = false
				b.dirty = false
				c.policy.UpdateStats(way, set, false)
			}
		}
	}
}

// Reset drops all cache state, including the policy bookkeeping and the
// counters, without writing anything back.
func (c *Cache) Reset() {
	c.reset()
	c.stats = Statistics{}
}

// extractData reads a little-endian value of the given size from data.
// Accesses crossing the block boundary read as zero.
func extractData(data []byte, offset uint64, size int) uint64 {
	if int(offset)+size > len(data) {
		return 0
	}

	var result uint64
	for i := 0; i < size; i++ {
		result |= uint64(data[int(offset)+i]) << (i * 8)
	}

	return result
}

// storeData writes a little-endian value of the given size into data.
// Accesses crossing the block boundary are dropped.
func storeData(data []byte, offset uint64, size int, value uint64) {
	if int(offset)+size > len(data) {
		return
	}

	for i := 0; i < size; i++ {
		data[int(offset)+i] = byte(value >> (i * 8))
	}
}
