package cache

import (
	"encoding/json"
	"fmt"
	"os"
)

// PolicyKind selects the replacement policy of a cache. The set is closed by
// configuration; there is no open extension point.
type PolicyKind int

const (
	// PolicyRandom evicts a uniformly drawn way.
	PolicyRandom PolicyKind = iota
	// PolicyLRU evicts the least recently used way.
	PolicyLRU
	// PolicyLFU evicts the least frequently used way.
	PolicyLFU
)

var policyKindNames = map[PolicyKind]string{
	PolicyRandom: "random",
	PolicyLRU:    "lru",
	PolicyLFU:    "lfu",
}

// String returns the config-file spelling of the policy kind.
func (k PolicyKind) String() string {
	if name, ok := policyKindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("PolicyKind(%d)", int(k))
}

// MarshalJSON encodes the kind as its config-file spelling.
func (k PolicyKind) MarshalJSON() ([]byte, error) {
	name, ok := policyKindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown replacement policy %d", int(k))
	}

	return json.Marshal(name)
}

// UnmarshalJSON decodes "random", "lru", or "lfu".
func (k *PolicyKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}

	for kind, n := range policyKindNames {
		if n == name {
			*k = kind
			return nil
		}
	}

	return fmt.Errorf("unknown replacement policy %q", name)
}

// Config describes one cache instance. It is immutable once the cache is
// built; the owning memory hierarchy validates it before use.
type Config struct {
	// Enabled controls whether the cache exists at all. A disabled cache
	// owns no replacement policy instance.
	Enabled bool `json:"enabled"`

	// Associativity is the number of ways per set.
	Associativity int `json:"associativity"`

	// SetCount is the number of sets (rows).
	SetCount int `json:"set_count"`

	// BlockSize is the cache line size in bytes.
	BlockSize int `json:"block_size"`

	// Policy selects the replacement policy.
	Policy PolicyKind `json:"replacement_policy"`
}

// DefaultConfig returns a small enabled LRU cache configuration: 4-way, 64
// sets, 64B lines (16KB).
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		Associativity: 4,
		SetCount:      64,
		BlockSize:     64,
		Policy:        PolicyLRU,
	}
}

// LoadConfig loads a Config from a JSON file. Missing fields keep their
// default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse cache config: %w", err)
	}

	return &config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize cache config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache config file: %w", err)
	}

	return nil
}

// Validate checks that an enabled configuration describes a buildable cache.
// A disabled configuration is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Associativity <= 0 {
		return fmt.Errorf("associativity must be > 0")
	}
	if c.SetCount <= 0 {
		return fmt.Errorf("set_count must be > 0")
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("block_size must be > 0")
	}
	if _, ok := policyKindNames[c.Policy]; !ok {
		return fmt.Errorf("unknown replacement policy %d", int(c.Policy))
	}

	return nil
}
