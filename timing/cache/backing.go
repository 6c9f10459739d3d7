package cache

import (
	"github.com/sarchlab/akita/v4/mem/mem"

	"github.com/sarchlab/rvsim/fault"
)

// StorageBacking adapts an akita mem.Storage as a BackingStore, standing in
// for the next memory level.
type StorageBacking struct {
	storage *mem.Storage
}

// NewStorageBacking creates a StorageBacking over the given storage.
func NewStorageBacking(storage *mem.Storage) *StorageBacking {
	return &StorageBacking{storage: storage}
}

// Read fetches size bytes from the backing storage. An address outside the
// simulated memory raises an OutOfMemoryAccess fault.
func (b *StorageBacking) Read(addr uint64, size int) []byte {
	data, err := b.storage.Read(addr, uint64(size))
	if err != nil {
		panic(fault.NewOutOfMemoryAccess(
			"memory read outside the simulated address space",
			err.Error()))
	}

	return data
}

// Write stores data to the backing storage. An address outside the simulated
// memory raises an OutOfMemoryAccess fault.
func (b *StorageBacking) Write(addr uint64, data []byte) {
	err := b.storage.Write(addr, data)
	if err != nil {
		panic(fault.NewOutOfMemoryAccess(
			"memory write outside the simulated address space",
			err.Error()))
	}
}
