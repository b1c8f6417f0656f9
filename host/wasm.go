package host

import (
	"context"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/reglet-dev/crfsuite-go/domain/errors"
)

// guestMemory implements ports.Memory over a guest's linear memory,
// allocating through the guest's allocate and deallocate exports.
type guestMemory struct {
	ctx   context.Context
	mod   api.Module
	alloc api.Function
	free  api.Function
}

func (m guestMemory) Allocate(size uint32) (uint64, error) {
	if size == 0 {
		return 0, nil
	}
	results, err := m.alloc.Call(m.ctx, uint64(size))
	if err != nil {
		return 0, fmt.Errorf("failed to allocate in guest: %w", err)
	}
	if len(results) == 0 {
		return 0, &errors.MemoryError{Requested: int(size)}
	}
	ptr := api.DecodeU32(results[0])
	if ptr == 0 {
		return 0, &errors.MemoryError{Requested: int(size)}
	}
	return uint64(ptr), nil
}

func (m guestMemory) Deallocate(ptr uint64) {
	if ptr == 0 || ptr > math.MaxUint32 {
		return
	}
	_, _ = m.free.Call(m.ctx, ptr)
}

func (m guestMemory) Read(ptr uint64, n uint32) ([]byte, bool) {
	if ptr > math.MaxUint32 {
		return nil, false
	}
	view, ok := m.mod.Memory().Read(uint32(ptr), n)
	if !ok {
		return nil, false
	}
	// The view aliases linear memory, which the guest may grow or reuse.
	data := make([]byte, n)
	copy(data, view)
	return data, true
}

func (m guestMemory) Write(ptr uint64, data []byte) bool {
	if ptr > math.MaxUint32 {
		return false
	}
	return m.mod.Memory().Write(uint32(ptr), data)
}
