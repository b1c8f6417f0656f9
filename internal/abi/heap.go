// Package abi provides the memory and record layout shared by every
// exporter of the boundary: a pinned Go heap, pointer/length packing and
// the little-endian encoding of transfer records.
package abi

import (
	"sort"
	"sync"

	"github.com/reglet-dev/crfsuite-go/domain/errors"
)

// MaxTotalAllocations is the maximum total memory that can be allocated by a Heap.
// This prevents unbounded memory growth in WASM linear memory.
const MaxTotalAllocations = 100 * 1024 * 1024 // 100 MB

// Heap tracks allocations made on behalf of the host.
// It keeps a reference to allocated slices to prevent the Go GC from collecting them,
// effectively "pinning" the memory until explicitly freed.
// Interior addresses (base plus offset) resolve to their allocation, so array
// elements can be addressed individually.
type Heap struct {
	ptrs           map[uint64][]byte // base -> slice reference
	bases          []uint64          // sorted allocation bases
	next           uint64            // next synthetic address, native builds only
	limit          int
	totalAllocated int // Total bytes currently allocated
	mu             sync.Mutex
}

// HeapOption configures a Heap.
type HeapOption func(*Heap)

// WithLimit caps the total number of live bytes.
func WithLimit(limit int) HeapOption {
	return func(h *Heap) {
		if limit > 0 {
			h.limit = limit
		}
	}
}

// NewHeap creates an empty heap.
func NewHeap(opts ...HeapOption) *Heap {
	h := &Heap{
		ptrs:  make(map[uint64][]byte),
		limit: MaxTotalAllocations,
		next:  syntheticBase,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Allocate reserves size bytes and returns their address.
// Allocate(0) returns 0, which every reader treats as an empty value.
func (h *Heap) Allocate(size uint32) (uint64, error) {
	if size == 0 {
		return 0, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalAllocated+int(size) > h.limit {
		return 0, &errors.MemoryError{
			Requested: int(size),
			Current:   h.totalAllocated,
			Limit:     h.limit,
		}
	}

	buf := make([]byte, size)
	ptr := h.addressFor(buf)

	h.ptrs[ptr] = buf // PIN THE MEMORY: Store the slice to prevent GC
	i := sort.Search(len(h.bases), func(i int) bool { return h.bases[i] >= ptr })
	h.bases = append(h.bases, 0)
	copy(h.bases[i+1:], h.bases[i:])
	h.bases[i] = ptr
	h.totalAllocated += int(size)

	return ptr, nil
}

// Deallocate releases an allocation by its base address. Untracked and
// interior addresses are ignored, so a second release is a no-op.
func (h *Heap) Deallocate(ptr uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	buf, exists := h.ptrs[ptr]
	if !exists {
		return
	}

	delete(h.ptrs, ptr)
	i := sort.Search(len(h.bases), func(i int) bool { return h.bases[i] >= ptr })
	if i < len(h.bases) && h.bases[i] == ptr {
		h.bases = append(h.bases[:i], h.bases[i+1:]...)
	}
	h.totalAllocated -= len(buf)

	// Prevent negative totalAllocated due to double-free or other bugs
	if h.totalAllocated < 0 {
		h.totalAllocated = 0
	}
}

// Read returns a copy of n bytes at ptr. It fails when the range is not
// inside a single live allocation.
func (h *Heap) Read(ptr uint64, n uint32) ([]byte, bool) {
	if n == 0 {
		return []byte{}, true
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	region, ok := h.region(ptr, uint64(n))
	if !ok {
		return nil, false
	}
	data := make([]byte, n) // Create a new slice to return a copy
	copy(data, region)
	return data, true
}

// Write copies data to ptr. It fails when the range is not inside a single
// live allocation.
func (h *Heap) Write(ptr uint64, data []byte) bool {
	if len(data) == 0 {
		return true
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	region, ok := h.region(ptr, uint64(len(data)))
	if !ok {
		return false
	}
	copy(region, data)
	return true
}

// ReadCString returns the NUL-terminated string starting at ptr. The
// terminator must lie inside the same allocation.
func (h *Heap) ReadCString(ptr uint64) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.region(ptr, 1); !ok {
		return "", false
	}
	base := h.baseOf(ptr)
	tail := h.ptrs[base][ptr-base:]
	for i, b := range tail {
		if b == 0 {
			return string(tail[:i]), true
		}
	}
	return "", false
}

// Stats returns the number of live allocations and their total size.
func (h *Heap) Stats() (count, bytes int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.ptrs), h.totalAllocated
}

// FreeAll frees all memory currently tracked by the heap.
// This is typically called during module shutdown to prevent leaks.
func (h *Heap) FreeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clear(h.ptrs)
	h.bases = h.bases[:0]
	h.totalAllocated = 0
}

// baseOf returns the greatest allocation base not above ptr, or 0.
// Callers hold h.mu.
func (h *Heap) baseOf(ptr uint64) uint64 {
	i := sort.Search(len(h.bases), func(i int) bool { return h.bases[i] > ptr })
	if i == 0 {
		return 0
	}
	return h.bases[i-1]
}

// region resolves [ptr, ptr+n) to the backing slice. Callers hold h.mu.
func (h *Heap) region(ptr, n uint64) ([]byte, bool) {
	if ptr == 0 {
		return nil, false
	}
	base := h.baseOf(ptr)
	if base == 0 {
		return nil, false
	}
	buf := h.ptrs[base]
	off := ptr - base
	if off >= uint64(len(buf)) || n > uint64(len(buf))-off {
		return nil, false
	}
	return buf[off : off+n], true
}
