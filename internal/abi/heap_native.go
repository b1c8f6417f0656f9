//go:build !wasip1

package abi

// syntheticBase is the first address handed out on native builds.
const syntheticBase = 0x10000

// allocGap separates consecutive synthetic allocations so an address one
// past the end of an allocation never resolves to its neighbour.
const allocGap = 16

// addressFor hands out a synthetic address. Native hosts never dereference
// heap addresses directly; they go through Read and Write. Callers hold h.mu.
func (h *Heap) addressFor(buf []byte) uint64 {
	ptr := h.next
	h.next += (uint64(len(buf)) + allocGap + 7) &^ 7
	return ptr
}
