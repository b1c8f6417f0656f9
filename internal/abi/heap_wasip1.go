//go:build wasip1

package abi

import "unsafe"

const syntheticBase = 0

// addressFor returns the real linear-memory address of buf so the host can
// read and write it directly.
func (h *Heap) addressFor(buf []byte) uint64 {
	// WASM linear memory: pointer -> uint32 offset conversion is safe and necessary
	//nolint:gosec // G103: Valid unsafe.Pointer use for WASM linear memory access
	return uint64(uintptr(unsafe.Pointer(&buf[0])))
}
