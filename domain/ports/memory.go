package ports

// Memory is the allocator boundary records live in. Addresses are opaque
// to the boundary and meaningful only to the Memory that produced them;
// zero is never a valid allocation.
type Memory interface {
	// Allocate reserves size bytes and returns their address.
	Allocate(size uint32) (uint64, error)

	// Deallocate releases an address returned by Allocate. Unknown
	// addresses are ignored.
	Deallocate(ptr uint64)

	// Read returns a copy of n bytes at ptr.
	Read(ptr uint64, n uint32) ([]byte, bool)

	// Write copies data to ptr.
	Write(ptr uint64, data []byte) bool
}
