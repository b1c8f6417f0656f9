//go:build cgo && unix

package main

/*
#include <pthread.h>
#include <stdint.h>
#include <stdlib.h>
#include <string.h>

static uint64_t crfsuite_thread_id(void) {
	return (uint64_t)(uintptr_t)pthread_self();
}
*/
import "C"

import (
	"math"
	"sync"
	"unsafe"

	"github.com/reglet-dev/crfsuite-go/domain/errors"
)

// cMemory hands out malloc'd blocks so C callers can read records with
// plain pointer arithmetic. Reads and writes accept any address: argument
// records come from the caller's own memory, not from Allocate.
type cMemory struct {
	live map[uint64]uint32
	mu   sync.Mutex
}

func newCMemory() *cMemory {
	return &cMemory{live: make(map[uint64]uint32)}
}

func (m *cMemory) Allocate(size uint32) (uint64, error) {
	if size == 0 {
		size = 1
	}
	p := C.malloc(C.size_t(size))
	if p == nil {
		return 0, &errors.MemoryError{Requested: int(size)}
	}
	addr := uint64(uintptr(p))
	m.mu.Lock()
	m.live[addr] = size
	m.mu.Unlock()
	return addr, nil
}

// Deallocate frees blocks this memory allocated and ignores anything else,
// so a double free from a confused caller is harmless.
func (m *cMemory) Deallocate(ptr uint64) {
	m.mu.Lock()
	_, ok := m.live[ptr]
	delete(m.live, ptr)
	m.mu.Unlock()
	if ok {
		C.free(pointer(ptr))
	}
}

func (m *cMemory) Read(ptr uint64, n uint32) ([]byte, bool) {
	if ptr == 0 || n > math.MaxInt32 {
		return nil, false
	}
	if n == 0 {
		return []byte{}, true
	}
	return C.GoBytes(pointer(ptr), C.int(n)), true
}

func (m *cMemory) Write(ptr uint64, data []byte) bool {
	if ptr == 0 {
		return false
	}
	if len(data) > 0 {
		C.memcpy(pointer(ptr), unsafe.Pointer(&data[0]), C.size_t(len(data)))
	}
	return true
}

func (m *cMemory) ReadCString(ptr uint64) (string, bool) {
	if ptr == 0 {
		return "", false
	}
	return C.GoString((*C.char)(pointer(ptr))), true
}

// Stats returns the number and total size of blocks not yet deallocated.
func (m *cMemory) Stats() (count, bytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, size := range m.live {
		bytes += int(size)
	}
	return len(m.live), bytes
}

func pointer(addr uint64) unsafe.Pointer {
	return unsafe.Pointer(uintptr(addr)) //nolint:govet // addresses come from C
}

// threadID identifies the calling OS thread. cgo callbacks run on the
// thread that made the C call, so each C thread gets its own error slot.
func threadID() uint64 {
	return uint64(C.crfsuite_thread_id())
}
