package ffi

import (
	"sync"
)

// Handle is an opaque token for a Model, Tagger or Trainer. It packs a slot
// generation in the high 32 bits and a slot index in the low 32 bits.
// The zero Handle is null.
type Handle uint64

type handleKind uint8

const (
	kindModel handleKind = iota + 1
	kindTagger
	kindTrainer
)

func (k handleKind) String() string {
	switch k {
	case kindModel:
		return "model"
	case kindTagger:
		return "tagger"
	case kindTrainer:
		return "trainer"
	default:
		return "unknown"
	}
}

type slot struct {
	obj  any
	gen  uint32
	kind handleKind
}

// handleTable maps handles to objects. Freed slots are reused with a new
// generation, so stale handles never resolve.
type handleTable struct {
	slots []slot
	free  []uint32
	live  int
	mu    sync.Mutex
}

func newHandle(gen, index uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index))
}

func (h Handle) split() (gen, index uint32) {
	return uint32(h >> 32), uint32(h)
}

func (t *handleTable) insert(kind handleKind, obj any) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	var index uint32
	if n := len(t.free); n > 0 {
		index = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		index = uint32(len(t.slots))
		t.slots = append(t.slots, slot{})
	}
	s := &t.slots[index]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.kind = kind
	s.obj = obj
	t.live++
	return newHandle(s.gen, index)
}

// lookup returns the slot h refers to. Callers hold t.mu.
func (t *handleTable) lookup(h Handle, kind handleKind) *slot {
	gen, index := h.split()
	if h == 0 || int(index) >= len(t.slots) {
		return nil
	}
	s := &t.slots[index]
	if s.obj == nil || s.gen != gen || s.kind != kind {
		return nil
	}
	return s
}

func (t *handleTable) get(h Handle, kind handleKind) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.lookup(h, kind)
	if s == nil {
		return nil, false
	}
	return s.obj, true
}

// remove invalidates h and returns the object it referred to.
func (t *handleTable) remove(h Handle, kind handleKind) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.lookup(h, kind)
	if s == nil {
		return nil, false
	}
	obj := s.obj
	s.obj = nil
	s.kind = 0
	_, index := h.split()
	t.free = append(t.free, index)
	t.live--
	return obj, true
}

func (t *handleTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}
