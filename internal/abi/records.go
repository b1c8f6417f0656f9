package abi

import (
	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/domain/ports"
)

// DecodeItems reads count AttributeList headers at ptr and the attributes
// they point at.
func (l Layout) DecodeItems(mem ports.Memory, ptr, count uint64) ([]entities.Item, error) {
	lists, err := l.Records(mem, ptr, count, l.ArraySize())
	if err != nil {
		return nil, err
	}
	items := make([]entities.Item, len(lists))
	for i, rec := range lists {
		hdr := l.DecodeArray(rec)
		attrs, err := l.Records(mem, hdr.Data, hdr.Len, l.AttrSize())
		if err != nil {
			return nil, err
		}
		item := make(entities.Item, len(attrs))
		for j, a := range attrs {
			namePtr, nameLen, value := l.DecodeAttr(a)
			name, err := l.RefString(mem, namePtr, nameLen)
			if err != nil {
				return nil, err
			}
			item[j] = entities.NewAttribute(name, value)
		}
		items[i] = item
	}
	return items, nil
}

// DecodeStrings reads count string references at ptr.
func (l Layout) DecodeStrings(mem ports.Memory, ptr, count uint64) ([]string, error) {
	refs, err := l.Records(mem, ptr, count, l.RefSize())
	if err != nil {
		return nil, err
	}
	out := make([]string, len(refs))
	for i, rec := range refs {
		p, n := l.DecodeRef(rec)
		s, err := l.RefString(mem, p, n)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// Arena records allocations made while encoding host inputs so they can be
// released together once the call returns.
type Arena struct {
	mem  ports.Memory
	ptrs []uint64
}

// NewArena creates an arena over mem.
func NewArena(mem ports.Memory) *Arena {
	return &Arena{mem: mem}
}

// Bytes copies data into memory, NUL-terminated, and returns its address.
func (a *Arena) Bytes(data []byte) (uint64, error) {
	buf := make([]byte, len(data)+1)
	copy(buf, data)
	ptr, err := allocate(a.mem, len(buf))
	if err != nil {
		return 0, err
	}
	a.ptrs = append(a.ptrs, ptr)
	if !a.mem.Write(ptr, buf) {
		return 0, outOfBounds("write", "bytes", ptr)
	}
	return ptr, nil
}

func (a *Arena) block(data []byte, typ string) (uint64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	ptr, err := allocate(a.mem, len(data))
	if err != nil {
		return 0, err
	}
	a.ptrs = append(a.ptrs, ptr)
	if !a.mem.Write(ptr, data) {
		return 0, outOfBounds("write", typ, ptr)
	}
	return ptr, nil
}

// Items encodes items as AttributeList headers and returns the address of
// the first header.
func (a *Arena) Items(l Layout, items []entities.Item) (uint64, error) {
	headers := make([]byte, 0, len(items)*l.ArraySize())
	for _, item := range items {
		attrs := make([]byte, 0, len(item)*l.AttrSize())
		for _, attr := range item {
			name, err := a.Bytes([]byte(attr.Name))
			if err != nil {
				return 0, err
			}
			attrs = append(attrs, l.EncodeAttr(name, uint64(len(attr.Name)), attr.Value)...)
		}
		data, err := a.block(attrs, "Attribute")
		if err != nil {
			return 0, err
		}
		headers = append(headers, l.EncodeArray(Array{Data: data, Len: uint64(len(item))})...)
	}
	return a.block(headers, "AttributeList")
}

// Strings encodes strs as string references and returns the address of the
// first reference.
func (a *Arena) Strings(l Layout, strs []string) (uint64, error) {
	refs := make([]byte, 0, len(strs)*l.RefSize())
	for _, s := range strs {
		ptr, err := a.Bytes([]byte(s))
		if err != nil {
			return 0, err
		}
		refs = append(refs, l.EncodeRef(ptr, uint64(len(s)))...)
	}
	return a.block(refs, "string")
}

// Free releases every allocation made through the arena.
func (a *Arena) Free() {
	for _, ptr := range a.ptrs {
		a.mem.Deallocate(ptr)
	}
	a.ptrs = nil
}
