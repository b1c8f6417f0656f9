package abi

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/reglet-dev/crfsuite-go/domain/errors"
	"github.com/reglet-dev/crfsuite-go/domain/ports"
)

// Str is an ownership-tagged string record. Owned strings are released
// exactly once by the receiver; borrowed strings live as long as the handle
// that produced them.
type Str struct {
	Data  uint64
	Len   uint64
	Owned bool
}

// IsZero reports whether s refers to no storage.
func (s Str) IsZero() bool {
	return s.Data == 0 && s.Len == 0
}

// Array is a {pointer, length} header. Data points at Len contiguous
// element records.
type Array struct {
	Data uint64
	Len  uint64
}

// CStringReader is implemented by memories that can locate a NUL terminator
// without knowing the string length up front.
type CStringReader interface {
	ReadCString(ptr uint64) (string, bool)
}

// maxCString bounds the byte-by-byte terminator scan used for memories that
// do not implement CStringReader.
const maxCString = 1 << 16

// Layout describes the in-memory shape of transfer records for one pointer
// width. All fields are little endian.
//
//	FfiStr:        data:P  len:P  owned:u8 (padded to P)
//	Array header:  data:P  len:P
//	string ref:    ptr:P  [len:P when SizedNames]
//	Attribute:     name:ref (padded to 8)  value:f64
//	AttributeList: data:P  len:P
type Layout struct {
	// PtrSize is the width of addresses and lengths in bytes, 4 or 8.
	PtrSize int

	// SizedNames makes string references carry an explicit length instead
	// of pointing at NUL-terminated data.
	SizedNames bool
}

var (
	// Layout64 is the C layout of a 64-bit host.
	Layout64 = Layout{PtrSize: 8}

	// Layout32 is the wasm32 layout; names carry a length so they need not
	// be NUL-terminated.
	Layout32 = Layout{PtrSize: 4, SizedNames: true}

	// HostLayout is the C layout of the platform this binary runs on.
	HostLayout = Layout{PtrSize: int(unsafe.Sizeof(uintptr(0)))}
)

// StrSize is the size of an FfiStr record.
func (l Layout) StrSize() int { return 3 * l.PtrSize }

// ArraySize is the size of an array or AttributeList header.
func (l Layout) ArraySize() int { return 2 * l.PtrSize }

// RefSize is the size of a string reference.
func (l Layout) RefSize() int {
	if l.SizedNames {
		return 2 * l.PtrSize
	}
	return l.PtrSize
}

// AttrSize is the size of an Attribute record.
func (l Layout) AttrSize() int { return l.attrValueOffset() + 8 }

func (l Layout) attrValueOffset() int {
	return (l.RefSize() + 7) &^ 7
}

func (l Layout) putWord(b []byte, v uint64) {
	if l.PtrSize == 4 {
		binary.LittleEndian.PutUint32(b, uint32(v))
		return
	}
	binary.LittleEndian.PutUint64(b, v)
}

func (l Layout) word(b []byte) uint64 {
	if l.PtrSize == 4 {
		return uint64(binary.LittleEndian.Uint32(b))
	}
	return binary.LittleEndian.Uint64(b)
}

// EncodeStr encodes an FfiStr record.
func (l Layout) EncodeStr(s Str) []byte {
	b := make([]byte, l.StrSize())
	l.putWord(b, s.Data)
	l.putWord(b[l.PtrSize:], s.Len)
	if s.Owned {
		b[2*l.PtrSize] = 1
	}
	return b
}

// DecodeStr decodes an FfiStr record.
func (l Layout) DecodeStr(b []byte) Str {
	return Str{
		Data:  l.word(b),
		Len:   l.word(b[l.PtrSize:]),
		Owned: b[2*l.PtrSize] != 0,
	}
}

// EncodeArray encodes an array header.
func (l Layout) EncodeArray(a Array) []byte {
	b := make([]byte, l.ArraySize())
	l.putWord(b, a.Data)
	l.putWord(b[l.PtrSize:], a.Len)
	return b
}

// DecodeArray decodes an array header.
func (l Layout) DecodeArray(b []byte) Array {
	return Array{Data: l.word(b), Len: l.word(b[l.PtrSize:])}
}

// EncodeRef encodes a string reference. n is ignored unless SizedNames.
func (l Layout) EncodeRef(ptr, n uint64) []byte {
	b := make([]byte, l.RefSize())
	l.putWord(b, ptr)
	if l.SizedNames {
		l.putWord(b[l.PtrSize:], n)
	}
	return b
}

// DecodeRef decodes a string reference. n is 0 unless SizedNames.
func (l Layout) DecodeRef(b []byte) (ptr, n uint64) {
	ptr = l.word(b)
	if l.SizedNames {
		n = l.word(b[l.PtrSize:])
	}
	return ptr, n
}

// EncodeAttr encodes an Attribute record.
func (l Layout) EncodeAttr(namePtr, nameLen uint64, value float64) []byte {
	b := make([]byte, l.AttrSize())
	copy(b, l.EncodeRef(namePtr, nameLen))
	binary.LittleEndian.PutUint64(b[l.attrValueOffset():], math.Float64bits(value))
	return b
}

// DecodeAttr decodes an Attribute record.
func (l Layout) DecodeAttr(b []byte) (namePtr, nameLen uint64, value float64) {
	namePtr, nameLen = l.DecodeRef(b)
	value = math.Float64frombits(binary.LittleEndian.Uint64(b[l.attrValueOffset():]))
	return namePtr, nameLen, value
}

// NewStr copies data into mem and returns an owned record. Empty data
// yields an owned record with no storage.
func (l Layout) NewStr(mem ports.Memory, data []byte) (Str, error) {
	if len(data) == 0 {
		return Str{Owned: true}, nil
	}
	ptr, err := allocate(mem, len(data))
	if err != nil {
		return Str{}, err
	}
	if !mem.Write(ptr, data) {
		mem.Deallocate(ptr)
		return Str{}, outOfBounds("write", "FfiStr", ptr)
	}
	return Str{Data: ptr, Len: uint64(len(data)), Owned: true}, nil
}

// StrBytes reads the bytes a record refers to.
func (l Layout) StrBytes(mem ports.Memory, s Str) ([]byte, error) {
	if s.Len == 0 {
		return []byte{}, nil
	}
	if s.Data == 0 || s.Len > math.MaxUint32 {
		return nil, outOfBounds("read", "FfiStr", s.Data)
	}
	b, ok := mem.Read(s.Data, uint32(s.Len))
	if !ok {
		return nil, outOfBounds("read", "FfiStr", s.Data)
	}
	return b, nil
}

// StoreStr writes a record at ptr.
func (l Layout) StoreStr(mem ports.Memory, ptr uint64, s Str) error {
	if !mem.Write(ptr, l.EncodeStr(s)) {
		return outOfBounds("write", "FfiStr", ptr)
	}
	return nil
}

// LoadStr reads a record at ptr.
func (l Layout) LoadStr(mem ports.Memory, ptr uint64) (Str, error) {
	b, ok := mem.Read(ptr, uint32(l.StrSize()))
	if !ok {
		return Str{}, outOfBounds("read", "FfiStr", ptr)
	}
	return l.DecodeStr(b), nil
}

// LoadArray reads an array header at ptr.
func (l Layout) LoadArray(mem ports.Memory, ptr uint64) (Array, error) {
	b, ok := mem.Read(ptr, uint32(l.ArraySize()))
	if !ok {
		return Array{}, outOfBounds("read", "Array", ptr)
	}
	return l.DecodeArray(b), nil
}

// NewStrArray writes strs as a contiguous element block plus a header and
// returns the header address. An empty array has a header with no data.
// On failure nothing stays allocated, and the element strings are untouched.
func (l Layout) NewStrArray(mem ports.Memory, strs []Str) (uint64, error) {
	var data uint64
	if len(strs) > 0 {
		size := l.StrSize()
		block := make([]byte, 0, len(strs)*size)
		for _, s := range strs {
			block = append(block, l.EncodeStr(s)...)
		}
		ptr, err := allocate(mem, len(block))
		if err != nil {
			return 0, err
		}
		if !mem.Write(ptr, block) {
			mem.Deallocate(ptr)
			return 0, outOfBounds("write", "Array", ptr)
		}
		data = ptr
	}

	header, err := mem.Allocate(uint32(l.ArraySize()))
	if err != nil {
		if data != 0 {
			mem.Deallocate(data)
		}
		return 0, err
	}
	if !mem.Write(header, l.EncodeArray(Array{Data: data, Len: uint64(len(strs))})) {
		mem.Deallocate(header)
		if data != 0 {
			mem.Deallocate(data)
		}
		return 0, outOfBounds("write", "Array", header)
	}
	return header, nil
}

// ArrayStrs reads every element record of the array at header.
func (l Layout) ArrayStrs(mem ports.Memory, header uint64) (Array, []Str, error) {
	arr, err := l.LoadArray(mem, header)
	if err != nil {
		return Array{}, nil, err
	}
	if arr.Len == 0 {
		return arr, nil, nil
	}
	size := uint64(l.StrSize())
	if arr.Data == 0 || arr.Len > math.MaxUint32/size {
		return Array{}, nil, outOfBounds("read", "Array", arr.Data)
	}
	block, ok := mem.Read(arr.Data, uint32(arr.Len*size))
	if !ok {
		return Array{}, nil, outOfBounds("read", "Array", arr.Data)
	}
	strs := make([]Str, arr.Len)
	for i := range strs {
		strs[i] = l.DecodeStr(block[uint64(i)*size:])
	}
	return arr, strs, nil
}

// RefString reads the string a reference points at.
func (l Layout) RefString(mem ports.Memory, ptr, n uint64) (string, error) {
	if ptr == 0 {
		return "", outOfBounds("read", "string", ptr)
	}
	if l.SizedNames {
		if n == 0 {
			return "", nil
		}
		if n > math.MaxUint32 {
			return "", outOfBounds("read", "string", ptr)
		}
		b, ok := mem.Read(ptr, uint32(n))
		if !ok {
			return "", outOfBounds("read", "string", ptr)
		}
		return string(b), nil
	}
	if r, ok := mem.(CStringReader); ok {
		s, ok := r.ReadCString(ptr)
		if !ok {
			return "", outOfBounds("read", "string", ptr)
		}
		return s, nil
	}
	var buf []byte
	for i := uint64(0); i < maxCString; i++ {
		b, ok := mem.Read(ptr+i, 1)
		if !ok {
			return "", outOfBounds("read", "string", ptr)
		}
		if b[0] == 0 {
			return string(buf), nil
		}
		buf = append(buf, b[0])
	}
	return "", outOfBounds("read", "string", ptr)
}

// Records reads count consecutive records of size bytes starting at ptr.
func (l Layout) Records(mem ports.Memory, ptr, count uint64, size int) ([][]byte, error) {
	if count == 0 {
		return nil, nil
	}
	if ptr == 0 || count > math.MaxUint32/uint64(size) {
		return nil, outOfBounds("read", "records", ptr)
	}
	block, ok := mem.Read(ptr, uint32(count*uint64(size)))
	if !ok {
		return nil, outOfBounds("read", "records", ptr)
	}
	out := make([][]byte, count)
	for i := range out {
		off := i * size
		out[i] = block[off : off+size]
	}
	return out, nil
}

// maxAllocation is the largest block a 32-bit size can request.
const maxAllocation = min(math.MaxUint32, math.MaxInt)

// allocate reserves n bytes of mem, rejecting sizes Allocate cannot express.
func allocate(mem ports.Memory, n int) (uint64, error) {
	if n < 0 || uint64(n) > maxAllocation {
		return 0, &errors.MemoryError{Requested: n, Limit: maxAllocation}
	}
	return mem.Allocate(uint32(n))
}

func outOfBounds(op, typ string, ptr uint64) error {
	return &errors.WireFormatError{
		Operation: op,
		Type:      typ,
		Err:       fmt.Errorf("address %#x is outside boundary memory", ptr),
	}
}
