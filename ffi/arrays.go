package ffi

import (
	"github.com/reglet-dev/crfsuite-go/internal/abi"
)

// Array is the boundary address of an array header whose elements are
// abi.Str records. The zero Array is null.
type Array uint64

// newOwnedArray copies strs into boundary memory as owned strings and
// returns the header. Nothing stays allocated on failure.
func (l *Library) newOwnedArray(strs []string) (Array, error) {
	recs := make([]abi.Str, 0, len(strs))
	for _, s := range strs {
		rec, err := l.newStr(s, true)
		if err != nil {
			for _, r := range recs {
				l.freeStorage(r)
			}
			return 0, err
		}
		recs = append(recs, rec)
	}
	header, err := l.layout.NewStrArray(l.mem, recs)
	if err != nil {
		for _, r := range recs {
			l.freeStorage(r)
		}
		return 0, err
	}
	return Array(header), nil
}

// newBorrowedArray returns a header over records owned by a handle.
func (l *Library) newBorrowedArray(recs []abi.Str) (Array, error) {
	header, err := l.layout.NewStrArray(l.mem, recs)
	if err != nil {
		return 0, err
	}
	return Array(header), nil
}

// destroyArray releases the header, the element block and every owned
// element. Borrowed elements are skipped.
func (l *Library) destroyArray(a Array) {
	if a == 0 {
		return
	}
	arr, strs, err := l.layout.ArrayStrs(l.mem, uint64(a))
	if err != nil {
		l.logger.Warn("ignoring release of an unreadable array", "array", uint64(a), "error", err)
		return
	}
	for _, s := range strs {
		if s.Owned {
			l.freeStorage(s)
		}
	}
	if arr.Data != 0 {
		l.mem.Deallocate(arr.Data)
	}
	l.mem.Deallocate(uint64(a))
}

// TagsDestroy releases an array returned by TaggerTag, ModelLabels or
// TaggerLabels. The zero Array is a no-op.
func (c *Caller) TagsDestroy(a Array) {
	c.guard("tags_destroy", func() { c.lib.destroyArray(a) })
}

// ParamsDestroy releases an array returned by TrainerParams.
func (c *Caller) ParamsDestroy(a Array) {
	c.guard("params_destroy", func() { c.lib.destroyArray(a) })
}

// ArrayStrings decodes every element of a.
func (l *Library) ArrayStrings(a Array) ([]string, error) {
	if a == 0 {
		return nil, nil
	}
	_, strs, err := l.layout.ArrayStrs(l.mem, uint64(a))
	if err != nil {
		return nil, err
	}
	out := make([]string, len(strs))
	for i, s := range strs {
		b, err := l.layout.StrBytes(l.mem, s)
		if err != nil {
			return nil, err
		}
		out[i] = string(b)
	}
	return out, nil
}

// ArrayRecords decodes the element records of a, including their
// ownership tags.
func (l *Library) ArrayRecords(a Array) ([]abi.Str, error) {
	if a == 0 {
		return nil, nil
	}
	_, strs, err := l.layout.ArrayStrs(l.mem, uint64(a))
	return strs, err
}
