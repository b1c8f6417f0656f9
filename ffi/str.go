package ffi

import (
	"github.com/reglet-dev/crfsuite-go/internal/abi"
)

// StrFromBytes copies b into boundary memory as an owned string. It returns
// the zero Str on failure.
func (c *Caller) StrFromBytes(b []byte) abi.Str {
	var out abi.Str
	c.invoke("str_from_bytes", func(CallContext) error {
		s, err := c.lib.layout.NewStr(c.lib.mem, b)
		if err != nil {
			return err
		}
		out = s
		return nil
	})
	return out
}

// StrFromString is StrFromBytes for a Go string.
func (c *Caller) StrFromString(s string) abi.Str {
	return c.StrFromBytes([]byte(s))
}

// StrFree releases an owned string and zeroes the record. Borrowed and
// zero strings are left alone.
func (c *Caller) StrFree(s *abi.Str) {
	if s == nil {
		return
	}
	c.guard("str_free", func() {
		if s.Owned && s.Data != 0 {
			c.lib.mem.Deallocate(s.Data)
		}
		*s = abi.Str{}
	})
}

// StrBytes reads the bytes s refers to.
func (l *Library) StrBytes(s abi.Str) ([]byte, error) {
	return l.layout.StrBytes(l.mem, s)
}

// StrString reads s as a Go string.
func (l *Library) StrString(s abi.Str) (string, error) {
	b, err := l.StrBytes(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// newStr copies s into boundary memory with the given ownership tag.
func (l *Library) newStr(s string, owned bool) (abi.Str, error) {
	str, err := l.layout.NewStr(l.mem, []byte(s))
	if err != nil {
		return abi.Str{}, err
	}
	str.Owned = owned
	return str, nil
}

// freeStorage releases the storage behind s regardless of its ownership
// tag. The handle that produced a borrowed string calls it on release.
func (l *Library) freeStorage(s abi.Str) {
	if s.Data != 0 {
		l.mem.Deallocate(s.Data)
	}
}
