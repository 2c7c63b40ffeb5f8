package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	version   byte = 1
	kindEntry byte = 1
)

var (
	// ErrCorrupt means the buffer carries the entry magic but fails strict
	// validation. Callers treat the entry as unusable and delete it.
	ErrCorrupt = errors.New("depcache: corrupt entry")

	// ErrNotEntry means the buffer does not start with the entry magic.
	// This is how values written by non-depcache clients through the same
	// backend are recognized; callers decode them as plain payloads with no
	// recorded dependencies.
	ErrNotEntry = errors.New("depcache: not an entry")

	magic4 = [...]byte{'D', 'E', 'P', 'C'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Dep is one recorded dependency: its registered kind byte, its encoded
// parameters, and the baseline captured when the entry was written.
type Dep struct {
	Kind     byte
	Params   []byte
	Baseline []byte
}

// Entry is the stored form of a cache value: the dependency list in attach
// order plus the encoded payload.
type Entry struct {
	Deps    []Dep
	Payload []byte
}

// Entry layout:
//
//	magic(4) | ver(1) | kind(1=entry) | ndeps(u16 be)
//	depKind(1) | plen(u32 be) | params(plen) | blen(u32 be) | baseline(blen)  * ndeps
//	vlen(u32 be) | payload(vlen)
//
// Decoding is strict: trailing bytes after the payload are rejected.
func EncodeEntry(e Entry) ([]byte, error) {
	if len(e.Deps) > 0xFFFF {
		return nil, errors.New("depcache: too many dependencies in entry")
	}

	total := 4 + 1 + 1 + 2
	for _, d := range e.Deps {
		total += 1 + 4 + len(d.Params) + 4 + len(d.Baseline)
	}
	total += 4 + len(e.Payload)

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)

	var u4 [4]byte
	var u2 [2]byte

	binary.BigEndian.PutUint16(u2[:], uint16(len(e.Deps)))
	buf.Write(u2[:])

	for _, d := range e.Deps {
		buf.WriteByte(d.Kind)

		binary.BigEndian.PutUint32(u4[:], uint32(len(d.Params)))
		buf.Write(u4[:])
		buf.Write(d.Params)

		binary.BigEndian.PutUint32(u4[:], uint32(len(d.Baseline)))
		buf.Write(u4[:])
		buf.Write(d.Baseline)
	}

	binary.BigEndian.PutUint32(u4[:], uint32(len(e.Payload)))
	buf.Write(u4[:])
	buf.Write(e.Payload)

	return buf.Bytes(), nil
}

// DecodeEntry parses an encoded entry. Params, Baseline and Payload slices
// alias b (zero-copy); callers must not retain them past the life of b.
func DecodeEntry(b []byte) (Entry, error) {
	if !hasMagic(b) {
		return Entry{}, ErrNotEntry
	}
	const hdr = 4 + 1 + 1 + 2
	if len(b) < hdr || b[4] != version || b[5] != kindEntry {
		return Entry{}, ErrCorrupt
	}

	off := 6
	n := int(binary.BigEndian.Uint16(b[off : off+2]))
	off += 2

	// Each dep needs at least kind+plen+blen bytes, plus the trailing vlen.
	// Rejecting an impossible ndeps up front also bounds the prealloc below.
	if n*9+4 > len(b)-off {
		return Entry{}, ErrCorrupt
	}

	deps := make([]Dep, 0, n)
	for i := 0; i < n; i++ {
		// kind
		if off+1 > len(b) {
			return Entry{}, ErrCorrupt
		}
		kind := b[off]
		off++

		// plen
		if off+4 > len(b) {
			return Entry{}, ErrCorrupt
		}
		plen := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if plen < 0 || plen > len(b)-off {
			return Entry{}, ErrCorrupt
		}
		params := b[off : off+plen]
		off += plen

		// blen
		if off+4 > len(b) {
			return Entry{}, ErrCorrupt
		}
		blen := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if blen < 0 || blen > len(b)-off {
			return Entry{}, ErrCorrupt
		}
		baseline := b[off : off+blen]
		off += blen

		deps = append(deps, Dep{Kind: kind, Params: params, Baseline: baseline})
	}

	// vlen
	if off+4 > len(b) {
		return Entry{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen < 0 || vlen > len(b)-off {
		return Entry{}, ErrCorrupt
	}
	payload := b[off : off+vlen]
	off += vlen

	if off != len(b) {
		return Entry{}, ErrCorrupt
	}

	return Entry{Deps: deps, Payload: payload}, nil
}
