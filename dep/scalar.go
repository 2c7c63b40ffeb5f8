package dep

import (
	"bytes"
	"fmt"
	"time"
)

const (
	scalarNil uint8 = iota
	scalarInt
	scalarUint
	scalarFloat
	scalarBool
	scalarString
	scalarBytes
	scalarTime
)

// scalarValue is the normalized form of a probe result. Executors hand back
// scalars as whatever Go type the driver chose (int64 vs int32, []byte vs
// string); normalizing before encoding keeps the baseline comparison exact
// across driver and serialization round-trips.
type scalarValue struct {
	Kind  uint8     `msgpack:"k"`
	Int   int64     `msgpack:"i"`
	Uint  uint64    `msgpack:"u"`
	Float float64   `msgpack:"f"`
	Bool  bool      `msgpack:"b"`
	Str   string    `msgpack:"s"`
	Bytes []byte    `msgpack:"y"`
	Time  time.Time `msgpack:"t"`
}

func normalizeScalar(v any) scalarValue {
	switch x := v.(type) {
	case nil:
		return scalarValue{Kind: scalarNil}
	case int:
		return scalarValue{Kind: scalarInt, Int: int64(x)}
	case int8:
		return scalarValue{Kind: scalarInt, Int: int64(x)}
	case int16:
		return scalarValue{Kind: scalarInt, Int: int64(x)}
	case int32:
		return scalarValue{Kind: scalarInt, Int: int64(x)}
	case int64:
		return scalarValue{Kind: scalarInt, Int: x}
	case uint:
		return scalarValue{Kind: scalarUint, Uint: uint64(x)}
	case uint8:
		return scalarValue{Kind: scalarUint, Uint: uint64(x)}
	case uint16:
		return scalarValue{Kind: scalarUint, Uint: uint64(x)}
	case uint32:
		return scalarValue{Kind: scalarUint, Uint: uint64(x)}
	case uint64:
		return scalarValue{Kind: scalarUint, Uint: x}
	case float32:
		return scalarValue{Kind: scalarFloat, Float: float64(x)}
	case float64:
		return scalarValue{Kind: scalarFloat, Float: x}
	case bool:
		return scalarValue{Kind: scalarBool, Bool: x}
	case string:
		return scalarValue{Kind: scalarString, Str: x}
	case []byte:
		return scalarValue{Kind: scalarBytes, Bytes: x}
	case time.Time:
		return scalarValue{Kind: scalarTime, Time: x}
	default:
		return scalarValue{Kind: scalarString, Str: fmt.Sprint(x)}
	}
}

// equal is exact value identity, not approximate: kinds must match except
// that int and uint bridge when they name the same number (drivers flip
// between widths run-to-run). Int never bridges to float: a probe whose
// column type flips between integer and real has changed in a way worth
// re-proving.
func (a scalarValue) equal(b scalarValue) bool {
	if a.Kind == b.Kind {
		switch a.Kind {
		case scalarNil:
			return true
		case scalarInt:
			return a.Int == b.Int
		case scalarUint:
			return a.Uint == b.Uint
		case scalarFloat:
			return a.Float == b.Float
		case scalarBool:
			return a.Bool == b.Bool
		case scalarString:
			return a.Str == b.Str
		case scalarBytes:
			return bytes.Equal(a.Bytes, b.Bytes)
		case scalarTime:
			return a.Time.Equal(b.Time)
		default:
			return false
		}
	}
	if a.Kind == scalarInt && b.Kind == scalarUint {
		return a.Int >= 0 && uint64(a.Int) == b.Uint
	}
	if a.Kind == scalarUint && b.Kind == scalarInt {
		return b.Int >= 0 && uint64(b.Int) == a.Uint
	}
	return false
}
