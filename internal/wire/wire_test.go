package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func mustDecode(t *testing.T, b []byte) Entry {
	t.Helper()
	e, err := DecodeEntry(b)
	if err != nil {
		t.Fatalf("DecodeEntry error: %v", err)
	}
	return e
}

func mustEncode(t *testing.T, e Entry) []byte {
	t.Helper()
	b, err := EncodeEntry(e)
	if err != nil {
		t.Fatalf("EncodeEntry error: %v", err)
	}
	return b
}

func TestEntryRoundTrip(t *testing.T) {
	cases := []Entry{
		{Deps: nil, Payload: nil},
		{Deps: nil, Payload: []byte("hello")},
		{Deps: []Dep{{Kind: 1, Params: []byte("p"), Baseline: []byte("b")}}, Payload: []byte("x")},
		{
			// empty params and baseline are legal
			Deps:    []Dep{{Kind: 2, Params: nil, Baseline: nil}},
			Payload: []byte{0, 1, 2, 3},
		},
		{
			Deps: []Dep{
				{Kind: 1, Params: []byte("tags"), Baseline: []byte("v1")},
				{Kind: 2, Params: []byte("query"), Baseline: []byte("v2")},
				{Kind: 1, Params: []byte("more"), Baseline: nil},
			},
			Payload: []byte("payload"),
		},
	}

	for _, want := range cases {
		enc := mustEncode(t, want)
		got := mustDecode(t, enc)

		if len(got.Deps) != len(want.Deps) {
			t.Fatalf("deps len: got %d want %d", len(got.Deps), len(want.Deps))
		}
		for i := range want.Deps {
			if got.Deps[i].Kind != want.Deps[i].Kind ||
				!bytes.Equal(got.Deps[i].Params, want.Deps[i].Params) ||
				!bytes.Equal(got.Deps[i].Baseline, want.Deps[i].Baseline) {
				t.Fatalf("dep %d mismatch: got=%+v want=%+v", i, got.Deps[i], want.Deps[i])
			}
		}
		if !bytes.Equal(got.Payload, want.Payload) {
			t.Fatalf("payload mismatch: got %x want %x", got.Payload, want.Payload)
		}
	}
}

func TestEntryPreservesDepOrder(t *testing.T) {
	e := Entry{
		Deps: []Dep{
			{Kind: 2, Params: []byte("second-kind-first")},
			{Kind: 1, Params: []byte("first-kind-second")},
		},
		Payload: []byte("v"),
	}
	got := mustDecode(t, mustEncode(t, e))
	if got.Deps[0].Kind != 2 || got.Deps[1].Kind != 1 {
		t.Fatalf("dep order not preserved: %+v", got.Deps)
	}
}

func TestEntryRejectsTrailingBytes(t *testing.T) {
	enc := mustEncode(t, Entry{Payload: []byte("x")})
	enc = append(enc, 0xDE, 0xAD)
	if _, err := DecodeEntry(enc); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("want ErrCorrupt on trailing bytes, got %v", err)
	}
}

func TestEntryMissingMagicIsNotEntry(t *testing.T) {
	// plain payloads written by other clients must not decode as entries
	for _, b := range [][]byte{
		nil,
		{},
		[]byte("x"),
		[]byte(`{"id":1}`),
		[]byte("XXXX longer than a header but wrong magic"),
	} {
		if _, err := DecodeEntry(b); !errors.Is(err, ErrNotEntry) {
			t.Fatalf("want ErrNotEntry for %q, got %v", b, err)
		}
	}
}

func TestEntryCorruptHeadersAndLengths(t *testing.T) {
	enc := mustEncode(t, Entry{
		Deps:    []Dep{{Kind: 1, Params: []byte("pp"), Baseline: []byte("bb")}},
		Payload: []byte("abc"),
	})

	// wrong version
	badVer := append([]byte(nil), enc...)
	badVer[4] = version + 1
	if _, err := DecodeEntry(badVer); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("want ErrCorrupt on bad version, got %v", err)
	}

	// wrong kind
	badKind := append([]byte(nil), enc...)
	badKind[5] = kindEntry + 1
	if _, err := DecodeEntry(badKind); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("want ErrCorrupt on bad kind, got %v", err)
	}

	// magic present but buffer shorter than header
	short := enc[:6]
	if _, err := DecodeEntry(short); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("want ErrCorrupt on short buffer, got %v", err)
	}

	// plen beyond remaining
	// layout: 4 magic +1 ver +1 kind +2 ndeps = 8, then kind(1) then plen at 9..12
	badPlen := append([]byte(nil), enc...)
	binary.BigEndian.PutUint32(badPlen[9:13], uint32(len(enc)))
	if _, err := DecodeEntry(badPlen); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("want ErrCorrupt on plen beyond buffer, got %v", err)
	}

	// truncated buffer
	trunc := enc[:len(enc)-1]
	if _, err := DecodeEntry(trunc); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("want ErrCorrupt on truncated buffer, got %v", err)
	}
}

func TestEntryBogusDepCount(t *testing.T) {
	// ndeps=0xFFFF with no dep bodies -> must error, not panic or prealloc wild
	var buf bytes.Buffer
	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindEntry)
	var u2 [2]byte
	binary.BigEndian.PutUint16(u2[:], 0xFFFF)
	buf.Write(u2[:])
	if _, err := DecodeEntry(buf.Bytes()); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("want ErrCorrupt on bogus ndeps, got %v", err)
	}
}

func TestEntryTooManyDeps(t *testing.T) {
	e := Entry{Deps: make([]Dep, 0x10000)}
	if _, err := EncodeEntry(e); err == nil {
		t.Fatal("expected error on ndeps > 0xFFFF")
	}
}

func TestEntryZeroCopyPayload(t *testing.T) {
	enc := mustEncode(t, Entry{Payload: []byte("Z")})
	got := mustDecode(t, enc)
	if len(got.Payload) != 1 {
		t.Fatalf("unexpected payload len")
	}
	// mutate payload slice. should mutate underlying enc bytes (zero-copy)
	got.Payload[0] = 'Q'
	got2 := mustDecode(t, enc)
	if got2.Payload[0] != 'Q' {
		t.Fatalf("expected zero-copy slice into enc buffer")
	}
}
