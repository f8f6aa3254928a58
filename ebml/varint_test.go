package ebml

import (
	"bytes"
	"testing"
)

func TestDecodeIDRetainsMarker(t *testing.T) {
	// Segment ID, 4-byte form: 0x18 0x53 0x80 0x67
	id, n, err := DecodeID([]byte{0x18, 0x53, 0x80, 0x67})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4 {
		t.Fatalf("n = %d, want 4", n)
	}
	if id != 0x18538067 {
		t.Fatalf("id = 0x%X, want 0x18538067", id)
	}
}

func TestDecodeSizeStripsMarker(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want uint64
	}{
		{"1-byte", []byte{0x82}, 2},
		{"2-byte", []byte{0x40, 0x0A}, 10},
		{"unknown", []byte{0xFF}, UnknownSize},
		{"unknown-8", []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, UnknownSize},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, _, err := DecodeSize(c.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.want {
				t.Fatalf("got %d, want %d", got, c.want)
			}
		})
	}
}

func TestEncodeSizeRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 126, 127, 128, 16383, 16384, 1 << 20, 1 << 30}
	for _, v := range values {
		encoded, err := EncodeSize(v, 0)
		if err != nil {
			t.Fatalf("EncodeSize(%d): %v", v, err)
		}
		got, n, err := DecodeSize(encoded)
		if err != nil {
			t.Fatalf("DecodeSize: %v", err)
		}
		if n != len(encoded) || got != v {
			t.Fatalf("round trip mismatch for %d: got %d (n=%d)", v, got, n)
		}
	}
}

func TestEncodeSizeRejectsSentinelCollision(t *testing.T) {
	// At length 1, max payload is 2^7-2 = 126; 2^7-1 = 127 collides with
	// the all-ones unknown-size marker and must be rejected.
	if _, err := EncodeSize(127, 1); err == nil {
		t.Fatal("expected error encoding sentinel-colliding value, got nil")
	}
}

func TestEncodeUnknownSizeDecodesBack(t *testing.T) {
	buf := EncodeUnknownSize(8)
	size, n, err := DecodeSize(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 8 || size != UnknownSize {
		t.Fatalf("got size=%d n=%d, want UnknownSize n=8", size, n)
	}
}

func TestEncodeIDPassthrough(t *testing.T) {
	ids := []uint32{0x80, 0x4DBB, 0x18538067}
	for _, id := range ids {
		got, _, err := DecodeID(EncodeID(id))
		if err != nil {
			t.Fatalf("DecodeID: %v", err)
		}
		if got != id {
			t.Fatalf("got 0x%X, want 0x%X", got, id)
		}
	}
}

func TestDecodeIDMalformedZeroLead(t *testing.T) {
	if _, _, err := DecodeID([]byte{0x00, 0x01}); err == nil {
		t.Fatal("expected ErrMalformed for zero lead byte")
	}
}

func TestDecodeSizeTruncated(t *testing.T) {
	// 4-byte marker (0x10) but only one byte supplied.
	if _, _, err := DecodeSize([]byte{0x10}); err == nil {
		t.Fatal("expected error for truncated size vint")
	}
}

func TestEncodedLengthMonotonic(t *testing.T) {
	prev := 0
	for _, v := range []uint64{0, 126, 127, 128, 1 << 14, 1 << 21, 1 << 28, 1 << 35, 1 << 49} {
		l := EncodedLength(v)
		if l < prev {
			t.Fatalf("EncodedLength(%d) = %d, shorter than previous %d", v, l, prev)
		}
		prev = l
	}
}

func TestVarintRoundTripBuffer(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(EncodeID(0x1654AE6B))
	sz, err := EncodeSize(5, 0)
	if err != nil {
		t.Fatal(err)
	}
	buf.Write(sz)
	buf.WriteString("hello")

	id, n1, err := DecodeID(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	size, n2, err := DecodeSize(buf.Bytes()[n1:])
	if err != nil {
		t.Fatal(err)
	}
	if id != 0x1654AE6B || size != 5 {
		t.Fatalf("got id=0x%X size=%d", id, size)
	}
	body := buf.Bytes()[n1+n2:]
	if string(body) != "hello" {
		t.Fatalf("got body %q", body)
	}
}
