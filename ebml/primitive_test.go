package ebml

import "testing"

func TestUintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 255, 256, 65535, 65536, 1 << 32, ^uint64(0)}
	for _, v := range values {
		got := DecodeUint(EncodeUint(v))
		if got != v {
			t.Fatalf("EncodeUint/DecodeUint(%d) = %d", v, got)
		}
	}
}

func TestIntRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 127, -128, 128, -129, 1 << 20, -(1 << 20)}
	for _, v := range values {
		got := DecodeInt(EncodeInt(v))
		if got != v {
			t.Fatalf("EncodeInt/DecodeInt(%d) = %d", v, got)
		}
	}
}

func TestFloatRoundTrip(t *testing.T) {
	f32 := float32(3.14)
	if got := DecodeFloat(EncodeFloat32(f32)); float32(got) != f32 {
		t.Fatalf("float32 round trip: got %v, want %v", got, f32)
	}
	f64 := 2.71828182845904523536
	if got := DecodeFloat(EncodeFloat64(f64)); got != f64 {
		t.Fatalf("float64 round trip: got %v, want %v", got, f64)
	}
}

func TestDecodeFloatUnsupportedLength(t *testing.T) {
	if got := DecodeFloat([]byte{0x01, 0x02, 0x03}); got != 0 {
		t.Fatalf("got %v, want 0", got)
	}
}

func TestStringPadAndTrim(t *testing.T) {
	encoded := EncodeString("abc", 6)
	if len(encoded) != 6 {
		t.Fatalf("len = %d, want 6", len(encoded))
	}
	if got := DecodeString(encoded); got != "abc" {
		t.Fatalf("got %q, want abc", got)
	}
}

func TestStringNoTruncation(t *testing.T) {
	encoded := EncodeString("abcdef", 3)
	if string(encoded) != "abcdef" {
		t.Fatalf("got %q, want abcdef unmodified", encoded)
	}
}

func TestDateRoundTrip(t *testing.T) {
	const ts = int64(1_700_000_000) * 1_000_000_000
	encoded := EncodeDate(ts)
	got, err := DecodeDate(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ts {
		t.Fatalf("got %d, want %d", got, ts)
	}
}

func TestDateWrongLength(t *testing.T) {
	if _, err := DecodeDate([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for non-8-byte date")
	}
}
