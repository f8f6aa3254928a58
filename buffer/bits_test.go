package buffer

import "testing"

func TestBitReaderWriterRoundTrip(t *testing.T) {
	var w BitWriter
	w.WriteBits(0x1, 1)
	w.WriteBits(0x2A, 6)
	w.WriteBits(0x3FF, 10)
	w.WriteBits(0x0, 1)
	data := w.Bytes()

	r := NewBitReader(data)
	if v, err := r.ReadBits(1); err != nil || v != 0x1 {
		t.Fatalf("bit 1: v=%d err=%v", v, err)
	}
	if v, err := r.ReadBits(6); err != nil || v != 0x2A {
		t.Fatalf("bits 6: v=%d err=%v", v, err)
	}
	if v, err := r.ReadBits(10); err != nil || v != 0x3FF {
		t.Fatalf("bits 10: v=%d err=%v", v, err)
	}
	if v, err := r.ReadBits(1); err != nil || v != 0x0 {
		t.Fatalf("bit 1b: v=%d err=%v", v, err)
	}
}

func TestBitReaderPeekDoesNotAdvance(t *testing.T) {
	r := NewBitReader([]byte{0xF0})
	v1, err := r.Peek(4)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := r.Peek(4)
	if err != nil {
		t.Fatal(err)
	}
	if v1 != v2 || v1 != 0xF {
		t.Fatalf("peek not idempotent: %x %x", v1, v2)
	}
}

func TestBitReaderByteAlign(t *testing.T) {
	r := NewBitReader([]byte{0xFF, 0xAB})
	if _, err := r.ReadBits(3); err != nil {
		t.Fatal(err)
	}
	r.ByteAlign()
	v, err := r.ReadBits(8)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xAB {
		t.Fatalf("got 0x%X, want 0xAB", v)
	}
}

func TestBitReaderUnderrun(t *testing.T) {
	r := NewBitReader([]byte{0x01})
	if _, err := r.ReadBits(9); err == nil {
		t.Fatal("expected underrun error")
	}
}
