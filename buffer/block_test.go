package buffer

import (
	"bytes"
	"testing"
)

func TestBlockGrabRelease(t *testing.T) {
	b := NewBlock([]byte{1, 2, 3})
	b2 := b.Grab()
	if b2 != b {
		t.Fatal("Grab must return the same block")
	}
	if b.Refs() != 2 {
		t.Fatalf("refs = %d, want 2", b.Refs())
	}
	b.Release()
	if b.Refs() != 1 {
		t.Fatalf("refs = %d, want 1", b.Refs())
	}
}

func TestBlockCloneIsIndependent(t *testing.T) {
	b := NewBlock([]byte{1, 2, 3})
	c := b.Clone()
	c.Bytes()[0] = 99
	if b.Bytes()[0] != 1 {
		t.Fatal("clone mutation leaked into original")
	}
}

func TestBlockResizeGrowsAndZeroFills(t *testing.T) {
	b := Alloc(2)
	copy(b.Bytes(), []byte{1, 2})
	b.Resize(4)
	if !bytes.Equal(b.Bytes(), []byte{1, 2, 0, 0}) {
		t.Fatalf("got %v", b.Bytes())
	}
}

func TestBlockResizeShrinks(t *testing.T) {
	b := NewBlock([]byte{1, 2, 3, 4})
	b.Resize(2)
	if !bytes.Equal(b.Bytes(), []byte{1, 2}) {
		t.Fatalf("got %v", b.Bytes())
	}
}
