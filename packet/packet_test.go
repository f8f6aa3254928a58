package packet

import (
	"testing"

	"github.com/mkvgo/mkvmux/buffer"
	"github.com/mkvgo/mkvmux/timecode"
)

type fakeOwner struct{ track uint64 }

func (f fakeOwner) TrackNumber() uint64 { return f.track }

func TestEndTimecodeFallsBackWithoutDuration(t *testing.T) {
	p := New(fakeOwner{1}, buffer.NewBlock([]byte{1}), timecode.Valid(0))
	p.AssignedTimecode = timecode.Valid(1000)
	if got := p.EndTimecode(); got.NS() != 1000 {
		t.Fatalf("got %d, want 1000", got.NS())
	}
}

func TestEndTimecodeAddsDuration(t *testing.T) {
	p := New(fakeOwner{1}, buffer.NewBlock([]byte{1}), timecode.Valid(0))
	p.AssignedTimecode = timecode.Valid(1000)
	p.Duration = timecode.Valid(500)
	if got := p.EndTimecode(); got.NS() != 1500 {
		t.Fatalf("got %d, want 1500", got.NS())
	}
}

func TestNeedsBlockGroupForReferences(t *testing.T) {
	p := New(fakeOwner{1}, buffer.NewBlock(nil), timecode.Valid(0))
	if p.NeedsBlockGroup(timecode.None) {
		t.Fatal("bare packet should not need a BlockGroup")
	}
	p.Bref = timecode.Valid(-1000)
	if !p.NeedsBlockGroup(timecode.None) {
		t.Fatal("a packet with a backward reference needs a BlockGroup")
	}
}

func TestNeedsBlockGroupForNonDefaultDuration(t *testing.T) {
	p := New(fakeOwner{1}, buffer.NewBlock(nil), timecode.Valid(0))
	p.Duration = timecode.Valid(30)
	p.DurationMandatory = true
	if !p.NeedsBlockGroup(timecode.Valid(40)) {
		t.Fatal("explicit duration differing from default needs a BlockGroup")
	}
	if p.NeedsBlockGroup(timecode.Valid(30)) {
		t.Fatal("explicit duration matching default does not need a BlockGroup")
	}
}
