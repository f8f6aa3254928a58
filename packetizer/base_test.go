package packetizer

import (
	"testing"
)

func TestEnqueueAssignsSequentialPacketNumbers(t *testing.T) {
	b := &Base{}
	for i := 0; i < 3; i++ {
		p := NewPacket(b, []byte{byte(i)}, int64(i)*1000, true)
		if err := b.Enqueue(p); err != nil {
			t.Fatal(err)
		}
	}
	if b.QueueLen() != 3 {
		t.Fatalf("queue len = %d, want 3", b.QueueLen())
	}
	for i := 0; i < 3; i++ {
		p := b.Pop()
		if p.Number != uint64(i) {
			t.Fatalf("packet %d has Number %d", i, p.Number)
		}
	}
}

func TestDisplacementShiftsAssignedTimecode(t *testing.T) {
	b := &Base{}
	b.SetDisplacement(Displacement{NS: 5000, LinearFactor: 1})
	p := NewPacket(b, []byte{1}, 10_000, true)
	if err := b.Enqueue(p); err != nil {
		t.Fatal(err)
	}
	got := b.Pop()
	if got.AssignedTimecode.NS() != 15_000 {
		t.Fatalf("assigned timecode = %d, want 15000", got.AssignedTimecode.NS())
	}
}

func TestDisplacementClampsNegativeToZero(t *testing.T) {
	b := &Base{}
	b.SetDisplacement(Displacement{NS: -10_000, LinearFactor: 1})
	p := NewPacket(b, []byte{1}, 1_000, true)
	if err := b.Enqueue(p); err != nil {
		t.Fatal(err)
	}
	got := b.Pop()
	if got.AssignedTimecode.NS() != 0 {
		t.Fatalf("assigned timecode = %d, want 0 (clamped)", got.AssignedTimecode.NS())
	}
}

func TestAppendedPacketizerContinuesPredecessorTimeline(t *testing.T) {
	first := &Base{}
	second := &Base{}
	if status := second.Connect(first, 20_000_000); status != CanConnect {
		t.Fatalf("Connect status = %v, want CanConnect", status)
	}
	p := NewPacket(second, []byte{1}, 0, true)
	if err := second.Enqueue(p); err != nil {
		t.Fatal(err)
	}
	got := second.Pop()
	if got.AssignedTimecode.NS() != 20_000_000 {
		t.Fatalf("assigned timecode = %d, want 20000000", got.AssignedTimecode.NS())
	}
}

func TestConnectRejectsIncompatibleFormat(t *testing.T) {
	first := &Base{}
	second := &Base{ConnectCheck: func(self, other *Base) Connectability {
		return NoFormat
	}}
	if status := second.Connect(first, 0); status != NoFormat {
		t.Fatalf("status = %v, want NoFormat", status)
	}
	if second.appendedTo != nil {
		t.Fatal("a rejected connection must not be wired")
	}
}

func TestAVIAudioSyncOffset(t *testing.T) {
	// 44100 samples/sec stereo 16-bit => block_align 4. 4410 garbage
	// bytes is 1102.5 samples => ~25ms.
	got := AVIAudioSyncOffset(4410, 4, 44100)
	want := int64(25_000_000)
	if diff := got - want; diff < -1_000_000 || diff > 1_000_000 {
		t.Fatalf("offset = %d, want ~%d", got, want)
	}
}

func TestHoldingState(t *testing.T) {
	b := &Base{}
	if b.Holding() {
		t.Fatal("fresh packetizer must not be holding")
	}
	b.SetHolding(true)
	if !b.Holding() {
		t.Fatal("SetHolding(true) did not stick")
	}
}
