package packetizer

import "testing"

func TestVPxKeyframeHasNoBackwardReference(t *testing.T) {
	p := NewVPx(1, 1, "V_VP8", 640, 480)
	if err := p.ProcessRaw([]byte{0x10}, 0, true); err != nil {
		t.Fatal(err)
	}
	got := p.Pop()
	if !got.KeyFrame {
		t.Fatal("expected keyframe")
	}
	if got.Bref.IsValid() {
		t.Fatal("a keyframe must not carry a backward reference")
	}
}

func TestVPxInterFrameReferencesPreviousTimecode(t *testing.T) {
	p := NewVPx(1, 1, "V_VP8", 640, 480)
	if err := p.ProcessRaw([]byte{0x10}, 0, true); err != nil {
		t.Fatal(err)
	}
	p.Pop()
	if err := p.ProcessRaw([]byte{0x11}, 33_366_666, false); err != nil {
		t.Fatal(err)
	}
	got := p.Pop()
	if got.KeyFrame {
		t.Fatal("expected an inter frame")
	}
	if !got.Bref.IsValid() || got.Bref.NS() != 0 {
		t.Fatalf("bref = %v, want 0 (the keyframe's timecode)", got.Bref)
	}
}
