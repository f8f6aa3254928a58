package packetizer

import "testing"

func TestAACAssignsFixedDurationAndNoReferences(t *testing.T) {
	p := NewAAC(1, 0xABCD, 48000, 1, []byte{0x12, 0x10}, 21_333_333)
	if err := p.ProcessRaw([]byte{0, 1, 2}, 0, true); err != nil {
		t.Fatal(err)
	}
	if err := p.ProcessRaw([]byte{3, 4, 5}, 21_333_333, true); err != nil {
		t.Fatal(err)
	}
	if p.QueueLen() != 2 {
		t.Fatalf("queue len = %d, want 2", p.QueueLen())
	}
	first := p.Pop()
	if first.Bref.IsValid() || first.Fref.IsValid() {
		t.Fatal("AAC frames never reference each other")
	}
	if first.Duration.NS() != 21_333_333 {
		t.Fatalf("duration = %d, want 21333333", first.Duration.NS())
	}
	if p.TrackEntry.CodecID != "A_AAC" {
		t.Fatalf("codec id = %q, want A_AAC", p.TrackEntry.CodecID)
	}
	if p.TrackEntry.Audio.Channels != 1 || p.TrackEntry.Audio.SamplingFrequency != 48000 {
		t.Fatal("audio sub-master not populated from constructor args")
	}
}
