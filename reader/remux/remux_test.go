package remux

import (
	"testing"

	"github.com/mkvgo/mkvmux/buffer"
	"github.com/mkvgo/mkvmux/ebml"
)

type fakePacketizer struct {
	calls []struct {
		data []byte
		ns   int64
		kf   bool
	}
}

func (f *fakePacketizer) ProcessRaw(data []byte, rawTimecodeNS int64, keyFrame bool) error {
	f.calls = append(f.calls, struct {
		data []byte
		ns   int64
		kf   bool
	}{data, rawTimecodeNS, keyFrame})
	return nil
}

func TestProbeDetectsEBMLHeader(t *testing.T) {
	d := New(nil, 0)
	good := []byte{0x1A, 0x45, 0xDF, 0xA3, 0x01}
	if d.Probe(sliceReaderAt(good), int64(len(good))) != 1 {
		t.Fatal("expected a match on the EBML header magic")
	}
	bad := []byte{0, 1, 2, 3}
	if d.Probe(sliceReaderAt(bad), 4) != 0 {
		t.Fatal("expected no match on non-EBML bytes")
	}
}

type sliceReaderAt []byte

func (s sliceReaderAt) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, s[off:])
	return n, nil
}

func TestDispatchBlockSimpleBlockKeyframeFlag(t *testing.T) {
	d := New(nil, 0)
	d.timecodeScale = 1_000_000
	ptzr := &fakePacketizer{}
	track := &trackEntry{number: 1, ptzr: ptzr}
	d.byNumber[1] = track

	trackVint, _ := ebml.EncodeSize(1, 0)
	var block []byte
	block = append(block, trackVint...)
	block = append(block, 0x00, 0x05) // relative timecode = 5 ticks
	block = append(block, 0x80)       // keyframe flag, no lacing
	block = append(block, []byte("payload")...)

	if err := d.dispatchBlock(block, 1000, true, false); err != nil {
		t.Fatal(err)
	}
	if len(track.queue) != 1 {
		t.Fatalf("expected 1 queued frame, got %d", len(track.queue))
	}
	f := track.queue[0]
	if !f.keyFrame {
		t.Fatal("expected keyFrame true from the SimpleBlock flags byte")
	}
	if f.timecodeNS != (1000+5)*1_000_000 {
		t.Fatalf("got timecode %d, want %d", f.timecodeNS, (1000+5)*1_000_000)
	}
	if string(f.data) != "payload" {
		t.Fatalf("got payload %q", f.data)
	}
}

func TestDispatchBlockGroupUsesReferenceAbsenceForKeyframe(t *testing.T) {
	d := New(nil, 0)
	d.timecodeScale = 1_000_000
	ptzr := &fakePacketizer{}
	track := &trackEntry{number: 2, ptzr: ptzr}
	d.byNumber[2] = track

	trackVint, _ := ebml.EncodeSize(2, 0)
	var block []byte
	block = append(block, trackVint...)
	block = append(block, 0x00, 0x00)
	block = append(block, 0x00) // flags byte unused for BlockGroup keyframe semantics
	block = append(block, []byte("frame")...)

	if err := d.dispatchBlock(block, 0, false, true); err != nil {
		t.Fatal(err)
	}
	if !track.queue[0].keyFrame {
		t.Fatal("expected groupIsKeyFrame (no ReferenceBlock) to mark the frame a keyframe")
	}

	track.queue = nil
	if err := d.dispatchBlock(block, 0, false, false); err != nil {
		t.Fatal(err)
	}
	if track.queue[0].keyFrame {
		t.Fatal("expected a ReferenceBlock presence to mark the frame non-keyframe")
	}
}

func TestLaceModeFromFlagsMapsTwoBitField(t *testing.T) {
	cases := map[byte]buffer.LaceMode{
		0x00: buffer.LaceNone,
		0x02: buffer.LaceXiph,
		0x04: buffer.LaceFixed,
		0x06: buffer.LaceEBML,
	}
	for flags, want := range cases {
		if got := laceModeFromFlags(flags); got != want {
			t.Fatalf("flags 0x%02x: got %v, want %v", flags, got, want)
		}
	}
}
