package ivf

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/mkvgo/mkvmux/reader"
)

func buildIVFHeader(fourCC string, width, height, fpsNum, fpsDenom, frameCount int) []byte {
	hdr := make([]byte, headerSize)
	copy(hdr[0:4], "DKIF")
	binary.LittleEndian.PutUint16(hdr[4:6], 0)
	binary.LittleEndian.PutUint16(hdr[6:8], headerSize)
	copy(hdr[8:12], fourCC)
	binary.LittleEndian.PutUint16(hdr[12:14], uint16(width))
	binary.LittleEndian.PutUint16(hdr[14:16], uint16(height))
	binary.LittleEndian.PutUint32(hdr[16:20], uint32(fpsNum))
	binary.LittleEndian.PutUint32(hdr[20:24], uint32(fpsDenom))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(frameCount))
	return hdr
}

func buildIVFFrame(timestamp int64, payload []byte) []byte {
	prefix := make([]byte, 12)
	binary.LittleEndian.PutUint32(prefix[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint64(prefix[4:12], uint64(timestamp))
	return append(prefix, payload...)
}

type collectingPacketizer struct {
	frames    [][]byte
	times     []int64
	keyFrames []bool
}

func (c *collectingPacketizer) ProcessRaw(data []byte, rawTimecodeNS int64, keyFrame bool) error {
	c.frames = append(c.frames, append([]byte{}, data...))
	c.times = append(c.times, rawTimecodeNS)
	c.keyFrames = append(c.keyFrames, keyFrame)
	return nil
}

func TestReadHeadersParsesVP8Stream(t *testing.T) {
	stream := buildIVFHeader("VP80", 640, 480, 30, 1, 2)
	d := New(bytes.NewReader(stream), int64(len(stream)))
	if err := d.ReadHeaders(); err != nil {
		t.Fatal(err)
	}
	if d.Width() != 640 || d.Height() != 480 {
		t.Fatalf("Width/Height = %d/%d, want 640/480", d.Width(), d.Height())
	}
	num, denom := d.FrameRate()
	if num != 30 || denom != 1 {
		t.Fatalf("FrameRate() = %d/%d, want 30/1", num, denom)
	}
	if got := d.Identify()[0].CodecID; got != "V_VP8" {
		t.Fatalf("CodecID = %q, want V_VP8", got)
	}
}

func TestReadHeadersRejectsUnknownFourCC(t *testing.T) {
	stream := buildIVFHeader("XXXX", 640, 480, 30, 1, 1)
	d := New(bytes.NewReader(stream), int64(len(stream)))
	if err := d.ReadHeaders(); err == nil {
		t.Fatal("expected unsupported FourCC to be rejected")
	}
}

func TestReadEmitsFramesWithScaledTimecodes(t *testing.T) {
	stream := buildIVFHeader("VP80", 640, 480, 30, 1, 2)
	stream = append(stream, buildIVFFrame(0, []byte{0x10, 0xAA})...)  // key frame (bit0=0)
	stream = append(stream, buildIVFFrame(1, []byte{0x11, 0xBB})...) // inter frame (bit0=1)

	d := New(bytes.NewReader(stream), int64(len(stream)))
	if err := d.ReadHeaders(); err != nil {
		t.Fatal(err)
	}
	sink := &collectingPacketizer{}
	if err := d.CreatePacketizers(func(id int, info reader.TrackInfo) reader.Packetizer {
		return sink
	}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		status, err := d.Read(0, false)
		if err != nil {
			t.Fatal(err)
		}
		if status != reader.MoreData {
			t.Fatalf("Read() status = %v, want MoreData", status)
		}
	}
	status, _ := d.Read(0, false)
	if status != reader.Done {
		t.Fatalf("final Read() status = %v, want Done", status)
	}

	if len(sink.frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(sink.frames))
	}
	if sink.times[0] != 0 {
		t.Fatalf("first frame timecode = %d, want 0", sink.times[0])
	}
	wantSecond := int64(1_000_000_000) / 30
	if sink.times[1] != wantSecond {
		t.Fatalf("second frame timecode = %d, want %d", sink.times[1], wantSecond)
	}
	if !sink.keyFrames[0] {
		t.Fatal("first frame should be a key frame")
	}
	if sink.keyFrames[1] {
		t.Fatal("second frame should not be a key frame")
	}
}
