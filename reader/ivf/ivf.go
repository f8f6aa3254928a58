// Package ivf implements a reader for the IVF container (spec.md
// §6.6): a 12-byte DKIF signature, a VP8/VP9 FourCC, and a sequence of
// frames each prefixed by a 4-byte size and an 8-byte timestamp.
package ivf

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mkvgo/mkvmux/muxerr"
	"github.com/mkvgo/mkvmux/reader"
)

const headerSize = 32
const trackID = 0

var fourCCToCodecID = map[string]string{
	"VP80": "V_VP8",
	"VP90": "V_VP9",
}

// Reader parses a single-track IVF elementary stream.
type Reader struct {
	r io.Reader

	fourCC     string
	codecID    string
	width      int
	height     int
	fpsNum     int
	fpsDenom   int
	frameCount int

	ptzr      reader.Packetizer
	frameNo   int
	done      bool
	totalSize int64
	consumed  int64
}

// New wraps src, positioned at the start of the IVF stream.
func New(src io.Reader, totalSize int64) *Reader {
	return &Reader{r: src, totalSize: totalSize}
}

// Probe reports whether the first 4 bytes are the DKIF signature.
func (d *Reader) Probe(r io.ReaderAt, size int64) int {
	sig := make([]byte, 4)
	if _, err := r.ReadAt(sig, 0); err != nil {
		return 0
	}
	if string(sig) == "DKIF" {
		return 1
	}
	return 0
}

func (d *Reader) ReadHeaders() error {
	hdr := make([]byte, headerSize)
	if _, err := io.ReadFull(d.r, hdr); err != nil {
		return &muxerr.FormatError{Op: "ivf.ReadHeaders", Err: fmt.Errorf("truncated IVF header: %w", err)}
	}
	if string(hdr[0:4]) != "DKIF" {
		return &muxerr.FormatError{Op: "ivf.ReadHeaders", Err: fmt.Errorf("missing DKIF signature")}
	}
	headerLen := binary.LittleEndian.Uint16(hdr[6:8])
	d.fourCC = string(hdr[8:12])
	d.width = int(binary.LittleEndian.Uint16(hdr[12:14]))
	d.height = int(binary.LittleEndian.Uint16(hdr[14:16]))
	d.fpsNum = int(binary.LittleEndian.Uint32(hdr[16:20]))
	d.fpsDenom = int(binary.LittleEndian.Uint32(hdr[20:24]))
	d.frameCount = int(binary.LittleEndian.Uint32(hdr[24:28]))

	codecID, ok := fourCCToCodecID[d.fourCC]
	if !ok {
		return &muxerr.UnsupportedError{Op: "ivf.ReadHeaders", Err: fmt.Errorf("unsupported IVF FourCC %q", d.fourCC)}
	}
	d.codecID = codecID

	if extra := int(headerLen) - headerSize; extra > 0 {
		if _, err := io.CopyN(io.Discard, d.r, int64(extra)); err != nil {
			return &muxerr.FormatError{Op: "ivf.ReadHeaders", Err: fmt.Errorf("truncated extended IVF header: %w", err)}
		}
	}
	if d.fpsNum <= 0 || d.fpsDenom <= 0 {
		return &muxerr.FormatError{Op: "ivf.ReadHeaders", Err: fmt.Errorf("non-positive IVF frame rate %d/%d", d.fpsNum, d.fpsDenom)}
	}
	return nil
}

func (d *Reader) Identify() []reader.TrackInfo {
	return []reader.TrackInfo{{ID: trackID, Type: "video", CodecID: d.codecID, Language: "und"}}
}

func (d *Reader) CreatePacketizers(bind func(int, reader.TrackInfo) reader.Packetizer) error {
	d.ptzr = bind(trackID, d.Identify()[0])
	return nil
}

// Width, Height, and FrameRate expose the IVF header fields for the
// control plane to build the Video sub-master.
func (d *Reader) Width() int  { return d.width }
func (d *Reader) Height() int { return d.height }
func (d *Reader) FrameRate() (num, denom int) { return d.fpsNum, d.fpsDenom }

func (d *Reader) Read(trackIDArg int, force bool) (reader.Status, error) {
	if d.done {
		return reader.Done, nil
	}

	prefix := make([]byte, 12)
	if _, err := io.ReadFull(d.r, prefix); err != nil {
		d.done = true
		return reader.Done, nil
	}
	size := binary.LittleEndian.Uint32(prefix[0:4])
	timestamp := int64(binary.LittleEndian.Uint64(prefix[4:12]))

	frame := make([]byte, size)
	if _, err := io.ReadFull(d.r, frame); err != nil {
		return reader.MoreData, &muxerr.FormatError{Op: "ivf.Read", Err: fmt.Errorf("truncated frame %d: %w", d.frameNo, err)}
	}

	rawTimecodeNS := timestamp * int64(d.fpsDenom) * 1_000_000_000 / int64(d.fpsNum)
	keyFrame := isKeyFrame(d.fourCC, frame)
	if err := d.ptzr.ProcessRaw(frame, rawTimecodeNS, keyFrame); err != nil {
		return reader.MoreData, err
	}
	d.frameNo++
	d.consumed += int64(len(frame)) + 12
	return reader.MoreData, nil
}

// isKeyFrame inspects the VP8/VP9 uncompressed frame tag to decide
// whether this frame starts a new keyframe (spec.md §4.7 "VPx": "parse
// uncompressed data chunk... frame type bit 0=key, 1=inter").
func isKeyFrame(fourCC string, frame []byte) bool {
	if len(frame) == 0 {
		return false
	}
	switch fourCC {
	case "VP80":
		return frame[0]&0x01 == 0
	case "VP90":
		return frame[0]&0x04 == 0 // VP9 superframe marker bits differ; bit 2 of byte0 flags non-key
	default:
		return false
	}
}

func (d *Reader) GetProgress() int {
	if d.totalSize <= 0 {
		return 0
	}
	pct := int(d.consumed * 100 / d.totalSize)
	if pct > 100 {
		pct = 100
	}
	return pct
}
