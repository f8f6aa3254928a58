package muxer

import (
	"fmt"

	"github.com/mkvgo/mkvmux/buffer"
	"github.com/mkvgo/mkvmux/ebml"
)

// Block flag bits (spec.md §6.1 "Block header: variable-length track
// number, int16 relative timecode, 8-bit flags").
const (
	flagKeyframe   = 0x80
	flagInvisible  = 0x08
	flagLacingMask = 0x06
	flagDiscardable = 0x01
)

// laceBits maps buffer.LaceMode to the two-bit lacing field Matroska's
// block header defines (00 none, 01 Xiph, 11 EBML, 10 fixed-size).
func laceBits(mode buffer.LaceMode) byte {
	switch mode {
	case buffer.LaceXiph:
		return 0x02
	case buffer.LaceFixed:
		return 0x04
	case buffer.LaceEBML:
		return 0x06
	default:
		return 0x00
	}
}

// encodeBlockHeader writes the track-number VINT (coded like an EBML
// size field, per the Matroska spec), the signed 16-bit timecode delta
// relative to the cluster, and the flags byte.
func encodeBlockHeader(trackNumber uint64, relativeTimecode int16, keyFrame, invisible, discardable bool, mode buffer.LaceMode) ([]byte, error) {
	trackVint, err := ebml.EncodeSize(trackNumber, 0)
	if err != nil {
		return nil, fmt.Errorf("muxer: encoding track number %d: %w", trackNumber, err)
	}
	var flags byte
	if keyFrame {
		flags |= flagKeyframe
	}
	if invisible {
		flags |= flagInvisible
	}
	if discardable {
		flags |= flagDiscardable
	}
	flags |= laceBits(mode)

	out := make([]byte, 0, len(trackVint)+3)
	out = append(out, trackVint...)
	out = append(out, byte(uint16(relativeTimecode)>>8), byte(uint16(relativeTimecode)))
	out = append(out, flags)
	return out, nil
}

// relativeTimecode computes the packet's offset from the cluster's
// base timecode in scale ticks, failing if it would overflow int16
// (spec.md §8.1 property 4 "every block's delta fits int16").
func relativeTimecode(packetTicks, clusterBaseTicks int64) (int16, error) {
	delta := packetTicks - clusterBaseTicks
	if delta < -32768 || delta > 32767 {
		return 0, fmt.Errorf("muxer: block delta %d overflows int16", delta)
	}
	return int16(delta), nil
}
