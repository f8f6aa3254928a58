package packetizer

import (
	"github.com/mkvgo/mkvmux/matroska"
	"github.com/mkvgo/mkvmux/timecode"
)

// VPx packetizes VP8/VP9 frames straight through: the cluster helper
// only needs the keyframe bit and, for non-key frames, a backward
// reference to the previous frame's timecode (spec.md §4.7 "Dirac/
// VP8/VP9": "first byte bit-0=0 denotes key frame; bref=previous frame
// timecode for non-keys").
type VPx struct {
	Base

	lastTimecodeNS int64
	haveLast       bool
}

// NewVPx builds a VPx packetizer for the given codec ID ("V_VP8" or
// "V_VP9").
func NewVPx(trackNumber, trackUID uint64, codecID string, width, height int) *VPx {
	p := &VPx{}
	p.TrackEntry = matroska.TrackEntry{
		Number:  trackNumber,
		UID:     trackUID,
		Type:    matroska.TrackTypeVideo,
		CodecID: codecID,
		Enabled: true,
		Default: true,
		Lacing:  false,
		Video: &matroska.VideoSettings{
			PixelWidth:  uint64(width),
			PixelHeight: uint64(height),
		},
	}
	return p
}

// ProcessRaw implements reader.Packetizer.
func (p *VPx) ProcessRaw(data []byte, rawTimecodeNS int64, keyFrame bool) error {
	pk := NewPacket(&p.Base, data, rawTimecodeNS, keyFrame)
	pk.Fref = timecode.None
	if keyFrame {
		pk.Bref = timecode.None
	} else if p.haveLast {
		pk.Bref = timecode.Valid(p.lastTimecodeNS)
	} else {
		pk.Bref = timecode.None
	}
	p.lastTimecodeNS = rawTimecodeNS
	p.haveLast = true
	return p.Enqueue(pk)
}
