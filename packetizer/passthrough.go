package packetizer

import (
	"github.com/mkvgo/mkvmux/matroska"
	"github.com/mkvgo/mkvmux/timecode"
)

// Passthrough packetizes frames that arrive already framed for
// Matroska, e.g. an appended Matroska source read through
// reader/remux. The reader.Packetizer contract (ProcessRaw) only
// carries a keyframe bit, not the original reference graph, so
// Passthrough reuses VPx's bref rule: the previous frame's timecode
// for non-key frames, none for key frames.
type Passthrough struct {
	Base

	lastTimecodeNS int64
	haveLast       bool
}

// NewPassthrough builds a Passthrough packetizer around a TrackEntry
// the control plane has already populated (number, UID, codec ID,
// and Video/Audio settings recovered from the source).
func NewPassthrough(entry matroska.TrackEntry) *Passthrough {
	p := &Passthrough{}
	p.TrackEntry = entry
	return p
}

// ProcessRaw implements reader.Packetizer.
func (p *Passthrough) ProcessRaw(data []byte, rawTimecodeNS int64, keyFrame bool) error {
	pk := NewPacket(&p.Base, data, rawTimecodeNS, keyFrame)
	pk.Fref = timecode.None
	if keyFrame || !p.haveLast {
		pk.Bref = timecode.None
	} else {
		pk.Bref = timecode.Valid(p.lastTimecodeNS)
	}
	p.lastTimecodeNS = rawTimecodeNS
	p.haveLast = true
	return p.Enqueue(pk)
}
