// Package packet defines the pipeline currency flowing from readers
// through packetizers into the cluster helper (spec.md §3 "Packet").
package packet

import (
	"github.com/mkvgo/mkvmux/buffer"
	"github.com/mkvgo/mkvmux/timecode"
)

// Packetizer is the narrow interface the cluster helper needs from a
// packet's owner: the number of the track the packet belongs to.
type Packetizer interface {
	TrackNumber() uint64
}

// Packet is one normalized unit of media data after it has passed
// through a packetizer: payload, identity, timing, and the reference
// graph needed to pick SimpleBlock vs. BlockGroup at render time.
type Packet struct {
	Owner Packetizer

	// Buffer holds the encoded payload (after any content-encoding
	// pipeline has already been applied on read, or is yet to be
	// applied on write).
	Buffer *buffer.Block

	// Number is a monotonically increasing, per-run packet number
	// used as a stable tiebreak for interleaving.
	Number uint64

	// Timecode is the source-derived raw timestamp; AssignedTimecode
	// is the value after the timecode factory and AV-sync
	// displacement have been applied (spec.md §4.7).
	Timecode         timecode.T
	AssignedTimecode timecode.T

	Duration          timecode.T
	DurationMandatory bool

	// Bref/Fref are absolute nanosecond timecodes of the backward/
	// forward reference frame, or timecode.None if there is none.
	Bref timecode.T
	Fref timecode.T

	KeyFrame    bool
	Discardable bool

	// CodecState is an optional codec-state blob; its presence forces
	// this packet to render as a BlockGroup instead of a SimpleBlock.
	CodecState []byte

	// DataAdds holds optional BlockAdditions payloads, keyed by add
	// ID (1 is implicit/reserved for the primary block data).
	DataAdds map[uint64][]byte

	// GapFollowing forces a cluster boundary immediately after this
	// packet (set by a v3 timecode factory's contains_gap, or an
	// appended-source discontinuity).
	GapFollowing bool

	// MultipleTimecodes carries the per-extension list of additional
	// timecodes a lacing decision needs (e.g. EBML/Xiph laced groups
	// that must report each sub-frame's own timecode to the cues).
	MultipleTimecodes []timecode.T
}

// New constructs a Packet owned by p with the given raw timecode and
// payload; all other fields take their zero value (no duration, no
// references, not a keyframe) until the packetizer fills them in.
func New(p Packetizer, buf *buffer.Block, raw timecode.T) *Packet {
	return &Packet{
		Owner:    p,
		Buffer:   buf,
		Timecode: raw,
	}
}

// EndTimecode returns AssignedTimecode+Duration, or AssignedTimecode
// alone if Duration is not valid.
func (pk *Packet) EndTimecode() timecode.T {
	if !pk.Duration.IsValid() {
		return pk.AssignedTimecode
	}
	return pk.AssignedTimecode.Add(pk.Duration)
}

// NeedsBlockGroup reports whether this packet cannot be represented as
// a bare SimpleBlock: it has references, a codec-state blob, block
// additions, or an explicit (non-default) duration (spec.md §4.9).
func (pk *Packet) NeedsBlockGroup(defaultDuration timecode.T) bool {
	if pk.Bref.IsValid() || pk.Fref.IsValid() {
		return true
	}
	if len(pk.CodecState) > 0 || len(pk.DataAdds) > 0 {
		return true
	}
	if pk.DurationMandatory && pk.Duration.IsValid() {
		if !defaultDuration.IsValid() || pk.Duration.NS() != defaultDuration.NS() {
			return true
		}
	}
	return false
}
