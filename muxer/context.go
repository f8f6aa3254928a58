// Package muxer implements the cluster helper: the heart of muxing
// (spec.md §4.9). It drains each packetizer's packet queue in
// timecode order, assembles Matroska clusters and blocks (choosing
// SimpleBlock vs. BlockGroup, lacing, and the reference graph),
// applies splitting rules, and emits cues — all driven through an
// explicit MuxingContext rather than process-wide globals (spec.md §9
// "Global state" open question).
package muxer

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultTimecodeScale is Matroska's default TimecodeScale (1ms).
const DefaultTimecodeScale = 1_000_000

// Context is the "muxing context" object spec.md §9 calls for:
// TimecodeScale, the ignore-defaults rendering flag, and the UID
// allocators, constructed once per run and threaded through the
// control plane instead of living in package globals.
type Context struct {
	TimecodeScale  uint64
	IgnoreDefaults bool

	nextTrackNumber uint64
}

// NewContext builds a Context with Matroska's default TimecodeScale.
func NewContext() *Context {
	return &Context{TimecodeScale: DefaultTimecodeScale}
}

// NextTrackNumber hands out sequential, unique, 1-based track numbers
// (spec.md §3 "unique track number (per file)").
func (c *Context) NextTrackNumber() uint64 {
	return atomic.AddUint64(&c.nextTrackNumber, 1)
}

// NewTrackUID returns a random 128-bit-derived track UID, truncated to
// 64 bits the way SegmentUID/TrackUID fields are conventionally
// stored in this module (spec.md §3 "track UID (128-bit)" — mkvmerge
// itself stores these in a uint64 EBML field; the extra entropy of a
// full UUID is what the spec calls "random unique", not the storage
// width).
func (c *Context) NewTrackUID() uint64 {
	id := uuid.New()
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(id[i])
	}
	if v == 0 {
		return c.NewTrackUID()
	}
	return v
}

// NewSegmentUID returns a fresh 128-bit SegmentUID; each output file
// gets its own. No PrevUID/NextUID linking between split files is
// written.
func (c *Context) NewSegmentUID() []byte {
	id := uuid.New()
	return id[:]
}
