// Package reader defines the external-collaborator interface every
// per-format elementary-stream parser implements (spec.md §4.6), plus
// the concrete readers this module ships to exercise the pipeline
// end-to-end: reader/aac (ADTS), reader/ivf (VP8/VP9 IVF), and
// reader/remux (appended Matroska sources).
package reader

import "io"

// Status is the result of one Read call.
type Status int

const (
	MoreData Status = iota
	Done
	Holding // backpressure: an appended-source predecessor hasn't drained
)

// Packetizer is the minimal sink a Reader emits packets into; it is
// satisfied by packetizer.Base and friends without reader needing to
// import the packetizer package (avoiding an import cycle).
type Packetizer interface {
	ProcessRaw(data []byte, rawTimecodeNS int64, keyFrame bool) error
}

// TrackInfo is what read_headers() and identify() populate for one
// elementary stream found in the source.
type TrackInfo struct {
	ID       int
	Type     string // "audio", "video", "subtitle"
	CodecID  string
	Language string
}

// Reader is the contract every format-specific parser implements
// (spec.md §4.6).
type Reader interface {
	// Probe sniffs a bounded prefix of the input and reports a
	// confidence-free yes/no via a positive/negative int (mirrors the
	// "probe(io, size) -> int" signature; 0 means "not recognized").
	Probe(r io.ReaderAt, size int64) int

	// ReadHeaders populates in-memory track/attachment/chapter state;
	// must leave the file cursor where Read can resume.
	ReadHeaders() error

	// Identify reports the tracks found, for identification mode.
	Identify() []TrackInfo

	// CreatePacketizers binds each track to its Packetizer.
	CreatePacketizers(bind func(trackID int, info TrackInfo) Packetizer) error

	// Read emits zero or more packets into the packetizer bound to
	// trackID. force requests flushing even a partial/ambiguous
	// trailing frame (used at end-of-stream).
	Read(trackID int, force bool) (Status, error)

	// GetProgress reports 0..100.
	GetProgress() int
}

// ChaptersProvider is an optional Reader capability.
type ChaptersProvider interface {
	GetChapters() (startsNS []int64, err error)
}
