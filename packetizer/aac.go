package packetizer

import (
	"github.com/mkvgo/mkvmux/matroska"
	"github.com/mkvgo/mkvmux/packet"
	"github.com/mkvgo/mkvmux/timecode"
)

// AAC packetizes raw AAC frames (ADTS already stripped by reader/aac)
// into packets carrying a fixed per-frame duration (spec.md §4.7
// "AAC", SHORT_QUEUEING mode: one-packet look-ahead is enough because
// the reader already knows each frame's sample count).
type AAC struct {
	Base

	defaultDurationNS int64
}

// NewAAC builds an AAC packetizer. codecPrivate is the raw
// AudioSpecificConfig the reader parsed from the ADTS header;
// frameDurationNS is samples_per_frame/sample_rate in nanoseconds.
func NewAAC(trackNumber, trackUID uint64, sampleRate, channels int, codecPrivate []byte, frameDurationNS int64) *AAC {
	p := &AAC{defaultDurationNS: frameDurationNS}
	p.TrackEntry = matroska.TrackEntry{
		Number:            trackNumber,
		UID:               trackUID,
		Type:              matroska.TrackTypeAudio,
		CodecID:           "A_AAC",
		CodecPrivate:      codecPrivate,
		DefaultDurationNS: uint64(frameDurationNS),
		Enabled:           true,
		Default:           true,
		Audio: &matroska.AudioSettings{
			SamplingFrequency: float64(sampleRate),
			Channels:          uint64(channels),
		},
	}
	return p
}

// ProcessRaw implements reader.Packetizer: every AAC frame is a
// keyframe (no inter-frame prediction at the container level) with a
// fixed duration.
func (p *AAC) ProcessRaw(data []byte, rawTimecodeNS int64, keyFrame bool) error {
	pk := NewPacket(&p.Base, data, rawTimecodeNS, true)
	pk.Bref = timecode.None
	pk.Fref = timecode.None
	pk.Duration = timecode.Valid(p.defaultDurationNS)
	return p.Enqueue(pk)
}

// Flush resolves any buffered tail packet's duration; AAC's fixed
// per-frame duration means there is never a tail packet awaiting a
// look-ahead frame, so this is a no-op kept for interface symmetry
// with packetizers that do need it (e.g. a FULL_QUEUEING video
// packetizer).
func (p *AAC) Flush() []*packet.Packet { return nil }
