// Package packetizer implements the track-entry construction, packet
// queueing, AV-sync displacement and appending machinery every
// concrete codec packetizer shares (spec.md §4.7), plus three concrete
// packetizers (AAC, VPx, Passthrough) exercising it end-to-end.
//
// Base is embedded by concrete packetizers rather than subclassed
// (spec.md §9's "Packetizer-as-visitor" open question): behavior that
// differs per codec is captured as function fields set at construction
// time, not virtual methods on a base class.
package packetizer

import (
	"fmt"

	"github.com/mkvgo/mkvmux/buffer"
	"github.com/mkvgo/mkvmux/matroska"
	"github.com/mkvgo/mkvmux/muxerr"
	"github.com/mkvgo/mkvmux/packet"
	"github.com/mkvgo/mkvmux/timecode"
)

// Connectability is the result of a compatibility check between two
// packetizers being appended (spec.md §4.7 "Compatibility checks").
type Connectability int

const (
	CanConnect Connectability = iota
	NoFormat
	NoParameters
	MaybeCodecPrivate
)

// Displacement is the AV-sync adjustment pair applied to every raw
// timecode/duration a packetizer processes (spec.md §4.7 "AV-sync
// displacement").
type Displacement struct {
	NS           int64
	LinearFactor float64
}

func (d Displacement) apply(raw timecode.T) timecode.T {
	if !raw.IsValid() {
		return raw
	}
	factor := d.LinearFactor
	if factor == 0 {
		factor = 1
	}
	adjusted := float64(raw.NS()+d.NS) * factor
	return timecode.Valid(int64(adjusted + 0.5))
}

// Base implements the shared packetizer machinery. Concrete
// packetizers embed Base and supply codec-specific behavior through
// the function fields (BuildTrackEntry, ConnectCheck) set at
// construction time.
type Base struct {
	TrackEntry matroska.TrackEntry
	Factory    timecode.Factory
	FactoryMode timecode.Mode

	displacement Displacement

	queue []*packet.Packet

	nextPacketNo uint64
	frameIndex   int

	// appendedTo is the predecessor this packetizer continues from, if
	// any (spec.md §4.7 "Appending").
	appendedTo   *Base
	endOfStreamNS int64
	holding      bool

	// BuildTrackEntry lazily constructs TrackEntry at SetHeaders time;
	// nil means TrackEntry has already been fully populated by the
	// caller.
	BuildTrackEntry func(te *matroska.TrackEntry)

	// ConnectCheck implements the codec-specific half of CanConnectTo:
	// sample rate/channels/codec-private comparisons (spec.md §4.7).
	ConnectCheck func(self, other *Base) Connectability
}

// TrackNumber satisfies packet.Packetizer.
func (b *Base) TrackNumber() uint64 { return b.TrackEntry.Number }

// Entry returns the track's current TrackEntry, for the control plane
// to assemble the Tracks master after SetHeaders has run.
func (b *Base) Entry() matroska.TrackEntry { return b.TrackEntry }

// SetHeaders runs the codec hook BuildTrackEntry, if any; Number and
// UID are left as the caller set them.
func (b *Base) SetHeaders() {
	if b.BuildTrackEntry != nil {
		b.BuildTrackEntry(&b.TrackEntry)
	}
}

// SetDisplacement installs the AV-sync displacement pair this
// packetizer applies to every packet it processes.
func (b *Base) SetDisplacement(d Displacement) { b.displacement = d }

// Displacement reports the currently configured AV-sync adjustment.
func (b *Base) Displacement() Displacement { return b.displacement }

// AdjustForSync applies an AV-sync correction of deltaNS. A negative
// delta is folded into the displacement; no packets are dropped, and
// timecodes that fall below zero are clamped by Enqueue. A positive
// delta inserts copies of the first frame from duplicateFirstFrame
// until the delta is absorbed, or is folded into the displacement
// when duplicateFirstFrame is nil.
func (b *Base) AdjustForSync(deltaNS int64, duplicateFirstFrame func() *packet.Packet) []*packet.Packet {
	if deltaNS == 0 {
		return nil
	}
	if deltaNS < 0 {
		// Negative displacement: shift the displacement; no packet is
		// dropped here.
		b.displacement.NS += deltaNS
		return nil
	}
	// Positive displacement: duplicate the first frame as silence
	// until the delta is absorbed (spec.md §4.7).
	if duplicateFirstFrame == nil {
		b.displacement.NS += deltaNS
		return nil
	}
	var inserted []*packet.Packet
	remaining := deltaNS
	for remaining > 0 {
		p := duplicateFirstFrame()
		if p == nil {
			break
		}
		inserted = append(inserted, p)
		if p.Duration.IsValid() {
			remaining -= p.Duration.NS()
		} else {
			break
		}
	}
	return inserted
}

// AVIAudioSyncOffset converts a leading-garbage byte count the AVI
// reader reported into a time offset using block_align/samples_per_sec
// and folds it into the displacement instead of inserting bytes
// (spec.md §4.7 "AVI audio sync workaround").
func AVIAudioSyncOffset(garbageBytes, blockAlign, samplesPerSec int) int64 {
	if blockAlign <= 0 || samplesPerSec <= 0 {
		return 0
	}
	samples := float64(garbageBytes) / float64(blockAlign)
	return int64(samples / float64(samplesPerSec) * 1e9)
}

// Enqueue normalizes one packet's timing through the timecode factory
// (if any) and the AV-sync displacement, then appends it to the output
// queue (spec.md §4.7 "process(packet)").
func (b *Base) Enqueue(p *packet.Packet) error {
	p.Owner = b
	p.Number = b.nextPacketNo
	b.nextPacketNo++

	raw := p.Timecode
	if b.Factory != nil && b.FactoryMode != timecode.ModeNone {
		assigned, err := b.Factory.GetNext(b.frameIndex)
		if err != nil {
			return &muxerr.TimecodeError{Op: "packetizer.Enqueue", Err: err}
		}
		raw = assigned
		if b.Factory.ContainsGap(b.frameIndex) {
			p.GapFollowing = true
		}
	}
	b.frameIndex++

	p.AssignedTimecode = b.displacement.apply(raw)
	if clamped, didClamp := p.AssignedTimecode.ClampNonNegative(); didClamp {
		p.AssignedTimecode = clamped
	}
	if p.Duration.IsValid() && b.displacement.LinearFactor != 0 && b.displacement.LinearFactor != 1 {
		p.Duration = timecode.Valid(int64(float64(p.Duration.NS())*b.displacement.LinearFactor + 0.5))
	}
	// Bref/Fref arrive in the same raw source-timecode domain as
	// Timecode; carry them through the same AV-sync displacement so
	// they stay comparable to AssignedTimecode at the cluster helper.
	if p.Bref.IsValid() {
		p.Bref = b.displacement.apply(p.Bref)
	}
	if p.Fref.IsValid() {
		p.Fref = b.displacement.apply(p.Fref)
	}

	// Continue an appended predecessor's timeline (spec.md §4.7
	// "Appending"): shift by the accumulated end-of-stream time.
	if b.appendedTo != nil {
		shifted := p.AssignedTimecode.NS() + b.endOfStreamNS
		p.AssignedTimecode = timecode.Valid(shifted)
	}

	b.queue = append(b.queue, p)
	return nil
}

// Peek returns the head of the output queue without removing it, or
// nil if the queue is empty.
func (b *Base) Peek() *packet.Packet {
	if len(b.queue) == 0 {
		return nil
	}
	return b.queue[0]
}

// Pop removes and returns the head of the output queue.
func (b *Base) Pop() *packet.Packet {
	if len(b.queue) == 0 {
		return nil
	}
	p := b.queue[0]
	b.queue = b.queue[1:]
	return p
}

// QueueLen reports how many packets are buffered.
func (b *Base) QueueLen() int { return len(b.queue) }

// Holding reports whether this packetizer is backpressured waiting on
// an appended predecessor to drain (spec.md §5 "Backpressure").
func (b *Base) Holding() bool { return b.holding }

// SetHolding toggles the holding state; the control plane's scheduler
// stops selecting a holding packetizer.
func (b *Base) SetHolding(v bool) { b.holding = v }

// Connect marks self as the appended continuation of src: self's
// first enqueued packet's timeline starts at src's accumulated
// end-of-stream timecode (spec.md §4.7 "Appending").
func (b *Base) Connect(src *Base, srcEndOfStreamNS int64) Connectability {
	status := CanConnect
	if b.ConnectCheck != nil {
		status = b.ConnectCheck(b, src)
	}
	if status == CanConnect {
		b.appendedTo = src
		b.endOfStreamNS = srcEndOfStreamNS
	}
	return status
}

// CanConnectTo reports whether src could be appended before b without
// actually wiring the connection (spec.md §4.7).
func (b *Base) CanConnectTo(src *Base) Connectability {
	if b.ConnectCheck == nil {
		return CanConnect
	}
	return b.ConnectCheck(b, src)
}

func (c Connectability) String() string {
	switch c {
	case CanConnect:
		return "YES"
	case NoFormat:
		return "NO_FORMAT"
	case NoParameters:
		return "NO_PARAMETERS"
	case MaybeCodecPrivate:
		return "MAYBE_CODEC_PRIVATE"
	default:
		return fmt.Sprintf("Connectability(%d)", int(c))
	}
}

// NewPacket builds a packet.Packet from raw frame bytes, ready for
// Enqueue, owned by b.
func NewPacket(b *Base, data []byte, rawTimecodeNS int64, keyFrame bool) *packet.Packet {
	p := packet.New(b, buffer.NewBlock(data), timecode.Valid(rawTimecodeNS))
	p.KeyFrame = keyFrame
	return p
}
