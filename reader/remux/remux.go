// Package remux reads an already-muxed Matroska file as an appended
// source (spec.md §4.7 "appended sources"): it walks the Segment with
// package ebml's low-level primitives and redispatches each track's
// frames to a bound packetizer, rather than decoding to an in-memory
// document the way package matroska's write-side model does.
package remux

import (
	"errors"
	"io"

	"github.com/mkvgo/mkvmux/buffer"
	"github.com/mkvgo/mkvmux/ebml"
	"github.com/mkvgo/mkvmux/matroska"
	"github.com/mkvgo/mkvmux/mlog"
	"github.com/mkvgo/mkvmux/muxerr"
	"github.com/mkvgo/mkvmux/reader"
)

// frame is one dispatch-ready unit pulled out of a Cluster, queued
// per-track until the control plane asks for it.
type frame struct {
	data       []byte
	timecodeNS int64
	keyFrame   bool
}

type trackEntry struct {
	number  uint64
	uid     uint64
	ttype   uint64
	codecID string
	private []byte
	name    string
	language string

	width, height               uint64
	samplingFrequency           float64
	channels                    uint64

	info  reader.TrackInfo
	ptzr  reader.Packetizer
	queue []frame
	done  bool
}

// Reader parses an appended Matroska source, exposing each of its
// tracks as an independent elementary stream to the rest of the
// pipeline.
type Reader struct {
	src  io.ReadSeeker
	rd   *ebml.Reader
	size int64

	timecodeScale uint64
	tracks        []*trackEntry
	byNumber      map[uint64]*trackEntry

	segmentEnd     int64 // -1 if unknown (Segment declared with an open size)
	nextClusterPos int64
	allScanned     bool
}

// New wraps src, a seekable view over an entire Matroska file. size is
// used only for progress reporting; pass 0 if unknown.
func New(src io.ReadSeeker, size int64) *Reader {
	return &Reader{src: src, size: size, byNumber: map[uint64]*trackEntry{}, segmentEnd: -1}
}

// Probe reports whether the stream opens with an EBML header.
func (d *Reader) Probe(r io.ReaderAt, size int64) int {
	buf := make([]byte, 4)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return 0
	}
	if uint32(buf[0])<<24|uint32(buf[1])<<16|uint32(buf[2])<<8|uint32(buf[3]) == matroska.EBMLHeaderID {
		return 1
	}
	return 0
}

func (d *Reader) ReadHeaders() error {
	rd, err := ebml.NewReader(d.src)
	if err != nil {
		return &muxerr.IOError{Op: "remux.ReadHeaders", Err: err}
	}
	d.rd = rd

	ebmlHeader, err := rd.ReadHeader()
	if err != nil {
		return &muxerr.FormatError{Op: "remux.ReadHeaders", Err: err}
	}
	if ebmlHeader.ID != matroska.EBMLHeaderID {
		return &muxerr.FormatError{Op: "remux.ReadHeaders", Err: errNotMatroska}
	}
	if err := rd.SkipBody(ebmlHeader); err != nil {
		return &muxerr.IOError{Op: "remux.ReadHeaders", Err: err}
	}

	segHeader, err := rd.ReadHeader()
	if err != nil {
		return &muxerr.FormatError{Op: "remux.ReadHeaders", Err: err}
	}
	if segHeader.ID != matroska.SegmentID {
		return &muxerr.FormatError{Op: "remux.ReadHeaders", Err: errNotMatroska}
	}
	if segHeader.Size != ebml.UnknownSize {
		d.segmentEnd = segHeader.BodyOffset + int64(segHeader.Size)
	}

	d.timecodeScale = 1_000_000
	for {
		h, err := rd.ReadHeader()
		if err == io.EOF {
			d.allScanned = true
			return nil
		}
		if err != nil {
			return &muxerr.FormatError{Op: "remux.ReadHeaders", Err: err}
		}
		switch h.ID {
		case matroska.SegmentInfoID:
			if err := d.parseInfo(h); err != nil {
				return err
			}
		case matroska.TracksID:
			if err := d.parseTracks(h); err != nil {
				return err
			}
		case matroska.ClusterID:
			d.nextClusterPos = h.BodyOffset - headerLen(h)
			return nil
		default:
			if err := rd.SkipBody(h); err != nil {
				return &muxerr.IOError{Op: "remux.ReadHeaders", Err: err}
			}
		}
	}
}

// headerLen recomputes the byte length of h's own ID+size prefix so a
// freshly read Cluster header can be rewound to be re-read uniformly
// by the cluster-scanning loop in fillNextCluster.
func headerLen(h ebml.ElementHeader) int64 {
	idLen := int64(len(ebml.EncodeID(h.ID)))
	sizeLen := int64(ebml.EncodedLength(h.Size))
	if h.Size == ebml.UnknownSize {
		sizeLen = 8
	}
	return idLen + sizeLen
}

var errNotMatroska = errors.New("remux: not an EBML/Matroska stream")

func (d *Reader) parseInfo(h ebml.ElementHeader) error {
	end := h.BodyOffset + int64(h.Size)
	for d.rd.Position() < end {
		ch, err := d.rd.ReadHeader()
		if err != nil {
			return &muxerr.FormatError{Op: "remux.parseInfo", Err: err}
		}
		if ch.ID == matroska.TimecodeScaleID {
			leaf, err := d.rd.ReadLeaf(ch, ebml.KindUint)
			if err != nil {
				return &muxerr.FormatError{Op: "remux.parseInfo", Err: err}
			}
			d.timecodeScale = leaf.Uint()
			continue
		}
		if err := d.rd.SkipBody(ch); err != nil {
			return &muxerr.IOError{Op: "remux.parseInfo", Err: err}
		}
	}
	return nil
}

func (d *Reader) parseTracks(h ebml.ElementHeader) error {
	end := h.BodyOffset + int64(h.Size)
	for d.rd.Position() < end {
		ch, err := d.rd.ReadHeader()
		if err != nil {
			return &muxerr.FormatError{Op: "remux.parseTracks", Err: err}
		}
		if ch.ID != matroska.TrackEntryID {
			if err := d.rd.SkipBody(ch); err != nil {
				return &muxerr.IOError{Op: "remux.parseTracks", Err: err}
			}
			continue
		}
		te, err := d.parseTrackEntry(ch)
		if err != nil {
			return err
		}
		id := len(d.tracks)
		te.info = reader.TrackInfo{ID: id, Type: trackTypeName(te.ttype), CodecID: te.codecID, Language: te.language}
		d.tracks = append(d.tracks, te)
		d.byNumber[te.number] = te
	}
	return nil
}

func trackTypeName(t uint64) string {
	switch t {
	case matroska.TrackTypeVideo:
		return "video"
	case matroska.TrackTypeAudio:
		return "audio"
	case matroska.TrackTypeSubtitle:
		return "subtitle"
	default:
		return "unknown"
	}
}

func (d *Reader) parseTrackEntry(h ebml.ElementHeader) (*trackEntry, error) {
	end := h.BodyOffset + int64(h.Size)
	te := &trackEntry{}
	for d.rd.Position() < end {
		ch, err := d.rd.ReadHeader()
		if err != nil {
			return nil, &muxerr.FormatError{Op: "remux.parseTrackEntry", Err: err}
		}
		switch ch.ID {
		case matroska.TrackNumberID:
			leaf, err := d.rd.ReadLeaf(ch, ebml.KindUint)
			if err != nil {
				return nil, err
			}
			te.number = leaf.Uint()
		case matroska.TrackUIDID:
			leaf, err := d.rd.ReadLeaf(ch, ebml.KindUint)
			if err != nil {
				return nil, err
			}
			te.uid = leaf.Uint()
		case matroska.TrackTypeID:
			leaf, err := d.rd.ReadLeaf(ch, ebml.KindUint)
			if err != nil {
				return nil, err
			}
			te.ttype = leaf.Uint()
		case matroska.CodecIDID:
			leaf, err := d.rd.ReadLeaf(ch, ebml.KindString)
			if err != nil {
				return nil, err
			}
			te.codecID = leaf.Str()
		case matroska.CodecPrivateID:
			leaf, err := d.rd.ReadLeaf(ch, ebml.KindBinary)
			if err != nil {
				return nil, err
			}
			te.private = leaf.Bytes()
		case matroska.NameID:
			leaf, err := d.rd.ReadLeaf(ch, ebml.KindUTF8)
			if err != nil {
				return nil, err
			}
			te.name = leaf.Str()
		case matroska.LanguageID:
			leaf, err := d.rd.ReadLeaf(ch, ebml.KindString)
			if err != nil {
				return nil, err
			}
			te.language = leaf.Str()
		case matroska.VideoID:
			if err := d.parseVideo(ch, te); err != nil {
				return nil, err
			}
		case matroska.AudioID:
			if err := d.parseAudio(ch, te); err != nil {
				return nil, err
			}
		default:
			if err := d.rd.SkipBody(ch); err != nil {
				return nil, &muxerr.IOError{Op: "remux.parseTrackEntry", Err: err}
			}
		}
	}
	return te, nil
}

func (d *Reader) parseVideo(h ebml.ElementHeader, te *trackEntry) error {
	end := h.BodyOffset + int64(h.Size)
	for d.rd.Position() < end {
		ch, err := d.rd.ReadHeader()
		if err != nil {
			return &muxerr.FormatError{Op: "remux.parseVideo", Err: err}
		}
		switch ch.ID {
		case matroska.PixelWidthID:
			leaf, err := d.rd.ReadLeaf(ch, ebml.KindUint)
			if err != nil {
				return err
			}
			te.width = leaf.Uint()
		case matroska.PixelHeightID:
			leaf, err := d.rd.ReadLeaf(ch, ebml.KindUint)
			if err != nil {
				return err
			}
			te.height = leaf.Uint()
		default:
			if err := d.rd.SkipBody(ch); err != nil {
				return &muxerr.IOError{Op: "remux.parseVideo", Err: err}
			}
		}
	}
	return nil
}

func (d *Reader) parseAudio(h ebml.ElementHeader, te *trackEntry) error {
	end := h.BodyOffset + int64(h.Size)
	for d.rd.Position() < end {
		ch, err := d.rd.ReadHeader()
		if err != nil {
			return &muxerr.FormatError{Op: "remux.parseAudio", Err: err}
		}
		switch ch.ID {
		case matroska.SamplingFrequencyID:
			leaf, err := d.rd.ReadLeaf(ch, ebml.KindFloat)
			if err != nil {
				return err
			}
			te.samplingFrequency = leaf.Float()
		case matroska.ChannelsID:
			leaf, err := d.rd.ReadLeaf(ch, ebml.KindUint)
			if err != nil {
				return err
			}
			te.channels = leaf.Uint()
		default:
			if err := d.rd.SkipBody(ch); err != nil {
				return &muxerr.IOError{Op: "remux.parseAudio", Err: err}
			}
		}
	}
	return nil
}

func (d *Reader) Identify() []reader.TrackInfo {
	out := make([]reader.TrackInfo, len(d.tracks))
	for i, t := range d.tracks {
		out[i] = t.info
	}
	return out
}

// TrackEntryByID exposes a track's parsed width/height/sampling-rate/
// channels/codec-private, for the control plane to build an adapted
// TrackEntry around when re-muxing this source's frames.
func (d *Reader) TrackEntryByID(id int) (width, height, channels uint64, samplingFrequency float64, codecPrivate []byte, ok bool) {
	if id < 0 || id >= len(d.tracks) {
		return 0, 0, 0, 0, nil, false
	}
	t := d.tracks[id]
	return t.width, t.height, t.channels, t.samplingFrequency, t.private, true
}

func (d *Reader) CreatePacketizers(bind func(trackID int, info reader.TrackInfo) reader.Packetizer) error {
	for i, t := range d.tracks {
		t.ptzr = bind(i, t.info)
	}
	return nil
}

// Read pops one queued frame for trackID, reading ahead through as
// many Clusters as needed to fill that track's queue.
func (d *Reader) Read(trackID int, force bool) (reader.Status, error) {
	if trackID < 0 || trackID >= len(d.tracks) {
		return reader.Done, &muxerr.InvariantError{Op: "remux.Read", Err: errUnknownTrack}
	}
	t := d.tracks[trackID]

	for len(t.queue) == 0 && !d.allScanned {
		if err := d.fillNextCluster(); err != nil {
			return reader.Done, err
		}
	}
	if len(t.queue) == 0 {
		t.done = true
		return reader.Done, nil
	}

	f := t.queue[0]
	t.queue = t.queue[1:]
	if err := t.ptzr.ProcessRaw(f.data, f.timecodeNS, f.keyFrame); err != nil {
		return reader.MoreData, err
	}
	return reader.MoreData, nil
}

var errUnknownTrack = errors.New("remux: unknown track id")

// fillNextCluster reads one Cluster's worth of blocks into the
// matching tracks' queues, or marks the source fully scanned.
func (d *Reader) fillNextCluster() error {
	if _, err := d.rd.Seek(d.nextClusterPos, io.SeekStart); err != nil {
		return &muxerr.IOError{Op: "remux.fillNextCluster", Err: err}
	}
	h, err := d.rd.ReadHeader()
	if err == io.EOF || (d.segmentEnd > 0 && d.rd.Position() > d.segmentEnd) {
		d.allScanned = true
		return nil
	}
	if err != nil {
		return &muxerr.FormatError{Op: "remux.fillNextCluster", Err: err}
	}
	if h.ID != matroska.ClusterID {
		d.allScanned = true
		return nil
	}
	if h.Size == ebml.UnknownSize {
		return &muxerr.UnsupportedError{Op: "remux.fillNextCluster", Err: errUnknownClusterSize}
	}

	end := h.BodyOffset + int64(h.Size)
	var clusterTicks uint64
	for d.rd.Position() < end {
		ch, err := d.rd.ReadHeader()
		if err != nil {
			return &muxerr.FormatError{Op: "remux.fillNextCluster", Err: err}
		}
		switch ch.ID {
		case matroska.TimecodeID:
			leaf, err := d.rd.ReadLeaf(ch, ebml.KindUint)
			if err != nil {
				return err
			}
			clusterTicks = leaf.Uint()
		case matroska.SimpleBlockID:
			leaf, err := d.rd.ReadLeaf(ch, ebml.KindBinary)
			if err != nil {
				return err
			}
			if err := d.dispatchBlock(leaf.Bytes(), clusterTicks, true, false); err != nil {
				mlog.With("reader.remux").Warn().Err(err).Msg("dropping malformed SimpleBlock")
			}
		case matroska.BlockGroupID:
			if err := d.dispatchBlockGroup(ch, clusterTicks); err != nil {
				mlog.With("reader.remux").Warn().Err(err).Msg("dropping malformed BlockGroup")
			}
		default:
			if err := d.rd.SkipBody(ch); err != nil {
				return &muxerr.IOError{Op: "remux.fillNextCluster", Err: err}
			}
		}
	}

	d.nextClusterPos = end
	return nil
}

var errUnknownClusterSize = errors.New("remux: cluster with unknown size is not supported")

func (d *Reader) dispatchBlockGroup(h ebml.ElementHeader, clusterTicks uint64) error {
	end := h.BodyOffset + int64(h.Size)
	var blockBytes []byte
	hasBref := false
	for d.rd.Position() < end {
		ch, err := d.rd.ReadHeader()
		if err != nil {
			return &muxerr.FormatError{Op: "remux.dispatchBlockGroup", Err: err}
		}
		switch ch.ID {
		case matroska.BlockID:
			leaf, err := d.rd.ReadLeaf(ch, ebml.KindBinary)
			if err != nil {
				return err
			}
			blockBytes = leaf.Bytes()
		case matroska.ReferenceBlockID:
			leaf, err := d.rd.ReadLeaf(ch, ebml.KindInt)
			if err != nil {
				return err
			}
			if leaf.Int() < 0 {
				hasBref = true
			}
		default:
			if err := d.rd.SkipBody(ch); err != nil {
				return &muxerr.IOError{Op: "remux.dispatchBlockGroup", Err: err}
			}
		}
	}
	if blockBytes == nil {
		return nil
	}
	return d.dispatchBlock(blockBytes, clusterTicks, false, !hasBref)
}

// dispatchBlock decodes one (Simple)Block's track number/timecode/
// flags/payload and queues one frame per laced sub-frame. For a
// SimpleBlock (isSimple), the keyframe bit in its own flags byte is
// authoritative; for a BlockGroup's Block, that bit is unused and
// groupIsKeyFrame (no ReferenceBlock child with a negative, backward
// offset) decides instead.
func (d *Reader) dispatchBlock(data []byte, clusterTicks uint64, isSimple, groupIsKeyFrame bool) error {
	trackNumber, n, err := ebml.DecodeSize(data)
	if err != nil {
		return &muxerr.FormatError{Op: "remux.dispatchBlock", Err: err}
	}
	data = data[n:]
	if len(data) < 3 {
		return &muxerr.FormatError{Op: "remux.dispatchBlock", Err: errTruncatedBlock}
	}
	relative := int16(uint16(data[0])<<8 | uint16(data[1]))
	flags := data[2]
	data = data[3:]

	t, ok := d.byNumber[trackNumber]
	if !ok {
		return nil // frame for a track we never bound; ignore
	}

	laceMode := laceModeFromFlags(flags)
	var frames [][]byte
	if laceMode == buffer.LaceNone {
		frames = [][]byte{data}
	} else {
		if len(data) < 1 {
			return &muxerr.FormatError{Op: "remux.dispatchBlock", Err: errTruncatedBlock}
		}
		count := int(data[0]) + 1
		frames, err = buffer.Unlace(data[1:], count, laceMode)
		if err != nil {
			return &muxerr.FormatError{Op: "remux.dispatchBlock", Err: err}
		}
	}

	baseTicks := int64(clusterTicks) + int64(relative)
	baseNS := baseTicks * int64(d.timecodeScale)
	kf := groupIsKeyFrame
	if isSimple {
		kf = flags&0x80 != 0
	}
	for _, fr := range frames {
		t.queue = append(t.queue, frame{data: fr, timecodeNS: baseNS, keyFrame: kf})
	}
	return nil
}

var errTruncatedBlock = errors.New("remux: block header truncated")

func laceModeFromFlags(flags byte) buffer.LaceMode {
	switch flags & 0x06 {
	case 0x02:
		return buffer.LaceXiph
	case 0x04:
		return buffer.LaceFixed
	case 0x06:
		return buffer.LaceEBML
	default:
		return buffer.LaceNone
	}
}

func (d *Reader) GetProgress() int {
	if d.size <= 0 || d.nextClusterPos <= 0 {
		return 0
	}
	pct := int(d.nextClusterPos * 100 / d.size)
	if pct > 100 {
		pct = 100
	}
	return pct
}
