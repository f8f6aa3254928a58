package muxer

import (
	"bytes"
	"fmt"

	"github.com/mkvgo/mkvmux/buffer"
	"github.com/mkvgo/mkvmux/ebml"
	"github.com/mkvgo/mkvmux/matroska"
	"github.com/mkvgo/mkvmux/muxerr"
	"github.com/mkvgo/mkvmux/packet"
	"github.com/mkvgo/mkvmux/timecode"
)

// defaultMaxClusterBytes is the "1.5 MB" cluster-too-full bound from
// spec.md §4.9.
const defaultMaxClusterBytes = 1536 * 1024

// defaultMaxBlocksPerCluster bounds how many blocks accumulate in one
// cluster before a flush is forced regardless of byte/time thresholds.
const defaultMaxBlocksPerCluster = 65536

// maxDeltaTicks is the largest timecode delta (in TimecodeScale ticks)
// a block's signed 16-bit relative timecode can encode.
const maxDeltaTicks = 32767

// TrackConfig is what the control plane registers per track with the
// ClusterHelper: the knobs spec.md §4.9 keys block assembly and cue
// emission off of.
type TrackConfig struct {
	TrackNumber       uint64
	Lacing            bool
	LaceMode          buffer.LaceMode
	CueStrategy       CueStrategy
	DefaultDurationNS int64
	ReferencePriority uint64
	IsVideo           bool
	IsAudioOnly       bool // set by the control plane for a lone non-video track; SPARSE cueing does not read it and checks only that the file has no video track
}

// RenderedCluster is what ClusterHelper.Flush returns: the serialized
// Cluster element's bytes plus the bookkeeping the control plane needs
// to update cue cluster-positions and running file size.
type RenderedCluster struct {
	Bytes        []byte
	BaseTicks    int64
	MinTicks     int64
	MaxTicks     int64
	BlockCount   int
	CuePoints    []CuePoint
}

// ClusterHelper is the cluster/block assembly engine (spec.md §4.9):
// per-packet admission, split-point evaluation, SimpleBlock/BlockGroup
// selection, lacing, and cue emission.
type ClusterHelper struct {
	Ctx *Context

	tracks map[uint64]TrackConfig
	cues   *cueWriter
	Split  SplitConfig

	MaxNsPerCluster int64

	splitTimecodeIdx int
	splitChapterIdx  int

	currentCluster     []*packet.Packet // pending, not yet rendered
	clusterMinTicks    int64
	clusterMaxTicks    int64
	clusterFirstTicks  int64
	haveCurrentCluster bool

	previousClusterTicks int64
	havePreviousCluster  bool

	firstTimecodeInFileNS int64
	haveFirstInFile       bool
	fileBytesWritten      int64
	headerOverheadBytes   int64
	cuesEstimateBytes     int64

	// OnSplit is invoked when a split boundary is crossed: the helper
	// has already flushed the current cluster and accumulated cues;
	// the callback closes the current file and opens the next one; a
	// non-nil error aborts AddPacket (the control plane owns naming
	// per spec.md §6.3).
	OnSplit func(cues []CuePoint) error
}

// NewClusterHelper builds a ClusterHelper for the given muxing
// context. hasVideoTrack feeds the SPARSE cue strategy's "no video
// track in the file" condition.
func NewClusterHelper(ctx *Context, hasVideoTrack bool) *ClusterHelper {
	return &ClusterHelper{
		Ctx:             ctx,
		tracks:          map[uint64]TrackConfig{},
		cues:            newCueWriter(hasVideoTrack),
		MaxNsPerCluster: 5_000_000_000, // 5s, matching mkvmerge's own default cluster length cap
	}
}

// RegisterTrack records per-track configuration used by block assembly
// and cue emission.
func (c *ClusterHelper) RegisterTrack(tc TrackConfig) { c.tracks[tc.TrackNumber] = tc }

func (c *ClusterHelper) scaleTicks(ns int64) int64 {
	scale := int64(c.Ctx.TimecodeScale)
	if scale <= 0 {
		scale = DefaultTimecodeScale
	}
	half := scale / 2
	if ns >= 0 {
		return (ns + half) / scale
	}
	return (ns - half) / scale
}

func (c *ClusterHelper) ticksToNS(ticks int64) int64 {
	scale := int64(c.Ctx.TimecodeScale)
	if scale <= 0 {
		scale = DefaultTimecodeScale
	}
	return ticks * scale
}

// AddPacket implements the per-packet admission algorithm of spec.md
// §4.9. It may return zero or more RenderedCluster values (a packet
// can force the prior cluster to flush before it is itself admitted).
// A packet that crosses a split boundary calls OnSplit first.
func (c *ClusterHelper) AddPacket(p *packet.Packet) ([]RenderedCluster, error) {
	if !p.AssignedTimecode.IsValid() {
		return nil, &muxerr.InvariantError{Op: "muxer.AddPacket", Err: fmt.Errorf("packet has no assigned timecode")}
	}

	atTicks := c.scaleTicks(p.AssignedTimecode.NS())
	var flushed []RenderedCluster

	if c.haveCurrentCluster {
		maxTC := c.clusterMaxTicks
		if atTicks > maxTC {
			maxTC = atTicks
		}
		minTC := c.clusterMinTicks
		if atTicks < minTC {
			minTC = atTicks
		}
		delay := maxTC - minTC
		spanNS := p.AssignedTimecode.NS() - c.ticksToNS(c.clusterFirstTicks)

		prevPacketGap := len(c.currentCluster) > 0 && c.currentCluster[len(c.currentCluster)-1].GapFollowing
		if delay > maxDeltaTicks || prevPacketGap || spanNS > c.MaxNsPerCluster {
			rc, err := c.flushCluster()
			if err != nil {
				return nil, err
			}
			flushed = append(flushed, rc)
		}
	}

	if !c.haveFirstInFile {
		c.firstTimecodeInFileNS = p.AssignedTimecode.NS()
		c.haveFirstInFile = true
	}

	if c.splitNeeded(p) {
		if c.OnSplit != nil {
			if err := c.OnSplit(c.cues.Points()); err != nil {
				return flushed, err
			}
		}
		c.cues.Reset()
		c.fileBytesWritten = 0
		c.haveFirstInFile = false
		c.firstTimecodeInFileNS = p.AssignedTimecode.NS()
		c.haveFirstInFile = true
	}

	if c.Split.Mode == SplitByParts {
		win := partWindowFor(c.Split.Parts, p.AssignedTimecode.NS())
		if win == nil {
			return flushed, nil // outside every window: dropped
		}
		rebased := p.AssignedTimecode.NS() - win.StartNS
		p.AssignedTimecode = timecode.Valid(rebased)
		atTicks = c.scaleTicks(rebased)
	}

	if !c.haveCurrentCluster {
		c.currentCluster = nil
		c.clusterFirstTicks = atTicks
		c.clusterMinTicks = atTicks
		c.clusterMaxTicks = atTicks
		c.haveCurrentCluster = true
	}

	c.currentCluster = append(c.currentCluster, p)
	if atTicks < c.clusterMinTicks {
		c.clusterMinTicks = atTicks
	}
	if atTicks > c.clusterMaxTicks {
		c.clusterMaxTicks = atTicks
	}

	if c.clusterTooFull() {
		rc, err := c.flushCluster()
		if err != nil {
			return flushed, err
		}
		flushed = append(flushed, rc)
	}

	return flushed, nil
}

func (c *ClusterHelper) clusterTooFull() bool {
	if len(c.currentCluster) >= defaultMaxBlocksPerCluster {
		return true
	}
	spanNS := c.ticksToNS(c.clusterMaxTicks - c.clusterFirstTicks)
	if spanNS >= c.MaxNsPerCluster {
		return true
	}
	var bytesEstimate int64
	for _, p := range c.currentCluster {
		bytesEstimate += int64(p.Buffer.Len())
	}
	return bytesEstimate > defaultMaxClusterBytes
}

// splitNeeded evaluates the size/duration/timecode-list/chapter split
// conditions (spec.md §4.9 "Split conditions"), only for packets with
// no backward reference (key-frame-equivalent admission points).
func (c *ClusterHelper) splitNeeded(p *packet.Packet) bool {
	if p.Bref.IsValid() {
		return false
	}
	switch c.Split.Mode {
	case SplitBySize:
		var clusterEstimate int64
		for _, pk := range c.currentCluster {
			clusterEstimate += int64(pk.Buffer.Len())
		}
		return c.fileBytesWritten+c.headerOverheadBytes+clusterEstimate+c.cuesEstimateBytes >= c.Split.SizeThresholdBytes
	case SplitByDuration:
		if !c.haveFirstInFile {
			return false
		}
		return p.AssignedTimecode.NS()-c.firstTimecodeInFileNS >= c.Split.DurationThresholdNS
	case SplitByTimecodes:
		idx, crossed := nextPointIndex(c.Split.TimecodePoints, c.splitTimecodeIdx, p.AssignedTimecode.NS())
		c.splitTimecodeIdx = idx
		return crossed
	case SplitByChapters:
		idx, crossed := nextPointIndex(c.Split.ChapterPoints, c.splitChapterIdx, p.AssignedTimecode.NS())
		c.splitChapterIdx = idx
		return crossed
	default:
		return false
	}
}

// Flush forces the current (possibly partial) cluster to render, for
// end-of-stream callers.
func (c *ClusterHelper) Flush() (*RenderedCluster, error) {
	if !c.haveCurrentCluster || len(c.currentCluster) == 0 {
		return nil, nil
	}
	rc, err := c.flushCluster()
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

// CuePoints returns the cues accumulated for the currently open file.
func (c *ClusterHelper) CuePoints() []CuePoint { return c.cues.Points() }

func (c *ClusterHelper) flushCluster() (RenderedCluster, error) {
	packets := c.currentCluster
	baseTicks := c.clusterFirstTicks
	minTicks := c.clusterMinTicks
	maxTicks := c.clusterMaxTicks

	cluster := ebml.NewMaster(matroska.ClusterID)
	tcElem := ebml.NewElement(matroska.TimecodeID, ebml.KindUint)
	tcElem.SetData(ebml.EncodeUint(uint64(baseTicks)))
	cluster.Push(tcElem)

	var cuePoints []CuePoint
	blockIndex := 0

	groups := groupConsecutiveByTrack(packets)
	for _, g := range groups {
		tc := c.tracks[g[0].Owner.TrackNumber()]
		elems, cues, err := c.renderGroup(g, tc, baseTicks, &blockIndex)
		if err != nil {
			return RenderedCluster{}, err
		}
		for _, e := range elems {
			cluster.Push(e)
		}
		cuePoints = append(cuePoints, cues...)
	}

	var buf bytes.Buffer
	if err := cluster.Render(&buf, c.Ctx.IgnoreDefaults, false); err != nil {
		return RenderedCluster{}, fmt.Errorf("muxer: rendering cluster: %w", err)
	}

	for _, cp := range cuePoints {
		c.cues.Add(cp)
	}

	c.fileBytesWritten += int64(buf.Len())
	c.previousClusterTicks = baseTicks
	c.havePreviousCluster = true
	c.currentCluster = nil
	c.haveCurrentCluster = false

	return RenderedCluster{
		Bytes:      buf.Bytes(),
		BaseTicks:  baseTicks,
		MinTicks:   minTicks,
		MaxTicks:   maxTicks,
		BlockCount: blockIndex,
		CuePoints:  cuePoints,
	}, nil
}

// groupConsecutiveByTrack splits packets into maximal runs sharing the
// same owning track (spec.md §4.9 "a render group holds 1..N
// consecutive packets from one track").
func groupConsecutiveByTrack(packets []*packet.Packet) [][]*packet.Packet {
	var groups [][]*packet.Packet
	for _, p := range packets {
		if len(groups) > 0 {
			last := groups[len(groups)-1]
			if last[0].Owner.TrackNumber() == p.Owner.TrackNumber() && sameRefStructure(last[len(last)-1], p) {
				groups[len(groups)-1] = append(last, p)
				continue
			}
		}
		groups = append(groups, []*packet.Packet{p})
	}
	return groups
}

// sameRefStructure reports whether two consecutive packets from the
// same track are eligible to share a render group: identical
// bref/fref validity pattern and no codec-state/additions on either.
func sameRefStructure(a, b *packet.Packet) bool {
	if a.Bref.IsValid() != b.Bref.IsValid() || a.Fref.IsValid() != b.Fref.IsValid() {
		return false
	}
	if len(a.CodecState) > 0 || len(b.CodecState) > 0 {
		return false
	}
	if len(a.DataAdds) > 0 || len(b.DataAdds) > 0 {
		return false
	}
	return true
}

// renderGroup turns one render group into SimpleBlock/BlockGroup
// elements plus any cue points its blocks qualify for.
func (c *ClusterHelper) renderGroup(group []*packet.Packet, tc TrackConfig, baseTicks int64, blockIndex *int) ([]*ebml.Element, []CuePoint, error) {
	defaultDuration := int64(0)
	if tc.DefaultDurationNS > 0 {
		defaultDuration = c.scaleTicks(tc.DefaultDurationNS)
	}

	defaultDur := timecode.None
	if defaultDuration > 0 {
		defaultDur = timecode.Valid(c.ticksToNS(defaultDuration))
	}
	allSimple := true
	for _, p := range group {
		if p.NeedsBlockGroup(defaultDur) {
			allSimple = false
			break
		}
	}

	var elems []*ebml.Element
	var cues []CuePoint

	if allSimple && tc.Lacing && len(group) > 1 {
		elem, err := c.renderSimpleBlock(group, tc, baseTicks, true)
		if err != nil {
			return nil, nil, err
		}
		elems = append(elems, elem)
		first := group[0]
		atTicks := c.scaleTicks(first.AssignedTimecode.NS())
		if c.cues.ShouldCue(tc.CueStrategy, tc.TrackNumber, c.ticksToNS(atTicks), first.Bref.IsValid() || first.Fref.IsValid(), false) {
			cues = append(cues, CuePoint{TimecodeNS: c.ticksToNS(atTicks), TrackNumber: tc.TrackNumber, BlockIndexInCluster: *blockIndex})
		}
		*blockIndex++
		return elems, cues, nil
	}

	for _, p := range group {
		atTicks := c.scaleTicks(p.AssignedTimecode.NS())
		var elem *ebml.Element
		var err error
		if allSimple {
			elem, err = c.renderSimpleBlock([]*packet.Packet{p}, tc, baseTicks, false)
		} else {
			elem, err = c.renderBlockGroup(p, tc, baseTicks)
		}
		if err != nil {
			return nil, nil, err
		}
		elems = append(elems, elem)
		if c.cues.ShouldCue(tc.CueStrategy, tc.TrackNumber, c.ticksToNS(atTicks), p.Bref.IsValid() || p.Fref.IsValid(), len(p.CodecState) > 0) {
			cues = append(cues, CuePoint{TimecodeNS: c.ticksToNS(atTicks), TrackNumber: tc.TrackNumber, BlockIndexInCluster: *blockIndex})
		}
		*blockIndex++
	}
	return elems, cues, nil
}

func (c *ClusterHelper) renderSimpleBlock(group []*packet.Packet, tc TrackConfig, baseTicks int64, laced bool) (*ebml.Element, error) {
	first := group[0]
	relTC, err := relativeTimecode(c.scaleTicks(first.AssignedTimecode.NS()), baseTicks)
	if err != nil {
		return nil, &muxerr.TimecodeError{Op: "muxer.renderSimpleBlock", Err: err}
	}

	mode := buffer.LaceNone
	var payload []byte
	if laced {
		mode = tc.LaceMode
		if mode == buffer.LaceNone {
			mode = buffer.LaceXiph
		}
		frames := make([][]byte, len(group))
		for i, p := range group {
			frames[i] = p.Buffer.Bytes()
		}
		laceHeader, err := buffer.Lace(frames, mode)
		if err != nil {
			return nil, err
		}
		payload = append(payload, laceHeader...)
		for _, f := range frames {
			payload = append(payload, f...)
		}
	} else {
		payload = append(payload, first.Buffer.Bytes()...)
	}

	header, err := encodeBlockHeader(tc.TrackNumber, relTC, first.KeyFrame, false, first.Discardable, mode)
	if err != nil {
		return nil, err
	}

	e := ebml.NewElement(matroska.SimpleBlockID, ebml.KindBinary)
	e.SetData(append(header, payload...))
	return e, nil
}

func (c *ClusterHelper) renderBlockGroup(p *packet.Packet, tc TrackConfig, baseTicks int64) (*ebml.Element, error) {
	relTC, err := relativeTimecode(c.scaleTicks(p.AssignedTimecode.NS()), baseTicks)
	if err != nil {
		return nil, &muxerr.TimecodeError{Op: "muxer.renderBlockGroup", Err: err}
	}
	header, err := encodeBlockHeader(tc.TrackNumber, relTC, false, false, p.Discardable, buffer.LaceNone)
	if err != nil {
		return nil, err
	}

	block := ebml.NewElement(matroska.BlockID, ebml.KindBinary)
	block.SetData(append(header, p.Buffer.Bytes()...))

	bg := ebml.NewMaster(matroska.BlockGroupID)
	bg.Push(block)

	atTicks := c.scaleTicks(p.AssignedTimecode.NS())
	if p.Bref.IsValid() {
		delta := c.scaleTicks(p.Bref.NS()) - atTicks
		bg.Push(signedIntElement(matroska.ReferenceBlockID, delta))
	}
	if p.Fref.IsValid() {
		delta := c.scaleTicks(p.Fref.NS()) - atTicks
		bg.Push(signedIntElement(matroska.ReferenceBlockID, delta))
	}
	if p.Duration.IsValid() && p.DurationMandatory {
		durTicks := c.scaleTicks(p.Duration.NS())
		dur := ebml.NewElement(matroska.BlockDurationID, ebml.KindUint)
		dur.SetData(ebml.EncodeUint(uint64(durTicks)))
		bg.Push(dur)
	}
	if len(p.CodecState) > 0 {
		state := ebml.NewElement(matroska.CodecStateID, ebml.KindBinary)
		state.SetData(p.CodecState)
		bg.Push(state)
	}
	if tc.ReferencePriority > 0 {
		pr := ebml.NewElement(matroska.ReferencePriorityID, ebml.KindUint)
		pr.SetData(ebml.EncodeUint(tc.ReferencePriority))
		bg.Push(pr)
	}
	if len(p.DataAdds) > 0 {
		adds := ebml.NewMaster(matroska.BlockAdditionsID)
		for id, data := range p.DataAdds {
			more := ebml.NewMaster(matroska.BlockMoreID)
			addID := ebml.NewElement(matroska.BlockAdditionIDID, ebml.KindUint)
			addID.SetData(ebml.EncodeUint(id))
			more.Push(addID)
			addData := ebml.NewElement(matroska.BlockAdditionalID, ebml.KindBinary)
			addData.SetData(data)
			more.Push(addData)
			adds.Push(more)
		}
		bg.Push(adds)
	}
	return bg, nil
}

func signedIntElement(id uint32, v int64) *ebml.Element {
	e := ebml.NewElement(id, ebml.KindInt)
	e.SetData(ebml.EncodeInt(v))
	return e
}
