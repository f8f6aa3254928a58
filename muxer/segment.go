package muxer

import (
	"bytes"
	"fmt"
	"os"

	"github.com/mkvgo/mkvmux/ebml"
	"github.com/mkvgo/mkvmux/matroska"
	"github.com/mkvgo/mkvmux/muxerr"
)

// segmentSizeLength is the coded length reserved for the Segment's
// size VINT. Streaming a Segment of unknown total length (because
// clusters arrive incrementally) is legal per spec.md §6.1 and is what
// mkvmerge itself does for an unclosed output file.
const segmentSizeLength = 8

// Writer owns one output file's EBML-document lifecycle: header,
// Segment (unknown size), SegmentInfo, Tracks, a stream of rendered
// Cluster blobs, and the trailing Cues master (spec.md §6.1, §6.3).
type Writer struct {
	f        *os.File
	pos      int64 // bytes written since the Segment's content began
	cues     []CuePoint
	docType  string
}

// NewWriter creates (truncating) the output file at path.
func NewWriter(path, docType string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &muxerr.IOError{Op: "muxer.NewWriter", Err: err}
	}
	return &Writer{f: f, docType: docType}, nil
}

func (w *Writer) write(b []byte) error {
	if _, err := w.f.Write(b); err != nil {
		return &muxerr.IOError{Op: "muxer.Writer.write", Err: err}
	}
	return nil
}

// WriteHeader emits the EBML header naming the DocType (spec.md §6.1
// "WebM compatibility: DocType=webm").
func (w *Writer) WriteHeader() error {
	h := ebml.NewMaster(matroska.EBMLHeaderID)
	h.Push(uintElem(matroska.EBMLVersionID, 1))
	h.Push(uintElem(matroska.EBMLReadVersionID, 1))
	h.Push(uintElem(matroska.EBMLMaxIDLengthID, 4))
	h.Push(uintElem(matroska.EBMLMaxSizeLengthID, 8))
	doc := ebml.NewElement(matroska.DocTypeID, ebml.KindString)
	doc.SetData([]byte(w.docType))
	h.Push(doc)
	h.Push(uintElem(matroska.DocTypeVersionID, 4))
	h.Push(uintElem(matroska.DocTypeReadVersionID, 2))

	var buf bytes.Buffer
	if err := h.Render(&buf, true, false); err != nil {
		return fmt.Errorf("muxer: rendering EBML header: %w", err)
	}
	return w.write(buf.Bytes())
}

// WriteSegmentOpen writes the Segment element's ID and an
// unknown-size placeholder; everything written after this call counts
// toward Writer.pos, the offset CueClusterPosition is relative to.
func (w *Writer) WriteSegmentOpen() error {
	if err := w.write(ebml.EncodeID(matroska.SegmentID)); err != nil {
		return err
	}
	return w.write(ebml.EncodeUnknownSize(segmentSizeLength))
}

// WriteInfo renders and writes the SegmentInfo master.
func (w *Writer) WriteInfo(info *matroska.SegmentInfo) error {
	e, err := info.Render()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := e.Render(&buf, true, false); err != nil {
		return err
	}
	w.pos += int64(buf.Len())
	return w.write(buf.Bytes())
}

// WriteTracks renders the Tracks master from one TrackEntry per track.
func (w *Writer) WriteTracks(entries []matroska.TrackEntry) error {
	tracks := ebml.NewMaster(matroska.TracksID)
	for i := range entries {
		e, err := entries[i].Render()
		if err != nil {
			return err
		}
		tracks.Push(e)
	}
	var buf bytes.Buffer
	if err := tracks.Render(&buf, true, false); err != nil {
		return err
	}
	w.pos += int64(buf.Len())
	return w.write(buf.Bytes())
}

// WriteChapters writes a pre-rendered Chapters master, if non-nil.
func (w *Writer) WriteChapters(chapters *ebml.Element) error {
	if chapters == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := chapters.Render(&buf, true, false); err != nil {
		return fmt.Errorf("muxer: rendering chapters: %w", err)
	}
	w.pos += int64(buf.Len())
	return w.write(buf.Bytes())
}

// WriteCluster appends a RenderedCluster's bytes and records its cue
// points at the cluster's segment-relative position.
func (w *Writer) WriteCluster(rc RenderedCluster) error {
	clusterPos := w.pos
	for _, cp := range rc.CuePoints {
		cp.ClusterPosition = clusterPos
		w.cues = append(w.cues, cp)
	}
	if err := w.write(rc.Bytes); err != nil {
		return err
	}
	w.pos += int64(len(rc.Bytes))
	return nil
}

// WriteCues renders the accumulated Cues master. Called once, just
// before Close.
func (w *Writer) WriteCues() error {
	if len(w.cues) == 0 {
		return nil
	}
	cues := ebml.NewMaster(matroska.CuesID)
	for _, cp := range w.cues {
		point := ebml.NewMaster(matroska.CuePointID)
		point.Push(uintElem(matroska.CueTimeID, uint64(cp.TimecodeNS)))
		tp := ebml.NewMaster(matroska.CueTrackPositionsID)
		tp.Push(uintElem(matroska.CueTrackID, cp.TrackNumber))
		tp.Push(uintElem(matroska.CueClusterPositionID, uint64(cp.ClusterPosition)))
		if cp.BlockIndexInCluster > 0 {
			tp.Push(uintElem(matroska.CueBlockNumberID, uint64(cp.BlockIndexInCluster+1)))
		}
		point.Push(tp)
		cues.Push(point)
	}
	var buf bytes.Buffer
	if err := cues.Render(&buf, true, false); err != nil {
		return fmt.Errorf("muxer: rendering cues: %w", err)
	}
	w.pos += int64(buf.Len())
	return w.write(buf.Bytes())
}

// Cues exposes the accumulated cue points, e.g. to hand off to the
// next split file's PrevSize bookkeeping.
func (w *Writer) Cues() []CuePoint { return w.cues }

// ResetCues clears accumulated cues. The control plane does not call
// it; each split file is written through a fresh Writer.
func (w *Writer) ResetCues() { w.cues = nil }

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.f.Close(); err != nil {
		return &muxerr.IOError{Op: "muxer.Writer.Close", Err: err}
	}
	return nil
}

func uintElem(id uint32, v uint64) *ebml.Element {
	e := ebml.NewElement(id, ebml.KindUint)
	e.SetData(ebml.EncodeUint(v))
	return e
}
