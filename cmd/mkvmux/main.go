// Command mkvmux is the control plane: it wires each input file's
// Reader to a packetizer, runs the single-threaded cooperative
// scheduler of spec.md §5, and drives the cluster helper and output
// file lifecycle (spec.md §6.3, §6.7).
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mkvgo/mkvmux/chapters"
	"github.com/mkvgo/mkvmux/matroska"
	"github.com/mkvgo/mkvmux/mlog"
	"github.com/mkvgo/mkvmux/muxer"
	"github.com/mkvgo/mkvmux/muxerr"
	"github.com/mkvgo/mkvmux/packet"
	"github.com/mkvgo/mkvmux/packetizer"
	"github.com/mkvgo/mkvmux/reader"
	"github.com/mkvgo/mkvmux/reader/aac"
	"github.com/mkvgo/mkvmux/reader/ivf"
	"github.com/mkvgo/mkvmux/reader/remux"
)

// Exit codes per spec.md §6.7.
const (
	exitOK      = 0
	exitWarning = 1
	exitFatal   = 2
)

func main() {
	out := flag.String("o", "", "output file path")
	splitBytes := flag.Int64("split-size", 0, "split output every N bytes (0 disables)")
	splitSeconds := flag.Float64("split-duration", 0, "split output every N seconds (0 disables)")
	webm := flag.Bool("webm", false, "write DocType=webm instead of matroska")
	chapterFile := flag.String("chapters", "", "simple-format chapter file (CHAPTERnn=/CHAPTERnnNAME=)")
	chapterLang := flag.String("chapter-language", "eng", "ISO-639-2 language for chapter display strings")
	splitChapters := flag.Bool("split-chapters", false, "split the output at every chapter boundary")
	flag.Parse()

	mlog.Init()
	log := mlog.With("cmd.mkvmux")

	if *out == "" || flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: mkvmux -o OUTPUT INPUT...")
		os.Exit(exitFatal)
	}

	run := &run{
		ctx:     muxer.NewContext(),
		out:     *out,
		docType: "matroska",
	}
	if *webm {
		run.docType = "webm"
	}
	if *splitBytes > 0 {
		run.splitConfig = muxer.SplitConfig{Mode: muxer.SplitBySize, SizeThresholdBytes: *splitBytes}
	} else if *splitSeconds > 0 {
		run.splitConfig = muxer.SplitConfig{Mode: muxer.SplitByDuration, DurationThresholdNS: int64(*splitSeconds * 1e9)}
	}

	if *chapterFile != "" {
		tree := chapters.NewTree()
		f, err := os.Open(*chapterFile)
		if err != nil {
			log.Error().Err(err).Msg("opening chapter file")
			os.Exit(exitFatal)
		}
		parseErr := tree.ParseSimple(f, *chapterLang)
		f.Close()
		if parseErr != nil {
			log.Error().Err(parseErr).Msg("parsing chapter file")
			os.Exit(exitFatal)
		}
		if err := tree.CheckMandatory(); err != nil {
			log.Error().Err(err).Msg("chapter tree fails mandatory checks")
			os.Exit(exitFatal)
		}
		run.chapters = tree
		if *splitChapters {
			run.splitConfig = muxer.SplitConfig{Mode: muxer.SplitByChapters, ChapterPoints: tree.SplitPoints()}
		}
	}

	code, err := run.execute(flag.Args())
	if err != nil {
		log.Error().Err(err).Msg("mux run aborted")
		os.Exit(exitFatal)
	}
	os.Exit(code)
}

// trackHandle is the scheduler's view of one output track: the
// packetizer's output queue plus the reader/trackID it must pull from
// when that queue runs dry (spec.md §5).
type trackHandle struct {
	id   int
	rd   reader.Reader
	ptzr queuePacketizer
	cfg  muxer.TrackConfig
	done bool
}

// queuePacketizer is the narrow view the scheduler needs over a
// heterogeneous set of concrete packetizers (AAC, VPx, Passthrough),
// all of which embed packetizer.Base and so satisfy it automatically.
type queuePacketizer interface {
	reader.Packetizer
	TrackNumber() uint64
	Entry() matroska.TrackEntry
	SetHeaders()
	Peek() *packet.Packet
	Pop() *packet.Packet
	QueueLen() int
	Holding() bool
}

type run struct {
	ctx         *muxer.Context
	out         string
	docType     string
	splitConfig muxer.SplitConfig
	chapters    *chapters.Tree

	handles  []*trackHandle
	warnings int
}

// execute opens every input, binds packetizers, drives the scheduler
// to completion, and returns the process exit code (spec.md §6.7).
func (r *run) execute(inputs []string) (int, error) {
	var sources []reader.Reader
	for _, path := range inputs {
		f, err := os.Open(path)
		if err != nil {
			return exitFatal, &muxerr.IOError{Op: "main.execute", Err: err}
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return exitFatal, &muxerr.IOError{Op: "main.execute", Err: err}
		}

		rd, err := probe(f, info.Size())
		if err != nil {
			return exitFatal, err
		}
		if err := rd.ReadHeaders(); err != nil {
			return exitFatal, err
		}
		sources = append(sources, rd)
	}

	hasVideo := false
	for _, rd := range sources {
		for _, ti := range rd.Identify() {
			if ti.Type == "video" {
				hasVideo = true
			}
		}
	}

	ch := muxer.NewClusterHelper(r.ctx, hasVideo)
	var entries []matroska.TrackEntry

	for _, rd := range sources {
		rd := rd
		bindErr := rd.CreatePacketizers(func(trackID int, info reader.TrackInfo) reader.Packetizer {
			ptzr := r.buildPacketizer(rd, info)
			ptzr.SetHeaders()
			entry := ptzr.Entry()
			entries = append(entries, entry)

			cfg := muxer.TrackConfig{
				TrackNumber:       entry.Number,
				IsVideo:           info.Type == "video",
				CueStrategy:       muxer.CueIFrames,
				DefaultDurationNS: int64(entry.DefaultDurationNS),
			}
			ch.RegisterTrack(cfg)

			r.handles = append(r.handles, &trackHandle{id: trackID, rd: rd, ptzr: ptzr, cfg: cfg})
			return ptzr
		})
		if bindErr != nil {
			return exitFatal, bindErr
		}
	}

	if len(r.handles) == 1 {
		only := r.handles[0]
		only.cfg.IsAudioOnly = !only.cfg.IsVideo
		ch.RegisterTrack(only.cfg)
	}

	ch.Split = r.splitConfig

	writer, err := r.openOutput(r.out, entries)
	if err != nil {
		return exitFatal, err
	}

	partIndex := 1
	ch.OnSplit = func(cues []muxer.CuePoint) error {
		if err := writer.WriteCues(); err != nil {
			return err
		}
		if err := writer.Close(); err != nil {
			return err
		}
		partIndex++
		next, err := r.openOutput(splitName(r.out, partIndex), entries)
		if err != nil {
			return err
		}
		writer = next
		return nil
	}

	if err := r.schedule(ch, func(rc muxer.RenderedCluster) error {
		return writer.WriteCluster(rc)
	}); err != nil {
		return exitFatal, err
	}

	if final, err := ch.Flush(); err != nil {
		return exitFatal, err
	} else if final != nil {
		if err := writer.WriteCluster(*final); err != nil {
			return exitFatal, err
		}
	}
	if err := writer.WriteCues(); err != nil {
		return exitFatal, err
	}
	if err := writer.Close(); err != nil {
		return exitFatal, err
	}

	if r.warnings > 0 {
		return exitWarning, nil
	}
	return exitOK, nil
}

// schedule implements spec.md §5's single-threaded cooperative
// scheduler: pull from any empty, non-done track; among tracks with a
// non-empty, non-holding queue, pick the smallest head-of-queue
// assigned timecode; hand it to the cluster helper.
func (r *run) schedule(ch *muxer.ClusterHelper, emit func(muxer.RenderedCluster) error) error {
	for {
		progressed := false
		allDone := true

		for _, th := range r.handles {
			if th.done {
				continue
			}
			allDone = false
			if th.ptzr.QueueLen() > 0 {
				continue
			}
			status, err := th.rd.Read(th.id, false)
			if err != nil {
				return err
			}
			switch status {
			case reader.Done:
				th.done = true
			case reader.MoreData:
				progressed = true
			case reader.Holding:
			}
		}

		var best *trackHandle
		for _, th := range r.handles {
			if th.ptzr.Holding() || th.ptzr.QueueLen() == 0 {
				continue
			}
			if best == nil || th.ptzr.Peek().AssignedTimecode.Less(best.ptzr.Peek().AssignedTimecode) {
				best = th
			}
		}

		if best == nil {
			if allDone {
				return nil
			}
			if !progressed {
				// Every active track is empty, holding, or done, and no
				// read made progress this round: nothing left to drain.
				return nil
			}
			continue
		}

		p := best.ptzr.Pop()
		flushed, err := ch.AddPacket(p)
		if err != nil {
			return err
		}
		for _, rc := range flushed {
			if err := emit(rc); err != nil {
				return err
			}
		}
	}
}

// buildPacketizer picks the concrete packetizer for one track based on
// its reader and codec, assigning a fresh track number/UID from the
// muxing context (spec.md §3 "unique track number (per file)").
func (r *run) buildPacketizer(rd reader.Reader, info reader.TrackInfo) queuePacketizer {
	number := r.ctx.NextTrackNumber()
	uid := r.ctx.NewTrackUID()

	switch src := rd.(type) {
	case *aac.Reader:
		return packetizer.NewAAC(number, uid, src.SampleRate(), src.Channels(), src.CodecPrivate(), src.FrameDurationNS())
	case *ivf.Reader:
		return packetizer.NewVPx(number, uid, info.CodecID, src.Width(), src.Height())
	case *remux.Reader:
		entry := matroska.TrackEntry{
			Number:   number,
			UID:      uid,
			Type:     trackTypeFor(info.Type),
			CodecID:  info.CodecID,
			Language: info.Language,
			Enabled:  true,
			Default:  true,
		}
		if width, height, channels, rate, priv, ok := src.TrackEntryByID(info.ID); ok {
			entry.CodecPrivate = priv
			switch info.Type {
			case "video":
				entry.Video = &matroska.VideoSettings{PixelWidth: width, PixelHeight: height}
			case "audio":
				entry.Audio = &matroska.AudioSettings{SamplingFrequency: rate, Channels: channels}
			}
		}
		return packetizer.NewPassthrough(entry)
	default:
		// Any future reader lands here until it gets a dedicated
		// packetizer; pass its frames through unmodified.
		entry := matroska.TrackEntry{
			Number:  number,
			UID:     uid,
			Type:    trackTypeFor(info.Type),
			CodecID: info.CodecID,
			Enabled: true,
			Default: true,
		}
		r.warnings++
		mlog.With("cmd.mkvmux").Warn().Str("codec_id", info.CodecID).Msg("no dedicated packetizer; using generic passthrough")
		return packetizer.NewPassthrough(entry)
	}
}

func trackTypeFor(t string) uint8 {
	switch t {
	case "video":
		return matroska.TrackTypeVideo
	case "audio":
		return matroska.TrackTypeAudio
	case "subtitle":
		return matroska.TrackTypeSubtitle
	default:
		return matroska.TrackTypeControl
	}
}

// probe tries every known reader in turn and returns the first one
// that recognizes the input (spec.md §4.6 "probe").
func probe(f *os.File, size int64) (reader.Reader, error) {
	candidates := []reader.Reader{
		aac.New(f, size),
		ivf.New(f, size),
		remux.New(f, size),
	}
	for _, c := range candidates {
		if c.Probe(f, size) > 0 {
			if _, err := f.Seek(0, 0); err != nil {
				return nil, &muxerr.IOError{Op: "main.probe", Err: err}
			}
			return c, nil
		}
	}
	return nil, &muxerr.FormatError{Op: "main.probe", Err: fmt.Errorf("no reader recognized the input")}
}

// openOutput writes the EBML header, Segment open, SegmentInfo, and
// Tracks master for a new output file.
func (r *run) openOutput(path string, entries []matroska.TrackEntry) (*muxer.Writer, error) {
	w, err := muxer.NewWriter(path, r.docType)
	if err != nil {
		return nil, err
	}
	if err := w.WriteHeader(); err != nil {
		return nil, err
	}
	if err := w.WriteSegmentOpen(); err != nil {
		return nil, err
	}
	info := &matroska.SegmentInfo{
		TimecodeScale: r.ctx.TimecodeScale,
		MuxingApp:     "mkvmux",
		WritingApp:    "mkvmux",
		SegmentUID:    r.ctx.NewSegmentUID(),
	}
	if err := w.WriteInfo(info); err != nil {
		return nil, err
	}
	if err := w.WriteTracks(entries); err != nil {
		return nil, err
	}
	if r.chapters != nil {
		rendered, err := r.chapters.Render()
		if err != nil {
			return nil, err
		}
		if err := w.WriteChapters(rendered); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// splitName names output part partIndex. Part 1 is always the original
// path, whether or not splitting is enabled; each later part is named
// <stem>-<NNN>.<ext> with NNN the 3-digit zero-padded part index, so the
// second file is <stem>-002.<ext>. No file is named <stem>-001.<ext>.
func splitName(path string, partIndex int) string {
	if partIndex <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	stem := path[:len(path)-len(ext)]
	return fmt.Sprintf("%s-%03d%s", stem, partIndex, ext)
}
