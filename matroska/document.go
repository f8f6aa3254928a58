package matroska

import "github.com/mkvgo/mkvmux/ebml"

// TrackEntry is the in-memory model a packetizer fills in at
// set_headers() time (spec.md §4.7); Render turns it into an
// ebml.Element tree honoring trackEntryContext's mandatory children.
type TrackEntry struct {
	Number            uint64
	UID               uint64
	Type              uint8
	CodecID           string
	CodecPrivate      []byte
	Name              string
	Language           string
	DefaultDurationNS uint64
	Enabled           bool
	Default           bool
	Forced            bool
	Lacing            bool

	Video *VideoSettings
	Audio *AudioSettings

	ContentEncodings []ContentEncoding
}

// VideoSettings mirrors the Video sub-master's mandatory and common
// optional fields.
type VideoSettings struct {
	PixelWidth, PixelHeight   uint64
	DisplayWidth, DisplayHeight uint64
	Interlaced                bool
}

// AudioSettings mirrors the Audio sub-master.
type AudioSettings struct {
	SamplingFrequency       float64
	OutputSamplingFrequency float64
	Channels                uint64
	BitDepth                uint64
}

// ContentEncoding is one entry of a track's ContentEncodings pipeline
// (spec.md §4.8), ordered ascending by Order.
type ContentEncoding struct {
	Order    uint64
	Scope    uint64
	Type     uint64
	CompAlgo uint64
	CompSettings []byte
}

func uintElement(id uint32, v uint64) *ebml.Element {
	e := ebml.NewElement(id, ebml.KindUint)
	e.SetData(ebml.EncodeUint(v))
	return e
}

func stringElement(id uint32, s string, utf8 bool) *ebml.Element {
	kind := ebml.KindString
	if utf8 {
		kind = ebml.KindUTF8
	}
	e := ebml.NewElement(id, kind)
	e.SetData([]byte(s))
	return e
}

func boolElement(id uint32, v bool) *ebml.Element {
	n := uint64(0)
	if v {
		n = 1
	}
	return uintElement(id, n)
}

func floatElement(id uint32, v float64) *ebml.Element {
	e := ebml.NewElement(id, ebml.KindFloat)
	e.SetData(ebml.EncodeFloat64(v))
	return e
}

func binaryElement(id uint32, data []byte) *ebml.Element {
	e := ebml.NewElement(id, ebml.KindBinary)
	e.SetData(data)
	return e
}

// Render builds the ebml.Element tree for this TrackEntry and verifies
// it against trackEntryContext's mandatory children.
func (t *TrackEntry) Render() (*ebml.Element, error) {
	m := ebml.NewMaster(TrackEntryID)
	m.Push(uintElement(TrackNumberID, t.Number))
	m.Push(uintElement(TrackUIDID, t.UID))
	m.Push(uintElement(TrackTypeID, uint64(t.Type)))
	m.Push(boolElement(FlagEnabledID, t.Enabled))
	m.Push(boolElement(FlagDefaultID, t.Default))
	if t.Forced {
		m.Push(boolElement(FlagForcedID, true))
	}
	m.Push(boolElement(FlagLacingID, t.Lacing))
	if t.DefaultDurationNS > 0 {
		m.Push(uintElement(DefaultDurationID, t.DefaultDurationNS))
	}
	if t.Name != "" {
		m.Push(stringElement(NameID, t.Name, true))
	}
	if t.Language != "" {
		m.Push(stringElement(LanguageID, t.Language, false))
	}
	m.Push(stringElement(CodecIDID, t.CodecID, false))
	if len(t.CodecPrivate) > 0 {
		m.Push(binaryElement(CodecPrivateID, t.CodecPrivate))
	}

	if t.Video != nil {
		v := ebml.NewMaster(VideoID)
		v.Push(uintElement(PixelWidthID, t.Video.PixelWidth))
		v.Push(uintElement(PixelHeightID, t.Video.PixelHeight))
		if t.Video.DisplayWidth > 0 {
			v.Push(uintElement(DisplayWidthID, t.Video.DisplayWidth))
		}
		if t.Video.DisplayHeight > 0 {
			v.Push(uintElement(DisplayHeightID, t.Video.DisplayHeight))
		}
		if t.Video.Interlaced {
			v.Push(boolElement(FlagInterlacedID, true))
		}
		m.Push(v)
	}

	if t.Audio != nil {
		a := ebml.NewMaster(AudioID)
		a.Push(floatElement(SamplingFrequencyID, t.Audio.SamplingFrequency))
		if t.Audio.OutputSamplingFrequency > 0 {
			a.Push(floatElement(OutputSamplingFrequencyID, t.Audio.OutputSamplingFrequency))
		}
		a.Push(uintElement(ChannelsID, t.Audio.Channels))
		if t.Audio.BitDepth > 0 {
			a.Push(uintElement(BitDepthID, t.Audio.BitDepth))
		}
		m.Push(a)
	}

	if len(t.ContentEncodings) > 0 {
		encodings := ebml.NewMaster(ContentEncodingsID)
		for _, ce := range t.ContentEncodings {
			enc := ebml.NewMaster(ContentEncodingID)
			enc.Push(uintElement(ContentEncodingOrderID, ce.Order))
			enc.Push(uintElement(ContentEncodingScopeID, ce.Scope))
			enc.Push(uintElement(ContentEncodingTypeID, ce.Type))
			if ce.Type == 0 {
				comp := ebml.NewMaster(ContentCompressionID)
				comp.Push(uintElement(ContentCompAlgoID, ce.CompAlgo))
				if len(ce.CompSettings) > 0 {
					comp.Push(binaryElement(ContentCompSettingsID, ce.CompSettings))
				}
				enc.Push(comp)
			}
			encodings.Push(enc)
		}
		m.Push(encodings)
	}

	if err := m.CheckMandatory(trackEntryContext); err != nil {
		return nil, err
	}
	return m, nil
}

// ChapterDisplay is one language/string pair of a ChapterAtom.
type ChapterDisplay struct {
	String   string
	Language string
}

// ChapterAtom is one chapter entry; StartNS/EndNS are TimecodeScale-independent
// nanoseconds, written unscaled as ChapterTimeStart/ChapterTimeEnd.
type ChapterAtom struct {
	UID      uint64
	StartNS  int64
	EndNS    int64
	Hidden   bool
	Enabled  bool
	Displays []ChapterDisplay
}

// ChapterEdition is one EditionEntry: an ordered, non-empty set of atoms.
type ChapterEdition struct {
	UID     uint64
	Hidden  bool
	Default bool
	Ordered bool
	Atoms   []ChapterAtom
}

// RenderChapters builds the Chapters master from a slice of editions,
// verified against chaptersContext's mandatory children.
func RenderChapters(editions []ChapterEdition) (*ebml.Element, error) {
	chapters := ebml.NewMaster(ChaptersID)
	for _, ed := range editions {
		entry := ebml.NewMaster(EditionEntryID)
		entry.Push(uintElement(EditionUIDID, ed.UID))
		if ed.Hidden {
			entry.Push(boolElement(EditionFlagHiddenID, true))
		}
		if ed.Default {
			entry.Push(boolElement(EditionFlagDefaultID, true))
		}
		if ed.Ordered {
			entry.Push(boolElement(EditionFlagOrderedID, true))
		}
		for _, a := range ed.Atoms {
			atom := ebml.NewMaster(ChapterAtomID)
			atom.Push(uintElement(ChapterUIDID, a.UID))
			atom.Push(uintElement(ChapterTimeStartID, uint64(a.StartNS)))
			if a.EndNS > 0 {
				atom.Push(uintElement(ChapterTimeEndID, uint64(a.EndNS)))
			}
			if a.Hidden {
				atom.Push(boolElement(ChapterFlagHiddenID, true))
			}
			atom.Push(boolElement(ChapterFlagEnabledID, a.Enabled))
			for _, d := range a.Displays {
				disp := ebml.NewMaster(ChapterDisplayID)
				disp.Push(stringElement(ChapStringID, d.String, true))
				disp.Push(stringElement(ChapLanguageID, d.Language, false))
				atom.Push(disp)
			}
			entry.Push(atom)
		}
		chapters.Push(entry)
	}
	if err := chapters.CheckMandatory(chaptersContext); err != nil {
		return nil, err
	}
	return chapters, nil
}

// SegmentInfo mirrors the Info master.
type SegmentInfo struct {
	TimecodeScale uint64
	DurationNS    float64
	MuxingApp     string
	WritingApp    string
	Title         string
	SegmentUID    []byte
}

// Render builds the ebml.Element tree for this SegmentInfo.
func (s *SegmentInfo) Render() (*ebml.Element, error) {
	m := ebml.NewMaster(SegmentInfoID)
	scale := s.TimecodeScale
	if scale == 0 {
		scale = 1_000_000
	}
	m.Push(uintElement(TimecodeScaleID, scale))
	if s.DurationNS > 0 {
		m.Push(floatElement(DurationID, s.DurationNS/float64(scale)))
	}
	if s.Title != "" {
		m.Push(stringElement(TitleID, s.Title, true))
	}
	m.Push(stringElement(MuxingAppID, s.MuxingApp, true))
	m.Push(stringElement(WritingAppID, s.WritingApp, true))
	if len(s.SegmentUID) > 0 {
		m.Push(binaryElement(SegmentUIDID, s.SegmentUID))
	}
	if err := m.CheckMandatory(segmentInfoContext); err != nil {
		return nil, err
	}
	return m, nil
}
