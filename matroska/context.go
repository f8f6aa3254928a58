package matroska

import "github.com/mkvgo/mkvmux/ebml"

// Contexts are constructed once per process and never mutated
// afterward (spec.md §3 "Contexts are immutable process-wide").

var trackEntryContext = &ebml.SemanticContext{Entries: []ebml.ContextEntry{
	{ID: TrackNumberID, Mandatory: true, Unique: true},
	{ID: TrackUIDID, Mandatory: true, Unique: true},
	{ID: TrackTypeID, Mandatory: true, Unique: true},
	{ID: FlagEnabledID, Unique: true},
	{ID: FlagDefaultID, Unique: true},
	{ID: FlagForcedID, Unique: true},
	{ID: FlagLacingID, Unique: true},
	{ID: DefaultDurationID, Unique: true},
	{ID: NameID, Unique: true},
	{ID: LanguageID, Unique: true},
	{ID: CodecIDID, Mandatory: true, Unique: true},
	{ID: CodecPrivateID, Unique: true},
	{ID: CodecDelayID, Unique: true},
	{ID: SeekPreRollID, Unique: true},
	{ID: VideoID, Unique: true, Context: videoContext},
	{ID: AudioID, Unique: true, Context: audioContext},
	{ID: ContentEncodingsID, Unique: true, Context: contentEncodingsContext},
}}

var videoContext = &ebml.SemanticContext{Entries: []ebml.ContextEntry{
	{ID: PixelWidthID, Mandatory: true, Unique: true},
	{ID: PixelHeightID, Mandatory: true, Unique: true},
	{ID: DisplayWidthID, Unique: true},
	{ID: DisplayHeightID, Unique: true},
	{ID: FlagInterlacedID, Unique: true},
}}

var audioContext = &ebml.SemanticContext{Entries: []ebml.ContextEntry{
	{ID: SamplingFrequencyID, Mandatory: true, Unique: true, Factory: func() *ebml.Element {
		e := ebml.NewElement(SamplingFrequencyID, ebml.KindFloat)
		e.SetDefault(ebml.EncodeFloat32(8000))
		e.SetData(ebml.EncodeFloat32(8000))
		return e
	}},
	{ID: OutputSamplingFrequencyID, Unique: true},
	{ID: ChannelsID, Mandatory: true, Unique: true, Factory: func() *ebml.Element {
		e := ebml.NewElement(ChannelsID, ebml.KindUint)
		e.SetDefault(ebml.EncodeUint(1))
		e.SetData(ebml.EncodeUint(1))
		return e
	}},
	{ID: BitDepthID, Unique: true},
}}

var contentEncodingContext = &ebml.SemanticContext{Entries: []ebml.ContextEntry{
	{ID: ContentEncodingOrderID, Mandatory: true, Unique: true},
	{ID: ContentEncodingScopeID, Mandatory: true, Unique: true},
	{ID: ContentEncodingTypeID, Mandatory: true, Unique: true},
	{ID: ContentCompressionID, Unique: true, Context: &ebml.SemanticContext{Entries: []ebml.ContextEntry{
		{ID: ContentCompAlgoID, Mandatory: true, Unique: true},
		{ID: ContentCompSettingsID, Unique: true},
	}}},
	{ID: ContentEncryptionID, Unique: true},
}}

var contentEncodingsContext = &ebml.SemanticContext{Entries: []ebml.ContextEntry{
	{ID: ContentEncodingID, Mandatory: true, Context: contentEncodingContext},
}}

var segmentInfoContext = &ebml.SemanticContext{Entries: []ebml.ContextEntry{
	{ID: TimecodeScaleID, Mandatory: true, Unique: true, Factory: func() *ebml.Element {
		e := ebml.NewElement(TimecodeScaleID, ebml.KindUint)
		e.SetDefault(ebml.EncodeUint(1_000_000))
		e.SetData(ebml.EncodeUint(1_000_000))
		return e
	}},
	{ID: DurationID, Unique: true},
	{ID: DateUTCID, Unique: true},
	{ID: TitleID, Unique: true},
	{ID: MuxingAppID, Mandatory: true, Unique: true},
	{ID: WritingAppID, Mandatory: true, Unique: true},
	{ID: SegmentUIDID, Unique: true},
}}

var chapterAtomContext = &ebml.SemanticContext{Entries: []ebml.ContextEntry{
	{ID: ChapterUIDID, Mandatory: true, Unique: true},
	{ID: ChapterTimeStartID, Mandatory: true, Unique: true},
	{ID: ChapterTimeEndID, Unique: true},
	{ID: ChapterFlagHiddenID, Unique: true},
	{ID: ChapterFlagEnabledID, Unique: true},
	{ID: ChapterDisplayID, Context: &ebml.SemanticContext{Entries: []ebml.ContextEntry{
		{ID: ChapStringID, Mandatory: true, Unique: true},
		{ID: ChapLanguageID, Mandatory: true, Unique: true},
	}}},
}}

var editionEntryContext = &ebml.SemanticContext{Entries: []ebml.ContextEntry{
	{ID: EditionUIDID, Unique: true},
	{ID: EditionFlagHiddenID, Unique: true},
	{ID: EditionFlagDefaultID, Unique: true},
	{ID: EditionFlagOrderedID, Unique: true},
	{ID: ChapterAtomID, Context: chapterAtomContext},
}}

var chaptersContext = &ebml.SemanticContext{Entries: []ebml.ContextEntry{
	{ID: EditionEntryID, Mandatory: true, Context: editionEntryContext},
}}
