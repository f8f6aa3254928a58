package muxer

// SplitMode selects which splitting rule (if any) governs output-file
// boundaries (spec.md §4.9 "Split conditions").
type SplitMode int

const (
	SplitNone SplitMode = iota
	SplitBySize
	SplitByDuration
	SplitByTimecodes
	SplitByChapters
	SplitByParts
)

// PartWindow is one disjoint [StartNS, EndNS) window of a "split by
// parts" configuration; EndNS <= 0 means "open-ended". Packets outside
// every window are dropped; timecodes inside a window are re-based to
// the window's start (spec.md §4.9 "Parts").
type PartWindow struct {
	StartNS, EndNS int64
}

// SplitConfig configures the ClusterHelper's output-file splitting.
// Only the fields relevant to Mode are consulted.
type SplitConfig struct {
	Mode SplitMode

	SizeThresholdBytes int64
	DurationThresholdNS int64

	// TimecodePoints and ChapterPoints are sorted ascending lists of
	// ns offsets, each consumed (triggers at most one split) in order.
	TimecodePoints []int64
	ChapterPoints  []int64

	Parts []PartWindow

	// NoLinking is not read: split files are never linked with
	// PrevUID/NextUID, whatever its value.
	NoLinking bool
}

// nextPointIndex advances past every point <= atNS and reports whether
// atNS crossed one, consuming it.
func nextPointIndex(points []int64, idx int, atNS int64) (newIdx int, crossed bool) {
	if idx >= len(points) {
		return idx, false
	}
	newIdx = idx
	for newIdx < len(points) && atNS >= points[newIdx] {
		newIdx++
	}
	return newIdx, newIdx > idx
}

// partWindowFor returns the window containing atNS, or nil if atNS
// falls in a gap between windows (the packet must be dropped).
func partWindowFor(parts []PartWindow, atNS int64) *PartWindow {
	for i := range parts {
		p := &parts[i]
		if atNS < p.StartNS {
			continue
		}
		if p.EndNS > 0 && atNS >= p.EndNS {
			continue
		}
		return p
	}
	return nil
}
