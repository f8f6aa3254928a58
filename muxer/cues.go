package muxer

// CueStrategy selects when a cue point is emitted for a track (spec.md
// §4.9 "Cue emission").
type CueStrategy int

const (
	CueNone CueStrategy = iota
	CueIFrames
	CueAll
	CueSparse
)

// sparseIntervalNS is the minimum gap between consecutive SPARSE cue
// points for one track (spec.md §4.9: "at least 2 seconds").
const sparseIntervalNS = 2_000_000_000

// CuePoint indexes one block's position for seeking.
type CuePoint struct {
	TimecodeNS         int64
	TrackNumber        uint64
	ClusterPosition    int64
	BlockIndexInCluster int
}

// cueWriter accumulates CuePoints for the current output file and
// decides, per spec.md §4.9's four strategies, whether a given block
// should be cued.
type cueWriter struct {
	points       []CuePoint
	lastCueNS    map[uint64]int64
	hasVideoTrack bool
}

func newCueWriter(hasVideoTrack bool) *cueWriter {
	return &cueWriter{lastCueNS: map[uint64]int64{}, hasVideoTrack: hasVideoTrack}
}

// ShouldCue reports whether the given block qualifies for a cue point
// under trackNumber's strategy.
func (w *cueWriter) ShouldCue(strategy CueStrategy, trackNumber uint64, timecodeNS int64, hasReferences, codecStateChange bool) bool {
	if codecStateChange {
		return true // "the block contains a codec-state change (always cued)"
	}
	switch strategy {
	case CueNone:
		return false
	case CueIFrames:
		return !hasReferences
	case CueAll:
		return true
	case CueSparse:
		if w.hasVideoTrack {
			return false
		}
		last, ok := w.lastCueNS[trackNumber]
		return !ok || timecodeNS-last >= sparseIntervalNS
	default:
		return false
	}
}

// Add records a cue point and updates the per-track sparse-interval
// bookkeeping.
func (w *cueWriter) Add(p CuePoint) {
	w.points = append(w.points, p)
	w.lastCueNS[p.TrackNumber] = p.TimecodeNS
}

// Points returns the accumulated cue points in insertion order.
func (w *cueWriter) Points() []CuePoint { return w.points }

// Reset clears accumulated cues (called after a split flushes them to
// the closing output file).
func (w *cueWriter) Reset() {
	w.points = nil
	w.lastCueNS = map[uint64]int64{}
}
