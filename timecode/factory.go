package timecode

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Mode selects how a packetizer consults a Factory (spec.md §4.5).
type Mode int

const (
	// ModeNone: factory is not consulted; source timing is trusted.
	ModeNone Mode = iota
	// ModeShortQueueing: one-packet look-ahead suffices.
	ModeShortQueueing
	// ModeFullQueueing: the packetizer must buffer until the next
	// timecode is known before it can compute a duration.
	ModeFullQueueing
)

// Factory overrides a track's per-frame timing from an external file.
type Factory interface {
	// GetNext returns the timecode to assign to frameIndex.
	GetNext(frameIndex int) (T, error)
	// GetDefaultDuration lets the factory override a packetizer's
	// self-reported default duration.
	GetDefaultDuration(proposed T) T
	// ContainsGap reports whether frameIndex lands in a gap region
	// (only meaningful for v3); the cluster helper treats a gap as a
	// forced cluster break.
	ContainsGap(frameIndex int) bool
}

// --- v1: default FPS plus per-range FPS overrides ---

type v1Range struct {
	startFrame, endFrame int // endFrame == -1 means open-ended
	fps                  float64
}

// V1Factory implements the "v1" external timecode format: a default
// FPS plus ordered frame ranges that each carry their own FPS.
type V1Factory struct {
	defaultFPS float64
	ranges     []v1Range
}

// ParseV1 reads a "# timecode format v1" file.
func ParseV1(r io.Reader) (*V1Factory, error) {
	sc := bufio.NewScanner(r)
	var lines []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("timecode: v1 file has no default FPS line")
	}
	defaultFPS, err := strconv.ParseFloat(lines[0], 64)
	if err != nil {
		return nil, fmt.Errorf("timecode: v1 default FPS: %w", err)
	}
	f := &V1Factory{defaultFPS: defaultFPS}
	for _, line := range lines[1:] {
		parts := strings.Split(line, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("timecode: v1 malformed range line %q", line)
		}
		start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("timecode: v1 range start: %w", err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("timecode: v1 range end: %w", err)
		}
		fps, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("timecode: v1 range fps: %w", err)
		}
		f.ranges = append(f.ranges, v1Range{startFrame: start, endFrame: end, fps: fps})
	}
	return f, nil
}

func (f *V1Factory) fpsAt(frameIndex int) float64 {
	for _, rg := range f.ranges {
		if frameIndex >= rg.startFrame && (rg.endFrame < 0 || frameIndex <= rg.endFrame) {
			return rg.fps
		}
	}
	return f.defaultFPS
}

// GetNext computes the cumulative timecode for frameIndex by summing
// each preceding frame's duration at its range's FPS.
func (f *V1Factory) GetNext(frameIndex int) (T, error) {
	var ns int64
	for i := 0; i < frameIndex; i++ {
		fps := f.fpsAt(i)
		if fps <= 0 {
			return None, fmt.Errorf("timecode: v1 non-positive fps at frame %d", i)
		}
		ns += int64(1e9 / fps)
	}
	return Valid(ns), nil
}

func (f *V1Factory) GetDefaultDuration(proposed T) T {
	if f.defaultFPS <= 0 {
		return proposed
	}
	return Valid(int64(1e9 / f.defaultFPS))
}

func (f *V1Factory) ContainsGap(int) bool { return false }

// --- v2: explicit per-frame timecode list ---

// V2Factory implements the "v2" format: an explicit ascending list of
// per-frame timecodes in milliseconds on disk, rounded to nanoseconds.
type V2Factory struct {
	timestampsNS []int64
}

// ParseV2 reads a "# timecode format v2" file.
func ParseV2(r io.Reader) (*V2Factory, error) {
	sc := bufio.NewScanner(r)
	f := &V2Factory{}
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ms, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("timecode: v2 line %q: %w", line, err)
		}
		f.timestampsNS = append(f.timestampsNS, int64(math.Round(ms*1e6)))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	for i := 1; i < len(f.timestampsNS); i++ {
		if f.timestampsNS[i] < f.timestampsNS[i-1] {
			return nil, fmt.Errorf("timecode: v2 timestamps must be ascending (line %d)", i+1)
		}
	}
	return f, nil
}

func (f *V2Factory) GetNext(frameIndex int) (T, error) {
	if frameIndex < 0 || frameIndex >= len(f.timestampsNS) {
		return None, fmt.Errorf("timecode: v2 frame index %d out of range (%d entries)", frameIndex, len(f.timestampsNS))
	}
	return Valid(f.timestampsNS[frameIndex]), nil
}

// Duration returns the delta to the next timecode. For the last frame
// it reuses the final observed delta, or returns fallbackDuration when
// the list holds a single entry.
func (f *V2Factory) Duration(frameIndex int, fallbackDuration T) T {
	if frameIndex < 0 || frameIndex >= len(f.timestampsNS) {
		return None
	}
	if frameIndex == len(f.timestampsNS)-1 {
		if len(f.timestampsNS) >= 2 {
			last := f.timestampsNS[len(f.timestampsNS)-1]
			prev := f.timestampsNS[len(f.timestampsNS)-2]
			return Valid(last - prev)
		}
		return fallbackDuration
	}
	return Valid(f.timestampsNS[frameIndex+1] - f.timestampsNS[frameIndex])
}

func (f *V2Factory) GetDefaultDuration(proposed T) T { return proposed }
func (f *V2Factory) ContainsGap(int) bool            { return false }

// --- v3: ordered (duration, fps) segments, fps=-1 denotes a gap ---

type v3Segment struct {
	durationNS int64
	fps        float64 // -1 => gap
}

// V3Factory implements the "v3" format: ordered duration/fps segments
// where a negative fps marks a gap (time advances, no frames emitted).
type V3Factory struct {
	defaultFPS float64
	segments   []v3Segment
	// frameStart and gapAfter are filled by expand() during ParseV3.
	frameStart []int64 // cumulative ns at the start of each frame
	gapAfter   map[int]bool
}

// ParseV3 reads a "# timecode format v3" file.
func ParseV3(r io.Reader) (*V3Factory, error) {
	sc := bufio.NewScanner(r)
	var lines []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("timecode: v3 file has no default FPS line")
	}
	defaultFPS, err := strconv.ParseFloat(lines[0], 64)
	if err != nil {
		return nil, fmt.Errorf("timecode: v3 default FPS: %w", err)
	}
	f := &V3Factory{defaultFPS: defaultFPS}
	for _, line := range lines[1:] {
		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("timecode: v3 malformed segment line %q", line)
		}
		durSec, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("timecode: v3 duration: %w", err)
		}
		fps, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("timecode: v3 fps: %w", err)
		}
		f.segments = append(f.segments, v3Segment{durationNS: int64(durSec * 1e9), fps: fps})
	}
	f.expand()
	return f, nil
}

// expand flattens the segment list into a per-frame timecode table.
func (f *V3Factory) expand() {
	f.gapAfter = map[int]bool{}
	var t int64
	for _, seg := range f.segments {
		if seg.fps < 0 {
			t += seg.durationNS
			if n := len(f.frameStart); n > 0 {
				f.gapAfter[n-1] = true
			}
			continue
		}
		frameDur := int64(1e9 / seg.fps)
		if frameDur <= 0 {
			continue
		}
		for remaining := seg.durationNS; remaining > 0; remaining -= frameDur {
			f.frameStart = append(f.frameStart, t)
			t += frameDur
		}
	}
}

func (f *V3Factory) GetNext(frameIndex int) (T, error) {
	if frameIndex < 0 || frameIndex >= len(f.frameStart) {
		return None, fmt.Errorf("timecode: v3 frame index %d out of range", frameIndex)
	}
	return Valid(f.frameStart[frameIndex]), nil
}

func (f *V3Factory) GetDefaultDuration(proposed T) T {
	if f.defaultFPS <= 0 {
		return proposed
	}
	return Valid(int64(1e9 / f.defaultFPS))
}

// ContainsGap reports whether a gap segment immediately follows
// frameIndex (i.e. the cluster helper should break after emitting that
// frame).
func (f *V3Factory) ContainsGap(frameIndex int) bool {
	return f.gapAfter[frameIndex]
}
