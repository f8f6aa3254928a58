// Package timecode implements the nanosecond timestamp type the whole
// muxing pipeline shares, plus the external timecode factories
// (v1/v2/v3) that can override a reader's source timing.
package timecode

import "fmt"

// T is a 64-bit signed nanosecond timestamp wrapped with a validity
// bit. An invalid T propagates through arithmetic and comparisons
// (spec.md §3 "Timecode"), so a caller never needs to special-case a
// missing bref/fref before doing math with it.
type T struct {
	ns    int64
	valid bool
}

// Valid constructs a valid timecode at ns nanoseconds.
func Valid(ns int64) T { return T{ns: ns, valid: true} }

// None is the invalid sentinel ("no reference frame", "duration
// unknown").
var None = T{}

// IsValid reports whether t carries a real timestamp.
func (t T) IsValid() bool { return t.valid }

// NS returns the raw nanosecond value; callers must check IsValid
// first if a bogus 0 would be ambiguous with a genuinely valid zero
// timecode.
func (t T) NS() int64 { return t.ns }

// Add returns t+d; invalid if either operand is invalid.
func (t T) Add(d T) T {
	if !t.valid || !d.valid {
		return None
	}
	return Valid(t.ns + d.ns)
}

// Sub returns t-d; invalid if either operand is invalid.
func (t T) Sub(d T) T {
	if !t.valid || !d.valid {
		return None
	}
	return Valid(t.ns - d.ns)
}

// Less reports t < other; always false if either is invalid.
func (t T) Less(other T) bool {
	return t.valid && other.valid && t.ns < other.ns
}

// Scale rounds t to the nearest multiple of scaleNs (spec.md §8.1
// property 8, "timecode scale round-trip"); invalid propagates.
func (t T) Scale(scaleNs int64) T {
	if !t.valid {
		return None
	}
	if scaleNs <= 0 {
		return t
	}
	half := scaleNs / 2
	ticks := (t.ns + half) / scaleNs
	return Valid(ticks * scaleNs)
}

// ClampNonNegative returns t with any negative value raised to zero
// (Matroska has no negative timecodes); reports whether clamping
// occurred so the caller can emit a one-time warning.
func (t T) ClampNonNegative() (clamped T, didClamp bool) {
	if !t.valid || t.ns >= 0 {
		return t, false
	}
	return Valid(0), true
}

func (t T) String() string {
	if !t.valid {
		return "timecode(invalid)"
	}
	return fmt.Sprintf("timecode(%dns)", t.ns)
}
