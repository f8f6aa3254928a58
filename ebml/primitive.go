package ebml

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DecodeUint decodes a big-endian unsigned integer of 1..8 bytes. The
// element's coded size determines the width; callers pass the exact
// element data slice.
func DecodeUint(data []byte) uint64 {
	var v uint64
	for _, b := range data {
		v = v<<8 | uint64(b)
	}
	return v
}

// EncodeUint writes v as a big-endian unsigned integer using the
// shortest width that holds it (minimum 1 byte).
func EncodeUint(v uint64) []byte {
	width := 1
	for shifted := v >> 8; shifted != 0; shifted >>= 8 {
		width++
	}
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return buf
}

// DecodeInt decodes a big-endian two's-complement signed integer,
// sign-extending from the MSB of the first encoded byte.
func DecodeInt(data []byte) int64 {
	if len(data) == 0 {
		return 0
	}
	var v int64
	if data[0]&0x80 != 0 {
		v = -1 // all-ones sign extension
	}
	for _, b := range data {
		v = v<<8 | int64(b)
	}
	return v
}

// EncodeInt writes v as a big-endian two's-complement integer using the
// shortest width (1, 2, 3, 4, 5, 6, 7 or 8 bytes) that preserves sign.
func EncodeInt(v int64) []byte {
	width := 1
	for {
		// a width fits if re-sign-extending from that width reproduces v
		shift := uint(64 - 8*width)
		if (v<<shift)>>shift == v {
			break
		}
		width++
	}
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return buf
}

// DecodeFloat decodes a 4- or 8-byte big-endian IEEE-754 float. Any other
// length returns 0, matching the teacher's defensive behavior.
func DecodeFloat(data []byte) float64 {
	switch len(data) {
	case 4:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(data)))
	case 8:
		return math.Float64frombits(binary.BigEndian.Uint64(data))
	default:
		return 0
	}
}

// EncodeFloat32 writes f as a 4-byte big-endian IEEE-754 float.
func EncodeFloat32(f float32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, math.Float32bits(f))
	return buf
}

// EncodeFloat64 writes f as an 8-byte big-endian IEEE-754 float.
func EncodeFloat64(f float64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(f))
	return buf
}

// DecodeString trims every trailing NUL byte (a terminator plus any
// default-size padding) and returns the remaining bytes as a string.
// NUL bytes before the last non-NUL byte are kept.
func DecodeString(data []byte) string {
	end := len(data)
	for end > 0 && data[end-1] == 0 {
		end--
	}
	return string(data[:end])
}

// EncodeString pads s with NUL bytes up to defaultSize, when s is
// shorter; it never truncates a value longer than defaultSize.
func EncodeString(s string, defaultSize int) []byte {
	if len(s) >= defaultSize {
		return []byte(s)
	}
	buf := make([]byte, defaultSize)
	copy(buf, s)
	return buf
}

// DateEpochUnixNano is 2001-01-01T00:00:00 UTC in unix nanoseconds, the
// fixed epoch EBML dates are relative to.
const DateEpochUnixNano = 978307200_000000000

// DecodeDate reinterprets an 8-byte element as signed nanoseconds
// relative to DateEpochUnixNano and returns the absolute value.
func DecodeDate(data []byte) (int64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("ebml: date element must be 8 bytes, got %d", len(data))
	}
	return DecodeInt(data) + DateEpochUnixNano, nil
}

// EncodeDate converts an absolute unix-nanosecond timestamp into the
// 8-byte signed-nanoseconds-since-epoch EBML date encoding.
func EncodeDate(unixNano int64) []byte {
	delta := unixNano - DateEpochUnixNano
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(delta))
	return buf
}
