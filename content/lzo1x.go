package content

import (
	"fmt"

	"github.com/mkvgo/mkvmux/muxerr"
)

// lzo1xDecompress implements LZO1X-1 decompression directly against
// the wire format (DESIGN.md: no library in the retrieval pack, or in
// the wider Go ecosystem, implements LZO1X). mkvmerge only needs the
// decode side, for legacy sources; encoding is not supported.
func lzo1xDecompress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}

	var out []byte
	i := 0
	errShort := func() error {
		return &muxerr.FormatError{Op: "content.lzo1x.decode", Err: fmt.Errorf("truncated stream")}
	}
	need := func(n int) error {
		if i+n > len(src) {
			return errShort()
		}
		return nil
	}

	// readLengthTail reads the 0x00-continuation length-extension
	// bytes LZO uses whenever a 4-bit/5-bit nibble saturates: each
	// extra 0x00 byte adds 255, the final non-zero byte adds its
	// value, to base.
	readLengthTail := func(base int) (int, error) {
		total := base
		for {
			if err := need(1); err != nil {
				return 0, err
			}
			b := src[i]
			i++
			total += int(b)
			if b != 0 {
				return total, nil
			}
			total += 255
		}
	}

	// Initial literal run: first byte > 17 means "byte-17 literals
	// follow", encoded directly without the usual length-tail scheme.
	if src[i] > 17 {
		t := int(src[i]) - 17
		i++
		if err := need(t); err != nil {
			return nil, err
		}
		out = append(out, src[i:i+t]...)
		i += t
	}

	for i < len(src) {
		if err := need(1); err != nil {
			return nil, err
		}
		b := src[i]
		i++

		var length, distance int
		var trailingLiterals int

		switch {
		case b < 0x10: // literal run (0..15), only valid mid-stream after a match
			n := int(b)
			if n == 0 {
				extra, err := readLengthTail(15)
				if err != nil {
					return nil, err
				}
				n = extra
			}
			n += 3
			if err := need(n); err != nil {
				return nil, err
			}
			out = append(out, src[i:i+n]...)
			i += n
			continue

		case b < 0x40: // 0b01LLLDDD : 2-byte short match
			length = int((b>>5)&0x3) + 2
			if err := need(1); err != nil {
				return nil, err
			}
			b2 := src[i]
			i++
			distance = ((int(b) & 0x1C) << 6) | int(b2)
			distance >>= 2
			distance++
			trailingLiterals = int(b & 0x3)

		case b < 0x80: // 0b001LLLLL : medium match, length may extend
			n := int(b & 0x1F)
			if n == 0 {
				extra, err := readLengthTail(31)
				if err != nil {
					return nil, err
				}
				n = extra
			}
			length = n + 2
			if err := need(2); err != nil {
				return nil, err
			}
			b2, b3 := src[i], src[i+1]
			i += 2
			distance = (int(b2) << 6) | (int(b3) >> 2) + 1
			trailingLiterals = int(b3 & 0x3)

		default: // b >= 0x80 : 0b1LLDDDSS : long match
			length = int((b>>5)&0x3) + 2
			if err := need(1); err != nil {
				return nil, err
			}
			b2 := src[i]
			i++
			distance = ((int(b) & 0x1F) << 3) | int(b2>>3) + 1
			trailingLiterals = int(b2 & 0x3)
		}

		if distance <= 0 || distance > len(out) {
			return nil, &muxerr.FormatError{Op: "content.lzo1x.decode", Err: fmt.Errorf("invalid back-reference distance %d", distance)}
		}
		start := len(out) - distance
		for k := 0; k < length; k++ {
			out = append(out, out[start+k])
		}

		if trailingLiterals > 0 {
			if err := need(trailingLiterals); err != nil {
				return nil, err
			}
			out = append(out, src[i:i+trailingLiterals]...)
			i += trailingLiterals
		}
	}

	return out, nil
}
