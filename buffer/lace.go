package buffer

import "fmt"

// LaceMode identifies how multiple frames are packed into one Matroska
// (Simple)Block, mirroring the flags bits the teacher's parseSimpleBlock
// read but never fully decoded (its Xiph branch was a byte-skipping
// heuristic; this implementation follows the actual Matroska lacing
// algorithms).
type LaceMode int

const (
	LaceNone LaceMode = iota
	LaceXiph
	LaceFixed
	LaceEBML
)

// Lace encodes frames (already known to be more than one) into the
// lace-size header that precedes the concatenated frame bytes: the
// frame-count-minus-one byte followed by mode-specific size data. The
// caller appends the frame bytes themselves after this header.
func Lace(frames [][]byte, mode LaceMode) ([]byte, error) {
	if len(frames) < 2 {
		return nil, fmt.Errorf("buffer: lacing requires at least 2 frames, got %d", len(frames))
	}
	if len(frames) > 256 {
		return nil, fmt.Errorf("buffer: lacing supports at most 256 frames, got %d", len(frames))
	}
	header := []byte{byte(len(frames) - 1)}

	switch mode {
	case LaceFixed:
		return header, nil

	case LaceXiph:
		for i := 0; i < len(frames)-1; i++ {
			header = append(header, xiphEncodeSize(len(frames[i]))...)
		}
		return header, nil

	case LaceEBML:
		header = append(header, unsignedVint(len(frames[0]))...)
		prev := len(frames[0])
		for i := 1; i < len(frames)-1; i++ {
			header = append(header, signedVint(len(frames[i])-prev)...)
			prev = len(frames[i])
		}
		return header, nil

	default:
		return nil, fmt.Errorf("buffer: unsupported lace mode %d", mode)
	}
}

// Unlace splits data (the bytes immediately following a block's flags
// byte) into frameCount frames per mode. frameCount is read by the
// caller from the lace-count byte (value + 1).
func Unlace(data []byte, frameCount int, mode LaceMode) ([][]byte, error) {
	if frameCount < 1 {
		return nil, fmt.Errorf("buffer: invalid frame count %d", frameCount)
	}
	if frameCount == 1 || mode == LaceNone {
		return [][]byte{data}, nil
	}

	switch mode {
	case LaceFixed:
		if len(data)%frameCount != 0 {
			return nil, fmt.Errorf("buffer: fixed lacing: %d bytes not divisible by %d frames", len(data), frameCount)
		}
		frameSize := len(data) / frameCount
		out := make([][]byte, frameCount)
		for i := 0; i < frameCount; i++ {
			out[i] = data[i*frameSize : (i+1)*frameSize]
		}
		return out, nil

	case LaceXiph:
		sizes := make([]int, frameCount-1)
		pos := 0
		for i := 0; i < frameCount-1; i++ {
			size, n, err := xiphDecodeSize(data[pos:])
			if err != nil {
				return nil, err
			}
			sizes[i] = size
			pos += n
		}
		return splitBySizes(data[pos:], sizes)

	case LaceEBML:
		first, n, err := decodeUnsignedVint(data)
		if err != nil {
			return nil, err
		}
		pos := n
		sizes := make([]int, frameCount-1)
		sizes[0] = first
		prev := first
		for i := 1; i < frameCount-1; i++ {
			delta, n, err := decodeSignedVint(data[pos:])
			if err != nil {
				return nil, err
			}
			pos += n
			size := prev + delta
			if size < 0 {
				return nil, fmt.Errorf("buffer: ebml lacing produced negative frame size")
			}
			sizes[i] = size
			prev = size
		}
		return splitBySizes(data[pos:], sizes)

	default:
		return nil, fmt.Errorf("buffer: unsupported lace mode %d", mode)
	}
}

// splitBySizes carves len(sizes) explicit frames off the front of data
// and returns the remainder as the final, implicitly-sized frame.
func splitBySizes(data []byte, sizes []int) ([][]byte, error) {
	out := make([][]byte, 0, len(sizes)+1)
	pos := 0
	for _, size := range sizes {
		if pos+size > len(data) {
			return nil, fmt.Errorf("buffer: laced frame size %d exceeds remaining data", size)
		}
		out = append(out, data[pos:pos+size])
		pos += size
	}
	out = append(out, data[pos:])
	return out, nil
}

// xiphEncodeSize writes n as a sequence of 0xFF bytes followed by a
// final byte < 255, Xiph/Ogg style.
func xiphEncodeSize(n int) []byte {
	var out []byte
	for n >= 255 {
		out = append(out, 0xFF)
		n -= 255
	}
	out = append(out, byte(n))
	return out
}

func xiphDecodeSize(data []byte) (size, n int, err error) {
	for {
		if n >= len(data) {
			return 0, 0, fmt.Errorf("buffer: truncated xiph lace size")
		}
		size += int(data[n])
		isTerminal := data[n] != 0xFF
		n++
		if isTerminal {
			return size, n, nil
		}
	}
}

// unsignedVint encodes n as a plain EBML-style unsigned VINT (no
// unknown-size sentinel reservation: lace sizes never need one).
func unsignedVint(n int) []byte {
	length := 1
	for v := uint64(n); v > (uint64(1)<<(7*uint(length)))-1; length++ {
	}
	buf := make([]byte, length)
	v := uint64(n)
	for i := length - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	buf[0] |= 0x80 >> uint(length-1)
	return buf
}

func decodeUnsignedVint(data []byte) (value, n int, err error) {
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("buffer: empty lace vint")
	}
	marker := byte(0x80)
	length := 1
	for data[0]&marker == 0 {
		marker >>= 1
		length++
		if length > 8 {
			return 0, 0, fmt.Errorf("buffer: invalid lace vint marker")
		}
	}
	if len(data) < length {
		return 0, 0, fmt.Errorf("buffer: truncated lace vint")
	}
	v := uint64(data[0] &^ marker)
	for i := 1; i < length; i++ {
		v = v<<8 | uint64(data[i])
	}
	return int(v), length, nil
}

// signedVint encodes a frame-size delta using the biased scheme EBML
// lacing specifies: the magnitude is offset by 2^(7L-1)-1 so that both
// positive and negative deltas are representable in an unsigned field
// of the same coded length.
func signedVint(delta int) []byte {
	length := 1
	for {
		bias := int64(1)<<(uint(7*length)-1) - 1
		if int64(delta) >= -bias && int64(delta) <= bias {
			buf := make([]byte, length)
			v := uint64(int64(delta) + bias)
			for i := length - 1; i >= 0; i-- {
				buf[i] = byte(v)
				v >>= 8
			}
			buf[0] |= 0x80 >> uint(length-1)
			return buf
		}
		length++
		if length > 8 {
			length = 8
			bias = int64(1)<<(uint(7*length)-1) - 1
			buf := make([]byte, length)
			v := uint64(int64(delta) + bias)
			for i := length - 1; i >= 0; i-- {
				buf[i] = byte(v)
				v >>= 8
			}
			buf[0] |= 0x80 >> uint(length-1)
			return buf
		}
	}
}

func decodeSignedVint(data []byte) (delta, n int, err error) {
	v, n, err := decodeUnsignedVint(data)
	if err != nil {
		return 0, 0, err
	}
	length := n
	bias := int64(1)<<(uint(7*length)-1) - 1
	return int(int64(v) - bias), n, nil
}
