// Package content implements the per-track ContentEncodings pipeline
// (spec.md §4.8): zlib, bzlib, LZO1X, and header removal, applied in
// ascending ContentEncodingOrder on write and the mirrored descending
// order on read.
package content

import (
	"bytes"
	"compress/bzip2"
	"fmt"

	"github.com/klauspost/compress/flate"
	"github.com/mkvgo/mkvmux/muxerr"
)

// Algorithm identifies one ContentCompAlgo value.
type Algorithm uint64

const (
	AlgoZlib           Algorithm = 0
	AlgoBzlib          Algorithm = 1
	AlgoLZO1X          Algorithm = 2
	AlgoHeaderStripped Algorithm = 3
)

// Encoding is one stage of a track's content-encoding pipeline.
type Encoding struct {
	Order    uint64
	Algo     Algorithm
	Settings []byte // header-removal prefix, or compressor settings
}

// Pipeline is a track's ordered list of encodings, always sorted
// ascending by Order.
type Pipeline struct {
	stages []Encoding
}

// NewPipeline sorts encodings ascending by Order and returns the
// pipeline, or an UnsupportedError if any stage's algorithm is
// unrecognized (the track must be dropped per spec.md §4.8).
func NewPipeline(encodings []Encoding) (*Pipeline, error) {
	stages := append([]Encoding(nil), encodings...)
	for i := 1; i < len(stages); i++ {
		for j := i; j > 0 && stages[j-1].Order > stages[j].Order; j-- {
			stages[j-1], stages[j] = stages[j], stages[j-1]
		}
	}
	for _, s := range stages {
		switch s.Algo {
		case AlgoZlib, AlgoBzlib, AlgoLZO1X, AlgoHeaderStripped:
		default:
			return nil, &muxerr.UnsupportedError{Op: "content.NewPipeline", Err: fmt.Errorf("unknown ContentCompAlgo %d", s.Algo)}
		}
	}
	return &Pipeline{stages: stages}, nil
}

// DecodeFromStorage reverses a stored (read) payload back to raw media
// data: innermost (highest Order) applied first, descending.
func (p *Pipeline) DecodeFromStorage(data []byte) ([]byte, error) {
	out := data
	for i := len(p.stages) - 1; i >= 0; i-- {
		var err error
		out, err = decodeStage(p.stages[i], out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// EncodeForStorage applies the pipeline for writing: outermost to
// innermost, i.e. ascending Order.
func (p *Pipeline) EncodeForStorage(data []byte) ([]byte, error) {
	out := data
	for i := 0; i < len(p.stages); i++ {
		var err error
		out, err = encodeStage(p.stages[i], out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeStage(s Encoding, in []byte) ([]byte, error) {
	switch s.Algo {
	case AlgoZlib:
		return inflateZlib(in)
	case AlgoBzlib:
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(bzip2.NewReader(bytes.NewReader(in))); err != nil {
			return nil, &muxerr.FormatError{Op: "content.bzlib.decode", Err: err}
		}
		return buf.Bytes(), nil
	case AlgoLZO1X:
		return lzo1xDecompress(in)
	case AlgoHeaderStripped:
		return append(append([]byte(nil), s.Settings...), in...), nil
	default:
		return nil, &muxerr.UnsupportedError{Op: "content.decodeStage", Err: fmt.Errorf("algo %d", s.Algo)}
	}
}

func encodeStage(s Encoding, in []byte) ([]byte, error) {
	switch s.Algo {
	case AlgoZlib:
		return deflateZlib(in)
	case AlgoBzlib:
		return nil, &muxerr.UnsupportedError{Op: "content.bzlib.encode", Err: fmt.Errorf("bzlib re-encoding is not supported; source tracks are remuxed, not recompressed")}
	case AlgoLZO1X:
		return nil, &muxerr.UnsupportedError{Op: "content.lzo1x.encode", Err: fmt.Errorf("lzo1x encoding is not supported; only decode of legacy sources")}
	case AlgoHeaderStripped:
		if !bytes.HasPrefix(in, s.Settings) {
			return nil, &muxerr.FormatError{Op: "content.headerRemoval", Err: fmt.Errorf("payload does not start with the expected removed header")}
		}
		return in[len(s.Settings):], nil
	default:
		return nil, &muxerr.UnsupportedError{Op: "content.encodeStage", Err: fmt.Errorf("algo %d", s.Algo)}
	}
}

// --- zlib (RFC 1950 framing around klauspost/compress/flate) ---

func deflateZlib(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(0x78) // CMF: deflate, 32k window
	buf.WriteByte(0x9C) // FLG: default compression level, no dict, check bits valid

	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	buf.Write(adler32Sum(data))
	return buf.Bytes(), nil
}

func inflateZlib(data []byte) ([]byte, error) {
	if len(data) < 6 {
		return nil, &muxerr.FormatError{Op: "content.zlib.decode", Err: fmt.Errorf("zlib stream too short")}
	}
	// Auto-detect a raw gzip stream smuggled in as "zlib" (spec.md §4.8
	// "auto-detect gzip"): gzip's magic is 0x1F 0x8B.
	if data[0] == 0x1F && data[1] == 0x8B {
		return inflateGzipMember(data)
	}
	r := flate.NewReader(bytes.NewReader(data[2 : len(data)-4]))
	defer r.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, &muxerr.FormatError{Op: "content.zlib.decode", Err: err}
	}
	return buf.Bytes(), nil
}

func adler32Sum(data []byte) []byte {
	const mod = 65521
	a, b := uint32(1), uint32(0)
	for _, c := range data {
		a = (a + uint32(c)) % mod
		b = (b + a) % mod
	}
	sum := b<<16 | a
	return []byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)}
}

func inflateGzipMember(data []byte) ([]byte, error) {
	// Minimal gzip member parse: skip the 10-byte header (no extra
	// fields/name/comment support needed for Matroska's use case) and
	// the trailing 8-byte CRC32+ISIZE footer.
	if len(data) < 18 {
		return nil, &muxerr.FormatError{Op: "content.gzip.decode", Err: fmt.Errorf("gzip stream too short")}
	}
	r := flate.NewReader(bytes.NewReader(data[10 : len(data)-8]))
	defer r.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, &muxerr.FormatError{Op: "content.gzip.decode", Err: err}
	}
	return buf.Bytes(), nil
}
