package ebml

import (
	"bytes"
	"fmt"
	"hash/crc32"
)

// Crc32ElementID is the well-known EBML CRC-32 element ID (spec.md
// §4.3's "EbmlCrc32" child).
const Crc32ElementID = 0xBF

// renderState carries per-render options through the recursive
// UpdateSize/Render pass — the "render_ctx" from spec.md §9's design
// note, replacing reciprocal parent back-pointers with an explicit
// argument.
type renderState struct {
	withDefault bool
	force       bool
}

// crcEnabled marks masters that request CRC-32 coverage of their
// children on render (spec.md §4.3).
var crcEnabled = map[*Element]bool{}

// EnableCRC marks e (a master) as CRC-32 covered: render will compute
// the checksum over e's rendered children and prepend an EbmlCrc32
// child, per spec.md §4.3.
func EnableCRC(e *Element) { crcEnabled[e] = true }

// contentSize returns the number of bytes e's content will occupy
// (excluding e's own ID+size prefix), honoring default-value elision.
func (e *Element) contentSize(st renderState) uint64 {
	if e.Kind != KindMaster {
		if !st.withDefault && e.IsDefaultValue() {
			return 0
		}
		return uint64(len(e.Data))
	}
	var total uint64
	for _, c := range e.Children {
		total += c.elementSize(st)
	}
	if crcEnabled[e] {
		total += 6 // CRC child: 1-byte ID + 1-byte size + 4-byte value
	}
	return total
}

// elementSize returns the full on-disk size of e (ID + size-prefix +
// content), skipping entirely when content is elided to zero and the
// element has a registered default (so the whole child disappears, not
// just its payload).
func (e *Element) elementSize(st renderState) uint64 {
	if e.Kind != KindMaster && !st.withDefault && e.IsDefaultValue() {
		return 0
	}
	content := e.contentSize(st)
	idLen := len(EncodeID(e.ID))
	sizeLen := EncodedLength(content)
	return uint64(idLen) + uint64(sizeLen) + content
}

// UpdateSize recomputes and returns e's total on-disk size. withDefault
// forces rendering of default-valued leaves. force does not change the
// result: masters are always counted, empty or not.
func (e *Element) UpdateSize(withDefault, force bool) uint64 {
	return e.elementSize(renderState{withDefault: withDefault, force: force})
}

// Render serializes e (ID, size, content) into buf, honoring
// default-value elision and CRC-32 coverage. Children are emitted in
// insertion order (spec.md §4.3 "Rendering order").
func (e *Element) Render(buf *bytes.Buffer, withDefault, force bool) error {
	st := renderState{withDefault: withDefault, force: force}
	if e.Kind != KindMaster && !withDefault && e.IsDefaultValue() {
		return nil
	}

	if e.Kind != KindMaster {
		buf.Write(EncodeID(e.ID))
		sizeBytes, err := EncodeSize(uint64(len(e.Data)), 0)
		if err != nil {
			return err
		}
		buf.Write(sizeBytes)
		buf.Write(e.Data)
		return nil
	}

	var content bytes.Buffer
	for _, c := range e.Children {
		if err := c.Render(&content, withDefault, force); err != nil {
			return fmt.Errorf("ebml: rendering child 0x%X of 0x%X: %w", c.ID, e.ID, err)
		}
	}

	if crcEnabled[e] {
		sum := crc32.ChecksumIEEE(content.Bytes())
		crcChild := NewElement(Crc32ElementID, KindBinary)
		crcVal := make([]byte, 4)
		crcVal[0] = byte(sum)
		crcVal[1] = byte(sum >> 8)
		crcVal[2] = byte(sum >> 16)
		crcVal[3] = byte(sum >> 24)
		crcChild.SetData(crcVal)
		var withCrc bytes.Buffer
		if err := crcChild.Render(&withCrc, true, true); err != nil {
			return err
		}
		withCrc.Write(content.Bytes())
		content = withCrc
	}

	buf.Write(EncodeID(e.ID))
	sizeBytes, err := EncodeSize(uint64(content.Len()), 0)
	if err != nil {
		return err
	}
	buf.Write(sizeBytes)
	buf.Write(content.Bytes())
	_ = st
	return nil
}

// VerifyCRC re-renders e with defaults included to reproduce the exact
// covered bytes and compares against the stored EbmlCrc32 child, per
// spec.md §8.1 property 3.
func VerifyCRC(e *Element) (bool, error) {
	crcChild := e.FindFirst(Crc32ElementID)
	if crcChild == nil {
		return false, fmt.Errorf("ebml: element 0x%X has no EbmlCrc32 child", e.ID)
	}
	if len(crcChild.Data) != 4 {
		return false, fmt.Errorf("ebml: EbmlCrc32 child of 0x%X must be 4 bytes, got %d", e.ID, len(crcChild.Data))
	}
	// Render stores the checksum little-endian.
	d := crcChild.Data
	stored := uint64(d[0]) | uint64(d[1])<<8 | uint64(d[2])<<16 | uint64(d[3])<<24

	var content bytes.Buffer
	for _, c := range e.Children {
		if c.ID == Crc32ElementID {
			continue
		}
		if err := c.Render(&content, true, true); err != nil {
			return false, err
		}
	}
	computed := uint64(crc32.ChecksumIEEE(content.Bytes()))
	return computed == stored, nil
}
