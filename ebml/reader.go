package ebml

import (
	"fmt"
	"io"
)

// Reader decodes a stream of EBML elements against a SemanticContext,
// generalizing the teacher's EBMLReader into a context-driven decoder
// that knows how to build a Kind-tagged Element tree instead of a
// single flat Matroska-specific struct.
type Reader struct {
	r   io.ReadSeeker
	pos int64
}

// NewReader wraps r for sequential EBML decoding starting at its
// current position.
func NewReader(r io.ReadSeeker) (*Reader, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	return &Reader{r: r, pos: pos}, nil
}

// Position returns the reader's current byte offset.
func (rd *Reader) Position() int64 { return rd.pos }

// Seek repositions the reader.
func (rd *Reader) Seek(offset int64, whence int) (int64, error) {
	pos, err := rd.r.Seek(offset, whence)
	if err == nil {
		rd.pos = pos
	}
	return pos, err
}

func (rd *Reader) readByte() (byte, error) {
	var b [1]byte
	n, err := rd.r.Read(b[:])
	if n == 1 {
		rd.pos++
	}
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (rd *Reader) peekLength() (int, error) {
	b, err := rd.readByte()
	if err != nil {
		return 0, err
	}
	if _, err := rd.Seek(-1, io.SeekCurrent); err != nil {
		return 0, err
	}
	length, _, err := vintLength(b)
	return length, err
}

// readVInt reads length bytes starting at the current position and
// returns them as a slice for DecodeID/DecodeSize to interpret.
func (rd *Reader) readVInt() ([]byte, error) {
	length, err := rd.peekLength()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, length)
	n, err := io.ReadFull(rd.r, buf)
	rd.pos += int64(n)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// ElementHeader is the ID and size of an element as read from the
// stream, with the element's content still unread (its body begins at
// BodyOffset).
type ElementHeader struct {
	ID         uint32
	Size       uint64 // UnknownSize for an open-ended master
	BodyOffset int64
}

// ReadHeader reads one element's ID+size prefix without consuming its
// body.
func (rd *Reader) ReadHeader() (ElementHeader, error) {
	idBytes, err := rd.readVInt()
	if err != nil {
		return ElementHeader{}, err
	}
	id, _, err := DecodeID(idBytes)
	if err != nil {
		return ElementHeader{}, err
	}
	sizeBytes, err := rd.readVInt()
	if err != nil {
		return ElementHeader{}, err
	}
	size, _, err := DecodeSize(sizeBytes)
	if err != nil {
		return ElementHeader{}, err
	}
	return ElementHeader{ID: id, Size: size, BodyOffset: rd.pos}, nil
}

// SkipBody advances past h's content without decoding it. It is an
// error to call this for an unknown-size element; the caller must
// instead stop at the next sibling/parent boundary it discovers by
// other means (spec.md §4.1 "size == all-ones ... legal only for
// top-level master elements").
func (rd *Reader) SkipBody(h ElementHeader) error {
	if h.Size == UnknownSize {
		return fmt.Errorf("ebml: cannot skip an unknown-size element 0x%X", h.ID)
	}
	_, err := rd.Seek(h.BodyOffset+int64(h.Size), io.SeekStart)
	return err
}

// ReadLeaf reads h's entire content as a non-master Element of kind.
func (rd *Reader) ReadLeaf(h ElementHeader, kind Kind) (*Element, error) {
	if h.Size == UnknownSize {
		return nil, fmt.Errorf("ebml: leaf element 0x%X cannot have unknown size", h.ID)
	}
	data := make([]byte, h.Size)
	if h.Size > 0 {
		n, err := io.ReadFull(rd.r, data)
		rd.pos += int64(n)
		if err != nil {
			return nil, err
		}
	}
	e := NewElement(h.ID, kind)
	e.SetData(data)
	return e, nil
}

// ReadTree recursively decodes h as a master element, resolving each
// child's Kind via kindOf (every child is read as KindBinary when kindOf
// is nil); ctx supplies the child contexts used for nested masters. A
// finite-size master stops at the end of its body; an unknown-size
// master reads children until io.EOF.
func (rd *Reader) ReadTree(h ElementHeader, ctx *SemanticContext, kindOf func(id uint32) Kind) (*Element, error) {
	m := NewMaster(h.ID)
	m.ctx = ctx.Entry(h.ID)

	limit := int64(-1)
	if h.Size != UnknownSize {
		limit = h.BodyOffset + int64(h.Size)
	}

	for {
		if limit >= 0 && rd.pos >= limit {
			break
		}
		childHeader, err := rd.ReadHeader()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		entry := ctx.Entry(childHeader.ID)
		kind := KindBinary
		if kindOf != nil {
			kind = kindOf(childHeader.ID)
		}

		var child *Element
		if kind == KindMaster {
			childCtx := ctx
			if entry != nil && entry.Context != nil {
				childCtx = entry.Context
			}
			child, err = rd.ReadTree(childHeader, childCtx, kindOf)
		} else {
			child, err = rd.ReadLeaf(childHeader, kind)
		}
		if err != nil {
			return nil, err
		}
		if entry != nil {
			child.ctx = entry
		}
		m.Push(child)
	}
	return m, nil
}
