package ebml

import "fmt"

// Kind identifies which primitive variant an Element holds. Matroska-
// and EBML-specific element types are not a class hierarchy (per the
// "Polymorphism" design note in spec.md §9); they are all Elements
// parameterized by a Kind and a SemanticContext.
type Kind int

const (
	KindUint Kind = iota
	KindInt
	KindFloat
	KindString // ASCII
	KindUTF8
	KindBinary
	KindDate
	KindMaster
)

// Element is the tagged-union EBML value: identity (ID), value state
// (set/default/finite), and payload. Master elements keep their
// children in Children; every other kind stores its encoded payload in
// Data (or, for convenience, decoded scalars are read on demand via the
// Decode* helpers so the union never needs per-kind typed fields).
type Element struct {
	ID   uint32
	Kind Kind

	Data     []byte     // payload for non-master kinds
	Children []*Element // ordered children for master kinds

	valueSet     bool
	defaultSet   bool
	defaultValue []byte
	defaultSize  int // padding target for strings; 0 = none
	locked       bool

	// ctx is the semantic-context entry this element was created from,
	// used by IsDefaultValue / mandatory checks. Nil for ad-hoc elements.
	ctx *ContextEntry
}

// NewElement constructs a leaf element of the given kind with no value
// set (once a default is registered, IsDefaultValue reports true until
// a value is assigned with SetData).
func NewElement(id uint32, kind Kind) *Element {
	return &Element{ID: id, Kind: kind}
}

// NewMaster constructs an empty master element.
func NewMaster(id uint32) *Element {
	return &Element{ID: id, Kind: KindMaster}
}

// SetData assigns a non-master element's encoded payload and marks the
// value as explicitly set (so IsDefaultValue consults the bytes rather
// than reporting "default" for an empty element).
func (e *Element) SetData(data []byte) {
	e.Data = data
	e.valueSet = true
}

// SetDefault records the encoded form of this element's default value.
// An element whose current Data equals the default is skipped on
// render unless forced.
func (e *Element) SetDefault(data []byte) {
	e.defaultValue = data
	e.defaultSet = true
}

// SetDefaultSize records the padding target used by string encodes.
func (e *Element) SetDefaultSize(n int) { e.defaultSize = n }

// Lock marks the element as owned elsewhere; Master.Remove and
// Master teardown must not implicitly delete a locked child.
func (e *Element) Lock()         { e.locked = true }
func (e *Element) Locked() bool  { return e.locked }
func (e *Element) ValueSet() bool { return e.valueSet }

// IsDefaultValue reports whether the element's current value equals its
// registered default. Elements with no default registered are never
// considered default (they always render when set).
func (e *Element) IsDefaultValue() bool {
	if !e.defaultSet {
		return false
	}
	if !e.valueSet {
		return true
	}
	return bytesEqual(e.Data, e.defaultValue)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Uint decodes the element as an unsigned integer.
func (e *Element) Uint() uint64 { return DecodeUint(e.Data) }

// Int decodes the element as a signed integer.
func (e *Element) Int() int64 { return DecodeInt(e.Data) }

// Float decodes the element as a float.
func (e *Element) Float() float64 { return DecodeFloat(e.Data) }

// Str decodes the element as an ASCII/UTF-8 string.
func (e *Element) Str() string { return DecodeString(e.Data) }

// Bytes returns the raw binary payload.
func (e *Element) Bytes() []byte { return e.Data }

// Date decodes the element as an absolute unix-nanosecond timestamp.
func (e *Element) Date() (int64, error) { return DecodeDate(e.Data) }

// --- Master operations (spec.md §4.3) ---

// Push appends a child in insertion order.
func (e *Element) Push(child *Element) {
	e.Children = append(e.Children, child)
}

// Insert places child immediately before beforeSibling if non-nil and
// found; otherwise it is appended.
func (e *Element) Insert(child *Element, beforeSibling *Element) {
	if beforeSibling == nil {
		e.Push(child)
		return
	}
	for i, c := range e.Children {
		if c == beforeSibling {
			e.Children = append(e.Children[:i], append([]*Element{child}, e.Children[i:]...)...)
			return
		}
	}
	e.Push(child)
}

// Remove deletes the child at index. It is a no-op if the child is
// locked: locked children must outlive the master per spec.md §3.
func (e *Element) Remove(index int) {
	if index < 0 || index >= len(e.Children) {
		return
	}
	if e.Children[index].locked {
		return
	}
	e.Children = append(e.Children[:index], e.Children[index+1:]...)
}

// FindFirst returns the first child with the given ID, or nil.
func (e *Element) FindFirst(id uint32) *Element {
	for _, c := range e.Children {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// FindNext returns the next child with the given ID strictly after
// last (by identity), or nil.
func (e *Element) FindNext(id uint32, last *Element) *Element {
	seen := last == nil
	for _, c := range e.Children {
		if !seen {
			if c == last {
				seen = true
			}
			continue
		}
		if c.ID == id {
			return c
		}
	}
	return nil
}

// All returns every child with the given ID, in order.
func (e *Element) All(id uint32) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.ID == id {
			out = append(out, c)
		}
	}
	return out
}

// CheckMandatory validates that every mandatory child named by ctx is
// present, recursing into master children that themselves carry a
// context. It returns the first violation found, wrapped with the
// offending element's ID so the caller can report a path.
func (e *Element) CheckMandatory(ctx *SemanticContext) error {
	if ctx == nil {
		return nil
	}
	for _, entry := range ctx.Entries {
		if !entry.Mandatory {
			continue
		}
		if e.FindFirst(entry.ID) == nil {
			return fmt.Errorf("ebml: mandatory child 0x%X missing from element 0x%X", entry.ID, e.ID)
		}
	}
	for _, c := range e.Children {
		if c.Kind == KindMaster && c.ctx != nil && c.ctx.Context != nil {
			if err := c.CheckMandatory(c.ctx.Context); err != nil {
				return err
			}
		}
	}
	return nil
}

// PopulateMandatory auto-creates any mandatory+unique child missing from
// e, per ctx, using each entry's Factory. This mirrors semantic-context
// driven construction in spec.md §3 ("Mandatory+unique children are
// auto-created on master construction").
func (e *Element) PopulateMandatory(ctx *SemanticContext) {
	if ctx == nil {
		return
	}
	for i := range ctx.Entries {
		entry := &ctx.Entries[i]
		if entry.Mandatory && entry.Unique && e.FindFirst(entry.ID) == nil && entry.Factory != nil {
			child := entry.Factory()
			child.ctx = entry
			e.Push(child)
		}
	}
}

// Clone deep-copies the element and all of its descendants. Locked
// children are copied too (clone ownership is independent of the
// original tree's lock state).
func (e *Element) Clone() *Element {
	clone := &Element{
		ID:           e.ID,
		Kind:         e.Kind,
		valueSet:     e.valueSet,
		defaultSet:   e.defaultSet,
		defaultSize:  e.defaultSize,
		ctx:          e.ctx,
	}
	if e.Data != nil {
		clone.Data = append([]byte(nil), e.Data...)
	}
	if e.defaultValue != nil {
		clone.defaultValue = append([]byte(nil), e.defaultValue...)
	}
	for _, c := range e.Children {
		clone.Children = append(clone.Children, c.Clone())
	}
	return clone
}
