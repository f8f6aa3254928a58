package ebml

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsDefaultValue(t *testing.T) {
	e := NewElement(0x1234, KindUint)
	e.SetDefault(EncodeUint(0))
	require.True(t, e.IsDefaultValue(), "no value set yet: should report default")

	e.SetData(EncodeUint(0))
	require.True(t, e.IsDefaultValue(), "explicit value equal to default")

	e.SetData(EncodeUint(5))
	require.False(t, e.IsDefaultValue())
}

func TestMasterFindAndAll(t *testing.T) {
	m := NewMaster(0x1000)
	a := NewElement(0x10, KindUint)
	a.SetData(EncodeUint(1))
	b := NewElement(0x10, KindUint)
	b.SetData(EncodeUint(2))
	c := NewElement(0x20, KindUint)
	c.SetData(EncodeUint(3))
	m.Push(a)
	m.Push(b)
	m.Push(c)

	require.Same(t, a, m.FindFirst(0x10))
	require.Same(t, b, m.FindNext(0x10, a))
	require.Nil(t, m.FindNext(0x10, b))
	require.Len(t, m.All(0x10), 2)
}

func TestMasterRemoveSkipsLocked(t *testing.T) {
	m := NewMaster(0x1000)
	a := NewElement(0x10, KindUint)
	a.Lock()
	m.Push(a)
	m.Remove(0)
	require.Len(t, m.Children, 1, "locked child must survive Remove")
}

func TestMasterInsertBeforeSibling(t *testing.T) {
	m := NewMaster(0x1000)
	first := NewElement(0x01, KindUint)
	last := NewElement(0x03, KindUint)
	m.Push(first)
	m.Push(last)

	mid := NewElement(0x02, KindUint)
	m.Insert(mid, last)

	require.Equal(t, []uint32{0x01, 0x02, 0x03}, idsOf(m.Children))
}

func idsOf(els []*Element) []uint32 {
	out := make([]uint32, len(els))
	for i, e := range els {
		out[i] = e.ID
	}
	return out
}

func TestCheckMandatoryReportsMissing(t *testing.T) {
	ctx := &SemanticContext{Entries: []ContextEntry{
		{ID: 0xAA, Mandatory: true},
		{ID: 0xBB, Mandatory: false},
	}}
	m := NewMaster(0x1000)
	err := m.CheckMandatory(ctx)
	require.Error(t, err)

	m.Push(NewElement(0xAA, KindUint))
	require.NoError(t, m.CheckMandatory(ctx))
}

func TestPopulateMandatoryUsesFactory(t *testing.T) {
	built := false
	ctx := &SemanticContext{Entries: []ContextEntry{
		{ID: 0xAA, Mandatory: true, Unique: true, Factory: func() *Element {
			built = true
			e := NewElement(0xAA, KindUint)
			e.SetData(EncodeUint(1))
			return e
		}},
	}}
	m := NewMaster(0x1000)
	m.PopulateMandatory(ctx)
	require.True(t, built)
	require.NotNil(t, m.FindFirst(0xAA))
}

func TestCloneIsDeep(t *testing.T) {
	m := NewMaster(0x1000)
	child := NewElement(0x10, KindUint)
	child.SetData(EncodeUint(42))
	m.Push(child)

	clone := m.Clone()
	clone.Children[0].SetData(EncodeUint(7))

	require.Equal(t, uint64(42), m.Children[0].Uint(), "mutating clone must not affect original")
	require.Equal(t, uint64(7), clone.Children[0].Uint())
}
