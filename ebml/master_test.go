package ebml

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderLeafOmitsDefault(t *testing.T) {
	e := NewElement(0x10, KindUint)
	e.SetDefault(EncodeUint(0))
	e.SetData(EncodeUint(0))

	var buf bytes.Buffer
	require.NoError(t, e.Render(&buf, false, false))
	require.Zero(t, buf.Len(), "default-valued element must be elided")

	buf.Reset()
	require.NoError(t, e.Render(&buf, true, false))
	require.NotZero(t, buf.Len(), "withDefault=true must force render")
}

func TestRenderMasterRoundTrip(t *testing.T) {
	m := NewMaster(0x1000)
	child := NewElement(0x10, KindUint)
	child.SetData(EncodeUint(7))
	m.Push(child)

	var buf bytes.Buffer
	require.NoError(t, m.Render(&buf, false, false))

	rd, err := NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	header, err := rd.ReadHeader()
	require.NoError(t, err)
	require.Equal(t, uint32(0x1000), header.ID)

	ctx := &SemanticContext{Entries: []ContextEntry{{ID: 0x10}}}
	tree, err := rd.ReadTree(header, ctx, func(id uint32) Kind {
		if id == 0x10 {
			return KindUint
		}
		return KindBinary
	})
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	require.Equal(t, uint64(7), tree.Children[0].Uint())
}

func TestUpdateSizeMatchesRenderedLength(t *testing.T) {
	m := NewMaster(0x1000)
	for i := 0; i < 3; i++ {
		c := NewElement(0x10, KindUint)
		c.SetData(EncodeUint(uint64(i)))
		m.Push(c)
	}

	want := m.UpdateSize(false, false)

	var buf bytes.Buffer
	require.NoError(t, m.Render(&buf, false, false))
	require.EqualValues(t, want, buf.Len())
}

func TestCRCCoverageVerifies(t *testing.T) {
	m := NewMaster(0x1000)
	child := NewElement(0x10, KindUint)
	child.SetData(EncodeUint(99))
	m.Push(child)
	EnableCRC(m)

	var buf bytes.Buffer
	require.NoError(t, m.Render(&buf, false, false))

	rd, err := NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	header, err := rd.ReadHeader()
	require.NoError(t, err)

	ctx := &SemanticContext{Entries: []ContextEntry{
		{ID: 0x10},
		{ID: Crc32ElementID},
	}}
	tree, err := rd.ReadTree(header, ctx, func(id uint32) Kind {
		if id == Crc32ElementID {
			return KindBinary
		}
		return KindUint
	})
	require.NoError(t, err)

	ok, err := VerifyCRC(tree)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCRCChildRenderedFirst(t *testing.T) {
	m := NewMaster(0x1000)
	child := NewElement(0x10, KindUint)
	child.SetData(EncodeUint(1))
	m.Push(child)
	EnableCRC(m)

	var buf bytes.Buffer
	require.NoError(t, m.Render(&buf, false, false))

	rd, err := NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	header, err := rd.ReadHeader()
	require.NoError(t, err)
	firstChild, err := rd.ReadHeader()
	require.NoError(t, err)
	require.Equal(t, uint32(Crc32ElementID), firstChild.ID, "CRC child must render first")
}
