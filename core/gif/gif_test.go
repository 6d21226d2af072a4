package gif

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ankit-chaubey/imgmeta/core"
	"github.com/ankit-chaubey/imgmeta/core/fixture"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	data := fixture.GIF("89a", 320, 200, 0x81, 3,
		fixture.GIFExtension(LabelGraphicControl, []byte{0, 0, 0, 0}),
		fixture.GIFComment("Hello", "World"),
		fixture.GIFImage(320, 200),
		fixture.GIFComment("after image"),
		fixture.GIFTrailer,
	)
	m, err := New().Extract(data, core.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, core.FmtGIF, m.Format)
	require.Equal(t, []core.Field{
		{Label: "Format", Value: "Compuserve GIF"},
		{Label: "Version", Value: "GIF89a"},
		{Label: "Size", Value: "320 x 200 px"},
		{Label: "background", Value: "3"},
		{Label: "comment", Value: "Hello"},
		{Label: "comment", Value: "World"},
		{Label: "comment", Value: "after image"},
	}, m.Fields)
	require.NoError(t, m.Warnings.ErrorOrNil())
}

func TestVersion87a(t *testing.T) {
	t.Parallel()

	m, err := New().Extract(fixture.GIF("87a", 1, 1, 0, 0, fixture.GIFTrailer), core.DefaultOptions())
	require.NoError(t, err)
	v, ok := m.Get("Version")
	require.True(t, ok)
	require.Equal(t, "GIF87a", v)
	require.Len(t, m.Fields, 4)
}

func TestCommentSubBlocks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		block []byte
		want  []string
	}{
		{"nul byte", fixture.GIFExtension(LabelComment, []byte{0x00}), []string{"\x00"}},
		{"no sub-blocks", fixture.GIFExtension(LabelComment), nil},
		{"latin1", fixture.GIFExtension(LabelComment, []byte{'n', 0xE9}), []string{"né"}},
		{"utf8", fixture.GIFComment("ünïcode"), []string{"ünïcode"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New().Extract(fixture.GIF("89a", 1, 1, 0, 0, tt.block, fixture.GIFTrailer), core.DefaultOptions())
			require.NoError(t, err)
			var got []string
			for _, f := range m.Fields {
				if f.Label == "comment" {
					got = append(got, f.Value)
				}
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestLocalFailures(t *testing.T) {
	t.Parallel()

	t.Run("unknown introducer", func(t *testing.T) {
		data := fixture.GIF("89a", 2, 2, 0, 0, fixture.GIFComment("kept"), []byte{0x99}, fixture.GIFComment("lost"))
		m, err := New().Extract(data, core.DefaultOptions())
		require.NoError(t, err)
		c, ok := m.Get("comment")
		require.True(t, ok)
		require.Equal(t, "kept", c)
		require.Len(t, m.Fields, 5)
		require.Len(t, m.WarningList(), 1)
	})
	t.Run("truncated color table", func(t *testing.T) {
		data := fixture.GIF("89a", 7, 9, 0x87, 1, fixture.GIFComment("x"))
		m, err := New().Extract(data[:headerSize+10], core.DefaultOptions())
		require.NoError(t, err)
		size, ok := m.Get("Size")
		require.True(t, ok)
		require.Equal(t, "7 x 9 px", size)
		require.Len(t, m.Fields, 4)
		require.ErrorIs(t, m.Warnings, core.ErrTruncated)
	})
	t.Run("missing trailer", func(t *testing.T) {
		data := fixture.GIF("89a", 2, 2, 0, 0, fixture.GIFComment("only"))
		m, err := New().Extract(data, core.DefaultOptions())
		require.NoError(t, err)
		c, ok := m.Get("comment")
		require.True(t, ok)
		require.Equal(t, "only", c)
		require.ErrorIs(t, m.Warnings, core.ErrTruncated)
	})
	t.Run("cut comment", func(t *testing.T) {
		data := fixture.GIF("89a", 2, 2, 0, 0, fixture.GIFComment("abcdef"), fixture.GIFTrailer)
		m, err := New().Extract(data[:headerSize+5], core.DefaultOptions())
		require.NoError(t, err)
		_, ok := m.Get("comment")
		require.False(t, ok)
		require.Len(t, m.WarningList(), 1)
	})
}

func TestWalker(t *testing.T) {
	t.Parallel()

	w, err := Open(fixture.GIF("89a", 4, 4, 0x80, 0,
		fixture.GIFComment("a"),
		fixture.GIFImage(4, 4),
		fixture.GIFTrailer,
		fixture.GIFComment("after trailer"),
	))
	require.NoError(t, err)
	require.Equal(t, "89a", w.Header.Version)
	require.Equal(t, uint16(4), w.Header.Width)

	var kinds []BlockKind
	for {
		b, ok := w.Next()
		if !ok {
			break
		}
		kinds = append(kinds, b.Kind)
	}
	require.Equal(t, []BlockKind{BlockExtension, BlockImage, BlockTrailer}, kinds)
	require.NoError(t, w.Err())
}

func TestColorTableSize(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, colorTableSize(0x07))
	require.Equal(t, 6, colorTableSize(0x80))
	require.Equal(t, 768, colorTableSize(0xF7))
}

func TestMalformedContainer(t *testing.T) {
	t.Parallel()

	for _, in := range [][]byte{
		{0x47, 0x49, 0x46},
		[]byte("GIF89a"),
		[]byte("GIF90a\x01\x00\x01\x00\x00\x00\x00"),
		fixture.JPEG(fixture.COM("not a gif")),
	} {
		m, err := New().Extract(in, core.DefaultOptions())
		require.Nil(t, m)
		require.True(t, core.IsMalformed(err), "%v", err)
	}
}
