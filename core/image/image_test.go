package image

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankit-chaubey/imgmeta/core"
	"github.com/ankit-chaubey/imgmeta/core/fixture"
)

func samples() map[core.FormatID][]byte {
	return map[core.FormatID][]byte{
		core.FmtPNG:  fixture.PNG(fixture.IHDR(2, 3), fixture.IEND()),
		core.FmtGIF:  fixture.GIF("89a", 2, 3, 0, 0, fixture.GIFTrailer),
		core.FmtJPEG: fixture.JPEG(fixture.SOF0(2, 3), fixture.EOI()),
	}
}

func TestExtractDetects(t *testing.T) {
	t.Parallel()

	for format, data := range samples() {
		m, err := Extract(data, core.FmtUnknown, core.DefaultOptions())
		require.NoError(t, err, format)
		assert.Equal(t, format, m.Format)
		size, ok := m.Get("Size")
		require.True(t, ok, format)
		assert.Equal(t, "2 x 3 px", size)
	}
}

func TestExtractHint(t *testing.T) {
	t.Parallel()

	data := samples()[core.FmtGIF]
	_, err := Extract(data, core.FmtPNG, core.DefaultOptions())
	require.True(t, core.IsMalformed(err))

	_, err = Extract(data, core.FormatID("bmp"), core.DefaultOptions())
	require.ErrorIs(t, err, core.ErrUnsupportedFormat)

	_, err = Extract([]byte("plain text"), core.FmtUnknown, core.DefaultOptions())
	require.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestExtractContentType(t *testing.T) {
	t.Parallel()

	m, err := ExtractContentType(samples()[core.FmtJPEG], "image/jpeg", core.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, core.FmtJPEG, m.Format)

	m, err = ExtractContentType(samples()[core.FmtPNG], "application/octet-stream", core.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, core.FmtPNG, m.Format)
}

func TestView(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for format, data := range samples() {
		path := filepath.Join(dir, "sample."+string(format))
		require.NoError(t, os.WriteFile(path, data, 0o644))
		m, err := View(path, core.DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, format, m.Format)
	}

	// detection falls back to the extension, which then fails on the signature
	bad := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(bad, []byte{1, 2, 3}, 0o644))
	_, err := View(bad, core.DefaultOptions())
	require.True(t, core.IsMalformed(err))

	src, _, err := Load(bad, core.DefaultOptions())
	require.True(t, core.IsMalformed(err))
	require.Equal(t, []byte{1, 2, 3}, src.Data)

	_, err = View(filepath.Join(dir, "missing.gif"), core.DefaultOptions())
	require.Error(t, err)
	require.False(t, core.IsMalformed(err))
}

func TestHandler(t *testing.T) {
	t.Parallel()

	h, err := New(core.FmtPNG)
	require.NoError(t, err)
	require.Equal(t, "PNG", h.Info().Name)

	path := filepath.Join(t.TempDir(), "no-extension")
	require.NoError(t, os.WriteFile(path, samples()[core.FmtPNG], 0o644))
	src, m, err := h.Load(path, core.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, path, src.Name)
	require.Equal(t, samples()[core.FmtPNG], src.Data)
	require.Equal(t, "Portable network graphics", m.Fields[0].Value)

	// a forced format does not fall back to detection
	gifPath := filepath.Join(t.TempDir(), "a.gif")
	require.NoError(t, os.WriteFile(gifPath, samples()[core.FmtGIF], 0o644))
	src, _, err = h.Load(gifPath, core.DefaultOptions())
	require.True(t, core.IsMalformed(err))
	require.NotEmpty(t, src.Data)

	_, err = New(core.FmtUnknown)
	require.ErrorIs(t, err, core.ErrUnsupportedFormat)
}

func TestSupported(t *testing.T) {
	t.Parallel()

	var names []string
	for _, info := range Supported() {
		names = append(names, info.Name)
		require.NotEmpty(t, info.Label)
		require.NotEmpty(t, info.Extensions)
	}
	require.Equal(t, []string{"PNG", "GIF", "JPEG"}, names)
}

func FuzzExtract(f *testing.F) {
	tiff := fixture.TIFF(binary.LittleEndian,
		fixture.Entry{Tag: 0x010F, Value: "Canon"},
		fixture.Entry{Tag: 0x9C9B, Value: []byte("title")},
		fixture.Raw{Tag: 0x010E, Type: 2, Count: 10, Offset: 5000},
	)
	seeds := [][]byte{
		fixture.PNG(
			fixture.IHDR(4, 2),
			fixture.GAMA(45455),
			fixture.PHYS(2835, 2835, 1),
			fixture.TEXt("Title", []byte("sunset")),
			fixture.ZTXt("Comment", []byte("deflated")),
			fixture.ITXt("Author", "Zoë", true),
			fixture.TIME(2024, 1, 2, 3, 4, 5),
			fixture.Chunk("eXIf", tiff),
			fixture.IDAT([]byte{1, 2, 3}),
			fixture.IEND(),
		),
		fixture.GIF("89a", 4, 2, 0x80, 0,
			fixture.GIFComment("hello", "world"),
			fixture.GIFImage(4, 2),
			fixture.GIFTrailer,
		),
		fixture.JPEG(
			fixture.JFIF(1, 2, 1, 72, 72),
			fixture.APP1Exif(tiff),
			fixture.COM("note"),
			fixture.SOF0(4, 2),
			fixture.SOS([]byte{0x12, 0xFF, 0x00, 0xFF, 0xD0, 0x34}),
			fixture.EOI(),
		),
	}
	for _, seed := range seeds {
		f.Add(seed)
		f.Add(seed[:len(seed)/2])
	}
	for _, seed := range samples() {
		f.Add(seed)
	}

	opts := core.Options{MaxInflateBytes: 1 << 16, Extended: true}
	f.Fuzz(func(t *testing.T, data []byte) {
		for format, ex := range extractors {
			m, err := ex.Extract(data, opts)
			if err != nil {
				require.Nil(t, m, format)
				continue
			}
			require.NotNil(t, m, format)
			require.Equal(t, format, m.Format)
		}
		m, err := Extract(data, core.FmtUnknown, opts)
		if err != nil {
			require.Nil(t, m)
			return
		}
		require.Equal(t, core.DetectFormat(data), m.Format)
	})
}
