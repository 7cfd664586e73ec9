package osd

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blackFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func TestApplyDrawsOverlay(t *testing.T) {
	provider := StaticProvider{
		"/photos/cat.jpg": {"name": "cat.jpg", "date": "2024-01-01 12:00"},
	}
	comp := NewCompositor(DefaultProperties(), provider)

	img := blackFrame(320, 240)
	before := make([]byte, len(img.Pix))
	copy(before, img.Pix)

	require.NoError(t, comp.Apply(img, "/photos/cat.jpg"))
	assert.False(t, bytes.Equal(before, img.Pix), "overlay must change pixels")
}

func TestApplyNoFieldsIsNoop(t *testing.T) {
	props := DefaultProperties()
	props.ShowName = false
	props.ShowDate = false
	comp := NewCompositor(props, StaticProvider{})

	img := blackFrame(100, 100)
	before := make([]byte, len(img.Pix))
	copy(before, img.Pix)

	require.NoError(t, comp.Apply(img, "/any.jpg"))
	assert.True(t, bytes.Equal(before, img.Pix), "nothing enabled, nothing drawn")
}

func TestApplyPositionCorners(t *testing.T) {
	provider := StaticProvider{"/a.jpg": {"name": "a.jpg"}}

	changedIn := func(pos Position) (top, bottom bool) {
		props := DefaultProperties()
		props.ShowDate = false
		props.Position = pos
		comp := NewCompositor(props, provider)

		img := blackFrame(200, 200)
		require.NoError(t, comp.Apply(img, "/a.jpg"))

		for y := 0; y < 100; y++ {
			for x := 0; x < 200; x++ {
				if img.RGBAAt(x, y) != (color.RGBA{A: 255}) {
					top = true
				}
				if img.RGBAAt(x, y+100) != (color.RGBA{A: 255}) {
					bottom = true
				}
			}
		}
		return top, bottom
	}

	top, bottom := changedIn(TopLeft)
	assert.True(t, top)
	assert.False(t, bottom)

	top, bottom = changedIn(BottomLeft)
	assert.False(t, top)
	assert.True(t, bottom)
}

func TestApplyCameraFields(t *testing.T) {
	props := Properties{
		ShowMakeModel: true,
		ShowAperture:  true,
		ShowExposure:  true,
		Position:      BottomLeft,
		TextColor:     Color{R: 255, G: 255, B: 255, A: 255},
		Background:    Color{A: 170},
		Opacity:       0.8,
	}
	comp := NewCompositor(props, StaticProvider{
		"/b.jpg": {"make": "Canon", "model": "EOS R5", "aperture": "2.8", "exposure": "1/250s"},
	})

	img := blackFrame(320, 240)
	before := make([]byte, len(img.Pix))
	copy(before, img.Pix)

	require.NoError(t, comp.Apply(img, "/b.jpg"))
	assert.False(t, bytes.Equal(before, img.Pix))
}

func TestApplyProviderError(t *testing.T) {
	comp := NewCompositor(DefaultProperties(), FileInfoProvider{})
	img := blackFrame(100, 100)
	assert.Error(t, comp.Apply(img, "/does/not/exist.jpg"))
}

func TestFileInfoProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not really a jpeg"), 0o644))

	info, err := FileInfoProvider{}.ItemInfo(path)
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", info["name"])
	assert.NotEmpty(t, info["date"])
	assert.NotEmpty(t, info["size"])
}
