package processing

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/detect-cropper/pkg/types"
)

func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	return img
}

func TestNewProcessorQuality(t *testing.T) {
	assert.Equal(t, 80, NewProcessor(80).Quality())
	assert.Equal(t, 95, NewProcessor(0).Quality())
	assert.Equal(t, 95, NewProcessor(101).Quality())
}

func TestSaveAndLoadJPEG(t *testing.T) {
	p := NewProcessor(90)
	path := filepath.Join(t.TempDir(), "crops", "dog", "a_0.jpg")

	require.NoError(t, p.SaveJPEG(createTestImage(64, 48), path))
	assert.DirExists(t, filepath.Dir(path))

	img, err := p.LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())
}

func TestLoadImagePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, createTestImage(30, 20)))
	require.NoError(t, f.Close())

	img, err := NewProcessor(90).LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 30, 20), img.Bounds())
}

func TestLoadImageUnreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	_, err := NewProcessor(90).LoadImage(path)
	assert.Error(t, err)

	_, err = NewProcessor(90).LoadImage(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}

func TestEncodeJPEG(t *testing.T) {
	p := NewProcessor(90)
	data, err := p.EncodeJPEG(createTestImage(16, 16))
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 16, img.Bounds().Dx())
}

func TestPrepareImageForModelDownscales(t *testing.T) {
	p := NewProcessor(90)
	b64, err := p.PrepareImageForModel(createTestImage(400, 200), "png", 100, 85)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	img, _, err := image.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestDrawDetections(t *testing.T) {
	p := NewProcessor(90)
	src := createTestImage(200, 200)
	out := p.DrawDetections(src, []types.Detection{{X1: 10, Y1: 10, X2: 100, Y2: 100}})

	assert.Equal(t, src.Bounds(), out.Bounds())
	assert.Equal(t, color.NRGBA{0, 255, 0, 255}, out.NRGBAAt(10, 50))
	// the source is untouched
	r, g, _, _ := src.At(10, 50).RGBA()
	assert.Equal(t, uint32(10)*0x101, r)
	assert.Equal(t, uint32(50)*0x101, g)
}

func TestDrawDetectionsOutOfBounds(t *testing.T) {
	p := NewProcessor(90)
	assert.NotPanics(t, func() {
		p.DrawDetections(createTestImage(50, 50), []types.Detection{{X1: -20, Y1: -20, X2: 500, Y2: 500}})
	})
}
