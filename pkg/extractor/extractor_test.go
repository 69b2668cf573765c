package extractor

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/menta2k/detect-cropper/internal/metrics"
	"github.com/menta2k/detect-cropper/pkg/detection"
	"github.com/menta2k/detect-cropper/pkg/processing"
	"github.com/menta2k/detect-cropper/pkg/types"
)

// fakeDetector returns the boxes registered for an image base name
type fakeDetector struct {
	mu     sync.Mutex
	boxes  map[string][]types.Detection
	err    error
	inputs []detection.Input
}

func (f *fakeDetector) Detect(ctx context.Context, in detection.Input) ([]types.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return f.boxes[filepath.Base(in.Path)], nil
}

func createTestImage(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{uint8(x % 256), uint8(y % 256), 128, 255})
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(img, path))
	return path
}

func box(x1, y1, x2, y2 float64) types.Detection {
	return types.Detection{ClassID: 16, Label: "dog", Confidence: 0.9, X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func imageSize(t *testing.T, path string) (int, int) {
	t.Helper()
	img, err := imaging.Open(path)
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func newRequest(src, out string) types.CropRequest {
	return types.CropRequest{SourceDir: src, OutputDir: out, ClassID: 16, ClassName: "dog"}
}

func TestRunWritesCropsPerDetection(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	createTestImage(t, src, "a.png", 800, 600)
	createTestImage(t, src, "b.jpg", 400, 300)

	det := &fakeDetector{boxes: map[string][]types.Detection{
		"a.png": {box(100, 100, 300, 300), box(500, 200, 700, 500)},
		"b.jpg": {box(10, 20, 110, 70)},
	}}
	opts := DefaultOptions()
	opts.Previews = false
	var written []types.CropResult
	opts.OnCrop = func(r types.CropResult) { written = append(written, r) }

	summary, err := New(det, processing.NewProcessor(95), opts).Run(context.Background(), newRequest(src, out))
	require.NoError(t, err)

	assert.Equal(t, types.JobSummary{Images: 2, Detections: 3, Crops: 3, Output: out}, summary)

	classDir := filepath.Join(out, "crops", "dog")
	w, h := imageSize(t, filepath.Join(classDir, "a_0.jpg"))
	assert.Equal(t, 200, w)
	assert.Equal(t, 200, h)
	w, h = imageSize(t, filepath.Join(classDir, "a_1.jpg"))
	assert.Equal(t, 200, w)
	assert.Equal(t, 300, h)
	w, h = imageSize(t, filepath.Join(classDir, "b_0.jpg"))
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)

	require.Len(t, written, 3)
	assert.Equal(t, image.Rect(500, 200, 700, 500), written[1].Rect)
	assert.Equal(t, 1, written[1].Index)

	_, err = os.Stat(filepath.Join(out, "detect"))
	assert.True(t, os.IsNotExist(err), "previews disabled")
}

func TestRunPassesRequestToDetector(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	createTestImage(t, src, "a.png", 64, 64)
	det := &fakeDetector{}

	_, err := New(det, nil, DefaultOptions()).Run(context.Background(), newRequest(src, out))
	require.NoError(t, err)

	require.Len(t, det.inputs, 1)
	in := det.inputs[0]
	assert.Equal(t, 16, in.ClassID)
	assert.Equal(t, "dog", in.ClassName)
	assert.Equal(t, detection.DefaultConfidence, in.Confidence)
	assert.Equal(t, 64, in.Image.Bounds().Dx())
}

func TestRunPaddingAndResize(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	createTestImage(t, src, "a.png", 800, 600)
	det := &fakeDetector{boxes: map[string][]types.Detection{"a.png": {box(100, 100, 300, 300)}}}

	req := newRequest(src, out)
	req.Padding = &types.Padding{Left: 10, Top: 10, Right: 10, Bottom: 10}
	opts := DefaultOptions()
	opts.Previews = false

	_, err := New(det, nil, opts).Run(context.Background(), req)
	require.NoError(t, err)
	w, h := imageSize(t, filepath.Join(out, "crops", "dog", "a_0.jpg"))
	assert.Equal(t, 220, w)
	assert.Equal(t, 220, h)

	req.Padding = nil
	req.Resize = &types.MaxSize{Width: 50, Height: 50}
	_, err = New(det, nil, opts).Run(context.Background(), req)
	require.NoError(t, err)
	w, h = imageSize(t, filepath.Join(out, "crops", "dog", "a_0.jpg"))
	assert.Equal(t, 50, w)
	assert.Equal(t, 50, h)
}

func TestRunSkipsUnreadableImages(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	createTestImage(t, src, "good.png", 100, 100)
	require.NoError(t, os.WriteFile(filepath.Join(src, "broken.jpg"), []byte("not a jpeg"), 0o644))
	det := &fakeDetector{boxes: map[string][]types.Detection{"good.png": {box(0, 0, 50, 50)}}}

	core, logs := observer.New(zapcore.WarnLevel)
	m := metrics.New()
	summary, err := New(det, nil, DefaultOptions()).
		WithLogger(zap.New(core)).
		WithMetrics(m).
		Run(context.Background(), newRequest(src, out))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Images)
	assert.Equal(t, 1, summary.Crops)
	assert.Equal(t, 1, logs.FilterMessage("Error reading image, skipping").Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImagesSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImagesProcessed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CropsWritten))
}

func TestRunSkipsZeroAreaCrops(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	createTestImage(t, src, "a.png", 100, 100)
	det := &fakeDetector{boxes: map[string][]types.Detection{
		"a.png": {box(150, 150, 200, 200), box(10, 10, 40, 40)},
	}}

	core, logs := observer.New(zapcore.WarnLevel)
	m := metrics.New()
	summary, err := New(det, nil, DefaultOptions()).
		WithLogger(zap.New(core)).
		WithMetrics(m).
		Run(context.Background(), newRequest(src, out))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Empty)
	assert.Equal(t, 1, summary.Crops)
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CropsEmpty))

	// indices follow the detector's list, so the surviving crop keeps index 1
	assert.FileExists(t, filepath.Join(out, "crops", "dog", "a_1.jpg"))
	assert.NoFileExists(t, filepath.Join(out, "crops", "dog", "a_0.jpg"))
}

func TestRunWritesPreviews(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	createTestImage(t, src, "a.png", 120, 80)
	det := &fakeDetector{boxes: map[string][]types.Detection{"a.png": {box(10, 10, 60, 60)}}}

	_, err := New(det, nil, DefaultOptions()).Run(context.Background(), newRequest(src, out))
	require.NoError(t, err)

	w, h := imageSize(t, filepath.Join(out, "detect", "a.jpg"))
	assert.Equal(t, 120, w)
	assert.Equal(t, 80, h)
}

func TestRunAbortsOnDetectorError(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	createTestImage(t, src, "a.png", 32, 32)
	createTestImage(t, src, "b.png", 32, 32)
	boom := errors.New("inference service unavailable")
	det := &fakeDetector{err: boom}

	summary, err := New(det, nil, DefaultOptions()).Run(context.Background(), newRequest(src, out))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "a.png")
	assert.Equal(t, 1, summary.Images)
	assert.Len(t, det.inputs, 1)
}

func TestRunMissingSourceDir(t *testing.T) {
	_, err := New(&fakeDetector{}, nil, DefaultOptions()).
		Run(context.Background(), newRequest(filepath.Join(t.TempDir(), "missing"), t.TempDir()))
	assert.ErrorContains(t, err, "does not exist")
}

func TestRunStopsWhenContextCanceled(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	createTestImage(t, src, "a.png", 32, 32)
	det := &fakeDetector{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(det, nil, DefaultOptions()).Run(ctx, newRequest(src, out))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, det.inputs)
}

func TestClassDirSanitizesName(t *testing.T) {
	e := New(&fakeDetector{}, nil, Options{})
	req := types.CropRequest{OutputDir: "/out", ClassName: "teddy bear"}
	assert.Equal(t, filepath.Join("/out", "crops", "teddy bear"), e.ClassDir(req))
	req.ClassName = "a/b"
	assert.Equal(t, filepath.Join("/out", "crops", "a_b"), e.ClassDir(req))
}
