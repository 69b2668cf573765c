package cropper

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/detect-cropper/pkg/types"
)

// ErrEmptyCrop is returned when clipping leaves a rectangle with no pixels
var ErrEmptyCrop = errors.New("empty crop rectangle")

// BoxCropper turns detector boxes into cropped sub-images
type BoxCropper struct {
	config CropConfig
}

// CropConfig holds the optional padding and resize applied to every crop
type CropConfig struct {
	Padding *types.Padding
	Resize  *types.MaxSize
	Filter  imaging.ResampleFilter
}

// CropResult contains the result of a cropping operation
type CropResult struct {
	Image *image.NRGBA
	Rect  image.Rectangle
}

// New creates a BoxCropper without padding or resizing
func New() *BoxCropper {
	return &BoxCropper{
		config: CropConfig{Filter: imaging.Lanczos},
	}
}

// NewWithConfig creates a BoxCropper with custom configuration
func NewWithConfig(config CropConfig) *BoxCropper {
	if config.Filter.Kernel == nil && config.Filter.Support == 0 {
		config.Filter = imaging.Lanczos
	}
	return &BoxCropper{config: config}
}

// Crop extracts the region of img covered by det, padded and resized as configured
func (c *BoxCropper) Crop(img image.Image, det types.Detection) (CropResult, error) {
	bounds := img.Bounds()
	rect, err := CropRect(det, bounds.Dx(), bounds.Dy(), c.config.Padding)
	if err != nil {
		return CropResult{}, err
	}

	cropped := Extract(img, rect)
	if c.config.Resize != nil {
		cropped = FitWithin(cropped, *c.config.Resize, c.config.Filter)
	}

	return CropResult{Image: cropped, Rect: rect}, nil
}

// ClipBox converts a detection to integer pixels and clips it to [0,w]x[0,h].
// Coordinates are truncated toward zero. A box lying outside the image
// collapses to an empty rectangle rather than an inverted one.
func ClipBox(det types.Detection, w, h int) image.Rectangle {
	return clipRect(int(det.X1), int(det.Y1), int(det.X2), int(det.Y2), w, h)
}

// ApplyPadding grows r by pad on each side and clips the result to the image.
// Margins larger than the image are capped first so the sums cannot overflow.
func ApplyPadding(r image.Rectangle, pad types.Padding, w, h int) image.Rectangle {
	return clipRect(
		r.Min.X-clampInt(pad.Left, 0, w),
		r.Min.Y-clampInt(pad.Top, 0, h),
		r.Max.X+clampInt(pad.Right, 0, w),
		r.Max.Y+clampInt(pad.Bottom, 0, h),
		w, h,
	)
}

// CropRect computes the final crop rectangle for det in a w x h image
func CropRect(det types.Detection, w, h int, pad *types.Padding) (image.Rectangle, error) {
	rect := ClipBox(det, w, h)
	if pad != nil {
		rect = ApplyPadding(rect, *pad, w, h)
	}
	if rect.Empty() {
		return rect, ErrEmptyCrop
	}
	return rect, nil
}

// Extract copies the pixels of rect, given relative to the image origin
func Extract(img image.Image, rect image.Rectangle) *image.NRGBA {
	return imaging.Crop(img, rect.Add(img.Bounds().Min))
}

// FitWithin downscales img so neither side exceeds max, keeping the aspect
// ratio. Images already inside the bounds are returned unscaled.
func FitWithin(img image.Image, max types.MaxSize, filter imaging.ResampleFilter) *image.NRGBA {
	return imaging.Fit(img, max.Width, max.Height, filter)
}

func clipRect(x0, y0, x1, y1, w, h int) image.Rectangle {
	x0 = clampInt(x0, 0, w)
	y0 = clampInt(y0, 0, h)
	x1 = clampInt(x1, 0, w)
	y1 = clampInt(y1, 0, h)
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	// image.Rect would swap inverted corners, build the struct directly
	return image.Rectangle{Min: image.Point{X: x0, Y: y0}, Max: image.Point{X: x1, Y: y1}}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
