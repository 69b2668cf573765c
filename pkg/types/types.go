package types

import "image"

// Detection is one bounding box returned by the detector, in source-image pixels
type Detection struct {
	ClassID    int     `json:"class_id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
}

// Padding is a fixed pixel margin added to each side of a clipped box
type Padding struct {
	Left   int `json:"left" validate:"gte=0"`
	Top    int `json:"top" validate:"gte=0"`
	Right  int `json:"right" validate:"gte=0"`
	Bottom int `json:"bottom" validate:"gte=0"`
}

// MaxSize bounds the dimensions of a resized crop
type MaxSize struct {
	Width  int `json:"width" validate:"gt=0"`
	Height int `json:"height" validate:"gt=0"`
}

// CropRequest is the immutable configuration of one extraction job.
// A nil Resize or Padding means the option is disabled.
type CropRequest struct {
	SourceDir  string   `json:"source_dir"`
	OutputDir  string   `json:"output_dir"`
	ClassID    int      `json:"class_id"`
	ClassName  string   `json:"class_name"`
	Resize     *MaxSize `json:"resize,omitempty"`
	Padding    *Padding `json:"padding,omitempty"`
	Confidence float64  `json:"confidence"`
}

// CropResult describes one crop written to disk
type CropResult struct {
	SourceImage string          `json:"source_image"`
	Path        string          `json:"path"`
	Index       int             `json:"index"`
	Rect        image.Rectangle `json:"rect"`
}

// JobSummary counts what a job did
type JobSummary struct {
	Images     int    `json:"images"`
	Skipped    int    `json:"skipped"`
	Detections int    `json:"detections"`
	Crops      int    `json:"crops"`
	Empty      int    `json:"empty"`
	Output     string `json:"output"`
}

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// LocatedObject is one object a vision model reported
type LocatedObject struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// LocateResult contains the parsed answer of a vision model
type LocateResult struct {
	Objects []LocatedObject `json:"objects"`
}
