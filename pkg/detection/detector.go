// Package detection wraps the external pretrained object detectors.
//
// Detection itself never happens in this module. A Detector hands the image to
// an out-of-process model (a YOLO inference service or a multimodal vision
// model) and returns the boxes it reported, in source-image pixels.
package detection

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/menta2k/detect-cropper/pkg/llamacpp"
	"github.com/menta2k/detect-cropper/pkg/ollama"
	"github.com/menta2k/detect-cropper/pkg/processing"
	"github.com/menta2k/detect-cropper/pkg/types"
)

// DefaultConfidence is the score threshold used when none is configured
const DefaultConfidence = 0.25

// ErrUnknownBackend is returned by New for an unsupported backend name
var ErrUnknownBackend = errors.New("unknown detector backend")

const (
	BackendYOLO     = "yolo"
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
)

// Input is one detection request
type Input struct {
	Path       string
	Image      image.Image
	ClassID    int
	ClassName  string
	Confidence float64
}

// Detector returns the boxes of one class found in an image
type Detector interface {
	Detect(ctx context.Context, in Input) ([]types.Detection, error)
}

// Config selects and parameterizes a backend
type Config struct {
	Backend  string
	URL      string
	Model    string
	Timeout  time.Duration
	SendSize int
	SendQ    int
}

// New builds the detector named by cfg.Backend
func New(cfg Config, proc *processing.Processor) (Detector, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendYOLO, "":
		url := cfg.URL
		if url == "" {
			url = "http://localhost:5000"
		}
		return NewYOLODetector(url, cfg.Timeout, proc), nil
	case BackendOllama:
		url := cfg.URL
		if url == "" {
			url = "http://localhost:11434"
		}
		c, err := ollama.NewClient(url, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		return NewVisionDetector(c, cfg.Model, cfg.SendSize, cfg.SendQ, proc), nil
	case BackendLlamaCpp:
		c, err := llamacpp.NewClient(cfg.URL, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create llama.cpp client: %w", err)
		}
		return NewVisionDetector(c, cfg.Model, cfg.SendSize, cfg.SendQ, proc), nil
	default:
		return nil, fmt.Errorf("%w: %s (use yolo, ollama or llamacpp)", ErrUnknownBackend, cfg.Backend)
	}
}

// keep drops detections of other classes or below the threshold
func keep(dets []types.Detection, in Input) []types.Detection {
	out := make([]types.Detection, 0, len(dets))
	for _, d := range dets {
		if d.ClassID != in.ClassID || d.Confidence < in.Confidence {
			continue
		}
		if d.Label == "" {
			d.Label = in.ClassName
		}
		out = append(out, d)
	}
	return out
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
