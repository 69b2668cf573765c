// Package detectcrop crops every detection of one object class out of a folder
// of images.
//
// Detection is delegated to an external pretrained model. The package turns
// the boxes it returns into files:
//
//	output/crops/<class>/<image>_<index>.jpg
//
// optionally padded on each side and downscaled to fit a maximum size, plus a
// preview of each source image with its boxes drawn under output/detect/.
//
// Basic usage:
//
//	cfg := detectcrop.DefaultConfig()
//	app, err := detectcrop.New(cfg, form.LogNotifier{})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	job, err := app.Controller.Submit(form.Input{
//		SourceDir: "photos",
//		OutputDir: "out",
//		ClassName: "dog",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	outcome, _ := job.Wait(context.Background())
//	fmt.Printf("%d crops written\n", outcome.Summary.Crops)
//
// The package consists of these components:
//
//  1. Detection (pkg/detection): YOLO inference service or vision-model backends
//  2. Cropper (pkg/cropper): clip, pad and resize one box
//  3. Extractor (pkg/extractor): runs a whole folder through detector and cropper
//  4. Form (pkg/form): validates user input and runs one job at a time
package detectcrop

import (
	"context"
	"fmt"

	"github.com/menta2k/detect-cropper/internal/config"
	"github.com/menta2k/detect-cropper/internal/metrics"
	"github.com/menta2k/detect-cropper/internal/server"
	"github.com/menta2k/detect-cropper/pkg/detection"
	"github.com/menta2k/detect-cropper/pkg/extractor"
	"github.com/menta2k/detect-cropper/pkg/form"
	"github.com/menta2k/detect-cropper/pkg/labels"
	"github.com/menta2k/detect-cropper/pkg/processing"
)

// Version of the detect-cropper library
const Version = "1.0.0"

// Config is the application configuration
type Config = config.Config

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads path when it exists and applies environment overrides
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// App wires one configuration into a ready-to-use controller
type App struct {
	Config     *Config
	Labels     *labels.Labels
	Metrics    *metrics.Metrics
	Extractor  *extractor.Extractor
	Controller *form.Controller

	detector detection.Detector
}

type healthChecker interface {
	CheckHealth(ctx context.Context) error
}

// New builds the detector named in cfg and wires the rest around it
func New(cfg *Config, notifier form.Notifier) (*App, error) {
	return NewWithContext(context.Background(), cfg, notifier, nil)
}

// NewWithContext is New with a context that bounds running jobs. A non-nil
// det replaces the configured backend.
func NewWithContext(ctx context.Context, cfg *Config, notifier form.Notifier, det detection.Detector) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	names := labels.Default()
	if cfg.Labels.File != "" {
		var err error
		if names, err = labels.LoadFile(cfg.Labels.File); err != nil {
			return nil, err
		}
	}

	proc := processing.NewProcessor(cfg.Output.Quality)
	if det == nil {
		var err error
		if det, err = detection.New(cfg.DetectionConfig(), proc); err != nil {
			return nil, err
		}
	}

	m := metrics.New()
	opts := extractor.DefaultOptions()
	opts.CropsDir = cfg.Output.CropsDir
	opts.PreviewsDir = cfg.Output.PreviewsDir
	opts.Previews = cfg.Output.Previews
	ext := extractor.New(det, proc, opts).WithMetrics(m)

	ctrl := form.NewController(ext, notifier, names,
		form.WithConfidence(cfg.Detector.Confidence),
		form.WithMetrics(m),
		form.WithContext(ctx))

	return &App{
		Config:     cfg,
		Labels:     names,
		Metrics:    m,
		Extractor:  ext,
		Controller: ctrl,
		detector:   det,
	}, nil
}

// CheckDetector asks the detector backend whether it is reachable. Backends
// without a health endpoint always pass.
func (a *App) CheckDetector(ctx context.Context) error {
	hc, ok := a.detector.(healthChecker)
	if !ok {
		return nil
	}
	return hc.CheckHealth(ctx)
}

// Server returns the HTTP job surface for the app
func (a *App) Server() *server.Server {
	var m *metrics.Metrics
	if a.Config.Server.Metrics {
		m = a.Metrics
	}
	return server.New(a.Controller, m)
}
