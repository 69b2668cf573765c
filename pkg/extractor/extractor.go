// Package extractor runs one crop job: every image of the source folder goes
// through the detector and each returned box is written out as a JPEG crop.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/menta2k/detect-cropper/internal/logger"
	"github.com/menta2k/detect-cropper/internal/metrics"
	"github.com/menta2k/detect-cropper/internal/utils"
	"github.com/menta2k/detect-cropper/pkg/cropper"
	"github.com/menta2k/detect-cropper/pkg/detection"
	"github.com/menta2k/detect-cropper/pkg/processing"
	"github.com/menta2k/detect-cropper/pkg/types"
)

// Options tunes where output goes
type Options struct {
	CropsDir    string
	PreviewsDir string
	Previews    bool
	Filter      imaging.ResampleFilter

	// OnCrop, when set, is called after each crop is written
	OnCrop func(types.CropResult)
}

// DefaultOptions writes crops under crops/ and previews under detect/
func DefaultOptions() Options {
	return Options{
		CropsDir:    "crops",
		PreviewsDir: "detect",
		Previews:    true,
		Filter:      imaging.Lanczos,
	}
}

// Extractor turns detector boxes into crop files
type Extractor struct {
	detector detection.Detector
	proc     *processing.Processor
	opts     Options
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// New creates an Extractor. A nil proc writes JPEGs at the default quality.
func New(det detection.Detector, proc *processing.Processor, opts Options) *Extractor {
	if proc == nil {
		proc = processing.NewProcessor(95)
	}
	if opts.CropsDir == "" {
		opts.CropsDir = "crops"
	}
	if opts.PreviewsDir == "" {
		opts.PreviewsDir = "detect"
	}
	return &Extractor{detector: det, proc: proc, opts: opts}
}

// WithMetrics attaches a metrics sink
func (e *Extractor) WithMetrics(m *metrics.Metrics) *Extractor {
	e.metrics = m
	return e
}

// WithLogger overrides the global logger
func (e *Extractor) WithLogger(l *zap.Logger) *Extractor {
	e.log = l
	return e
}

func (e *Extractor) logger() *zap.Logger {
	if e.log != nil {
		return e.log
	}
	return logger.Log()
}

// ClassDir is the directory crops of req end up in
func (e *Extractor) ClassDir(req types.CropRequest) string {
	return filepath.Join(req.OutputDir, e.opts.CropsDir, utils.SanitizeFilename(req.ClassName))
}

// Run processes every image in req.SourceDir.
//
// An image that cannot be decoded is skipped. A box that clips to nothing is
// skipped and counted in Empty. Any other failure stops the job and is
// returned together with the counts gathered so far; files already written
// stay on disk.
func (e *Extractor) Run(ctx context.Context, req types.CropRequest) (types.JobSummary, error) {
	summary := types.JobSummary{Output: req.OutputDir}
	log := e.logger().With(zap.String("class", req.ClassName), zap.String("source", req.SourceDir))

	if !utils.DirExists(req.SourceDir) {
		return summary, fmt.Errorf("source folder %s does not exist", req.SourceDir)
	}
	files, err := utils.ListImageFiles(req.SourceDir)
	if err != nil {
		return summary, err
	}
	log.Info("Starting crop job",
		zap.Int("files", len(files)),
		zap.String("output", req.OutputDir),
		zap.Int("jpeg_quality", e.proc.Quality()))

	crop := cropper.NewWithConfig(cropper.CropConfig{
		Padding: req.Padding,
		Resize:  req.Resize,
		Filter:  e.opts.Filter,
	})
	classDir := e.ClassDir(req)

	confidence := req.Confidence
	if confidence <= 0 {
		confidence = detection.DefaultConfidence
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		img, err := e.proc.LoadImage(path)
		if err != nil {
			log.Warn("Error reading image, skipping", zap.String("file", path), zap.Error(err))
			summary.Skipped++
			if e.metrics != nil {
				e.metrics.ImagesSkipped.Inc()
			}
			continue
		}
		summary.Images++
		if e.metrics != nil {
			e.metrics.ImagesProcessed.Inc()
		}

		dets, err := e.detector.Detect(ctx, detection.Input{
			Path:       path,
			Image:      img,
			ClassID:    req.ClassID,
			ClassName:  req.ClassName,
			Confidence: confidence,
		})
		if err != nil {
			return summary, fmt.Errorf("detection failed for %s: %w", filepath.Base(path), err)
		}
		summary.Detections += len(dets)

		if e.opts.Previews {
			preview := filepath.Join(req.OutputDir, e.opts.PreviewsDir, utils.BaseName(path)+".jpg")
			if err := e.proc.SaveJPEG(e.proc.DrawDetections(img, dets), preview); err != nil {
				return summary, err
			}
		}

		for idx, det := range dets {
			res, err := crop.Crop(img, det)
			if errors.Is(err, cropper.ErrEmptyCrop) {
				log.Warn("Detection has no area after clipping, skipping",
					zap.String("file", path), zap.Int("index", idx))
				summary.Empty++
				if e.metrics != nil {
					e.metrics.CropsEmpty.Inc()
				}
				continue
			}
			if err != nil {
				return summary, err
			}

			out := filepath.Join(classDir, utils.CropFilename(path, idx))
			if err := e.proc.SaveJPEG(res.Image, out); err != nil {
				return summary, err
			}
			summary.Crops++
			if e.metrics != nil {
				e.metrics.CropsWritten.Inc()
			}
			log.Debug("Crop written", zap.String("path", out), zap.Stringer("rect", res.Rect))

			if e.opts.OnCrop != nil {
				e.opts.OnCrop(types.CropResult{
					SourceImage: path,
					Path:        out,
					Index:       idx,
					Rect:        res.Rect,
				})
			}
		}
	}

	log.Info("Crop job finished",
		zap.Int("images", summary.Images),
		zap.Int("skipped", summary.Skipped),
		zap.Int("crops", summary.Crops),
		zap.Int("empty", summary.Empty))
	return summary, nil
}
