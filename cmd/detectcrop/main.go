package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	detectcrop "github.com/menta2k/detect-cropper"
	"github.com/menta2k/detect-cropper/internal/config"
	"github.com/menta2k/detect-cropper/internal/logger"
	"github.com/menta2k/detect-cropper/pkg/form"
)

// consoleNotifier prints dialogs to the terminal
type consoleNotifier struct{}

func (consoleNotifier) Info(title, message string) {
	fmt.Fprintf(os.Stdout, "%s: %s\n", title, message)
}

func (consoleNotifier) Warning(title, message string) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", title, message)
}

func (consoleNotifier) Error(title, message string) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", title, message)
}

func main() {
	os.Exit(run())
}

func run() int {
	var in form.Input
	var configPath, backend, url, model, logLevel, addr string
	var confidence float64
	var serve, listClasses, version, noPreviews, saveConfig bool

	flag.StringVar(&configPath, "config", config.GetConfigPath(), "YAML configuration file")
	flag.StringVar(&in.SourceDir, "source", "", "source image folder")
	flag.StringVar(&in.OutputDir, "output", "", "output folder")
	flag.StringVar(&in.ClassName, "class", "", "class name or id to crop (see -list-classes)")

	flag.BoolVar(&in.Resize, "resize", false, "resize cropped images")
	flag.StringVar(&in.MaxWidth, "max-width", "", "max width when -resize is set")
	flag.StringVar(&in.MaxHeight, "max-height", "", "max height when -resize is set")

	flag.BoolVar(&in.Padding, "padding", false, "add padding to crops")
	flag.StringVar(&in.PaddingTop, "pad-top", "0", "top padding (px)")
	flag.StringVar(&in.PaddingBottom, "pad-bottom", "0", "bottom padding (px)")
	flag.StringVar(&in.PaddingLeft, "pad-left", "0", "left padding (px)")
	flag.StringVar(&in.PaddingRight, "pad-right", "0", "right padding (px)")

	flag.StringVar(&backend, "backend", "", "detector backend: yolo|ollama|llamacpp (overrides config)")
	flag.StringVar(&url, "url", "", "detector server URL (overrides config)")
	flag.StringVar(&model, "model", "", "vision model name (overrides config)")
	flag.Float64Var(&confidence, "conf", 0, "confidence threshold (overrides config)")
	flag.BoolVar(&noPreviews, "no-previews", false, "do not write detection previews")

	flag.StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error")
	flag.BoolVar(&serve, "serve", false, "run the HTTP job API instead of a single job")
	flag.StringVar(&addr, "addr", "", "HTTP listen address for -serve (overrides config)")
	flag.BoolVar(&listClasses, "list-classes", false, "print the class names and exit")
	flag.BoolVar(&saveConfig, "save-config", false, "write the effective configuration to -config and exit")
	flag.BoolVar(&version, "version", false, "print version and exit")
	flag.Parse()

	if version {
		fmt.Println(detectcrop.Version)
		return 0
	}

	cfg, err := detectcrop.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	if backend != "" {
		cfg.Detector.Backend = strings.ToLower(backend)
	}
	if url != "" {
		cfg.Detector.URL = url
	}
	if model != "" {
		cfg.Detector.Model = model
	}
	if confidence > 0 {
		cfg.Detector.Confidence = confidence
	}
	if noPreviews {
		cfg.Output.Previews = false
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if addr != "" {
		cfg.Server.Address = addr
	}

	if saveConfig {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			return 2
		}
		if err := cfg.SaveToFile(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			return 1
		}
		fmt.Printf("Configuration written to %s\n", configPath)
		return 0
	}

	if err := logger.Init(logger.Options{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		File:        cfg.Log.File,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var notifier form.Notifier = consoleNotifier{}
	if serve {
		notifier = form.LogNotifier{}
	}
	app, err := detectcrop.NewWithContext(ctx, cfg, notifier, nil)
	if err != nil {
		logger.Log().Error("Failed to initialize", zap.Error(err))
		return 1
	}

	if listClasses {
		for i, name := range app.Labels.Names() {
			fmt.Printf("%3d  %s\n", i, name)
		}
		return 0
	}

	if err := app.CheckDetector(ctx); err != nil {
		logger.Log().Warn("Detector backend not reachable",
			zap.String("backend", cfg.Detector.Backend),
			zap.String("url", cfg.Detector.URL),
			zap.Error(err))
	}

	if serve {
		if err := app.Server().Run(ctx, cfg.Server.Address); err != nil {
			logger.Log().Error("HTTP server failed", zap.Error(err))
			return 1
		}
		app.Controller.Wait()
		return 0
	}

	job, err := app.Controller.Submit(in)
	if err != nil {
		if errors.Is(err, form.ErrValidation) {
			fmt.Fprintf(os.Stderr, "usage: %s -source DIR -output DIR -class NAME [-resize -max-width N -max-height N] [-padding -pad-top N ...]\n",
				filepath.Base(os.Args[0]))
			return 2
		}
		logger.Log().Error("Failed to start job", zap.Error(err))
		return 1
	}

	outcome, err := job.Wait(context.Background())
	if err != nil || outcome.Err != nil {
		return 1
	}
	logger.Log().Info("Summary",
		zap.String("job_id", job.ID),
		zap.Int("images", outcome.Summary.Images),
		zap.Int("skipped", outcome.Summary.Skipped),
		zap.Int("detections", outcome.Summary.Detections),
		zap.Int("crops", outcome.Summary.Crops),
		zap.Int("empty", outcome.Summary.Empty))
	return 0
}
