package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	detectcrop "github.com/menta2k/detect-cropper"
	"github.com/menta2k/detect-cropper/internal/config"
	"github.com/menta2k/detect-cropper/internal/logger"
	"github.com/menta2k/detect-cropper/pkg/form"
)

// windowNotifier shows controller dialogs on the main window. Calls may come
// from the job goroutine, so every UI change goes through fyne.Do.
type windowNotifier struct {
	win      fyne.Window
	finished func()
}

func (n *windowNotifier) Info(title, message string) {
	fyne.Do(func() {
		dialog.ShowInformation(title, message, n.win)
		n.finished()
	})
}

func (n *windowNotifier) Warning(title, message string) {
	fyne.Do(func() {
		dialog.ShowInformation(title, message, n.win)
	})
}

func (n *windowNotifier) Error(title, message string) {
	fyne.Do(func() {
		dialog.ShowError(errors.New(message), n.win)
		n.finished()
	})
}

func main() {
	configPath := flag.String("config", config.GetConfigPath(), "YAML configuration file")
	flag.Parse()

	cfg, err := detectcrop.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(logger.Options{Level: cfg.Log.Level, Development: cfg.Log.Development, File: cfg.Log.File}); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	a := app.New()
	w := a.NewWindow("Image Cropper")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := widget.NewButton("Start Cropping", nil)
	notifier := &windowNotifier{win: w, finished: start.Enable}
	cropApp, err := detectcrop.NewWithContext(ctx, cfg, notifier, nil)
	if err != nil {
		logger.Log().Fatal("Failed to initialize", zap.Error(err))
	}
	go func() {
		if err := cropApp.CheckDetector(ctx); err != nil {
			logger.Log().Warn("Detector backend not reachable",
				zap.String("backend", cfg.Detector.Backend),
				zap.Error(err))
		}
	}()

	source := widget.NewEntry()
	output := widget.NewEntry()
	browse := func(target *widget.Entry) *widget.Button {
		return widget.NewButton("Browse...", func() {
			dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
				if err != nil || uri == nil {
					return
				}
				target.SetText(uri.Path())
			}, w)
		})
	}

	names := cropApp.Labels.Names()
	class := widget.NewSelect(names, nil)
	if len(names) > 0 {
		class.SetSelected(names[0])
	}

	maxWidth := widget.NewEntry()
	maxHeight := widget.NewEntry()
	resizeFields := container.New(layout.NewFormLayout(),
		widget.NewLabel("Max Width:"), maxWidth,
		widget.NewLabel("Max Height:"), maxHeight,
	)
	resizeFields.Hide()
	resize := widget.NewCheck("Resize Cropped Images", func(on bool) {
		if on {
			resizeFields.Show()
		} else {
			resizeFields.Hide()
		}
	})

	padTop := widget.NewEntry()
	padBottom := widget.NewEntry()
	padLeft := widget.NewEntry()
	padRight := widget.NewEntry()
	paddingFields := container.New(layout.NewFormLayout(),
		widget.NewLabel("Top Padding:"), padTop,
		widget.NewLabel("Bottom Padding:"), padBottom,
		widget.NewLabel("Left Padding:"), padLeft,
		widget.NewLabel("Right Padding:"), padRight,
	)
	paddingFields.Hide()
	padding := widget.NewCheck("Add Padding to Crops", func(on bool) {
		if on {
			paddingFields.Show()
		} else {
			paddingFields.Hide()
		}
	})

	start.OnTapped = func() {
		job, err := cropApp.Controller.Submit(form.Input{
			SourceDir:     source.Text,
			OutputDir:     output.Text,
			ClassName:     class.Selected,
			Resize:        resize.Checked,
			MaxWidth:      maxWidth.Text,
			MaxHeight:     maxHeight.Text,
			Padding:       padding.Checked,
			PaddingTop:    padTop.Text,
			PaddingBottom: padBottom.Text,
			PaddingLeft:   padLeft.Text,
			PaddingRight:  padRight.Text,
		})
		if err != nil {
			if errors.Is(err, form.ErrBusy) {
				dialog.ShowInformation(form.TitleInputError, "A job is already running.", w)
			}
			return
		}
		logger.S().Infow("Started from GUI", "job_id", job.ID, "class", job.Request.ClassName)
		start.Disable()
	}

	paths := container.New(layout.NewFormLayout(),
		widget.NewLabel("Source Image Folder:"), container.NewBorder(nil, nil, nil, browse(source), source),
		widget.NewLabel("Output Folder:"), container.NewBorder(nil, nil, nil, browse(output), output),
		widget.NewLabel("Class Identifier:"), class,
	)

	w.SetContent(container.NewVBox(
		paths,
		resize,
		resizeFields,
		padding,
		paddingFields,
		container.NewCenter(start),
	))
	w.Resize(fyne.NewSize(640, 0))
	w.SetOnClosed(func() {
		cancel()
		cropApp.Controller.Wait()
	})
	w.ShowAndRun()
}
