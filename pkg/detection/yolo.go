package detection

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/menta2k/detect-cropper/pkg/processing"
	"github.com/menta2k/detect-cropper/pkg/types"
)

// YOLODetector calls an HTTP inference service hosting a pretrained YOLO model.
//
// The service receives the image as multipart "file" plus the "classes",
// "conf" and "imgsz" form fields and answers {"detections":[...]} with
// xyxy boxes in pixels of the uploaded image.
type YOLODetector struct {
	client *resty.Client
	proc   *processing.Processor
}

type predictResponse struct {
	Detections []types.Detection `json:"detections"`
}

// NewYOLODetector creates a detector for the service at baseURL
func NewYOLODetector(baseURL string, timeout time.Duration, proc *processing.Processor) *YOLODetector {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &YOLODetector{
		client: resty.New().
			SetBaseURL(strings.TrimSuffix(baseURL, "/")).
			SetTimeout(timeout),
		proc: proc,
	}
}

// Detect uploads the decoded image so boxes refer to the pixels that get cropped
func (d *YOLODetector) Detect(ctx context.Context, in Input) ([]types.Detection, error) {
	data, err := d.proc.EncodeJPEG(in.Image)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	b := in.Image.Bounds()
	var out predictResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetFileReader("file", filepath.Base(in.Path), bytes.NewReader(data)).
		SetFormData(map[string]string{
			"classes": strconv.Itoa(in.ClassID),
			"conf":    strconv.FormatFloat(in.Confidence, 'f', -1, 64),
			"imgsz":   fmt.Sprintf("%d,%d", b.Dx(), b.Dy()),
		}).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/predict")
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("inference failed with status %d: %s", resp.StatusCode(), resp.String())
	}

	return keep(out.Detections, in), nil
}

// CheckHealth reports whether the inference service answers
func (d *YOLODetector) CheckHealth(ctx context.Context) error {
	resp, err := d.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode())
	}
	return nil
}
