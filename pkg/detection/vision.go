package detection

import (
	"context"
	"fmt"
	"strings"

	"github.com/menta2k/detect-cropper/pkg/client"
	"github.com/menta2k/detect-cropper/pkg/processing"
	"github.com/menta2k/detect-cropper/pkg/types"
)

// LocatePrompt asks a vision model for every instance of one class
const LocatePrompt = `You are an object locator.

Find every %q in the image and return JSON only:
{
  "objects": [
    {"label": %q, "confidence": 0.0, "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}}
  ]
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels). x,y is the top-left corner.
- One entry per visible instance; boxes must tightly enclose the object.
- If there is no %q in the image, return {"objects": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// VisionDetector uses a multimodal model as the detector
type VisionDetector struct {
	client   client.VisionClient
	model    string
	sendSize int
	sendQ    int
	proc     *processing.Processor
}

// NewVisionDetector creates a detector backed by a vision client
func NewVisionDetector(c client.VisionClient, model string, sendSize, sendQ int, proc *processing.Processor) *VisionDetector {
	if sendQ <= 0 {
		sendQ = 85
	}
	return &VisionDetector{client: c, model: model, sendSize: sendSize, sendQ: sendQ, proc: proc}
}

// Detect converts the model's normalized boxes to pixel detections
func (d *VisionDetector) Detect(ctx context.Context, in Input) ([]types.Detection, error) {
	imgB64, err := d.proc.PrepareImageForModel(in.Image, "jpg", d.sendSize, d.sendQ)
	if err != nil {
		return nil, fmt.Errorf("prepare image: %w", err)
	}

	prompt := fmt.Sprintf(LocatePrompt, in.ClassName, in.ClassName, in.ClassName)
	result, err := d.client.LocateObjects(ctx, d.model, prompt, imgB64)
	if err != nil {
		return nil, err
	}

	b := in.Image.Bounds()
	fw, fh := float64(b.Dx()), float64(b.Dy())
	dets := make([]types.Detection, 0, len(result.Objects))
	for _, o := range result.Objects {
		if o.Label != "" && !strings.EqualFold(strings.TrimSpace(o.Label), in.ClassName) {
			continue
		}
		conf := o.Confidence
		if conf <= 0 {
			// unscored answers count as certain
			conf = 1
		}
		x0 := clamp(o.Box.X, 0, 1)
		y0 := clamp(o.Box.Y, 0, 1)
		dets = append(dets, types.Detection{
			ClassID:    in.ClassID,
			Label:      in.ClassName,
			Confidence: conf,
			X1:         x0 * fw,
			Y1:         y0 * fh,
			X2:         clamp(o.Box.X+o.Box.W, 0, 1) * fw,
			Y2:         clamp(o.Box.Y+o.Box.H, 0, 1) * fh,
		})
	}
	return keep(dets, in), nil
}
