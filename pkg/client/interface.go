package client

import (
	"context"

	"github.com/menta2k/detect-cropper/pkg/types"
)

// VisionClient asks a multimodal model where objects are in an image
type VisionClient interface {
	LocateObjects(ctx context.Context, model, prompt, imgB64 string) (*types.LocateResult, error)
}
