package model

import (
	"fmt"
	"strings"

	"dino-video-labeler/internal/domain"
)

// InferenceRequest is built once per user action and never mutated after send.
type InferenceRequest struct {
	Model     string
	Prompt    string
	Asset     Asset
	Threshold float64
}

func NewInferenceRequest(modelName, prompt string, asset Asset, threshold float64) (InferenceRequest, error) {
	r := InferenceRequest{
		Model:     modelName,
		Prompt:    strings.TrimSpace(prompt),
		Asset:     asset,
		Threshold: threshold,
	}
	if err := r.Validate(); err != nil {
		return InferenceRequest{}, err
	}
	return r, nil
}

// Validate enforces that the asset was uploaded before it is referenced.
func (r InferenceRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("%w: prompt is empty", domain.ErrInvalidArgument)
	}
	if !r.Asset.Uploaded() {
		return fmt.Errorf("%w: asset not uploaded", domain.ErrInvalidArgument)
	}
	if r.Threshold < 0 || r.Threshold > 1 {
		return fmt.Errorf("%w: threshold %v outside [0,1]", domain.ErrInvalidArgument, r.Threshold)
	}
	return nil
}

// MediaURL is the synthetic data URL NVCF resolves to an uploaded asset,
// e.g. "data:video/mp4;asset_id,<uuid>".
func (r InferenceRequest) MediaURL() string {
	ct := r.Asset.ContentType
	if ct == "" {
		ct = "video/mp4"
	}
	return "data:" + ct + ";asset_id," + r.Asset.ID
}
