package nvcf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dino-video-labeler/internal/domain"
	"dino-video-labeler/internal/domain/model"
	"dino-video-labeler/internal/infra/metrics"

	"github.com/google/uuid"
)

type allocateRequest struct {
	ContentType string `json:"contentType"`
	Description string `json:"description"`
}

type allocateResponse struct {
	UploadURL string `json:"uploadUrl"`
	AssetID   string `json:"assetId"`
}

// UploadAsset requests a pre-signed upload slot and PUTs video into it.
// The returned asset id is in canonical UUID form.
func (c *Client) UploadAsset(ctx context.Context, video []byte, description string) (model.Asset, error) {
	if len(video) == 0 {
		return model.Asset{}, fmt.Errorf("%w: video is empty", domain.ErrInvalidArgument)
	}
	if description == "" {
		description = c.opts.Description
	}

	asset, err := c.allocateAsset(ctx, description)
	if err != nil {
		return model.Asset{}, err
	}
	if err := c.putAsset(ctx, asset, video); err != nil {
		return model.Asset{}, err
	}
	c.log.Debug().Str("asset_id", asset.ID).Int("bytes", len(video)).Msg("asset uploaded")
	return asset, nil
}

func (c *Client) allocateAsset(ctx context.Context, description string) (model.Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.AllocateTimeout)
	defer cancel()

	b, err := json.Marshal(allocateRequest{ContentType: c.opts.ContentType, Description: description})
	if err != nil {
		return model.Asset{}, &domain.AssetAllocationError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.AssetsURL, bytes.NewReader(b))
	if err != nil {
		return model.Asset{}, &domain.AssetAllocationError{Err: err}
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveCall(metrics.StageAllocate, 0, time.Since(start), false)
		return model.Asset{}, &domain.AssetAllocationError{Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	ok := err == nil && isSuccess(resp.StatusCode)
	metrics.ObserveCall(metrics.StageAllocate, resp.StatusCode, time.Since(start), ok)
	if err != nil {
		return model.Asset{}, &domain.AssetAllocationError{StatusCode: resp.StatusCode, Err: err}
	}
	if !isSuccess(resp.StatusCode) {
		return model.Asset{}, &domain.AssetAllocationError{StatusCode: resp.StatusCode, Err: errors.New(truncate(body))}
	}

	var payload allocateResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return model.Asset{}, &domain.AssetAllocationError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if strings.TrimSpace(payload.UploadURL) == "" {
		return model.Asset{}, &domain.AssetAllocationError{StatusCode: resp.StatusCode, Err: errors.New("response has no uploadUrl")}
	}
	id, err := canonicalAssetID(payload.AssetID)
	if err != nil {
		return model.Asset{}, &domain.AssetAllocationError{StatusCode: resp.StatusCode, Err: err}
	}
	return model.Asset{
		ID:          id,
		UploadURL:   payload.UploadURL,
		ContentType: c.opts.ContentType,
		Description: description,
	}, nil
}

// putAsset sends the raw bytes to the pre-signed URL. The URL carries its own
// signature, so no bearer token is attached.
func (c *Client) putAsset(ctx context.Context, asset model.Asset, video []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.UploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, asset.UploadURL, bytes.NewReader(video))
	if err != nil {
		return &domain.AssetUploadError{Err: err}
	}
	req.Header.Set("content-type", asset.ContentType)
	req.Header.Set(headerAssetDescription, asset.Description)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveCall(metrics.StageUpload, 0, time.Since(start), false)
		return &domain.AssetUploadError{Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	metrics.ObserveCall(metrics.StageUpload, resp.StatusCode, time.Since(start), isSuccess(resp.StatusCode))
	if !isSuccess(resp.StatusCode) {
		return &domain.AssetUploadError{StatusCode: resp.StatusCode, Err: errors.New(truncate(body))}
	}
	return nil
}

func canonicalAssetID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid asset id %q: %w", raw, err)
	}
	return id.String(), nil
}
