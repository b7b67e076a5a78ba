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
	"dino-video-labeler/internal/infra/logging"
	"dino-video-labeler/internal/infra/metrics"
)

type mediaURL struct {
	URL string `json:"url"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	MediaURL *mediaURL `json:"media_url,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type inferenceBody struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	Threshold float64       `json:"threshold"`
}

var errMissingRequestID = errors.New("202 response without " + headerRequestID + " header")

func newInferenceBody(req model.InferenceRequest) inferenceBody {
	return inferenceBody{
		Model: req.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: req.Prompt},
				{Type: "media_url", MediaURL: &mediaURL{URL: req.MediaURL()}},
			},
		}},
		Threshold: req.Threshold,
	}
}

// Submit sends one detection request. A 200 carries the archive, a 202 yields
// a poll handle; anything else is an InferenceRequestError.
func (c *Client) Submit(ctx context.Context, req model.InferenceRequest) (model.Submission, error) {
	if err := req.Validate(); err != nil {
		return model.Submission{}, err
	}
	b, err := json.Marshal(newInferenceBody(req))
	if err != nil {
		return model.Submission{}, &domain.InferenceRequestError{Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.InferenceURL, bytes.NewReader(b))
	if err != nil {
		return model.Submission{}, &domain.InferenceRequestError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(headerInputAssetRefs, req.Asset.ID)
	httpReq.Header.Set(headerFunctionAssetIDs, req.Asset.ID)
	c.authorize(httpReq)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.ObserveCall(metrics.StageSubmit, 0, time.Since(start), false)
		return model.Submission{}, &domain.InferenceRequestError{Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	accepted := resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted
	metrics.ObserveCall(metrics.StageSubmit, resp.StatusCode, time.Since(start), err == nil && accepted)
	if err != nil {
		return model.Submission{}, &domain.InferenceRequestError{StatusCode: resp.StatusCode, Err: err}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return model.Submission{Archive: body}, nil
	case http.StatusAccepted:
		reqID := strings.TrimSpace(resp.Header.Get(headerRequestID))
		if reqID == "" {
			return model.Submission{}, &domain.InferenceRequestError{StatusCode: resp.StatusCode, Body: truncate(body), Err: errMissingRequestID}
		}
		return model.Submission{Handle: &model.PollHandle{RequestID: reqID, URL: c.pollURL(reqID)}}, nil
	default:
		return model.Submission{}, &domain.InferenceRequestError{StatusCode: resp.StatusCode, Body: truncate(body)}
	}
}

// Detect runs upload, submission and, for a 202, polling. A 200 never
// touches the poller.
func (c *Client) Detect(ctx context.Context, prompt string, video []byte) (*model.ResultArchive, error) {
	l := logging.With(ctx, c.log)
	defer logging.TraceDuration(l, "NVCF.Detect")()

	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is empty", domain.ErrInvalidArgument)
	}

	asset, err := c.UploadAsset(ctx, video, c.opts.Description)
	if err != nil {
		return nil, err
	}
	l = logging.With(logging.WithAssetID(ctx, asset.ID), c.log)

	req, err := model.NewInferenceRequest(c.opts.Model, prompt, asset, c.opts.Threshold)
	if err != nil {
		return nil, err
	}
	l.Info().Str("model", req.Model).Float64("threshold", req.Threshold).Msg("sending request to grounding dino endpoint")
	sub, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	if !sub.Pending() {
		l.Info().Int("bytes", len(sub.Archive)).Msg("inference completed synchronously")
		return &model.ResultArchive{Data: sub.Archive, AssetID: asset.ID}, nil
	}

	l.Info().Str("request_id", sub.Handle.RequestID).Msg("pending evaluation, polling for results")
	res, err := c.poller.Poll(ctx, *sub.Handle)
	if err != nil {
		return nil, err
	}
	return &model.ResultArchive{
		Data:      res.Archive,
		AssetID:   asset.ID,
		RequestID: sub.Handle.RequestID,
		Polled:    true,
		Attempts:  res.Attempts,
	}, nil
}
