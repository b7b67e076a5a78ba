package nvcf

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"dino-video-labeler/internal/domain"
	"dino-video-labeler/internal/domain/model"
)

type spyPoller struct {
	calls int
	res   model.PollResult
	err   error
}

func (s *spyPoller) Poll(ctx context.Context, h model.PollHandle) (model.PollResult, error) {
	s.calls++
	return s.res, s.err
}

func testRequest() model.InferenceRequest {
	return model.InferenceRequest{
		Model:     "Grounding-Dino",
		Prompt:    "person . dog",
		Asset:     model.Asset{ID: "3fa85f64-5717-4562-b3fc-2c963f66afa6", ContentType: "video/mp4"},
		Threshold: 0.3,
	}
}

func TestSubmit_RequestShape(t *testing.T) {
	f := newFakeNVCF(t)
	c := f.client()

	sub, err := c.Submit(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Pending() || string(sub.Archive) != "PK-sync-archive" {
		t.Fatalf("unexpected submission %+v", sub)
	}

	b := f.submitted
	if b.Model != "Grounding-Dino" || b.Threshold != 0.3 {
		t.Fatalf("unexpected model/threshold: %+v", b)
	}
	if len(b.Messages) != 1 || b.Messages[0].Role != "user" {
		t.Fatalf("unexpected messages: %+v", b.Messages)
	}
	parts := b.Messages[0].Content
	if len(parts) != 2 {
		t.Fatalf("unexpected content length: %d", len(parts))
	}
	if parts[0].Type != "text" || parts[0].Text != "person . dog" {
		t.Fatalf("text part mismatch: %+v", parts[0])
	}
	if parts[1].Type != "media_url" || parts[1].MediaURL == nil ||
		parts[1].MediaURL.URL != "data:video/mp4;asset_id,3fa85f64-5717-4562-b3fc-2c963f66afa6" {
		t.Fatalf("media part mismatch: %+v", parts[1])
	}

	h := f.submitHeader
	if h.Get(headerInputAssetRefs) != testRequest().Asset.ID || h.Get(headerFunctionAssetIDs) != testRequest().Asset.ID {
		t.Fatalf("asset reference headers missing: %v", h)
	}
	if h.Get("Authorization") != "Bearer "+testKey {
		t.Fatalf("auth header %q", h.Get("Authorization"))
	}
}

func TestSubmit_RejectsUnuploadedAsset(t *testing.T) {
	f := newFakeNVCF(t)
	req := testRequest()
	req.Asset = model.Asset{}

	_, err := f.client().Submit(context.Background(), req)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSubmit_Accepted(t *testing.T) {
	f := newFakeNVCF(t)
	f.submitStatus = http.StatusAccepted

	sub, err := f.client().Submit(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !sub.Pending() || sub.Handle.RequestID != "req-123" {
		t.Fatalf("expected handle for req-123, got %+v", sub)
	}
	if sub.Handle.URL != f.srv.URL+"/status/req-123" {
		t.Fatalf("unexpected poll url %q", sub.Handle.URL)
	}
}

func TestSubmit_AcceptedWithoutRequestID(t *testing.T) {
	f := newFakeNVCF(t)
	f.submitStatus = http.StatusAccepted
	f.submitReqID = ""

	_, err := f.client().Submit(context.Background(), testRequest())
	if !errors.Is(err, errMissingRequestID) || !errors.Is(err, domain.ErrInferenceRequest) {
		t.Fatalf("expected missing request id error, got %v", err)
	}
}

func TestSubmit_FailureCarriesStatusAndBody(t *testing.T) {
	f := newFakeNVCF(t)
	f.submitStatus = http.StatusUnprocessableEntity

	_, err := f.client().Submit(context.Background(), testRequest())
	var ie *domain.InferenceRequestError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InferenceRequestError, got %v", err)
	}
	if ie.StatusCode != http.StatusUnprocessableEntity || !strings.Contains(ie.Body, "bad prompt") {
		t.Fatalf("unexpected error contents: %+v", ie)
	}
}

func TestDetect_SyncResultSkipsPolling(t *testing.T) {
	f := newFakeNVCF(t)
	spy := &spyPoller{}
	c := f.client()
	c.poller = spy

	res, err := c.Detect(context.Background(), "cars", []byte("video"))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if spy.calls != 0 || f.hits() != 0 {
		t.Fatalf("polling must not run on 200 (spy=%d hits=%d)", spy.calls, f.hits())
	}
	if res.Polled || string(res.Data) != "PK-sync-archive" || res.AssetID != f.assetID {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDetect_PendingPollsUntilReady(t *testing.T) {
	f := newFakeNVCF(t)
	f.submitStatus = http.StatusAccepted
	f.pollStatuses = []int{http.StatusAccepted, http.StatusAccepted, http.StatusOK}
	f.pollBodies[3] = []byte("PK-async-archive")

	res, err := f.client().Detect(context.Background(), "cars", []byte("video"))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !res.Polled || res.Attempts != 3 || res.RequestID != "req-123" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !bytes.Equal(res.Data, []byte("PK-async-archive")) {
		t.Fatalf("unexpected archive %q", res.Data)
	}
}

func TestDetect_EmptyPromptUploadsNothing(t *testing.T) {
	f := newFakeNVCF(t)
	_, err := f.client().Detect(context.Background(), "  ", []byte("video"))
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if f.allocBody != nil {
		t.Fatalf("no asset should be allocated for an empty prompt")
	}
}

func TestDetect_UploadFailureAbortsBeforeSubmit(t *testing.T) {
	f := newFakeNVCF(t)
	f.uploadStatus = http.StatusBadGateway

	_, err := f.client().Detect(context.Background(), "cars", []byte("video"))
	if !errors.Is(err, domain.ErrAssetUpload) {
		t.Fatalf("expected ErrAssetUpload, got %v", err)
	}
	if f.submitHeader != nil {
		t.Fatalf("submission must not be sent after a failed upload")
	}
}

func TestDetect_PollErrorPropagates(t *testing.T) {
	f := newFakeNVCF(t)
	f.submitStatus = http.StatusAccepted
	spy := &spyPoller{
		res: model.PollResult{State: model.PollTimedOut, Attempts: 10},
		err: &domain.PollingTimeoutError{RequestID: "req-123", Attempts: 10},
	}

	c := f.client()
	c.poller = spy
	_, err := c.Detect(context.Background(), "cars", []byte("video"))
	if !errors.Is(err, domain.ErrPollingTimeout) || spy.calls != 1 {
		t.Fatalf("expected timeout via poller, got %v (calls=%d)", err, spy.calls)
	}
}
