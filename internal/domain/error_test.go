package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestTypedErrors_UnwrapToSentinels(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"allocation", &AssetAllocationError{StatusCode: 500, Err: errors.New("boom")}, ErrAssetAllocation},
		{"upload", &AssetUploadError{Err: io.ErrUnexpectedEOF}, ErrAssetUpload},
		{"inference", &InferenceRequestError{StatusCode: 422, Body: "bad"}, ErrInferenceRequest},
		{"timeout", &PollingTimeoutError{RequestID: "r", Attempts: 10}, ErrPollingTimeout},
		{"poll failed", &PollingFailedError{RequestID: "r", StatusCode: 500, Attempt: 2}, ErrPollingFailed},
		{"no video", &NoVideoInArchiveError{Entries: []string{"a.json"}}, ErrNoVideoInArchive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("pipeline: %w", tc.err)
			if !errors.Is(wrapped, tc.sentinel) {
				t.Fatalf("errors.Is(%v, %v) = false", wrapped, tc.sentinel)
			}
		})
	}
}

func TestAssetUploadError_KeepsCause(t *testing.T) {
	err := fmt.Errorf("x: %w", &AssetUploadError{Err: context.DeadlineExceeded})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("cause should remain reachable")
	}
	var ue *AssetUploadError
	if !errors.As(err, &ue) {
		t.Fatalf("errors.As should find AssetUploadError")
	}
}

func TestInferenceRequestError_CarriesStatusAndBody(t *testing.T) {
	err := &InferenceRequestError{StatusCode: 401, Body: "unauthorized"}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "unauthorized") {
		t.Fatalf("message should include status and body: %q", err.Error())
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Outcome
	}{
		{nil, OutcomeSucceeded},
		{fmt.Errorf("%w: empty", ErrInvalidArgument), OutcomeInvalidInput},
		{ErrRateLimited, OutcomeRateLimited},
		{&PollingTimeoutError{}, OutcomeTimedOut},
		{&AssetUploadError{Err: context.DeadlineExceeded}, OutcomeTimedOut},
		{&NoVideoInArchiveError{}, OutcomeNoVideo},
		{&AssetAllocationError{StatusCode: 403, Err: errors.New("denied")}, OutcomeRequestFailed},
		{&InferenceRequestError{StatusCode: 500}, OutcomeRequestFailed},
		{&PollingFailedError{StatusCode: 500}, OutcomeRequestFailed},
		{errors.New("disk full"), OutcomeInternal},
		{&PollingFailedError{RequestID: "r", Attempt: 1, Err: context.Canceled}, OutcomeInternal},
		{&AssetUploadError{Err: context.Canceled}, OutcomeInternal},
		{&InferenceRequestError{Err: fmt.Errorf("post: %w", context.Canceled)}, OutcomeInternal},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestOutcome_MessagesDistinct(t *testing.T) {
	seen := map[string]Outcome{}
	for _, o := range []Outcome{OutcomeRequestFailed, OutcomeTimedOut, OutcomeNoVideo} {
		msg := o.Message()
		if prev, ok := seen[msg]; ok {
			t.Fatalf("%s and %s share message %q", prev, o, msg)
		}
		seen[msg] = o
	}
}
