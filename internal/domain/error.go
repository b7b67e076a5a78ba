package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAssetAllocation  = errors.New("asset allocation failed")
	ErrAssetUpload      = errors.New("asset upload failed")
	ErrInferenceRequest = errors.New("inference request failed")
	ErrPollingTimeout   = errors.New("timed out waiting for inference result")
	ErrPollingFailed    = errors.New("polling for inference result failed")
	ErrNoVideoInArchive = errors.New("no video found in result archive")

	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("entity not found")
	ErrRateLimited     = errors.New("rate limit exceeded")
)

// AssetAllocationError means the vendor refused or could not issue an upload slot.
// StatusCode is zero when no response was received.
type AssetAllocationError struct {
	StatusCode int
	Err        error
}

func (e *AssetAllocationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http %d: %v", ErrAssetAllocation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrAssetAllocation, e.Err)
}

func (e *AssetAllocationError) Unwrap() []error { return []error{ErrAssetAllocation, e.Err} }

// AssetUploadError means the raw bytes could not be stored in the upload slot.
type AssetUploadError struct {
	StatusCode int
	Err        error
}

func (e *AssetUploadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http %d: %v", ErrAssetUpload, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrAssetUpload, e.Err)
}

func (e *AssetUploadError) Unwrap() []error { return []error{ErrAssetUpload, e.Err} }

// InferenceRequestError is a terminal submission failure. Body holds the
// vendor's response text.
type InferenceRequestError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *InferenceRequestError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("%s: http %d: %v", ErrInferenceRequest, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", ErrInferenceRequest, e.Err)
	default:
		return fmt.Sprintf("%s: http %d: %s", ErrInferenceRequest, e.StatusCode, e.Body)
	}
}

func (e *InferenceRequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInferenceRequest}
	}
	return []error{ErrInferenceRequest, e.Err}
}

// PollingTimeoutError is returned when every attempt came back pending.
type PollingTimeoutError struct {
	RequestID string
	Attempts  int
}

func (e *PollingTimeoutError) Error() string {
	return fmt.Sprintf("%s: request %s still pending after %d attempts", ErrPollingTimeout, e.RequestID, e.Attempts)
}

func (e *PollingTimeoutError) Unwrap() error { return ErrPollingTimeout }

// PollingFailedError is returned when the status endpoint answered with
// something other than 200/202, or could not be reached.
type PollingFailedError struct {
	RequestID  string
	StatusCode int
	Attempt    int
	Body       string
	Err        error
}

func (e *PollingFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: request %s attempt %d: %v", ErrPollingFailed, e.RequestID, e.Attempt, e.Err)
	}
	return fmt.Sprintf("%s: request %s attempt %d: unexpected status %d", ErrPollingFailed, e.RequestID, e.Attempt, e.StatusCode)
}

func (e *PollingFailedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPollingFailed}
	}
	return []error{ErrPollingFailed, e.Err}
}

// NoVideoInArchiveError carries the archive listing for display.
type NoVideoInArchiveError struct {
	Entries []string
}

func (e *NoVideoInArchiveError) Error() string {
	return fmt.Sprintf("%s (entries: %v)", ErrNoVideoInArchive, e.Entries)
}

func (e *NoVideoInArchiveError) Unwrap() error { return ErrNoVideoInArchive }
