package domain

import (
	"context"
	"errors"
)

// Outcome is what the caller is told about a labeling run. Each failure kind
// implies a different corrective action.
type Outcome string

const (
	OutcomeSucceeded     Outcome = "succeeded"
	OutcomeRequestFailed Outcome = "request_failed" // retry the prompt
	OutcomeTimedOut      Outcome = "timed_out"      // retry later
	OutcomeNoVideo       Outcome = "no_video"       // nothing detected
	OutcomeInvalidInput  Outcome = "invalid_input"
	OutcomeRateLimited   Outcome = "rate_limited"
	OutcomeInternal      Outcome = "internal"
)

// Classify maps err onto an Outcome. A nil error is a success.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSucceeded
	case errors.Is(err, ErrInvalidArgument):
		return OutcomeInvalidInput
	case errors.Is(err, ErrRateLimited):
		return OutcomeRateLimited
	// a vendor error wrapping a cancel is still the caller giving up
	case errors.Is(err, context.Canceled):
		return OutcomeInternal
	case errors.Is(err, ErrPollingTimeout), errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimedOut
	case errors.Is(err, ErrNoVideoInArchive):
		return OutcomeNoVideo
	case errors.Is(err, ErrAssetAllocation),
		errors.Is(err, ErrAssetUpload),
		errors.Is(err, ErrInferenceRequest),
		errors.Is(err, ErrPollingFailed):
		return OutcomeRequestFailed
	default:
		return OutcomeInternal
	}
}

// Message is the user-facing text for an outcome.
func (o Outcome) Message() string {
	switch o {
	case OutcomeSucceeded:
		return "Processing complete!"
	case OutcomeRequestFailed:
		return "The detection request failed. Check the prompt and try again."
	case OutcomeTimedOut:
		return "Timed out waiting for the result. Try again later."
	case OutcomeNoVideo:
		return "No video files found in the result archive."
	case OutcomeInvalidInput:
		return "Upload a video (mp4, avi, mov) and enter a prompt."
	case OutcomeRateLimited:
		return "Too many requests. Slow down."
	default:
		return "Internal error."
	}
}
