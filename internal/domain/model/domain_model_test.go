//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"dino-video-labeler/internal/domain"
)

func TestNewInferenceRequest(t *testing.T) {
	asset := Asset{ID: "3fa85f64-5717-4562-b3fc-2c963f66afa6", ContentType: "video/mp4"}

	t.Run("valid request", func(t *testing.T) {
		r, err := NewInferenceRequest("Grounding-Dino", "  person . car  ", asset, 0.3)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if r.Prompt != "person . car" {
			t.Errorf("prompt should be trimmed, got %q", r.Prompt)
		}
		if got := r.MediaURL(); got != "data:video/mp4;asset_id,3fa85f64-5717-4562-b3fc-2c963f66afa6" {
			t.Errorf("unexpected media url %q", got)
		}
	})

	t.Run("asset must be uploaded first", func(t *testing.T) {
		_, err := NewInferenceRequest("m", "cars", Asset{}, 0.3)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("empty prompt", func(t *testing.T) {
		_, err := NewInferenceRequest("m", "   ", asset, 0.3)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("threshold out of range", func(t *testing.T) {
		for _, th := range []float64{-0.1, 1.01} {
			if _, err := NewInferenceRequest("m", "cars", asset, th); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("threshold %v: expected ErrInvalidArgument, got %v", th, err)
			}
		}
	})
}

func TestMediaURL_DefaultsContentType(t *testing.T) {
	r := InferenceRequest{Asset: Asset{ID: "abc"}}
	if got := r.MediaURL(); got != "data:video/mp4;asset_id,abc" {
		t.Fatalf("unexpected media url %q", got)
	}
}

func TestPollState_Terminal(t *testing.T) {
	if PollPending.Terminal() {
		t.Error("pending must not be terminal")
	}
	for _, s := range []PollState{PollReady, PollTimedOut, PollFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestSubmission_Pending(t *testing.T) {
	if (Submission{Archive: []byte("zip")}).Pending() {
		t.Error("archive submission is not pending")
	}
	if !(Submission{Handle: &PollHandle{RequestID: "r"}}).Pending() {
		t.Error("handle submission should be pending")
	}
}

func TestLabelingRun_Duration(t *testing.T) {
	start := time.Now()
	r := &LabelingRun{StartedAt: start}
	if r.Duration() != 0 {
		t.Error("incomplete run should have zero duration")
	}
	r.CompletedAt = start.Add(3 * time.Second)
	if r.Duration() != 3*time.Second {
		t.Errorf("unexpected duration %s", r.Duration())
	}
}
