package model

import (
	"time"

	"dino-video-labeler/internal/domain"
)

// LabelingRun records where one run's artifacts live on disk.
type LabelingRun struct {
	ID          string
	Prompt      string
	AssetID     string
	RequestID   string
	UploadKey   string
	ArchiveKey  string
	VideoKey    string
	VideoName   string
	Entries     []string
	Polled      bool
	Attempts    int
	Outcome     domain.Outcome
	StartedAt   time.Time
	CompletedAt time.Time
}

func (r *LabelingRun) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
