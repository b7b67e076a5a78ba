package nvcf

import (
	"context"

	"dino-video-labeler/internal/domain/model"
	"dino-video-labeler/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.ObjectDetector = (*limitedDetector)(nil)

type limitedDetector struct {
	inner adapter.ObjectDetector
	sem   chan struct{}
}

// NewLimitedDetector caps concurrent detections. Each caller still gets its
// own asset/request/poll triple; only the number in flight is bounded.
func NewLimitedDetector(inner adapter.ObjectDetector, maxConcurrent int) adapter.ObjectDetector {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedDetector{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedDetector) Detect(ctx context.Context, prompt string, video []byte) (*model.ResultArchive, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Detect(ctx, prompt, video)
}
