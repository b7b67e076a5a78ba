package adapter

import (
	"context"

	"dino-video-labeler/internal/domain/model"
)

// ObjectDetector is the port for remote open-vocabulary detection on a video.
type ObjectDetector interface {
	// Detect uploads video, submits prompt against it and returns the result
	// archive, polling when the vendor answers asynchronously.
	Detect(ctx context.Context, prompt string, video []byte) (*model.ResultArchive, error)
}

// AssetUploader stores raw bytes vendor-side and returns the asset reference.
type AssetUploader interface {
	UploadAsset(ctx context.Context, video []byte, description string) (model.Asset, error)
}

// StatusPoller resolves a pending request.
type StatusPoller interface {
	Poll(ctx context.Context, handle model.PollHandle) (model.PollResult, error)
}

// ArchiveUnpacker extracts the playable video from a result archive.
type ArchiveUnpacker interface {
	Unpack(data []byte) (*model.ExtractedVideo, error)
	List(data []byte) ([]string, error)
}
