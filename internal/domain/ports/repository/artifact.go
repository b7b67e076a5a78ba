package repository

import "context"

// ArtifactStore keeps run artifacts (uploads, archives, extracted videos)
// under slash-separated keys. Storage is ephemeral.
type ArtifactStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Path(key string) (string, error)
}
