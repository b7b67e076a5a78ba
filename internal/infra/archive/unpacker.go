// Package archive extracts the annotated media from a result zip.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"dino-video-labeler/internal/domain"
	"dino-video-labeler/internal/domain/model"
	"dino-video-labeler/internal/domain/ports/adapter"
)

var _ adapter.ArchiveUnpacker = (*Unpacker)(nil)

// Unpacker picks the first entry whose name ends in ext.
type Unpacker struct {
	ext      string
	maxEntry int64
}

// NewUnpacker returns an unpacker for ext (".mp4" when empty). maxEntry caps
// the decompressed size of the extracted entry; zero means 1 GiB.
func NewUnpacker(ext string, maxEntry int64) *Unpacker {
	if ext == "" {
		ext = ".mp4"
	}
	if maxEntry <= 0 {
		maxEntry = 1 << 30
	}
	return &Unpacker{ext: ext, maxEntry: maxEntry}
}

// List returns entry names in archive order.
func (u *Unpacker) List(data []byte) ([]string, error) {
	zr, err := open(data)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names, nil
}

// Unpack returns the first video entry byte-identical, plus the full listing.
func (u *Unpacker) Unpack(data []byte) (*model.ExtractedVideo, error) {
	zr, err := open(data)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(zr.File))
	var video *zip.File
	for _, f := range zr.File {
		names = append(names, f.Name)
		if video == nil && !f.FileInfo().IsDir() && strings.HasSuffix(f.Name, u.ext) {
			video = f
		}
	}
	if video == nil {
		return nil, &domain.NoVideoInArchiveError{Entries: names}
	}

	rc, err := video.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", video.Name, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, u.maxEntry+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", video.Name, err)
	}
	if int64(len(b)) > u.maxEntry {
		return nil, fmt.Errorf("entry %s exceeds %d bytes", video.Name, u.maxEntry)
	}
	return &model.ExtractedVideo{Name: video.Name, Data: b, Entries: names}, nil
}

func open(data []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read result archive: %w", err)
	}
	return zr, nil
}
