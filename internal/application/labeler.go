package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dino-video-labeler/internal/config"
	"dino-video-labeler/internal/domain"
	"dino-video-labeler/internal/domain/model"
	"dino-video-labeler/internal/domain/ports/adapter"
	"dino-video-labeler/internal/infra/adapters/nvcf"
	"dino-video-labeler/internal/infra/archive"
	"dino-video-labeler/internal/infra/storage"
	"dino-video-labeler/internal/usecase"

	"github.com/rs/zerolog"
)

// Labeler composes the detector, unpacker and stores into the labeling use
// case. Both the HTTP server and the CLI start from here.
type Labeler struct {
	UC      usecase.LabelingUseCase
	Uploads *storage.FileStore
	Outputs *storage.FileStore
}

func NewLabeler(cfg *config.Config, logger *zerolog.Logger) (*Labeler, error) {
	opts := nvcf.OptionsFromConfig(cfg.NVCF)
	opts.Logger = logger
	client, err := nvcf.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("nvcf client: %w", err)
	}
	return NewLabelerWith(nvcf.NewLimitedDetector(client, cfg.NVCF.ConcurrentLimit), cfg.Storage, logger)
}

// NewLabelerWith wires an already built detector.
func NewLabelerWith(det adapter.ObjectDetector, sc config.StorageConfig, logger *zerolog.Logger) (*Labeler, error) {
	uploads, err := storage.NewFileStore(sc.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("uploads: %w", err)
	}
	outputs, err := storage.NewFileStore(sc.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("outputs: %w", err)
	}
	uc := usecase.NewLabelingUseCase(det, archive.NewUnpacker(sc.VideoExtension, 0), uploads, outputs, sc.VideoExtension, logger)
	return &Labeler{UC: uc, Uploads: uploads, Outputs: outputs}, nil
}

// HandleLabel runs one labeling pass and returns a human readable report.
// The report is filled in for failures too.
func (l *Labeler) HandleLabel(ctx context.Context, prompt, filename string, video []byte) (string, *model.LabelingRun, error) {
	run, err := l.UC.Label(ctx, usecase.LabelInput{Prompt: prompt, Filename: filename, Video: video})
	return l.Report(run, err), run, err
}

func (l *Labeler) Report(run *model.LabelingRun, err error) string {
	var b strings.Builder
	o := domain.Classify(err)
	if err != nil {
		fmt.Fprintf(&b, "%s\n", o.Message())
		fmt.Fprintf(&b, "reason: %v\n", err)
	}
	if run == nil {
		return b.String()
	}
	fmt.Fprintf(&b, "run: %s\n", run.ID)
	if run.AssetID != "" {
		fmt.Fprintf(&b, "asset: %s\n", run.AssetID)
	}
	if run.Polled {
		fmt.Fprintf(&b, "polled: %d attempts (request %s)\n", run.Attempts, run.RequestID)
	}
	if len(run.Entries) > 0 {
		b.WriteString("archive entries:\n")
		for _, e := range run.Entries {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}
	l.writePath(&b, "archive", run.ArchiveKey)
	l.writePath(&b, "video", run.VideoKey)
	return b.String()
}

func (l *Labeler) writePath(b *strings.Builder, label, key string) {
	if key == "" || l.Outputs == nil {
		return
	}
	p, err := l.Outputs.Path(key)
	if err != nil {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, p)
}

// ExitCode gives each failure kind its own process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return 130
	}
	switch domain.Classify(err) {
	case domain.OutcomeInvalidInput:
		return 2
	case domain.OutcomeRequestFailed:
		return 3
	case domain.OutcomeTimedOut:
		return 4
	case domain.OutcomeNoVideo:
		return 5
	}
	return 1
}
