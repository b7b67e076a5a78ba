package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"dino-video-labeler/internal/domain"
	"dino-video-labeler/internal/domain/model"
	"dino-video-labeler/internal/domain/ports/adapter"
	"dino-video-labeler/internal/domain/ports/repository"
	"dino-video-labeler/internal/infra/logging"
	"dino-video-labeler/internal/infra/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Upload types accepted from callers.
var allowedVideoExt = map[string]bool{".mp4": true, ".avi": true, ".mov": true}

const annotatedBase = "annotated"

type LabelInput struct {
	Prompt   string
	Filename string
	Video    []byte
}

// LabelingUseCase runs one upload → detect → unpack pass per call and serves
// the stored artifacts afterwards.
type LabelingUseCase interface {
	Label(ctx context.Context, in LabelInput) (*model.LabelingRun, error)
	Archive(ctx context.Context, runID string) ([]byte, error)
	Video(ctx context.Context, runID string) ([]byte, error)
	Entries(ctx context.Context, runID string) ([]string, error)
}

var _ LabelingUseCase = (*labelingUC)(nil)

type labelingUC struct {
	detector adapter.ObjectDetector
	unpacker adapter.ArchiveUnpacker
	uploads  repository.ArtifactStore
	outputs  repository.ArtifactStore
	videoExt string
	log      *zerolog.Logger
}

func NewLabelingUseCase(
	detector adapter.ObjectDetector,
	unpacker adapter.ArchiveUnpacker,
	uploads repository.ArtifactStore,
	outputs repository.ArtifactStore,
	videoExt string,
	logger *zerolog.Logger,
) LabelingUseCase {
	if videoExt == "" {
		videoExt = ".mp4"
	}
	return &labelingUC{
		detector: detector,
		unpacker: unpacker,
		uploads:  uploads,
		outputs:  outputs,
		videoExt: videoExt,
		log:      logger,
	}
}

// Label returns the run even when it fails after an id was assigned, so the
// caller can show what was produced (e.g. the listing of a video-less archive).
func (uc *labelingUC) Label(ctx context.Context, in LabelInput) (*model.LabelingRun, error) {
	if err := validateInput(in); err != nil {
		metrics.IncRun(string(domain.OutcomeInvalidInput))
		return nil, err
	}

	run := &model.LabelingRun{
		ID:        ulid.Make().String(),
		Prompt:    strings.TrimSpace(in.Prompt),
		StartedAt: time.Now(),
	}
	ctx = logging.WithRunID(ctx, run.ID)
	l := logging.With(ctx, uc.log)
	defer logging.TraceDuration(l, "LabelingUC.Label")()

	err := uc.label(ctx, run, in)
	run.CompletedAt = time.Now()
	run.Outcome = domain.Classify(err)
	metrics.IncRun(string(run.Outcome))
	metrics.ObserveRunDuration(run.Duration())

	ev := l.Info()
	if err != nil {
		ev = l.Warn().Err(err)
	}
	ev.Str("outcome", string(run.Outcome)).
		Str("asset_id", run.AssetID).
		Bool("polled", run.Polled).
		Int("attempts", run.Attempts).
		Strs("entries", run.Entries).
		Dur("duration", run.Duration()).
		Msg("labeling run finished")
	return run, err
}

func (uc *labelingUC) label(ctx context.Context, run *model.LabelingRun, in LabelInput) error {
	uploadKey, err := uc.uploads.Write(ctx, run.ID+strings.ToLower(filepath.Ext(in.Filename)), in.Video)
	if err != nil {
		return fmt.Errorf("store upload: %w", err)
	}
	run.UploadKey = uploadKey

	res, err := uc.detector.Detect(ctx, run.Prompt, in.Video)
	if err != nil {
		return err
	}
	run.AssetID = res.AssetID
	run.RequestID = res.RequestID
	run.Polled = res.Polled
	run.Attempts = res.Attempts

	archiveKey, err := uc.outputs.Write(ctx, run.ID+".zip", res.Data)
	if err != nil {
		return fmt.Errorf("store archive: %w", err)
	}
	run.ArchiveKey = archiveKey

	video, err := uc.unpacker.Unpack(res.Data)
	if err != nil {
		var nv *domain.NoVideoInArchiveError
		if errors.As(err, &nv) {
			run.Entries = nv.Entries
		}
		return err
	}
	run.Entries = video.Entries
	run.VideoName = video.Name

	videoKey, err := uc.outputs.Write(ctx, uc.videoKey(run.ID), video.Data)
	if err != nil {
		return fmt.Errorf("store video: %w", err)
	}
	run.VideoKey = videoKey
	return nil
}

func (uc *labelingUC) Archive(ctx context.Context, runID string) ([]byte, error) {
	if err := validRunID(runID); err != nil {
		return nil, err
	}
	return uc.outputs.Read(ctx, runID+".zip")
}

func (uc *labelingUC) Video(ctx context.Context, runID string) ([]byte, error) {
	if err := validRunID(runID); err != nil {
		return nil, err
	}
	return uc.outputs.Read(ctx, uc.videoKey(runID))
}

// Entries lists a stored archive without extracting anything.
func (uc *labelingUC) Entries(ctx context.Context, runID string) ([]string, error) {
	data, err := uc.Archive(ctx, runID)
	if err != nil {
		return nil, err
	}
	return uc.unpacker.List(data)
}

func (uc *labelingUC) videoKey(runID string) string {
	return runID + "/" + annotatedBase + uc.videoExt
}

func validateInput(in LabelInput) error {
	if strings.TrimSpace(in.Prompt) == "" {
		return fmt.Errorf("%w: prompt is required", domain.ErrInvalidArgument)
	}
	if len(in.Video) == 0 {
		return fmt.Errorf("%w: video is required", domain.ErrInvalidArgument)
	}
	ext := strings.ToLower(filepath.Ext(in.Filename))
	if !allowedVideoExt[ext] {
		return fmt.Errorf("%w: unsupported video type %q", domain.ErrInvalidArgument, ext)
	}
	return nil
}

// validRunID keeps lookups inside the output store.
func validRunID(id string) error {
	if _, err := ulid.ParseStrict(id); err != nil {
		return domain.ErrNotFound
	}
	return nil
}
