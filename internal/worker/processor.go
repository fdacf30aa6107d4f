// Package worker runs the two pipeline stages. The JPEG stage produces the
// preview and fans out; the WEBP stage derives the thumbnail from it.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/avelsher/previewgen/internal/asset"
	"github.com/avelsher/previewgen/internal/config"
	"github.com/avelsher/previewgen/internal/metrics"
	"github.com/avelsher/previewgen/internal/queue"
)

// EventUploadSuccess is the event name published to the owning user after the
// JPEG stage fan-out.
const EventUploadSuccess = "on_upload_success"

// AssetStore persists stage results as targeted partial updates keyed by
// asset id.
type AssetStore interface {
	SetPreviewPath(ctx context.Context, id uuid.UUID, path string) error
	SetThumbPath(ctx context.Context, id uuid.UUID, path string) error
}

// StageQueue schedules the follow-on stage job.
type StageQueue interface {
	EnqueueWEBP(ctx context.Context, a asset.Asset) (string, error)
}

// AnalysisDispatcher enqueues the downstream analysis jobs.
type AnalysisDispatcher interface {
	Dispatch(ctx context.Context, a asset.Asset) error
}

// Notifier publishes an event to every session of the given user.
// Best-effort: having no connected session is not an error.
type Notifier interface {
	Publish(ctx context.Context, userID, event string, payload []byte) error
}

// PreviewTranscoder produces the JPEG preview and returns its path.
type PreviewTranscoder interface {
	Transcode(ctx context.Context, a asset.Asset) (string, error)
}

// ThumbTranscoder produces the WEBP thumbnail from a preview path. An empty
// result with nil error means there was nothing to do.
type ThumbTranscoder interface {
	Transcode(ctx context.Context, previewPath string) (string, error)
}

// StageStatus is the explicit outcome of one stage run. The fan-out policy
// branches on it rather than falling through a swallowed error.
type StageStatus string

const (
	StageOK      StageStatus = "ok"
	StageFailed  StageStatus = "failed"
	StageSkipped StageStatus = "skipped"
)

// StageResult carries the produced path on success or the reason on failure.
type StageResult struct {
	Status StageStatus
	Path   string
	Err    error
}

// Processor is plugged into the asynq worker loops for both stage queues.
type Processor struct {
	store    AssetStore
	stages   StageQueue
	analysis AnalysisDispatcher
	notifier Notifier
	preview  PreviewTranscoder
	thumb    ThumbTranscoder

	timeout time.Duration
	verbose bool
	log     zerolog.Logger
}

// NewProcessor constructs the stage sequencer.
func NewProcessor(
	store AssetStore,
	stages StageQueue,
	analysis AnalysisDispatcher,
	notifier Notifier,
	preview PreviewTranscoder,
	thumb ThumbTranscoder,
	timeout time.Duration,
	level config.LogLevel,
	log zerolog.Logger,
) *Processor {
	return &Processor{
		store:    store,
		stages:   stages,
		analysis: analysis,
		notifier: notifier,
		preview:  preview,
		thumb:    thumb,
		timeout:  timeout,
		verbose:  level == config.LogVerbose,
		log:      log,
	}
}

// Handler registers both stage handlers. The same mux is served by both
// stage servers; each server only consumes its own queue.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskGenerateJPEG, p.HandleJPEG)
	mux.HandleFunc(queue.TaskGenerateWEBP, p.HandleWEBP)
	return mux
}

// HandleJPEG runs the JPEG stage and then, success or failure, the fan-out:
// one WEBP job, the two analysis jobs and one notification to the owner.
// Transcode failures are recovered here and never returned to the queue.
func (p *Processor) HandleJPEG(ctx context.Context, task *asynq.Task) error {
	var payload queue.StagePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode jpeg payload: %w", err)
	}
	a := payload.Asset

	res := p.runStage(ctx, metrics.StageJPEG, func(ctx context.Context) (string, error) {
		return p.preview.Transcode(ctx, a)
	})

	switch res.Status {
	case StageOK:
		// The snapshot handed downstream carries the produced path even
		// if persisting it fails; the file exists either way.
		a.PreviewPath = res.Path
		if err := p.store.SetPreviewPath(ctx, a.ID, res.Path); err != nil {
			p.logPersistFailure(err, a, "preview_path")
		}
	case StageFailed:
		p.logStageFailure(res.Err, a, metrics.StageJPEG)
	}

	p.fanOut(ctx, a)
	return nil
}

// fanOut runs unconditionally after the JPEG stage. Downstream consumers may
// therefore see a snapshot whose previewPath was never produced; that is the
// pipeline's continuation policy, not an accident.
func (p *Processor) fanOut(ctx context.Context, a asset.Asset) {
	if jobID, err := p.stages.EnqueueWEBP(ctx, a); err != nil {
		p.log.Error().Err(err).Str("asset_id", a.ID.String()).Msg("enqueue webp stage failed")
	} else {
		p.log.Debug().Str("asset_id", a.ID.String()).Str("job_id", jobID).Msg("webp stage enqueued")
	}

	if err := p.analysis.Dispatch(ctx, a); err != nil {
		p.log.Error().Err(err).Str("asset_id", a.ID.String()).Msg("analysis dispatch failed")
	}

	summary, err := json.Marshal(a.Summarize())
	if err != nil {
		p.log.Error().Err(err).Str("asset_id", a.ID.String()).Msg("marshal asset summary failed")
		return
	}
	if err := p.notifier.Publish(ctx, a.UserID, EventUploadSuccess, summary); err != nil {
		p.log.Warn().Err(err).Str("asset_id", a.ID.String()).Msg("upload notification failed")
		return
	}
	metrics.NotificationsTotal.Inc()
}

// HandleWEBP runs the WEBP stage. On success it persists the thumb path; on
// failure it logs and drops — there is no further fan-out from this stage.
func (p *Processor) HandleWEBP(ctx context.Context, task *asynq.Task) error {
	var payload queue.StagePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode webp payload: %w", err)
	}
	a := payload.Asset

	res := p.runStage(ctx, metrics.StageWEBP, func(ctx context.Context) (string, error) {
		return p.thumb.Transcode(ctx, a.PreviewPath)
	})

	switch res.Status {
	case StageOK:
		if err := p.store.SetThumbPath(ctx, a.ID, res.Path); err != nil {
			p.logPersistFailure(err, a, "thumb_path")
		}
	case StageFailed:
		p.logStageFailure(res.Err, a, metrics.StageWEBP)
	case StageSkipped:
		p.log.Debug().Str("asset_id", a.ID.String()).Msg("webp stage skipped, no preview to derive from")
	}
	return nil
}

// runStage applies the stage timeout and maps the call to an explicit
// StageResult. An empty path with nil error is the "nothing to do"
// short-circuit.
func (p *Processor) runStage(ctx context.Context, stage string, fn func(context.Context) (string, error)) StageResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	path, err := fn(ctx)
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())

	var res StageResult
	switch {
	case err != nil:
		res = StageResult{Status: StageFailed, Err: err}
	case path == "":
		res = StageResult{Status: StageSkipped}
	default:
		res = StageResult{Status: StageOK, Path: path}
	}
	metrics.StageTotal.WithLabelValues(stage, string(res.Status)).Inc()
	return res
}

func (p *Processor) logStageFailure(err error, a asset.Asset, stage string) {
	evt := p.log.Error().
		Str("asset_id", a.ID.String()).
		Str("stage", stage)
	if p.verbose {
		evt = evt.Str("trace", fmt.Sprintf("%+v", err))
	}
	evt.Msgf("failed to generate %s thumbnail for asset", stage)
}

func (p *Processor) logPersistFailure(err error, a asset.Asset, field string) {
	evt := p.log.Error()
	if errors.Is(err, asset.ErrNotFound) {
		// The row is gone but the artifact file exists; downstream just
		// won't learn about it until the asset is re-registered.
		evt = p.log.Warn()
	}
	evt.Err(err).
		Str("asset_id", a.ID.String()).
		Str("field", field).
		Msg("persist stage result failed")
}
