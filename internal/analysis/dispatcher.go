// Package analysis fans completed uploads out to the machine-learning
// consumers. The dispatcher only enqueues; the tagging and detection models
// live in a separate service.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avelsher/previewgen/internal/asset"
)

const (
	JobImageTagging    = "image-tagging"
	JobObjectDetection = "object-detection"
)

// Job is the message consumed by the analysis workers.
type Job struct {
	ID    string      `json:"id"`
	Kind  string      `json:"kind"`
	Asset asset.Asset `json:"asset"`
}

// Publisher is the transport the dispatcher writes to.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Dispatcher enqueues the analysis jobs for an asset snapshot. It is invoked
// from the JPEG stage fan-out regardless of whether that stage succeeded, so
// consumers must tolerate snapshots with an empty previewPath.
type Dispatcher struct {
	pub Publisher
	log zerolog.Logger
}

// NewDispatcher constructs a dispatcher on the given transport.
func NewDispatcher(pub Publisher, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{pub: pub, log: log}
}

// Dispatch enqueues one tagging and one detection job, each with a fresh job
// id. A failed publish of one job does not stop the other.
func (d *Dispatcher) Dispatch(ctx context.Context, a asset.Asset) error {
	var firstErr error
	for _, kind := range []string{JobImageTagging, JobObjectDetection} {
		if err := d.publish(ctx, kind, a); err != nil {
			d.log.Error().Err(err).
				Str("asset_id", a.ID.String()).
				Str("job_kind", kind).
				Msg("analysis dispatch failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (d *Dispatcher) publish(ctx context.Context, kind string, a asset.Asset) error {
	job := Job{
		ID:    uuid.NewString(),
		Kind:  kind,
		Asset: a,
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal %s job: %w", kind, err)
	}
	return d.pub.Publish(ctx, job.ID, data)
}
