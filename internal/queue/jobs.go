// Package queue owns the stage job kinds and the asynq client used to
// schedule them.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/avelsher/previewgen/internal/asset"
)

const (
	// QueueJPEG and QueueWEBP are independent queues; each stage gets its
	// own worker pool with its own concurrency bound.
	QueueJPEG = "thumbnail:jpeg"
	QueueWEBP = "thumbnail:webp"

	// TaskGenerateJPEG is scheduled when an asset is ingested.
	TaskGenerateJPEG = "thumbnail:generate-jpeg"
	// TaskGenerateWEBP is scheduled by the JPEG stage fan-out.
	TaskGenerateWEBP = "thumbnail:generate-webp"
)

// StagePayload carries the asset snapshot taken at enqueue time. Stages
// operate on the snapshot, never on the live row.
type StagePayload struct {
	Asset asset.Asset `json:"asset"`
}

// Client schedules stage jobs. Every enqueue generates a fresh job id, so
// identical payloads enqueued twice run twice.
type Client struct {
	inner *asynq.Client
}

// NewClient constructs a stage queue client on the given Redis connection.
func NewClient(opt asynq.RedisConnOpt) *Client {
	return &Client{inner: asynq.NewClient(opt)}
}

// EnqueueJPEG schedules the JPEG stage for an asset and returns the job id.
func (c *Client) EnqueueJPEG(ctx context.Context, a asset.Asset) (string, error) {
	return c.enqueue(ctx, TaskGenerateJPEG, QueueJPEG, a)
}

// EnqueueWEBP schedules the WEBP stage carrying the post-JPEG snapshot.
func (c *Client) EnqueueWEBP(ctx context.Context, a asset.Asset) (string, error) {
	return c.enqueue(ctx, TaskGenerateWEBP, QueueWEBP, a)
}

func (c *Client) enqueue(ctx context.Context, taskName, queueName string, a asset.Asset) (string, error) {
	data, err := json.Marshal(StagePayload{Asset: a})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	jobID := uuid.NewString()
	task := asynq.NewTask(taskName, data)
	// Stage failures are swallowed by the handlers, so retries never fire;
	// MaxRetry(0) keeps the queue from holding dead state for them.
	_, err = c.inner.EnqueueContext(ctx, task,
		asynq.Queue(queueName),
		asynq.TaskID(jobID),
		asynq.MaxRetry(0),
	)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", taskName, err)
	}
	return jobID, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.inner.Close()
}
