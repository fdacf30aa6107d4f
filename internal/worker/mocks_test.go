package worker

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/avelsher/previewgen/internal/asset"
)

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) SetPreviewPath(ctx context.Context, id uuid.UUID, path string) error {
	args := m.Called(ctx, id, path)
	return args.Error(0)
}

func (m *StoreMock) SetThumbPath(ctx context.Context, id uuid.UUID, path string) error {
	args := m.Called(ctx, id, path)
	return args.Error(0)
}

type StageQueueMock struct {
	mock.Mock
}

func (m *StageQueueMock) EnqueueWEBP(ctx context.Context, a asset.Asset) (string, error) {
	args := m.Called(ctx, a)
	return args.String(0), args.Error(1)
}

type DispatcherMock struct {
	mock.Mock
}

func (m *DispatcherMock) Dispatch(ctx context.Context, a asset.Asset) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) Publish(ctx context.Context, userID, event string, payload []byte) error {
	args := m.Called(ctx, userID, event, payload)
	return args.Error(0)
}

// previewFunc and thumbFunc adapt plain functions to the transcoder
// interfaces so tests can fake stage outcomes.
type previewFunc func(ctx context.Context, a asset.Asset) (string, error)

func (f previewFunc) Transcode(ctx context.Context, a asset.Asset) (string, error) {
	return f(ctx, a)
}

type thumbFunc func(ctx context.Context, previewPath string) (string, error)

func (f thumbFunc) Transcode(ctx context.Context, previewPath string) (string, error) {
	return f(ctx, previewPath)
}
