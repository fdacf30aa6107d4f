package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelsher/previewgen/internal/asset"
)

// AssetRepository wraps all SQL used by the pipeline and CLI.
type AssetRepository struct {
	pool *pgxpool.Pool
}

// NewAssetRepository constructs a repository.
func NewAssetRepository(pool *pgxpool.Pool) *AssetRepository {
	return &AssetRepository{pool: pool}
}

// Create inserts an asset row before any stage runs.
func (r *AssetRepository) Create(ctx context.Context, a *asset.Asset) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO assets (id, user_id, device_id, kind, original_path, preview_path, thumb_path, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, a.ID, a.UserID, a.DeviceID, a.Kind, a.OriginalPath, a.PreviewPath, a.ThumbPath, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// Get returns an asset by id.
func (r *AssetRepository) Get(ctx context.Context, id uuid.UUID) (*asset.Asset, error) {
	var a asset.Asset
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, device_id, kind, original_path, preview_path, thumb_path, created_at
		FROM assets WHERE id=$1
	`, id)
	if err := row.Scan(&a.ID, &a.UserID, &a.DeviceID, &a.Kind, &a.OriginalPath, &a.PreviewPath, &a.ThumbPath, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, asset.ErrNotFound
		}
		return nil, fmt.Errorf("select asset: %w", err)
	}
	return &a, nil
}

// SetPreviewPath persists the JPEG stage result. Only the one field is
// touched, so the update is safe to apply concurrently with writes to
// unrelated columns.
func (r *AssetRepository) SetPreviewPath(ctx context.Context, id uuid.UUID, path string) error {
	return r.updatePaths(ctx, id, &path, nil)
}

// SetThumbPath persists the WEBP stage result.
func (r *AssetRepository) SetThumbPath(ctx context.Context, id uuid.UUID, path string) error {
	return r.updatePaths(ctx, id, nil, &path)
}

func (r *AssetRepository) updatePaths(ctx context.Context, id uuid.UUID, previewPath, thumbPath *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE assets
		SET preview_path = COALESCE($1, preview_path),
			thumb_path = COALESCE($2, thumb_path)
		WHERE id=$3
	`, previewPath, thumbPath, id)
	if err != nil {
		return fmt.Errorf("update asset paths: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return asset.ErrNotFound
	}
	return nil
}
