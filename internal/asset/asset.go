// Package asset defines the unit of work flowing through the pipeline.
package asset

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Kind is fixed at creation and never changes.
type Kind string

const (
	KindImage Kind = "IMAGE"
	KindVideo Kind = "VIDEO"
)

// ErrNotFound is returned by the store when no asset matches the given id.
var ErrNotFound = errors.New("asset not found")

// Asset is a stored media item awaiting derived-artifact generation. Stage
// jobs carry an Asset snapshot by value; mutations of the backing row are not
// visible mid-pipeline.
type Asset struct {
	ID           uuid.UUID `json:"id"`
	UserID       string    `json:"userId"`
	DeviceID     string    `json:"deviceId"`
	Kind         Kind      `json:"kind"`
	OriginalPath string    `json:"originalPath"`

	// PreviewPath is set exactly once by the JPEG stage on success.
	PreviewPath string `json:"previewPath,omitempty"`
	// ThumbPath is set exactly once by the WEBP stage on success, and only
	// after PreviewPath exists.
	ThumbPath string `json:"thumbPath,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Summary is the client-facing shape published on upload events.
type Summary struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	DeviceID     string `json:"deviceId"`
	Kind         Kind   `json:"kind"`
	OriginalPath string `json:"originalPath"`
	PreviewPath  string `json:"previewPath,omitempty"`
	ThumbPath    string `json:"thumbPath,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

// Summarize maps the asset to its notification payload.
func (a Asset) Summarize() Summary {
	return Summary{
		ID:           a.ID.String(),
		UserID:       a.UserID,
		DeviceID:     a.DeviceID,
		Kind:         a.Kind,
		OriginalPath: a.OriginalPath,
		PreviewPath:  a.PreviewPath,
		ThumbPath:    a.ThumbPath,
		CreatedAt:    a.CreatedAt.UTC().Format(time.RFC3339),
	}
}
