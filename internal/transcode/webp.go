package transcode

import (
	"context"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

const (
	// Thumbnails are resized to a fixed 250px edge, aspect preserved.
	thumbEdge = 250

	thumbWEBPQuality = 80
)

// WebP derives the small thumbnail from a generated JPEG preview.
type WebP struct{}

// Transcode reads the preview, resizes it and writes the WEBP next to it
// (extension substitution only). When previewPath is empty or the file does
// not exist there is nothing to do: it returns ("", nil) without touching the
// filesystem.
func (t *WebP) Transcode(ctx context.Context, previewPath string) (string, error) {
	if previewPath == "" {
		return "", nil
	}
	if _, err := os.Stat(previewPath); os.IsNotExist(err) {
		return "", nil
	}

	dst := ThumbPath(previewPath)
	err := await(ctx, func() error {
		img, err := imaging.Open(previewPath, imaging.AutoOrientation(true))
		if err != nil {
			return err
		}
		resized := imaging.Resize(img, thumbEdge, 0, imaging.Lanczos)

		f, err := os.Create(dst)
		if err != nil {
			return err
		}
		defer f.Close()
		return webp.Encode(f, resized, &webp.Options{Quality: thumbWEBPQuality})
	})
	if err != nil {
		return "", newError("webp", previewPath, err)
	}
	return dst, nil
}
