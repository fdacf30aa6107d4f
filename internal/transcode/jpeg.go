// Package transcode produces the derived artifacts: a resized JPEG preview
// from the original and a small WEBP thumbnail from that preview.
package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/avelsher/previewgen/internal/asset"
)

const (
	// Preview bounding box. Images are fit inside, aspect preserved, never
	// upscaled.
	previewMaxWidth  = 1440
	previewMaxHeight = 2560

	previewJPEGQuality = 90
)

// JPEG generates the preview for both asset kinds. For images it decodes,
// orients and fits the source; for videos it grabs the frame at t=0 through
// ffmpeg.
type JPEG struct {
	// UploadDir is the root the destination path is derived under.
	UploadDir string
	// FFmpegPath is the ffmpeg binary used for video frame extraction.
	FFmpegPath string
}

// Transcode writes the preview JPEG for the asset and returns its path. The
// destination directory is created first; a failure of any step is returned
// as *Error.
func (t *JPEG) Transcode(ctx context.Context, a asset.Asset) (string, error) {
	dst := PreviewPath(t.UploadDir, a)
	if err := ensureDir(dst); err != nil {
		return "", newError("jpeg", a.OriginalPath, err)
	}

	switch a.Kind {
	case asset.KindImage:
		if err := t.transcodeImage(ctx, a.OriginalPath, dst); err != nil {
			return "", err
		}
	case asset.KindVideo:
		if err := t.grabFrame(ctx, a.OriginalPath, dst); err != nil {
			return "", err
		}
	default:
		return "", newError("jpeg", a.OriginalPath, fmt.Errorf("unsupported asset kind %q", a.Kind))
	}
	return dst, nil
}

func (t *JPEG) transcodeImage(ctx context.Context, src, dst string) error {
	err := await(ctx, func() error {
		img, err := imaging.Open(src, imaging.AutoOrientation(true))
		if err != nil {
			return err
		}
		fitted := imaging.Fit(img, previewMaxWidth, previewMaxHeight, imaging.Lanczos)
		return imaging.Save(fitted, dst, imaging.JPEGQuality(previewJPEGQuality))
	})
	if err != nil {
		return newError("jpeg", src, err)
	}
	return nil
}

// grabFrame decodes exactly one frame at timestamp zero and encodes it to
// dst. No audio, no multi-frame handling.
func (t *JPEG) grabFrame(ctx context.Context, src, dst string) error {
	ffmpeg := t.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, ffmpeg,
		"-y",
		"-i", src,
		"-ss", "00:00:00.000",
		"-frames:v", "1",
		dst,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return newError("frame", src, fmt.Errorf("%w: %s", err, lastLine(stderr.String())))
	}
	return nil
}

// await runs fn on its own goroutine so a stuck decode releases the worker
// slot when the stage deadline passes. The goroutine is left to finish on its
// own; fn must not touch shared state after returning.
func await(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
