package transcode

import (
	"context"
	"image"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/avelsher/previewgen/internal/asset"
)

func writeTestImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 40, A: 255})
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, imaging.Save(img, path))
}

func imageAsset(originalPath string) asset.Asset {
	return asset.Asset{
		ID:           uuid.New(),
		UserID:       "user-1",
		DeviceID:     "device-1",
		Kind:         asset.KindImage,
		OriginalPath: originalPath,
	}
}

func TestJPEGTranscodeFitsWithinBounds(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "originals", "big.png")
	writeTestImage(t, src, 1600, 3000)

	tr := &JPEG{UploadDir: dir}
	got, err := tr.Transcode(context.Background(), imageAsset(src))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "user-1", "thumb", "device-1", "big.jpeg"), got)

	out, err := imaging.Open(got)
	require.NoError(t, err)
	b := out.Bounds()
	require.LessOrEqual(t, b.Dx(), 1440)
	require.LessOrEqual(t, b.Dy(), 2560)
	// Aspect preserved: 1600x3000 scaled by 2560/3000.
	require.Equal(t, 2560, b.Dy())
	require.Equal(t, 1365, b.Dx())
}

func TestJPEGTranscodeNeverUpscales(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "small.jpg")
	writeTestImage(t, src, 120, 80)

	tr := &JPEG{UploadDir: dir}
	got, err := tr.Transcode(context.Background(), imageAsset(src))
	require.NoError(t, err)

	out, err := imaging.Open(got)
	require.NoError(t, err)
	require.Equal(t, 120, out.Bounds().Dx())
	require.Equal(t, 80, out.Bounds().Dy())
}

func TestJPEGTranscodeOverwritesSameTarget(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	writeTestImage(t, src, 200, 100)

	tr := &JPEG{UploadDir: dir}
	a := imageAsset(src)

	first, err := tr.Transcode(context.Background(), a)
	require.NoError(t, err)
	second, err := tr.Transcode(context.Background(), a)
	require.NoError(t, err)
	require.Equal(t, first, second)

	entries, err := os.ReadDir(filepath.Dir(first))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestJPEGTranscodeDecodeFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(src, []byte("not an image"), 0o644))

	tr := &JPEG{UploadDir: dir}
	_, err := tr.Transcode(context.Background(), imageAsset(src))
	require.Error(t, err)

	var terr *Error
	require.ErrorAs(t, err, &terr)
	require.Equal(t, "jpeg", terr.Op)
}

func TestJPEGTranscodeMissingSource(t *testing.T) {
	dir := t.TempDir()
	tr := &JPEG{UploadDir: dir}
	_, err := tr.Transcode(context.Background(), imageAsset(filepath.Join(dir, "nope.png")))

	var terr *Error
	require.ErrorAs(t, err, &terr)
}

func TestJPEGTranscodeVideoFirstFrame(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "clip.mp4")
	gen := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", "testsrc=duration=1:size=320x240:rate=10",
		src,
	)
	require.NoError(t, gen.Run())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := imageAsset(src)
	a.Kind = asset.KindVideo
	tr := &JPEG{UploadDir: dir}

	got, err := tr.Transcode(ctx, a)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "user-1", "thumb", "device-1", "clip.jpeg"), got)

	frame, err := imaging.Open(got)
	require.NoError(t, err)
	require.Equal(t, 320, frame.Bounds().Dx())
	require.Equal(t, 240, frame.Bounds().Dy())
}
