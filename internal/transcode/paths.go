package transcode

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/avelsher/previewgen/internal/asset"
)

// PreviewPath derives the JPEG destination for an asset. The path is a pure
// function of the upload root, the asset's user/device namespace and the
// original's base filename, so re-running the stage overwrites the same
// location.
func PreviewPath(uploadDir string, a asset.Asset) string {
	dir := filepath.Join(uploadDir, a.UserID, "thumb", sanitizeSegment(a.DeviceID))
	base := filepath.Base(a.OriginalPath)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return filepath.Join(dir, base+".jpeg")
}

// ThumbPath derives the WEBP destination from a preview path by substituting
// the file extension: same directory, same basename, ".webp".
func ThumbPath(previewPath string) string {
	return strings.TrimSuffix(previewPath, filepath.Ext(previewPath)) + ".webp"
}

// ensureDir creates the destination directory tree. Concurrent creation
// attempts are fine: MkdirAll treats "already exists" as success.
func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// sanitizeSegment strips characters that would let a device id escape its
// directory.
func sanitizeSegment(s string) string {
	out := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	if out == "" || out == "." || out == ".." {
		return "_"
	}
	return out
}
