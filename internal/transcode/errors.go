package transcode

import "fmt"

// Error is the typed failure for either transcoding stage: decode, encode and
// I/O failures all end up here. Callers recover it locally; it never fails a
// worker.
type Error struct {
	Op   string // "jpeg", "frame", "webp"
	Path string // source the stage was reading
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transcode %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, path string, err error) *Error {
	return &Error{Op: op, Path: path, Err: err}
}
