package filedepot

import (
	"context"
	"io"
	"io/fs"
)

// Storage is the path-addressed byte store a Collection serves from.
// Implementations translate their backend's missing-object error to
// ErrNotFound so engine code can branch on it.
type Storage interface {
	// Stat describes the object at path.
	Stat(ctx context.Context, path string) (fs.FileInfo, error)

	// Chmod sets final permission bits on a committed object.
	Chmod(ctx context.Context, path string, mode fs.FileMode) error

	// Unlink removes the object at path.
	Unlink(ctx context.Context, path string) error

	// Open returns a seekable reader over the object, used for both full
	// and range reads. The caller closes it.
	Open(ctx context.Context, path string) (io.ReadSeekCloser, error)

	// Create writes content to path, creating parent directories as
	// needed, and reports the byte count written.
	Create(ctx context.Context, path string, content io.Reader) (int64, error)
}
