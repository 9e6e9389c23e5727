// Package storage provides the file stores session artifacts are kept in:
// uploaded exports, generated count-sheet templates and final corrected files.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no object exists under the requested key.
var ErrNotFound = errors.New("storage: object not found")

// FileStore is the persistence boundary for session files. Keys are
// slash-separated paths scoped by session, e.g. "ses-1/final.csv".
type FileStore interface {
	// Put stores the object under key, replacing any previous content.
	Put(ctx context.Context, key string, r io.Reader) error
	// Get opens the object under key. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every object whose key starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}
