// Package blob is the object storage boundary: a key→bytes store with
// put/get/delete. Document bytes are written once at upload and treated as
// immutable until delete.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound reports a missing object key.
var ErrNotFound = errors.New("blob: object not found")

// Store defines common object operations across backends.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
