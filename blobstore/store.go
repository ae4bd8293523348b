// Package blobstore abstracts where snapshots are kept.
//
// A Store holds named immutable blobs. The in-memory and local-filesystem
// implementations live here; S3-compatible backends live in the s3 and minio
// subpackages.
package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a blob does not exist. Implementations return
// errors satisfying errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("blobstore: blob not found")

// Store is a named blob container.
type Store interface {
	// Put stores the contents of r under name, replacing any existing blob.
	Put(ctx context.Context, name string, r io.Reader) error

	// Open opens the blob stored under name for reading.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete removes the blob stored under name. Deleting a missing blob is
	// not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all blobs with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
