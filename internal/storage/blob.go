package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrBadKey   = errors.New("invalid blob key")
	ErrNotFound = errors.New("blob not found")
)

// BlobStore keeps built packages. Keys are slash separated and relative.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error) // returns canonical key
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// PackageKey is where an exported package is kept.
func PackageKey(quizID, packageID string) string {
	return "exports/" + quizID + "/" + packageID + ".zip"
}
