// Package storage defines the object-store Backend that generated versions
// are mirrored to, and builds backends from their JSON configuration.
package storage

import (
	"context"
	"io"
)

// Backend stores objects by key. Keys use forward slashes.
type Backend interface {
	// PutObject uploads size bytes from body to key, replacing any
	// existing object.
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error

	// ObjectExists checks if an object exists at key.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// DeleteObject removes key. A missing key is not an error.
	DeleteObject(ctx context.Context, key string) error

	// Type returns the backend type identifier ("local", "s3").
	Type() string

	// Close releases any resources held by the backend.
	Close() error
}
