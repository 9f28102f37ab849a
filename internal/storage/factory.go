package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fruitsalade/mediagen/internal/storage/local"
	s3backend "github.com/fruitsalade/mediagen/internal/storage/s3"
)

// ErrUnknownBackend is returned by Open for an unsupported backend type.
var ErrUnknownBackend = errors.New("unknown backend type")

// Open builds the backend named by backendType from its JSON config. An
// empty type means mirroring is disabled: Open returns a nil Backend and no
// error.
func Open(ctx context.Context, backendType string, config json.RawMessage) (Backend, error) {
	if len(config) == 0 {
		config = json.RawMessage("{}")
	}
	switch strings.ToLower(strings.TrimSpace(backendType)) {
	case "":
		return nil, nil
	case local.Type:
		b, err := local.NewFromJSON(config)
		if err != nil {
			return nil, err
		}
		return b, nil
	case s3backend.Type:
		b, err := s3backend.NewBackendFromJSON(ctx, config)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backendType)
}

// Known reports whether Open accepts backendType.
func Known(backendType string) bool {
	switch strings.ToLower(strings.TrimSpace(backendType)) {
	case local.Type, s3backend.Type:
		return true
	}
	return false
}
