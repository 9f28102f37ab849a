// Package mirror publishes successfully generated versions to a storage
// backend. Upload failures are logged and counted; they never turn a
// generated version into a failed one.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fruitsalade/mediagen/internal/generator"
	"github.com/fruitsalade/mediagen/internal/logging"
	"github.com/fruitsalade/mediagen/internal/media"
	"github.com/fruitsalade/mediagen/internal/metrics"
	"github.com/fruitsalade/mediagen/internal/retry"
	"github.com/fruitsalade/mediagen/internal/storage"
)

// Upload is the result of publishing one outcome.
type Upload struct {
	Version string
	Key     string
	Size    int64
	Err     error
}

// Mirror uploads outcome files under "<version>/<file name>".
type Mirror struct {
	Backend storage.Backend
	Retry   retry.Config
}

// New creates a Mirror with the default retry policy.
func New(backend storage.Backend) *Mirror {
	return &Mirror{Backend: backend, Retry: retry.DefaultConfig()}
}

// Key returns the object key for a produced version file.
func Key(version, producedPath string) string {
	return path.Join(version, filepath.Base(producedPath))
}

// Publish uploads every successful outcome of result. Failed outcomes are
// skipped. A nil Mirror publishes nothing.
func (m *Mirror) Publish(ctx context.Context, result generator.BatchResult) []Upload {
	if m == nil || m.Backend == nil {
		return nil
	}
	var uploads []Upload
	for _, o := range result.Outcomes {
		if !o.OK {
			continue
		}
		up := m.upload(ctx, o)
		metrics.RecordMirrorUpload(up.Size, up.Err == nil)
		if up.Err != nil {
			logging.Warn("mirror: upload failed",
				zap.String("file", result.File.Path),
				zap.String("version", o.Version),
				zap.String("key", up.Key),
				zap.String("backend", m.Backend.Type()),
				zap.Error(up.Err))
		} else {
			logging.Debug("mirror: uploaded",
				zap.String("key", up.Key),
				zap.Int64("size", up.Size))
		}
		uploads = append(uploads, up)
	}
	return uploads
}

func (m *Mirror) upload(ctx context.Context, o generator.Outcome) Upload {
	up := Upload{Version: o.Version, Key: Key(o.Version, o.Path)}
	contentType := media.TypeByExtension(filepath.Ext(o.Path))

	up.Err = retry.Do(ctx, m.Retry, func(ctx context.Context) error {
		// Reopened per attempt: the body must be seekable and at offset 0.
		f, err := os.Open(o.Path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return retry.Permanent(err)
			}
			return err
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return err
		}
		up.Size = info.Size()
		if err := m.Backend.PutObject(ctx, up.Key, f, up.Size, contentType); err != nil {
			return fmt.Errorf("put %s: %w", up.Key, err)
		}
		return nil
	})
	if up.Err != nil {
		up.Size = 0
	}
	return up
}
