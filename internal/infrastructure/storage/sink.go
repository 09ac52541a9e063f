// Package storage holds the destinations exported result tables are written
// to.
package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OperaLab/pkg/errors"
)

// Content types used by exports.
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeJSON = "application/json"
)

// Sink stores named objects.  Names use forward slashes and are relative;
// Put returns the location the object was written to.
type Sink interface {
	Name() string
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// CleanName validates an object name and returns it in canonical form.
func CleanName(name string) (string, error) {
	n := strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if n == "" || strings.HasPrefix(n, "/") {
		return "", errors.InvalidParam("object name must be a non-empty relative path").WithDetail(name)
	}
	for _, part := range strings.Split(n, "/") {
		if part == ".." {
			return "", errors.InvalidParam("object name must not leave the sink").WithDetail(name)
		}
	}
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(n)), "./"), nil
}

// DirSink writes objects below a local directory.
type DirSink struct {
	root   string
	logger logging.Logger
}

// NewDirSink returns a sink rooted at dir.  The directory is created on
// first write.
func NewDirSink(dir string, logger logging.Logger) (*DirSink, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.InvalidParam("export directory is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &DirSink{root: dir, logger: logger.Named("dirsink")}, nil
}

// Name implements Sink.
func (s *DirSink) Name() string { return "dir" }

// Root returns the sink directory.
func (s *DirSink) Root() string { return s.root }

// Put implements Sink.  Existing files are replaced.
func (s *DirSink) Put(ctx context.Context, name, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeCanceled, "export canceled")
	}
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorage, "failed to create export directory").WithDetail(filepath.Dir(path))
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorage, "failed to write export").WithDetail(path)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", errors.Wrap(err, errors.ErrCodeStorage, "failed to write export").WithDetail(path)
	}
	s.logger.Debug("export written", logging.String("path", path), logging.Int("bytes", len(data)))
	return path, nil
}
