// Package media stores work-instruction media files under a root
// directory, keyed by relative paths the instruction nodes reference.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidPath is returned for paths that escape the store root.
var ErrInvalidPath = errors.New("invalid media path")

// removeConcurrency bounds how many files a bulk removal deletes at once.
const removeConcurrency = 4

// Store is a directory-rooted media file store.
type Store struct {
	root   string
	logger *slog.Logger

	// OnRemoveFailure, when set, is called once per file that could not
	// be deleted during Remove.
	OnRemoveFailure func()
}

// NewStore creates the root directory if needed.
func NewStore(root string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating media root: %w", err)
	}
	return &Store{root: root, logger: logger}, nil
}

// Save writes a new media file and returns its store-relative path.
func (s *Store) Save(r io.Reader, ext string) (string, error) {
	ext = strings.TrimPrefix(ext, ".")
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}

	full := filepath.Join(s.root, name)
	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("creating media file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("writing media file: %w", err)
	}
	return name, nil
}

// Duplicate copies an existing file under a fresh path and returns the
// new store-relative path. Used when cloning work-instruction nodes so
// versions never share files.
func (s *Store) Duplicate(path string) (string, error) {
	src, err := s.resolve(path)
	if err != nil {
		return "", err
	}

	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("opening media file: %w", err)
	}
	defer f.Close()

	return s.Save(f, filepath.Ext(path))
}

// Open returns a reader for a stored file.
func (s *Store) Open(path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Remove deletes several files concurrently. Failures are isolated per
// item: a file that cannot be deleted is logged and the rest of the
// batch still runs. Remove itself never reports an error.
func (s *Store) Remove(ctx context.Context, paths []string) {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(removeConcurrency)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			full, err := s.resolve(path)
			if err == nil {
				err = os.Remove(full)
			}
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				s.logger.Warn("removing media file failed", "path", path, "error", err)
				if s.OnRemoveFailure != nil {
					s.OnRemoveFailure()
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

// resolve maps a store-relative path to an absolute one, rejecting
// anything that would escape the root.
func (s *Store) resolve(path string) (string, error) {
	if path == "" || filepath.IsAbs(path) {
		return "", ErrInvalidPath
	}
	full := filepath.Join(s.root, filepath.Clean(path))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", ErrInvalidPath
	}
	return full, nil
}
