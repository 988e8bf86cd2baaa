package staging

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mediasync/internal/domain"
	"mediasync/pkg/zip"
)

const (
	tempPattern = ".tmp-*"
	// StaleTempAge is how old an unpublished write must be before Purge
	// treats it as abandoned.
	StaleTempAge = 15 * time.Minute
)

// FileStore keeps staged derivatives under <root>/thumbnails and <root>/large.
type FileStore struct {
	basePath string
}

// NewFileStore initializes a FileStore rooted at basePath. Class directories
// are created lazily on first write.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("staging: base path is required")
	}
	if !filepath.IsAbs(basePath) {
		if abs, err := filepath.Abs(basePath); err == nil {
			basePath = abs
		}
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("staging: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// List returns the regular files of class sorted by name. A missing
// directory is reported as empty.
func (s *FileStore) List(ctx context.Context, class domain.StagingClass) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.classDir(class)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("staging: read %s: %w", class, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Write stores data as class/name, replacing any previous file.
func (s *FileStore) Write(ctx context.Context, class domain.StagingClass, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.classDir(class)
	if err != nil {
		return err
	}
	cleanName, err := sanitizeName(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("staging: ensure directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("staging: create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("staging: write %s/%s: %w", class, cleanName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("staging: close %s/%s: %w", class, cleanName, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("staging: chmod %s/%s: %w", class, cleanName, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, cleanName)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("staging: publish %s/%s: %w", class, cleanName, err)
	}
	return nil
}

// Bundle zips every staged file as <class>/<name>.
func (s *FileStore) Bundle(ctx context.Context) ([]byte, error) {
	var entries []zip.Entry
	for _, class := range domain.StagingClasses {
		names, err := s.List(ctx, class)
		if err != nil {
			return nil, err
		}
		dir, _ := s.classDir(class)
		for _, name := range names {
			path := filepath.Join(dir, name)
			data, err := os.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				// purged between List and ReadFile
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("staging: read %s/%s: %w", class, name, err)
			}
			entry := zip.Entry{Name: string(class) + "/" + name, Data: data}
			if info, err := os.Stat(path); err == nil {
				entry.Modified = info.ModTime()
			}
			entries = append(entries, entry)
		}
	}
	if len(entries) == 0 {
		return nil, ErrNothingToBundle
	}
	return zip.Archive(entries)
}

// Purge deletes every staged file and returns how many were removed.
// Abandoned temp files from interrupted writes are removed too but are not
// counted.
func (s *FileStore) Purge(ctx context.Context) (int, error) {
	deleted := 0
	for _, class := range domain.StagingClasses {
		names, err := s.List(ctx, class)
		if err != nil {
			return deleted, err
		}
		dir, _ := s.classDir(class)
		if err := removeStaleTemps(dir, time.Now().Add(-StaleTempAge)); err != nil {
			return deleted, fmt.Errorf("staging: clean %s: %w", class, err)
		}
		for _, name := range names {
			err := os.Remove(filepath.Join(dir, name))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return deleted, fmt.Errorf("staging: remove %s/%s: %w", class, name, err)
			}
			deleted++
		}
	}
	return deleted, nil
}

// removeStaleTemps deletes temp files last modified before cutoff. Younger
// ones may belong to a Write still in flight.
func removeStaleTemps(dir string, cutoff time.Time) error {
	matches, err := filepath.Glob(filepath.Join(dir, tempPattern))
	if err != nil {
		return err
	}
	for _, path := range matches {
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *FileStore) classDir(class domain.StagingClass) (string, error) {
	if s == nil {
		return "", errors.New("staging: no store configured")
	}
	if !class.Valid() {
		return "", fmt.Errorf("staging: unknown class %q", class)
	}
	return filepath.Join(s.basePath, string(class)), nil
}

// sanitizeName accepts a bare file name only; separators and dot names are
// rejected so a write can never leave its class directory.
func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("staging: file name is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("staging: invalid file name %q", name)
	}
	return name, nil
}

var _ Store = (*FileStore)(nil)
