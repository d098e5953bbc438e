// Package fs implements connector.BlobStore against a local filesystem
// directory tree. No object-storage SDK appears anywhere in the teacher
// pack's dependency surface, so this reference BlobStore is built on
// os/io/filepath directly rather than reaching for an out-of-pack S3 or GCS
// client; callers that need a cloud object store implement the same
// interface against their own SDK of choice.
package fs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/flowmesh/flowmesh/connector"
)

// Store implements connector.BlobStore rooted at a local directory. Every
// uri passed to its methods is treated as a slash-separated path relative
// to root; absolute paths and uris that still climb above root after
// cleaning (a leading "..") are rejected so a caller cannot escape root.
type Store struct {
	root string
}

var _ connector.BlobStore = (*Store)(nil)

// NewStore returns a Store rooted at root. root need not exist yet; Open
// creates it.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Open ensures the root directory exists.
func (s *Store) Open(ctx context.Context) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("connector/fs: create root %s: %w", s.root, err)
	}
	return nil
}

func (s *Store) resolve(uri string) (string, error) {
	clean := filepath.Clean(uri)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("connector/fs: uri %q escapes store root", uri)
	}
	return filepath.Join(s.root, clean), nil
}

// OpenRead opens uri for reading. The caller must Close the returned file.
func (s *Store) OpenRead(ctx context.Context, uri string) (io.ReadCloser, error) {
	path, err := s.resolve(uri)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("connector/fs: open %s: %w", uri, err)
	}
	return f, nil
}

// OpenWrite truncates (or creates) uri for writing, creating any missing
// parent directories. The caller must Close the returned file to flush it.
func (s *Store) OpenWrite(ctx context.Context, uri string) (io.WriteCloser, error) {
	path, err := s.resolve(uri)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("connector/fs: create parent dirs for %s: %w", uri, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("connector/fs: create %s: %w", uri, err)
	}
	return f, nil
}

// List enumerates entries under prefix. With recursive false it returns
// only prefix's immediate children; with recursive true it walks the whole
// subtree and returns files only (directories are still descended into but
// not themselves reported, matching a recursive object-store listing).
func (s *Store) List(ctx context.Context, prefix string, recursive bool) ([]connector.Entry, error) {
	dir, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connector/fs: stat %s: %w", prefix, err)
	}
	if !info.IsDir() {
		return []connector.Entry{{URI: prefix, Size: info.Size()}}, nil
	}

	var entries []connector.Entry
	if !recursive {
		children, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("connector/fs: read dir %s: %w", prefix, err)
		}
		for _, c := range children {
			childInfo, err := c.Info()
			if err != nil {
				return nil, fmt.Errorf("connector/fs: stat %s/%s: %w", prefix, c.Name(), err)
			}
			size := childInfo.Size()
			if c.IsDir() {
				size = 0
			}
			entries = append(entries, connector.Entry{
				URI:         filepath.ToSlash(filepath.Join(prefix, c.Name())),
				IsDirectory: c.IsDir(),
				Size:        size,
			})
		}
		return entries, nil
	}

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == dir || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, connector.Entry{URI: filepath.ToSlash(rel), Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connector/fs: walk %s: %w", prefix, err)
	}
	return entries, nil
}

// Exists reports whether uri names a file or directory under root.
func (s *Store) Exists(ctx context.Context, uri string) (bool, error) {
	path, err := s.resolve(uri)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("connector/fs: stat %s: %w", uri, err)
	}
	return true, nil
}

// Close is a no-op; the store holds no handles between calls.
func (s *Store) Close(ctx context.Context) error { return nil }
