// Package connector defines the storage-facing interfaces referenced by
// spec §6.3. Core packages (stream, window, watermark, flow, plan,
// operator, resilience, engine) never import connector or any concrete
// implementation under it; a Source or Sink built against a connector is
// wired in by the caller that assembles a plan, keeping the dataflow core
// free of any particular storage technology.
package connector

import (
	"context"
	"io"
)

// Record is one keyed, opaque payload read from or written to a
// RecordStore.
type Record struct {
	Key        string
	Value      []byte
	Attributes map[string]string
}

// RecordStore is a keyed record store a Source or Sink can read from or
// write to in batches.
type RecordStore interface {
	Open(ctx context.Context) error
	Read(ctx context.Context, key string) (*Record, error)
	WriteBatch(ctx context.Context, records []Record) error
	Close(ctx context.Context) error
}

// Entry describes one object discovered by BlobStore.List: its URI, whether
// it is itself a directory/prefix, and its size in bytes (0 for
// directories).
type Entry struct {
	URI         string
	IsDirectory bool
	Size        int64
}

// BlobStore is an unstructured, URI-addressed byte store for connectors
// that move whole objects rather than discrete records (spec §6.3:
// open_read/open_write/list/exists).
type BlobStore interface {
	Open(ctx context.Context) error

	// OpenRead returns a stream positioned at the start of uri's contents.
	// The caller must Close it.
	OpenRead(ctx context.Context, uri string) (io.ReadCloser, error)

	// OpenWrite returns a stream that (over)writes uri's contents; the
	// write is not guaranteed durable until the returned writer is closed.
	OpenWrite(ctx context.Context, uri string) (io.WriteCloser, error)

	// List enumerates entries under prefix. If recursive is false, only
	// the immediate children of prefix are returned (subdirectories are
	// reported as Entry.IsDirectory without descending into them).
	List(ctx context.Context, prefix string, recursive bool) ([]Entry, error)

	// Exists reports whether uri names an object or directory in the store.
	Exists(ctx context.Context, uri string) (bool, error)

	Close(ctx context.Context) error
}
