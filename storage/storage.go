// Package storage defines the storage contract — a single operation
// that drains a part's body stream and returns a backend-defined
// descriptor — plus two reference engines (Memory, Disk).
package storage

import (
	"context"
	"io"
)

// FileMeta carries the metadata a storage engine needs to decide how
// and where to persist a file part.
type FileMeta struct {
	FieldName   string
	FileName    string
	HasFileName bool
	ContentType string
}

// StoredFile is the built-in file descriptor returned by the two
// reference engines.
type StoredFile struct {
	StorageKey  string
	FieldName   string
	FileName    string
	HasFileName bool
	ContentType string
	Size        uint64
	Path        string
	HasPath     bool
}

// Engine is the storage contract: consume a one-shot body stream, in
// full, or return an error. Implementations must not assume body is
// restartable, and must fully drain it before returning (or return an
// error) — leaving it undrained is a contract violation the pipeline
// treats as a stalled part. ctx governs the engine's own I/O (e.g. a
// disk write); implementations should stop early when it is canceled.
type Engine interface {
	Store(ctx context.Context, meta FileMeta, body io.Reader) (StoredFile, error)
}
