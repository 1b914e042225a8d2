package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	muerrors "github.com/zostay/go-multipart/errors"
)

// FilenameStrategy chooses how Disk derives the on-disk basename for a
// stored file.
type FilenameStrategy int

const (
	// FilenameKeep keeps the incoming filename, sanitized.
	FilenameKeep FilenameStrategy = iota
	// FilenameRandom always generates a random filename.
	FilenameRandom
)

// CustomFilenameFunc transforms the input basename (the part's
// filename, or a random one if absent) into the candidate name that
// will then be sanitized.
type CustomFilenameFunc func(input string) string

// PrePersistFilter inspects a file part's metadata before any bytes
// are written and may reject it by returning an error; the error is
// wrapped as a StorageError by Store.
type PrePersistFilter func(meta FileMeta) error

// DiskBuilder configures a Disk storage engine.
type DiskBuilder struct {
	root     string
	strategy FilenameStrategy
	custom   CustomFilenameFunc
	filter   PrePersistFilter
}

// NewDiskBuilder starts from the default root (the OS temp directory
// joined with a module-specific subdirectory) and FilenameRandom.
func NewDiskBuilder() *DiskBuilder {
	return &DiskBuilder{
		root:     filepath.Join(os.TempDir(), "go-multipart"),
		strategy: FilenameRandom,
	}
}

// Path sets the destination directory.
func (b *DiskBuilder) Path(root string) *DiskBuilder {
	b.root = root
	return b
}

// Strategy sets the filename strategy.
func (b *DiskBuilder) Strategy(s FilenameStrategy) *DiskBuilder {
	b.strategy = s
	b.custom = nil
	return b
}

// CustomFilename installs a custom filename transform, overriding
// Strategy.
func (b *DiskBuilder) CustomFilename(fn CustomFilenameFunc) *DiskBuilder {
	b.custom = fn
	return b
}

// Filter installs a pre-persist filter: Store consults it before
// creating the destination directory entry for a file, letting the
// caller reject uploads by field name, file name, or content type
// without ever opening a file handle.
func (b *DiskBuilder) Filter(fn PrePersistFilter) *DiskBuilder {
	b.filter = fn
	return b
}

// Build validates and returns the configured Disk engine.
func (b *DiskBuilder) Build() (*Disk, error) {
	if strings.TrimSpace(b.root) == "" {
		return nil, muerrors.NewStorageError("disk storage root path cannot be empty", nil)
	}
	return &Disk{root: b.root, strategy: b.strategy, custom: b.custom, filter: b.filter}, nil
}

// Disk is a disk-backed storage engine writing files under a
// configured root directory.
type Disk struct {
	root     string
	strategy FilenameStrategy
	custom   CustomFilenameFunc
	filter   PrePersistFilter
}

// Store creates the destination directory if needed, derives and
// sanitizes the output filename per the configured strategy, resolves
// name collisions with a random suffix, and streams the body to disk.
// If a PrePersistFilter was installed, it is consulted first and may
// reject the file before any path is touched.
func (d *Disk) Store(ctx context.Context, meta FileMeta, body io.Reader) (StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return StoredFile{}, muerrors.NewStorageError("context canceled before store", err)
	}

	if d.filter != nil {
		if err := d.filter(meta); err != nil {
			return StoredFile{}, muerrors.NewStorageError("rejected by pre-persist filter", err)
		}
	}

	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return StoredFile{}, muerrors.NewStorageError("failed to create storage directory", err)
	}

	basename := d.chooseOutputName(meta)
	outputPath := filepath.Join(d.root, basename)

	if _, err := os.Stat(outputPath); err == nil {
		outputPath = withCollisionSuffix(outputPath)
	} else if !os.IsNotExist(err) {
		return StoredFile{}, muerrors.NewStorageError("failed to inspect output path", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return StoredFile{}, muerrors.NewStorageError("failed to create output file", err)
	}
	defer f.Close()

	written, err := io.Copy(f, ctxReader{ctx: ctx, r: body})
	if err != nil {
		return StoredFile{}, muerrors.NewStorageError("failed to write output file", err)
	}
	if err := f.Sync(); err != nil {
		return StoredFile{}, muerrors.NewStorageError("failed to flush output file", err)
	}

	return StoredFile{
		StorageKey:  outputPath,
		FieldName:   meta.FieldName,
		FileName:    meta.FileName,
		HasFileName: meta.HasFileName,
		ContentType: meta.ContentType,
		Size:        uint64(written),
		Path:        outputPath,
		HasPath:     true,
	}, nil
}

// ctxReader wraps an io.Reader and checks ctx before each Read, so a
// long io.Copy to disk aborts promptly on cancellation.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func (d *Disk) chooseOutputName(meta FileMeta) string {
	inputName := meta.FileName
	if !meta.HasFileName || inputName == "" {
		inputName = randomBasename()
	}

	var candidate string
	switch {
	case d.custom != nil:
		candidate = d.custom(inputName)
	case d.strategy == FilenameRandom:
		candidate = randomBasename()
	default: // FilenameKeep
		candidate = inputName
	}

	return sanitizeFilename(candidate)
}

func randomBasename() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func withCollisionSuffix(path string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem = "file"
	}
	if ext != "" {
		return filepath.Join(dir, stem+"-"+suffix+ext)
	}
	return filepath.Join(dir, stem+"-"+suffix)
}

// sanitizeFilename strips path components, allows only
// [A-Za-z0-9._-], maps every other character to '_', trims leading
// and trailing dots/spaces, and falls back to "file" on an empty or
// dot-only result.
func sanitizeFilename(input string) string {
	base := filepath.Base(input)
	if base == "." || base == string(filepath.Separator) {
		base = "file"
	}

	var b strings.Builder
	b.Grow(len(base))
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	sanitized := strings.Trim(b.String(), ". ")
	if sanitized == "" || sanitized == "." || sanitized == ".." {
		return "file"
	}
	return sanitized
}
