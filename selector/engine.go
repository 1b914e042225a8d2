// Package selector decides whether an incoming part is admitted,
// ignored, or rejected, given the configured Selector,
// UnknownFieldPolicy, and MIME allow-lists, and tracks the per-field
// and global counters those decisions depend on.
package selector

import (
	"strings"

	"github.com/zostay/go-multipart/config"
	muerrors "github.com/zostay/go-multipart/errors"
	"github.com/zostay/go-multipart/internal/headerparse"
)

// Action is the engine's verdict for one incoming part.
type Action int

const (
	// Accept admits the part; the caller should construct a Part and
	// yield it.
	Accept Action = iota
	// Ignore silently drains and discards the part's body.
	Ignore
)

// Engine evaluates admission decisions and tracks the per-field and
// global counters required to do so across the lifetime of one
// Multipart.
type Engine struct {
	selector config.Selector
	policy   config.UnknownFieldPolicy
	limits   config.Limits

	fileCount  uint64
	fieldCount uint64

	perFieldFileCount map[string]uint64
}

// New builds an Engine from a validated MulterConfig.
func New(cfg config.MulterConfig) *Engine {
	return &Engine{
		selector:          cfg.Selector,
		policy:            cfg.UnknownFieldPolicy,
		limits:            cfg.Limits,
		perFieldFileCount: make(map[string]uint64),
	}
}

// Evaluate returns the action for one part, given its field name,
// whether it is a file part, and its Content-Type. It also returns the
// per-part max size that should apply if the part is accepted (nil
// means unbounded), and updates internal counters on Accept.
func (e *Engine) Evaluate(fieldName string, isFile bool, contentType string) (Action, *uint64, error) {
	if !isFile {
		return e.evaluateText(fieldName, contentType)
	}
	return e.evaluateFile(fieldName, contentType)
}

func (e *Engine) evaluateText(fieldName, contentType string) (Action, *uint64, error) {
	// The global MIME allow-list governs file uploads only; a text
	// field is never gated by it. A per-field list on a Fields text
	// entry is explicit configuration and still applies.
	if fields, ok := e.selector.(config.Fields); ok {
		field, found := findField(fields.List, fieldName, config.KindText)
		if !found {
			return e.unknown(fieldName)
		}
		if len(field.AllowedMimeTypes) > 0 && !matchesAny(field.AllowedMimeTypes, contentType) {
			return Ignore, nil, muerrors.NewMimeTypeNotAllowed(fieldName, contentType)
		}
		if err := e.bumpFields(); err != nil {
			return Ignore, nil, err
		}
		return Accept, sizeOrDefault(field.MaxSize, e.limits.MaxFieldSize), nil
	}

	// Single, Array, Any, None: text fields are orthogonal to the
	// file-selector semantics and are always accepted, subject only to
	// the global max_fields count.
	if err := e.bumpFields(); err != nil {
		return Ignore, nil, err
	}
	return Accept, e.limits.MaxFieldSize, nil
}

func (e *Engine) evaluateFile(fieldName, contentType string) (Action, *uint64, error) {
	switch sel := e.selector.(type) {
	case config.Single:
		if fieldName != sel.Name {
			return e.unknown(fieldName)
		}
		one := uint64(1)
		if err := e.bumpPerFieldFile(fieldName, &one); err != nil {
			return Ignore, nil, err
		}
		if err := e.checkMime(nil, fieldName, contentType); err != nil {
			return Ignore, nil, err
		}
		if err := e.bumpFiles(); err != nil {
			return Ignore, nil, err
		}
		return Accept, e.limits.MaxFileSize, nil

	case config.Array:
		if fieldName != sel.Name {
			return e.unknown(fieldName)
		}
		if err := e.bumpPerFieldFile(fieldName, sel.MaxCount); err != nil {
			return Ignore, nil, err
		}
		if err := e.checkMime(nil, fieldName, contentType); err != nil {
			return Ignore, nil, err
		}
		if err := e.bumpFiles(); err != nil {
			return Ignore, nil, err
		}
		return Accept, e.limits.MaxFileSize, nil

	case config.Fields:
		field, found := findField(sel.List, fieldName, config.KindFile)
		if !found {
			return e.unknown(fieldName)
		}
		if err := e.bumpPerFieldFile(fieldName, field.MaxCount); err != nil {
			return Ignore, nil, err
		}
		if err := e.checkMime(field.AllowedMimeTypes, fieldName, contentType); err != nil {
			return Ignore, nil, err
		}
		if err := e.bumpFiles(); err != nil {
			return Ignore, nil, err
		}
		return Accept, sizeOrDefault(field.MaxSize, e.limits.MaxFileSize), nil

	case config.None:
		return e.unknown(fieldName)

	case config.Any:
		if err := e.checkMime(nil, fieldName, contentType); err != nil {
			return Ignore, nil, err
		}
		if err := e.bumpFiles(); err != nil {
			return Ignore, nil, err
		}
		return Accept, e.limits.MaxFileSize, nil

	default:
		return e.unknown(fieldName)
	}
}

func (e *Engine) unknown(fieldName string) (Action, *uint64, error) {
	if e.policy == config.PolicyReject {
		return Ignore, nil, &muerrors.UnexpectedFieldError{Field: fieldName}
	}
	return Ignore, nil, nil
}

func (e *Engine) bumpPerFieldFile(fieldName string, maxCount *uint64) error {
	n := e.perFieldFileCount[fieldName] + 1
	if maxCount != nil && n > *maxCount {
		return muerrors.NewFieldCountLimitExceeded(fieldName, *maxCount)
	}
	e.perFieldFileCount[fieldName] = n
	return nil
}

func (e *Engine) bumpFiles() error {
	e.fileCount++
	if e.limits.MaxFiles != nil && e.fileCount > *e.limits.MaxFiles {
		return muerrors.NewFilesLimitExceeded(*e.limits.MaxFiles)
	}
	return nil
}

func (e *Engine) bumpFields() error {
	e.fieldCount++
	if e.limits.MaxFields != nil && e.fieldCount > *e.limits.MaxFields {
		return muerrors.NewFieldsLimitExceeded(*e.limits.MaxFields)
	}
	return nil
}

// checkMime applies the per-field allow-list (if non-empty) then the
// global allow-list (if non-empty); both must match.
func (e *Engine) checkMime(perField []string, fieldName, contentType string) error {
	if len(perField) > 0 && !matchesAny(perField, contentType) {
		return muerrors.NewMimeTypeNotAllowed(fieldName, contentType)
	}
	if len(e.limits.AllowedMimeTypes) > 0 && !matchesAny(e.limits.AllowedMimeTypes, contentType) {
		return muerrors.NewMimeTypeNotAllowed(fieldName, contentType)
	}
	return nil
}

func matchesAny(patterns []string, contentType string) bool {
	essence := headerparse.Essence(contentType)
	for _, p := range patterns {
		if matchesPattern(p, essence) {
			return true
		}
	}
	return false
}

func matchesPattern(pattern, essence string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	idx := strings.IndexByte(pattern, '/')
	if idx < 0 {
		return false
	}
	ptype, psub := pattern[:idx], pattern[idx+1:]

	eidx := strings.IndexByte(essence, '/')
	if eidx < 0 {
		return false
	}
	etype, esub := essence[:eidx], essence[eidx+1:]

	if ptype != etype {
		return false
	}
	return psub == "*" || psub == esub
}

// sizeOrDefault prefers a field's own size bound, falling back to the
// global per-part limit when the field doesn't set one.
func sizeOrDefault(v, def *uint64) *uint64 {
	if v != nil {
		return v
	}
	return def
}

func findField(list []config.SelectedField, name string, kind config.FieldKind) (config.SelectedField, bool) {
	for _, f := range list {
		if f.Name == name && f.Kind == kind {
			return f, true
		}
	}
	return config.SelectedField{}, false
}
