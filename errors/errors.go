// Package errors defines the error families produced by the multipart
// core: configuration errors (build time only), parse errors
// (structural problems in the byte stream), and policy errors (the
// typed family of limit/MIME/unknown-field failures). Storage backend
// errors are wrapped uniformly as StorageError.
package errors

import (
	"errors"
	"fmt"
)

// ErrIncompleteStream is returned when the upstream byte stream ends
// before a terminal boundary is observed.
var ErrIncompleteStream = errors.New("multipart: incomplete stream")

// ConfigError reports a problem found while validating a MulterConfig.
// It is only ever produced at build time, never while parsing a
// request body.
type ConfigError struct {
	// Field names the offending limit, selector field, or MIME
	// pattern, when applicable.
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("multipart: config: %s", e.Msg)
	}
	return fmt.Sprintf("multipart: config: %s: %s", e.Field, e.Msg)
}

// NewConfigError builds a ConfigError with no associated field.
func NewConfigError(msg string) *ConfigError {
	return &ConfigError{Msg: msg}
}

// NewFieldConfigError builds a ConfigError naming the offending field.
func NewFieldConfigError(field, msg string) *ConfigError {
	return &ConfigError{Field: field, Msg: msg}
}

// ParseError reports a structural problem in the multipart byte
// stream: a malformed boundary line, a malformed header block, invalid
// percent-encoding, non-ASCII header bytes, or non-UTF-8 text.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return fmt.Sprintf("multipart: parse: %s", e.Msg) }

// NewParseError builds a ParseError.
func NewParseError(msg string) *ParseError { return &ParseError{Msg: msg} }

// NewParseErrorf builds a ParseError with a formatted message.
func NewParseErrorf(format string, args ...any) *ParseError {
	return &ParseError{Msg: fmt.Sprintf(format, args...)}
}

// StorageError wraps an error raised by a storage engine so the
// pipeline presents a uniform error surface. The backend's original
// error is preserved via Unwrap.
type StorageError struct {
	Msg string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("multipart: storage: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("multipart: storage: %s", e.Msg)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err as a StorageError with context msg.
func NewStorageError(msg string, err error) *StorageError {
	return &StorageError{Msg: msg, Err: err}
}

// UnexpectedFieldError is returned when a field not claimed by the
// selector arrives and the UnknownFieldPolicy is Reject.
type UnexpectedFieldError struct {
	Field string
}

func (e *UnexpectedFieldError) Error() string {
	return fmt.Sprintf("multipart: unexpected field %q", e.Field)
}

// PolicyKind enumerates the typed policy-error variants.
type PolicyKind int

const (
	// FieldCountLimitExceeded fires when a field's per-field file
	// count exceeds its configured max_count.
	FieldCountLimitExceeded PolicyKind = iota
	// FileSizeLimitExceeded fires when a file part's body would
	// exceed max_file_size.
	FileSizeLimitExceeded
	// FieldSizeLimitExceeded fires when a text part's body would
	// exceed max_field_size.
	FieldSizeLimitExceeded
	// FilesLimitExceeded fires when the global file count exceeds
	// max_files.
	FilesLimitExceeded
	// FieldsLimitExceeded fires when the global text-field count
	// exceeds max_fields.
	FieldsLimitExceeded
	// BodySizeLimitExceeded fires when total upstream bytes exceed
	// max_body_size.
	BodySizeLimitExceeded
	// MimeTypeNotAllowed fires when a part's Content-Type does not
	// match any configured allow-list pattern.
	MimeTypeNotAllowed
)

func (k PolicyKind) String() string {
	switch k {
	case FieldCountLimitExceeded:
		return "FieldCountLimitExceeded"
	case FileSizeLimitExceeded:
		return "FileSizeLimitExceeded"
	case FieldSizeLimitExceeded:
		return "FieldSizeLimitExceeded"
	case FilesLimitExceeded:
		return "FilesLimitExceeded"
	case FieldsLimitExceeded:
		return "FieldsLimitExceeded"
	case BodySizeLimitExceeded:
		return "BodySizeLimitExceeded"
	case MimeTypeNotAllowed:
		return "MimeTypeNotAllowed"
	default:
		return "PolicyError"
	}
}

// PolicyError is the typed family of admission failures: limit
// overruns, MIME rejections, and count overflows. Field, Limit, and
// MIME are populated according to Kind; zero values mean "not
// applicable to this variant".
type PolicyError struct {
	Kind  PolicyKind
	Field string
	Limit uint64
	MIME  string
}

func (e *PolicyError) Error() string {
	switch e.Kind {
	case FieldCountLimitExceeded:
		return fmt.Sprintf("multipart: field %q exceeded max count %d", e.Field, e.Limit)
	case FileSizeLimitExceeded:
		return fmt.Sprintf("multipart: file field %q exceeded max file size %d", e.Field, e.Limit)
	case FieldSizeLimitExceeded:
		return fmt.Sprintf("multipart: text field %q exceeded max field size %d", e.Field, e.Limit)
	case FilesLimitExceeded:
		return fmt.Sprintf("multipart: exceeded max files %d", e.Limit)
	case FieldsLimitExceeded:
		return fmt.Sprintf("multipart: exceeded max fields %d", e.Limit)
	case BodySizeLimitExceeded:
		return fmt.Sprintf("multipart: exceeded max body size %d", e.Limit)
	case MimeTypeNotAllowed:
		return fmt.Sprintf("multipart: field %q has disallowed mime type %q", e.Field, e.MIME)
	default:
		return "multipart: policy error"
	}
}

// NewFieldCountLimitExceeded builds the FieldCountLimitExceeded variant.
func NewFieldCountLimitExceeded(field string, maxCount uint64) *PolicyError {
	return &PolicyError{Kind: FieldCountLimitExceeded, Field: field, Limit: maxCount}
}

// NewFileSizeLimitExceeded builds the FileSizeLimitExceeded variant.
func NewFileSizeLimitExceeded(field string, maxFileSize uint64) *PolicyError {
	return &PolicyError{Kind: FileSizeLimitExceeded, Field: field, Limit: maxFileSize}
}

// NewFieldSizeLimitExceeded builds the FieldSizeLimitExceeded variant.
func NewFieldSizeLimitExceeded(field string, maxFieldSize uint64) *PolicyError {
	return &PolicyError{Kind: FieldSizeLimitExceeded, Field: field, Limit: maxFieldSize}
}

// NewFilesLimitExceeded builds the FilesLimitExceeded variant.
func NewFilesLimitExceeded(maxFiles uint64) *PolicyError {
	return &PolicyError{Kind: FilesLimitExceeded, Limit: maxFiles}
}

// NewFieldsLimitExceeded builds the FieldsLimitExceeded variant.
func NewFieldsLimitExceeded(maxFields uint64) *PolicyError {
	return &PolicyError{Kind: FieldsLimitExceeded, Limit: maxFields}
}

// NewBodySizeLimitExceeded builds the BodySizeLimitExceeded variant.
func NewBodySizeLimitExceeded(maxBodySize uint64) *PolicyError {
	return &PolicyError{Kind: BodySizeLimitExceeded, Limit: maxBodySize}
}

// NewMimeTypeNotAllowed builds the MimeTypeNotAllowed variant.
func NewMimeTypeNotAllowed(field, mime string) *PolicyError {
	return &PolicyError{Kind: MimeTypeNotAllowed, Field: field, MIME: mime}
}
