package config

import (
	"strings"

	muerrors "github.com/zostay/go-multipart/errors"
)

// FieldKind classifies a SelectedField entry as accepting file parts
// or text parts.
type FieldKind int

const (
	// KindFile marks a SelectedField entry that matches file parts.
	KindFile FieldKind = iota
	// KindText marks a SelectedField entry that matches text parts.
	KindText
)

// SelectedField is one entry of a Fields(list) selector: a field name,
// the kind of part it matches, and its own bounds.
type SelectedField struct {
	Name             string
	Kind             FieldKind
	MaxCount         *uint64
	MaxSize          *uint64
	AllowedMimeTypes []string
}

// Selector is a closed tagged variant: Single, Array, Fields, None, or
// Any. The unexported marker method keeps the set closed so that a
// type switch over the five concrete types stays exhaustive.
type Selector interface {
	isSelector()
}

// Single accepts exactly one file for the named field; a second file
// for that name is a count-limit failure, and any other file field is
// an unknown-field event.
type Single struct {
	Name string
}

func (Single) isSelector() {}

// Array accepts up to MaxCount files for the named field. A nil
// MaxCount means unbounded.
type Array struct {
	Name     string
	MaxCount *uint64
}

func (Array) isSelector() {}

// Fields accepts exactly the named fields in List, each independently
// bounded and MIME-restricted. Names must be unique and non-empty.
type Fields struct {
	List []SelectedField
}

func (Fields) isSelector() {}

// None accepts no file fields. Text fields are unaffected: they are
// orthogonal to the file-selector semantics.
type None struct{}

func (None) isSelector() {}

// Any accepts every file field with no per-field bookkeeping.
type Any struct{}

func (Any) isSelector() {}

// validateSelector checks the selector's own invariants: non-empty trimmed
// names, positive explicit counts, and (for Fields) non-empty, unique
// entries.
func validateSelector(s Selector) error {
	switch sel := s.(type) {
	case Single:
		return validateFieldName(sel.Name)
	case Array:
		if err := validateFieldName(sel.Name); err != nil {
			return err
		}
		return validatePositiveCount(sel.Name, sel.MaxCount)
	case Fields:
		if len(sel.List) == 0 {
			return muerrors.NewConfigError("fields selector must name at least one field")
		}
		seen := make(map[string]struct{}, len(sel.List))
		for _, f := range sel.List {
			if err := validateFieldName(f.Name); err != nil {
				return err
			}
			if _, dup := seen[f.Name]; dup {
				return muerrors.NewFieldConfigError(f.Name, "duplicate field name in fields selector")
			}
			seen[f.Name] = struct{}{}
			if err := validatePositiveCount(f.Name, f.MaxCount); err != nil {
				return err
			}
			if err := validatePositiveSize(f.Name, f.MaxSize); err != nil {
				return err
			}
			for _, pattern := range f.AllowedMimeTypes {
				if !isValidMimePattern(pattern) {
					return muerrors.NewFieldConfigError(f.Name, "invalid mime pattern: "+pattern)
				}
			}
		}
		return nil
	case None, Any:
		return nil
	default:
		return muerrors.NewConfigError("unknown selector variant")
	}
}

func validateFieldName(name string) error {
	if strings.TrimSpace(name) == "" {
		return muerrors.NewConfigError("field name must not be empty")
	}
	return nil
}

func validatePositiveCount(field string, count *uint64) error {
	if count != nil && *count == 0 {
		return muerrors.NewFieldConfigError(field, "max count must be greater than zero")
	}
	return nil
}

func validatePositiveSize(field string, size *uint64) error {
	if size != nil && *size == 0 {
		return muerrors.NewFieldConfigError(field, "max size must be greater than zero")
	}
	return nil
}

// isValidMimePattern accepts "type/*" (type token validated alone) and
// "type/subtype" (both tokens validated).
func isValidMimePattern(pattern string) bool {
	idx := strings.IndexByte(pattern, '/')
	if idx <= 0 || idx == len(pattern)-1 {
		return false
	}
	typ, sub := pattern[:idx], pattern[idx+1:]
	if sub == "*" {
		return isValidMimeToken(typ)
	}
	return isValidMimeToken(typ) && isValidMimeToken(sub)
}

func isValidMimeToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isMimeTokenChar(r) {
			return false
		}
	}
	return true
}

// isMimeTokenChar accepts RFC 2045 token characters relevant to
// type/subtype names: letters, digits, and a handful of punctuation
// marks; this is deliberately narrower than the full RFC 2045 tspecials
// complement since MIME essences in practice never use the wider set.
func isMimeTokenChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case strings.ContainsRune("!#$&.+-^_", r):
		return true
	default:
		return false
	}
}
