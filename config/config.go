package config

import (
	muerrors "github.com/zostay/go-multipart/errors"
)

// MulterConfig aggregates the selector, the unknown-field policy, and
// the limits that together drive one parser instance. It is immutable
// once validated; build one via Builder.
type MulterConfig struct {
	Selector           Selector
	UnknownFieldPolicy UnknownFieldPolicy
	Limits             Limits
}

// DefaultConfig returns the zero-value configuration: Selector Any,
// UnknownFieldPolicy Ignore, and unbounded Limits. Builder.Build and
// the root package's New and NewMulter all run Validate on the
// configuration they are given.
func DefaultConfig() MulterConfig {
	return MulterConfig{
		Selector:           Any{},
		UnknownFieldPolicy: PolicyIgnore,
	}
}

// Validate checks every configuration invariant: non-empty trimmed
// names, positive explicit counts/sizes, no per-part limit exceeding
// MaxBodySize, and well-formed MIME patterns.
func (c MulterConfig) Validate() error {
	if c.Selector == nil {
		return muerrors.NewConfigError("selector must not be nil")
	}
	if err := validateSelector(c.Selector); err != nil {
		return err
	}
	if err := validateLimits(c.Limits); err != nil {
		return err
	}

	// Per-field size bounds are per-part limits too and may not exceed
	// the total body budget.
	if fields, ok := c.Selector.(Fields); ok && c.Limits.MaxBodySize != nil {
		for _, f := range fields.List {
			if f.MaxSize != nil && *f.MaxSize > *c.Limits.MaxBodySize {
				return muerrors.NewFieldConfigError(f.Name, "max size exceeds max_body_size")
			}
		}
	}
	return nil
}

func validateLimits(l Limits) error {
	if err := validatePositiveU64("max_file_size", l.MaxFileSize); err != nil {
		return err
	}
	if err := validatePositiveU64("max_field_size", l.MaxFieldSize); err != nil {
		return err
	}
	if err := validatePositiveU64("max_files", l.MaxFiles); err != nil {
		return err
	}
	if err := validatePositiveU64("max_fields", l.MaxFields); err != nil {
		return err
	}
	if err := validatePositiveU64("max_body_size", l.MaxBodySize); err != nil {
		return err
	}

	if l.MaxBodySize != nil {
		if l.MaxFileSize != nil && *l.MaxFileSize > *l.MaxBodySize {
			return muerrors.NewFieldConfigError("max_file_size", "exceeds max_body_size")
		}
		if l.MaxFieldSize != nil && *l.MaxFieldSize > *l.MaxBodySize {
			return muerrors.NewFieldConfigError("max_field_size", "exceeds max_body_size")
		}
	}

	for _, pattern := range l.AllowedMimeTypes {
		if !isValidMimePattern(pattern) {
			return muerrors.NewFieldConfigError("allowed_mime_types", "invalid mime pattern: "+pattern)
		}
	}

	return nil
}

func validatePositiveU64(name string, v *uint64) error {
	if v != nil && *v == 0 {
		return muerrors.NewFieldConfigError(name, "must be greater than zero")
	}
	return nil
}
