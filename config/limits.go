// Package config holds the multipart core's configuration surface:
// Limits, the Selector variants, UnknownFieldPolicy, and the
// MulterConfig aggregate, plus the builder used to assemble one.
package config

// Limits carries optional budgets. A nil pointer field means
// unbounded.
type Limits struct {
	// MaxFileSize bounds the body size of any single file part.
	MaxFileSize *uint64
	// MaxFieldSize bounds the body size of any single text part.
	MaxFieldSize *uint64
	// MaxFiles bounds the total number of accepted file parts.
	MaxFiles *uint64
	// MaxFields bounds the total number of accepted text parts.
	MaxFields *uint64
	// MaxBodySize bounds total upstream bytes read, across all parts.
	MaxBodySize *uint64
	// AllowedMimeTypes is a global MIME allow-list; patterns are
	// either "type/subtype" or "type/*". Empty means unrestricted.
	AllowedMimeTypes []string
}

// Uint64Ptr is a small convenience constructor, since Go has no
// integer-literal-to-pointer syntax.
func Uint64Ptr(v uint64) *uint64 { return &v }
