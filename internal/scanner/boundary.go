package scanner

import (
	"strings"
	"unicode/utf8"

	muerrors "github.com/zostay/go-multipart/errors"
)

const maxBoundaryLen = 70

// ValidateBoundary checks the boundary against the RFC 2046 rules: it
// must be non-empty, at most 70 ASCII characters, must not end with a
// space, and may use only the bcharsnospace set plus space.
func ValidateBoundary(boundary string) error {
	if boundary == "" {
		return muerrors.NewParseError("multipart boundary cannot be empty")
	}
	if len(boundary) > maxBoundaryLen {
		return muerrors.NewParseError("multipart boundary cannot exceed 70 characters")
	}
	if strings.HasSuffix(boundary, " ") {
		return muerrors.NewParseError("multipart boundary cannot end with whitespace")
	}
	for _, r := range boundary {
		if !isBoundaryChar(r) {
			return muerrors.NewParseError("multipart boundary contains invalid characters")
		}
	}
	return nil
}

func isBoundaryChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case strings.ContainsRune("'()+_,-./:=? ", r):
		return true
	default:
		return false
	}
}

// DecodeBoundaryPercentEncoding percent-decodes a boundary parameter
// value, validating the result as UTF-8.
func DecodeBoundaryPercentEncoding(boundary string) (string, error) {
	if !strings.ContainsRune(boundary, '%') {
		return boundary, nil
	}

	raw := []byte(boundary)
	out := make([]byte, 0, len(raw))
	i := 0
	for i < len(raw) {
		if raw[i] == '%' {
			if i+2 >= len(raw) {
				return "", muerrors.NewParseError("invalid percent-encoding in multipart boundary")
			}
			hi, err := hexDigit(raw[i+1])
			if err != nil {
				return "", err
			}
			lo, err := hexDigit(raw[i+2])
			if err != nil {
				return "", err
			}
			out = append(out, (hi<<4)|lo)
			i += 3
			continue
		}
		out = append(out, raw[i])
		i++
	}
	if !utf8.Valid(out) {
		return "", muerrors.NewParseError("multipart boundary percent-encoding is not valid UTF-8")
	}
	return string(out), nil
}

func hexDigit(b byte) (byte, error) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', nil
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, nil
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, nil
	default:
		return 0, muerrors.NewParseError("invalid percent-encoding in multipart boundary")
	}
}
