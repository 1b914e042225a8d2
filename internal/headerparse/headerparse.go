// Package headerparse decodes the Content-Disposition and Content-Type
// headers of one multipart part. The Content-Disposition grammar
// (quote-aware ';' splitting, backslash-escaped quoted strings,
// RFC 5987 filename* encoding) is hand-rolled rather than built on
// stdlib mime.ParseMediaType because that helper's own percent-decoding
// and parameter-continuation rules diverge from the exact semantics
// required here; the simpler per-part Content-Type value is parsed with
// mime.ParseMediaType directly.
package headerparse

import (
	"mime"
	"strings"
	"unicode/utf8"

	muerrors "github.com/zostay/go-multipart/errors"
)

const defaultPartContentType = "application/octet-stream"

// ContentDisposition is the parsed Content-Disposition value of one
// part.
type ContentDisposition struct {
	Disposition string
	Name        string
	HasName     bool
	Filename    string
	HasFilename bool
}

// ParsedPartHeaders is the parsed header model for one multipart part.
type ParsedPartHeaders struct {
	ContentDisposition ContentDisposition
	FieldName          string
	FileName           string
	HasFileName        bool
	ContentType        string
	RawHeaders         RawHeaders
}

// RawHeaders is a case-insensitive, order-preserving multimap of the
// part's header lines, with surrounding whitespace trimmed from each
// name and value.
type RawHeaders struct {
	names  []string
	values [][]string
}

// Add appends value under name, preserving insertion order and the
// original casing of the first occurrence of name.
func (h *RawHeaders) Add(name, value string) {
	for i, n := range h.names {
		if strings.EqualFold(n, name) {
			h.values[i] = append(h.values[i], value)
			return
		}
	}
	h.names = append(h.names, name)
	h.values = append(h.values, []string{value})
}

// Get returns the first value stored under name, case-insensitively.
func (h *RawHeaders) Get(name string) (string, bool) {
	for i, n := range h.names {
		if strings.EqualFold(n, name) {
			if len(h.values[i]) == 0 {
				return "", false
			}
			return h.values[i][0], true
		}
	}
	return "", false
}

// Names returns the header names in first-seen order.
func (h *RawHeaders) Names() []string {
	return h.names
}

// ParseHeaderBlock splits a CRLF-joined header block (no trailing
// blank line) into a RawHeaders multimap, then parses the
// Content-Disposition and Content-Type it requires.
func ParseHeaderBlock(block []byte) (ParsedPartHeaders, error) {
	var raw RawHeaders
	lines := splitHeaderLines(block)
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		if !isASCII(line) {
			return ParsedPartHeaders{}, muerrors.NewParseError("part header must be ASCII")
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			return ParsedPartHeaders{}, muerrors.NewParseError("malformed part header line")
		}
		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if name == "" {
			return ParsedPartHeaders{}, muerrors.NewParseError("malformed part header line")
		}
		raw.Add(name, value)
	}

	dispositionRaw, ok := raw.Get("Content-Disposition")
	if !ok {
		return ParsedPartHeaders{}, muerrors.NewParseError("missing Content-Disposition header")
	}

	cd, err := ParseContentDisposition(dispositionRaw)
	if err != nil {
		return ParsedPartHeaders{}, err
	}
	if !cd.HasName {
		return ParsedPartHeaders{}, muerrors.NewParseError("missing part field name")
	}

	contentTypeRaw, hasCT := raw.Get("Content-Type")
	var ctValue string
	if hasCT {
		ctValue = contentTypeRaw
	}
	contentType, err := ParsePartContentType(ctValue, hasCT)
	if err != nil {
		return ParsedPartHeaders{}, err
	}

	return ParsedPartHeaders{
		ContentDisposition: cd,
		FieldName:          cd.Name,
		FileName:           cd.Filename,
		HasFileName:        cd.HasFilename,
		ContentType:        contentType,
		RawHeaders:         raw,
	}, nil
}

func splitHeaderLines(block []byte) []string {
	s := string(block)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

// ParseContentDisposition parses a Content-Disposition header value
// per the quote-aware grammar: disposition type, then ';'-separated
// parameters, 'name' and 'filename'/'filename*' recognized specially.
func ParseContentDisposition(value string) (ContentDisposition, error) {
	segments := splitSemicolonAware(value)
	if len(segments) == 0 {
		return ContentDisposition{}, muerrors.NewParseError("invalid Content-Disposition header")
	}

	disposition := strings.ToLower(strings.TrimSpace(segments[0]))
	if disposition == "" {
		return ContentDisposition{}, muerrors.NewParseError("invalid Content-Disposition header")
	}

	var name, filename, filenameStar string
	var hasName, hasFilename, hasFilenameStar bool

	for _, segment := range segments[1:] {
		trimmed := strings.TrimSpace(segment)
		if trimmed == "" {
			continue
		}

		eq := strings.IndexByte(trimmed, '=')
		if eq < 0 {
			return ContentDisposition{}, muerrors.NewParseError("invalid Content-Disposition parameter format")
		}
		rawKey := trimmed[:eq]
		rawValue := trimmed[eq+1:]

		key := strings.ToLower(strings.TrimSpace(rawKey))
		decoded, err := parseParameterValue(strings.TrimSpace(rawValue))
		if err != nil {
			return ContentDisposition{}, err
		}

		switch key {
		case "name":
			name, hasName = decoded, true
		case "filename":
			filename, err = parseFilenameValue(decoded)
			if err != nil {
				return ContentDisposition{}, err
			}
			hasFilename = true
		case "filename*":
			filenameStar, err = parseRFC5987Value(decoded)
			if err != nil {
				return ContentDisposition{}, err
			}
			hasFilenameStar = true
		}
	}

	if disposition == "form-data" && (!hasName || name == "") {
		return ContentDisposition{}, muerrors.NewParseError("form-data Content-Disposition must include non-empty name")
	}

	cd := ContentDisposition{
		Disposition: disposition,
		Name:        name,
		HasName:     hasName,
	}
	if hasFilenameStar {
		cd.Filename, cd.HasFilename = filenameStar, true
	} else if hasFilename {
		cd.Filename, cd.HasFilename = filename, true
	}
	return cd, nil
}

// ParsePartContentType parses the part-level Content-Type, defaulting
// to application/octet-stream when absent.
func ParsePartContentType(value string, present bool) (string, error) {
	raw := defaultPartContentType
	if present {
		raw = strings.TrimSpace(value)
		if raw == "" {
			raw = defaultPartContentType
		}
	}
	essence, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", muerrors.NewParseError("invalid part Content-Type header")
	}
	return essence, nil
}

func parseParameterValue(raw string) (string, error) {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return unescapeQuotedString(raw[1 : len(raw)-1])
	}
	if strings.ContainsRune(raw, '"') {
		return "", muerrors.NewParseError("invalid quoted parameter value")
	}
	return strings.TrimSpace(raw), nil
}

func unescapeQuotedString(value string) (string, error) {
	var out strings.Builder
	out.Grow(len(value))
	runes := []rune(value)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if ch == '\\' {
			i++
			if i >= len(runes) {
				return "", muerrors.NewParseError("dangling escape in quoted parameter")
			}
			out.WriteRune(runes[i])
			continue
		}
		out.WriteRune(ch)
	}
	return out.String(), nil
}

func parseRFC5987Value(value string) (string, error) {
	charset, encoded, ok := splitRFC5987(value)
	if !ok {
		return "", muerrors.NewParseError("invalid filename* parameter encoding")
	}
	if !strings.EqualFold(charset, "utf-8") {
		return "", muerrors.NewParseError("only UTF-8 filename* charset is supported")
	}
	return percentDecodeUTF8(
		encoded,
		"invalid percent-encoding in filename*",
		"filename* is not valid UTF-8",
	)
}

func splitRFC5987(value string) (charset, encoded string, ok bool) {
	firstQuote := strings.IndexByte(value, '\'')
	if firstQuote < 0 {
		return "", "", false
	}
	rest := value[firstQuote+1:]
	secondQuote := strings.IndexByte(rest, '\'')
	if secondQuote < 0 {
		return "", "", false
	}
	return value[:firstQuote], rest[secondQuote+1:], true
}

func parseFilenameValue(value string) (string, error) {
	if !strings.ContainsRune(value, '%') {
		return value, nil
	}
	return percentDecodeUTF8(
		value,
		"invalid percent-encoding in filename",
		"filename is not valid UTF-8",
	)
}

func percentDecodeUTF8(value, invalidEncodingMsg, invalidUTF8Msg string) (string, error) {
	raw := []byte(value)
	out := make([]byte, 0, len(raw))
	i := 0
	for i < len(raw) {
		if raw[i] == '%' {
			if i+2 >= len(raw) {
				return "", muerrors.NewParseError(invalidEncodingMsg)
			}
			hi, err := hexValue(raw[i+1], invalidEncodingMsg)
			if err != nil {
				return "", err
			}
			lo, err := hexValue(raw[i+2], invalidEncodingMsg)
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
		return "", muerrors.NewParseError(invalidUTF8Msg)
	}
	return string(out), nil
}

func hexValue(b byte, invalidEncodingMsg string) (byte, error) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', nil
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, nil
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, nil
	default:
		return 0, muerrors.NewParseError(invalidEncodingMsg)
	}
}

func splitSemicolonAware(value string) []string {
	var segments []string
	var current strings.Builder
	inQuotes := false
	escaped := false

	for _, ch := range value {
		if escaped {
			current.WriteRune(ch)
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inQuotes:
			current.WriteRune(ch)
			escaped = true
		case ch == '"':
			current.WriteRune(ch)
			inQuotes = !inQuotes
		case ch == ';' && !inQuotes:
			segments = append(segments, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	segments = append(segments, current.String())
	return segments
}

// essence returns the lower-cased essence (type/subtype, parameters
// stripped) of a media type; used by the selector/policy engine's MIME
// allow-list matching.
func essence(mimeType string) string {
	idx := strings.IndexByte(mimeType, ';')
	if idx >= 0 {
		mimeType = mimeType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// Essence exposes essence for the selector package.
func Essence(mimeType string) string { return essence(mimeType) }
