package multipart

import (
	"context"
	"io"
	"mime"

	"github.com/zostay/go-multipart/config"
	muerrors "github.com/zostay/go-multipart/errors"
	"github.com/zostay/go-multipart/internal/headerparse"
	"github.com/zostay/go-multipart/internal/scanner"
	"github.com/zostay/go-multipart/part"
	"github.com/zostay/go-multipart/selector"
	"github.com/zostay/go-multipart/storage"
)

// Multipart is the lazy part iterator over one request body. Construct
// one with New or NewFromContentType.
type Multipart struct {
	ctx     context.Context
	scan    *scanner.Scanner
	engine  *selector.Engine
	current *part.Part
}

// New builds a Multipart from an already-known boundary and an
// io.Reader upstream body, validated and configured per cfg.
func New(ctx context.Context, cfg config.MulterConfig, boundary string, body io.Reader) (*Multipart, error) {
	return newMultipart(ctx, cfg, boundary, scanner.FromReader(body, 16_384))
}

// NewFromContentType extracts the boundary from a Content-Type header
// value and builds a Multipart over body.
func NewFromContentType(ctx context.Context, cfg config.MulterConfig, contentType string, body io.Reader) (*Multipart, error) {
	boundary, err := ExtractBoundary(contentType)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, boundary, body)
}

func newMultipart(ctx context.Context, cfg config.MulterConfig, boundary string, source scanner.ChunkSource) (*Multipart, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sc, err := scanner.New(boundary, source, cfg.Limits.MaxBodySize)
	if err != nil {
		return nil, err
	}
	return &Multipart{
		ctx:    ctx,
		scan:   sc,
		engine: selector.New(cfg),
	}, nil
}

// ExtractBoundary parses a Content-Type header value, checks its
// essence is multipart/form-data, and percent-decodes/validates the
// boundary parameter.
func ExtractBoundary(contentType string) (string, error) {
	essence, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", muerrors.NewParseError("invalid Content-Type header")
	}
	if essence != "multipart/form-data" {
		return "", muerrors.NewParseError("Content-Type must be multipart/form-data")
	}
	raw, ok := params["boundary"]
	if !ok {
		return "", muerrors.NewParseError("missing multipart boundary parameter")
	}
	boundary, err := scanner.DecodeBoundaryPercentEncoding(raw)
	if err != nil {
		return "", err
	}
	if err := scanner.ValidateBoundary(boundary); err != nil {
		return "", err
	}
	return boundary, nil
}

// NextPart returns the next admitted part, or (nil, io.EOF) at the end
// of the stream. It implicitly drains any previous part's body first,
// and transparently skips parts the selector/policy engine ignores.
func (m *Multipart) NextPart() (*part.Part, error) {
	if m.current != nil {
		if err := m.current.Drain(); err != nil {
			return nil, err
		}
		m.current = nil
	}

	for {
		headerBlock, err := m.scan.NextHeaderBlock(m.ctx)
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}

		headers, err := headerparse.ParseHeaderBlock(headerBlock)
		if err != nil {
			return nil, err
		}

		isFile := headers.HasFileName
		action, maxSize, err := m.engine.Evaluate(headers.FieldName, isFile, headers.ContentType)
		if err != nil {
			return nil, err
		}

		m.scan.SetCurrentPartLimits(headers.FieldName, isFile, maxSize)

		if action == selector.Ignore {
			if err := m.scan.DrainBody(m.ctx); err != nil {
				return nil, err
			}
			continue
		}

		p := part.New(m.ctx, headers, m.scan)
		m.current = p
		return p, nil
	}
}

// ProcessedMultipart is the aggregate returned by ParseAndStore.
type ProcessedMultipart struct {
	StoredFiles []storage.StoredFile
	TextFields  []TextField
}

// TextField is one accepted (name, UTF-8 value) pair.
type TextField struct {
	Name  string
	Value string
}

// Multer bundles a validated configuration with a storage engine and
// provides the convenience end-to-end entry points.
type Multer struct {
	cfg     config.MulterConfig
	storage storage.Engine
}

// NewMulter validates cfg and pairs it with the given storage engine.
func NewMulter(cfg config.MulterConfig, store storage.Engine) (*Multer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Multer{cfg: cfg, storage: store}, nil
}

// Builder returns a config.Builder seeded with DefaultConfig, for
// fluent construction before calling NewMulter.
func Builder() *config.Builder {
	return config.NewBuilder()
}

// ParseAndStore parses body as multipart/form-data using boundary, and
// for every admitted part either hands its body stream to storage
// (file parts) or decodes it as UTF-8 text (text parts), returning the
// aggregate.
func (mu *Multer) ParseAndStore(ctx context.Context, boundary string, body io.Reader) (ProcessedMultipart, error) {
	mp, err := newMultipart(ctx, mu.cfg, boundary, scanner.FromReader(body, 16_384))
	if err != nil {
		return ProcessedMultipart{}, err
	}
	return mu.drive(ctx, mp)
}

// ParseStream extracts the boundary from contentType and behaves like
// ParseAndStore.
func (mu *Multer) ParseStream(ctx context.Context, contentType string, body io.Reader) (ProcessedMultipart, error) {
	boundary, err := ExtractBoundary(contentType)
	if err != nil {
		return ProcessedMultipart{}, err
	}
	return mu.ParseAndStore(ctx, boundary, body)
}

func (mu *Multer) drive(ctx context.Context, mp *Multipart) (ProcessedMultipart, error) {
	var out ProcessedMultipart
	for {
		p, err := mp.NextPart()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return ProcessedMultipart{}, err
		}

		if p.IsFile() {
			stream, err := p.Stream()
			if err != nil {
				return ProcessedMultipart{}, err
			}
			fileName, hasFileName := p.FileName()
			meta := storage.FileMeta{
				FieldName:   p.FieldName(),
				FileName:    fileName,
				HasFileName: hasFileName,
				ContentType: p.ContentType(),
			}
			stored, err := mu.storage.Store(ctx, meta, stream)
			if err != nil {
				return ProcessedMultipart{}, muerrors.NewStorageError("storage engine failed", err)
			}
			out.StoredFiles = append(out.StoredFiles, stored)
			continue
		}

		text, err := p.Text()
		if err != nil {
			return ProcessedMultipart{}, err
		}
		out.TextFields = append(out.TextFields, TextField{Name: p.FieldName(), Value: text})
	}
}
