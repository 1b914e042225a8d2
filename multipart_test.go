package multipart_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mu "github.com/zostay/go-multipart"
	"github.com/zostay/go-multipart/config"
	muerrors "github.com/zostay/go-multipart/errors"
	"github.com/zostay/go-multipart/storage"
)

const boundary = "BOUND"

func TestSingleTextField(t *testing.T) {
	t.Parallel()

	body := "--BOUND\r\nContent-Disposition: form-data; name=\"f\"\r\n\r\nhello\r\n--BOUND--\r\n"

	mp, err := mu.New(context.Background(), config.DefaultConfig(), boundary, strings.NewReader(body))
	require.NoError(t, err)

	p, err := mp.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "f", p.FieldName())
	assert.False(t, p.IsFile())

	text, err := p.Text()
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = mp.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFileAndTextMixWithAllowList(t *testing.T) {
	t.Parallel()

	cfg, err := config.NewBuilder().
		Selector(config.Single{Name: "avatar"}).
		UnknownFieldPolicy(config.PolicyReject).
		Limits(config.Limits{AllowedMimeTypes: []string{"image/*"}}).
		Build()
	require.NoError(t, err)

	body := "--BOUND\r\n" +
		"Content-Disposition: form-data; name=\"avatar\"; filename=\"a.png\"\r\nContent-Type: image/png\r\n\r\n" +
		"PNGDATA\r\n" +
		"--BOUND\r\n" +
		"Content-Disposition: form-data; name=\"note\"\r\n\r\n" +
		"hello\r\n" +
		"--BOUND--\r\n"

	muer, err := mu.NewMulter(cfg, storage.NewMemory())
	require.NoError(t, err)

	result, err := muer.ParseAndStore(context.Background(), boundary, strings.NewReader(body))
	require.NoError(t, err)

	require.Len(t, result.StoredFiles, 1)
	assert.Equal(t, uint64(7), result.StoredFiles[0].Size)
	assert.Equal(t, "avatar", result.StoredFiles[0].FieldName)

	require.Len(t, result.TextFields, 1)
	assert.Equal(t, "note", result.TextFields[0].Name)
	assert.Equal(t, "hello", result.TextFields[0].Value)
}

func TestUnknownFileFieldWithReject(t *testing.T) {
	t.Parallel()

	cfg, err := config.NewBuilder().
		Selector(config.Single{Name: "avatar"}).
		UnknownFieldPolicy(config.PolicyReject).
		Build()
	require.NoError(t, err)

	body := "--BOUND\r\n" +
		"Content-Disposition: form-data; name=\"other\"; filename=\"x.bin\"\r\n\r\n" +
		"data\r\n" +
		"--BOUND--\r\n"

	mp, err := mu.New(context.Background(), cfg, boundary, strings.NewReader(body))
	require.NoError(t, err)

	_, err = mp.NextPart()
	var uf *muerrors.UnexpectedFieldError
	require.ErrorAs(t, err, &uf)
	assert.Equal(t, "other", uf.Field)
}

func TestOversizeFileFailsMidBody(t *testing.T) {
	t.Parallel()

	cfg, err := config.NewBuilder().
		Selector(config.Any{}).
		Limits(config.Limits{MaxFileSize: config.Uint64Ptr(4)}).
		Build()
	require.NoError(t, err)

	body := "--BOUND\r\n" +
		"Content-Disposition: form-data; name=\"f\"; filename=\"f.bin\"\r\n\r\n" +
		"abcdef\r\n" +
		"--BOUND--\r\n"

	mp, err := mu.New(context.Background(), cfg, boundary, strings.NewReader(body))
	require.NoError(t, err)

	p, err := mp.NextPart()
	require.NoError(t, err)

	_, err = p.Bytes()
	require.Error(t, err)
	var pe *muerrors.PolicyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, muerrors.FileSizeLimitExceeded, pe.Kind)
	assert.Equal(t, uint64(4), pe.Limit)
}

func TestTerminalBoundaryMissing(t *testing.T) {
	t.Parallel()

	body := "--BOUND\r\n" +
		"Content-Disposition: form-data; name=\"f\"\r\n\r\n" +
		"payload"

	mp, err := mu.New(context.Background(), config.DefaultConfig(), boundary, strings.NewReader(body))
	require.NoError(t, err)

	p, err := mp.NextPart()
	require.NoError(t, err)

	_, err = p.Bytes()
	assert.ErrorIs(t, err, muerrors.ErrIncompleteStream)
}

// TestChunkedUpstreamLargeFile checks that a large file split across
// many small upstream reads reconstructs identically.
func TestChunkedUpstreamLargeFile(t *testing.T) {
	t.Parallel()

	payload := strings.Repeat("0123456789abcdef", 16*1024) // 256 KiB
	body := "--BOUND\r\n" +
		"Content-Disposition: form-data; name=\"f\"; filename=\"f.bin\"\r\n\r\n" +
		payload + "\r\n" +
		"--BOUND--\r\n"

	// tinyChunkReader forces very small reads regardless of the
	// caller's buffer size, to exercise arbitrary chunk splits.
	mp, err := mu.New(context.Background(), config.DefaultConfig(), boundary, &tinyChunkReader{r: strings.NewReader(body), n: 3})
	require.NoError(t, err)

	p, err := mp.NextPart()
	require.NoError(t, err)

	got, err := p.Bytes()
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
}

type tinyChunkReader struct {
	r io.Reader
	n int
}

func (t *tinyChunkReader) Read(p []byte) (int, error) {
	if len(p) > t.n {
		p = p[:t.n]
	}
	return t.r.Read(p)
}

func TestRoundTrip_SingleTextFieldViaParseStream(t *testing.T) {
	t.Parallel()

	body := "--BOUND\r\nContent-Disposition: form-data; name=\"f\"\r\n\r\nhello\r\n--BOUND--\r\n"

	muer, err := mu.NewMulter(config.DefaultConfig(), storage.NewMemory())
	require.NoError(t, err)

	result, err := muer.ParseStream(context.Background(), `multipart/form-data; boundary=BOUND`, strings.NewReader(body))
	require.NoError(t, err)

	assert.Empty(t, result.StoredFiles)
	require.Len(t, result.TextFields, 1)
	assert.Equal(t, "f", result.TextFields[0].Name)
	assert.Equal(t, "hello", result.TextFields[0].Value)
}

func TestIdempotentDrop_NextPartAfterUnreadPart(t *testing.T) {
	t.Parallel()

	body := "--BOUND\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n\r\n" +
		"first\r\n" +
		"--BOUND\r\n" +
		"Content-Disposition: form-data; name=\"b\"\r\n\r\n" +
		"second\r\n" +
		"--BOUND--\r\n"

	mp, err := mu.New(context.Background(), config.DefaultConfig(), boundary, strings.NewReader(body))
	require.NoError(t, err)

	first, err := mp.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "a", first.FieldName())
	// Never read first's body; NextPart must drain it implicitly.

	second, err := mp.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "b", second.FieldName())

	text, err := second.Text()
	require.NoError(t, err)
	assert.Equal(t, "second", text)
}

func TestNextPart_DrainsPartiallyReadStream(t *testing.T) {
	t.Parallel()

	body := "--BOUND\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n\r\n" +
		"a long first value that will not be read to the end\r\n" +
		"--BOUND\r\n" +
		"Content-Disposition: form-data; name=\"b\"\r\n\r\n" +
		"second\r\n" +
		"--BOUND--\r\n"

	mp, err := mu.New(context.Background(), config.DefaultConfig(), boundary, strings.NewReader(body))
	require.NoError(t, err)

	first, err := mp.NextPart()
	require.NoError(t, err)

	s, err := first.Stream()
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = s.Read(buf)
	require.NoError(t, err)
	// Abandon the stream mid-body; NextPart must still land on "b".

	second, err := mp.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "b", second.FieldName())

	text, err := second.Text()
	require.NoError(t, err)
	assert.Equal(t, "second", text)
}

func TestExtractBoundary_RejectsNonMultipart(t *testing.T) {
	t.Parallel()

	_, err := mu.ExtractBoundary("application/json")
	assert.Error(t, err)
}

func TestExtractBoundary_RejectsMissingBoundaryParam(t *testing.T) {
	t.Parallel()

	_, err := mu.ExtractBoundary("multipart/form-data")
	assert.Error(t, err)
}

func TestNewFromContentType_Works(t *testing.T) {
	t.Parallel()

	body := "--BOUND\r\nContent-Disposition: form-data; name=\"f\"\r\n\r\nhi\r\n--BOUND--\r\n"
	mp, err := mu.NewFromContentType(context.Background(), config.DefaultConfig(), `multipart/form-data; boundary=BOUND`, strings.NewReader(body))
	require.NoError(t, err)

	p, err := mp.NextPart()
	require.NoError(t, err)
	text, err := p.Text()
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
}
