package storage_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zostay/go-multipart/storage"
)

func TestMemory_StoreAndGet(t *testing.T) {
	t.Parallel()

	m := storage.NewMemory()
	meta := storage.FileMeta{FieldName: "avatar", FileName: "a.png", HasFileName: true, ContentType: "image/png"}

	stored, err := m.Store(context.Background(), meta, strings.NewReader("PNGDATA"))
	require.NoError(t, err)

	assert.Equal(t, uint64(7), stored.Size)
	assert.Equal(t, "avatar", stored.FieldName)
	assert.Equal(t, "a.png", stored.FileName)
	assert.NotEmpty(t, stored.StorageKey)

	data, ok := m.Get(stored.StorageKey)
	require.True(t, ok)
	assert.Equal(t, "PNGDATA", string(data))
	assert.Equal(t, 1, m.Len())
}

func TestMemory_GetMissingKey(t *testing.T) {
	t.Parallel()

	m := storage.NewMemory()
	_, ok := m.Get("does-not-exist")
	assert.False(t, ok)
}
