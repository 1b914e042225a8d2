package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zostay/go-multipart/storage"
)

func TestDisk_StoreKeepsSanitizedFilename(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	d, err := storage.NewDiskBuilder().Path(dir).Strategy(storage.FilenameKeep).Build()
	require.NoError(t, err)

	meta := storage.FileMeta{FieldName: "avatar", FileName: "../../etc/weird name!.png", HasFileName: true, ContentType: "image/png"}
	stored, err := d.Store(context.Background(), meta, strings.NewReader("PNGDATA"))
	require.NoError(t, err)

	assert.Equal(t, uint64(7), stored.Size)
	assert.True(t, stored.HasPath)
	assert.Equal(t, filepath.Join(dir, "weird_name_.png"), stored.Path)

	data, err := os.ReadFile(stored.Path)
	require.NoError(t, err)
	assert.Equal(t, "PNGDATA", string(data))
}

func TestDisk_StoreCollisionGetsSuffixed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	d, err := storage.NewDiskBuilder().Path(dir).Strategy(storage.FilenameKeep).Build()
	require.NoError(t, err)

	meta := storage.FileMeta{FieldName: "avatar", FileName: "dup.txt", HasFileName: true, ContentType: "text/plain"}

	first, err := d.Store(context.Background(), meta, strings.NewReader("one"))
	require.NoError(t, err)
	second, err := d.Store(context.Background(), meta, strings.NewReader("two"))
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path)
	assert.True(t, strings.HasPrefix(filepath.Base(second.Path), "dup-"))
}

func TestDisk_StoreRandomStrategyIgnoresInputName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	d, err := storage.NewDiskBuilder().Path(dir).Strategy(storage.FilenameRandom).Build()
	require.NoError(t, err)

	meta := storage.FileMeta{FieldName: "avatar", FileName: "original.png", HasFileName: true, ContentType: "image/png"}
	stored, err := d.Store(context.Background(), meta, strings.NewReader("x"))
	require.NoError(t, err)

	assert.NotContains(t, filepath.Base(stored.Path), "original")
}

func TestDisk_PrePersistFilterRejectsBeforeWriting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	wantErr := errors.New("not allowed")
	d, err := storage.NewDiskBuilder().Path(dir).Filter(func(meta storage.FileMeta) error {
		if meta.ContentType == "application/x-executable" {
			return wantErr
		}
		return nil
	}).Build()
	require.NoError(t, err)

	meta := storage.FileMeta{FieldName: "upload", FileName: "bad.exe", HasFileName: true, ContentType: "application/x-executable"}
	_, err = d.Store(context.Background(), meta, strings.NewReader("MZ"))
	require.Error(t, err)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestDisk_BuildRejectsEmptyRoot(t *testing.T) {
	t.Parallel()

	_, err := storage.NewDiskBuilder().Path("  ").Build()
	assert.Error(t, err)
}

func TestDisk_CustomFilenameOverridesStrategy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	d, err := storage.NewDiskBuilder().Path(dir).Strategy(storage.FilenameRandom).
		CustomFilename(func(input string) string { return "fixed-" + input }).Build()
	require.NoError(t, err)

	meta := storage.FileMeta{FieldName: "f", FileName: "name.txt", HasFileName: true, ContentType: "text/plain"}
	stored, err := d.Store(context.Background(), meta, strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "fixed-name.txt", filepath.Base(stored.Path))
}
