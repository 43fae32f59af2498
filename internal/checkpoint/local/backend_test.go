// Package local_test tests the filesystem checkpoint backend.
package local_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/wayback-journey/internal/checkpoint"
	"github.com/JakeFAU/wayback-journey/internal/checkpoint/local"
)

func TestNewPreparesBaseDir(t *testing.T) {
	t.Parallel()

	nested := filepath.Join(t.TempDir(), "journeys", "checkpoints")
	backend, err := local.New(local.Config{BaseDir: nested})
	require.NoError(t, err)
	require.NotNil(t, backend)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	entries, err := os.ReadDir(nested)
	require.NoError(t, err)
	assert.Empty(t, entries, "the writability check file is removed")
}

func TestNewRejectsUnusableBaseDir(t *testing.T) {
	t.Parallel()

	plainFile := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(plainFile, []byte("{}"), 0o600))

	for name, dir := range map[string]string{"blank": "  ", "file": plainFile} {
		_, err := local.New(local.Config{BaseDir: dir})
		assert.Error(t, err, name)
	}

	if os.Geteuid() != 0 {
		readOnly := t.TempDir()
		// #nosec G302 -- read-only directory on purpose.
		require.NoError(t, os.Chmod(readOnly, 0o500))
		t.Cleanup(func() { _ = os.Chmod(readOnly, 0o700) })
		_, err := local.New(local.Config{BaseDir: readOnly})
		assert.Error(t, err, "read-only")
	}
}

func TestWriteReadExists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)

	_, err = backend.Read(ctx, "shop/links/2020.json")
	require.ErrorIs(t, err, checkpoint.ErrNotFound)

	ok, err := backend.Exists(ctx, "shop/links/2020.json")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, backend.Write(ctx, "shop/links/2020.json", []byte(`{"a":1}`)))
	require.NoError(t, backend.Write(ctx, "shop/links/2020.json", []byte(`{"a":2}`)))

	data, err := backend.Read(ctx, "shop/links/2020.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(data))

	ok, err = backend.Exists(ctx, "shop/links/2020.json")
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := os.ReadDir(filepath.Join(dir, "shop", "links"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files are left behind")
	assert.Equal(t, "2020.json", entries[0].Name())
}

func TestListIgnoresTempFilesAndDeletePrefix(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	backend, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)

	require.NoError(t, backend.Write(ctx, "shop/links/2020.json", []byte("{}")))
	require.NoError(t, backend.Write(ctx, "shop/links/2019.json", []byte("{}")))
	require.NoError(t, backend.Write(ctx, "other/links/2019.json", []byte("{}")))
	// A crash between create and rename leaves a temp file behind.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shop", "links", ".tmp-123"), []byte("{"), 0o600))

	names, err := backend.List(ctx, "shop/links/")
	require.NoError(t, err)
	assert.Equal(t, []string{"shop/links/2019.json", "shop/links/2020.json"}, names)

	names, err = backend.List(ctx, "missing/")
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, backend.DeletePrefix(ctx, "shop/"))
	_, err = os.Stat(filepath.Join(dir, "shop"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "other", "links", "2019.json"))
	assert.NoError(t, err)
}

func TestRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	backend, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	for _, name := range []string{"../escape.json", "", "/"} {
		err := backend.Write(ctx, name, []byte("x"))
		require.Error(t, err, name)
		assert.True(t, strings.Contains(err.Error(), "path"), err.Error())
	}
}
