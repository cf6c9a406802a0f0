package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-publish/pkg/simplepublish"
)

func TestFSBackend(t *testing.T) {
	ctx := context.Background()
	baseDir := t.TempDir()

	store, err := New(Config{BaseDir: baseDir})
	require.NoError(t, err)

	t.Run("UploadAndDownload", func(t *testing.T) {
		key := "batches/sc1xyz/resume.pdf"
		require.NoError(t, store.Upload(ctx, key, strings.NewReader("hello fs")))

		_, err := os.Stat(filepath.Join(baseDir, "batches", "sc1xyz", "resume.pdf"))
		require.NoError(t, err)

		rc, err := store.Download(ctx, key)
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "hello fs", string(data))

		meta, err := store.GetObjectMeta(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, int64(len("hello fs")), meta.Size)
	})

	t.Run("NoTemporaryFilesLeft", func(t *testing.T) {
		require.NoError(t, store.Upload(ctx, "blobs/one", strings.NewReader("x")))
		entries, err := os.ReadDir(filepath.Join(baseDir, "blobs"))
		require.NoError(t, err)
		for _, e := range entries {
			assert.False(t, strings.HasPrefix(e.Name(), ".upload-"), "leftover temp file %s", e.Name())
		}
	})

	t.Run("DeleteCleansEmptyDirectories", func(t *testing.T) {
		key := "batches/sc1del/a.txt"
		require.NoError(t, store.Upload(ctx, key, strings.NewReader("a")))
		require.NoError(t, store.Delete(ctx, key))

		_, err := os.Stat(filepath.Join(baseDir, "batches", "sc1del"))
		assert.True(t, os.IsNotExist(err))

		_, err = store.Download(ctx, key)
		assert.ErrorIs(t, err, simplepublish.ErrObjectNotFound)
	})

	t.Run("RejectsEscapingKeys", func(t *testing.T) {
		err := store.Upload(ctx, "../outside.txt", strings.NewReader("nope"))
		assert.Error(t, err)

		_, err = store.GetObjectMeta(ctx, "../../etc/passwd")
		assert.Error(t, err)
	})
}

func TestFSBackendRequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base directory is required")
}
