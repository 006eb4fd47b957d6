package fileutil_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rohmanhakim/wikisearch/pkg/fileutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFileExtension(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"jpeg thumbnail", "/wikipedia/commons/thumb/a/a1/Cat.jpg/96px-Cat.jpg", "jpg"},
		{"multiple dots", "archive.tar.gz", "gz"},
		{"no extension", "README", ""},
		{"dot at end", "file.", ""},
		{"directory path", "/some/directory/", ""},
		{"uppercase preserved", "Logo.PNG", "PNG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, fileutil.GetFileExtension(tt.path))
		})
	}
}

func TestEnsureDir_Nested(t *testing.T) {
	tmpDir := t.TempDir()

	err := fileutil.EnsureDir(tmpDir, "thumbnails", "96")
	require.Nil(t, err)

	info, statErr := os.Stat(filepath.Join(tmpDir, "thumbnails", "96"))
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func TestEnsureDir_PathIsFile(t *testing.T) {
	tmpDir := t.TempDir()
	blocker := filepath.Join(tmpDir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := fileutil.EnsureDir(blocker, "child")
	require.NotNil(t, err)

	var fileErr *fileutil.FileError
	require.True(t, errors.As(err, &fileErr))
	assert.Equal(t, fileutil.ErrCausePathError, fileErr.Cause)
}

func TestWriteFileAtomic(t *testing.T) {
	target := filepath.Join(t.TempDir(), "thumbnails", "abc.jpg")

	err := fileutil.WriteFileAtomic(target, []byte("image-bytes"))
	require.Nil(t, err)

	data, readErr := os.ReadFile(target)
	require.NoError(t, readErr)
	assert.Equal(t, []byte("image-bytes"), data)

	entries, readDirErr := os.ReadDir(filepath.Dir(target))
	require.NoError(t, readDirErr)
	assert.Len(t, entries, 1, "temporary file must not be left behind")
}

func TestWriteFileAtomic_Overwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "abc.jpg")

	require.Nil(t, fileutil.WriteFileAtomic(target, []byte("first")))
	require.Nil(t, fileutil.WriteFileAtomic(target, []byte("second")))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
}
