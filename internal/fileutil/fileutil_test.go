package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/SriHarishb/edith/internal/fileutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "user-42", expected: "user-42"},
		{name: "slashes", input: "a/b\\c", expected: "a_b_c"},
		{name: "traversal", input: "../etc", expected: "__etc"},
		{name: "blank", input: "  ", expected: "_"},
		{name: "dot", input: ".", expected: "_"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, fileutil.SanitizeFilename(testCase.input))
		})
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	path, err := fileutil.WriteFile(dir, "frame_0000.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "frame_0000.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
}

func TestEnsureDir(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, fileutil.EnsureDir(""), fileutil.ErrPathEmpty)

	nested := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, fileutil.EnsureDir(nested))
	assert.DirExists(t, nested)
}

func TestFormatFileSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "512 B", fileutil.FormatFileSize(512))
	assert.Equal(t, "1.5 KB", fileutil.FormatFileSize(1536))
	assert.Equal(t, "2.0 MB", fileutil.FormatFileSize(2*1024*1024))
	assert.Equal(t, "1.0 GB", fileutil.FormatFileSize(1024*1024*1024))
}
