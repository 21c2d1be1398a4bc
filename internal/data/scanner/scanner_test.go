package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileScanner(t *testing.T) {
	scanner := NewFileScanner("/tmp/test", nil)

	assert.Equal(t, "/tmp/test", scanner.baseDir)
	assert.Equal(t, ".trace", scanner.extension)
}

func TestFileScannerScanEmptyDirectory(t *testing.T) {
	files, err := NewFileScanner(t.TempDir(), nil).Scan()

	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFileScannerScanNonExistentDirectory(t *testing.T) {
	files, err := NewFileScanner("/path/that/does/not/exist", nil).Scan()

	assert.Error(t, err)
	assert.Empty(t, files)
}

func TestFileScannerScanWithTraceFiles(t *testing.T) {
	tempDir := t.TempDir()

	testFiles := []struct {
		path    string
		isTrace bool
	}{
		{"b.trace", true},
		{"a.trace", true},
		{"upper.TRACE", true},
		{"notes.txt", false},
		{"trace", false},
		{"sub/dir/c.trace", true},
		{"sub/other.log", false},
	}
	var want []string
	for _, tf := range testFiles {
		full := filepath.Join(tempDir, tf.path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0644))
		if tf.isTrace {
			want = append(want, full)
		}
	}

	files, err := NewFileScanner(tempDir, nil).Scan()
	require.NoError(t, err)
	assert.ElementsMatch(t, want, files)
	assert.IsIncreasing(t, files)
}

func TestFileScannerWithExtension(t *testing.T) {
	tempDir := t.TempDir()
	for _, name := range []string{"a.apitrace", "b.trace"} {
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, name), nil, 0644))
	}

	files, err := NewFileScanner(tempDir, nil).WithExtension("APITRACE").Scan()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(tempDir, "a.apitrace")}, files)
}
