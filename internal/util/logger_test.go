package util

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level string, format LogFormat) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := &Logger{
		level:  ParseLogLevel(level),
		fields: make(map[string]interface{}),
		format: format,
	}
	logger.AddOutput(NewConsoleOutput(buf, format))
	return logger, buf
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLogLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, LevelError, ParseLogLevel("error"))
	assert.Equal(t, LevelInfo, ParseLogLevel("bogus"))
}

func TestLoggerFiltersByLevel(t *testing.T) {
	logger, buf := newBufferLogger("warn", FormatText)

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("visible warn")
	logger.Errorf("visible %s", "error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] visible warn")
	assert.Contains(t, out, "[ERROR] visible error")
}

func TestLoggerWithFieldsSorted(t *testing.T) {
	logger, buf := newBufferLogger("debug", FormatText)

	child := logger.With(F("trace", "a.trace"))
	child.Info("indexed", F("rows", 3), F("issues", 1))

	line := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasSuffix(line, "indexed issues=1 rows=3 trace=a.trace"), line)
}

func TestLoggerJSONFormat(t *testing.T) {
	logger, buf := newBufferLogger("info", FormatJSON)

	logger.Info("build finished", F("rows", 10))

	out := buf.String()
	assert.Contains(t, out, `"message":"build finished"`)
	assert.Contains(t, out, `"level":"INFO"`)
	assert.Contains(t, out, `"rows":10`)
}

func TestNewLoggerRequiresDestination(t *testing.T) {
	_, err := NewLogger(LoggerConfig{Level: "info"})
	assert.Error(t, err)
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(LoggerConfig{Level: "info", File: path})
	require.NoError(t, err)

	logger.Info("hello file")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] hello file")
}

func TestNopLogger(t *testing.T) {
	logger := OrNop(nil)
	assert.NotPanics(t, func() {
		logger.Info("ignored")
		logger.With(F("k", "v")).Debugf("%d", 1)
	})
}

func TestCalculateFileFingerprint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")

	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{1}, 5000), 0644))
	first, err := CalculateFileFingerprint(path)
	require.NoError(t, err)
	assert.Len(t, first, 8)

	again, err := CalculateFileFingerprint(path)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.Write([]byte{2, 3, 4})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	appended, err := CalculateFileFingerprint(path)
	require.NoError(t, err)
	assert.NotEqual(t, first, appended, "appending must change the fingerprint")
}

func TestFingerprintAtPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{1}, 5000), 0644))
	whole, err := CalculateFileFingerprint(path)
	require.NoError(t, err)

	grown := append(bytes.Repeat([]byte{1}, 5000), 9, 9, 9)
	prefix, err := FingerprintAt(bytes.NewReader(grown), 5000)
	require.NoError(t, err)
	assert.Equal(t, whole, prefix)

	all, err := FingerprintAt(bytes.NewReader(grown), int64(len(grown)))
	require.NoError(t, err)
	assert.NotEqual(t, whole, all)
}

func TestTruncateAndPad(t *testing.T) {
	assert.Equal(t, "abc", TruncateToWidth("abc", 5))
	assert.Equal(t, "ab…", TruncateToWidth("abcdef", 3))
	assert.Equal(t, "", TruncateToWidth("abc", 0))
	assert.Equal(t, "ab   ", PadToWidth("ab", 5, true))
	assert.Equal(t, "   ab", PadToWidth("ab", 5, false))
	assert.Equal(t, 4, GetDisplayWidth("日本"))
}
