package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel(" DEBUG "))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestWriterLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, LevelInfo)

	logger.Debugf("hidden %d", 1)
	logger.Infof("shown %d", 2)
	logger.Errorf("failed: %s", "boom")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] shown 2")
	assert.Contains(t, out, "[ERROR] failed: boom")
}

func TestFileLoggerCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "noote.log")
	logger, err := New(path, LevelDebug)
	require.NoError(t, err)
	logger.Debugf("hello")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DEBUG] hello")
}

func TestContextRoundTrip(t *testing.T) {
	logger := Discard()
	ctx := WithContext(context.Background(), logger)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, logger, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "***", MaskToken("abc"))
	assert.Equal(t, "eyJh...sig1", MaskToken("eyJhbGciOi.payload.sig1"))
}
