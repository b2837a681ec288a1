package storage

import (
	"UberInsight/src/config"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesLevelsAndMirror(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	var mirror bytes.Buffer
	logger.SetMirror(&mirror)

	logger.Info("pipeline started")
	logger.Warning("rows dropped")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "INFO: pipeline started")
	assert.Contains(t, string(data), "WARNING: rows dropped")
	assert.Equal(t, string(data), mirror.String())
}

func TestLoggerSubscribe(t *testing.T) {
	logger, err := NewLogger(filepath.Join(t.TempDir(), "app.log"))
	require.NoError(t, err)
	defer logger.Close()

	ch := logger.Subscribe()
	logger.Error("boom")

	msg := <-ch
	assert.True(t, strings.HasSuffix(msg, "ERROR: boom\n"))

	logger.Unsubscribe(ch)
	logger.Info("after unsubscribe")
	assert.Empty(t, ch)
}

func TestCheckRotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	cfg := config.Default()
	cfg.LogMaxSize = "1 * 16"

	logger.Debug("this line is longer than sixteen bytes")
	require.NoError(t, logger.CheckRotate(cfg))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestRotateLogKeepsWritingWhenRenameFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(path)
	require.NoError(t, err)
	defer logger.Close()

	// 原文件不存在，改名必然失败
	require.NoError(t, os.Remove(path))
	assert.Error(t, logger.rotateLog())

	logger.Info("still logging")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "INFO: still logging")
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(filepath.Join(dir, "a.log"))
	require.NoError(t, err)
	defer logger.Close()

	require.NoError(t, logger.Reopen(filepath.Join(dir, "b.log")))
	logger.Info("after reopen")

	data, err := os.ReadFile(filepath.Join(dir, "b.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "after reopen")
}

func TestEval(t *testing.T) {
	assert.Equal(t, int64(10*1024*1024), eval("10 * 1024 * 1024"))
	assert.Equal(t, int64(512), eval("512"))
	assert.Zero(t, eval(""))
	assert.Zero(t, eval("ten * 2"))
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}
