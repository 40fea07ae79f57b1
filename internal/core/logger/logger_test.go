package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l, done := New(Options{Level: "info", JSON: true, Output: zapcore.AddSync(&buf)})
	l.Debug("hidden")
	l.Info("bid accepted", zap.String("project_id", "p1"))
	done()

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "bid accepted", line["msg"])
	assert.Equal(t, "p1", line["project_id"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewWithRotate(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	var buf bytes.Buffer
	l, done := New(Options{Level: "debug", Output: zapcore.AddSync(&buf), Rotate: FileRotate{Enable: true, Filename: file}})
	l.Warn("disk")
	done()
	assert.FileExists(t, file)
}

func TestToWriter(t *testing.T) {
	var buf bytes.Buffer
	l, done := New(Options{Level: "info", JSON: true, Output: zapcore.AddSync(&buf)})
	w := ToWriter(l, zapcore.WarnLevel)
	_, err := w.Write([]byte("gin warning\n"))
	require.NoError(t, err)
	done()
	assert.Contains(t, buf.String(), `"msg":"gin warning"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
