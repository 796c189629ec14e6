package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := Logger(New(Options{Level: "debug", Format: "json", Output: &buf}), SourcePipeline)
	l.Info("pipeline.extract.ok", "method", "direct")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "pipeline.extract.ok", rec["msg"])
	assert.Equal(t, SourcePipeline, rec["source"])
	assert.Equal(t, "direct", rec["method"])
}

func TestNew_Logfmt(t *testing.T) {
	var buf bytes.Buffer
	l := Logger(New(Options{Level: "info", Format: "logfmt", Output: &buf}), SourceStore)
	l.Debug("hidden")
	l.Info("store.save.ok", "run_id", "abc")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "store.save.ok")
	assert.Contains(t, out, "source=store")
	assert.Contains(t, out, "run_id=abc")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestLogger_NilBase(t *testing.T) {
	assert.NotNil(t, Logger(nil, SourceApp))
}
