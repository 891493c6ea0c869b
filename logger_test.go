package spdata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return NewLogger(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &rec))
	return rec
}

func TestLogger_LogBuild(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)
	ctx := context.Background()

	l.LogBuild(ctx, "17", time.Millisecond, nil)
	rec := lastRecord(t, &buf)
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "build completed", rec["msg"])
	assert.Equal(t, "17", rec["entry"])

	l.LogBuild(ctx, "18", 0, errors.New("boom"))
	rec = lastRecord(t, &buf)
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "boom", rec["error"])
}

func TestLogger_LogProcess(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf).WithDataset("wider_range").WithEntry("x")

	l.LogProcess(context.Background(), &ProcessReport{Total: 3, Built: 2, Failed: 1})
	rec := lastRecord(t, &buf)
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "x", rec["entry"])
	assert.Equal(t, "wider_range", rec["dataset"])
}

func TestNoopLogger(t *testing.T) {
	l := NoopLogger()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}
