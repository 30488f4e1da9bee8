package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_ProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "prod", "info")
	logger.Info("trained", slog.Int("lines", 3))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "trained", record["msg"])
	assert.EqualValues(t, 3, record["lines"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestRequestContext_Attrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "prod", "debug")
	reqCtx := NewRequestContextWithID(logger, "req-1", "cut", "pd")

	reqCtx.Error("decode failed", errors.New("boom"), slog.Int(LogFieldTextLen, 4))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "req-1", record[LogFieldRequestID])
	assert.Equal(t, "cut", record[LogFieldOperation])
	assert.Equal(t, "pd", record[LogFieldModel])
	assert.Equal(t, "boom", record["error"])
}

func TestRequestContext_GeneratedIDAndContext(t *testing.T) {
	reqCtx := NewRequestContext(nil, "train", "")
	assert.Len(t, reqCtx.RequestID, 36)

	ctx := WithRequestContext(context.Background(), reqCtx)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, reqCtx, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestNewRequestContextFrom(t *testing.T) {
	parent := NewRequestContextWithID(nil, "req-9", "POST /api/v1/segment", "")

	tests := []struct {
		name   string
		ctx    context.Context
		wantID string
	}{
		{"inherits parent id", WithRequestContext(context.Background(), parent), "req-9"},
		{"generates id without parent", context.Background(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqCtx := NewRequestContextFrom(tt.ctx, nil, "cut", "pd")
			assert.Equal(t, "cut", reqCtx.Operation)
			assert.Equal(t, "pd", reqCtx.Model)
			if tt.wantID != "" {
				assert.Equal(t, tt.wantID, reqCtx.RequestID)
			} else {
				assert.Len(t, reqCtx.RequestID, 36)
			}
		})
	}
}

func TestRequestContext_WithFields(t *testing.T) {
	var buf bytes.Buffer
	reqCtx := NewRequestContextWithID(NewLogger(&buf, "prod", "info"), "req-2", "extract", "")

	reqCtx.WithFields(slog.String(LogFieldErrorCode, "INTERNAL")).Error("request failed")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "req-2", record[LogFieldRequestID])
	assert.Equal(t, "extract", record[LogFieldOperation])
	assert.Equal(t, "INTERNAL", record[LogFieldErrorCode])
	assert.NotContains(t, record, LogFieldModel)
}
