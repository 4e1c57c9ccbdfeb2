package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogDocumentSave_WritesContextAndDetails(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", false)
	ctx := logger.WithContext(context.Background())

	lc := Context{
		CorrelationID: "corr-1",
		Feature:       "documents",
		Operation:     "updateDocument",
		OwnerID:       "owner-1",
		DocumentID:    "doc_1",
	}
	LogDocumentSave(ctx, lc, 3, []string{"title", "content"}, 12*time.Millisecond)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, DocumentSave, line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "corr-1", line["correlationId"])
	assert.Equal(t, "documents", line["feature"])
	assert.Equal(t, "owner-1", line["ownerId"])
	assert.Equal(t, "doc_1", line["documentId"])
	assert.Equal(t, float64(3), line["version"])
	assert.Equal(t, []any{"title", "content"}, line["changedFields"])
	assert.Equal(t, float64(12), line["elapsedMs"])
	assert.NotContains(t, line, "provider")
}

func TestLogDocumentLoad(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "debug", false)
	ctx := logger.WithContext(context.Background())

	LogDocumentLoad(ctx, Context{CorrelationID: "c"}, "postgres", 1, 0)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, DocumentLoad, line["message"])
	assert.Equal(t, "postgres", line["backend"])
	assert.Equal(t, false, line["cacheHit"])
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn", false)

	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWithWriter_InvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "loud", false)

	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
