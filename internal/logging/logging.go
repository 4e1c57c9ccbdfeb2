// Package logging configures zerolog and defines the structured events the
// service emits for documents, advice and export.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. Pretty console output is only used when
// requested, JSON lines otherwise.
func New(level string, pretty bool) zerolog.Logger {
	return NewWithWriter(os.Stdout, level, pretty)
}

func NewWithWriter(w io.Writer, level string, pretty bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Context identifies one logical operation in log lines.
type Context struct {
	CorrelationID string
	Feature       string
	Operation     string
	OwnerID       string
	DocumentID    string
	Provider      string
}

// Logger returns the request logger stored in ctx (see middleware.Correlation)
// enriched with the non-empty fields of lc.
func (lc Context) Logger(ctx context.Context) zerolog.Logger {
	b := zerolog.Ctx(ctx).With()
	if lc.CorrelationID != "" {
		b = b.Str("correlationId", lc.CorrelationID)
	}
	if lc.Feature != "" {
		b = b.Str("feature", lc.Feature)
	}
	if lc.Operation != "" {
		b = b.Str("operation", lc.Operation)
	}
	if lc.OwnerID != "" {
		b = b.Str("ownerId", lc.OwnerID)
	}
	if lc.DocumentID != "" {
		b = b.Str("documentId", lc.DocumentID)
	}
	if lc.Provider != "" {
		b = b.Str("provider", lc.Provider)
	}
	return b.Logger()
}

// Event names.
const (
	DocumentLoad           = "DOCUMENT_LOAD"
	DocumentSave           = "DOCUMENT_SAVE"
	AdviceRateLimited      = "ADVICE_RATE_LIMITED"
	AdviceRequestSucceeded = "ADVICE_REQUEST_SUCCEEDED"
	AdviceRequestTimeout   = "ADVICE_REQUEST_TIMEOUT"
	AdviceRequestFailed    = "ADVICE_REQUEST_FAILED"
	AdviceGenerated        = "ADVICE_GENERATED"
	AdviceGenerationFailed = "ADVICE_GENERATION_FAILED"
	ExportSucceeded        = "EXPORT_SUCCEEDED"
	ExportFailed           = "EXPORT_FAILED"
)

// LogDocumentLoad records a successful document read. Single-document reads
// always go to the store, so cacheHit is false.
func LogDocumentLoad(ctx context.Context, lc Context, backend string, version int, elapsed time.Duration) {
	l := lc.Logger(ctx)
	l.Info().
		Str("backend", backend).
		Bool("cacheHit", false).
		Int("version", version).
		Int64("elapsedMs", elapsed.Milliseconds()).
		Msg(DocumentLoad)
}

// LogDocumentSave records an accepted write and the fields it touched.
func LogDocumentSave(ctx context.Context, lc Context, version int, changedFields []string, elapsed time.Duration) {
	l := lc.Logger(ctx)
	l.Info().
		Int("version", version).
		Strs("changedFields", changedFields).
		Int64("elapsedMs", elapsed.Milliseconds()).
		Msg(DocumentSave)
}
