package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	sheetKey
)

type sheetRef struct {
	workbook string
	sheet    string
}

// WithRequestID tags ctx with the request ID echoed in X-Request-ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request ID, or "" when ctx has none.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithSheet tags ctx with the workbook alias and sheet an operation targets.
func WithSheet(ctx context.Context, workbook, sheet string) context.Context {
	return context.WithValue(ctx, sheetKey, sheetRef{workbook: workbook, sheet: sheet})
}

// SheetFromContext returns the tags set by WithSheet.
func SheetFromContext(ctx context.Context) (workbook, sheet string) {
	ref, _ := ctx.Value(sheetKey).(sheetRef)
	return ref.workbook, ref.sheet
}

// contextHandler adds the request and sheet tags of the record's context.
// Records logged without a context (Info rather than InfoContext) carry
// none.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if id := RequestIDFromContext(ctx); id != "" {
			r.AddAttrs(slog.String("request_id", id))
		}
		if wb, sh := SheetFromContext(ctx); wb != "" {
			r.AddAttrs(slog.String("workbook", wb), slog.String("sheet", sh))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}
