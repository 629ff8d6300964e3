package chiext

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Logger logs every request to logger, server errors at error level and the
// rest at debug level.
func Logger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return middleware.RequestLogger(&LogFormatter{Logger: logger})
}

type LogFormatter struct {
	Logger *slog.Logger
}

// NewLogEntry creates a new LogEntry for the request.
func (l *LogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	attrs := []slog.Attr{}

	reqID := middleware.GetReqID(r.Context())
	if reqID != "" {
		attrs = append(attrs, slog.String("request", reqID))
	}
	attrs = append(attrs, slog.String("from", r.RemoteAddr))

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	msg := fmt.Sprintf("%s %s://%s%s %s", r.Method, scheme, r.Host, r.RequestURI, r.Proto)

	return &logEntry{
		logger: l.Logger,
		ctx:    r.Context(),
		attrs:  attrs,
		msg:    msg,
	}
}

type logEntry struct {
	logger *slog.Logger
	ctx    context.Context
	attrs  []slog.Attr
	msg    string
}

func (l *logEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	attrs := append(l.attrs,
		slog.Int("status", status),
		slog.Int("bytes", bytes),
		slog.Duration("elapsed", elapsed),
	)

	level := slog.LevelDebug
	if status >= 500 {
		level = slog.LevelError
	}

	l.logger.LogAttrs(l.ctx, level, l.msg, attrs...)
}

func (l *logEntry) Panic(v interface{}, stack []byte) {
	l.logger.LogAttrs(l.ctx, slog.LevelError, "Request panic", slog.Any("panic", v), slog.String("stack", string(stack)))
}
