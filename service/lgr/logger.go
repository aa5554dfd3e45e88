package lgr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mdobak/go-xerrors"
	"github.com/natefinch/lumberjack"
	"go.opentelemetry.io/otel/trace"
)

// Logger is the process-wide logger. Console gets colored text lines,
// firewatch.log gets rotated JSON records with expanded error stack traces.
var Logger = slog.New(newDualHandler(os.Stderr, &lumberjack.Logger{
	Filename:   "firewatch.log",
	MaxSize:    10, // MB
	MaxBackups: 5,
	MaxAge:     7,    // days
	Compress:   true, // compress old logs
}))

type stackFrame struct {
	Func   string `json:"func"`
	Source string `json:"source"`
	Line   int    `json:"line"`
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case error:
			a.Value = fmtErr(v)
		}
	}

	return a
}

// marshalStack extracts stack frames from the error
func marshalStack(err error) []stackFrame {
	trace := xerrors.StackTrace(err)
	if len(trace) == 0 {
		return nil
	}

	frames := trace.Frames()

	s := make([]stackFrame, len(frames))
	for i, v := range frames {
		s[i] = stackFrame{
			Source: filepath.Join(
				filepath.Base(filepath.Dir(v.File)),
				filepath.Base(v.File),
			),
			Func: filepath.Base(v.Function),
			Line: v.Line,
		}
	}

	return s
}

// fmtErr returns a slog.Value with keys `msg` and `trace`. The `trace` key
// is omitted for errors that carry no stack trace.
func fmtErr(err error) slog.Value {
	var groupValues []slog.Attr

	groupValues = append(groupValues, slog.String("msg", err.Error()))

	if frames := marshalStack(err); frames != nil {
		groupValues = append(groupValues, slog.Any("trace", frames))
	}

	return slog.GroupValue(groupValues...)
}

type dualHandler struct {
	mu      *sync.Mutex
	console *os.File
	file    slog.Handler
	attrs   []slog.Attr
	groups  []string
}

func newDualHandler(console *os.File, sink *lumberjack.Logger) *dualHandler {
	return &dualHandler{
		mu:      &sync.Mutex{},
		console: console,
		file: slog.NewJSONHandler(sink, &slog.HandlerOptions{
			Level:       slog.LevelDebug,
			ReplaceAttr: replaceAttr,
		}),
	}
}

func (h *dualHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		minLevel = slog.LevelDebug
	}
	return level >= minLevel
}

func (h *dualHandler) Handle(ctx context.Context, r slog.Record) error {
	// Propagate trace correlation into the record when a span is active
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("traceId", span.SpanContext().TraceID().String()),
			slog.String("spanId", span.SpanContext().SpanID().String()),
		)
	}

	var sb strings.Builder
	sb.WriteString(r.Time.Format("15:04:05.000"))
	sb.WriteString(" ")
	sb.WriteString(levelLabel(r.Level))
	sb.WriteString(" ")
	sb.WriteString(r.Message)

	for _, a := range h.attrs {
		appendAttr(&sb, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&sb, a)
		return true
	})
	sb.WriteString("\n")

	h.mu.Lock()
	_, _ = h.console.WriteString(sb.String())
	h.mu.Unlock()

	return h.file.Handle(ctx, r)
}

func (h *dualHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	clone.file = h.file.WithAttrs(attrs)
	return &clone
}

func (h *dualHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	clone.file = h.file.WithGroup(name)
	return &clone
}

func appendAttr(sb *strings.Builder, a slog.Attr) {
	sb.WriteString(" ")
	sb.WriteString(color.CyanString(a.Key))
	sb.WriteString("=")
	if err, ok := a.Value.Any().(error); ok {
		sb.WriteString(color.RedString("%q", err.Error()))
		return
	}
	sb.WriteString(fmt.Sprintf("%v", a.Value))
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return color.RedString("ERR")
	case level >= slog.LevelWarn:
		return color.YellowString("WRN")
	case level >= slog.LevelInfo:
		return color.GreenString("INF")
	default:
		return color.WhiteString("DBG")
	}
}
