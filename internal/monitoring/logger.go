package monitoring

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// NewLogger creates a charmbracelet logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func NewLogger(w io.Writer, level charmlog.Level) *charmlog.Logger {
	return charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// UseCharm routes Logf through l. Messages tagged "[relax]" style keep their
// tag as the logger prefix; debug-only chatter uses the "[debug]" tag.
func UseCharm(l *charmlog.Logger) {
	if l == nil {
		SetLogger(nil)
		return
	}
	SetLogger(func(format string, v ...interface{}) {
		if rest, ok := strings.CutPrefix(format, "[debug] "); ok {
			l.Debugf(rest, v...)
			return
		}
		l.Infof(format, v...)
	})
}

type ctxKey int

const loggerKey ctxKey = 0

// WithLogger returns a new context with the given logger attached.
func WithLogger(ctx context.Context, l *charmlog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext retrieves the logger from ctx, or charmlog.Default() when none
// is attached.
func FromContext(ctx context.Context) *charmlog.Logger {
	if l, ok := ctx.Value(loggerKey).(*charmlog.Logger); ok {
		return l
	}
	return charmlog.Default()
}

// Progress tracks the start time of an operation and logs completion with
// elapsed duration. Not safe for concurrent use.
type Progress struct {
	logger *charmlog.Logger
	start  time.Time
}

// NewProgress captures the current time as start.
func NewProgress(l *charmlog.Logger) *Progress {
	return &Progress{logger: l, start: time.Now()}
}

// Done logs msg along with the elapsed time, rounded to the millisecond.
func (p *Progress) Done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
