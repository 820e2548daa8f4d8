package telemetry

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"bulletsim/server/logging"
)

// Logger is the printf-style surface the hub, engine and replicas log
// through. Messages conventionally start with a "[component]" tag.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

// Printf implements Logger for LoggerFunc.
func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a charm logger. A leading "[component]" tag becomes a
// structured component field.
func WrapLogger(logger *log.Logger) Logger {
	return &charmLogger{logger: logger}
}

type charmLogger struct {
	logger *log.Logger
}

func (l *charmLogger) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	component, msg := splitComponent(fmt.Sprintf(format, args...))
	if component == "" {
		l.logger.Print(msg)
		return
	}
	l.logger.Print(msg, "component", component)
}

func splitComponent(line string) (string, string) {
	if !strings.HasPrefix(line, "[") {
		return "", line
	}
	end := strings.IndexByte(line, ']')
	if end <= 1 {
		return "", line
	}
	return line[1:end], strings.TrimSpace(line[end+1:])
}

// Metrics is the counter surface of the command buffer, engine and hub.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// WrapMetrics exposes router counters as Metrics. A nil map discards
// every update.
func WrapMetrics(metrics *logging.Metrics) Metrics {
	return metrics
}
