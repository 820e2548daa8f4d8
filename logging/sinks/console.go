package sinks

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"bulletsim/server/logging"
)

// ConsoleSink renders events as leveled key/value lines.
type ConsoleSink struct {
	logger *log.Logger
}

func NewConsoleSink(w io.Writer, cfg logging.ConsoleConfig) *ConsoleSink {
	formatter := log.LogfmtFormatter
	if cfg.UseColor {
		formatter = log.TextFormatter
	}
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "event",
		Level:           log.DebugLevel,
		Formatter:       formatter,
	})
	return &ConsoleSink{logger: logger}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	keyvals := []any{"tick", event.Tick, "actor", formatEntity(event.Actor)}
	if targets := formatTargets(event.Targets); targets != "" {
		keyvals = append(keyvals, "targets", targets)
	}
	if event.Payload != nil {
		keyvals = append(keyvals, "payload", fmt.Sprintf("%+v", event.Payload))
	}
	for k, v := range event.Extra {
		keyvals = append(keyvals, k, v)
	}
	s.logger.Log(levelFor(event.Severity), string(event.Type), keyvals...)
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func levelFor(sev logging.Severity) log.Level {
	switch sev {
	case logging.SeverityDebug:
		return log.DebugLevel
	case logging.SeverityWarn:
		return log.WarnLevel
	case logging.SeverityError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

func formatEntity(ref logging.EntityRef) string {
	if ref.ID == "" {
		return string(ref.Kind)
	}
	if ref.Kind == "" {
		return ref.ID
	}
	return fmt.Sprintf("%s:%s", ref.Kind, ref.ID)
}

func formatTargets(targets []logging.EntityRef) string {
	if len(targets) == 0 {
		return ""
	}
	parts := make([]string, 0, len(targets))
	for _, target := range targets {
		parts = append(parts, formatEntity(target))
	}
	return strings.Join(parts, ",")
}
