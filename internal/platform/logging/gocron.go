// Package logging adapts third-party logger interfaces onto waLog.Logger.
package logging

import (
	"fmt"
	"strings"

	"github.com/go-co-op/gocron/v2"
	waLog "go.mau.fi/whatsmeow/util/log"
)

type gocronLogger struct {
	log waLog.Logger
}

// Gocron returns a gocron.Logger writing to log.
func Gocron(log waLog.Logger) gocron.Logger {
	if log == nil {
		log = waLog.Noop
	}
	return &gocronLogger{log: log}
}

func (l *gocronLogger) Debug(msg string, args ...any) { l.log.Debugf("%s", formatKV(msg, args)) }
func (l *gocronLogger) Info(msg string, args ...any)  { l.log.Infof("%s", formatKV(msg, args)) }
func (l *gocronLogger) Warn(msg string, args ...any)  { l.log.Warnf("%s", formatKV(msg, args)) }
func (l *gocronLogger) Error(msg string, args ...any) { l.log.Errorf("%s", formatKV(msg, args)) }

// formatKV renders slog style key/value pairs after the message.
func formatKV(msg string, args []any) string {
	if len(args) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		b.WriteByte(' ')
		if i+1 >= len(args) {
			fmt.Fprintf(&b, "%v", args[i])
			break
		}
		fmt.Fprintf(&b, "%v=%v", args[i], args[i+1])
	}
	return b.String()
}
