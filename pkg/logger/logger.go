// Package logger builds the process loggers on top of whatsmeow's waLog.
package logger

import (
	"os"
	"strings"

	waLog "go.mau.fi/whatsmeow/util/log"
)

type Logger struct {
	App       waLog.Logger
	HTTP      waLog.Logger
	Pipeline  waLog.Logger
	Ingest    waLog.Logger
	WhatsApp  waLog.Logger
	Scheduler waLog.Logger
	DB        waLog.Logger
}

// New returns loggers at level (DEBUG, INFO, WARN, ERROR). Colors are off
// when NO_COLOR is set.
func New(level string) *Logger {
	level = strings.ToUpper(strings.TrimSpace(level))
	if level == "" {
		level = "INFO"
	}
	app := waLog.Stdout("App", level, os.Getenv("NO_COLOR") == "")
	return &Logger{
		App:       app,
		HTTP:      app.Sub("HTTP"),
		Pipeline:  app.Sub("Summary"),
		Ingest:    app.Sub("Ingest"),
		WhatsApp:  app.Sub("WhatsApp"),
		Scheduler: app.Sub("Digest"),
		DB:        app.Sub("DB"),
	}
}

func (l *Logger) WithRequestID(id string) waLog.Logger {
	return l.HTTP.Sub(id)
}

func InitForTests() *Logger {
	return &Logger{
		App:       waLog.Stdout("Test", "DEBUG", false),
		HTTP:      waLog.Noop,
		Pipeline:  waLog.Noop,
		Ingest:    waLog.Noop,
		WhatsApp:  waLog.Noop,
		Scheduler: waLog.Noop,
		DB:        waLog.Noop,
	}
}
