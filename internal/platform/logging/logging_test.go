package logging

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	waLog "go.mau.fi/whatsmeow/util/log"
	gormlogger "gorm.io/gorm/logger"
)

type recordingLogger struct {
	lines *[]string
}

func (r recordingLogger) add(level, msg string, args ...any) {
	*r.lines = append(*r.lines, level+" "+fmt.Sprintf(msg, args...))
}
func (r recordingLogger) Warnf(msg string, args ...any)  { r.add("WARN", msg, args...) }
func (r recordingLogger) Errorf(msg string, args ...any) { r.add("ERROR", msg, args...) }
func (r recordingLogger) Infof(msg string, args ...any)  { r.add("INFO", msg, args...) }
func (r recordingLogger) Debugf(msg string, args ...any) { r.add("DEBUG", msg, args...) }
func (r recordingLogger) Sub(string) waLog.Logger        { return r }

func TestGocronFormatsPairs(t *testing.T) {
	var lines []string
	Gocron(recordingLogger{&lines}).Info("job scheduled", "name", "digest", "cron", "0 7 * * *", "orphan")
	if len(lines) != 1 || lines[0] != "INFO job scheduled name=digest cron=0 7 * * * orphan" {
		t.Fatalf("unexpected lines %q", lines)
	}
}

func TestGormLogsSlowAndFailedQueries(t *testing.T) {
	var lines []string
	l := Gorm(recordingLogger{&lines})
	fc := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), fc, nil)
	if len(lines) != 0 {
		t.Fatalf("fast query should not be logged at warn level: %q", lines)
	}
	l.Trace(context.Background(), time.Now().Add(-time.Second), fc, nil)
	l.Trace(context.Background(), time.Now(), fc, fmt.Errorf("boom"))
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "WARN slow query") || !strings.HasPrefix(lines[1], "ERROR query failed") {
		t.Fatalf("unexpected lines %q", lines)
	}

	lines = nil
	l.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now().Add(-time.Second), fc, fmt.Errorf("boom"))
	if len(lines) != 0 {
		t.Fatalf("silent mode logged %q", lines)
	}
}
