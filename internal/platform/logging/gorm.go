package logging

import (
	"context"
	"errors"
	"time"

	waLog "go.mau.fi/whatsmeow/util/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 500 * time.Millisecond

type gormLogger struct {
	log   waLog.Logger
	level gormlogger.LogLevel
}

// Gorm returns a GORM logger writing to log. Only slow queries and errors
// are reported at the default Warn level.
func Gorm(log waLog.Logger) gormlogger.Interface {
	if log == nil {
		log = waLog.Noop
	}
	return &gormLogger{log: log, level: gormlogger.Warn}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *gormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.log.Infof(msg, args...)
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.log.Warnf(msg, args...)
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.log.Errorf(msg, args...)
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		l.log.Errorf("query failed after %s rows=%d: %v: %s", elapsed, rows, err, sql)
	case elapsed > slowQueryThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.Warnf("slow query %s rows=%d: %s", elapsed, rows, sql)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.log.Debugf("query %s rows=%d: %s", elapsed, rows, sql)
	}
}
