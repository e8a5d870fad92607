package logging

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New builds the application logger. Unknown levels fall back to info.
func New(level, format string, out io.Writer) *logrus.Logger {
	l := logrus.New()
	if out == nil {
		out = os.Stdout
	}
	l.SetOutput(out)

	if format == "text" {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// GinWriter routes gin's access log through logrus.
func GinWriter(l logrus.FieldLogger) io.Writer {
	return &ginLogWriter{log: l.WithField("source", "gin")}
}

type ginLogWriter struct {
	log logrus.FieldLogger
}

func (w *ginLogWriter) Write(p []byte) (int, error) {
	w.log.Info(string(p))
	return len(p), nil
}

// Gorm returns a gorm logger.Interface backed by logrus.
func Gorm(l logrus.FieldLogger) logger.Interface {
	return &gormLogger{log: l.WithField("source", "gorm"), level: logger.Warn, slow: 200 * time.Millisecond}
}

type gormLogger struct {
	log   logrus.FieldLogger
	level logger.LogLevel
	slow  time.Duration
}

func (g *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	n := *g
	n.level = level
	return &n
}

func (g *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if g.level >= logger.Info {
		g.log.WithField("data", data).Info(msg)
	}
}

func (g *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if g.level >= logger.Warn {
		g.log.WithField("data", data).Warn(msg)
	}
}

func (g *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if g.level >= logger.Error {
		g.log.WithField("data", data).Error(msg)
	}
}

func (g *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := logrus.Fields{
		"elapsed": elapsed.String(),
		"sql":     sql,
		"rows":    rows,
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= logger.Error:
		g.log.WithFields(fields).WithError(err).Error("SQL query error")
	case elapsed > g.slow && g.level >= logger.Warn:
		g.log.WithFields(fields).Warn("slow SQL query")
	case g.level >= logger.Info:
		g.log.WithFields(fields).Debug("SQL query executed")
	}
}
