package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type Logger struct {
	l logrus.FieldLogger
}

type Config struct {
	Level  string
	Format string
	Output io.Writer
}

func New(l logrus.FieldLogger) *Logger {
	return &Logger{l: l}
}

func NewFromConfig(conf Config) (*Logger, error) {
	level, err := logrus.ParseLevel(conf.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", conf.Level, err)
	}

	l := logrus.New()
	l.SetLevel(level)

	if conf.Output == nil {
		conf.Output = os.Stdout
	}

	l.SetOutput(conf.Output)

	if conf.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		//nolint:exhaustruct
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return New(l), nil
}

// Discard returns a logger that drops everything, handy for tests.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return New(l)
}

func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{l: l.l.WithField(key, value)}
}

func (l *Logger) LogErrorf(format string, v ...any) {
	l.l.Errorf(format, v...)
}

func (l *Logger) LogWarn(format string, v ...any) {
	l.l.Warnf(format, v...)
}

func (l *Logger) LogInfo(format string, v ...any) {
	l.l.Infof(format, v...)
}

func (l *Logger) LogDebug(format string, v ...any) {
	l.l.Debugf(format, v...)
}

// Writer exposes the logger as an io.Writer, used for net/http's ErrorLog.
func (l *Logger) Writer() *io.PipeWriter {
	if entry, ok := l.l.(*logrus.Entry); ok {
		return entry.WriterLevel(logrus.ErrorLevel)
	}

	if base, ok := l.l.(*logrus.Logger); ok {
		return base.WriterLevel(logrus.ErrorLevel)
	}

	return logrus.StandardLogger().WriterLevel(logrus.ErrorLevel)
}
