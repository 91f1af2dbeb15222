package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// LogrusLogger backs the Logger interface with sirupsen/logrus: a JSON
// formatter, level threshold from Level, and With mapped onto
// logrus.Entry.WithFields. This is the logger every component in this
// repository (WAL, snapshotter, recovery, Raft, peer RPC, orchestrator)
// is constructed with outside of tests.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger creates a LogrusLogger writing JSON lines to w at the
// given level.
func NewLogrusLogger(w io.Writer, level Level) *LogrusLogger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(toLogrusLevel(level))
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

// NewLogrusDefaultLogger writes to stdout at InfoLevel, or at the level
// named by the LOG_LEVEL environment variable (read with ParseLevel) when
// it is set.
func NewLogrusDefaultLogger() *LogrusLogger {
	level := InfoLevel
	if s := os.Getenv("LOG_LEVEL"); s != "" {
		level = ParseLevel(s)
	}
	return NewLogrusLogger(os.Stdout, level)
}

func toLogrusLevel(level Level) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func fromLogrusLevel(level logrus.Level) Level {
	switch level {
	case logrus.DebugLevel, logrus.TraceLevel:
		return DebugLevel
	case logrus.WarnLevel:
		return WarnLevel
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func fieldsToLogrus(fields []Field) logrus.Fields {
	if len(fields) == 0 {
		return nil
	}
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

func (l *LogrusLogger) Debug(msg string, fields ...Field) {
	l.entry.WithFields(fieldsToLogrus(fields)).Debug(msg)
}

func (l *LogrusLogger) Info(msg string, fields ...Field) {
	l.entry.WithFields(fieldsToLogrus(fields)).Info(msg)
}

func (l *LogrusLogger) Warn(msg string, fields ...Field) {
	l.entry.WithFields(fieldsToLogrus(fields)).Warn(msg)
}

func (l *LogrusLogger) Error(msg string, fields ...Field) {
	l.entry.WithFields(fieldsToLogrus(fields)).Error(msg)
}

// With returns a child logger carrying fields on every subsequent call.
func (l *LogrusLogger) With(fields ...Field) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(fieldsToLogrus(fields))}
}

func (l *LogrusLogger) SetLevel(level Level) {
	l.entry.Logger.SetLevel(toLogrusLevel(level))
}

func (l *LogrusLogger) GetLevel() Level {
	return fromLogrusLevel(l.entry.Logger.GetLevel())
}
