package main

import (
	"io"
	"log"
	"strings"
)

var logLevels = map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3}

// stdLogger implements the package Logger interfaces using standard library log.
type stdLogger struct {
	out   *log.Logger
	level int
}

func newStdLogger(w io.Writer, level string) *stdLogger {
	lvl, ok := logLevels[strings.ToUpper(level)]
	if !ok {
		lvl = logLevels["INFO"]
	}
	return &stdLogger{out: log.New(w, "", log.LstdFlags), level: lvl}
}

func (l *stdLogger) logf(level, msg string, keysAndValues []any) {
	if logLevels[level] < l.level {
		return
	}
	l.out.Printf("[%s] %s %v", level, msg, keysAndValues)
}

func (l *stdLogger) Debug(msg string, keysAndValues ...any) { l.logf("DEBUG", msg, keysAndValues) }
func (l *stdLogger) Info(msg string, keysAndValues ...any)  { l.logf("INFO", msg, keysAndValues) }
func (l *stdLogger) Warn(msg string, keysAndValues ...any)  { l.logf("WARN", msg, keysAndValues) }
func (l *stdLogger) Error(msg string, keysAndValues ...any) { l.logf("ERROR", msg, keysAndValues) }
