// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package log provides leveled, named loggers for the other
// packages of the module.
package log

import (
	"io"
	"os"

	"github.com/op/go-logging"
)

// Level of log verbosity.
type Level int

// The levels accepted by SetLevel, most verbose first.
const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

var format = logging.MustStringFormatter(
	`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
)

var leveled logging.LeveledBackend

// Logger is the interface that named loggers implement.
type Logger interface {
	Debug(v ...any)
	Debugf(format string, v ...any)

	Info(v ...any)
	Infof(format string, v ...any)

	Notice(v ...any)
	Noticef(format string, v ...any)

	Warning(v ...any)
	Warningf(format string, v ...any)

	Error(v ...any)
	Errorf(format string, v ...any)

	// Fatal logs at the highest severity and then
	// calls os.Exit(1).
	Fatal(v ...any)
	Fatalf(format string, v ...any)
}

// New creates a named logger.
// The name identifies the originating package in the log
// output.
func New(name string) Logger {
	return logging.MustGetLogger(name)
}

// SetSink replaces the output sink of every logger.
func SetSink(sink io.Writer) {
	backend := logging.NewLogBackend(sink, "", 0)
	leveled = logging.AddModuleLevel(logging.NewBackendFormatter(backend, format))
	leveled.SetLevel(logging.NOTICE, "")
	logging.SetBackend(leveled)
}

// SetLevel sets the verbosity of every logger.
func SetLevel(level Level) {
	var l logging.Level
	switch level {
	case Debug:
		l = logging.DEBUG
	case Info:
		l = logging.INFO
	case Notice:
		l = logging.NOTICE
	case Warning:
		l = logging.WARNING
	case Error:
		l = logging.ERROR
	}
	leveled.SetLevel(l, "")
}

func init() {
	SetSink(os.Stderr)
}
