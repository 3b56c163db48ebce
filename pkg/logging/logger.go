/*
Copyright 2020- IBM Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
)

var Logger DefaultLogger
var once sync.Once

// Verbosity is an enumerated type for defining the level of verbosity.
type Verbosity int

const (
	LowVerbosity    Verbosity = iota // LowVerbosity only reports errors
	MediumVerbosity                  // MediumVerbosity reports warnings and errors
	HighVerbosity                    // HighVerbosity reports debug messages, infos, warnings and errors
)

const timeFormat = "15:04:05.00"

// DefaultLogger is the package's built-in logger. It writes leveled records to stderr.
type DefaultLogger struct {
	verbosity Verbosity
	l         *log.Logger
}

// NewDefaultLogger creates an instance of DefaultLogger with the highest verbosity.
func NewDefaultLogger() *DefaultLogger {
	return NewDefaultLoggerWithVerbosity(HighVerbosity)
}

// NewDefaultLoggerWithVerbosity creates an instance of DefaultLogger with a user-defined verbosity.
func NewDefaultLoggerWithVerbosity(verbosity Verbosity) *DefaultLogger {
	return newLogger(os.Stderr, verbosity)
}

func newLogger(w io.Writer, verbosity Verbosity) *DefaultLogger {
	return &DefaultLogger{
		verbosity: verbosity,
		l: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      timeFormat,
			Level:           levelOf(verbosity),
		}),
	}
}

func levelOf(verbosity Verbosity) log.Level {
	switch verbosity {
	case LowVerbosity:
		return log.ErrorLevel
	case MediumVerbosity:
		return log.WarnLevel
	default:
		return log.DebugLevel
	}
}

// Init initializes a thread-safe singleton logger
// This would be called from a main method when the application starts up
func Init(verbosity Verbosity) {
	// once ensures the singleton is initialized only once
	once.Do(func() {
		Logger = *NewDefaultLoggerWithVerbosity(verbosity)
	})
}

func callerName() string {
	pc, _, _, _ := runtime.Caller(2)
	if details := runtime.FuncForPC(pc); details != nil {
		return details.Name()
	}
	return ""
}

// Debugf writes a debug message to the log (only if DefaultLogger verbosity is set to HighVerbosity)
func Debugf(format string, o ...interface{}) {
	if Logger.verbosity == HighVerbosity && Logger.l != nil {
		Logger.l.Debug(fmt.Sprintf(format, o...), "caller", callerName())
	}
}

// Infof writes an informative message to the log (only if DefaultLogger verbosity is set to HighVerbosity)
func Infof(format string, o ...interface{}) {
	if Logger.verbosity == HighVerbosity && Logger.l != nil {
		Logger.l.Info(fmt.Sprintf(format, o...), "caller", callerName())
	}
}

// Warnf writes a warning message to the log (unless DefaultLogger verbosity is set to LowVerbosity)
func Warnf(format string, o ...interface{}) {
	if Logger.verbosity >= MediumVerbosity && Logger.l != nil {
		Logger.l.Warn(fmt.Sprintf(format, o...), "caller", callerName())
	}
}

// Errorf writes an error message to the log, regardless of verbosity
func Errorf(format string, o ...interface{}) {
	if Logger.l != nil {
		Logger.l.Error(fmt.Sprintf(format, o...))
	}
}

// ReturnErrorf writes an error message to the log (only if DefaultLogger verbosity is set to HighVerbosity)
// and returns the error message
func ReturnErrorf(format string, o ...interface{}) error {
	err := fmt.Errorf(format, o...)
	if Logger.verbosity == HighVerbosity && Logger.l != nil {
		Logger.l.Error(err.Error(), "caller", callerName())
	}
	return err
}
