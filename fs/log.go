package fs

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// LogLevel describes the severity of a log message, in syslog order.
type LogLevel byte

// Log levels. They are in decreasing order of severity.
const (
	LogLevelEmergency LogLevel = iota
	LogLevelAlert
	LogLevelCritical
	LogLevelError // Error
	LogLevelWarning
	LogLevelNotice // Normal logging, the default level
	LogLevelInfo   // Informational, needs SetLogLevel(LogLevelInfo)
	LogLevelDebug  // Debug level, needs SetLogLevel(LogLevelDebug)
)

var logLevelToString = []string{
	LogLevelEmergency: "EMERGENCY",
	LogLevelAlert:     "ALERT",
	LogLevelCritical:  "CRITICAL",
	LogLevelError:     "ERROR",
	LogLevelWarning:   "WARNING",
	LogLevelNotice:    "NOTICE",
	LogLevelInfo:      "INFO",
	LogLevelDebug:     "DEBUG",
}

// String turns a LogLevel into a string
func (l LogLevel) String() string {
	if int(l) >= len(logLevelToString) {
		return fmt.Sprintf("LogLevel(%d)", l)
	}
	return logLevelToString[l]
}

// currentLogLevel is the level below which messages are discarded.
var currentLogLevel = LogLevelNotice

// SetLogLevel sets the level below which messages are discarded.
func SetLogLevel(level LogLevel) {
	currentLogLevel = level
	switch {
	case level >= LogLevelDebug:
		logrus.SetLevel(logrus.DebugLevel)
	case level >= LogLevelInfo:
		logrus.SetLevel(logrus.InfoLevel)
	case level >= LogLevelNotice:
		logrus.SetLevel(logrus.WarnLevel)
	default:
		logrus.SetLevel(logrus.ErrorLevel)
	}
}

// logPrintf produces a log string from the arguments passed in
func logPrintf(level LogLevel, o interface{}, text string, args ...interface{}) {
	if level > currentLogLevel {
		return
	}
	out := fmt.Sprintf(text, args...)
	if o != nil {
		out = fmt.Sprintf("%v: %s", o, out)
	}
	switch level {
	case LogLevelDebug:
		logrus.Debug(out)
	case LogLevelInfo:
		logrus.Info(out)
	case LogLevelNotice, LogLevelWarning:
		logrus.Warn(out)
	default:
		logrus.Error(out)
	}
}

// Errorf writes error log output for this Object or Fs. It is
// shown unless the log level is set below LogLevelError.
func Errorf(o interface{}, text string, args ...interface{}) {
	logPrintf(LogLevelError, o, text, args...)
}

// Logf writes log output for this Object or Fs. This should be
// considered to be Notice level logging.
func Logf(o interface{}, text string, args ...interface{}) {
	logPrintf(LogLevelNotice, o, text, args...)
}

// Infof writes informational output for this Object or Fs.
func Infof(o interface{}, text string, args ...interface{}) {
	logPrintf(LogLevelInfo, o, text, args...)
}

// Debugf writes debugging output for this Object or Fs.
func Debugf(o interface{}, text string, args ...interface{}) {
	logPrintf(LogLevelDebug, o, text, args...)
}
