package exasol

import (
	"log"
	"os"

	"github.com/sirupsen/logrus"
)

// By default we'll only print out warnings and errors to stderr.
// If you want anything else you'll need to pass in a custom logger to the
// connection and it needs to conform to the following interface:

type Logger interface {
	Debug(...interface{})
	Debugf(string, ...interface{})

	Info(...interface{})
	Infof(string, ...interface{})

	Warning(...interface{})
	Warningf(string, ...interface{})

	Error(...interface{})
	Errorf(string, ...interface{})
}

type defLogger struct {
	logger *log.Logger
}

func newDefaultLogger() *defLogger {
	return &defLogger{log.New(os.Stderr, "[exasol]", log.Lshortfile)}
}

func (l *defLogger) Debug(args ...interface{})              {}
func (l *defLogger) Debugf(str string, args ...interface{}) {}

func (l *defLogger) Info(args ...interface{})              {}
func (l *defLogger) Infof(str string, args ...interface{}) {}

func (l *defLogger) Warning(args ...interface{})              { l.logger.Print(args...) }
func (l *defLogger) Warningf(str string, args ...interface{}) { l.logger.Printf(str, args...) }

func (l *defLogger) Error(args ...interface{})              { l.logger.Print(args...) }
func (l *defLogger) Errorf(str string, args ...interface{}) { l.logger.Printf(str, args...) }

// LogrusLogger adapts a *logrus.Logger (or any entry-compatible value) to
// the Logger interface, for callers who already run a logrus-based logging
// stack and want Conn's diagnostics folded into it instead of going to a
// second, unrelated sink.
type LogrusLogger struct {
	Entry *logrus.Entry
}

// NewLogrusLogger wraps l, tagging every record with a "component=exasol"
// field so it's easy to filter out of a shared log stream.
func NewLogrusLogger(l *logrus.Logger) *LogrusLogger {
	return &LogrusLogger{Entry: l.WithField("component", "exasol")}
}

func (l *LogrusLogger) Debug(args ...interface{})              { l.Entry.Debug(args...) }
func (l *LogrusLogger) Debugf(str string, args ...interface{}) { l.Entry.Debugf(str, args...) }

func (l *LogrusLogger) Info(args ...interface{})              { l.Entry.Info(args...) }
func (l *LogrusLogger) Infof(str string, args ...interface{}) { l.Entry.Infof(str, args...) }

func (l *LogrusLogger) Warning(args ...interface{})              { l.Entry.Warning(args...) }
func (l *LogrusLogger) Warningf(str string, args ...interface{}) { l.Entry.Warningf(str, args...) }

func (l *LogrusLogger) Error(args ...interface{})              { l.Entry.Error(args...) }
func (l *LogrusLogger) Errorf(str string, args ...interface{}) { l.Entry.Errorf(str, args...) }
