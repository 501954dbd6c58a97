package boardlist

import (
	"time"

	"github.com/golang/glog"
)

// Operations reported through LogEvent.Op.
const (
	OpResolve  = "resolve"
	OpRule     = "rule"
	OpCommit   = "commit"
	OpPatch    = "patch"
	OpActivity = "activity"
)

// LogEvent describes one step of resolving or renaming a query.
type LogEvent struct {
	Op       string
	QueryID  Identifier
	Name     string
	Duration time.Duration
	Err      error
}

// Logger records list events.
type Logger interface {
	LogEvent(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// LogEvent implements Logger.
func (f LoggerFunc) LogEvent(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogEvent(LogEvent) {}

type glogLogger struct {
	level glog.Level
}

// GlogLogger writes failures with glog.Errorf and every other event at the
// given verbosity level.
func GlogLogger(level glog.Level) Logger {
	return glogLogger{level: level}
}

func (l glogLogger) LogEvent(event LogEvent) {
	if event.Err != nil {
		glog.Errorf("[boardlist][%s] query=%s name=%q took=%s: %v", event.Op, event.QueryID, event.Name, event.Duration, event.Err)
		return
	}
	glog.V(l.level).Infof("[boardlist][%s] query=%s name=%q took=%s", event.Op, event.QueryID, event.Name, event.Duration)
}
