package logsvc

import (
	"log"
	"strconv"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/rapor-tpq/rapor/core"
	"github.com/rapor-tpq/rapor/core/student"
	"github.com/rapor-tpq/rapor/core/user"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
	levelFatal
)

var levels = [...]struct {
	tag    string
	report func(...interface{})
}{
	levelDebug: {"DEBUG", rollbar.Debug},
	levelInfo:  {"INFO", rollbar.Info},
	levelWarn:  {"WARN", rollbar.Warning},
	levelError: {"ERROR", rollbar.Error},
	levelFatal: {"FATAL", rollbar.Critical},
}

// RollbarLogger prints log entries and reports them to Rollbar once enabled.
// Debug entries are dropped unless the app runs in debug mode.
type RollbarLogger struct {
	std *log.Logger
	min level
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)

	min := levelInfo
	if conf.Debug {
		min = levelDebug
	}
	return &RollbarLogger{std: std, min: min}
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Close waits for the queued reports to be sent.
func (l *RollbarLogger) Close() {
	rollbar.Close()
}

// prepare turns args into rollbar arguments.
// The first user.User becomes the Rollbar person; students are reported as extra data.
func (l *RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var (
		usrSet bool
		extras map[string]interface{}
	)
	newArgs := make([]interface{}, 0, len(args)+2)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		switch v := arg.(type) {
		case user.User:
			if !usrSet {
				rollbar.SetPerson(strconv.Itoa(v.ID), v.Username, v.Email)
				usrSet = true
			}
		case student.Student:
			if extras == nil {
				extras = make(map[string]interface{})
			}
			extras["student_id"] = v.ID
			extras["student_class"] = v.Class
		default:
			newArgs = append(newArgs, arg)
		}
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	if extras != nil {
		newArgs = append(newArgs, extras)
	}
	return newArgs
}

func (l *RollbarLogger) log(lvl level, msg string, args []interface{}) {
	if lvl < l.min {
		return
	}
	levels[lvl].report(l.prepare(msg, args)...)

	l.std.Printf("[%s] %s", levels[lvl].tag, msg)
	for _, arg := range args {
		if usr, ok := arg.(user.User); ok {
			l.std.Printf("  user: %d (%s)", usr.ID, usr.Username)
			continue
		}
		l.std.Printf("  %+v", arg)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.log(levelDebug, msg, args) }
func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.log(levelInfo, msg, args) }
func (l *RollbarLogger) Warn(msg string, args ...interface{})  { l.log(levelWarn, msg, args) }
func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.log(levelError, msg, args) }

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(levelFatal, msg, args)
	rollbar.Close()
	l.std.Fatal(msg)
}
