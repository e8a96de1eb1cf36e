package logsvc

import (
	"io"
	"time"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/rs/zerolog"

	"github.com/trezcool/karo/core"
	"github.com/trezcool/karo/core/user"
)

// RollbarLogger writes structured logs and reports warnings and errors to Rollbar.
type RollbarLogger struct {
	zl zerolog.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger returns a logger writing to w. The optional component names the part of
// the application the logs come from ("api", "db", ...).
func NewRollbarLogger(w io.Writer, conf *core.Config, component ...string) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.Debug && !conf.TestMode)

	level := zerolog.InfoLevel
	if conf.Debug {
		level = zerolog.DebugLevel
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zctx := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("app", conf.AppName).
		Str("build", conf.Build)
	if len(component) > 0 {
		zctx = zctx.Str("component", component[0])
	}
	zl := zctx.Logger()

	return &RollbarLogger{zl: zl}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var usrSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// set logged in User
		if usr, ok := arg.(user.User); ok {
			if !usrSet { // only set one User
				rollbar.SetPerson(usr.ID, usr.FullName, usr.Email)
				usrSet = true
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

func (l RollbarLogger) write(evt *zerolog.Event, msg string, args []interface{}) {
	var rest []interface{}
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			evt = evt.Err(a)
		case map[string]interface{}:
			evt = evt.Fields(a)
		case user.User:
			evt = evt.Str("user_id", a.ID).Str("user_role", string(a.Role))
		default:
			rest = append(rest, a)
		}
	}
	if len(rest) > 0 {
		evt = evt.Interface("args", rest)
	}
	evt.Msg(msg)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.write(l.zl.Debug(), msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.write(l.zl.Info(), msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.write(l.zl.Warn(), msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.write(l.zl.Error(), msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	rollbar.Wait()
	l.write(l.zl.Fatal(), msg, args)
}
