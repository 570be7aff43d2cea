package logger

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx/fxevent"
)

type fxLogger struct {
	l zerolog.Logger
}

var _ fxevent.Logger = (*fxLogger)(nil)

// Fx routes fx lifecycle events through the global zerolog logger.
// Successful wiring events are logged at trace level to keep startup output short.
func Fx() fxevent.Logger {
	return &fxLogger{
		l: log.Logger.
			With().
			Str("evt.name", "fx.init").
			Logger(),
	}
}

func (l *fxLogger) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		l.hook(e.Err, "OnStart", e.FunctionName, e.CallerName)
	case *fxevent.OnStopExecuted:
		l.hook(e.Err, "OnStop", e.FunctionName, e.CallerName)
	case *fxevent.Provided:
		if e.Err != nil {
			l.l.Error().Err(e.Err).Str("module", e.ModuleName).Msg("error encountered while applying options")
			return
		}
		for _, t := range e.OutputTypeNames {
			l.l.Trace().Str("module", e.ModuleName).Str("constructor", e.ConstructorName).Str("type", t).Msg("provided")
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			l.l.Error().Err(e.Err).Str("module", e.ModuleName).Str("function", e.FunctionName).Str("stack", e.Trace).Msg("invoke failed")
			return
		}
		l.l.Trace().Str("module", e.ModuleName).Str("function", e.FunctionName).Msg("invoked")
	case *fxevent.Stopped:
		if e.Err != nil {
			l.l.Error().Err(e.Err).Msg("stop failed")
		}
	case *fxevent.RollingBack:
		l.l.Error().Err(e.StartErr).Msg("start failed, rolling back")
	case *fxevent.Started:
		if e.Err != nil {
			l.l.Error().Err(e.Err).Msg("start failed")
			return
		}
		l.l.Info().Msg("started")
	}
}

func (l *fxLogger) hook(err error, kind, fn, caller string) {
	if err != nil {
		l.l.Error().Err(err).Str("hook", kind).Str("callee", fn).Str("caller", caller).Msg("hook failed")
		return
	}
	l.l.Trace().Str("hook", kind).Str("callee", fn).Str("caller", caller).Msg("hook executed")
}
