package logger

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

var Log zerolog.Logger

// Init configures the global logger. Non-production environments get a
// human-readable console writer, production gets plain JSON on stdout.
func Init(env string, debug bool) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if env != "production" {
		Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: false}).With().Timestamp().Logger()
	} else {
		Log = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}

// Debug logs a debug message with optional key/value pairs.
func Debug(msg string, keyValues ...interface{}) {
	logWith(Log.Debug(), msg, keyValues)
}

// Info logs an info message with optional key/value pairs.
func Info(msg string, keyValues ...interface{}) {
	logWith(Log.Info(), msg, keyValues)
}

// Infof logs a formatted info message.
func Infof(format string, v ...interface{}) {
	Log.Info().Msgf(format, v...)
}

// Warn logs a warning message with optional key/value pairs.
func Warn(msg string, keyValues ...interface{}) {
	logWith(Log.Warn(), msg, keyValues)
}

// Error logs an error message with optional key/value pairs.
func Error(msg string, err error, keyValues ...interface{}) {
	logWith(Log.Error().Caller().Stack().Err(err), msg, keyValues)
}

// Fatal logs a fatal message and exits the program.
func Fatal(msg string, err error) {
	Log.Fatal().Err(err).Msg(msg)
}

// logWith attaches key/value pairs to an event. Logging helpers never return
// errors, so an odd-length pair list is reported in the output instead.
func logWith(ev *zerolog.Event, msg string, keyValues []interface{}) {
	if len(keyValues)%2 != 0 {
		ev.Interface("unpaired", keyValues).Msgf("%s (logger called with odd key/value list)", msg)
		return
	}
	for i := 0; i < len(keyValues); i += 2 {
		key, ok := keyValues[i].(string)
		if !ok {
			ev.Interface("unpaired", keyValues).Msgf("%s (logger key is not a string)", msg)
			return
		}
		ev = ev.Interface(key, keyValues[i+1])
	}
	ev.Msg(msg)
}
