package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log defaults to plain JSON on stdout so packages can log before Init runs
// (and tests never need to care).
var Log = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init initializes the global logger. Development gets pretty console output,
// everything else JSON. When logFile is non-empty, output is duplicated to a
// size-rotated file so long transfers keep a usable history.
func Init(env, logFile string) {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	if logFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, rotated)
	}

	Log = zerolog.New(out).With().Timestamp().Logger()
	if env == "development" {
		Log = Log.With().Caller().Logger()
	}
}

// Helper functions for common log levels
func Info() *zerolog.Event {
	return Log.Info()
}

func Error() *zerolog.Event {
	return Log.Error()
}

func Warn() *zerolog.Event {
	return Log.Warn()
}

func Debug() *zerolog.Event {
	return Log.Debug()
}

func Fatal() *zerolog.Event {
	return Log.Fatal()
}
