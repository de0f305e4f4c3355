package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the application logger. Development environments get a
// human readable console writer; everything else logs JSON to stdout.
func New(environment, level string) zerolog.Logger {
	return NewWithWriter(os.Stdout, environment, level)
}

func NewWithWriter(out io.Writer, environment, level string) zerolog.Logger {
	zerolog.TimestampFieldName = "timestamp"

	w := out
	if environment == "development" || environment == "local" {
		consoleWriter := zerolog.NewConsoleWriter()
		consoleWriter.TimeFormat = time.DateTime
		consoleWriter.Out = out
		consoleWriter.NoColor = out != os.Stdout
		w = consoleWriter
	}

	return zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("env", environment).
		Int("pid", os.Getpid()).
		Logger()
}

// ParseLevel maps a level name onto zerolog's levels, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}
