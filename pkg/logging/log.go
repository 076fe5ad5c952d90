package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

func Init() {
	env := os.Getenv("APP_ENV")
	if env == "prod" {
		Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).
			With().Timestamp().Logger()
	}
	Logger = Logger.Level(parseLevel(os.Getenv("LOG_LEVEL")))
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetLevel overrides the level chosen by Init.
func SetLevel(level string) {
	Logger = Logger.Level(parseLevel(level))
}
