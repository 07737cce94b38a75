// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Log output formats
const (
	FormatAuto    = "auto"
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Setup sets the global level and points log.Logger at w. Format auto writes
// human-readable lines when w is a terminal and JSON lines otherwise.
func Setup(level, format string, w io.Writer) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer
	switch format {
	case FormatConsole:
		out = console(w)
	case FormatJSON:
		out = w
	case FormatAuto, "":
		if isTerminal(w) {
			out = console(w)
		} else {
			out = w
		}
	default:
		return fmt.Errorf("invalid log format %q (want auto, console or json)", format)
	}

	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}

// Level picks the log level for the -v and -q flags
func Level(verbose, quiet bool) string {
	switch {
	case verbose:
		return zerolog.LevelDebugValue
	case quiet:
		return zerolog.LevelWarnValue
	default:
		return zerolog.LevelInfoValue
	}
}

func console(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
