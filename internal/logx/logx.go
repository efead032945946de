package logx

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog logger configured for console output.
func NewLogger() zerolog.Logger {
	return NewLoggerTo(os.Stdout)
}

// NewLoggerTo returns a console logger writing to the given writer.
// The experience tools use this to keep log lines separate from
// command output (listings, CPGN lines) that goes to stdout.
func NewLoggerTo(w io.Writer) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		// Extract just the filename, not the full path
		short := file
		for i := len(file) - 1; i > 0; i-- {
			if file[i] == '/' {
				short = file[i+1:]
				break
			}
		}
		// Pad to 28 characters for alignment
		return fmt.Sprintf("%-28s", fmt.Sprintf("%s:%d", short, line))
	}
	logger := zerolog.New(output).With().Timestamp().Caller().Logger()
	return logger
}
