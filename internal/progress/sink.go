// Package progress delivers human-readable crawl progress lines to an
// operator-chosen destination. Sinks are for visibility only and never
// participate in control flow.
package progress

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// Sink accepts a single human-readable progress line.
type Sink func(line string)

// Stdout returns a sink that prints each line to standard output. It is the
// default for CLI runs.
func Stdout() Sink {
	return Writer(os.Stdout)
}

// Writer returns a sink that writes each line, newline-terminated, to w.
func Writer(w io.Writer) Sink {
	return func(line string) {
		fmt.Fprintln(w, line)
	}
}

// Logger returns a sink that emits each line through a zap logger at info
// level. A nil logger degrades to a no-op logger.
func Logger(logger *zap.Logger) Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(line string) {
		logger.Info(line)
	}
}

// Discard returns a sink that drops every line. Useful in tests.
func Discard() Sink {
	return func(string) {}
}
