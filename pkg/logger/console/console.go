package console

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Format selects how console lines are encoded.
type Format string

const (
	FormatText   Format = "text"
	FormatJSON   Format = "json"
	FormatLogfmt Format = "logfmt"
)

// ConsoleLogger is a LoggerInstance that writes through charmbracelet/log.
type ConsoleLogger struct {
	logger *log.Logger
}

// ConsoleLoggerParams configures a ConsoleLogger. Output defaults to
// stderr and Format to FormatText. Prefix is printed in front of every
// line, e.g. the name of the binary.
type ConsoleLoggerParams struct {
	Debug  bool
	Prefix string
	Format Format
	Output io.Writer
}

func NewConsoleLogger(params ConsoleLoggerParams) *ConsoleLogger {
	out := params.Output
	if out == nil {
		out = os.Stderr
	}

	opts := log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
		Prefix:          params.Prefix,
		Formatter:       formatter(params.Format),
	}
	if params.Debug {
		opts.Level = log.DebugLevel
	}

	return &ConsoleLogger{logger: log.NewWithOptions(out, opts)}
}

// ParseFormat maps a config value to a Format. Unknown values give
// FormatText.
func ParseFormat(s string) Format {
	switch Format(s) {
	case FormatJSON, FormatLogfmt:
		return Format(s)
	}
	return FormatText
}

func formatter(f Format) log.Formatter {
	switch f {
	case FormatJSON:
		return log.JSONFormatter
	case FormatLogfmt:
		return log.LogfmtFormatter
	}
	return log.TextFormatter
}

func (c *ConsoleLogger) Log(message string, keyvals ...any)   { c.logger.Print(message, keyvals...) }
func (c *ConsoleLogger) Debug(message string, keyvals ...any) { c.logger.Debug(message, keyvals...) }
func (c *ConsoleLogger) Info(message string, keyvals ...any)  { c.logger.Info(message, keyvals...) }
func (c *ConsoleLogger) Warn(message string, keyvals ...any)  { c.logger.Warn(message, keyvals...) }
func (c *ConsoleLogger) Error(message string, keyvals ...any) { c.logger.Error(message, keyvals...) }

// Fatal logs at fatal level and exits the process.
func (c *ConsoleLogger) Fatal(message string, keyvals ...any) { c.logger.Fatal(message, keyvals...) }
