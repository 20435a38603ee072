// Package ports defines the interfaces between the pipeline and its
// surroundings: logging, files, native libraries, rendering and display.
package ports

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LevelDebug covers per-frame and per-stage detail: registrations,
	// worker start and stop, dropped deliveries.
	LevelDebug LogLevel = iota
	// LevelInfo covers run progress shown to the operator.
	LevelInfo
	// LevelWarn covers failed stages and other problems the pipeline
	// survives.
	LevelWarn
	// LevelError covers panics in algorithms or displayers and failures
	// that end a run.
	LevelError
	// LevelQuiet suppresses all log output.
	LevelQuiet
)

var levelNames = [...]string{"debug", "info", "warn", "error", "quiet"}

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "unknown"
	}
	return levelNames[l]
}

// LookupLogLevel parses a level name.
func LookupLogLevel(s string) (LogLevel, bool) {
	for i, name := range levelNames {
		if name == s {
			return LogLevel(i), true
		}
	}
	return LevelInfo, false
}

// ParseLogLevel parses a level name, falling back to LevelInfo.
func ParseLogLevel(s string) LogLevel {
	l, _ := LookupLogLevel(s)
	return l
}

// Logger abstracts logging operations with multi-language support.
//
// msg is a message key translated before formatting, so callers pass the
// English text with its verbs and the values separately.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithComponent returns a Logger that prefixes messages with the
	// component name.
	WithComponent(component string) Logger
}
