package contracts

import "time"

// LogLevel represents the severity level for logging.
type LogLevel int

const (
	// InfoLevel indicates informational messages that highlight the progress of playback.
	InfoLevel LogLevel = iota
	// DebugLevel indicates verbose messages useful to troubleshoot merge and
	// scheduling decisions.
	DebugLevel
	// ErrorLevel indicates failures that terminate a device or the whole run.
	ErrorLevel
	// WarnLevel indicates recoverable situations, such as dropped tracks or
	// skipped devices, that should be visible to the user.
	WarnLevel
	// FatalLevel indicates unrecoverable errors that abort the application.
	FatalLevel
)

// Field is a typed key/value pair attached to a log message.
type Field interface {
	Bool(key string, val bool) Field
	Int(key string, val int) Field
	Float64(key string, val float64) Field
	String(key string, val string) Field
	Time(key string, val time.Time) Field
	Int64(key string, val int64) Field
	Error(key string, val error) Field
	Uint64(key string, val uint64) Field
	Uint8(key string, val uint8) Field
}

// Logger provides leveled, structured logging for the pipeline.
type Logger interface {
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	Field() Field

	SetLevel(level LogLevel)
}
