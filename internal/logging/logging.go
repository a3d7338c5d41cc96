// Package logging provides leveled, named loggers for following a
// diagnosis run across the commander, its sub-agents, and the fixture
// layer.
//
// Initialize the global level once at startup, then hand out named
// loggers per component:
//
//	logging.Initialize("info")
//
//	logger := logging.GetLogger("diagnosis")
//	logger.Info("selected %d diagnostic agents", 2)
//
// Structured fields are available either per call or bound to a logger:
//
//	logger.InfoWithFields("verdict synthesized",
//	    logging.Field("incident_id", inc.ID),
//	    logging.Field("confidence", verdict.Confidence),
//	)
//
//	runLogger := logger.WithField("session", sessionID)
//	runLogger.Info("delegating to logs agent")
//
// Loggers are immutable: WithName, WithField, WithFields, and
// WithContext return new instances, so a logger can be shared across
// goroutines without coordination.
//
// Per-package levels override the default for targeted debugging.
// Patterns are exact names or trailing wildcards:
//
//	logging.Initialize("info", map[string]string{
//	    "agent.runner": "debug",
//	    "agent.*":      "warn",
//	    "mockdata":     "error",
//	})
//
// A logger attached to a context carries trace_id and span_id fields
// when the context holds them under TraceIDKey and SpanIDKey.
//
// DEBUG, INFO, and WARN go to the standard log writer; ERROR and FATAL
// go to stderr. Fatal terminates the process with exit code 1.
package logging

import (
	"context"
	"os"
	"sync"
)

// LogLevel is the ordinal severity of a log message.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// levelNames maps a LogLevel to its output label.
var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

// String returns the output label for the level.
func (l LogLevel) String() string {
	if l < DEBUG || l > FATAL {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// LogField is one structured key/value pair.
type LogField struct {
	Key   string
	Value interface{}
}

// Field creates a structured logging field.
func Field(key string, value interface{}) LogField {
	return LogField{Key: key, Value: value}
}

// Logger emits leveled messages under a component name. The zero value
// is not usable; obtain instances via GetLogger or the With* methods.
type Logger struct {
	level  LogLevel
	name   string
	fields map[string]interface{}
	ctx    context.Context
}

var (
	globalLogger *Logger
	initOnce     sync.Once

	// exitFunc is called by Fatal. Overridable in tests.
	exitFunc = os.Exit
)

// Initialize sets the global default level and, optionally, per-package
// overrides. An unrecognized level string falls back to INFO; an invalid
// per-package level is an error.
func Initialize(levelStr string, packageLevels ...map[string]string) error {
	level, err := parseLevel(levelStr)
	if err != nil {
		level = INFO
	}

	globalLogger = &Logger{
		level: level,
		name:  "responder",
	}

	if len(packageLevels) > 0 && packageLevels[0] != nil {
		if err := SetPackageLogLevels(packageLevels[0]); err != nil {
			return err
		}
	}

	return nil
}

// GetLogger returns a logger for the named component. The first call
// initializes the global logger at INFO if Initialize was never called.
func GetLogger(name string) *Logger {
	initOnce.Do(func() {
		if globalLogger == nil {
			_ = Initialize("info")
		}
	})
	return &Logger{
		level:  globalLogger.level,
		name:   name,
		fields: make(map[string]interface{}),
	}
}

// shouldLog applies the per-package override when one matches the
// logger's name, the default level otherwise.
func (l *Logger) shouldLog(level LogLevel) bool {
	if pkgLevel := GetPackageLogLevel(l.name); pkgLevel >= 0 {
		return level >= pkgLevel
	}
	return level >= l.level
}

// Debug logs a formatted message at DEBUG.
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.shouldLog(DEBUG) {
		l.logf(DEBUG, msg, args...)
	}
}

// Info logs a formatted message at INFO.
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.shouldLog(INFO) {
		l.logf(INFO, msg, args...)
	}
}

// Warn logs a formatted message at WARN.
func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.shouldLog(WARN) {
		l.logf(WARN, msg, args...)
	}
}

// Error logs a formatted message at ERROR.
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.shouldLog(ERROR) {
		l.logf(ERROR, msg, args...)
	}
}

// Fatal logs a formatted message at FATAL and exits with code 1.
func (l *Logger) Fatal(msg string, args ...interface{}) {
	if l.shouldLog(FATAL) {
		l.logf(FATAL, msg, args...)
		exitFunc(1)
	}
}

// ErrorWithErr logs a formatted message at ERROR with the error
// appended.
func (l *Logger) ErrorWithErr(msg string, err error, args ...interface{}) {
	if l.shouldLog(ERROR) {
		args = append(args, err)
		l.logf(ERROR, msg+" - %v", args...)
	}
}

// DebugWithFields logs a message at DEBUG with structured fields.
func (l *Logger) DebugWithFields(msg string, fields ...LogField) {
	if l.shouldLog(DEBUG) {
		l.logWithFields(DEBUG, msg, fields...)
	}
}

// InfoWithFields logs a message at INFO with structured fields.
func (l *Logger) InfoWithFields(msg string, fields ...LogField) {
	if l.shouldLog(INFO) {
		l.logWithFields(INFO, msg, fields...)
	}
}

// WarnWithFields logs a message at WARN with structured fields.
func (l *Logger) WarnWithFields(msg string, fields ...LogField) {
	if l.shouldLog(WARN) {
		l.logWithFields(WARN, msg, fields...)
	}
}

// ErrorWithFields logs a message at ERROR with structured fields.
func (l *Logger) ErrorWithFields(msg string, fields ...LogField) {
	if l.shouldLog(ERROR) {
		l.logWithFields(ERROR, msg, fields...)
	}
}

// FatalWithFields logs a message at FATAL with structured fields and
// exits with code 1.
func (l *Logger) FatalWithFields(msg string, fields ...LogField) {
	if l.shouldLog(FATAL) {
		l.logWithFields(FATAL, msg, fields...)
		exitFunc(1)
	}
}

// WithName returns a logger under a different component name. Bound
// fields are not carried over; the attached context is.
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		level:  l.level,
		name:   name,
		fields: make(map[string]interface{}),
		ctx:    l.ctx,
	}
}

// WithField returns a logger with one additional bound field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	clone := &Logger{
		level:  l.level,
		name:   l.name,
		fields: cloneFields(l.fields),
		ctx:    l.ctx,
	}
	clone.fields[key] = value
	return clone
}

// WithFields returns a logger with additional bound fields.
func (l *Logger) WithFields(fields ...LogField) *Logger {
	clone := &Logger{
		level:  l.level,
		name:   l.name,
		fields: cloneFields(l.fields),
		ctx:    l.ctx,
	}
	for _, f := range fields {
		clone.fields[f.Key] = f.Value
	}
	return clone
}

// WithContext returns a logger that extracts trace_id and span_id from
// ctx on every message.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return &Logger{
		level:  l.level,
		name:   l.name,
		fields: cloneFields(l.fields),
		ctx:    ctx,
	}
}

// contextKey scopes the context values this package reads.
type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// TraceIDKey returns the context key under which a trace id is carried:
//
//	ctx = context.WithValue(ctx, logging.TraceIDKey(), "trace-123")
func TraceIDKey() interface{} {
	return traceIDKey
}

// SpanIDKey returns the context key under which a span id is carried.
func SpanIDKey() interface{} {
	return spanIDKey
}

// extractContextFields pulls trace_id and span_id out of ctx. Returns
// nil when ctx is nil or carries neither.
func extractContextFields(ctx context.Context) map[string]interface{} {
	if ctx == nil {
		return nil
	}

	var fields map[string]interface{}
	if traceID := ctx.Value(traceIDKey); traceID != nil {
		fields = map[string]interface{}{"trace_id": traceID}
	}
	if spanID := ctx.Value(spanIDKey); spanID != nil {
		if fields == nil {
			fields = make(map[string]interface{}, 1)
		}
		fields["span_id"] = spanID
	}
	return fields
}
