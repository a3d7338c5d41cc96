package logging

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"
)

// writeLog formats and emits one message. DEBUG, INFO, and WARN go
// through the standard log writer; ERROR and FATAL go to stderr.
// Fields are emitted in sorted key order so output is deterministic.
func (l *Logger) writeLog(level LogLevel, msg string, fields map[string]interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s: %s", GetTimestamp(), level, l.name, msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(" |")
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}

	if level >= ERROR {
		fmt.Fprintf(os.Stderr, "%s\n", b.String())
	} else {
		log.Println(b.String())
	}
}

// logf emits a printf-style message with the logger's context and bound
// fields attached.
func (l *Logger) logf(level LogLevel, msg string, args ...interface{}) {
	l.writeLog(level, fmt.Sprintf(msg, args...), l.mergeFields(nil))
}

// logWithFields emits a message with per-call structured fields.
func (l *Logger) logWithFields(level LogLevel, msg string, fields ...LogField) {
	l.writeLog(level, msg, l.mergeFields(fields))
}

// mergeFields layers the field sources for one message. Later sources
// win: context fields, then bound fields, then per-call fields.
func (l *Logger) mergeFields(callFields []LogField) map[string]interface{} {
	contextFields := extractContextFields(l.ctx)
	if contextFields == nil && len(l.fields) == 0 && len(callFields) == 0 {
		return nil
	}

	merged := make(map[string]interface{}, len(contextFields)+len(l.fields)+len(callFields))
	for k, v := range contextFields {
		merged[k] = v
	}
	for k, v := range l.fields {
		merged[k] = v
	}
	for _, f := range callFields {
		merged[f.Key] = f.Value
	}
	return merged
}

// cloneFields copies a bound-field map. A nil or empty source yields a
// fresh empty map.
func cloneFields(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// GetTimestamp returns the RFC3339 timestamp for the current message.
// The LOG_TIMESTAMP environment variable overrides it for deterministic
// test output.
func GetTimestamp() string {
	if override := os.Getenv("LOG_TIMESTAMP"); override != "" {
		return override
	}
	return time.Now().Format(time.RFC3339)
}
