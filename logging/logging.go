// Package logging provides leveled console output for the oracle consumer.
// The ledger is the forensic record of task outcomes; this package exists
// for real-time operator visibility only.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger provides structured logging to stdout.
type Logger struct {
	mu        sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
	traceID   string
}

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// New creates a new Logger.
func New() *Logger {
	return &Logger{
		output:   os.Stdout,
		minLevel: LevelInfo,
	}
}

// WithComponent returns a new logger with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: component,
		traceID:   l.traceID,
	}
}

// WithTraceID returns a new logger tagged with a poll-cycle trace ID.
func (l *Logger) WithTraceID(traceID string) *Logger {
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: l.component,
		traceID:   traceID,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stdout).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats a map of fields as key=value pairs.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	var parts []string
	for k, v := range fields {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return " " + strings.Join(parts, " ")
}

// log writes a log entry: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	var fieldStr string
	if len(fields) > 0 && fields[0] != nil {
		fieldStr = formatFields(fields[0])
	}
	if l.traceID != "" {
		fieldStr += " trace=" + l.traceID
	}

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// --- Consumer event helpers ---
// Called by the poll loop and gateway; one line per lifecycle event.

// TaskFound logs a pending task discovered on the ledger.
func (l *Logger) TaskFound(taskID, name string, status int) {
	l.Debug("task_found", map[string]interface{}{
		"task":   taskID,
		"name":   name,
		"status": status,
	})
}

// TaskStarted logs a successful start transition.
func (l *Logger) TaskStarted(taskID string) {
	l.Info("task_started", map[string]interface{}{
		"task": taskID,
	})
}

// TaskResolved logs a successful resolve transition.
func (l *Logger) TaskResolved(taskID string, duration time.Duration) {
	l.Info("task_resolved", map[string]interface{}{
		"task":     taskID,
		"duration": duration.String(),
	})
}

// TaskFailed logs a fail transition with its reported message.
func (l *Logger) TaskFailed(taskID, reason string) {
	l.Warn("task_failed", map[string]interface{}{
		"task":   taskID,
		"reason": reason,
	})
}

// AlreadyTerminal logs the benign case where another consumer won the race.
func (l *Logger) AlreadyTerminal(taskID string) {
	l.Info("task_already_terminal", map[string]interface{}{
		"task": taskID,
	})
}

// SecurityBlock logs a URL rejected by the safety check.
func (l *Logger) SecurityBlock(url, reason string) {
	l.Warn("security_block", map[string]interface{}{
		"url":      url,
		"reason":   reason,
		"security": true,
	})
}

// PollError logs a failed ledger list call; the loop continues.
func (l *Logger) PollError(err error) {
	l.Error("poll_error", map[string]interface{}{
		"error": err.Error(),
	})
}

// SubmitError logs a failed transition submit.
func (l *Logger) SubmitError(taskID, function string, err error) {
	l.Error("submit_error", map[string]interface{}{
		"task":     taskID,
		"function": function,
		"error":    err.Error(),
	})
}
