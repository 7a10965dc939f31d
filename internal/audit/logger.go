// Package audit provides hashedrpzctl's structured logging: a per-run
// request ID, JSON-line progress logging to stderr, an optional JSONL
// audit trail of every hashed name, and the JSON result object printed to
// stdout at the end of a run.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/dlukt/hashedrpz/internal/lock"
)

// Logger provides structured logging for a hashedrpzctl invocation.
type Logger struct {
	requestID string
	op        string
	origin    string
	out       io.Writer
	auditFile *os.File
	auditLock *lock.Lock
	verbose   bool
}

// NewLogger creates a new logger with a generated request ID. If
// auditPath is non-empty, NewLogger tries to take an exclusive advisory
// lock on the file's sidecar lock path and opens the file for append. A
// failure to lock or open is silently ignored, since the audit trail is
// optional and must never block the run itself; when the lock is already
// held elsewhere the file is still opened and written without it, so
// lines from concurrent writers can interleave.
func NewLogger(out io.Writer, auditPath string) *Logger {
	reqID := uuid.Must(uuid.NewV4()).String()
	l := &Logger{
		requestID: reqID,
		out:       out,
	}

	if auditPath != "" {
		fileLock := lock.New(lock.AuditLockPath(auditPath))
		if err := fileLock.Acquire(); err == nil {
			l.auditLock = fileLock
		}

		f, err := os.OpenFile(auditPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0640)
		if err == nil {
			l.auditFile = f
		}
	}

	return l
}

// WithOp sets the operation name for logging context.
func (l *Logger) WithOp(op string) *Logger {
	l.op = op
	return l
}

// WithOrigin sets the RPZ origin domain for logging context.
func (l *Logger) WithOrigin(origin string) *Logger {
	l.origin = origin
	return l
}

// SetVerbose enables verbose logging.
func (l *Logger) SetVerbose(v bool) {
	l.verbose = v
}

// Info logs an informational message to stderr.
func (l *Logger) Info(msg string) {
	l.log("INFO", msg)
}

// Warn logs a warning message to stderr.
func (l *Logger) Warn(msg string) {
	l.log("WARN", msg)
}

// Error logs an error message to stderr.
func (l *Logger) Error(msg string) {
	l.log("ERROR", msg)
}

// Debug logs a debug message to stderr, only if verbose logging is on.
func (l *Logger) Debug(msg string) {
	if l.verbose {
		l.log("DEBUG", msg)
	}
}

func (l *Logger) log(level, msg string) {
	entry := struct {
		Time      string `json:"time"`
		Level     string `json:"level"`
		RequestID string `json:"request_id"`
		Op        string `json:"op,omitempty"`
		Origin    string `json:"origin,omitempty"`
		Message   string `json:"msg"`
	}{
		Time:      time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		RequestID: l.requestID,
		Op:        l.op,
		Origin:    l.origin,
		Message:   msg,
	}

	log.SetOutput(l.out)
	log.SetFlags(0)
	data, _ := json.Marshal(entry)
	log.Println(string(data))
}

// RequestID returns the request ID for this invocation.
func (l *Logger) RequestID() string {
	return l.requestID
}

// LabelEntry records one hashed name's outcome for the JSONL audit trail.
type LabelEntry struct {
	Subdomain     string `json:"subdomain"`
	HashedSoFar   string `json:"hashed_so_far"`
	WasWildcarded bool   `json:"was_wildcarded,omitempty"`
}

// WriteAuditLabel appends one hashed label to the JSONL audit file, if
// one was configured. A missing audit file is a silent no-op.
func (l *Logger) WriteAuditLabel(entry LabelEntry) {
	if l.auditFile == nil {
		return
	}
	record := struct {
		Time      string `json:"time"`
		RequestID string `json:"request_id"`
		LabelEntry
	}{
		Time:       time.Now().UTC().Format(time.RFC3339),
		RequestID:  l.requestID,
		LabelEntry: entry,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return
	}
	_, _ = l.auditFile.Write(append(data, '\n'))
}

// Close closes the audit file and releases its lock, if either is held.
func (l *Logger) Close() error {
	var err error
	if l.auditFile != nil {
		err = l.auditFile.Close()
	}
	if l.auditLock != nil {
		if lerr := l.auditLock.Release(); lerr != nil && err == nil {
			err = lerr
		}
	}
	return err
}

// Result is hashedrpzctl's structured JSON output, printed to stdout once
// per invocation.
type Result struct {
	OK            bool     `json:"ok"`
	Op            string   `json:"op"`
	RequestID     string   `json:"request_id"`
	Origin        string   `json:"origin,omitempty"`
	Hashed        []string `json:"hashed,omitempty"`
	TooLongCount  int      `json:"too_long_count,omitempty"`
	WildcardCount int      `json:"wildcard_count,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	Error         *Error   `json:"error,omitempty"`
}

// Error represents an error in the JSON output.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewResult creates a new successful result.
func NewResult(op, requestID, origin string) *Result {
	return &Result{
		OK:        true,
		Op:        op,
		RequestID: requestID,
		Origin:    origin,
		Hashed:    []string{},
	}
}

// NewErrorResult creates a new error result.
func NewErrorResult(op, requestID string, exitCode int, message, details string) *Result {
	return &Result{
		OK:        false,
		Op:        op,
		RequestID: requestID,
		Error: &Error{
			Code:    exitCode,
			Message: message,
			Details: details,
		},
	}
}

// Output writes the result as JSON to stdout.
func (r *Result) Output() error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// AddHashed records one successfully hashed name.
func (r *Result) AddHashed(hashed string) {
	r.Hashed = append(r.Hashed, hashed)
}

// AddWarning records a warning during the operation.
func (r *Result) AddWarning(warning string) {
	r.Warnings = append(r.Warnings, warning)
}
