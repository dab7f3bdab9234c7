// Package logger is the process-wide log for earnings-rag. Text lines go
// to stderr and only when --verbose is set. Pipeline events such as router
// fallbacks, retrieval failures and index batches go as JSON lines to an
// optional zap sink, whatever the verbosity.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	sink    *zap.Logger
)

// SetVerbose turns text output on or off.
func SetVerbose(v bool) {
	mu.Lock()
	verbose = v
	mu.Unlock()
}

// IsVerbose reports whether text output is on.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects text lines, os.Stderr by default.
func SetOutput(w io.Writer) {
	mu.Lock()
	output = w
	mu.Unlock()
}

// SetEventSink installs the event logger. Nil turns events off.
func SetEventSink(l *zap.Logger) {
	mu.Lock()
	sink = l
	mu.Unlock()
}

func emit(line string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprint(output, line)
	}
}

// Debug prints a "[DEBUG]" line when verbose.
func Debug(format string, args ...any) { emit("[DEBUG] " + fmt.Sprintf(format, args...) + "\n") }

// Info prints an "[INFO]" line when verbose.
func Info(format string, args ...any) { emit("[INFO] " + fmt.Sprintf(format, args...) + "\n") }

// Section prints a blank line and a "=== name ===" header.
func Section(name string) { emit("\n=== " + name + " ===\n") }

// Warn is verbose-only on stderr but always recorded as a "warning" event.
func Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	emit("[WARN] " + msg + "\n")
	Event("warning", zap.String("message", msg))
}

// Event writes one JSON line named name to the sink, if there is one.
func Event(name string, fields ...zap.Field) {
	mu.RLock()
	defer mu.RUnlock()
	if sink != nil {
		sink.Info(name, fields...)
	}
}

// NewFileSink appends JSON events to path. The returned func flushes the
// logger and closes the file.
func NewFileSink(path string) (*zap.Logger, func() error, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open event log: %w", err)
	}
	l := NewWriterSink(f)
	return l, func() error {
		_ = l.Sync()
		return f.Close()
	}, nil
}

// NewWriterSink encodes events as JSON with "ts" and "event" keys.
func NewWriterSink(w io.Writer) *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey, enc.MessageKey = "ts", "event"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	return zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), zapcore.DebugLevel))
}
