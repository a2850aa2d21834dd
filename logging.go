// logging.go - Structured Logging Interface for the detkernel module
//
// Package-level configuration for structured logging, following the
// same design as the teacher event loop's logging.go: a package-level
// global default plus an instance-level override, so hosting
// applications can either set one logger for the whole process or wire
// a distinct logger per Kernel.

package detkernel

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

var globalLogger struct {
	sync.RWMutex
	logger Logger
}

// SetStructuredLogger sets the process-wide default logger, used by any
// Kernel constructed without an explicit WithLogger option.
func SetStructuredLogger(logger Logger) {
	globalLogger.Lock()
	defer globalLogger.Unlock()
	globalLogger.logger = logger
}

func getGlobalLogger() Logger {
	globalLogger.RLock()
	defer globalLogger.RUnlock()
	if globalLogger.logger != nil {
		return globalLogger.logger
	}
	return NewNoOpLogger()
}

// LogLevel represents the severity of a log message.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

// LogEntry represents a structured log entry emitted by kernel
// subsystems. Category identifies the emitting subsystem: "region",
// "task", "obligation", "channel", "timer", "cancel", "scheduler",
// "trace", "hindsight", "overload", or "adaptive".
type LogEntry struct {
	Level     LogLevel
	Category  string
	KernelID  int64
	EntityID  uint64
	Context   map[string]any
	Message   string
	Err       error
	Timestamp time.Time
}

// Logger is the structured logging interface implemented by kernel log
// sinks.
type Logger interface {
	Log(entry LogEntry)
	IsEnabled(level LogLevel) bool
}

// DefaultLogger implements Logger by writing plain lines to an
// io.Writer (os.Stdout by default).
type DefaultLogger struct {
	level atomic.Int32
	mu    sync.Mutex
	Out   io.Writer
}

// NewDefaultLogger creates a logger with the given minimum level.
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	l := &DefaultLogger{Out: os.Stdout}
	l.level.Store(int32(level))
	return l
}

// IsEnabled reports whether level is at or above the configured minimum.
func (l *DefaultLogger) IsEnabled(level LogLevel) bool {
	return int32(level) >= l.level.Load()
}

// Log writes entry to Out if its level is enabled.
func (l *DefaultLogger) Log(entry LogEntry) {
	if !l.IsEnabled(entry.Level) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "[%s] %s entity=%d %s", entry.Level, entry.Category, entry.EntityID, entry.Message)
	if entry.Err != nil {
		fmt.Fprintf(out, " err=%v", entry.Err)
	}
	for k, v := range entry.Context {
		fmt.Fprintf(out, " %s=%v", k, v)
	}
	fmt.Fprintln(out)
}

// NoOpLogger discards every entry. It is the zero-overhead default.
type NoOpLogger struct{}

// NewNoOpLogger returns a Logger that discards everything.
func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

// IsEnabled always returns false.
func (NoOpLogger) IsEnabled(LogLevel) bool { return false }

// Log discards entry.
func (NoOpLogger) Log(LogEntry) {}

// --- logiface interop -----------------------------------------------------

// kernelEvent adapts a LogEntry into the logiface.Event interface so
// hosting applications that already standardize on
// github.com/joeycumines/logiface (the teacher's own structured logging
// dependency) can receive kernel log output through it.
type kernelEvent struct {
	logiface.UnimplementedEvent
	level   logiface.Level
	entry   LogEntry
}

func (e *kernelEvent) Level() logiface.Level { return e.level }

func (e *kernelEvent) AddField(key string, val any) {
	if e.entry.Context == nil {
		e.entry.Context = make(map[string]any, 4)
	}
	e.entry.Context[key] = val
}

func (e *kernelEvent) AddMessage(msg string) bool {
	e.entry.Message = msg
	return true
}

func (e *kernelEvent) AddError(err error) bool {
	e.entry.Err = err
	return true
}

// logifaceSink is a logiface.Writer that forwards settled events onto a
// Logger.
type logifaceSink struct {
	target Logger
}

func (s *logifaceSink) Write(event *kernelEvent) error {
	entry := event.entry
	entry.Level = fromLogifaceLevel(event.level)
	entry.Timestamp = time.Now()
	s.target.Log(entry)
	return nil
}

func fromLogifaceLevel(l logiface.Level) LogLevel {
	switch {
	case l >= logiface.LevelDebug:
		return LevelDebug
	case l >= logiface.LevelInformational:
		return LevelInfo
	case l >= logiface.LevelWarning:
		return LevelWarn
	default:
		return LevelError
	}
}

// NewLogifaceLogger builds a logiface.Logger[*kernelEvent] backed by
// target: every event logged through the returned logiface.Logger's
// fluent builder (Info(), Err(), Str(), ...) is converted to a LogEntry
// and written to target. This is for a hosting application that wants
// logiface's chain-builder ergonomics in front of one of this
// package's own Logger sinks (DefaultLogger, NoOpLogger, or a custom
// one), not the reverse; see NewLogifaceBackedLogger for plugging an
// existing logiface.Logger in as the sink itself.
func NewLogifaceLogger(target Logger) *logiface.Logger[*kernelEvent] {
	if target == nil {
		target = NewNoOpLogger()
	}
	return logiface.New[*kernelEvent](
		logiface.WithEventFactory[*kernelEvent](logiface.NewEventFactoryFunc(func(level logiface.Level) *kernelEvent {
			return &kernelEvent{level: level}
		})),
		logiface.WithWriter[*kernelEvent](&logifaceSink{target: target}),
	)
}

// logifaceBackedLogger implements Logger by forwarding every log call
// through an already-configured logiface.Logger[E] — the direction
// that actually lets a hosting application standardized on logiface
// plug it in as the Logger sink passed to WithLogger.
type logifaceBackedLogger[E logiface.Event] struct {
	logger *logiface.Logger[E]
}

// NewLogifaceBackedLogger adapts logger, a hosting application's own
// logiface.Logger[E] (any Event implementation), into a Logger
// suitable for WithLogger, so kernel diagnostics flow through the
// host's existing logiface pipeline instead of a built-in sink.
func NewLogifaceBackedLogger[E logiface.Event](logger *logiface.Logger[E]) Logger {
	return &logifaceBackedLogger[E]{logger: logger}
}

// IsEnabled reports whether logger's configured level would accept a
// message at level.
func (l *logifaceBackedLogger[E]) IsEnabled(level LogLevel) bool {
	return toLogifaceLevel(level) <= l.logger.Level()
}

// Log converts entry to a logiface builder chain and emits it. A nil
// Builder (level disabled, or the logger can't write) is a silent
// no-op, matching logiface's own convention.
func (l *logifaceBackedLogger[E]) Log(entry LogEntry) {
	b := l.logger.Build(toLogifaceLevel(entry.Level))
	if b == nil {
		return
	}
	if entry.Category != "" {
		b.Str("category", entry.Category)
	}
	if entry.EntityID != 0 {
		b.Uint64("entity_id", entry.EntityID)
	}
	if entry.Err != nil {
		b.Err(entry.Err)
	}
	for k, v := range entry.Context {
		b.Any(k, v)
	}
	b.Log(entry.Message)
}

// toLogifaceLevel maps a kernel LogLevel onto logiface's syslog-derived
// scale (spec's four-level scheme collapses onto logiface's finer one).
func toLogifaceLevel(l LogLevel) logiface.Level {
	switch l {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	default:
		return logiface.LevelError
	}
}
