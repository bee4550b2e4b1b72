// Package logging provides component loggers for pgtuner on top of
// charmbracelet/log. Every component writes to a rotating log file; the
// CLI can additionally mirror records to stderr.
//
// Basic usage:
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logger := logging.Get("collector")
//	logger.Info("sample collected", "metrics", 9)
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level represents a logging level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

func (l Level) charm() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a string into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default log level.
	Level string

	// Path is the log file path. Empty uses DefaultLogPath().
	Path string

	// Rotation configures log file rotation.
	Rotation RotationConfig

	// Components maps component names to level overrides.
	Components map[string]string

	// ConsoleLevel mirrors records at or above this level to stderr.
	// Empty disables console output.
	ConsoleLevel string

	// Console is the console destination. Nil means os.Stderr.
	Console io.Writer
}

// Logger is a component logger. Records go to the log file and, when
// enabled, to the console.
type Logger struct {
	mu        sync.RWMutex
	file      *log.Logger
	console   *log.Logger
	component string
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.each(func(lg *log.Logger) { lg.Debug(msg, args...) })
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.each(func(lg *log.Logger) { lg.Info(msg, args...) })
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.each(func(lg *log.Logger) { lg.Warn(msg, args...) })
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.each(func(lg *log.Logger) { lg.Error(msg, args...) })
}

// Component returns the component name of the logger.
func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) each(fn func(*log.Logger)) {
	l.mu.RLock()
	file, console := l.file, l.console
	l.mu.RUnlock()

	fn(file)
	if console != nil {
		fn(console)
	}
}

// reset points the logger at the current global outputs. Package-level
// loggers are created at init time, before Init runs, so they are
// reconfigured in place rather than replaced.
func (l *Logger) reset(s *state) {
	level := s.level
	if override, ok := s.components[l.component]; ok {
		level = override
	}

	var file *log.Logger
	if s.writer == nil {
		file = log.NewWithOptions(io.Discard, log.Options{Prefix: l.component})
	} else {
		file = log.NewWithOptions(s.writer, log.Options{
			Level:           level.charm(),
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          l.component,
		})
	}

	var console *log.Logger
	if s.console != nil {
		console = log.NewWithOptions(s.console, log.Options{
			Level:           s.consoleLevel.charm(),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          l.component,
		})
	}

	l.mu.Lock()
	l.file = file
	l.console = console
	l.mu.Unlock()
}

// state holds the global logging state.
type state struct {
	mu           sync.Mutex
	writer       *RotatingWriter
	level        Level
	components   map[string]Level
	console      io.Writer
	consoleLevel Level
	loggers      map[string]*Logger
}

var global = &state{
	level:      LevelInfo,
	components: make(map[string]Level),
	loggers:    make(map[string]*Logger),
}

// Init configures the logging system. Loggers obtained before Init write
// to io.Discard until Init is called, and are reconfigured by it.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	components := make(map[string]Level, len(cfg.Components))
	for comp, lvl := range cfg.Components {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		components[comp] = parsed
	}

	var console io.Writer
	var consoleLevel Level
	if cfg.ConsoleLevel != "" {
		consoleLevel, err = ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		console = cfg.Console
		if console == nil {
			console = os.Stderr
		}
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}

	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	global.mu.Lock()
	defer global.mu.Unlock()

	if global.writer != nil {
		_ = global.writer.Close()
	}

	global.writer = writer
	global.level = level
	global.components = components
	global.console = console
	global.consoleLevel = consoleLevel

	for _, logger := range global.loggers {
		logger.reset(global)
	}

	return nil
}

// Get returns the logger for a component, creating it on first use.
func Get(component string) *Logger {
	global.mu.Lock()
	defer global.mu.Unlock()

	if logger, ok := global.loggers[component]; ok {
		return logger
	}

	logger := &Logger{component: component}
	logger.reset(global)
	global.loggers[component] = logger
	return logger
}

// Close flushes and closes the log file. Loggers keep working afterwards
// but discard their output.
func Close() error {
	global.mu.Lock()
	defer global.mu.Unlock()

	writer := global.writer
	global.writer = nil
	global.console = nil
	global.level = LevelInfo
	global.components = make(map[string]Level)

	for _, logger := range global.loggers {
		logger.reset(global)
	}

	if writer == nil {
		return nil
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

// DefaultLogPath returns $XDG_STATE_HOME/pgtuner/pgtuner.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "pgtuner", "pgtuner.log")
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Path:     DefaultLogPath(),
		Rotation: DefaultRotationConfig(),
	}
}
