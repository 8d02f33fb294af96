// logger/logger.go
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var levelTags = [...]string{
	DEBUG: "[DEBUG] ",
	INFO:  "[INFO]  ",
	WARN:  "[WARN]  ",
	ERROR: "[ERROR] ",
}

var levelColors = [...]string{
	DEBUG: colorGray,
	INFO:  colorReset,
	WARN:  colorYellow,
	ERROR: colorRed,
}

// sink is one destination with one *log.Logger per level.
type sink struct {
	loggers [4]*log.Logger
}

func newSink(w io.Writer, colored bool) *sink {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	s := &sink{}
	for lvl, tag := range levelTags {
		prefix := tag
		if colored {
			prefix = levelColors[lvl] + tag + colorReset
		}
		s.loggers[lvl] = log.New(w, prefix, flags)
	}
	return s
}

type Logger struct {
	console  *sink
	file     *sink
	handle   *os.File
	minLevel LogLevel
}

var (
	defaultLogger *Logger
	mu            sync.Mutex
)

func current() *Logger {
	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = &Logger{console: newSink(os.Stdout, true), minLevel: DEBUG}
	}
	return defaultLogger
}

// Init configures console and/or file output.
// If filename is empty, logs only to console. If console is false, logs only to file.
func Init(filename string, console bool) error {
	mu.Lock()
	defer mu.Unlock()

	level := DEBUG
	if defaultLogger != nil {
		level = defaultLogger.minLevel
		if defaultLogger.handle != nil {
			defaultLogger.handle.Close()
		}
	}

	l := &Logger{minLevel: level}
	if filename != "" {
		file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		l.handle = file
		l.file = newSink(file, false)
	}
	if console {
		l.console = newSink(os.Stdout, true)
	}
	if l.console == nil && l.file == nil {
		return fmt.Errorf("no output destination specified")
	}

	defaultLogger = l
	return nil
}

// SetOutput sends uncolored output to w only. Used by tests and tools that capture logs.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	level := DEBUG
	if defaultLogger != nil {
		level = defaultLogger.minLevel
	}
	defaultLogger = &Logger{file: newSink(w, false), minLevel: level}
}

// SetLevel sets the minimum log level. Messages below this level are dropped.
func SetLevel(level LogLevel) {
	l := current()
	mu.Lock()
	defer mu.Unlock()
	l.minLevel = level
}

// ParseLevel maps debug, info, warn/warning and error to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", s)
	}
}

// Close closes the log file if one is open
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if defaultLogger != nil && defaultLogger.handle != nil {
		defaultLogger.handle.Close()
		defaultLogger.handle = nil
		defaultLogger.file = nil
	}
}

func emit(level LogLevel, msg string) {
	l := current()
	if level < l.minLevel {
		return
	}
	// depth 3: Output -> emit -> exported helper -> caller
	if l.console != nil {
		l.console.loggers[level].Output(3, msg)
	}
	if l.file != nil {
		l.file.loggers[level].Output(3, msg)
	}
}

// Debug logs a debug message
func Debug(v ...interface{}) { emit(DEBUG, fmt.Sprint(v...)) }

// Debugf logs a formatted debug message
func Debugf(format string, v ...interface{}) { emit(DEBUG, fmt.Sprintf(format, v...)) }

// Info logs an info message
func Info(v ...interface{}) { emit(INFO, fmt.Sprint(v...)) }

// Infof logs a formatted info message
func Infof(format string, v ...interface{}) { emit(INFO, fmt.Sprintf(format, v...)) }

// Warn logs a warning message
func Warn(v ...interface{}) { emit(WARN, fmt.Sprint(v...)) }

// Warnf logs a formatted warning message
func Warnf(format string, v ...interface{}) { emit(WARN, fmt.Sprintf(format, v...)) }

// Error logs an error message
func Error(v ...interface{}) { emit(ERROR, fmt.Sprint(v...)) }

// Errorf logs a formatted error message
func Errorf(format string, v ...interface{}) { emit(ERROR, fmt.Sprintf(format, v...)) }

// Fatal logs an error message and exits the program
func Fatal(v ...interface{}) {
	emit(ERROR, fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf logs a formatted error message and exits the program
func Fatalf(format string, v ...interface{}) {
	emit(ERROR, fmt.Sprintf(format, v...))
	os.Exit(1)
}
