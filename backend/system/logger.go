package system

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogLevel represents logging severity
type LogLevel int

const (
	LevelInfo LogLevel = iota
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger writes to a daily log file and mirrors every line to stdout.
type Logger struct {
	mu     sync.Mutex
	file   *os.File
	out    io.Writer
	logger *log.Logger
	logDir string
	prefix string
	date   string
}

var globalLogger *Logger

// InitLogger initializes the global logger. Files are named <prefix>-YYYY-MM-DD.log.
func InitLogger(logDir, prefix string) error {
	if logDir == "" {
		logDir = "./logs"
	}
	if prefix == "" {
		prefix = "netmon"
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{
		logDir: logDir,
		prefix: prefix,
	}
	if err := l.rotateIfNeeded(time.Now()); err != nil {
		return err
	}
	globalLogger = l
	return nil
}

// rotateIfNeeded opens a new file when the day changes
func (l *Logger) rotateIfNeeded(now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := now.Format("2006-01-02")
	if l.date == today && l.file != nil {
		return nil
	}

	if l.file != nil {
		l.file.Close()
	}

	logPath := filepath.Join(l.logDir, fmt.Sprintf("%s-%s.log", l.prefix, today))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.file = file
	l.out = io.MultiWriter(os.Stdout, file)
	l.logger = log.New(l.out, "", 0)
	l.date = today
	return nil
}

// Log writes a log entry
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	if l == nil || l.logger == nil {
		log.Printf("[%s] %s", level.String(), fmt.Sprintf(format, args...))
		return
	}

	now := time.Now()
	_ = l.rotateIfNeeded(now)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.logger.Printf("[%s] [%s] %s", now.Format("2006-01-02 15:04:05"), level.String(), fmt.Sprintf(format, args...))
}

// Write lets the logger back other writers (the HTTP access log).
func (l *Logger) Write(p []byte) (int, error) {
	_ = l.rotateIfNeeded(time.Now())

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.out.Write(p)
}

// Output returns the writer for the current log destination.
func Output() io.Writer {
	if globalLogger == nil {
		return os.Stdout
	}
	return globalLogger
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Log(LevelInfo, format, args...)
	} else {
		log.Printf("[INFO] "+format, args...)
	}
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Log(LevelWarn, format, args...)
	} else {
		log.Printf("[WARN] "+format, args...)
	}
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.Log(LevelError, format, args...)
	} else {
		log.Printf("[ERROR] "+format, args...)
	}
}

// Close closes the logger
func Close() {
	if globalLogger == nil {
		return
	}
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	if globalLogger.file != nil {
		globalLogger.file.Close()
		globalLogger.file = nil
	}
}
