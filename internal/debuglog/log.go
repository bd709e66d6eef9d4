// Package debuglog is the process-wide diagnostic log. It is off by default
// and writes to a file so that command output on stdout stays clean.
package debuglog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

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
	case LevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a string into a LogLevel. Unknown input yields INFO.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "OFF":
		return LevelOff
	default:
		return LevelInfo
	}
}

func (l LogLevel) logrus() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

var (
	currentLevel = LevelOff
	logger       = newLogger(io.Discard)
	logFile      *os.File
)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000000",
	})
	return l
}

// DefaultPath is ~/.readerlink/readerlink.log.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".readerlink", "readerlink.log"), nil
}

// Setup configures the level and the log file. An empty or missing path
// selects DefaultPath.
func Setup(level LogLevel, filePath ...string) error {
	_ = Close()
	currentLevel = level

	if level == LevelOff {
		return nil
	}

	var logPath string
	if len(filePath) > 0 && filePath[0] != "" {
		logPath = filePath[0]
	} else {
		p, err := DefaultPath()
		if err != nil {
			return fmt.Errorf("resolving log path: %w", err)
		}
		logPath = p
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}
	logFile = f
	logger = newLogger(f)
	logger.SetLevel(level.logrus())
	return nil
}

// SetLevel changes the current logging level
func SetLevel(level LogLevel) {
	currentLevel = level
	logger.SetLevel(level.logrus())
}

func GetLevel() LogLevel {
	return currentLevel
}

// Close closes the log file if open
func Close() error {
	logger = newLogger(io.Discard)
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

func enabled(level LogLevel) bool {
	return currentLevel != LevelOff && level >= currentLevel && logFile != nil
}

func Debugf(format string, args ...any) {
	if enabled(LevelDebug) {
		logger.Debugf(format, args...)
	}
}

func Infof(format string, args ...any) {
	if enabled(LevelInfo) {
		logger.Infof(format, args...)
	}
}

func Warnf(format string, args ...any) {
	if enabled(LevelWarn) {
		logger.Warnf(format, args...)
	}
}

func Errorf(format string, args ...any) {
	if enabled(LevelError) {
		logger.Errorf(format, args...)
	}
}

// FieldLogger attaches key-value pairs to every message.
type FieldLogger struct {
	fields logrus.Fields
}

func WithFields(fields map[string]any) *FieldLogger {
	return &FieldLogger{fields: logrus.Fields(fields)}
}

func (fl *FieldLogger) Debugf(format string, args ...any) {
	if enabled(LevelDebug) {
		logger.WithFields(fl.fields).Debugf(format, args...)
	}
}

func (fl *FieldLogger) Infof(format string, args ...any) {
	if enabled(LevelInfo) {
		logger.WithFields(fl.fields).Infof(format, args...)
	}
}

func (fl *FieldLogger) Warnf(format string, args ...any) {
	if enabled(LevelWarn) {
		logger.WithFields(fl.fields).Warnf(format, args...)
	}
}

func (fl *FieldLogger) Errorf(format string, args ...any) {
	if enabled(LevelError) {
		logger.WithFields(fl.fields).Errorf(format, args...)
	}
}
