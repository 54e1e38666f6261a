package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging verbosity level
type LogLevel string

const (
	// LogLevelQuiet suppresses all output except errors
	LogLevelQuiet LogLevel = "quiet"
	// LogLevelNormal shows standard operational messages
	LogLevelNormal LogLevel = "normal"
	// LogLevelVerbose shows detailed operational information
	LogLevelVerbose LogLevel = "verbose"
)

// outcome markers rendered in place of the logrus level name. SUCCESS and
// FAILED are part of the log contract consumed by operators, so they are
// carried as an entry field rather than a custom logrus level.
const outcomeField = "outcome"

// Logger provides line-oriented logging for backup runs. Every line has the
// shape "[YYYY-MM-DD HH:MM:SS] LEVEL: message".
type Logger struct {
	logger *logrus.Logger
	level  LogLevel
	file   *os.File
}

// Config holds logger configuration
type Config struct {
	Level   LogLevel
	Output  io.Writer
	LogFile string
}

// lineFormatter renders entries as bracketed timestamp lines.
type lineFormatter struct{}

func (f *lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	level := strings.ToUpper(entry.Level.String())
	switch entry.Level {
	case logrus.WarnLevel:
		level = "WARN"
	case logrus.ErrorLevel, logrus.FatalLevel:
		level = "ERROR"
	}
	if outcome, ok := entry.Data[outcomeField].(string); ok {
		level = outcome
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", entry.Time.Format("2006-01-02 15:04:05"), level, entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != outcomeField {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// NewLogger creates a new logger with the specified configuration
func NewLogger(config Config) (*Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&lineFormatter{})

	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	switch config.Level {
	case LogLevelQuiet:
		logger.SetLevel(logrus.ErrorLevel)
	case LogLevelVerbose:
		logger.SetLevel(logrus.DebugLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	l := &Logger{logger: logger, level: config.Level}

	if config.LogFile != "" {
		file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.LogFile, err)
		}
		l.file = file
		out = io.MultiWriter(out, file)
	}
	logger.SetOutput(out)

	return l, nil
}

// NewDefaultLogger creates a logger with default configuration
func NewDefaultLogger() *Logger {
	l, _ := NewLogger(Config{Level: LogLevelNormal})
	return l
}

// Close releases the log file, if one was opened.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// WithField returns an entry with a single additional field
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.logger.WithField(key, value)
}

// WithFields returns an entry with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.logger.WithFields(fields)
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	l.logger.Info(msg)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	l.logger.Debug(msg)
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	l.logger.Warn(msg)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	l.logger.Error(msg)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

// Success logs a SUCCESS outcome line at info priority
func (l *Logger) Success(msg string) {
	l.logger.WithField(outcomeField, "SUCCESS").Info(msg)
}

// Successf logs a formatted SUCCESS outcome line
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}

// Failed logs a FAILED outcome line at error priority
func (l *Logger) Failed(msg string) {
	l.logger.WithField(outcomeField, "FAILED").Error(msg)
}

// Failedf logs a formatted FAILED outcome line
func (l *Logger) Failedf(format string, args ...interface{}) {
	l.Failed(fmt.Sprintf(format, args...))
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	return l.level
}

// SetOutput redirects log output, primarily for tests
func (l *Logger) SetOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

// LogOperationStart logs the start of an operation and returns a function to
// log its completion with the elapsed duration.
func (l *Logger) LogOperationStart(operation string, fields map[string]interface{}) func(error) {
	startTime := time.Now()

	logFields := logrus.Fields{"operation": operation}
	for k, v := range fields {
		logFields[k] = v
	}

	l.logger.WithFields(logFields).Debug("Operation started")

	return func(err error) {
		logFields["duration"] = time.Since(startTime).Round(time.Millisecond).String()
		if err != nil {
			logFields["error"] = err.Error()
			l.logger.WithFields(logFields).Error("Operation failed")
		} else {
			l.logger.WithFields(logFields).Info("Operation completed")
		}
	}
}
