package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	log   *logrus.Logger
	logMu sync.Mutex
)

// Init initializes the logger with the given configuration
func Init(level, logFile string, console bool) error {
	l := logrus.New()

	// Set log level
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	// Set formatter
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	// Set output
	var writers []io.Writer

	if console {
		writers = append(writers, os.Stderr)
	}

	if logFile != "" {
		// Ensure directory exists
		dir := filepath.Dir(logFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}

		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		writers = append(writers, file)
	}

	switch len(writers) {
	case 0:
		l.SetOutput(io.Discard)
	case 1:
		l.SetOutput(writers[0])
	default:
		l.SetOutput(io.MultiWriter(writers...))
	}

	logMu.Lock()
	log = l
	logMu.Unlock()

	return nil
}

// Get returns the logger instance
func Get() *logrus.Logger {
	logMu.Lock()
	defer logMu.Unlock()
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.WarnLevel)
	}
	return log
}

// Set replaces the logger instance (used by embedders and tests)
func Set(l *logrus.Logger) {
	logMu.Lock()
	log = l
	logMu.Unlock()
}

// Call returns an entry for one encode/decode call. Every line logged through
// it carries the operation name and a call id so interleaved calls can be
// told apart.
func Call(op string) *logrus.Entry {
	return CallWith(Get(), op)
}

// CallWith is Call against a specific logger
func CallWith(l *logrus.Logger, op string) *logrus.Entry {
	return l.WithFields(logrus.Fields{
		"op":      op,
		"call_id": uuid.NewString(),
	})
}

// Convenience functions
func Debug(args ...interface{}) {
	Get().Debug(args...)
}

func Debugf(format string, args ...interface{}) {
	Get().Debugf(format, args...)
}

func Info(args ...interface{}) {
	Get().Info(args...)
}

func Infof(format string, args ...interface{}) {
	Get().Infof(format, args...)
}

func Warn(args ...interface{}) {
	Get().Warn(args...)
}

func Warnf(format string, args ...interface{}) {
	Get().Warnf(format, args...)
}

func Error(args ...interface{}) {
	Get().Error(args...)
}

func Errorf(format string, args ...interface{}) {
	Get().Errorf(format, args...)
}
