package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"
)

// LoggerNames lists the components whose level is set by InitLoggers.
var LoggerNames = []string{"xstore", "session", "registry", "lifecycle", "cli"}

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// levelTags are the labels written in front of each line.
var levelTags = map[logger.LogLevel]string{
	logger.CRITICAL: "PANIC",
	logger.ERROR:    "ERROR",
	logger.WARNING:  "WARN",
	logger.INFO:     "INFO",
	logger.DEBUG:    "DEBUG",
}

// xdbLogger writes "LEVEL | component | message" lines to out.
// The level can be changed while other goroutines log.
type xdbLogger struct {
	name  string
	level atomic.Int32
	out   *log.Logger
}

func (l *xdbLogger) SetLevel(level logger.LogLevel) { l.level.Store(int32(level)) }

func (l *xdbLogger) Debugf(format string, args ...interface{}) { l.logf(logger.DEBUG, format, args) }

func (l *xdbLogger) Infof(format string, args ...interface{}) { l.logf(logger.INFO, format, args) }

func (l *xdbLogger) Warningf(format string, args ...interface{}) {
	l.logf(logger.WARNING, format, args)
}

func (l *xdbLogger) Errorf(format string, args ...interface{}) { l.logf(logger.ERROR, format, args) }

// Panicf logs at every level and panics.
func (l *xdbLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.write(logger.CRITICAL, msg)
	panic(msg)
}

func (l *xdbLogger) logf(lvl logger.LogLevel, format string, args []interface{}) {
	if logger.LogLevel(l.level.Load()) < lvl {
		return
	}
	l.write(lvl, fmt.Sprintf(format, args...))
}

func (l *xdbLogger) write(lvl logger.LogLevel, msg string) {
	l.out.Printf("%-5s | %-15s | %s", levelTags[lvl], l.name, msg)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger implements the dragonboat logger.Factory. Logs go to stderr so
// they never mix with command output on stdout.
func CreateLogger(pkgName string) logger.ILogger {
	return NewLogger(pkgName, os.Stderr)
}

// NewLogger creates a logger for pkgName writing to w (level INFO).
func NewLogger(pkgName string, w io.Writer) logger.ILogger {
	l := &xdbLogger{
		name: pkgName,
		out:  log.New(w, "", log.Ldate|log.Ltime),
	}
	l.SetLevel(logger.INFO)
	return l
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// InitLoggers installs the custom logger factory and sets the level of all
// xdb loggers.
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)

	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
