package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"
)

// loggerNames are all loggers created by this module
var loggerNames = []string{"store", "transport/rpc", "rpc", "metrics"}

var (
	factoryOnce sync.Once

	// output is shared by all loggers, every line is written with a single Write call
	output = log.New(os.Stdout, "", log.Ldate|log.Ltime)
)

// SetLogOutput redirects all loggers of the module to w
func SetLogOutput(w io.Writer) {
	output.SetOutput(w)
}

// --------------------------------------------------------------------------
// Relay Logger (implements dragonboat's logger.ILogger)
// --------------------------------------------------------------------------

// relayLogger writes lines of the form "LEVEL | name | message".
// The level can be changed while other goroutines are logging.
type relayLogger struct {
	name  string
	level atomic.Int32
}

func (l *relayLogger) SetLevel(level logger.LogLevel) {
	l.level.Store(int32(level))
}

func (l *relayLogger) enabled(level logger.LogLevel) bool {
	return logger.LogLevel(l.level.Load()) >= level
}

func (l *relayLogger) Debugf(format string, args ...interface{}) {
	if l.enabled(logger.DEBUG) {
		l.log("DEBUG", format, args...)
	}
}

func (l *relayLogger) Infof(format string, args ...interface{}) {
	if l.enabled(logger.INFO) {
		l.log("INFO", format, args...)
	}
}

func (l *relayLogger) Warningf(format string, args ...interface{}) {
	if l.enabled(logger.WARNING) {
		l.log("WARN", format, args...)
	}
}

func (l *relayLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(logger.ERROR) {
		l.log("ERROR", format, args...)
	}
}

// Panicf always panics, the message is logged first if the level allows it
func (l *relayLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if l.enabled(logger.CRITICAL) {
		l.log("PANIC", "%s", msg)
	}
	panic(msg)
}

func (l *relayLogger) log(levelStr string, format string, args ...interface{}) {
	output.Printf("%-5s | %-15s | %s", levelStr, l.name, fmt.Sprintf(format, args...))
}

// CreateLogger is the dragonboat logger.Factory of the module
func CreateLogger(pkgName string) logger.ILogger {
	l := &relayLogger{name: pkgName}
	l.SetLevel(logger.INFO)
	return l
}

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
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// InitLoggers installs the relay format and applies the level to all loggers of the module.
// Loggers obtained before the first call switch to the relay format as well.
func InitLoggers(level string) error {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	factoryOnce.Do(func() { logger.SetLoggerFactory(CreateLogger) })

	for _, name := range loggerNames {
		logger.GetLogger(name).SetLevel(lvl)
	}
	return nil
}
