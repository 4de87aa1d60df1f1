package logger

import (
	"fmt"
	stdlog "log"
	"net/http"
	"os"

	"golang.org/x/net/context"

	"cloud.google.com/go/logging"
)

// Logger wraps a Stackdriver logger. With the local option set it writes
// to the process log instead, so the same call sites work in a dev loop
// with no GCP project available.
type Logger struct {
	stackDriverLogger *logging.Logger
	loggingClient     *logging.Client
	httpRequest       *logging.HTTPRequest

	defaultSeverity logging.Severity
	debug           bool
	local           bool
	logName         string
	prefix          string
}

// LoggerOption configures a Logger created by New.
type LoggerOption func(*Logger)

// WithDefaultSeverity sets the severity used by Log entries that carry none.
func WithDefaultSeverity(severity logging.Severity) LoggerOption {
	return func(l *Logger) {
		l.defaultSeverity = severity
	}
}

// WithDebug enables Debug/Debugf output. Without it debug entries are dropped.
func WithDebug(debug bool) LoggerOption {
	return func(l *Logger) {
		l.debug = debug
	}
}

// WithLocal bypasses Stackdriver and writes entries to the process log.
func WithLocal(local bool) LoggerOption {
	return func(l *Logger) {
		l.local = local
	}
}

// WithLogName sets the Stackdriver log name.
func WithLogName(logName string) LoggerOption {
	return func(l *Logger) {
		l.logName = logName
	}
}

// WithPrefix prepends prefix to every entry payload.
func WithPrefix(prefix string) LoggerOption {
	return func(l *Logger) {
		l.prefix = prefix
	}
}

// New creates a Logger for projectID. Unless running local it connects to
// Stackdriver and exits the process if the client cannot be created.
func New(projectID string, options ...LoggerOption) *Logger {
	logger := &Logger{
		defaultSeverity: logging.Default,
		logName:         "default",
	}
	for _, option := range options {
		option(logger)
	}
	if logger.local {
		return logger
	}
	loggingClient, err := logging.NewClient(context.Background(), projectID)
	if err != nil {
		stdlog.Fatalf("Failed to create logging client: %v", err)
	}
	logger.loggingClient = loggingClient
	logger.stackDriverLogger = loggingClient.Logger(logger.logName)
	return logger
}

// WithRequest returns a shallow copy of logger with a request present
func (logger *Logger) WithRequest(r *http.Request) *Logger {
	if r == nil || logger == nil {
		panic("nil request")
	}
	logger2 := new(Logger)
	*logger2 = *logger
	logger2.httpRequest = &logging.HTTPRequest{Request: r}
	return logger2
}

func (logger *Logger) Info(message interface{}) {
	logger.Log(logging.Entry{
		Payload:  message,
		Severity: logging.Info,
	})
}
func (logger *Logger) Debug(message interface{}) {
	if !logger.debug {
		return
	}
	logger.Log(logging.Entry{
		Payload:  message,
		Severity: logging.Debug,
	})
}
func (logger *Logger) Error(message interface{}) {
	logger.Log(logging.Entry{
		Payload:  message,
		Severity: logging.Error,
	})
}
func (logger *Logger) Critical(message interface{}) {
	logger.Log(logging.Entry{
		Payload:  message,
		Severity: logging.Critical,
	})
}

// Log writes an entry, filling in the default severity and any pending
// request from WithRequest.
func (logger *Logger) Log(entry logging.Entry) {
	e := entry
	if e.Severity == logging.Default {
		e.Severity = logger.defaultSeverity
	}
	if logger.httpRequest != nil && e.HTTPRequest == nil {
		e.HTTPRequest = logger.httpRequest
	}
	if logger.prefix != "" {
		e.Payload = fmt.Sprintf("%s%v", logger.prefix, e.Payload)
	}
	if logger.local || logger.stackDriverLogger == nil {
		stdlog.Printf("%s: %v", e.Severity, e.Payload)
		return
	}
	logger.stackDriverLogger.Log(e)
}

func (logger *Logger) Infof(format string, a ...interface{}) {
	logger.Info(fmt.Sprintf(format, a...))
}
func (logger *Logger) Debugf(format string, a ...interface{}) {
	logger.Debug(fmt.Sprintf(format, a...))
}
func (logger *Logger) Errorf(format string, a ...interface{}) {
	logger.Error(fmt.Sprintf(format, a...))
}
func (logger *Logger) Criticalf(format string, a ...interface{}) {
	logger.Critical(fmt.Sprintf(format, a...))
}

// Fatalf logs at Critical, flushes the client, and exits the process.
func (logger *Logger) Fatalf(format string, a ...interface{}) {
	logger.Critical(fmt.Sprintf(format, a...))
	logger.Close()
	osExit(1)
}

// osExit is swapped out in tests.
var osExit = os.Exit

// Close flushes and shuts down the Stackdriver client if one exists.
func (logger *Logger) Close() {
	if logger.loggingClient != nil {
		logger.loggingClient.Close()
	}
}

// Printf logs to the process log, for use before a Logger exists.
func Printf(format string, v ...interface{}) {
	stdlog.Printf(format, v...)
}

// Println logs to the process log, for use before a Logger exists.
func Println(v ...interface{}) {
	stdlog.Println(v...)
}

// Fatalf logs to the process log and exits.
func Fatalf(format string, v ...interface{}) {
	stdlog.Fatalf(format, v...)
}
