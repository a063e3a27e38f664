// Package logger builds the structured logger shared by the CLI and the HTTP service.
package logger

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields is an alias of the logrus field map.
type Fields = logrus.Fields

// RequestIDKey is the field name carrying the request identifier.
const RequestIDKey = "request_id"

// Options configures the logger outputs.
type Options struct {
	// Level is one of the logrus level names. Defaults to info.
	Level string
	// File enables a size-rotated log file next to the stderr output.
	File string
	// Output replaces stderr, mostly for tests.
	Output   io.Writer
	NoColors bool
	// Caller adds the file, line and function of the call site.
	Caller bool
}

// New returns a logrus logger writing nested, human readable entries.
func New(opts Options) (*logrus.Logger, error) {
	log := logrus.New()

	level := logrus.InfoLevel
	if opts.Level != "" {
		lvl, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		level = lvl
	}
	log.SetLevel(level)

	log.SetFormatter(&formatter.Formatter{
		NoColors:        opts.NoColors,
		TimestampFormat: "02 Jan 06 - 15:04:05",
		HideKeys:        false,
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]", 34, path.Base(f.File), f.Line, funcName)
		},
	})

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	writers := []io.Writer{out}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}
	log.SetOutput(io.MultiWriter(writers...))
	log.SetReportCaller(opts.Caller)

	return log, nil
}

// Discard returns a logger which drops every entry.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// ErrorWithTraceID logs msg at error level and returns the trace identifier attached to the entry.
// The request identifier is reused when present, otherwise a random UUID is generated.
func ErrorWithTraceID(log logrus.FieldLogger, fields Fields, msg string) string {
	f := Fields{}
	for k, v := range fields {
		f[k] = v
	}

	traceID, _ := f[RequestIDKey].(string)
	if traceID == "" {
		id, err := uuid.NewRandom()
		if err != nil {
			traceID = "unknown"
		} else {
			traceID = id.String()
		}
	}
	f["trace_id"] = traceID
	log.WithFields(f).Error(msg)

	return traceID
}
