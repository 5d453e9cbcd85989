//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2025 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

// Package log adapts logrus to the go-hclog interface expected by the
// hashicorp storage libraries.
package log

import (
	"fmt"
	"io"
	stdlog "log"

	"github.com/hashicorp/go-hclog"
	"github.com/sirupsen/logrus"
)

type hclogger struct {
	logger  *logrus.Logger
	entry   *logrus.Entry
	name    string
	implied []interface{}
}

// NewHCLogrusLogger returns an hclog.Logger writing through logger. Fields
// passed as key/value pairs become logrus fields of that single line only,
// fields attached with With are carried by every following line.
func NewHCLogrusLogger(name string, logger *logrus.Logger) hclog.Logger {
	return &hclogger{
		logger: logger,
		entry:  logrus.NewEntry(logger),
		name:   name,
	}
}

func (l *hclogger) withArgs(args []interface{}) *logrus.Entry {
	fields := make(logrus.Fields, len(args)/2+1)
	if l.name != "" {
		fields["component"] = l.name
	}
	for i := 0; i+1 < len(args); i += 2 {
		fields[fmt.Sprint(args[i])] = args[i+1]
	}
	if len(args)%2 == 1 {
		fields[hclog.MissingKey] = args[len(args)-1]
	}
	return l.entry.WithFields(fields)
}

func (l *hclogger) Log(level hclog.Level, msg string, args ...interface{}) {
	switch level {
	case hclog.Trace:
		l.Trace(msg, args...)
	case hclog.Debug:
		l.Debug(msg, args...)
	case hclog.Warn:
		l.Warn(msg, args...)
	case hclog.Error:
		l.Error(msg, args...)
	case hclog.Off:
	default:
		l.Info(msg, args...)
	}
}

func (l *hclogger) Trace(msg string, args ...interface{}) { l.withArgs(args).Trace(msg) }
func (l *hclogger) Debug(msg string, args ...interface{}) { l.withArgs(args).Debug(msg) }
func (l *hclogger) Info(msg string, args ...interface{})  { l.withArgs(args).Info(msg) }
func (l *hclogger) Warn(msg string, args ...interface{})  { l.withArgs(args).Warn(msg) }
func (l *hclogger) Error(msg string, args ...interface{}) { l.withArgs(args).Error(msg) }

func (l *hclogger) IsTrace() bool { return l.logger.IsLevelEnabled(logrus.TraceLevel) }
func (l *hclogger) IsDebug() bool { return l.logger.IsLevelEnabled(logrus.DebugLevel) }
func (l *hclogger) IsInfo() bool  { return l.logger.IsLevelEnabled(logrus.InfoLevel) }
func (l *hclogger) IsWarn() bool  { return l.logger.IsLevelEnabled(logrus.WarnLevel) }
func (l *hclogger) IsError() bool { return l.logger.IsLevelEnabled(logrus.ErrorLevel) }

func (l *hclogger) ImpliedArgs() []interface{} {
	return l.implied
}

func (l *hclogger) With(args ...interface{}) hclog.Logger {
	implied := make([]interface{}, 0, len(l.implied)+len(args))
	implied = append(implied, l.implied...)
	implied = append(implied, args...)
	return &hclogger{
		logger:  l.logger,
		entry:   l.withArgs(args),
		name:    l.name,
		implied: implied,
	}
}

func (l *hclogger) Name() string {
	return l.name
}

func (l *hclogger) Named(name string) hclog.Logger {
	if l.name != "" {
		name = l.name + "." + name
	}
	return l.ResetNamed(name)
}

func (l *hclogger) ResetNamed(name string) hclog.Logger {
	return &hclogger{
		logger:  l.logger,
		entry:   l.entry,
		name:    name,
		implied: l.implied,
	}
}

func (l *hclogger) SetLevel(level hclog.Level) {
	l.logger.SetLevel(toLogrusLevel(level))
}

func (l *hclogger) GetLevel() hclog.Level {
	switch l.logger.GetLevel() {
	case logrus.TraceLevel:
		return hclog.Trace
	case logrus.DebugLevel:
		return hclog.Debug
	case logrus.InfoLevel:
		return hclog.Info
	case logrus.WarnLevel:
		return hclog.Warn
	default:
		return hclog.Error
	}
}

func (l *hclogger) StandardLogger(opts *hclog.StandardLoggerOptions) *stdlog.Logger {
	return stdlog.New(l.StandardWriter(opts), "", 0)
}

func (l *hclogger) StandardWriter(opts *hclog.StandardLoggerOptions) io.Writer {
	return l.entry.Writer()
}

func toLogrusLevel(level hclog.Level) logrus.Level {
	switch level {
	case hclog.Trace:
		return logrus.TraceLevel
	case hclog.Debug:
		return logrus.DebugLevel
	case hclog.Warn:
		return logrus.WarnLevel
	case hclog.Error, hclog.Off:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
