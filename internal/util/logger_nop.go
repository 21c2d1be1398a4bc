package util

import "context"

type nopLogger struct{}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() LoggerInterface { return nopLogger{} }

func (nopLogger) Debug(string, ...Field)                       {}
func (nopLogger) Debugf(string, ...interface{})                {}
func (nopLogger) Info(string, ...Field)                        {}
func (nopLogger) Warn(string, ...Field)                        {}
func (nopLogger) Error(string, ...Field)                       {}
func (nopLogger) Errorf(string, ...interface{})                {}
func (n nopLogger) With(...Field) LoggerInterface              { return n }
func (n nopLogger) WithContext(context.Context) LoggerInterface { return n }

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l LoggerInterface) LoggerInterface {
	if l == nil {
		return nopLogger{}
	}
	return l
}
