package core

import "github.com/hupe1980/agentgym/logging"

// EnsureLogger returns l, substituting a logging.NoOpLogger when l is nil so
// callers can log unconditionally without guarding every call site.
func EnsureLogger(l logging.Logger) logging.Logger {
	if l == nil {
		return logging.NoOpLogger{}
	}
	return l
}
