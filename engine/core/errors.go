package core

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrResourceExhausted marks allocation or object creation failures.
	ErrResourceExhausted = errors.New("resource exhausted")
	// ErrDriver marks a required driver query or bind call that did not report success.
	ErrDriver = errors.New("driver error")
	// ErrConfiguration marks an unsupported environment or an invalid configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrSwapchainStale marks an acquire or present that reported a surface change.
	ErrSwapchainStale = errors.New("swapchain stale")
)

func NewResourceExhausted(format string, args ...interface{}) error {
	return errors.Mark(errors.NewWithDepthf(1, format, args...), ErrResourceExhausted)
}

func NewDriverError(format string, args ...interface{}) error {
	return errors.Mark(errors.NewWithDepthf(1, format, args...), ErrDriver)
}

func NewConfigurationError(format string, args ...interface{}) error {
	return errors.Mark(errors.NewWithDepthf(1, format, args...), ErrConfiguration)
}

// WrapResourceExhausted annotates err and marks it as ErrResourceExhausted.
// A nil err yields nil.
func WrapResourceExhausted(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.WrapWithDepthf(1, err, format, args...), ErrResourceExhausted)
}

// WrapDriverError annotates err and marks it as ErrDriver. A nil err yields nil.
func WrapDriverError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.WrapWithDepthf(1, err, format, args...), ErrDriver)
}

// WrapConfigurationError annotates err and marks it as ErrConfiguration. A nil
// err yields nil.
func WrapConfigurationError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.WrapWithDepthf(1, err, format, args...), ErrConfiguration)
}

// ErrorKind names the taxonomy class of err, or "unknown".
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrResourceExhausted):
		return "resource exhausted"
	case errors.Is(err, ErrDriver):
		return "driver error"
	case errors.Is(err, ErrConfiguration):
		return "configuration error"
	case errors.Is(err, ErrSwapchainStale):
		return "swapchain stale"
	}
	return "unknown"
}

var fatal = LogFatal

// Check terminates the process with a diagnostic when err is not nil.
func Check(err error, msg string) {
	if err == nil {
		return
	}
	fatal("%s: %s (%s)\n%+v", msg, err.Error(), ErrorKind(err), err)
}
