package gpu

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vengine/engine/core"
)

var (
	// ErrSuboptimal is returned alongside a usable image index or a successful
	// present when the swapchain no longer matches the surface exactly.
	ErrSuboptimal = errors.New("swapchain suboptimal")
	// ErrOutOfDate is returned when the swapchain can no longer be used.
	ErrOutOfDate = errors.New("swapchain out of date")
	// ErrTimeout is returned by a bounded wait that expired.
	ErrTimeout = errors.New("wait timed out")
)

// WrapStale annotates ErrSuboptimal or ErrOutOfDate and marks the result
// with core.ErrSwapchainStale. The mark sits on the wrapper so the two
// sentinels stay distinguishable.
func WrapStale(sentinel error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(sentinel, format, args...), core.ErrSwapchainStale)
}

// IsSuboptimal reports whether err only signals a suboptimal swapchain.
func IsSuboptimal(err error) bool {
	return errors.Is(err, ErrSuboptimal)
}

// IsOutOfDate reports whether err signals an unusable swapchain.
func IsOutOfDate(err error) bool {
	return errors.Is(err, ErrOutOfDate)
}

// IsStale reports whether err signals either kind of swapchain change.
func IsStale(err error) bool {
	return IsSuboptimal(err) || IsOutOfDate(err) || errors.Is(err, core.ErrSwapchainStale)
}
