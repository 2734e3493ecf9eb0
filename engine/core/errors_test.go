package core

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomyClassifies(t *testing.T) {
	cases := []struct {
		err  error
		kind error
		name string
	}{
		{NewResourceExhausted("out of device memory for %d bytes", 64), ErrResourceExhausted, "resource exhausted"},
		{NewDriverError("bind failed"), ErrDriver, "driver error"},
		{NewConfigurationError("no depth format"), ErrConfiguration, "configuration error"},
		{errors.Mark(errors.New("out of date"), ErrSwapchainStale), ErrSwapchainStale, "swapchain stale"},
	}
	for _, c := range cases {
		assert.True(t, errors.Is(c.err, c.kind), c.name)
		assert.Equal(t, c.name, ErrorKind(c.err))
	}
	assert.Equal(t, "unknown", ErrorKind(errors.New("other")))
}

func TestWrapKeepsCauseAndMark(t *testing.T) {
	cause := errors.New("VK_ERROR_OUT_OF_DEVICE_MEMORY")
	err := WrapResourceExhausted(cause, "allocating %s", "scratch")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResourceExhausted))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "allocating scratch")

	assert.NoError(t, WrapDriverError(nil, "unused"))
	assert.NoError(t, WrapResourceExhausted(nil, "unused"))
}

func TestCheckCallsFatalOnlyOnError(t *testing.T) {
	var got string
	prev := fatal
	fatal = func(msg string, args ...interface{}) { got = fmt.Sprintf(msg, args...) }
	defer func() { fatal = prev }()

	Check(nil, "nothing")
	assert.Empty(t, got)

	Check(NewDriverError("handle query failed"), "building BLAS")
	assert.Contains(t, got, "building BLAS")
	assert.Contains(t, got, "driver error")
}
