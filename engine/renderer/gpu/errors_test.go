package gpu

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/vengine/engine/core"
)

func TestStaleSentinelsAreDistinct(t *testing.T) {
	assert.True(t, IsSuboptimal(ErrSuboptimal))
	assert.False(t, IsOutOfDate(ErrSuboptimal))
	assert.True(t, IsOutOfDate(ErrOutOfDate))
	assert.False(t, IsSuboptimal(ErrOutOfDate))

	suboptimal := WrapStale(ErrSuboptimal, "acquiring image %d", 2)
	outOfDate := WrapStale(ErrOutOfDate, "presenting image %d", 2)
	assert.True(t, IsSuboptimal(suboptimal))
	assert.False(t, IsOutOfDate(suboptimal))
	assert.True(t, IsOutOfDate(outOfDate))
	assert.False(t, IsSuboptimal(outOfDate))
	assert.Contains(t, suboptimal.Error(), "acquiring image 2")
}

func TestIsStale(t *testing.T) {
	assert.True(t, IsStale(ErrSuboptimal))
	assert.True(t, IsStale(ErrOutOfDate))
	assert.True(t, IsStale(WrapStale(ErrOutOfDate, "present")))
	assert.True(t, errors.Is(WrapStale(ErrSuboptimal, "acquire"), core.ErrSwapchainStale))
	assert.False(t, IsStale(ErrTimeout))
	assert.False(t, IsStale(nil))
}
