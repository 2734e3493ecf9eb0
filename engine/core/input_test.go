package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInputStateTracksPreviousTick(t *testing.T) {
	s := NewInputState()
	assert.True(t, s.IsKeyUp(KEY_W))

	s.ProcessKey(KEY_W, true)
	assert.True(t, s.IsKeyDown(KEY_W))
	assert.True(t, s.Pressed(KEY_W))

	s.Update()
	assert.True(t, s.WasKeyDown(KEY_W))
	assert.False(t, s.Pressed(KEY_W))

	s.ProcessKey(KEY_W, false)
	assert.True(t, s.IsKeyUp(KEY_W))
}

func TestInputStateIgnoresOutOfRangeKeys(t *testing.T) {
	s := NewInputState()
	s.ProcessKey(KeyCode(1024), true)
	assert.False(t, s.IsKeyDown(KeyCode(1024)))
}

func TestFrameMetricsAverages(t *testing.T) {
	m := NewFrameMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.010)
	}
	assert.InDelta(t, 10.0, m.FrameTime(), 1e-9)

	for i := 0; i < 120; i++ {
		m.Update(0.010)
	}
	assert.InDelta(t, 100, m.FPS(), 1)
}
