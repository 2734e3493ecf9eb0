package jobs

import (
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobSystemRejectsBadSizes(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.True(t, errors.Is(err, ErrNoWorkers))
	_, err = NewJobSystem(1, -1)
	assert.True(t, errors.Is(err, ErrNegativeChannelSize))
}

func TestJobSystemRunsCallbacks(t *testing.T) {
	js, err := NewJobSystem(4, 0)
	require.NoError(t, err)

	var completed, failed, finished atomic.Int32
	boom := errors.New("boom")
	for i := 0; i < 20; i++ {
		i := i
		js.Submit(JobTask{
			Run: func() error {
				if i%5 == 0 {
					return boom
				}
				return nil
			},
			OnComplete: func() { completed.Add(1) },
			OnFailure: func(err error) {
				assert.True(t, errors.Is(err, boom))
				failed.Add(1)
			},
			OnCompletionCallback: func() { finished.Add(1) },
		})
	}
	require.NoError(t, js.Shutdown())
	require.NoError(t, js.Shutdown())

	assert.Equal(t, int32(16), completed.Load())
	assert.Equal(t, int32(4), failed.Load())
	assert.Equal(t, int32(20), finished.Load())
}

func TestRunAllCombinesErrors(t *testing.T) {
	var ran atomic.Int32
	first := errors.New("first")
	second := errors.New("second")
	err := RunAll(2, []func() error{
		func() error { ran.Add(1); return nil },
		func() error { ran.Add(1); return first },
		func() error { ran.Add(1); return second },
	})
	assert.Equal(t, int32(3), ran.Load())
	require.Error(t, err)
	assert.True(t, errors.Is(err, first) || errors.Is(err, second))

	assert.NoError(t, RunAll(8, nil))
}
