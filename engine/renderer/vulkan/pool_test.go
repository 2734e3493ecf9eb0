package vulkan

import (
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestSafeCallSerializesGroup(t *testing.T) {
	pool := NewVulkanLockPool()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.SafeCall(CommandBufferManagement, func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 32, counter)
}

func TestSafeCallReturnsError(t *testing.T) {
	pool := NewVulkanLockPool()
	want := errors.New("boom")
	assert.ErrorIs(t, pool.SafeCall(DescriptorManagement, func() error { return want }), want)
}

func TestSafeQueueCallIsReentrantAcrossFamilies(t *testing.T) {
	pool := NewVulkanLockPool()
	pool.SetQueueFamily(0)
	pool.SetQueueFamily(1)

	err := pool.SafeQueueCall(0, func() error {
		return pool.SafeQueueCall(1, func() error { return nil })
	})
	assert.NoError(t, err)
}
