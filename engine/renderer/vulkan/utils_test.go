package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

func TestVulkanErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		result vk.Result
		target error
	}{
		{"suboptimal", vk.Suboptimal, gpu.ErrSuboptimal},
		{"out of date", vk.ErrorOutOfDate, gpu.ErrOutOfDate},
		{"timeout", vk.Timeout, gpu.ErrTimeout},
		{"host memory", vk.ErrorOutOfHostMemory, core.ErrResourceExhausted},
		{"device memory", vk.ErrorOutOfDeviceMemory, core.ErrResourceExhausted},
		{"pool memory", vk.ErrorOutOfPoolMemory, core.ErrResourceExhausted},
		{"missing extension", vk.ErrorExtensionNotPresent, core.ErrConfiguration},
		{"incompatible driver", vk.ErrorIncompatibleDriver, core.ErrConfiguration},
		{"device lost", vk.ErrorDeviceLost, core.ErrDriver},
		{"unknown", vk.ErrorUnknown, core.ErrDriver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := vulkanError(tt.result, "doing %s", "work")
			assert.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
			assert.Contains(t, err.Error(), "doing work")
		})
	}
}

func TestVulkanErrorSuccessIsNil(t *testing.T) {
	assert.NoError(t, vulkanError(vk.Success, "nothing"))
}

func TestStaleSwapchainErrorsAreMarked(t *testing.T) {
	assert.True(t, errors.Is(vulkanError(vk.ErrorOutOfDate, "present"), core.ErrSwapchainStale))
	assert.True(t, errors.Is(vulkanError(vk.Suboptimal, "acquire"), core.ErrSwapchainStale))
	assert.False(t, errors.Is(vulkanError(vk.ErrorDeviceLost, "submit"), core.ErrSwapchainStale))
}

func TestVulkanResultString(t *testing.T) {
	assert.Equal(t, "VK_SUCCESS", VulkanResultString(vk.Success, false))
	assert.Equal(t, "VK_ERROR_OUT_OF_DATE_KHR", VulkanResultString(vk.ErrorOutOfDate, false))
	assert.Equal(t, "VK_RESULT(12345)", VulkanResultString(vk.Result(12345), false))
}

func TestVulkanSafeString(t *testing.T) {
	assert.Equal(t, "\x00", VulkanSafeString(""))
	assert.Equal(t, "VK_NV_ray_tracing\x00", VulkanSafeString("VK_NV_ray_tracing"))
	assert.Equal(t, "done\x00", VulkanSafeString("done\x00"))

	list := VulkanSafeStrings([]string{"a", "b\x00"})
	assert.Equal(t, []string{"a\x00", "b\x00"}, list)
}

func TestVulkanString(t *testing.T) {
	raw := make([]byte, 16)
	copy(raw, "layer")
	assert.Equal(t, 5, FindFirstZeroInByteArray(raw))
	assert.Equal(t, "layer", vulkanString(raw))

	full := []byte("abc")
	assert.Equal(t, 3, FindFirstZeroInByteArray(full))
	assert.Equal(t, "abc", vulkanString(full))
}
