package device

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/glyphcast/glyphcast"
)

// halProvider is implemented by providers that expose raw wgpu/hal handles
// alongside the gpucontext abstractions (gogpu's provider does).
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// FromProvider borrows the GPU device of an existing gpucontext provider,
// typically a gogpu application's GPUContextProvider. The provider must
// also expose HalDevice() any and HalQueue() any returning hal types.
//
// The returned Device does not own the underlying handles; Close detaches
// without destroying them.
func FromProvider(p gpucontext.DeviceProvider) (*Device, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil provider", glyphcast.ErrDeviceUnavailable)
	}
	hp, ok := p.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: provider does not expose HAL types", glyphcast.ErrDeviceUnavailable)
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok || dev == nil {
		return nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", glyphcast.ErrDeviceUnavailable)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", glyphcast.ErrDeviceUnavailable)
	}

	glyphcast.Logger().Info("using shared GPU device")
	return &Device{
		dev:      dev,
		queue:    queue,
		external: true,
	}, nil
}
