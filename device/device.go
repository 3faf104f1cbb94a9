package device

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/glyphcast/glyphcast"
)

// Device owns (or borrows) a GPU device and its queue.
//
// Device methods are safe for concurrent use, but command submission is
// serialized by the callers (the export loop is strictly sequential).
type Device struct {
	mu sync.Mutex

	instance hal.Instance
	dev      hal.Device
	queue    hal.Queue
	name     string
	external bool // true when borrowed from a provider (don't destroy on Close)
	closed   bool
}

// New opens a new GPU device on the Vulkan backend. Discrete GPUs are
// preferred, then integrated; any adapter is accepted as a last resort.
func New() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", glyphcast.ErrDeviceUnavailable)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %v", glyphcast.ErrDeviceUnavailable, err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no GPU adapters found", glyphcast.ErrDeviceUnavailable)
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		for i := range adapters {
			if adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
				selected = &adapters[i]
				break
			}
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: open device: %v", glyphcast.ErrDeviceUnavailable, err)
	}

	glyphcast.Logger().Info("GPU adapter selected", "name", selected.Info.Name)
	return &Device{
		instance: instance,
		dev:      openDev.Device,
		queue:    openDev.Queue,
		name:     selected.Info.Name,
	}, nil
}

var (
	sharedOnce sync.Once
	sharedDev  *Device
	sharedErr  error
)

// Shared returns the process-wide device, opening it on first call.
// The open error, if any, is remembered and returned on every call.
func Shared() (*Device, error) {
	sharedOnce.Do(func() {
		sharedDev, sharedErr = New()
	})
	return sharedDev, sharedErr
}

// HAL returns the underlying hal.Device.
func (d *Device) HAL() hal.Device { return d.dev }

// Queue returns the underlying hal.Queue.
func (d *Device) Queue() hal.Queue { return d.queue }

// AdapterName returns the name of the selected adapter, when known.
func (d *Device) AdapterName() string { return d.name }

// SubmitAndWait submits command buffers and blocks until the GPU signals
// completion or the timeout expires. Frames are read back only after this
// returns, keeping frame ordering strict.
func (d *Device) SubmitAndWait(bufs []hal.CommandBuffer, timeout time.Duration) error {
	fence, err := d.dev.CreateFence()
	if err != nil {
		return fmt.Errorf("device: create fence: %w", err)
	}
	defer d.dev.DestroyFence(fence)

	if err := d.queue.Submit(bufs, fence, 1); err != nil {
		return fmt.Errorf("device: submit: %w", err)
	}
	ok, err := d.dev.Wait(fence, 1, timeout)
	if err != nil {
		return fmt.Errorf("device: wait: %w", err)
	}
	if !ok {
		return fmt.Errorf("device: wait: timed out after %v", timeout)
	}
	return nil
}

// Close releases the device. Borrowed devices are detached, not destroyed.
// Close is idempotent.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true

	if !d.external {
		if d.dev != nil {
			d.dev.Destroy()
		}
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.dev = nil
	d.queue = nil
	d.instance = nil
}
