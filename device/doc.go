// Package device manages the GPU device used for glyph rendering and frame
// capture. It opens a wgpu/hal device on the Vulkan backend, preferring
// discrete then integrated adapters, and exposes a lazily initialized
// process-wide shared device.
//
// Applications that already own a GPU device (for example a gogpu window)
// can share it via FromProvider instead of opening a second one.
package device
