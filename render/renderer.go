package render

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/glyphcast/glyphcast"
	"github.com/glyphcast/glyphcast/atlas"
	"github.com/glyphcast/glyphcast/device"
)

// glyphUniformSize is the byte size of the glyph uniform buffer.
// Layout: screen_size (vec2<f32>) + unit_range (vec2<f32>) +
// time (f32) + 3 floats of padding = 32 bytes.
const glyphUniformSize = 32

// submitTimeout bounds every per-frame GPU wait.
const submitTimeout = 5 * time.Second

// Config holds glyph renderer parameters.
type Config struct {
	// MaxGlyphs is the instance buffer capacity. Grids with more cells
	// are truncated in row-major order.
	// Default: 100000
	MaxGlyphs int
}

// DefaultConfig returns the default renderer configuration.
func DefaultConfig() Config {
	return Config{MaxGlyphs: DefaultMaxGlyphs}
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if c.MaxGlyphs < 1 {
		return &atlas.ConfigError{Field: "MaxGlyphs", Reason: "must be at least 1"}
	}
	return nil
}

// GlyphRenderer renders a colored glyph grid in a single instanced draw.
//
// GlyphRenderer is not safe for concurrent use; the export loop drives it
// from one goroutine.
type GlyphRenderer struct {
	dev    *device.Device
	config Config

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
	sampler    hal.Sampler

	quadBuf     hal.Buffer
	indexBuf    hal.Buffer
	instanceBuf hal.Buffer
	uniformBuf  hal.Buffer

	atlasTex  hal.Texture
	atlasView hal.TextureView
	bindGroup hal.BindGroup

	unitRangeX, unitRangeY float32

	// Reused per frame.
	scratch     []GlyphInstance
	scratchRaw  []byte
	count       uint32
	uniformsSet bool
}

// NewGlyphRenderer creates the render pipeline and uploads the atlas
// texture. Construction failures are fatal: no export can proceed without
// a shader and buffers.
func NewGlyphRenderer(dev *device.Device, at *atlas.Atlas, cfg Config) (*GlyphRenderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &GlyphRenderer{
		dev:        dev,
		config:     cfg,
		scratch:    make([]GlyphInstance, cfg.MaxGlyphs),
		scratchRaw: make([]byte, cfg.MaxGlyphs*glyphInstanceStride),
	}
	r.unitRangeX, r.unitRangeY = at.UnitRange()

	if err := r.createPipeline(); err != nil {
		r.Destroy()
		return nil, err
	}
	if err := r.createBuffers(); err != nil {
		r.Destroy()
		return nil, err
	}
	if err := r.uploadAtlas(at); err != nil {
		r.Destroy()
		return nil, err
	}
	if err := r.createBindGroup(); err != nil {
		r.Destroy()
		return nil, err
	}

	glyphcast.Logger().Debug("glyph renderer ready",
		"maxGlyphs", cfg.MaxGlyphs, "atlasGlyphs", at.Len())
	return r, nil
}

// createPipeline compiles the glyph shader and creates the render pipeline
// with premultiplied alpha blending.
func (r *GlyphRenderer) createPipeline() error {
	dev := r.dev.HAL()

	shader, err := dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "glyph_shader",
		Source: hal.ShaderSource{WGSL: glyphShaderSource},
	})
	if err != nil {
		return fmt.Errorf("%w: compile glyph shader: %v", glyphcast.ErrShaderUnavailable, err)
	}
	r.shader = shader

	// Bind group layout:
	//   Binding 0: Uniforms (uniform buffer, vertex+fragment)
	//   Binding 1: SDF atlas texture (texture_2d, fragment)
	//   Binding 2: Sampler (fragment)
	bindLayout, err := dev.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "glyph_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create glyph bind layout: %w", err)
	}
	r.bindLayout = bindLayout

	pipeLayout, err := dev.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "glyph_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{r.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create glyph pipeline layout: %w", err)
	}
	r.pipeLayout = pipeLayout

	// Linear filtering for smooth distance field interpolation.
	sampler, err := dev.CreateSampler(&hal.SamplerDescriptor{
		Label:        "glyph_atlas_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("create glyph sampler: %w", err)
	}
	r.sampler = sampler

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := dev.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "glyph_pipeline",
		Layout: r.pipeLayout,
		Vertex: hal.VertexState{
			Module:     r.shader,
			EntryPoint: "vs_main",
			Buffers:    glyphVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     r.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    targetFormat,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create glyph pipeline: %v", glyphcast.ErrShaderUnavailable, err)
	}
	r.pipeline = pipeline

	return nil
}

// createBuffers allocates the unit quad, index, instance, and uniform
// buffers and uploads the static quad geometry.
func (r *GlyphRenderer) createBuffers() error {
	dev := r.dev.HAL()

	quadBuf, err := dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "glyph_quad",
		Size:  4 * 8,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("%w: quad buffer: %v", glyphcast.ErrBufferAllocation, err)
	}
	r.quadBuf = quadBuf

	indexBuf, err := dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "glyph_indices",
		Size:  6 * 2,
		Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("%w: index buffer: %v", glyphcast.ErrBufferAllocation, err)
	}
	r.indexBuf = indexBuf

	instanceBuf, err := dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "glyph_instances",
		Size:  uint64(r.config.MaxGlyphs) * glyphInstanceStride,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("%w: instance buffer: %v", glyphcast.ErrBufferAllocation, err)
	}
	r.instanceBuf = instanceBuf

	uniformBuf, err := dev.CreateBuffer(&hal.BufferDescriptor{
		Label: "glyph_uniforms",
		Size:  glyphUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("%w: uniform buffer: %v", glyphcast.ErrBufferAllocation, err)
	}
	r.uniformBuf = uniformBuf

	// Unit quad corners: top-left, top-right, bottom-right, bottom-left.
	quad := make([]byte, 4*8)
	off := 0
	for _, v := range [8]float32{0, 0, 1, 0, 1, 1, 0, 1} {
		binary.LittleEndian.PutUint32(quad[off:], math.Float32bits(v))
		off += 4
	}
	r.dev.Queue().WriteBuffer(r.quadBuf, 0, quad)

	indices := make([]byte, 6*2)
	for i, idx := range [6]uint16{0, 1, 2, 2, 3, 0} {
		binary.LittleEndian.PutUint16(indices[i*2:], idx)
	}
	r.dev.Queue().WriteBuffer(r.indexBuf, 0, indices)

	return nil
}

// uploadAtlas creates the atlas texture and uploads the SDF image.
func (r *GlyphRenderer) uploadAtlas(at *atlas.Atlas) error {
	dev := r.dev.HAL()
	w := uint32(at.Width())
	h := uint32(at.Height())

	tex, err := dev.CreateTexture(&hal.TextureDescriptor{
		Label:         "glyph_atlas",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("%w: atlas texture: %v", glyphcast.ErrTextureCreation, err)
	}
	r.atlasTex = tex

	view, err := dev.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "glyph_atlas_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return fmt.Errorf("%w: atlas view: %v", glyphcast.ErrTextureCreation, err)
	}
	r.atlasView = view

	r.dev.Queue().WriteTexture(
		&hal.ImageCopyTexture{Texture: r.atlasTex, MipLevel: 0},
		at.Image().Pix,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)

	return nil
}

func (r *GlyphRenderer) createBindGroup() error {
	bg, err := r.dev.HAL().CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "glyph_bind",
		Layout: r.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: r.uniformBuf.NativeHandle(), Offset: 0, Size: glyphUniformSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: r.atlasView.NativeHandle()}},
			{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: r.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return fmt.Errorf("create glyph bind group: %w", err)
	}
	r.bindGroup = bg
	return nil
}

// UpdateInstances rebuilds the instance buffer from the grid. Glyphs missing
// from the atlas are skipped; cells beyond MaxGlyphs are dropped silently.
func (r *GlyphRenderer) UpdateInstances(grid *glyphcast.GlyphGrid, at *atlas.Atlas, l Layout) {
	n := BuildInstances(r.scratch, grid, at, l)
	if n < grid.Cells() && grid.Cells() > r.config.MaxGlyphs {
		glyphcast.Logger().Debug("glyph grid truncated",
			"cells", grid.Cells(), "rendered", n, "maxGlyphs", r.config.MaxGlyphs)
	}
	r.count = uint32(n)
	if n == 0 {
		return
	}
	packInstances(r.scratchRaw[:n*glyphInstanceStride], r.scratch[:n])
	r.dev.Queue().WriteBuffer(r.instanceBuf, 0, r.scratchRaw[:n*glyphInstanceStride])
}

// UpdateUniforms uploads the per-frame uniforms: render target size and the
// animation time in seconds.
func (r *GlyphRenderer) UpdateUniforms(width, height int, t float64) {
	buf := make([]byte, glyphUniformSize)
	off := 0
	for _, v := range [6]float32{
		float32(width), float32(height),
		r.unitRangeX, r.unitRangeY,
		float32(t), 0,
	} {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
		off += 4
	}
	r.dev.Queue().WriteBuffer(r.uniformBuf, 0, buf)
	r.uniformsSet = true
}

// InstanceCount returns the number of instances staged by the last
// UpdateInstances call.
func (r *GlyphRenderer) InstanceCount() int { return int(r.count) }

// Encode records the instanced glyph draw into an existing render pass.
// No-op when the last grid produced zero instances.
func (r *GlyphRenderer) Encode(rp hal.RenderPassEncoder) {
	if r.count == 0 {
		return
	}
	rp.SetPipeline(r.pipeline)
	rp.SetBindGroup(0, r.bindGroup, nil)
	rp.SetVertexBuffer(0, r.quadBuf, 0)
	rp.SetVertexBuffer(1, r.instanceBuf, 0)
	rp.SetIndexBuffer(r.indexBuf, gputypes.IndexFormatUint16, 0)
	rp.DrawIndexed(6, r.count, 0, 0, 0)
}

// Render clears the target and draws the staged instances, blocking until
// the GPU finishes. Convenience wrapper over Encode for single-pass use.
func (r *GlyphRenderer) Render(target *Target, clear glyphcast.RGBA) error {
	dev := r.dev.HAL()
	encoder, err := dev.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "glyph_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("glyph_frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	pc := clear.Premultiply()
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "glyph_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       target.View(),
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: pc.R, G: pc.G, B: pc.B, A: pc.A},
		}},
	})
	r.Encode(rp)
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer dev.FreeCommandBuffer(cmdBuf)

	return r.dev.SubmitAndWait([]hal.CommandBuffer{cmdBuf}, submitTimeout)
}

// glyphVertexLayout returns the two vertex buffer layouts for the glyph
// pipeline: slot 0 is the shared unit quad, slot 1 steps per instance.
// Matches VertexInput in glyph.wgsl.
func glyphVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: 8,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // corner
			},
		},
		{
			ArrayStride: glyphInstanceStride,
			StepMode:    gputypes.VertexStepModeInstance,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 1},  // pos
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 2},  // size
				{Format: gputypes.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 3}, // uv_rect
				{Format: gputypes.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 4}, // color
			},
		},
	}
}

// Destroy releases all GPU resources in reverse creation order. Safe to
// call multiple times or on a partially constructed renderer.
func (r *GlyphRenderer) Destroy() {
	dev := r.dev.HAL()
	if dev == nil {
		return
	}
	if r.bindGroup != nil {
		dev.DestroyBindGroup(r.bindGroup)
		r.bindGroup = nil
	}
	if r.atlasView != nil {
		dev.DestroyTextureView(r.atlasView)
		r.atlasView = nil
	}
	if r.atlasTex != nil {
		dev.DestroyTexture(r.atlasTex)
		r.atlasTex = nil
	}
	for _, b := range []*hal.Buffer{&r.uniformBuf, &r.instanceBuf, &r.indexBuf, &r.quadBuf} {
		if *b != nil {
			dev.DestroyBuffer(*b)
			*b = nil
		}
	}
	if r.pipeline != nil {
		dev.DestroyRenderPipeline(r.pipeline)
		r.pipeline = nil
	}
	if r.sampler != nil {
		dev.DestroySampler(r.sampler)
		r.sampler = nil
	}
	if r.pipeLayout != nil {
		dev.DestroyPipelineLayout(r.pipeLayout)
		r.pipeLayout = nil
	}
	if r.bindLayout != nil {
		dev.DestroyBindGroupLayout(r.bindLayout)
		r.bindLayout = nil
	}
	if r.shader != nil {
		dev.DestroyShaderModule(r.shader)
		r.shader = nil
	}
}
