package glyphcast

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across sub-packages. Construction-time failures
// (device, shader, buffers, textures) abort before any frame work starts;
// per-frame failures abort the whole export.
var (
	// ErrDeviceUnavailable indicates no usable GPU device could be opened.
	ErrDeviceUnavailable = errors.New("glyphcast: GPU device unavailable")

	// ErrShaderUnavailable indicates the glyph shader failed to compile.
	ErrShaderUnavailable = errors.New("glyphcast: shader unavailable")

	// ErrBufferAllocation indicates a GPU buffer could not be created.
	ErrBufferAllocation = errors.New("glyphcast: buffer allocation failed")

	// ErrTextureCreation indicates a GPU texture could not be created.
	ErrTextureCreation = errors.New("glyphcast: texture creation failed")

	// ErrPoolExhausted indicates the frame buffer pool has no free buffer
	// and cannot wait for one.
	ErrPoolExhausted = errors.New("glyphcast: pixel buffer pool exhausted")

	// ErrAlreadyExporting indicates an export was requested while another
	// export on the same exporter is still running.
	ErrAlreadyExporting = errors.New("glyphcast: export already in progress")

	// ErrExportCancelled indicates the export stopped at a frame boundary
	// because its context was cancelled.
	ErrExportCancelled = errors.New("glyphcast: export cancelled")

	// ErrDestinationUnavailable indicates the export destination could not
	// be prepared for writing.
	ErrDestinationUnavailable = errors.New("glyphcast: destination unavailable")

	// ErrInvalidGrid indicates a glyph grid violated its size invariant.
	ErrInvalidGrid = errors.New("glyphcast: invalid glyph grid")
)

// WriterError wraps a failure from the media writer underlying an export.
// Op identifies the writer operation: "start", "append", or "finalize".
type WriterError struct {
	Op  string
	Err error
}

func (e *WriterError) Error() string {
	return fmt.Sprintf("glyphcast: media writer %s: %v", e.Op, e.Err)
}

func (e *WriterError) Unwrap() error { return e.Err }
