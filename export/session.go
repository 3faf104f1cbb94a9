package export

import (
	"sync"

	"github.com/glyphcast/glyphcast"
)

// session tracks the single-flight guard and progress of one exporter.
// At most one export runs per exporter; progress is monotonically
// non-decreasing during an export and reaches exactly 1.0 on success.
type session struct {
	mu        sync.Mutex
	exporting bool
	progress  float64
}

// begin marks the session active. It fails with ErrAlreadyExporting when
// an export is already running.
func (s *session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exporting {
		return glyphcast.ErrAlreadyExporting
	}
	s.exporting = true
	s.progress = 0
	return nil
}

// end marks the session idle. Idempotent; progress keeps its final value
// so callers can read 1.0 after a successful export.
func (s *session) end() {
	s.mu.Lock()
	s.exporting = false
	s.mu.Unlock()
}

// setProgress raises the reported progress. Values below the current
// progress are ignored, keeping the sequence monotonic.
func (s *session) setProgress(p float64) {
	s.mu.Lock()
	if p > s.progress {
		s.progress = p
	}
	s.mu.Unlock()
}

// Progress returns the last reported progress in [0, 1].
func (s *session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Exporting reports whether an export is currently running.
func (s *session) Exporting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exporting
}
