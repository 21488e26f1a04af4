package archive

import (
	"context"
	"sync"
)

type memoryRecorder struct {
	mu        sync.Mutex
	movements []Movement
}

// NewMemoryRecorder constructs an in-memory recorder for dev and tests.
func NewMemoryRecorder() Recorder {
	return &memoryRecorder{}
}

func (r *memoryRecorder) RecordMovement(_ context.Context, m Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, m)
	return nil
}

// Movements is a test helper that returns a copy of everything recorded so
// far when using the in-memory recorder.
func Movements(r Recorder) []Movement {
	mem, ok := r.(*memoryRecorder)
	if !ok {
		return nil
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	out := make([]Movement, len(mem.movements))
	copy(out, mem.movements)
	return out
}
