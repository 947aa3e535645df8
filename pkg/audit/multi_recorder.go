package audit

import "context"

// MultiRecorder fans one event out to several recorders. A failing recorder
// does not stop the others; the first error is returned.
type MultiRecorder struct {
	recorders []Recorder
}

// NewMultiRecorder combines recorders into one.
func NewMultiRecorder(recorders ...Recorder) *MultiRecorder {
	return &MultiRecorder{recorders: recorders}
}

// Record sends the event to every recorder.
func (m *MultiRecorder) Record(ctx context.Context, event *Event) error {
	var firstErr error
	for _, r := range m.recorders {
		if err := r.Record(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes every recorder.
func (m *MultiRecorder) Close() error {
	var firstErr error
	for _, r := range m.recorders {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
