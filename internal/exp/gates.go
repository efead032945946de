package exp

import "sync/atomic"

// gates are the write gates of a store. They may be read and written from
// any thread; the single-shot token is consumed with an atomic exchange so
// at most one bench write ever succeeds.
type gates struct {
	enabled         atomic.Bool
	readOnly        atomic.Bool
	paused          atomic.Bool
	benchMode       atomic.Bool
	benchSingleShot atomic.Bool
}

// Enabled reports whether experience is enabled at all.
func (s *Store) Enabled() bool {
	return s.gates.enabled.Load()
}

// SetEnabled flips the enabled gate. Disabling releases loaded data.
func (s *Store) SetEnabled(v bool) {
	s.gates.enabled.Store(v)
	if !v {
		s.Unload()
	}
}

// ReadOnly reports whether writes are globally rejected.
func (s *Store) ReadOnly() bool {
	return s.gates.readOnly.Load()
}

// SetReadOnly flips the readonly gate.
func (s *Store) SetReadOnly(v bool) {
	s.gates.readOnly.Store(v)
}

// PauseLearning suspends recording of new observations.
func (s *Store) PauseLearning() {
	s.gates.paused.Store(true)
}

// ResumeLearning re-enables recording of new observations.
func (s *Store) ResumeLearning() {
	s.gates.paused.Store(false)
}

// IsLearningPaused reports whether learning is paused.
func (s *Store) IsLearningPaused() bool {
	return s.gates.paused.Load()
}

// Bench wraps a benchmark run: the experience file is touched so the side
// effect stays deterministic, and exactly one PV entry may be recorded for
// the whole run. MultiPV writes are dropped for its duration.
func (s *Store) Bench(run func()) {
	s.WaitForLoad()

	s.gates.benchMode.Store(true)
	s.gates.benchSingleShot.Store(true)
	s.Touch()

	run()

	s.gates.benchMode.Store(false)
}
