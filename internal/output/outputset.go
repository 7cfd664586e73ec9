package output

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/slidestream/slidestream/internal/frame"
	"github.com/slidestream/slidestream/internal/logger"
)

// WaitForever is the PauseThread timeout meaning "block until resumed".
const WaitForever = time.Duration(math.MaxInt64)

// OutputSet owns the sinks of one player session and fans each produced
// frame out to all of them, converting pixel formats per sink. It also
// hosts the pause barrier: the shared producing thread may only block once
// every attached sink has paused, because pausing is a per-sink request but
// the thread is shared.
type OutputSet struct {
	mu          sync.Mutex
	outputs     []Output
	pausedCount int
	canPause    bool
	wake        chan struct{}
}

// NewOutputSet returns an empty set.
func NewOutputSet() *OutputSet {
	return &OutputSet{wake: make(chan struct{})}
}

// AddOutput attaches a sink to the set and wires its pause notifications.
func (s *OutputSet) AddOutput(o Output) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.outputs {
		if existing == o {
			return
		}
	}
	s.outputs = append(s.outputs, o)
	if w, ok := o.(interface{ setOwner(pauseNotifier) }); ok {
		w.setOwner(s)
	}
	if o.IsPaused() {
		s.pausedCount++
	}
	s.recomputeBarrierLocked()
}

// RemoveOutput detaches a sink. Callers must have unregistered the sink's
// filters from the FilterManager before removal.
func (s *OutputSet) RemoveOutput(o Output) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.outputs {
		if existing == o {
			s.outputs = append(s.outputs[:i], s.outputs[i+1:]...)
			if o.IsPaused() {
				s.pausedCount--
			}
			if w, ok := o.(interface{ setOwner(pauseNotifier) }); ok {
				w.setOwner(nil)
			}
			break
		}
	}
	s.recomputeBarrierLocked()
}

// Outputs returns a snapshot of the attached sinks.
func (s *OutputSet) Outputs() []Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Output, len(s.outputs))
	copy(out, s.outputs)
	return out
}

// SendVideoFrame delivers one frame to every available sink. A sink whose
// preferred pixel format differs from the frame's gets its own reformatted
// copy; the original frame is never mutated. All copies are issued before
// the call returns, so delivery order at every sink matches the producer's
// call order regardless of per-sink consumption speed.
func (s *OutputSet) SendVideoFrame(f *frame.Frame) error {
	outputs := s.Outputs()

	var errs []error
	for _, o := range outputs {
		if !o.IsAvailable() {
			continue
		}
		deliver := f
		if o.PreferredFormat() != f.Format() {
			conv, err := f.ConvertTo(o.PreferredFormat())
			if err != nil {
				errs = append(errs, err)
				continue
			}
			deliver = conv
		}
		if err := o.Receive(deliver); err != nil {
			logger.WithComponent("output-set").Warn().
				Err(err).
				Str("sink", o.Name()).
				Msg("Sink rejected frame")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NotifyPauseChange updates the pause counter for one sink's state change.
// When the counter reaches the output count the barrier opens and the
// producing thread may block in PauseThread; any unpause closes it again
// and wakes blocked threads.
func (s *OutputSet) NotifyPauseChange(o Output) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o != nil && o.IsPaused() {
		s.pausedCount++
	} else {
		s.pausedCount--
	}
	if s.pausedCount < 0 {
		s.pausedCount = 0
	}
	if s.pausedCount > len(s.outputs) {
		s.pausedCount = len(s.outputs)
	}
	s.recomputeBarrierLocked()
}

func (s *OutputSet) recomputeBarrierLocked() {
	was := s.canPause
	s.canPause = len(s.outputs) > 0 && s.pausedCount == len(s.outputs)
	if was && !s.canPause {
		// Wake anything blocked in PauseThread.
		close(s.wake)
		s.wake = make(chan struct{})
	}
}

// CanPauseThread reports whether every attached sink is paused.
func (s *OutputSet) CanPauseThread() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canPause
}

// PauseThread blocks the calling (producing) thread until a sink resumes or
// the timeout elapses. Returns true if woken by a resume, false on timeout.
// This is a real OS-level timed wait, distinct from the cooperative
// cancellation flags used by the job loops.
func (s *OutputSet) PauseThread(timeout time.Duration) bool {
	s.mu.Lock()
	if !s.canPause {
		s.mu.Unlock()
		return true
	}
	wake := s.wake
	s.mu.Unlock()

	if timeout == WaitForever {
		<-wake
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-wake:
		return true
	case <-timer.C:
		return false
	}
}

// ResumeThread unpauses every sink, closing the barrier and waking any
// thread blocked in PauseThread.
func (s *OutputSet) ResumeThread() {
	for _, o := range s.Outputs() {
		o.Pause(false)
	}
}
