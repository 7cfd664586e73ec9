// Package output implements the frame dispatch layer: sinks that consume
// decoded frames, the OutputSet that fans one frame stream out to every
// sink, and the FilterManager registry that ties filter lifetime to the
// sink or player the filter is attached to.
package output

import (
	"sync"

	"github.com/slidestream/slidestream/internal/frame"
)

// Output is a single frame sink: a screen renderer, a file writer, or a
// network stream. Receive is invoked only by the owning OutputSet. Pausing
// is a per-sink request: a paused sink refuses frames but does not halt the
// producing thread; the producer consults OutputSet.CanPauseThread to learn
// when every sink has opted out.
type Output interface {
	Name() string
	PreferredFormat() frame.PixelFormat
	Receive(f *frame.Frame) error
	Pause(paused bool)
	IsPaused() bool
	SetAvailable(available bool)
	IsAvailable() bool
	InstallFilter(f Filter, at int) bool
	UninstallFilter(f Filter) bool
	Filters() []Filter
}

// pauseNotifier is how a sink tells its owning set that its pause state
// changed. Satisfied by OutputSet.
type pauseNotifier interface {
	NotifyPauseChange(o Output)
}

// BaseSink carries the state every concrete sink shares: name, pause and
// availability flags, the ordered filter chain, and the back-pointer to the
// owning set for pause notifications.
type BaseSink struct {
	mu        sync.Mutex
	name      string
	paused    bool
	available bool
	filters   []Filter
	owner     pauseNotifier
	self      Output // the concrete sink embedding this base
}

// NewBaseSink returns an available, unpaused sink. Concrete sinks call
// bindSelf in their constructors so pause notifications carry the concrete
// sink, not the embedded base.
func NewBaseSink(name string) BaseSink {
	return BaseSink{name: name, available: true}
}

func (b *BaseSink) bindSelf(self Output) {
	b.self = self
}

// Name returns the sink's display name.
func (b *BaseSink) Name() string {
	return b.name
}

func (b *BaseSink) setOwner(o pauseNotifier) {
	b.mu.Lock()
	b.owner = o
	b.mu.Unlock()
}

// Pause marks the sink as refusing frames. The owning set is notified so it
// can update its pause barrier.
func (b *BaseSink) Pause(paused bool) {
	b.mu.Lock()
	changed := b.paused != paused
	b.paused = paused
	owner := b.owner
	self := b.self
	b.mu.Unlock()

	if changed && owner != nil {
		owner.NotifyPauseChange(self)
	}
}

// IsPaused reports whether the sink currently refuses frames.
func (b *BaseSink) IsPaused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

// SetAvailable toggles whether the set dispatches to this sink at all.
func (b *BaseSink) SetAvailable(available bool) {
	b.mu.Lock()
	b.available = available
	b.mu.Unlock()
}

// IsAvailable reports whether the set dispatches to this sink.
func (b *BaseSink) IsAvailable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available
}

// InstallFilter inserts f at the given position, clamped to [0, len].
// Re-inserting a filter that is already in the chain moves it; inserting it
// at the position it already occupies is a no-op returning false.
func (b *BaseSink) InstallFilter(f Filter, at int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	chain, changed := insertFilterAt(b.filters, f, at)
	b.filters = chain
	return changed
}

// UninstallFilter removes f from the chain, reporting whether it was there.
func (b *BaseSink) UninstallFilter(f Filter) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, g := range b.filters {
		if g == f {
			b.filters = append(b.filters[:i], b.filters[i+1:]...)
			return true
		}
	}
	return false
}

// Filters returns a snapshot of the chain in order.
func (b *BaseSink) Filters() []Filter {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Filter, len(b.filters))
	copy(out, b.filters)
	return out
}

// applyFilters runs the chain in order. Each filter returns a new frame;
// the input frame is never mutated.
func (b *BaseSink) applyFilters(f *frame.Frame) (*frame.Frame, error) {
	for _, flt := range b.Filters() {
		out, err := flt.Apply(f)
		if err != nil {
			return nil, err
		}
		f = out
	}
	return f, nil
}

// insertFilterAt implements the shared ordered-insertion rule: position
// clamped to [0, len], an existing filter moves rather than duplicates, and
// no change returns false.
func insertFilterAt(chain []Filter, f Filter, at int) ([]Filter, bool) {
	cur := -1
	for i, g := range chain {
		if g == f {
			cur = i
			break
		}
	}

	if at < 0 {
		at = 0
	}
	limit := len(chain)
	if cur >= 0 {
		limit--
	}
	if at > limit {
		at = limit
	}

	if cur == at {
		return chain, false
	}
	if cur >= 0 {
		chain = append(chain[:cur], chain[cur+1:]...)
	}
	chain = append(chain, nil)
	copy(chain[at+1:], chain[at:])
	chain[at] = f
	return chain, true
}
