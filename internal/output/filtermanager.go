package output

import "sync"

// FilterOwner is an attachment point for per-player filter lists. Player
// sessions satisfy it; the manager never looks past the name.
type FilterOwner interface {
	Name() string
}

// FilterManager maps each active filter to the outputs and player sessions
// it is attached to, so "uninstall this filter from everywhere" is a single
// idempotent call and teardown of an attachment point can detach every
// pending filter before releasing it.
//
// The manager is explicitly constructed and owned by the session or
// pipeline that needs it, never a process-wide singleton. Install and
// uninstall may race with dispatch, so every walk iterates over a copy of
// the map taken under the lock: a detachment callback that re-enters the
// manager cannot corrupt the iteration.
type FilterManager struct {
	mu            sync.Mutex
	outputFilters map[Output][]Filter
	audioFilters  map[FilterOwner][]Filter
	videoFilters  map[FilterOwner][]Filter
}

// NewFilterManager returns an empty registry.
func NewFilterManager() *FilterManager {
	return &FilterManager{
		outputFilters: make(map[Output][]Filter),
		audioFilters:  make(map[FilterOwner][]Filter),
		videoFilters:  make(map[FilterOwner][]Filter),
	}
}

// RegisterFilter attaches f to an output's chain at the given position
// (clamped to [0, size]). Re-registering at a new position moves the
// filter; registering at its current position returns false so callers can
// detect "nothing changed".
func (m *FilterManager) RegisterFilter(f Filter, o Output, at int) bool {
	m.mu.Lock()
	chain, changed := insertFilterAt(m.outputFilters[o], f, at)
	m.outputFilters[o] = chain
	m.mu.Unlock()

	if changed {
		o.InstallFilter(f, at)
	}
	return changed
}

// UnregisterFilter detaches f from one output. Returns false if it was not
// attached there.
func (m *FilterManager) UnregisterFilter(f Filter, o Output) bool {
	m.mu.Lock()
	removed := false
	chain := m.outputFilters[o]
	for i, g := range chain {
		if g == f {
			m.outputFilters[o] = append(chain[:i], chain[i+1:]...)
			removed = true
			break
		}
	}
	if removed && len(m.outputFilters[o]) == 0 {
		delete(m.outputFilters, o)
	}
	m.mu.Unlock()

	if removed {
		o.UninstallFilter(f)
	}
	return removed
}

// RegisterAudioFilter attaches f to a player's audio filter list.
func (m *FilterManager) RegisterAudioFilter(f Filter, owner FilterOwner, at int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	chain, changed := insertFilterAt(m.audioFilters[owner], f, at)
	m.audioFilters[owner] = chain
	return changed
}

// RegisterVideoFilter attaches f to a player's video filter list.
func (m *FilterManager) RegisterVideoFilter(f Filter, owner FilterOwner, at int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	chain, changed := insertFilterAt(m.videoFilters[owner], f, at)
	m.videoFilters[owner] = chain
	return changed
}

// UnregisterAudioFilter detaches f from a player's audio list.
func (m *FilterManager) UnregisterAudioFilter(f Filter, owner FilterOwner) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return removeFromOwnerMap(m.audioFilters, f, owner)
}

// UnregisterVideoFilter detaches f from a player's video list.
func (m *FilterManager) UnregisterVideoFilter(f Filter, owner FilterOwner) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return removeFromOwnerMap(m.videoFilters, f, owner)
}

// AudioFiltersFor returns a snapshot of the audio chain for owner.
func (m *FilterManager) AudioFiltersFor(owner FilterOwner) []Filter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot(m.audioFilters[owner])
}

// VideoFiltersFor returns a snapshot of the video chain for owner.
func (m *FilterManager) VideoFiltersFor(owner FilterOwner) []Filter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot(m.videoFilters[owner])
}

// UninstallFilter detaches f from every output and every player list it is
// attached to, in all three maps. Idempotent: a second call finds nothing
// and returns false.
func (m *FilterManager) UninstallFilter(f Filter) bool {
	// Copy the attachment points first; the per-output detach below calls
	// out to the sink, which may re-enter the manager.
	m.mu.Lock()
	var outputs []Output
	for o, chain := range m.outputFilters {
		if containsFilter(chain, f) {
			outputs = append(outputs, o)
		}
	}
	var audioOwners, videoOwners []FilterOwner
	for owner, chain := range m.audioFilters {
		if containsFilter(chain, f) {
			audioOwners = append(audioOwners, owner)
		}
	}
	for owner, chain := range m.videoFilters {
		if containsFilter(chain, f) {
			videoOwners = append(videoOwners, owner)
		}
	}
	m.mu.Unlock()

	found := false
	for _, o := range outputs {
		if m.UnregisterFilter(f, o) {
			found = true
		}
	}
	for _, owner := range audioOwners {
		if m.UnregisterAudioFilter(f, owner) {
			found = true
		}
	}
	for _, owner := range videoOwners {
		if m.UnregisterVideoFilter(f, owner) {
			found = true
		}
	}
	return found
}

// UninstallAllForOutput detaches every filter attached to o. Must be called
// before the output is removed and released.
func (m *FilterManager) UninstallAllForOutput(o Output) {
	m.mu.Lock()
	pending := snapshot(m.outputFilters[o])
	m.mu.Unlock()

	for _, f := range pending {
		m.UnregisterFilter(f, o)
	}
}

// UninstallAllForOwner detaches every audio and video filter attached to a
// player session. Must be called before the session is released.
func (m *FilterManager) UninstallAllForOwner(owner FilterOwner) {
	m.mu.Lock()
	delete(m.audioFilters, owner)
	delete(m.videoFilters, owner)
	m.mu.Unlock()
}

// IsAttached reports whether f appears in any of the three maps.
func (m *FilterManager) IsAttached(f Filter) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chain := range m.outputFilters {
		if containsFilter(chain, f) {
			return true
		}
	}
	for _, chain := range m.audioFilters {
		if containsFilter(chain, f) {
			return true
		}
	}
	for _, chain := range m.videoFilters {
		if containsFilter(chain, f) {
			return true
		}
	}
	return false
}

func containsFilter(chain []Filter, f Filter) bool {
	for _, g := range chain {
		if g == f {
			return true
		}
	}
	return false
}

func removeFromOwnerMap(m map[FilterOwner][]Filter, f Filter, owner FilterOwner) bool {
	chain := m[owner]
	for i, g := range chain {
		if g == f {
			m[owner] = append(chain[:i], chain[i+1:]...)
			if len(m[owner]) == 0 {
				delete(m, owner)
			}
			return true
		}
	}
	return false
}

func snapshot(chain []Filter) []Filter {
	out := make([]Filter, len(chain))
	copy(out, chain)
	return out
}
