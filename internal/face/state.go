package face

import (
	"github.com/dokzlo13/watchface/internal/appsync"
	"github.com/dokzlo13/watchface/internal/gauge"
)

// State is everything the face shows. The controller owns it and hands it to
// the renderer; nothing else mutates it.
type State struct {
	Sync *appsync.Machine

	LocalBattery  int
	LocalCharging bool
	TimeText      string
	DateText      string

	dirty [regionCount]bool
}

// NewState wraps a sync machine in a fresh state with nothing dirty.
func NewState(m *appsync.Machine) *State {
	return &State{Sync: m}
}

// MarkDirty flags regions for the next draw pass.
func (s *State) MarkDirty(rs ...Region) {
	for _, r := range rs {
		s.dirty[r] = true
	}
}

// Dirty returns the regions waiting for a draw pass, in paint order.
func (s *State) Dirty() []Region {
	var out []Region
	for i, d := range s.dirty {
		if d {
			out = append(out, Region(i))
		}
	}
	return out
}

// IsDirty reports whether r waits for a draw pass.
func (s *State) IsDirty(r Region) bool {
	return s.dirty[r]
}

func (s *State) clearDirty() {
	s.dirty = [regionCount]bool{}
}

// setLocalBattery records a host battery reading.
func (s *State) setLocalBattery(percent int, charging bool) {
	s.LocalBattery = gauge.Clamp(percent)
	s.LocalCharging = charging
	s.MarkDirty(RegionLocalGauge, RegionLocalCharging)
}
