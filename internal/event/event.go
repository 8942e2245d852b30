// Package event defines the closed set of events delivered to the face.
package event

import "time"

// Event is one of Tick, SyncUpdate, Battery, Redraw or TransportError.
type Event interface {
	event()
}

// TimeUnits is a bitmask of the clock units that changed since the last tick.
type TimeUnits uint8

const (
	MinuteUnit TimeUnits = 1 << iota
	HourUnit
	DayUnit
)

// Has reports whether u includes unit.
func (u TimeUnits) Has(unit TimeUnits) bool {
	return u&unit != 0
}

// Tick is emitted by the clock at unit boundaries.
type Tick struct {
	Time    time.Time
	Changed TimeUnits
}

// SyncUpdate carries one key/value pair received from the companion.
// Previous is the value last seen for Key on the channel, if any.
type SyncUpdate struct {
	Key      uint32
	Value    int32
	Previous *int32
}

// Battery is a local battery state change.
type Battery struct {
	Percent  int
	Charging bool
}

// Redraw asks for a draw pass over every dirty region.
type Redraw struct{}

// TransportError reports a sync payload that could not be decoded or delivered.
type TransportError struct {
	Err error
}

func (Tick) event()           {}
func (SyncUpdate) event()     {}
func (Battery) event()        {}
func (Redraw) event()         {}
func (TransportError) event() {}
