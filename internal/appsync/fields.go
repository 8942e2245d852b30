// Package appsync reconciles key/value updates from the companion with the
// values persisted on the device.
package appsync

import (
	"fmt"

	"github.com/dokzlo13/watchface/internal/gauge"
)

// Key identifies a tracked field on the wire and in persistent storage.
type Key uint32

const (
	PeerBatteryPercent Key = 0
	Temperature        Key = 1
	WeatherIconID      Key = 2
	PeerChargingFlag   Key = 3
)

// Keys lists every tracked field in key order.
var Keys = []Key{PeerBatteryPercent, Temperature, WeatherIconID, PeerChargingFlag}

func (k Key) String() string {
	switch k {
	case PeerBatteryPercent:
		return "peer_battery"
	case Temperature:
		return "temperature"
	case WeatherIconID:
		return "weather_icon"
	case PeerChargingFlag:
		return "peer_charging"
	default:
		return fmt.Sprintf("key_%d", uint32(k))
	}
}

// Phase is the lifecycle position of a tracked field.
type Phase uint8

const (
	Uninitialized Phase = iota
	Seeded
	Live
)

func (p Phase) String() string {
	switch p {
	case Seeded:
		return "seeded"
	case Live:
		return "live"
	default:
		return "uninitialized"
	}
}

// AbsoluteZero is the lowest accepted temperature minus one.
const AbsoluteZero = -274

// Celsius is an optional temperature reading.
type Celsius struct {
	Degrees int32
	Valid   bool
}

// Text renders the temperature label; an absent reading renders blank.
func (c Celsius) Text() string {
	if !c.Valid {
		return ""
	}
	return fmt.Sprintf("%d°", c.Degrees)
}

// IconIndex is an optional weather catalog index.
type IconIndex struct {
	Index int
	Valid bool
}

// Snapshot is a read-only copy of the tracked values handed to renderers.
type Snapshot struct {
	PeerBattery  int // already clamped to [0, 100]
	Temperature  Celsius
	Icon         IconIndex
	PeerCharging bool
}

// GaugePercent clamps a raw peer battery byte for the gauge.
func GaugePercent(raw uint8) int {
	return gauge.Clamp(int(raw))
}
