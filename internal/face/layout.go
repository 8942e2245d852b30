package face

import (
	"image"

	"github.com/dokzlo13/watchface/internal/appsync"
)

// Region is a display area that can be marked dirty.
type Region uint8

const (
	RegionTemperatureBackground Region = iota
	RegionTemperature
	RegionIcon
	RegionDate
	RegionTime
	RegionLocalGauge
	RegionPeerGauge
	RegionLocalMarker
	RegionPeerMarker
	RegionLocalCharging
	RegionPeerCharging
	regionCount
)

var regionNames = [regionCount]string{
	"temperature_background",
	"temperature",
	"icon",
	"date",
	"time",
	"local_gauge",
	"peer_gauge",
	"local_marker",
	"peer_marker",
	"local_charging",
	"peer_charging",
}

func (r Region) String() string {
	if r < regionCount {
		return regionNames[r]
	}
	return "unknown"
}

func names(rs []Region) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.String()
	}
	return out
}

// AllRegions lists regions in paint order, back to front.
func AllRegions() []Region {
	rs := make([]Region, regionCount)
	for i := range rs {
		rs[i] = Region(i)
	}
	return rs
}

// fieldRegion maps a tracked field to the region that shows it.
var fieldRegion = map[appsync.Key]Region{
	appsync.PeerBatteryPercent: RegionPeerGauge,
	appsync.Temperature:        RegionTemperature,
	appsync.WeatherIconID:      RegionIcon,
	appsync.PeerChargingFlag:   RegionPeerCharging,
}

// Layout holds the bounds of every region for one screen size.
type Layout struct {
	Screen image.Rectangle
	rects  [regionCount]image.Rectangle
}

// NewLayout places the regions on a w x h screen. Round screens push the time
// and date rows down to stay inside the bezel.
func NewLayout(w, h int, round bool) Layout {
	timeY, dateY := 52, 102
	if round {
		timeY, dateY = 58, 108
	}

	l := Layout{Screen: image.Rect(0, 0, w, h)}
	l.rects[RegionLocalGauge] = rect(15, 10, w-20, 10)
	l.rects[RegionPeerGauge] = rect(15, 25, w-20, 10)
	l.rects[RegionTemperatureBackground] = rect(0, h-40, w, 50)
	l.rects[RegionTemperature] = rect(10, h-40, w-10, 50)
	l.rects[RegionTime] = rect(0, timeY, w, 50)
	l.rects[RegionDate] = rect(0, dateY, w, 30)
	l.rects[RegionLocalMarker] = rect(2, 10, 20, 10)
	l.rects[RegionPeerMarker] = rect(2, 25, 20, 10)
	l.rects[RegionLocalCharging] = rect(w-20, 10, 10, 10)
	l.rects[RegionPeerCharging] = rect(w-20, 25, 10, 10)
	l.rects[RegionIcon] = rect(w-50, h-45, 50, 50)

	// Regions hanging off the bottom edge are clipped to the screen.
	for i := range l.rects {
		l.rects[i] = l.rects[i].Intersect(l.Screen)
	}
	return l
}

// Rect returns the bounds of r.
func (l Layout) Rect(r Region) image.Rectangle {
	return l.rects[r]
}

func rect(x, y, w, h int) image.Rectangle {
	return image.Rect(x, y, x+w, y+h)
}
