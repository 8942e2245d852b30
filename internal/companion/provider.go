// Package companion is the phone side of the sync channel: it answers weather
// requests from the face and forwards its own battery state.
package companion

import (
	"context"
	"math"

	"github.com/dokzlo13/watchface/internal/appsync"
	"github.com/dokzlo13/watchface/internal/icon"
)

// Weather is a reading ready to be sent to the face.
type Weather struct {
	Temperature int32 // degrees Celsius
	Icon        int32 // catalog index, -1 when the code is unknown
}

// Provider fetches current weather.
type Provider interface {
	Weather(ctx context.Context) (Weather, error)
}

// NewWeather builds a reading from a Kelvin temperature and an icon code.
func NewWeather(kelvin float64, code string) Weather {
	return Weather{
		Temperature: roundHalfUp(kelvin - 273.15),
		Icon:        icon.IndexOf(code),
	}
}

// roundHalfUp rounds .5 toward positive infinity, so -2.5 becomes -2.
func roundHalfUp(f float64) int32 {
	return int32(math.Floor(f + 0.5))
}

// values returns the update payload for w.
func (w Weather) values() map[uint32]int32 {
	return map[uint32]int32{
		uint32(appsync.Temperature):   w.Temperature,
		uint32(appsync.WeatherIconID): w.Icon,
	}
}
