package companion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// OpenWeatherMapConfig configures the OpenWeatherMap provider.
type OpenWeatherMapConfig struct {
	BaseURL string
	APIKey  string
	Lat     float64
	Lon     float64
	Timeout time.Duration
}

// OpenWeatherMap reads current conditions from the OpenWeatherMap HTTP API.
type OpenWeatherMap struct {
	cfg    OpenWeatherMapConfig
	client *http.Client
}

// NewOpenWeatherMap creates the provider.
func NewOpenWeatherMap(cfg OpenWeatherMapConfig) *OpenWeatherMap {
	return &OpenWeatherMap{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type owmResponse struct {
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Icon string `json:"icon"`
	} `json:"weather"`
}

func (o *OpenWeatherMap) requestURL() string {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(o.cfg.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(o.cfg.Lon, 'f', -1, 64))
	q.Set("APPID", o.cfg.APIKey)
	return o.cfg.BaseURL + "?" + q.Encode()
}

// Weather fetches current weather for the configured location.
func (o *OpenWeatherMap) Weather(ctx context.Context) (Weather, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.requestURL(), nil)
	if err != nil {
		return Weather{}, err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return Weather{}, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Weather{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body owmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Weather{}, fmt.Errorf("failed to decode weather: %w", err)
	}

	code := ""
	if len(body.Weather) > 0 {
		code = body.Weather[0].Icon
	}

	w := NewWeather(body.Main.Temp, code)
	log.Debug().
		Float64("kelvin", body.Main.Temp).
		Str("icon", code).
		Int32("temperature", w.Temperature).
		Msg("Weather fetched")
	return w, nil
}
