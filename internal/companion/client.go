package companion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/watchface/internal/appsync"
	"github.com/dokzlo13/watchface/internal/battery"
	"github.com/dokzlo13/watchface/internal/transport"
)

const writeWait = 10 * time.Second

// ErrMaxReconnectsExceeded is returned when the maximum number of reconnect attempts is exceeded.
var ErrMaxReconnectsExceeded = errors.New("max reconnects exceeded")

// ClientConfig contains connection and fetch settings.
type ClientConfig struct {
	URL              string
	MinBackoff       time.Duration // Minimum backoff between reconnects
	MaxBackoff       time.Duration // Maximum backoff between reconnects
	Multiplier       float64       // Backoff multiplier
	MaxReconnects    int           // Max reconnect attempts, 0 = infinite
	MinFetchInterval time.Duration // Requests closer than this reuse the last reading
}

// DefaultClientConfig returns sensible defaults for url.
func DefaultClientConfig(url string) ClientConfig {
	return ClientConfig{
		URL:              url,
		MinBackoff:       1 * time.Second,
		MaxBackoff:       2 * time.Minute,
		Multiplier:       2.0,
		MinFetchInterval: time.Minute,
	}
}

// Client keeps a connection to the face, answers weather requests and
// forwards battery changes.
type Client struct {
	cfg      ClientConfig
	provider Provider
	dialer   *websocket.Dialer
	limiter  *rate.Limiter

	mu          sync.Mutex
	conn        *websocket.Conn
	lastWeather *Weather
	lastBattery *battery.Reading
}

// NewClient creates a client. Nothing is dialed until Run.
func NewClient(cfg ClientConfig, provider Provider) *Client {
	limit := rate.Inf
	if cfg.MinFetchInterval > 0 {
		limit = rate.Every(cfg.MinFetchInterval)
	}
	return &Client{
		cfg:      cfg,
		provider: provider,
		dialer:   websocket.DefaultDialer,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Connected reports whether a face connection is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Run keeps the face connection up with exponential backoff.
// Returns ErrMaxReconnectsExceeded if max reconnects is exceeded.
func (c *Client) Run(ctx context.Context) error {
	retryCount := 0
	currentBackoff := c.cfg.MinBackoff

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		connected, err := c.connect(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			// Reset retry count and backoff after a successful connection
			retryCount = 0
			currentBackoff = c.cfg.MinBackoff
		}

		retryCount++
		if c.cfg.MaxReconnects > 0 && retryCount > c.cfg.MaxReconnects {
			log.Error().
				Int("max_reconnects", c.cfg.MaxReconnects).
				Msg("Face connection: max reconnects exceeded, terminating")
			return ErrMaxReconnectsExceeded
		}

		log.Warn().
			Err(err).
			Dur("backoff", currentBackoff).
			Int("retry", retryCount).
			Int("max_reconnects", c.cfg.MaxReconnects).
			Msg("Face disconnected, reconnecting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(currentBackoff):
		}

		// Calculate next backoff with multiplier, capped at max
		nextBackoff := time.Duration(float64(currentBackoff) * c.cfg.Multiplier)
		if nextBackoff > c.cfg.MaxBackoff {
			nextBackoff = c.cfg.MaxBackoff
		}
		currentBackoff = nextBackoff
	}
}

// connect runs one connection until it drops. connected reports whether the
// dial succeeded.
func (c *Client) connect(ctx context.Context) (connected bool, err error) {
	ws, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	c.mu.Lock()
	c.conn = ws
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = ws.Close()
	}()

	log.Info().Str("url", c.cfg.URL).Msg("Connected to face")

	stop := context.AfterFunc(ctx, func() { _ = ws.Close() })
	defer stop()

	// The face may have missed changes while we were away.
	c.mu.Lock()
	last := c.lastBattery
	c.mu.Unlock()
	if last != nil {
		c.SendBattery(*last)
	}
	c.answerWeather(ctx)

	for {
		var msg transport.Message
		if err := ws.ReadJSON(&msg); err != nil {
			return true, err
		}
		switch msg.Type {
		case transport.TypeRequestWeather:
			log.Debug().Str("id", msg.ID).Msg("Weather requested by face")
			c.answerWeather(ctx)
		default:
			log.Debug().Str("type", msg.Type).Msg("Ignoring face message")
		}
	}
}

// answerWeather fetches weather, or reuses the last reading when fetches are
// being throttled, and sends it to the face.
func (c *Client) answerWeather(ctx context.Context) {
	w, err := c.weather(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch weather")
		return
	}
	if err := c.send(transport.NewUpdate(w.values())); err != nil {
		log.Warn().Err(err).Msg("Failed to send weather")
	}
}

func (c *Client) weather(ctx context.Context) (Weather, error) {
	c.mu.Lock()
	cached := c.lastWeather
	c.mu.Unlock()

	if !c.limiter.Allow() && cached != nil {
		log.Debug().Msg("Weather fetch throttled, reusing last reading")
		return *cached, nil
	}

	w, err := c.provider.Weather(ctx)
	if err != nil {
		return Weather{}, err
	}
	c.mu.Lock()
	c.lastWeather = &w
	c.mu.Unlock()
	return w, nil
}

// SendBattery remembers r and sends it when connected.
func (c *Client) SendBattery(r battery.Reading) {
	c.mu.Lock()
	c.lastBattery = &r
	c.mu.Unlock()

	charging := int32(0)
	if r.Charging {
		charging = 1
	}
	msg := transport.NewUpdate(map[uint32]int32{
		uint32(appsync.PeerBatteryPercent): int32(r.Percent),
		uint32(appsync.PeerChargingFlag):   charging,
	})
	if err := c.send(msg); err != nil {
		log.Debug().Err(err).Msg("Battery not sent")
	}
}

var errNotConnected = errors.New("not connected to face")

func (c *Client) send(msg transport.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}
