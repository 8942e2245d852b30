// Package face drives the watch face: it owns the face state, handles clock,
// battery and sync events, and recomposes the frame when regions are dirty.
package face

import (
	"image"
	"image/png"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/watchface/internal/appsync"
	"github.com/dokzlo13/watchface/internal/event"
	"github.com/dokzlo13/watchface/internal/metrics"
)

// Time and date formats. The date matches "%a %b %e, %Y".
const (
	Layout24h  = "15:04"
	Layout12h  = "03:04"
	DateLayout = "Mon Jan _2, 2006"
)

// WeatherRequester sends the zero-payload weather request to the companion.
type WeatherRequester interface {
	RequestWeather() error
}

// Options configures a Controller.
type Options struct {
	Clock24h        bool
	WeatherInterval int // minutes; a request goes out when minute % interval == 0
	Metrics         *metrics.Metrics

	// Schedule queues an event behind the one being handled and reports
	// whether it was accepted. The loop sets it; when nil, redraws have to be
	// dispatched by the caller.
	Schedule func(event.Event) bool

	// OnDraw is called with the frame after every draw pass.
	OnDraw func(frame *image.RGBA)
}

// Controller is the single entry point for face events.
type Controller struct {
	state    *State
	renderer *Renderer
	weather  WeatherRequester
	opts     Options

	frame         *image.RGBA
	redrawPending bool
}

// NewController creates a controller. Nothing is drawn until Start.
func NewController(state *State, renderer *Renderer, weather WeatherRequester, opts Options) *Controller {
	if opts.WeatherInterval <= 0 {
		opts.WeatherInterval = 10
	}
	return &Controller{
		state:    state,
		renderer: renderer,
		weather:  weather,
		opts:     opts,
		frame:    image.NewRGBA(renderer.layout.Screen),
	}
}

// Start seeds every tracked field, fills in time, date and the local battery,
// draws the first frame and asks the companion for weather.
func (c *Controller) Start(now time.Time, battery event.Battery) {
	c.state.Sync.Seed()
	c.updateTime(now)
	c.updateDate(now)
	c.state.setLocalBattery(battery.Percent, battery.Charging)
	c.state.MarkDirty(AllRegions()...)
	c.redraw()
	c.requestWeather()
}

// Stop releases owned resources.
func (c *Controller) Stop() {
	c.state.Sync.Close()
}

// Dispatch handles one event.
func (c *Controller) Dispatch(ev event.Event) {
	switch ev := ev.(type) {
	case event.Tick:
		c.handleTick(ev)
	case event.SyncUpdate:
		if c.state.Sync.Apply(ev.Key, ev.Value) {
			c.state.MarkDirty(fieldRegion[appsync.Key(ev.Key)])
		}
	case event.Battery:
		c.state.setLocalBattery(ev.Percent, ev.Charging)
	case event.TransportError:
		c.state.Sync.TransportError(ev.Err)
	case event.Redraw:
		c.redrawPending = false
		c.redraw()
		return
	default:
		log.Warn().Type("event", ev).Msg("Unhandled face event")
		return
	}
	c.scheduleRedraw()
}

// State returns the face state.
func (c *Controller) State() *State {
	return c.state
}

// Frame returns the last composed frame. Callers must not keep it across
// events.
func (c *Controller) Frame() *image.RGBA {
	return c.frame
}

// EncodePNG writes the current frame as PNG.
func (c *Controller) EncodePNG(w io.Writer) error {
	return png.Encode(w, c.frame)
}

func (c *Controller) handleTick(t event.Tick) {
	if t.Changed.Has(event.MinuteUnit) {
		c.updateTime(t.Time)
	}
	if t.Changed.Has(event.DayUnit) {
		c.updateDate(t.Time)
	}
	if t.Time.Minute()%c.opts.WeatherInterval == 0 {
		c.requestWeather()
	}
}

func (c *Controller) updateTime(t time.Time) {
	layout := Layout12h
	if c.opts.Clock24h {
		layout = Layout24h
	}
	c.state.TimeText = t.Format(layout)
	c.state.MarkDirty(RegionTime)
}

func (c *Controller) updateDate(t time.Time) {
	c.state.DateText = t.Format(DateLayout)
	c.state.MarkDirty(RegionDate)
}

func (c *Controller) requestWeather() {
	if c.weather == nil {
		return
	}
	c.opts.Metrics.WeatherRequest()
	if err := c.weather.RequestWeather(); err != nil {
		log.Debug().Err(err).Msg("Weather request not sent")
	}
}

func (c *Controller) scheduleRedraw() {
	if c.redrawPending || len(c.state.Dirty()) == 0 || c.opts.Schedule == nil {
		return
	}
	// A rejected redraw stays unscheduled so the next event retries it.
	c.redrawPending = c.opts.Schedule(event.Redraw{})
}

func (c *Controller) redraw() {
	dirty := c.state.Dirty()
	if len(dirty) == 0 {
		return
	}
	c.renderer.Draw(c.frame, c.state)
	c.state.clearDirty()
	c.opts.Metrics.Redraw()

	log.Debug().Strs("regions", names(dirty)).Msg("Face redrawn")
	if c.opts.OnDraw != nil {
		c.opts.OnDraw(c.frame)
	}
}
