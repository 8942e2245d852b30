package app

import (
	"context"
	"image"
	"net/http"

	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/dokzlo13/watchface/internal/appsync"
	"github.com/dokzlo13/watchface/internal/battery"
	"github.com/dokzlo13/watchface/internal/clock"
	"github.com/dokzlo13/watchface/internal/config"
	"github.com/dokzlo13/watchface/internal/event"
	"github.com/dokzlo13/watchface/internal/face"
	"github.com/dokzlo13/watchface/internal/fonts"
	"github.com/dokzlo13/watchface/internal/icon"
	"github.com/dokzlo13/watchface/internal/metrics"
	"github.com/dokzlo13/watchface/internal/persist"
	"github.com/dokzlo13/watchface/internal/transport"
)

// FaceDeps are the collaborators of FaceService.
type FaceDeps struct {
	Store    persist.Store
	Recorder appsync.Recorder
	Metrics  *metrics.Metrics
	Icons    icon.Loader
	Fonts    *fonts.Set
	Battery  battery.Source
	OnDraw   func(frame *image.RGBA)
}

// FaceService owns the face loop and everything that feeds it: the sync
// transport, the clock and the host battery poller.
type FaceService struct {
	cfg *config.Config

	Machine    *appsync.Machine
	Controller *face.Controller
	Loop       *face.Loop
	Transport  *transport.Server
	Clock      *clock.Clock
	Battery    *battery.Poller

	batterySrc battery.Source
	syncOpen   atomic.Bool
	ready      atomic.Bool
}

// NewFaceService wires the face. Nothing runs until Start.
func NewFaceService(cfg *config.Config, deps FaceDeps) *FaceService {
	s := &FaceService{cfg: cfg, batterySrc: deps.Battery}

	s.Machine = appsync.New(deps.Store, icon.NewHandle(deps.Icons),
		appsync.WithRecorder(deps.Recorder),
		appsync.WithMetrics(deps.Metrics),
	)

	s.Transport = transport.NewServer(s.publish)

	layout := face.NewLayout(cfg.Display.Width, cfg.Display.Height, cfg.Display.Round)
	s.Controller = face.NewController(
		face.NewState(s.Machine),
		face.NewRenderer(layout, deps.Fonts),
		s.Transport,
		face.Options{
			Clock24h:        cfg.Display.Clock24h,
			WeatherInterval: cfg.Sync.WeatherInterval,
			Metrics:         deps.Metrics,
			OnDraw:          deps.OnDraw,
		},
	)
	s.Loop = face.NewLoop(s.Controller, cfg.Sync.GetQueueSize(), deps.Metrics)

	s.Clock = clock.New(s.publish, cfg.Display.Timezone)
	s.Battery = battery.NewPoller(deps.Battery, cfg.Battery.PollInterval.Duration(), func(r battery.Reading) {
		s.publish(event.Battery{Percent: r.Percent, Charging: r.Charging})
	})

	return s
}

func (s *FaceService) publish(ev event.Event) {
	s.Loop.Publish(ev)
}

// Ready reports whether the first frame has been drawn.
func (s *FaceService) Ready() bool {
	return s.ready.Load()
}

// ServeSync hands companion connections to the transport once the face has
// opened the sync socket, and refuses them before that.
func (s *FaceService) ServeSync(w http.ResponseWriter, r *http.Request) {
	if !s.syncOpen.Load() {
		http.Error(w, "face not started", http.StatusServiceUnavailable)
		return
	}
	s.Transport.ServeHTTP(w, r)
}

// Start runs the loop, opens the sync socket, draws the first frame, asks the
// companion for weather and starts the tick and battery sources. Updates from
// companions that connect meanwhile are queued behind the first frame.
func (s *FaceService) Start(ctx context.Context, g *errgroup.Group) error {
	g.Go(func() error {
		s.Loop.Run(ctx)
		return nil
	})

	initial, err := s.batterySrc.Read()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read battery at start-up")
	} else {
		s.Battery.Seed(initial)
	}
	now := s.Clock.Now()

	err = s.Loop.DoSync(ctx, func(_ context.Context, c *face.Controller) error {
		s.syncOpen.Store(true)
		c.Start(now, event.Battery{Percent: initial.Percent, Charging: initial.Charging})
		return nil
	})
	if err != nil {
		return err
	}
	s.ready.Store(true)

	g.Go(func() error {
		return s.Clock.Run(ctx, now)
	})
	g.Go(func() error {
		return s.Battery.Run(ctx)
	})
	go func() {
		<-ctx.Done()
		s.ready.Store(false)
		s.Transport.Close()
		s.Loop.Close()
	}()

	last, _ := s.Battery.Last()
	log.Info().
		Int("width", s.cfg.Display.Width).
		Int("height", s.cfg.Display.Height).
		Bool("round", s.cfg.Display.Round).
		Str("timezone", s.Clock.Location().String()).
		Int("battery", last.Percent).
		Msg("Face started")
	return nil
}

// Close releases the icon. Call after the loop has stopped.
func (s *FaceService) Close() {
	s.Controller.Stop()
}
