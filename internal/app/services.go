package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dokzlo13/watchface/internal/battery"
	"github.com/dokzlo13/watchface/internal/config"
	"github.com/dokzlo13/watchface/internal/db"
	"github.com/dokzlo13/watchface/internal/fonts"
	"github.com/dokzlo13/watchface/internal/icon"
	"github.com/dokzlo13/watchface/internal/ledger"
	"github.com/dokzlo13/watchface/internal/metrics"
	"github.com/dokzlo13/watchface/internal/persist"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB      *db.DB
	Store   *persist.SQLiteStore
	Ledger  *ledger.Ledger
	Metrics *metrics.Metrics

	// High-level services
	Face *FaceService
	HTTP *HTTPService

	group *errgroup.Group
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config, o options) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize database
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	s.Store = persist.NewSQLiteStore(database.DB)
	s.Ledger = ledger.New(database.DB)
	s.Metrics = metrics.New()

	loader, err := newIconLoader(cfg.Icons)
	if err != nil {
		s.Close()
		return nil, err
	}

	fontSet, err := fonts.Load()
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Face = NewFaceService(cfg, FaceDeps{
		Store:    s.Store,
		Recorder: s.Ledger,
		Metrics:  s.Metrics,
		Icons:    loader,
		Fonts:    fontSet,
		Battery:  newBatterySource(cfg.Battery),
		OnDraw:   o.onDraw,
	})

	s.HTTP = NewHTTPService(cfg, s.Face, s.Ledger, s.Metrics)

	return s, nil
}

// newIconLoader picks the icon resource service. A configured directory must
// hold every catalog icon; a missing file is fatal here rather than a blank
// icon later.
func newIconLoader(cfg config.IconsConfig) (icon.Loader, error) {
	if cfg.Dir == "" {
		log.Info().Msg("No icon directory configured, using built-in icons")
		return &icon.BuiltinLoader{}, nil
	}
	loader := icon.NewFSLoader(cfg.Dir, cfg.CacheSize)
	if err := loader.Verify(); err != nil {
		return nil, err
	}
	return loader, nil
}

// newBatterySource reads the host battery, or reports a full charging battery
// on hosts that have none.
func newBatterySource(cfg config.BatteryConfig) battery.Source {
	src, err := battery.NewSysfs(cfg.Path)
	if err != nil {
		log.Warn().Err(err).Msg("No host battery, local gauge will show full")
		return battery.Static{Percent: 100, Charging: true}
	}
	log.Info().Str("path", src.Dir()).Msg("Reading host battery")
	return src
}

// Start starts all services in the correct order.
// The onFatalError callback is called when a background service fails.
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	if n, err := s.Ledger.DeleteOlderThan(s.cfg.Sync.HistoryRetention.Duration()); err != nil {
		log.Warn().Err(err).Msg("Failed to prune sync history")
	} else if n > 0 {
		log.Info().Int64("deleted", n).Msg("Pruned sync history")
	}

	g, gctx := errgroup.WithContext(ctx)
	s.group = g

	if err := s.HTTP.Start(gctx, g); err != nil {
		return err
	}
	if err := s.Face.Start(gctx, g); err != nil {
		return err
	}

	go func() {
		if err := g.Wait(); err != nil {
			onFatalError(err)
		}
	}()

	return nil
}

// ClearState clears all persisted face values.
func (s *Services) ClearState() error {
	return s.Store.Clear()
}

// Stop waits for background services to finish, bounded by the shutdown
// timeout, and releases resources. On timeout the face loop may still be
// running, so the face keeps its icon until the process exits.
func (s *Services) Stop() error {
	if s.group != nil {
		done := make(chan error, 1)
		go func() { done <- s.group.Wait() }()

		select {
		case err := <-done:
			s.Close()
			return err
		case <-time.After(s.cfg.GetShutdownTimeout()):
			log.Warn().Msg("Services did not stop in time, skipping face teardown")
			if s.DB != nil {
				s.DB.Close()
			}
			return errors.New("timed out waiting for services to stop")
		}
	}
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Face != nil {
		s.Face.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
