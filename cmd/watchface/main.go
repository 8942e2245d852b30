package main

import (
	"flag"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sanity-io/litter"

	"github.com/dokzlo13/watchface/internal/app"
	"github.com/dokzlo13/watchface/internal/config"
	"github.com/dokzlo13/watchface/internal/logging"
	"github.com/dokzlo13/watchface/internal/preview"
)

func main() {
	// Support both -c and --config for config path
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "config.yaml", "Path to configuration file (shorthand)")
	resetState := flag.Bool("reset-state", false, "Clear persisted temperature and weather icon on startup")
	tui := flag.Bool("tui", false, "Show the face in the terminal")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	var pv *preview.Preview
	var logOut io.Writer = os.Stderr
	if *tui {
		pv = preview.New()
		logOut = pv
	}

	// Setup logging
	logging.Setup(logOut, cfg.Log)

	log.Info().Str("config", configPath).Msg("Starting watchface")
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		log.Debug().Msg("Resolved configuration:\n" + litter.Sdump(cfg))
	}

	var opts []app.Option
	if pv != nil {
		opts = append(opts, app.WithDrawHook(pv.OnDraw))
	}

	// Create application
	application, err := app.New(cfg, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	// Handle reset state flag
	if *resetState {
		log.Info().Msg("Clearing persisted face values (--reset-state)")
		if err := application.ClearState(); err != nil {
			log.Warn().Err(err).Msg("Failed to clear persisted values")
		}
	}

	// Create context that cancels on shutdown signal
	ctx := app.SignalContext()

	// Start the application
	if err := application.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	if pv != nil {
		// The preview owns the terminal; quitting it stops the face.
		if err := pv.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Preview failed")
		}
	} else {
		// Wait for shutdown
		application.Wait()
	}

	// Graceful shutdown
	if err := application.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}
