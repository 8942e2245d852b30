package main

import (
	"context"
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sanity-io/litter"
	"golang.org/x/sync/errgroup"

	"github.com/dokzlo13/watchface/internal/app"
	"github.com/dokzlo13/watchface/internal/battery"
	"github.com/dokzlo13/watchface/internal/companion"
	"github.com/dokzlo13/watchface/internal/config"
	"github.com/dokzlo13/watchface/internal/logging"
)

func main() {
	// Support both -c and --config for config path
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "config.yaml", "Path to configuration file (shorthand)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Setup(os.Stderr, cfg.Log)

	cc := cfg.Companion
	log.Info().Str("face", cc.FaceURL).Str("provider", cc.Provider).Msg("Starting companion")
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		log.Debug().Msg("Resolved configuration:\n" + litter.Sdump(cc))
	}

	provider, batterySrc := buildProvider(cc)

	client := companion.NewClient(companion.ClientConfig{
		URL:              cc.FaceURL,
		MinBackoff:       cc.MinRetryBackoff.Duration(),
		MaxBackoff:       cc.MaxRetryBackoff.Duration(),
		Multiplier:       cc.RetryMultiplier,
		MaxReconnects:    cc.MaxReconnects,
		MinFetchInterval: cc.MinFetchInterval.Duration(),
	}, provider)

	g, ctx := errgroup.WithContext(app.SignalContext())
	g.Go(func() error {
		return client.Run(ctx)
	})

	if batterySrc != nil {
		poller := battery.NewPoller(batterySrc, cc.BatteryPollInterval.Duration(), client.SendBattery)
		poller.Poll()
		g.Go(func() error {
			return poller.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("Companion stopped")
	}
	log.Info().Msg("Companion stopped")
}

// buildProvider returns the weather provider and, when one is available, the
// companion battery source.
func buildProvider(cc config.CompanionConfig) (companion.Provider, battery.Source) {
	var src battery.Source
	if sysfs, err := battery.NewSysfs(cc.BatteryPath); err != nil {
		log.Warn().Err(err).Msg("No companion battery, not forwarding battery level")
	} else {
		src = sysfs
	}

	switch cc.Provider {
	case "lua":
		lp, err := companion.NewLuaProvider(cc.Script)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load companion script")
		}
		if lp.HasBattery() {
			src = lp
		}
		return lp, src
	case "openweathermap":
		owm := cc.OpenWeatherMap
		if owm.APIKey == "" {
			log.Fatal().Msg("companion.openweathermap.api_key is required")
		}
		return companion.NewOpenWeatherMap(companion.OpenWeatherMapConfig{
			BaseURL: owm.BaseURL,
			APIKey:  owm.APIKey,
			Lat:     owm.Lat,
			Lon:     owm.Lon,
			Timeout: owm.Timeout.Duration(),
		}), src
	default:
		log.Fatal().Str("provider", cc.Provider).Msg("Unknown weather provider")
		return nil, nil
	}
}
