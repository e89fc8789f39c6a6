// Package cli wires configuration, adapters, and the polling loop into the
// citizenfeed command.
package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/citizen-feed-service/internal/adapter/citizen"
	httpadapter "github.com/couchcryptid/citizen-feed-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/citizen-feed-service/internal/adapter/kafka"
	"github.com/couchcryptid/citizen-feed-service/internal/config"
	"github.com/couchcryptid/citizen-feed-service/internal/domain"
	"github.com/couchcryptid/citizen-feed-service/internal/feed"
	"github.com/couchcryptid/citizen-feed-service/internal/observability"
)

var (
	flagLat      float64
	flagLon      float64
	flagRadius   float64
	flagInterval int
	flagLimit    int
	flagAddr     string
)

// RootCmd polls the Citizen incident feed and serves the reconciled snapshot.
var RootCmd = &cobra.Command{
	Use:   "citizenfeed",
	Short: "Poll Citizen incidents for a region and serve them as GeoJSON",
	Long: `citizenfeed polls the Citizen trending-incident API on a fixed interval,
classifies each incident by age into a recency tier, reconciles consecutive
fetches into create/update/remove changesets, and serves the current snapshot
at /incidents.geojson. Changesets can optionally be published to Kafka.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	flags := RootCmd.Flags()
	flags.Float64Var(&flagLat, "lat", 0, "center latitude (overrides CITIZEN_LAT)")
	flags.Float64Var(&flagLon, "lon", 0, "center longitude (overrides CITIZEN_LON)")
	flags.Float64Var(&flagRadius, "radius", 0, "radius in km (overrides CITIZEN_RADIUS_KM)")
	flags.IntVar(&flagInterval, "interval", 0, "polling interval in seconds (overrides CITIZEN_POLL_INTERVAL)")
	flags.IntVar(&flagLimit, "limit", 0, "maximum incident count (overrides CITIZEN_MAX_INCIDENTS)")
	flags.StringVar(&flagAddr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	center := domain.Geo{Lat: cfg.CenterLat, Lon: cfg.CenterLon}

	client := citizen.NewClient(cfg.FetchTimeout, logger)
	cache := feed.NewCache(client, cfg.CacheTTL, clock, metrics, logger)
	reconciler := feed.NewReconciler()

	var emitter feed.Emitter = feed.NopEmitter{}
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, metrics, logger)
		emitter = publisher
		logger.Info("change-event publishing enabled", "topic", cfg.KafkaChangeTopic)
	} else {
		logger.Info("change-event publishing disabled")
	}

	poller := feed.NewPoller(cache, reconciler, emitter, clock, logger, metrics, feed.Options{
		Center:   center,
		RadiusKm: cfg.RadiusKm,
		Limit:    cfg.MaxIncidents,
		Interval: cfg.PollInterval,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, poller, poller, center, cfg.RadiusKm, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := poller.Run(ctx); err != nil {
			logger.Error("poller error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("lat") && flags.Changed("lon") {
		cfg.SetCenter(flagLat, flagLon)
	} else if flags.Changed("lat") || flags.Changed("lon") {
		// Half a center is worse than none; Validate reports it as unset.
		latVal := cfg.CenterLat
		lonVal := cfg.CenterLon
		if flags.Changed("lat") {
			latVal = flagLat
		}
		if flags.Changed("lon") {
			lonVal = flagLon
		}
		cfg.CenterLat = latVal
		cfg.CenterLon = lonVal
	}
	if flags.Changed("radius") {
		cfg.RadiusKm = flagRadius
	}
	if flags.Changed("interval") {
		cfg.PollInterval = time.Duration(flagInterval) * time.Second
	}
	if flags.Changed("limit") {
		cfg.MaxIncidents = flagLimit
	}
	if flags.Changed("addr") {
		cfg.HTTPAddr = flagAddr
	}
}
