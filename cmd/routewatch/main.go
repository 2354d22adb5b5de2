package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nxtbus/routewatch/config"
	"github.com/nxtbus/routewatch/delay"
	"github.com/nxtbus/routewatch/gtfsrt"
	"github.com/nxtbus/routewatch/internal"
	"github.com/nxtbus/routewatch/store"
	"github.com/nxtbus/routewatch/tracking"
	"github.com/nxtbus/routewatch/transit"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml")
	storePath := flag.String("store", "", "path to route/schedule data file (overrides config)")
	feedURL := flag.String("vehiclePositions", "", "GTFS-RT VehiclePositions URL (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := internal.NewLogger(cfg.Server.LogLevel)

	path := cfg.Store.Path
	if *storePath != "" {
		path = *storePath
	}
	st, err := store.LoadFile(path)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load reference data")
	}

	url := cfg.Feed.VehiclePositionsURL
	if *feedURL != "" {
		url = *feedURL
	}
	if url == "" {
		logger.Fatal().Msg("no vehicle positions feed configured")
	}

	tracker := tracking.New(cfg, st, delay.LogSink{Log: logger}, logger)
	client := gtfsrt.NewClient(time.Duration(cfg.Feed.TimeoutSec) * time.Second)
	feed := gtfsrt.NewFeed(url, client, time.Duration(cfg.Feed.StaleAfterSec)*time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("feed", url).Int("pollIntervalSec", cfg.Feed.PollIntervalSec).Msg("routewatch started")
	run(ctx, cfg, feed, st, tracker, logger)
	logger.Info().Msg("routewatch shut down")
}

func run(ctx context.Context, cfg config.AppConfig, feed *gtfsrt.Feed, st *store.Memory, tracker *tracking.FleetTracker, logger zerolog.Logger) {
	poll := time.NewTicker(time.Duration(cfg.Feed.PollIntervalSec) * time.Second)
	defer poll.Stop()
	delaySweep := time.NewTicker(time.Duration(cfg.Delay.CheckIntervalSec) * time.Second)
	defer delaySweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			refresh(ctx, feed, st, tracker, logger)
		case <-delaySweep.C:
			records := tracker.CheckAllTripsForDelays(ctx)
			if len(records) > 0 {
				logger.Info().Int("count", len(records)).Msg("delay sweep found delayed trips")
			}
		}
	}
}

func refresh(ctx context.Context, feed *gtfsrt.Feed, st *store.Memory, tracker *tracking.FleetTracker, logger zerolog.Logger) {
	fixes, err := feed.Refresh()
	if err != nil {
		logger.Error().Err(err).Msg("feed refresh failed")
		return
	}

	for _, fix := range fixes {
		trip, ok := st.UpdateGPS(fix.VehicleID, fix.Sample)
		if !ok {
			if fix.RouteID == "" {
				continue
			}
			tripID := fix.TripID
			if tripID == "" {
				tripID = fix.VehicleID
			}
			sample := fix.Sample
			trip = transit.Trip{
				TripID:  tripID,
				BusID:   fix.VehicleID,
				RouteID: fix.RouteID,
				Current: &sample,
			}
			if err := st.StartTrip(trip); err != nil {
				logger.Warn().Err(err).Str("vehicleId", fix.VehicleID).Msg("skipping invalid trip")
				continue
			}
		}
		tracker.ProcessTrip(ctx, trip)
	}
}
