// Package main provides the entry point for the go-dtu collector.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shibida/go-dtu/internal/config"
	"github.com/shibida/go-dtu/internal/discovery"
	"github.com/shibida/go-dtu/internal/domain"
	"github.com/shibida/go-dtu/internal/parser"
	"github.com/shibida/go-dtu/internal/profile"
	"github.com/shibida/go-dtu/internal/pubsub"
	"github.com/shibida/go-dtu/internal/scheduler"
	"github.com/shibida/go-dtu/internal/service"
	pvoutput "github.com/shibida/go-dtu/internal/service/pvoutput"
)

// version can be overridden by build flags.
var version = "1.0.0"

func main() {
	code := run() // run() returns an int
	os.Exit(code) // os.Exit is called after deferred functions in run() execute
}

func run() int {
	// Parse command line flags
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Show version if requested
	if *showVersion {
		fmt.Printf("go-dtu collector %s\n", version)
		return 0
	}

	// Initialize context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		return 1
	}

	// Initialize logger with the configured log level
	initLogger(cfg.LogLevel)

	log.Info().Str("version", version).Msg("Starting go-dtu collector")
	cfg.Print()

	// Build the inverter fleet from configuration
	fleet, err := buildFleet(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build inverter fleet")
		return 1
	}
	if fleet.Count() == 0 {
		log.Warn().Msg("No inverters configured, statistics records will be dropped")
	}

	// Initialize MQTT publisher
	var publisher domain.MessagePublisher
	if cfg.MQTT.Enabled {
		mqttPublisher := pubsub.NewMQTTPublisher(cfg)
		if err := mqttPublisher.Connect(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to connect to MQTT broker, using noop publisher")
			publisher = pubsub.NewNoopPublisher()
		} else {
			publisher = mqttPublisher
			log.Info().Msg("MQTT publisher connected successfully")
		}
	} else {
		log.Info().Msg("MQTT disabled, using noop publisher")
		publisher = pubsub.NewNoopPublisher()
	}

	// Initialize PVOutput service
	var monitoringService domain.MonitoringService
	if cfg.PVOutput.Enabled {
		pvoutClient := pvoutput.NewClient(cfg)
		if err := pvoutClient.Connect(); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize PVOutput client")
			monitoringService = pvoutput.NewNoopClient()
		} else {
			monitoringService = pvoutClient
		}
	} else {
		// Use NoopClient when PVOutput is disabled
		monitoringService = pvoutput.NewNoopClient()
	}

	// Create and start the collector
	srv, err := service.NewDataCollectionServer(cfg, fleet, publisher, monitoringService)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create collector server")
		return 1
	}

	if err := srv.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to start collector server")
		return 1
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("Collector started successfully")

	// Start the maintenance scheduler
	sched := scheduler.NewScheduler(cfg, fleet, publisher)
	if cfg.Polling.Enabled {
		if err := sched.Start(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to start scheduler")
			return 1
		}
	}

	// Announce the collector over mDNS
	var advertiser *discovery.Advertiser
	if cfg.Discovery.Enabled {
		advertiser = discovery.NewAdvertiser(cfg)
		if err := advertiser.Start(); err != nil {
			log.Warn().Err(err).Msg("mDNS registration failed")
			advertiser = nil
		}
	}

	// Handle graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for shutdown signal
	sig := <-signalChan
	log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

	if advertiser != nil {
		advertiser.Shutdown()
	}
	if cfg.Polling.Enabled {
		if err := sched.Stop(); err != nil {
			log.Warn().Err(err).Msg("Error stopping scheduler")
		}
	}

	// Create context with timeout for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop the server
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping server")
		return 1
	}

	log.Info().Msg("Collector stopped")
	return 0
}

// buildFleet registers the configured inverters and applies their channel
// settings.
func buildFleet(cfg *config.Config) (*domain.Fleet, error) {
	fleet := domain.NewFleet()

	for _, invCfg := range cfg.Inverters {
		serial, err := profile.ParseSerial(invCfg.Serial)
		if err != nil {
			return nil, fmt.Errorf("inverter %q: %w", invCfg.Serial, err)
		}

		inv, err := fleet.RegisterInverter(serial, invCfg.Name)
		if err != nil {
			return nil, err
		}

		stats := inv.Statistics
		stats.SetYieldDayCorrection(cfg.YieldDayCorrection)

		for i, ch := range invCfg.Channels {
			channel := parser.ChannelNum(i)
			if ch.MaxPower > 0 {
				stats.SetStringMaxPower(channel, ch.MaxPower)
			}
			if ch.YieldTotalOffset != 0 {
				stats.SetChannelFieldOffset(parser.ChannelTypeDC, channel, parser.FieldYieldTotal, ch.YieldTotalOffset)
			}
			if ch.YieldDayOffset != 0 {
				stats.SetChannelFieldOffset(parser.ChannelTypeDC, channel, parser.FieldYieldDay, ch.YieldDayOffset)
			}
		}

		log.Info().
			Str("serial", inv.SerialString()).
			Str("name", inv.Name).
			Str("model", inv.Profile.Name).
			Msg("Registered inverter")
	}

	return fleet, nil
}

// initLogger configures the global zerolog logger.
func initLogger(level string) {
	// Set up pretty console logging for development
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

	// Parse the log level
	logLevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		fmt.Printf("Invalid log level '%s', defaulting to 'info'\n", level)
		logLevel = zerolog.InfoLevel
	}

	// Configure global logger
	zerolog.SetGlobalLevel(logLevel)
	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()
}
