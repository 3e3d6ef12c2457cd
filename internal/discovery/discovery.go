// Package discovery announces the collector on the local network over mDNS
// so bridges can find it without static addressing.
package discovery

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/enbility/zeroconf/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shibida/go-dtu/internal/config"
)

const (
	// ServiceType is the DNS-SD service type bridges browse for.
	ServiceType = "_dtu._tcp"

	// HTTPServiceType announces the web API next to the collector port.
	HTTPServiceType = "_http._tcp"

	// Domain is the mDNS domain services are registered under.
	Domain = "local."

	defaultInstance = "go-dtu"
)

// Advertiser registers the collector listener and the web API with mDNS.
type Advertiser struct {
	config *config.Config
	logger zerolog.Logger

	mu      sync.Mutex
	servers []*zeroconf.Server
}

// NewAdvertiser creates a new mDNS advertiser.
func NewAdvertiser(cfg *config.Config) *Advertiser {
	return &Advertiser{
		config: cfg,
		logger: log.With().Str("component", "discovery").Logger(),
	}
}

// instanceName returns the service instance name to announce.
func (a *Advertiser) instanceName() string {
	if a.config.Discovery.Instance != "" {
		return a.config.Discovery.Instance
	}
	return defaultInstance
}

// txtRecords builds the TXT payload for the collector announcement.
func (a *Advertiser) txtRecords() []string {
	records := []string{"txtvers=1"}
	if a.config.API.Enabled {
		records = append(records, "api_port="+strconv.Itoa(a.config.API.Port))
	}
	return records
}

// Start registers the mDNS services on all multicast-capable interfaces.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.servers) > 0 {
		return fmt.Errorf("advertiser is already running")
	}

	instance := a.instanceName()

	server, err := zeroconf.Register(
		instance,
		ServiceType,
		Domain,
		a.config.Server.Port,
		a.txtRecords(),
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", ServiceType, err)
	}
	a.servers = append(a.servers, server)

	a.logger.Info().
		Str("instance", instance).
		Str("service", ServiceType).
		Int("port", a.config.Server.Port).
		Msg("mDNS service registered")

	// The web API rides along when it is enabled. Losing this announcement
	// is not worth failing startup over.
	if a.config.API.Enabled {
		httpServer, err := zeroconf.Register(
			instance,
			HTTPServiceType,
			Domain,
			a.config.API.Port,
			[]string{"txtvers=1"},
			nil,
		)
		if err != nil {
			a.logger.Warn().Err(err).Msg("Failed to register HTTP mDNS service")
		} else {
			a.servers = append(a.servers, httpServer)
			a.logger.Info().
				Str("instance", instance).
				Str("service", HTTPServiceType).
				Int("port", a.config.API.Port).
				Msg("mDNS service registered")
		}
	}

	return nil
}

// Shutdown withdraws all announcements. Safe to call when never started.
func (a *Advertiser) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, server := range a.servers {
		server.Shutdown()
	}
	a.servers = nil

	a.logger.Debug().Msg("mDNS advertiser stopped")
}
