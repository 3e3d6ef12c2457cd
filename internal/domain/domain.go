// Package domain provides core domain models and interfaces for the go-dtu
// application.
package domain

import (
	"context"
	"time"

	"github.com/shibida/go-dtu/internal/parser"
	"github.com/shibida/go-dtu/internal/profile"
)

// Inverter is one physical microinverter: its identity, its hardware
// profile and the statistics parser holding its latest telemetry.
type Inverter struct {
	Serial  uint64
	Name    string
	Profile *profile.Profile

	// Statistics owns all decoded telemetry state for this device.
	Statistics *parser.StatisticsParser
}

// SerialString returns the printed 12-digit hex form of the serial.
func (inv *Inverter) SerialString() string {
	return profile.FormatSerial(inv.Serial)
}

// IsReachable reports whether a telemetry frame arrived within maxAge.
func (inv *Inverter) IsReachable(now time.Time, maxAge time.Duration) bool {
	last := inv.Statistics.GetLastUpdate()
	return !last.IsZero() && now.Sub(last) <= maxAge
}

// MessagePublisher defines the interface for publishing decoded telemetry.
type MessagePublisher interface {
	// Connect establishes a connection to the messaging system
	Connect(ctx context.Context) error

	// Publish sends data to the specified topic
	Publish(ctx context.Context, topic string, data interface{}) error

	// PublishInverter sends an inverter's current decoded values to their
	// per-field topics
	PublishInverter(ctx context.Context, inv *Inverter) error

	// Close terminates the connection to the messaging system
	Close() error
}

// MonitoringService defines the interface for external monitoring uploads.
type MonitoringService interface {
	// Send uploads the current fleet production values
	Send(ctx context.Context, fleet *Fleet) error

	// Connect establishes a connection to the service
	Connect() error

	// Close terminates the connection to the service
	Close() error
}

// PollRequester lets outer surfaces (HTTP API) ask the collector to poll
// one inverter out of cycle.
type PollRequester interface {
	RequestPoll(serial uint64) error
}
