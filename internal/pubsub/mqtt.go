// Package pubsub provides implementations of message publishers.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shibida/go-dtu/internal/config"
	"github.com/shibida/go-dtu/internal/domain"
	"github.com/shibida/go-dtu/internal/homeassistant"
	"github.com/shibida/go-dtu/internal/parser"
)

// NoopPublisher is a no-operation implementation of the MessagePublisher interface.
type NoopPublisher struct{}

// NewNoopPublisher creates a new no-operation publisher.
func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

// Connect is a no-op for the NoopPublisher.
func (p *NoopPublisher) Connect(_ context.Context) error {
	return nil
}

// Publish is a no-op for the NoopPublisher.
func (p *NoopPublisher) Publish(_ context.Context, _ string, _ interface{}) error {
	return nil
}

// PublishInverter is a no-op for the NoopPublisher.
func (p *NoopPublisher) PublishInverter(_ context.Context, _ *domain.Inverter) error {
	return nil
}

// Close is a no-op for the NoopPublisher.
func (p *NoopPublisher) Close() error {
	return nil
}

// MQTTPublisher implements the MessagePublisher interface for MQTT.
// Connection callbacks run on the client's goroutines, so shared state is
// guarded by mu.
type MQTTPublisher struct {
	config            *config.Config
	client            mqtt.Client
	logger            zerolog.Logger
	clientFactory     func(*config.Config) mqtt.Client // Factory function for creating MQTT clients (testable)
	mu                sync.RWMutex
	connected         bool
	haDiscovery       map[string]*homeassistant.AutoDiscovery
	discoveredSensors map[string]bool // Track which sensors have been discovered
	lastDiscoveryTime time.Time       // Track when we last sent discovery messages
	birthSubscribed   bool            // Track if we've subscribed to birth messages
}

// NewMQTTPublisher creates a new MQTT publisher.
func NewMQTTPublisher(cfg *config.Config) *MQTTPublisher {
	logger := log.With().Str("component", "mqtt").Logger()
	p := &MQTTPublisher{
		config:            cfg,
		haDiscovery:       make(map[string]*homeassistant.AutoDiscovery),
		discoveredSensors: make(map[string]bool),
		lastDiscoveryTime: time.Time{},
		birthSubscribed:   false,
		connected:         false,
		logger:            logger,
	}
	p.clientFactory = p.createMQTTClient
	return p
}

// NewMQTTPublisherWithClient creates a new MQTT publisher with a custom client (for testing).
func NewMQTTPublisherWithClient(cfg *config.Config, client mqtt.Client) *MQTTPublisher {
	logger := log.With().Str("component", "mqtt").Logger()
	return &MQTTPublisher{
		config:            cfg,
		client:            client,
		connected:         false,
		haDiscovery:       make(map[string]*homeassistant.AutoDiscovery),
		discoveredSensors: make(map[string]bool),
		lastDiscoveryTime: time.Time{},
		birthSubscribed:   false,
		logger:            logger,
	}
}

// createMQTTClient is the default factory function for creating MQTT clients.
func (p *MQTTPublisher) createMQTTClient(cfg *config.Config) mqtt.Client {
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port)).
		SetClientID(fmt.Sprintf("go-dtu-%d", time.Now().Unix())).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetWriteTimeout(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetCleanSession(false).
		SetWill(p.statusTopic(), "offline", 0, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	// Set credentials if provided
	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}

	return mqtt.NewClient(opts)
}

// statusTopic returns the collector availability topic.
func (p *MQTTPublisher) statusTopic() string {
	return fmt.Sprintf("%s/dtu/status", p.config.MQTT.Topic)
}

// onConnect is called when the MQTT connection is made or remade.
func (p *MQTTPublisher) onConnect(client mqtt.Client) {
	p.logger.Info().Msg("MQTT connection established")

	p.mu.Lock()
	p.connected = true
	// Clear discovered sensors on reconnect to trigger re-discovery
	p.discoveredSensors = make(map[string]bool)
	p.lastDiscoveryTime = time.Time{}
	p.mu.Unlock()

	client.Publish(p.statusTopic(), 0, true, "online")
}

// onConnectionLost is called when the MQTT connection drops.
func (p *MQTTPublisher) onConnectionLost(_ mqtt.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.birthSubscribed = false
	p.mu.Unlock()

	p.logger.Warn().Err(err).Msg("MQTT connection lost")
}

// isConnected reports the current connection state.
func (p *MQTTPublisher) isConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

// Connect establishes a connection to the MQTT broker.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	// If MQTT is disabled, do nothing
	if !p.config.MQTT.Enabled {
		return nil
	}

	// Create client if not already set (for testing)
	if p.client == nil {
		p.client = p.clientFactory(p.config)
	}

	// Connect with context for timeout
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	connToken := p.client.Connect()

	// Wait for connection or context timeout
	select {
	case <-connectCtx.Done():
		return fmt.Errorf("failed to connect to MQTT broker: timeout after 10 seconds")
	case <-connToken.Done():
		if connToken.Error() != nil {
			return fmt.Errorf("failed to connect to MQTT broker: %w", connToken.Error())
		}
	}

	p.mu.Lock()
	p.connected = true
	p.mu.Unlock()

	// Subscribe to birth message if enabled
	if p.config.MQTT.HomeAssistantAutoDiscovery.Enabled && p.config.MQTT.HomeAssistantAutoDiscovery.ListenToBirthMessage {
		p.subscribeToBirthMessage()
	}

	return nil
}

// subscribeToBirthMessage subscribes to Home Assistant birth messages.
func (p *MQTTPublisher) subscribeToBirthMessage() {
	p.mu.RLock()
	skip := p.birthSubscribed || !p.connected
	p.mu.RUnlock()
	if skip {
		return
	}

	birthTopic := fmt.Sprintf("%s/status", p.config.MQTT.HomeAssistantAutoDiscovery.DiscoveryPrefix)

	token := p.client.Subscribe(birthTopic, 0, p.handleBirthMessage)
	if token.Wait() && token.Error() != nil {
		p.logger.Warn().Err(token.Error()).Str("topic", birthTopic).Msg("Failed to subscribe to birth message")
		return
	}

	p.mu.Lock()
	p.birthSubscribed = true
	p.mu.Unlock()

	p.logger.Info().Str("topic", birthTopic).Msg("Subscribed to Home Assistant birth messages")
}

// handleBirthMessage handles Home Assistant birth messages.
func (p *MQTTPublisher) handleBirthMessage(client mqtt.Client, msg mqtt.Message) {
	payload := string(msg.Payload())

	p.logger.Debug().
		Str("topic", msg.Topic()).
		Str("payload", payload).
		Msg("Received Home Assistant birth message")

	// If Home Assistant comes online, clear discovery cache to trigger re-discovery
	if payload == "online" {
		p.logger.Info().Msg("Home Assistant came online, triggering auto-discovery refresh")

		p.mu.Lock()
		p.discoveredSensors = make(map[string]bool)
		p.lastDiscoveryTime = time.Time{}
		p.mu.Unlock()
	}
}

// shouldRediscover checks if we should perform periodic rediscovery.
func (p *MQTTPublisher) shouldRediscover() bool {
	if p.config.MQTT.HomeAssistantAutoDiscovery.RediscoveryInterval <= 0 {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.lastDiscoveryTime.IsZero() {
		return true
	}

	interval := time.Duration(p.config.MQTT.HomeAssistantAutoDiscovery.RediscoveryInterval) * time.Hour
	return time.Since(p.lastDiscoveryTime) >= interval
}

// Publish sends data as JSON to the specified topic.
func (p *MQTTPublisher) Publish(ctx context.Context, topic string, data interface{}) error {
	if !p.config.MQTT.Enabled || !p.isConnected() {
		return nil
	}

	// Convert data to JSON
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data to JSON: %w", err)
	}

	return p.publishRaw(ctx, topic, jsonData)
}

// PublishInverter publishes every decoded value of an inverter to its
// per-field topics: {topic}/{serial}/{channel type}/{channel}/{field}.
func (p *MQTTPublisher) PublishInverter(ctx context.Context, inv *domain.Inverter) error {
	if !p.config.MQTT.Enabled || !p.isConnected() {
		return nil
	}

	stats := inv.Statistics
	serial := inv.SerialString()

	if p.config.MQTT.HomeAssistantAutoDiscovery.Enabled {
		if err := p.publishHomeAssistantDiscovery(ctx, inv); err != nil {
			return fmt.Errorf("failed to publish Home Assistant discovery: %w", err)
		}
	}

	for _, channelType := range stats.GetChannelTypes() {
		for _, channel := range stats.GetChannelsByType(channelType) {
			for _, field := range parser.AllFields() {
				if !stats.HasChannelFieldValue(channelType, channel, field) {
					continue
				}

				value := stats.GetChannelFieldValue(channelType, channel, field)
				digits := stats.GetChannelFieldDigits(channelType, channel, field)
				payload := strconv.FormatFloat(value, 'f', digits, 64)

				topic := fmt.Sprintf("%s/%s/%s/%d/%s",
					p.config.MQTT.Topic, serial,
					strings.ToLower(channelType.String()), channel,
					field.TopicName())

				if err := p.publishRaw(ctx, topic, []byte(payload)); err != nil {
					return err
				}
			}
		}
	}

	// Per-inverter status topics
	if lastUpdate := stats.GetLastUpdate(); !lastUpdate.IsZero() {
		topic := fmt.Sprintf("%s/%s/status/last_update", p.config.MQTT.Topic, serial)
		if err := p.publishRaw(ctx, topic, []byte(strconv.FormatInt(lastUpdate.Unix(), 10))); err != nil {
			return err
		}
	}

	maxAge := time.Duration(p.config.Polling.OfflineAfterSeconds) * time.Second
	reachable := "0"
	if inv.IsReachable(time.Now(), maxAge) {
		reachable = "1"
	}
	topic := fmt.Sprintf("%s/%s/status/reachable", p.config.MQTT.Topic, serial)
	if err := p.publishRaw(ctx, topic, []byte(reachable)); err != nil {
		return err
	}

	return nil
}

// publishRaw publishes a payload with the configured retain flag.
func (p *MQTTPublisher) publishRaw(ctx context.Context, topic string, payload []byte) error {
	// Publish with context for timeout
	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	token := p.client.Publish(topic, 0, p.config.MQTT.Retain, payload)

	// Wait for publication or context timeout
	select {
	case <-publishCtx.Done():
		return fmt.Errorf("publish timeout after 5 seconds")
	case <-token.Done():
		if token.Error() != nil {
			return fmt.Errorf("failed to publish message: %w", token.Error())
		}
	}

	return nil
}

// publishHomeAssistantDiscovery publishes Home Assistant auto-discovery
// messages for an inverter.
func (p *MQTTPublisher) publishHomeAssistantDiscovery(_ context.Context, inv *domain.Inverter) error {
	serial := inv.SerialString()

	p.mu.Lock()
	ha, ok := p.haDiscovery[serial]
	if !ok {
		haConfig := homeassistant.Config{
			Enabled:            true,
			DiscoveryPrefix:    p.config.MQTT.HomeAssistantAutoDiscovery.DiscoveryPrefix,
			DeviceName:         inv.Name,
			DeviceManufacturer: p.config.MQTT.HomeAssistantAutoDiscovery.DeviceManufacturer,
			DeviceModel:        inv.Profile.Name,
			RetainDiscovery:    p.config.MQTT.HomeAssistantAutoDiscovery.RetainDiscovery,
		}

		var err error
		ha, err = homeassistant.New(haConfig, p.config.MQTT.Topic, serial)
		if err != nil {
			p.mu.Unlock()
			return fmt.Errorf("failed to setup Home Assistant discovery: %w", err)
		}
		p.haDiscovery[serial] = ha
	}
	p.mu.Unlock()

	// Check if we should rediscover sensors (periodic or after reconnection)
	shouldRediscover := p.shouldRediscover()

	// Generate discovery messages for all mapped sensors
	discoveryMessages := ha.GenerateDiscoveryMessages(inv.Statistics)

	// Publish each discovery message
	for topic, message := range discoveryMessages {
		p.mu.RLock()
		seen := p.discoveredSensors[topic]
		p.mu.RUnlock()

		// Publish if we haven't discovered this sensor or if rediscovery is needed
		if seen && !shouldRediscover {
			continue
		}

		messageJSON, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("failed to marshal discovery message: %w", err)
		}

		token := p.client.Publish(topic, 0, p.config.MQTT.HomeAssistantAutoDiscovery.RetainDiscovery, messageJSON)
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("failed to publish discovery message to %s: %w", topic, token.Error())
		}

		p.mu.Lock()
		p.discoveredSensors[topic] = true
		p.mu.Unlock()
	}

	// Update last discovery time if we performed rediscovery
	if shouldRediscover {
		p.mu.Lock()
		p.lastDiscoveryTime = time.Now()
		p.mu.Unlock()
	}

	// Publish availability message
	availTopic := ha.GetAvailabilityTopic()
	availMessage := ha.CreateAvailabilityMessage(true)
	token := p.client.Publish(availTopic, 0, p.config.MQTT.Retain, availMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish availability message: %w", token.Error())
	}

	return nil
}

// Close terminates the connection to the MQTT broker.
func (p *MQTTPublisher) Close() error {
	if p.client != nil && p.isConnected() {
		p.client.Publish(p.statusTopic(), 0, true, "offline")
		p.client.Disconnect(250) // Disconnect with 250ms timeout

		p.mu.Lock()
		p.connected = false
		p.mu.Unlock()
	}
	return nil
}
