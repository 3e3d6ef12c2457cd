// Package homeassistant provides MQTT auto-discovery support for Home Assistant integration.
package homeassistant

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/shibida/go-dtu/internal/parser"
)

//go:embed layouts/homeassistant_sensors.yaml
var homeAssistantSensorsYAML []byte

// Config holds the Home Assistant auto-discovery configuration.
type Config struct {
	Enabled            bool
	DiscoveryPrefix    string
	DeviceName         string
	DeviceManufacturer string
	DeviceModel        string
	RetainDiscovery    bool
}

// SensorConfig represents a sensor configuration from the layouts YAML.
type SensorConfig struct {
	Name              string `yaml:"name"`
	DeviceClass       string `yaml:"device_class,omitempty"`
	UnitOfMeasurement string `yaml:"unit_of_measurement,omitempty"`
	StateClass        string `yaml:"state_class,omitempty"`
	Category          string `yaml:"category"`
	Icon              string `yaml:"icon,omitempty"`
}

// LayoutConfig represents the full layout configuration for Home Assistant sensors.
type LayoutConfig struct {
	Version     string                  `yaml:"version"`
	Description string                  `yaml:"description"`
	Sensors     map[string]SensorConfig `yaml:"sensors"`
}

// DiscoveryMessage represents a Home Assistant MQTT discovery message.
type DiscoveryMessage struct {
	Name                string     `json:"name"`
	UniqueID            string     `json:"unique_id"`
	StateTopic          string     `json:"state_topic"`
	DeviceClass         string     `json:"device_class,omitempty"`
	UnitOfMeasurement   string     `json:"unit_of_measurement,omitempty"`
	StateClass          string     `json:"state_class,omitempty"`
	Icon                string     `json:"icon,omitempty"`
	EntityCategory      string     `json:"entity_category,omitempty"`
	Device              DeviceInfo `json:"device"`
	AvailabilityTopic   string     `json:"availability_topic,omitempty"`
	PayloadAvailable    string     `json:"payload_available,omitempty"`
	PayloadNotAvailable string     `json:"payload_not_available,omitempty"`
}

// DeviceInfo represents device information for Home Assistant.
type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model,omitempty"`
	SwVersion    string   `json:"sw_version,omitempty"`
}

// AutoDiscovery handles Home Assistant MQTT auto-discovery for one inverter.
type AutoDiscovery struct {
	config       Config
	layoutConfig *LayoutConfig
	baseTopic    string
	serial       string
}

// New creates a new Home Assistant auto-discovery instance for the inverter
// identified by serial. State topics are built below baseTopic, matching the
// topics the MQTT publisher writes values to.
func New(config Config, baseTopic, serial string) (*AutoDiscovery, error) {
	ad := &AutoDiscovery{
		config:    config,
		baseTopic: baseTopic,
		serial:    serial,
	}

	// Load the layout configuration
	if err := ad.loadLayoutConfig(); err != nil {
		return nil, fmt.Errorf("failed to load layout config: %w", err)
	}

	return ad, nil
}

// loadLayoutConfig loads the Home Assistant sensor configuration from embedded YAML.
func (ad *AutoDiscovery) loadLayoutConfig() error {
	var config LayoutConfig
	if err := yaml.Unmarshal(homeAssistantSensorsYAML, &config); err != nil {
		return fmt.Errorf("failed to unmarshal Home Assistant sensors config: %w", err)
	}

	ad.layoutConfig = &config
	log.Debug().
		Str("version", config.Version).
		Int("sensor_count", len(config.Sensors)).
		Msg("Home Assistant layout configuration loaded from YAML")

	return nil
}

// GenerateDiscoveryMessages generates discovery messages for every mapped
// field the inverter currently exposes, keyed by discovery topic.
func (ad *AutoDiscovery) GenerateDiscoveryMessages(stats *parser.StatisticsParser) map[string]DiscoveryMessage {
	messages := make(map[string]DiscoveryMessage)

	for _, channelType := range stats.GetChannelTypes() {
		for _, channel := range stats.GetChannelsByType(channelType) {
			for _, field := range parser.AllFields() {
				if !stats.HasChannelFieldValue(channelType, channel, field) {
					continue
				}

				fieldName := field.TopicName()
				sensorConfig, exists := ad.layoutConfig.Sensors[fieldName]
				if !exists {
					continue
				}

				topic := ad.getDiscoveryTopic(channelType, channel, fieldName)
				messages[topic] = ad.createDiscoveryMessage(channelType, channel, fieldName, sensorConfig)
			}
		}
	}

	return messages
}

// createDiscoveryMessage creates a discovery message for one sensor.
func (ad *AutoDiscovery) createDiscoveryMessage(channelType parser.ChannelType, channel parser.ChannelNum, fieldName string, sensorConfig SensorConfig) DiscoveryMessage {
	typeSegment := strings.ToLower(channelType.String())

	uniqueID := fmt.Sprintf("dtu_%s_%s_%d_%s", ad.serial, typeSegment, channel, fieldName)
	stateTopic := fmt.Sprintf("%s/%s/%s/%d/%s", ad.baseTopic, ad.serial, typeSegment, channel, fieldName)

	// DC strings repeat per channel, so qualify their entity names
	name := sensorConfig.Name
	if channelType == parser.ChannelTypeDC {
		name = fmt.Sprintf("String %d %s", channel+1, sensorConfig.Name)
	}

	var entityCategory string
	if sensorConfig.Category == "diagnostic" {
		entityCategory = "diagnostic"
	}

	deviceInfo := DeviceInfo{
		Identifiers:  []string{fmt.Sprintf("dtu_%s", ad.serial)},
		Name:         ad.deviceName(),
		Manufacturer: ad.config.DeviceManufacturer,
		Model:        ad.deviceModel(),
		SwVersion:    "go-dtu",
	}

	return DiscoveryMessage{
		Name:                name,
		UniqueID:            uniqueID,
		StateTopic:          stateTopic,
		DeviceClass:         sensorConfig.DeviceClass,
		UnitOfMeasurement:   sensorConfig.UnitOfMeasurement,
		StateClass:          sensorConfig.StateClass,
		Icon:                sensorConfig.Icon,
		EntityCategory:      entityCategory,
		Device:              deviceInfo,
		AvailabilityTopic:   ad.GetAvailabilityTopic(),
		PayloadAvailable:    "online",
		PayloadNotAvailable: "offline",
	}
}

// deviceName returns the configured device name, falling back to the serial.
func (ad *AutoDiscovery) deviceName() string {
	if ad.config.DeviceName != "" {
		return ad.config.DeviceName
	}
	return fmt.Sprintf("Inverter %s", ad.serial)
}

// deviceModel returns the configured device model.
func (ad *AutoDiscovery) deviceModel() string {
	if ad.config.DeviceModel != "" {
		return ad.config.DeviceModel
	}
	return "Hoymiles Microinverter"
}

// getDiscoveryTopic generates the MQTT discovery topic for a sensor.
func (ad *AutoDiscovery) getDiscoveryTopic(channelType parser.ChannelType, channel parser.ChannelNum, fieldName string) string {
	// Home Assistant discovery topic format:
	// <discovery_prefix>/sensor/<node_id>/<object_id>/config
	nodeID := fmt.Sprintf("dtu_%s", strings.ToLower(ad.serial))
	objectID := fmt.Sprintf("%s_%s_%d_%s", nodeID, strings.ToLower(channelType.String()), channel, fieldName)

	return fmt.Sprintf("%s/sensor/%s/%s/config", ad.config.DiscoveryPrefix, nodeID, objectID)
}

// GetAvailabilityTopic returns the collector availability topic sensors bind to.
func (ad *AutoDiscovery) GetAvailabilityTopic() string {
	return fmt.Sprintf("%s/dtu/status", ad.baseTopic)
}

// CreateAvailabilityMessage creates the availability payload.
func (ad *AutoDiscovery) CreateAvailabilityMessage(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}

// CleanupDiscoveryMessages generates cleanup (empty) messages to remove an
// inverter's sensors from Home Assistant, keyed by discovery topic.
func (ad *AutoDiscovery) CleanupDiscoveryMessages(stats *parser.StatisticsParser) map[string]string {
	messages := make(map[string]string)

	for _, channelType := range stats.GetChannelTypes() {
		for _, channel := range stats.GetChannelsByType(channelType) {
			for _, field := range parser.AllFields() {
				if !stats.HasChannelFieldValue(channelType, channel, field) {
					continue
				}

				fieldName := field.TopicName()
				if _, exists := ad.layoutConfig.Sensors[fieldName]; !exists {
					continue
				}

				topic := ad.getDiscoveryTopic(channelType, channel, fieldName)
				messages[topic] = "" // Empty payload removes the entity
			}
		}
	}

	return messages
}
