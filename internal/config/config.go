// Package config provides configuration management for the go-dtu application.
package config

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// General settings
	LogLevel string `mapstructure:"log_level"`
	TimeZone string `mapstructure:"timezone"`

	// Bridge listener settings
	Server struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`

	// HTTP API settings
	API struct {
		Enabled bool   `mapstructure:"enabled"`
		Host    string `mapstructure:"host"`
		Port    int    `mapstructure:"port"`
	} `mapstructure:"api"`

	// mDNS announcement settings
	Discovery struct {
		Enabled  bool   `mapstructure:"enabled"`
		Instance string `mapstructure:"instance"`
	} `mapstructure:"discovery"`

	// MQTT settings
	MQTT struct {
		Enabled  bool   `mapstructure:"enabled"`
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		Topic    string `mapstructure:"topic"`
		Retain   bool   `mapstructure:"retain"`

		// Home Assistant Auto-Discovery settings
		HomeAssistantAutoDiscovery struct {
			Enabled              bool   `mapstructure:"enabled"`
			DiscoveryPrefix      string `mapstructure:"discovery_prefix"`
			DeviceManufacturer   string `mapstructure:"device_manufacturer"`
			RetainDiscovery      bool   `mapstructure:"retain_discovery"`
			RediscoveryInterval  int    `mapstructure:"rediscovery_interval_hours"`
			ListenToBirthMessage bool   `mapstructure:"listen_to_birth_message"`
		} `mapstructure:"homeassistant_autodiscovery"`
	} `mapstructure:"mqtt"`

	// PVOutput settings
	PVOutput struct {
		Enabled            bool                    `mapstructure:"enabled"`
		APIKey             string                  `mapstructure:"api_key"`
		SystemID           string                  `mapstructure:"system_id"`
		UseInverterTemp    bool                    `mapstructure:"use_inverter_temp"`
		DisableEnergyToday bool                    `mapstructure:"disable_energy_today"`
		UpdateLimitMinutes int                     `mapstructure:"update_limit_minutes"`
		MultipleInverters  bool                    `mapstructure:"multiple_inverters"`
		InverterMappings   []InverterSystemMapping `mapstructure:"inverter_mappings"`
	} `mapstructure:"pvoutput"`

	// Poll scheduling and data expiry settings
	Polling struct {
		Enabled             bool `mapstructure:"enabled"`
		IntervalSeconds     int  `mapstructure:"interval_seconds"`
		OfflineAfterSeconds int  `mapstructure:"offline_after_seconds"`
	} `mapstructure:"polling"`

	// YieldDayCorrection keeps the daily yield of an inverter from dropping
	// before the day actually rolls over.
	YieldDayCorrection bool `mapstructure:"yield_day_correction"`

	// ZeroYieldAtMidnight zeroes the daily yield of inverters that are
	// offline at the day boundary and cannot report their own counter reset.
	ZeroYieldAtMidnight bool `mapstructure:"zero_yield_at_midnight"`

	// ZeroRuntimeWhenOffline zeroes instantaneous readings once an inverter
	// has been silent past the offline threshold.
	ZeroRuntimeWhenOffline bool `mapstructure:"zero_runtime_when_offline"`

	// Inverters lists the units the collector accepts data for.
	Inverters []InverterConfig `mapstructure:"inverters"`
}

// InverterSystemMapping maps inverter serials to PVOutput system IDs.
type InverterSystemMapping struct {
	InverterSerial string `mapstructure:"inverter_serial"`
	SystemID       string `mapstructure:"system_id"`
}

// InverterConfig describes one registered inverter.
type InverterConfig struct {
	Serial   string          `mapstructure:"serial"`
	Name     string          `mapstructure:"name"`
	Channels []ChannelConfig `mapstructure:"channels"`
}

// ChannelConfig carries per-string settings applied at registration.
type ChannelConfig struct {
	Name             string  `mapstructure:"name"`
	MaxPower         int     `mapstructure:"max_power"`
	YieldTotalOffset float64 `mapstructure:"yield_total_offset"`
	YieldDayOffset   float64 `mapstructure:"yield_day_offset"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{
		LogLevel: "info",
		TimeZone: "UTC",
	}

	// Default server settings
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 10081

	// Default API settings
	cfg.API.Enabled = true
	cfg.API.Host = "0.0.0.0"
	cfg.API.Port = 8080

	// Default discovery settings
	cfg.Discovery.Enabled = false
	cfg.Discovery.Instance = "go-dtu"

	// Default MQTT settings
	cfg.MQTT.Enabled = true
	cfg.MQTT.Host = "localhost"
	cfg.MQTT.Port = 1883
	cfg.MQTT.Topic = "solar/dtu"
	cfg.MQTT.Retain = false

	// Default Home Assistant Auto-Discovery settings
	cfg.MQTT.HomeAssistantAutoDiscovery.Enabled = false
	cfg.MQTT.HomeAssistantAutoDiscovery.DiscoveryPrefix = "homeassistant"
	cfg.MQTT.HomeAssistantAutoDiscovery.DeviceManufacturer = "Hoymiles"
	cfg.MQTT.HomeAssistantAutoDiscovery.RetainDiscovery = true
	cfg.MQTT.HomeAssistantAutoDiscovery.RediscoveryInterval = 24 // 24 hours
	cfg.MQTT.HomeAssistantAutoDiscovery.ListenToBirthMessage = true

	// Default PVOutput settings
	cfg.PVOutput.Enabled = false
	cfg.PVOutput.UpdateLimitMinutes = 5 // 5 minutes between updates

	// Default polling settings
	cfg.Polling.Enabled = true
	cfg.Polling.IntervalSeconds = 30
	cfg.Polling.OfflineAfterSeconds = 300

	cfg.YieldDayCorrection = false
	cfg.ZeroYieldAtMidnight = true
	cfg.ZeroRuntimeWhenOffline = true

	return cfg
}

// Load reads the configuration from a file and environment variables.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Set up Viper
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Override with specific config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Config file not found, use defaults
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fmt.Println("No configuration file found, using defaults")
		} else {
			// Other errors (like invalid YAML) should be returned
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	// Bind environment variables
	v.SetEnvPrefix("DTU")
	v.AutomaticEnv()

	// Unmarshal config
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return cfg, nil
}

// Print displays the current configuration.
func (c *Config) Print() {
	logger := log.With().Str("component", "config").Logger()
	logger.Info().Msg("go-dtu Collector Configuration:")
	logger.Info().Msg("-----------------------------")
	logger.Info().Str("log_level", c.LogLevel).Msg("Log Level")
	logger.Info().Str("timezone", c.TimeZone).Msg("Timezone")

	logger.Info().
		Str("host", c.Server.Host).
		Int("port", c.Server.Port).
		Msg("Bridge Listener")

	logger.Info().Bool("enabled", c.API.Enabled).Msg("API Enabled")
	if c.API.Enabled {
		logger.Info().
			Str("host", c.API.Host).
			Int("port", c.API.Port).
			Msg("API Server")
	}

	logger.Info().Bool("enabled", c.Discovery.Enabled).Msg("Discovery Enabled")
	if c.Discovery.Enabled {
		logger.Info().
			Str("instance", c.Discovery.Instance).
			Msg("Discovery Configuration")
	}

	logger.Info().Bool("enabled", c.MQTT.Enabled).Msg("MQTT Enabled")
	if c.MQTT.Enabled {
		logger.Info().
			Str("host", c.MQTT.Host).
			Int("port", c.MQTT.Port).
			Str("topic", c.MQTT.Topic).
			Bool("retain", c.MQTT.Retain).
			Bool("homeassistant_autodiscovery_enabled", c.MQTT.HomeAssistantAutoDiscovery.Enabled).
			Msg("MQTT Configuration")
	}

	logger.Info().Bool("enabled", c.PVOutput.Enabled).Msg("PVOutput Enabled")
	if c.PVOutput.Enabled {
		logger.Info().
			Str("system_id", c.PVOutput.SystemID).
			Int("update_limit_minutes", c.PVOutput.UpdateLimitMinutes).
			Msg("PVOutput Configuration")
	}

	logger.Info().Bool("enabled", c.Polling.Enabled).Msg("Polling Enabled")
	if c.Polling.Enabled {
		logger.Info().
			Int("interval_seconds", c.Polling.IntervalSeconds).
			Int("offline_after_seconds", c.Polling.OfflineAfterSeconds).
			Msg("Polling Configuration")
	}

	logger.Info().
		Bool("yield_day_correction", c.YieldDayCorrection).
		Bool("zero_yield_at_midnight", c.ZeroYieldAtMidnight).
		Bool("zero_runtime_when_offline", c.ZeroRuntimeWhenOffline).
		Msg("Value Handling")
	logger.Info().Int("inverters", len(c.Inverters)).Msg("Configured Inverters")

	logger.Info().Msg("-----------------------------")
}
