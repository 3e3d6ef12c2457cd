// Package pvoutput provides the PVOutput.org monitoring service implementation.
package pvoutput

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shibida/go-dtu/internal/config"
	"github.com/shibida/go-dtu/internal/domain"
	"github.com/shibida/go-dtu/internal/parser"
)

// defaultStatusURL is the PVOutput live status endpoint.
const defaultStatusURL = "https://pvoutput.org/service/r2/addstatus.jsp"

// NoopClient is a no-operation implementation of the MonitoringService interface.
type NoopClient struct{}

// NewNoopClient creates a new no-operation PVOutput client.
func NewNoopClient() *NoopClient {
	return &NoopClient{}
}

// Send is a no-op for the NoopClient.
func (c *NoopClient) Send(_ context.Context, _ *domain.Fleet) error {
	return nil
}

// Connect is a no-op for the NoopClient.
func (c *NoopClient) Connect() error {
	return nil
}

// Close is a no-op for the NoopClient.
func (c *NoopClient) Close() error {
	return nil
}

// Client implements the MonitoringService interface for PVOutput.org.
type Client struct {
	config        *config.Config
	httpClient    *http.Client
	statusURL     string
	lastUpdateMap map[uint64]time.Time
	mutex         sync.Mutex
}

// NewClient creates a new PVOutput client.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		config:        cfg,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		statusURL:     defaultStatusURL,
		lastUpdateMap: make(map[uint64]time.Time),
	}
}

// Connect establishes a connection to the service.
// For PVOutput, this is a no-op as each request is independent.
func (c *Client) Connect() error {
	// No connection needed for PVOutput
	return nil
}

// Send uploads the current production values of every reporting inverter.
// Inverters that never delivered a record are skipped, as are those inside
// their rate-limit window. The first upload error is returned after all
// inverters have been tried.
func (c *Client) Send(ctx context.Context, fleet *domain.Fleet) error {
	// If PVOutput is disabled, do nothing
	if !c.config.PVOutput.Enabled {
		return nil
	}

	// Check required configuration
	if c.config.PVOutput.APIKey == "" || c.config.PVOutput.SystemID == "" {
		return fmt.Errorf("PVOutput API key and/or System ID not configured")
	}

	var firstErr error
	for _, inv := range fleet.GetAllInverters() {
		if inv.Statistics.GetLastUpdate().IsZero() {
			continue
		}
		if !c.canUpdate(inv.Serial) {
			continue
		}

		if err := c.sendInverter(ctx, inv); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("PVOutput upload for %s failed: %w", inv.SerialString(), err)
			}
			continue
		}
		c.updateTimestamp(inv.Serial)
	}

	return firstErr
}

// sendInverter posts one inverter's production values (v1 energy today,
// v2 power, v5 temperature, v6 grid voltage).
func (c *Client) sendInverter(ctx context.Context, inv *domain.Inverter) error {
	systemID := c.getSystemID(inv.SerialString())
	if systemID == "" {
		return fmt.Errorf("no system ID configured for inverter %s", inv.SerialString())
	}

	stats := inv.Statistics

	params := url.Values{}
	params.Set("key", c.config.PVOutput.APIKey)
	params.Set("sid", systemID)

	// Format date and time
	now := time.Now()
	params.Set("d", now.Format("20060102"))
	params.Set("t", now.Format("15:04"))

	// Daily energy is tracked in watt hours already.
	if !c.config.PVOutput.DisableEnergyToday {
		if energyWh := stats.GetChannelFieldValue(parser.ChannelTypeInverter, parser.CH0, parser.FieldYieldDay); energyWh > 0 {
			params.Set("v1", strconv.FormatFloat(energyWh, 'f', 0, 64))
		}
	}

	if powerW := stats.GetChannelFieldValue(parser.ChannelTypeAC, parser.CH0, parser.FieldPAC); powerW > 0 {
		params.Set("v2", strconv.FormatFloat(powerW, 'f', 0, 64))
	}

	if c.config.PVOutput.UseInverterTemp {
		if temp := stats.GetChannelFieldValue(parser.ChannelTypeInverter, parser.CH0, parser.FieldTemperature); temp != 0 {
			params.Set("v5", strconv.FormatFloat(temp, 'f', 1, 64))
		}
	}

	if voltage := stats.GetChannelFieldValue(parser.ChannelTypeAC, parser.CH0, parser.FieldUAC); voltage > 0 {
		params.Set("v6", strconv.FormatFloat(voltage, 'f', 1, 64))
	}

	return c.makeRequest(ctx, params)
}

// makeRequest makes an HTTP POST request to the PVOutput API.
func (c *Client) makeRequest(ctx context.Context, params url.Values) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.statusURL,
		strings.NewReader(params.Encode()),
	)
	if err != nil {
		return fmt.Errorf("failed to create PVOutput request: %w", err)
	}

	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Add("X-Rate-Limit", "1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("PVOutput request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("PVOutput returned status code %d", resp.StatusCode)
	}

	return nil
}

// Close terminates the connection to the service.
func (c *Client) Close() error {
	// No resources to clean up for HTTP client
	return nil
}

// canUpdate checks if an update is allowed based on rate limiting.
func (c *Client) canUpdate(serial uint64) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	lastUpdate, exists := c.lastUpdateMap[serial]
	if !exists {
		return true
	}

	// Check if enough time has passed since the last update
	updateInterval := time.Duration(c.config.PVOutput.UpdateLimitMinutes) * time.Minute
	return time.Since(lastUpdate) >= updateInterval
}

// updateTimestamp records when an update was made.
func (c *Client) updateTimestamp(serial uint64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.lastUpdateMap[serial] = time.Now()
}

// getSystemID returns the PVOutput system ID for an inverter.
func (c *Client) getSystemID(inverterSerial string) string {
	// If multiple inverters are not configured, use the default system ID
	if !c.config.PVOutput.MultipleInverters {
		return c.config.PVOutput.SystemID
	}

	// Look up the system ID in the inverter mappings
	for _, mapping := range c.config.PVOutput.InverterMappings {
		if mapping.InverterSerial == inverterSerial {
			return mapping.SystemID
		}
	}

	// If no mapping found but we have a default, use that
	if c.config.PVOutput.SystemID != "" {
		return c.config.PVOutput.SystemID
	}

	return ""
}
