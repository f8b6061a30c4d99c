package opcflux

import (
	"opcflux/internal/adapters/opcua"
	"opcflux/internal/app/config"
	"opcflux/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls WAL/queue thresholds.
	Policy = ports.Policy
	// EndpointConfig holds the OPC UA connection details.
	EndpointConfig = opcua.Config
	// SubscriptionConfig describes one monitored node.
	SubscriptionConfig = ports.SubscriptionConfig
	// DiscoveryConfig sets the default root and depth for address space walks.
	DiscoveryConfig = config.DiscoveryConfig
	// TimescaleConfig configures the sink.
	TimescaleConfig = config.TimescaleConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// WALConfig configures on-disk durability.
	WALConfig = config.WALConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
