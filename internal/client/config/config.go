// Package config handles configuration for the client component,
// including defaults, JSON overlay, and command-line flags.
package config

// Config holds runtime settings for the chatline client.
//
// Fields:
//   - ServerURL: websocket endpoint of the relay server.
//   - DataDir: directory for the local history cache and saved attachments.
type Config struct {
	ServerURL string
	DataDir   string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "ws://localhost:11111/ws"
	c.DataDir = "."
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
