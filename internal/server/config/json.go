package config

import (
	"encoding/json"
	"os"

	"github.com/akruglov/chatline/internal/flagx"
	"github.com/akruglov/chatline/internal/timex"
)

// JsonConfig is the intermediate DTO used only for reading JSON config
// files. Duration fields accept both strings ("24h") and integer
// nanoseconds; after unmarshalling, values are copied into the runtime
// Config.
type JsonConfig struct {
	Addr          *string         `json:"addr"`
	DatabaseDSN   *string         `json:"database_dsn"`
	TokenValidity *timex.Duration `json:"token_validity"`
	ReadLimit     *int64          `json:"read_limit"`
	SendBuffer    *int            `json:"send_buffer"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags, when present. Absent fields keep their current values.
// An unreadable or invalid file panics: a half-applied config is worse than
// no start.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.Addr != nil {
		config.Addr = *c.Addr
	}
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.TokenValidity != nil {
		config.TokenValidity = c.TokenValidity.Duration
	}
	if c.ReadLimit != nil {
		config.ReadLimit = *c.ReadLimit
	}
	if c.SendBuffer != nil {
		config.SendBuffer = *c.SendBuffer
	}
}
