package config

import (
	"encoding/json"
	"os"

	"github.com/akruglov/chatline/internal/flagx"
)

// JsonConfig is the intermediate DTO used only for reading JSON config files.
type JsonConfig struct {
	ServerURL *string `json:"server_url"`
	DataDir   *string `json:"data_dir"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags, when present. Absent fields keep their current values.
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

	if c.ServerURL != nil {
		config.ServerURL = *c.ServerURL
	}
	if c.DataDir != nil {
		config.DataDir = *c.DataDir
	}
}
