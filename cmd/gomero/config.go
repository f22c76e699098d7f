package main

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/gred-clermont/gomero/blobvol"
	"github.com/gred-clermont/gomero/cache"
	"github.com/gred-clermont/gomero/gateway"
	"github.com/gred-clermont/gomero/gomero"
	"github.com/gred-clermont/gomero/proxy"
)

// tomlConfig is the full client configuration file.
type tomlConfig struct {
	Gateway gateway.Config      `toml:"gateway"`
	Log     gomero.LogConfig    `toml:"log"`
	Cache   cache.Config        `toml:"cache"`
	Kafka   gateway.KafkaConfig `toml:"kafka"`
	Proxy   proxy.Config        `toml:"proxy"`
	Blob    blobvol.Config      `toml:"blob"`
}

// loadConfig reads the TOML configuration file; an empty path returns the
// zero configuration.
func loadConfig(path string) (tomlConfig, error) {
	var config tomlConfig
	if path == "" {
		return config, nil
	}
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return config, fmt.Errorf("unable to read config file %q: %v", path, err)
	}
	return config, nil
}
