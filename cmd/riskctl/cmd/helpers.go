package cmd

import (
	"optrisk/config"
)

// loadConfig reads the config file given by --config, falling back to the
// standard defaults when the flag is unset.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(cfgFile)
}
