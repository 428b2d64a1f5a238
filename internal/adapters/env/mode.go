package env

import (
	"os"

	"github.com/3-lines-studio/assetrev/internal/config"
)

// ConfigPath returns the config file named by flagValue, then
// ASSETREV_CONFIG, then the default file name.
func ConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv("ASSETREV_CONFIG"); p != "" {
		return p
	}
	return config.DefaultFile
}

// ColorDisabled honors the NO_COLOR convention.
func ColorDisabled() bool {
	_, set := os.LookupEnv("NO_COLOR")
	return set
}
