package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_DEBUG_JSON dumps every reconciled feed as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized step headers
	Colours  bool   `envconfig:"E2E_COLOURS" default:"true"`
	LogLevel string `envconfig:"E2E_LOG_LEVEL" default:"ERROR"`
	// E2E_STORAGE_BACKEND selects the repositories behind the store: badger or sqlite
	StorageBackend string `envconfig:"E2E_STORAGE_BACKEND" default:"badger"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
