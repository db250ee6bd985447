package cli

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/stackmint/keysmith/internal/config"
	"github.com/stackmint/keysmith/internal/store"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag,
// KEYSMITH_DATA_DIR env var, or ~/.keysmith as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("KEYSMITH_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.keysmith"
}

// loadConfig builds the effective configuration: file defaults layered under
// any keys viper picked up from the config file, environment, or flags.
func loadConfig() config.Config {
	cfg := config.Default()
	if cfgFile != "" {
		if loaded, err := config.Load(cfgFile); err == nil {
			cfg = loaded
		}
	}

	if v := viper.GetString("server.host"); v != "" {
		cfg.Server.Host = v
	}
	if v := viper.GetInt("server.port"); v != 0 {
		cfg.Server.Port = v
	}
	if v := viper.GetString("store.driver"); v != "" {
		cfg.Store.Driver = v
	}
	if v := viper.GetString("store.dsn"); v != "" {
		cfg.Store.DSN = v
	}
	if v := viper.GetString("auth.jwt_secret"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := viper.GetString("logging.level"); v != "" {
		cfg.Logging.Level = v
	}
	if cfg.Store.DataDir == "" {
		cfg.Store.DataDir = resolveDataDir()
	}
	return cfg
}

// openStore opens the persistence backend selected by cfg. SQLite lives in
// the data directory; mysql and postgres connect through the configured DSN.
func openStore(cfg config.Config) (*store.Store, error) {
	if cfg.Store.Driver == "" || cfg.Store.Driver == store.DriverSQLite {
		return store.OpenDefault(cfg.Store.DataDir)
	}
	return store.Open(cfg.Store.Driver, cfg.Store.DSN)
}

// jwtSecret returns the configured signing secret, falling back to a
// development default so a bare `keysmith serve` still works.
func jwtSecret(cfg config.Config) string {
	if cfg.Auth.JWTSecret != "" {
		return cfg.Auth.JWTSecret
	}
	return "keysmith-dev-secret-change-me"
}

// versionString returns a display version string.
func versionString() string {
	if appVersion == "" || appVersion == "dev" {
		return "dev"
	}
	if strings.HasPrefix(appVersion, "v") {
		return appVersion
	}
	return "v" + appVersion
}
