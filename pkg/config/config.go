package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App    AppConfig
	DB     DBConfig
	Remote RemoteConfig
	Sync   SyncConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WYCENA_APP_ENV" required:"true"`
	Port         string `envconfig:"WYCENA_APP_PORT" default:"7332"`
	LogLevel     string `envconfig:"WYCENA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WYCENA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Driver string `envconfig:"WYCENA_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"WYCENA_DB_DSN"`
	Path   string `envconfig:"WYCENA_DB_PATH" default:"wycena.db"`

	MaxOpenConns    int           `envconfig:"WYCENA_DB_MAX_OPEN_CONNS" default:"1"`
	MaxIdleConns    int           `envconfig:"WYCENA_DB_MAX_IDLE_CONNS" default:"1"`
	ConnMaxLifetime time.Duration `envconfig:"WYCENA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WYCENA_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"WYCENA_AUTO_MIGRATE" default:"true"`
}

type RemoteConfig struct {
	BaseURL string        `envconfig:"WYCENA_REMOTE_BASE_URL" required:"true"`
	Token   string        `envconfig:"WYCENA_REMOTE_TOKEN"`
	Timeout time.Duration `envconfig:"WYCENA_REMOTE_TIMEOUT" default:"15s"`
}

type SyncConfig struct {
	// OwnerID is the signed-in account this device syncs for.
	OwnerID       string        `envconfig:"WYCENA_OWNER_ID" required:"true"`
	MaxAttempts   int           `envconfig:"WYCENA_SYNC_MAX_ATTEMPTS" default:"3"`
	ProbeInterval time.Duration `envconfig:"WYCENA_SYNC_PROBE_INTERVAL" default:"30s"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	switch strings.ToLower(db.Driver) {
	case DriverSQLite:
		if db.Path == "" {
			return fmt.Errorf("%s is required for the sqlite driver", EnvDBPath)
		}
		db.DSN = db.Path
		return nil
	case DriverPostgres:
		return fmt.Errorf("%s is required for the postgres driver", EnvDBDSN)
	default:
		return fmt.Errorf("unsupported db driver %q", db.Driver)
	}
}
