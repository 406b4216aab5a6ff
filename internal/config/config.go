package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageNone     = "none"

	SyncNone   = "none"
	SyncServer = "server"
	SyncClient = "client"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	RunAddress       string        `env:"RUN_ADDRESS"`
	NodeID           string        `env:"NODE_ID"`
	Storage          string        `env:"STORAGE"`
	DataFile         string        `env:"DATA_FILE"`
	DatabaseDSN      string        `env:"DATABASE_URI"`
	MigrationsDir    string        `env:"MIGRATIONS_DIR"`
	SyncMode         string        `env:"SYNC_MODE"`
	SyncAddress      string        `env:"SYNC_ADDRESS"`
	DownlinkAddress  string        `env:"SYNC_DOWNLINK_ADDRESS"`
	HandshakeTimeout time.Duration `env:"HANDSHAKE_TIMEOUT"`
	SaveDebounce     time.Duration `env:"SAVE_DEBOUNCE"`
	Reconnect        bool          `env:"RECONNECT"`
	JWTSecret        string        `env:"JWT_SECRET"`
}

const envFile = ".env"

// LoadConfig читает флаги командной строки и переменные окружения. Непустая переменная
// окружения важнее флага. Если в рабочем каталоге есть .env, его значения дополняют окружение,
// не перезаписывая уже заданные переменные.
func LoadConfig() (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}
	return load(os.Args[1:])
}

func loadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func MustLoadConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return config
}

func load(args []string) (*Config, error) {
	var flagsConfig, envConfig Config

	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	if err := loadFlags(&flagsConfig, args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	conf := mergeConfig(&envConfig, &flagsConfig)
	if conf.NodeID == "" {
		conf.NodeID = "node-" + uuid.NewString()[:8]
	}
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func loadFlags(flagConfig *Config, args []string) error {
	fs := flag.NewFlagSet("festwallet", flag.ContinueOnError)
	fs.StringVar(&flagConfig.RunAddress, "a", "localhost:8080", "Run address in format host:port")
	fs.StringVar(&flagConfig.NodeID, "n", "", "Node id, generated when empty")
	fs.StringVar(&flagConfig.Storage, "s", StorageFile, "Storage: file, postgres or none")
	fs.StringVar(&flagConfig.DataFile, "f", "data/ledger.json", "Snapshot file for file storage")
	fs.StringVar(&flagConfig.DatabaseDSN, "d", "", "Database DSN")
	fs.StringVar(&flagConfig.MigrationsDir, "m", "internal/db/migrations", "Database migrations directory")
	fs.StringVar(&flagConfig.SyncMode, "sync", SyncNone, "Sync mode on start: none, server or client")
	fs.StringVar(&flagConfig.SyncAddress, "sync-addr", "", "Sync listen address (server) or server address (client)")
	fs.StringVar(&flagConfig.DownlinkAddress, "sync-downlink", "", "Listen address for child nodes when running as a sync client")
	fs.DurationVar(&flagConfig.HandshakeTimeout, "handshake", 5*time.Second, "Sync handshake timeout")       //nolint:mnd
	fs.DurationVar(&flagConfig.SaveDebounce, "debounce", 500*time.Millisecond, "Debounce window for saving") //nolint:mnd
	fs.BoolVar(&flagConfig.Reconnect, "reconnect", false, "Reconnect to the sync server after connection loss")
	fs.StringVar(&flagConfig.JWTSecret, "j", "", "Secret key for operator tokens")

	return fs.Parse(args) //nolint:wrapcheck
}

func mergeConfig(envConfig, flagsConfig *Config) *Config {
	return &Config{
		RunAddress:       defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress),
		NodeID:           defaultIfBlank(envConfig.NodeID, flagsConfig.NodeID),
		Storage:          defaultIfBlank(envConfig.Storage, flagsConfig.Storage),
		DataFile:         defaultIfBlank(envConfig.DataFile, flagsConfig.DataFile),
		DatabaseDSN:      defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN),
		MigrationsDir:    defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir),
		SyncMode:         defaultIfBlank(envConfig.SyncMode, flagsConfig.SyncMode),
		SyncAddress:      defaultIfBlank(envConfig.SyncAddress, flagsConfig.SyncAddress),
		DownlinkAddress:  defaultIfBlank(envConfig.DownlinkAddress, flagsConfig.DownlinkAddress),
		HandshakeTimeout: defaultIfZero(envConfig.HandshakeTimeout, flagsConfig.HandshakeTimeout),
		SaveDebounce:     defaultIfZero(envConfig.SaveDebounce, flagsConfig.SaveDebounce),
		Reconnect:        envConfig.Reconnect || flagsConfig.Reconnect,
		JWTSecret:        defaultIfBlank(envConfig.JWTSecret, flagsConfig.JWTSecret),
	}
}

func (c *Config) validate() error {
	switch c.Storage {
	case StorageFile:
		if c.DataFile == "" {
			return fmt.Errorf("%w: data file is not set", ErrInvalidConfig)
		}
	case StoragePostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("%w: database DSN is not set", ErrInvalidConfig)
		}
	case StorageNone:
	default:
		return fmt.Errorf("%w: unknown storage %q", ErrInvalidConfig, c.Storage)
	}

	switch c.SyncMode {
	case SyncNone:
	case SyncServer, SyncClient:
		if c.SyncAddress == "" {
			return fmt.Errorf("%w: sync address is required for sync mode %s", ErrInvalidConfig, c.SyncMode)
		}
	default:
		return fmt.Errorf("%w: unknown sync mode %q", ErrInvalidConfig, c.SyncMode)
	}
	if c.DownlinkAddress != "" && c.SyncMode != SyncClient {
		return fmt.Errorf("%w: sync downlink requires sync mode %s", ErrInvalidConfig, SyncClient)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("%w: jwt secret is not set", ErrInvalidConfig)
	}
	return nil
}

func defaultIfBlank(value string, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func defaultIfZero(value, defaultValue time.Duration) time.Duration {
	if value == 0 {
		return defaultValue
	}
	return value
}
