package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Supported storage drivers.
const (
	PostgresDriver = "postgres"
	BoltDriver     = "bolt"
	RedisDriver    = "redis"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit          string         `yaml:"git_commit" envconfig:"BOOKHUB_GIT_COMMIT"`
	GitTag             string         `yaml:"git_tag" envconfig:"BOOKHUB_GIT_TAG"`
	BuildTime          string         `yaml:"build_time" envconfig:"BOOKHUB_BUILD_TIME"`
	IsProduction       bool           `yaml:"is_production" envconfig:"BOOKHUB_IS_PRODUCTION"`
	LogLevel           zapcore.Level  `yaml:"log_level" envconfig:"BOOKHUB_LOG_LEVEL"`
	LogFolder          string         `yaml:"log_folder" envconfig:"BOOKHUB_LOG_FOLDER"`
	LogMaxSize         int            `yaml:"log_max_size" envconfig:"BOOKHUB_LOG_MAX_SIZE"` // in megabytes
	ProfilerEnable     bool           `yaml:"profiler_enable" envconfig:"BOOKHUB_PROFILER_ENABLE"`
	OpsEndpointsEnable bool           `yaml:"ops_endpoints_enable" envconfig:"BOOKHUB_OPS_ENDPOINTS_ENABLE"`
	Server             ServerConfig   `yaml:"server"`
	Storage            StorageConfig  `yaml:"storage"`
	Postgres           PostgresConfig `yaml:"postgres"`
	Redis              RedisConfig    `yaml:"redis"`
	BoltDB             BoltDBConfig   `yaml:"boltdb"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"BOOKHUB_SERVER_HOST"`
	Port            string        `yaml:"port" envconfig:"BOOKHUB_SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"BOOKHUB_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"BOOKHUB_SERVER_WRITE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"BOOKHUB_SERVER_REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"BOOKHUB_SERVER_SHUTDOWN_TIMEOUT"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"BOOKHUB_STORAGE_DRIVER"`
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn" envconfig:"BOOKHUB_POSTGRES_DSN" json:"-"`
	MaxConns        int32         `yaml:"max_conns" envconfig:"BOOKHUB_POSTGRES_MAX_CONNS"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" envconfig:"BOOKHUB_POSTGRES_CONNECT_TIMEOUT"`
	MigrateOnStart  bool          `yaml:"migrate" envconfig:"BOOKHUB_POSTGRES_MIGRATE"`
	MigrationsTable string        `yaml:"migrations_table" envconfig:"BOOKHUB_POSTGRES_MIGRATIONS_TABLE"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"BOOKHUB_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"BOOKHUB_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"BOOKHUB_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"BOOKHUB_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"BOOKHUB_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"BOOKHUB_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"BOOKHUB_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"BOOKHUB_REDIS_USERNAME"`
	Password      string        `yaml:"password" envconfig:"BOOKHUB_REDIS_PASSWORD" json:"-"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"BOOKHUB_REDIS_DATABASE_INDEX"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"BOOKHUB_BOLTDB_FILE_PATH"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"BOOKHUB_BOLTDB_TIMEOUT"`
	BucketName string        `yaml:"bucket_name" envconfig:"BOOKHUB_BOLTDB_BUCKET_NAME"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	if err = yaml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and overrides the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}
	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}
	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}
	if config.Server.RequestTimeout == 0 {
		config.Server.RequestTimeout = 30 * time.Second
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}
	if config.LogFolder == "" {
		config.LogFolder = "./logs"
	}
	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 10
	}

	if config.Storage.Driver == "" {
		config.Storage.Driver = BoltDriver
	}
	switch config.Storage.Driver {
	case PostgresDriver:
		if len(config.Postgres.DSN) == 0 {
			return errors.New("make sure to set a valid postgres dsn in configuration file")
		}
		if config.Postgres.MigrationsTable == "" {
			config.Postgres.MigrationsTable = "goose_db_version"
		}
	case RedisDriver:
		if len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0 {
			return errors.New("make sure to set valid redis address and port in configuration file")
		}
	case BoltDriver:
		if len(config.BoltDB.FilePath) == 0 {
			return errors.New("make sure to set a valid boltdb file path in configuration file")
		}
		if config.BoltDB.BucketName == "" {
			config.BoltDB.BucketName = "books"
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data. The env file is optional.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	config, err := LoadConfigFile("./config.yml")
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %w", err)
	}

	err = godotenv.Load("./config.env")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config, fmt.Errorf("failed to set environment configurations: %w", err)
	}

	// Use environment variables with prefix `BOOKHUB`.
	err = LoadConfigEnvs("BOOKHUB", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %w", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %w", err)
	}
	return config, nil
}
