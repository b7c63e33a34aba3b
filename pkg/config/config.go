package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"DeclCast/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required,oneof=development staging production test"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"300s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
		BodyLimit       string        `yaml:"body_limit" default:"64M"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Log struct {
		Level      string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error fatal"`
		Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output     string `yaml:"output" default:"stdout"`
		TimeFormat string `yaml:"time_format" default:"2006-01-02T15:04:05.000Z07:00"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Storage struct {
		Backend   string        `yaml:"backend" default:"file" validate:"oneof=file redis memory"`
		ModelsDir string        `yaml:"models_dir" default:"./models"`
		LockTTL   time.Duration `yaml:"lock_ttl" default:"30s"`
	} `yaml:"storage"`
	Evaluation struct {
		Backend  string `yaml:"backend" default:"csv" validate:"oneof=csv clickhouse"`
		DataDir  string `yaml:"data_dir" default:"./data"`
		TestSize int    `yaml:"test_size" default:"90" validate:"gte=1"`
	} `yaml:"evaluation"`
	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size" default:"10"`
		Prefix   string `yaml:"prefix" default:"declcast"`
	} `yaml:"redis"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"declcast"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled         bool          `yaml:"enabled"`
		Brokers         []string      `yaml:"brokers"`
		Topic           string        `yaml:"topic" default:"declcast.models"`
		RequiredAcks    int           `yaml:"required_acks" default:"-1"`
		Compression     string        `yaml:"compression" default:"snappy" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts     int           `yaml:"max_attempts" default:"3"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		AutoCreateTopic bool          `yaml:"auto_create_topic"`
	} `yaml:"kafka"`
	RateLimit struct {
		Enabled bool          `yaml:"enabled" default:"true"`
		RPS     float64       `yaml:"rps" default:"1" validate:"gt=0"`
		Burst   int           `yaml:"burst" default:"3" validate:"gte=1"`
		TTL     time.Duration `yaml:"ttl" default:"10m"`
	} `yaml:"ratelimit"`
	Models ModelsConfig `yaml:"models"`
}

// ModelsConfig carries forecasting hyper-parameters. Zero values fall back to
// the built-in defaults of the forecasting package.
type ModelsConfig struct {
	DefaultType    string `yaml:"default_type" default:"forest" validate:"oneof=arima ets forest xgboost rnn lstm"`
	DefaultHorizon int    `yaml:"default_horizon" default:"30" validate:"gte=1,lte=366"`
	ARMaxLag       int    `yaml:"ar_max_lag" default:"3"`
	ETSPeriod      int    `yaml:"ets_period" default:"7"`
	Forest         struct {
		Trees int    `yaml:"trees" default:"120"`
		Seed  uint64 `yaml:"seed" default:"120"`
	} `yaml:"forest"`
	Boosting struct {
		Iterations   int     `yaml:"iterations" default:"100"`
		LearningRate float64 `yaml:"learning_rate" default:"0.5"`
		MaxLeaves    int     `yaml:"max_leaves" default:"31"`
		MinLeaf      int     `yaml:"min_leaf" default:"20"`
		Seed         uint64  `yaml:"seed" default:"12"`
	} `yaml:"boosting"`
	Recurrent struct {
		InputSize    int     `yaml:"input_size" default:"14"`
		Hidden       int     `yaml:"hidden" default:"16"`
		Steps        int     `yaml:"steps" default:"120"`
		Batch        int     `yaml:"batch" default:"32"`
		LearningRate float64 `yaml:"learning_rate" default:"0.01"`
		Seed         uint64  `yaml:"seed" default:"1"`
	} `yaml:"recurrent"`
}

var validate = validator.New()

// Default returns a configuration populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file. Missing keys take their
// struct defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A missing file is tolerated so the binary runs on defaults plus env.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		c, err = Default()
	} else {
		c, err = Load(path)
	}
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DECLCAST_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("MODELS_DIR"); v != "" {
		c.Storage.ModelsDir = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Evaluation.DataDir = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("EVALUATION_BACKEND"); v != "" {
		c.Evaluation.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	c.Server.Port = util.ParseIntDefault(os.Getenv("PORT"), c.Server.Port)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Storage.Backend == "file" && c.Storage.ModelsDir == "" {
		return fmt.Errorf("storage.models_dir is required for the file backend")
	}
	if c.Evaluation.Backend == "csv" && c.Evaluation.DataDir == "" {
		return fmt.Errorf("evaluation.data_dir is required for the csv backend")
	}
	return nil
}
