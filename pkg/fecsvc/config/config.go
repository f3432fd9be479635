package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config represents the fecd job-runner service configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Job     JobConfig     `mapstructure:"job"`
	Web     WebConfig     `mapstructure:"web"`
	Events  EventsConfig  `mapstructure:"events"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Store   StoreConfig   `mapstructure:"store"`
}

// ServerConfig holds service identification.
type ServerConfig struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

// JobConfig holds the default codec parameters applied to a job when the
// request omits them.
type JobConfig struct {
	K                 int      `mapstructure:"k"`
	Polynomials       []string `mapstructure:"polynomials"` // octal or decimal strings, e.g. "0171"
	Recursive         bool     `mapstructure:"recursive"`
	Tail              bool     `mapstructure:"tail"`
	MaxDecodeLenBits  int      `mapstructure:"max_decode_len_bits"`
	InterleaveColumns int      `mapstructure:"interleave_columns"`
}

// WebConfig holds web API/websocket configuration.
type WebConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	AuthRequired bool   `mapstructure:"auth_required"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
}

// EventsConfig holds the MQTT-style job-event publisher configuration.
type EventsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	QoS         byte   `mapstructure:"qos"`
	Retained    bool   `mapstructure:"retained"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled    bool             `mapstructure:"enabled"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig holds Prometheus metrics server configuration.
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// StoreConfig holds job-persistence configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"` // Path to SQLite database file
}

// Load loads configuration from file and environment variables.
func Load(configFile string) (*Config, error) {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("/etc/fecd")
	}

	viper.SetEnvPrefix("FEC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is OK, use defaults.
		} else if os.IsNotExist(err) {
			// File explicitly specified but doesn't exist - also OK.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.name", "fecd")
	viper.SetDefault("server.description", "Convolutional codec job runner")

	viper.SetDefault("job.k", 7)
	viper.SetDefault("job.polynomials", []string{"0171", "0133"})
	viper.SetDefault("job.recursive", false)
	viper.SetDefault("job.tail", true)
	viper.SetDefault("job.max_decode_len_bits", 4096)
	viper.SetDefault("job.interleave_columns", 0)

	viper.SetDefault("web.enabled", true)
	viper.SetDefault("web.host", "0.0.0.0")
	viper.SetDefault("web.port", 8080)
	viper.SetDefault("web.auth_required", false)

	viper.SetDefault("events.enabled", false)
	viper.SetDefault("events.topic_prefix", "fec/jobs")
	viper.SetDefault("events.client_id", "fecd")
	viper.SetDefault("events.qos", 1)
	viper.SetDefault("events.retained", false)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 7)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.prometheus.enabled", true)
	viper.SetDefault("metrics.prometheus.port", 9090)
	viper.SetDefault("metrics.prometheus.path", "/metrics")

	viper.SetDefault("store.path", "data/fecd.db")
}
