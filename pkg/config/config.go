package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"SignalFlow/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Detection struct {
		Mode            string        `yaml:"mode"`
		PollInterval    time.Duration `yaml:"poll_interval"`
		MaxSnapshotAge  time.Duration `yaml:"max_snapshot_age"`
		BusBuffer       int           `yaml:"bus_buffer"`
		Retention       time.Duration `yaml:"retention"`
		JanitorInterval time.Duration `yaml:"janitor_interval"`
	} `yaml:"detection"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		MaxConnections   int           `yaml:"max_connections"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers        []string `yaml:"brokers"`
		SignalsTopic   string   `yaml:"signals_topic"`
		SnapshotsTopic string   `yaml:"snapshots_topic"`
		RequiredAcks   int      `yaml:"required_acks"`
		Compression    string   `yaml:"compression"`
		Consumer       struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Feed struct {
		Enabled        bool          `yaml:"enabled"`
		WebSocketURL   string        `yaml:"websocket_url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"feed"`
	Delivery struct {
		Workers          int              `yaml:"workers"`
		RetryLimit       int              `yaml:"retry_limit"`
		RetryDelay       time.Duration    `yaml:"retry_delay"`
		ThrottleCapacity float64          `yaml:"throttle_capacity"`
		ThrottleRefill   float64          `yaml:"throttle_refill_per_sec"`
		Notifiers        []NotifierConfig `yaml:"notifiers"`
	} `yaml:"delivery"`
}

// NotifierConfig declares one delivery consumer.
type NotifierConfig struct {
	ID      string            `yaml:"id"`
	Type    string            `yaml:"type"` // webhook or log
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.Server.Port = util.ParseIntDefault(os.Getenv("SERVER_PORT"), c.Server.Port)
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("FEED_WEBSOCKET_URL"); v != "" {
		c.Feed.WebSocketURL = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Detection.Mode {
	case "poll", "stream", "both":
	case "":
		return fmt.Errorf("detection.mode is required")
	default:
		return fmt.Errorf("detection.mode must be 'poll', 'stream' or 'both', got '%s'", c.Detection.Mode)
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if c.Detection.Mode != "poll" && !c.Feed.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("stream mode needs feed.enabled or kafka.brokers")
	}
	for _, n := range c.Delivery.Notifiers {
		if n.ID == "" {
			return fmt.Errorf("delivery.notifiers entries need an id")
		}
		switch n.Type {
		case "log":
		case "webhook":
			if n.URL == "" {
				return fmt.Errorf("webhook notifier %q needs a url", n.ID)
			}
		default:
			return fmt.Errorf("notifier %q type must be 'webhook' or 'log', got '%s'", n.ID, n.Type)
		}
	}
	return nil
}
