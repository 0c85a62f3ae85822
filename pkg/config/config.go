package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Auth struct {
		APIToken string `yaml:"api_token"`
	} `yaml:"auth"`
	Generation struct {
		APIKey      string  `yaml:"api_key"`
		Model       string  `yaml:"model"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"generation"`
	Embedding struct {
		Provider   string `yaml:"provider"`
		APIKey     string `yaml:"api_key"`
		Model      string `yaml:"model"`
		Dimensions int    `yaml:"dimensions"`
	} `yaml:"embedding"`
	Knowledge struct {
		Dir string `yaml:"dir"`
	} `yaml:"knowledge"`
	Assets struct {
		CatalogPath string `yaml:"catalog_path"`
	} `yaml:"assets"`
	Sources struct {
		Timeout   time.Duration `yaml:"timeout"`
		RateLimit struct {
			Capacity     float64 `yaml:"capacity"`
			RefillPerSec float64 `yaml:"refill_per_sec"`
		} `yaml:"rate_limit"`
		Market struct {
			URL      string        `yaml:"url"`
			APIKey   string        `yaml:"api_key"`
			CacheTTL time.Duration `yaml:"cache_ttl"`
		} `yaml:"market"`
		Sentiment struct {
			URL string `yaml:"url"`
		} `yaml:"sentiment"`
		Macro struct {
			URL      string        `yaml:"url"`
			APIKey   string        `yaml:"api_key"`
			CacheTTL time.Duration `yaml:"cache_ttl"`
		} `yaml:"macro"`
		Chain struct {
			RPCURL string `yaml:"rpc_url"`
		} `yaml:"chain"`
	} `yaml:"sources"`
	Cache struct {
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Audit struct {
		Enabled    bool `yaml:"enabled"`
		ClickHouse struct {
			Host             string        `yaml:"host"`
			Port             int           `yaml:"port"`
			Database         string        `yaml:"database"`
			User             string        `yaml:"user"`
			Password         string        `yaml:"password"`
			UseHTTP          bool          `yaml:"use_http"`
			AsyncInsert      bool          `yaml:"async_insert"`
			WaitForAsync     bool          `yaml:"wait_for_async_insert"`
			DialTimeout      time.Duration `yaml:"dial_timeout"`
			ReadTimeout      time.Duration `yaml:"read_timeout"`
			WriteTimeout     time.Duration `yaml:"write_timeout"`
			MaxExecutionTime time.Duration `yaml:"max_execution_time"`
		} `yaml:"clickhouse"`
	} `yaml:"audit"`
	Kafka struct {
		Brokers           []string `yaml:"brokers"`
		SignalsTopic      string   `yaml:"signals_topic"`
		ObservationsTopic string   `yaml:"observations_topic"`
		RequiredAcks      int      `yaml:"required_acks"`
		Compression       string   `yaml:"compression"`
		Producer          struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
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

	if v := os.Getenv("GENAI_API_KEY"); v != "" {
		c.Generation.APIKey = v
		if c.Embedding.APIKey == "" {
			c.Embedding.APIKey = v
		}
	}
	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv("API_TOKEN"); v != "" {
		c.Auth.APIToken = v
	}
	if v := os.Getenv("MARKET_API_KEY"); v != "" {
		c.Sources.Market.APIKey = v
	}
	if v := os.Getenv("MACRO_API_KEY"); v != "" {
		c.Sources.Macro.APIKey = v
	}
	if v := os.Getenv("CHAIN_RPC_URL"); v != "" {
		c.Sources.Chain.RPCURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Auth.APIToken == "" {
		return fmt.Errorf("auth.api_token is required")
	}
	if c.Generation.Model == "" {
		return fmt.Errorf("generation.model is required")
	}
	if c.Knowledge.Dir == "" {
		return fmt.Errorf("knowledge.dir is required")
	}
	if c.Assets.CatalogPath == "" {
		return fmt.Errorf("assets.catalog_path is required")
	}
	switch c.Embedding.Provider {
	case "", "local", "genai":
	default:
		return fmt.Errorf("embedding.provider must be 'local' or 'genai', got '%s'", c.Embedding.Provider)
	}
	if c.Audit.Enabled && c.Audit.ClickHouse.Host == "" {
		return fmt.Errorf("audit.clickhouse.host is required when audit is enabled")
	}
	return nil
}

// KafkaEnabled reports whether the observation feed and signal publishing
// are configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
