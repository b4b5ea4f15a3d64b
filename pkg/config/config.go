package config

import (
	"fmt"
	"os"
	"time"

	"LearnCast/pkg/util"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Backend types of the activity store.
const (
	BackendClickHouse = "clickhouse"
	BackendPostgres   = "postgres"
	BackendHTTP       = "http"
	BackendMemory     = "memory"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RequestTimeout  time.Duration `yaml:"request_timeout" default:"5s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logging struct {
		Level     string `yaml:"level" default:"info"`
		Format    string `yaml:"format" default:"console"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled        bool          `yaml:"enabled"`
			Topic          string        `yaml:"topic" default:"learncast.logs"`
			FlushInterval  time.Duration `yaml:"flush_interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"logging"`
	Tracing struct {
		Enabled      bool              `yaml:"enabled"`
		ServiceName  string            `yaml:"service_name" default:"learncast"`
		Exporter     string            `yaml:"exporter" default:"stdout"` // stdout | otlp | none
		Endpoint     string            `yaml:"endpoint"`
		Insecure     bool              `yaml:"insecure"`
		Headers      map[string]string `yaml:"headers"`
		SampleRatio  float64           `yaml:"sample_ratio" default:"0.1"`
		BatchTimeout time.Duration     `yaml:"batch_timeout" default:"5s"`
	} `yaml:"tracing"`
	Backend struct {
		Type    string        `yaml:"type" default:"memory"`
		Timeout time.Duration `yaml:"timeout" default:"3s"`
		Seed    string        `yaml:"seed"` // JSON fixture for the memory backend
	} `yaml:"backend"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"learncast"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Postgres struct {
		DSN          string        `yaml:"dsn"`
		MaxOpenConns int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns int           `yaml:"max_idle_conns" default:"5"`
		ConnMaxLife  time.Duration `yaml:"conn_max_lifetime" default:"5m"`
		AutoMigrate  bool          `yaml:"auto_migrate"`
	} `yaml:"postgres"`
	ActivityAPI struct {
		BaseURL  string        `yaml:"base_url"`
		Token    string        `yaml:"token"`
		Timeout  time.Duration `yaml:"timeout" default:"3s"`
		Attempts int           `yaml:"attempts" default:"3"`
	} `yaml:"activity_api"`
	Kafka struct {
		Enabled          bool     `yaml:"enabled"`
		Brokers          []string `yaml:"brokers"`
		Topic            string   `yaml:"topic" default:"learncast.activity"`
		PredictionsTopic string   `yaml:"predictions_topic" default:"learncast.predictions"`
		RequiredAcks     int      `yaml:"required_acks" default:"-1"`
		Compression      string   `yaml:"compression" default:"gzip"`
		Producer         struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id" default:"learncast-ingest"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"10000"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Cache struct {
		Enabled bool          `yaml:"enabled" default:"true"`
		TTL     time.Duration `yaml:"ttl" default:"30s"`
		Prefix  string        `yaml:"prefix" default:"learncast:prediction:"`
	} `yaml:"cache"`
	RateLimit struct {
		Enabled bool    `yaml:"enabled" default:"true"`
		RPS     float64 `yaml:"rps" default:"10"`
		Burst   int     `yaml:"burst" default:"20"`
	} `yaml:"rate_limit"`
	Prediction PredictionConfig `yaml:"prediction"`
}

// PredictionConfig overrides model constants. Zero values keep built-in defaults.
type PredictionConfig struct {
	HalfLife     time.Duration `yaml:"half_life"`
	DampingDays  float64       `yaml:"damping_days"`
	StableBand   float64       `yaml:"stable_band"`
	NeutralPrior float64       `yaml:"neutral_prior"`
	Band         struct {
		Z            float64 `yaml:"z"`
		MinSigma     float64 `yaml:"min_sigma"`
		MinHalfWidth float64 `yaml:"min_half_width"`
		MaxHalfWidth float64 `yaml:"max_half_width"`
	} `yaml:"band"`
	Mastery struct {
		DefaultThreshold *float64           `yaml:"default_threshold"`
		Thresholds       map[string]float64 `yaml:"thresholds"`
	} `yaml:"mastery"`
	Completion struct {
		Prior     float64 `yaml:"prior"`
		Floor     float64 `yaml:"floor"`
		Steepness float64 `yaml:"steepness"`
		RiskFloor float64 `yaml:"risk_floor"`
	} `yaml:"completion"`
	Ranking struct {
		TopN                int                `yaml:"top_n"`
		UrgencyWeight       float64            `yaml:"urgency_weight"`
		LeverageWeight      float64            `yaml:"leverage_weight"`
		RecencyWeight       float64            `yaml:"recency_weight"`
		StalenessScaleDays  float64            `yaml:"staleness_scale_days"`
		ReinforcementMargin float64            `yaml:"reinforcement_margin"`
		HighLeverage        float64            `yaml:"high_leverage"`
		Importance          map[string]float64 `yaml:"importance"`
	} `yaml:"ranking"`
}

// Default returns a config populated only from default tags.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func decode(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the environment lookup.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitTrim(v)
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := getenv("ACTIVITY_API_URL"); v != "" {
		c.ActivityAPI.BaseURL = v
	}
	if v := getenv("ACTIVITY_API_TOKEN"); v != "" {
		c.ActivityAPI.Token = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Tracing.Enabled = true
		c.Tracing.Exporter = "otlp"
		c.Tracing.Endpoint = v
	}
	c.Server.Port = util.ParseIntDefault(getenv("HTTP_PORT"), c.Server.Port)
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Backend.Type {
	case BackendClickHouse:
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for backend %q", c.Backend.Type)
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for backend %q", c.Backend.Type)
		}
	case BackendHTTP:
		if c.ActivityAPI.BaseURL == "" {
			return fmt.Errorf("activity_api.base_url is required for backend %q", c.Backend.Type)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("backend.type must be one of clickhouse, postgres, http, memory; got '%s'", c.Backend.Type)
	}
	if (c.Kafka.Enabled || c.Kafka.Consumer.Enabled || c.Logging.Collector.Enabled) && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "stdout", "none":
		case "otlp":
			if c.Tracing.Endpoint == "" {
				return fmt.Errorf("tracing.endpoint is required for the otlp exporter")
			}
		default:
			return fmt.Errorf("tracing.exporter must be one of stdout, otlp, none; got '%s'", c.Tracing.Exporter)
		}
		if r := c.Tracing.SampleRatio; r < 0 || r > 1 {
			return fmt.Errorf("tracing.sample_ratio must be within [0,1]")
		}
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.RateLimit.Enabled && c.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate_limit.rps must be positive")
	}
	if r := c.Prediction.Completion.RiskFloor; r < 0 || r > 1 {
		return fmt.Errorf("prediction.completion.risk_floor must be within [0,1]")
	}
	for topic, v := range c.Prediction.Mastery.Thresholds {
		if v <= 0 || v > 1 {
			return fmt.Errorf("prediction.mastery.thresholds[%s] must be within (0,1]", topic)
		}
	}
	return nil
}
