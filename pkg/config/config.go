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
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		Type         string        `yaml:"type"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
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
	Alpaca struct {
		APIKey    string        `yaml:"api_key"`
		APISecret string        `yaml:"api_secret"`
		BaseURL   string        `yaml:"base_url"`
		Feed      string        `yaml:"feed"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"alpaca"`
	Nasdaq struct {
		ListingURL      string        `yaml:"listing_url"`
		OtherListingURL string        `yaml:"other_listing_url"`
		CalendarURL     string        `yaml:"calendar_url"`
		UserAgent       string        `yaml:"user_agent"`
		RequestDelay    time.Duration `yaml:"request_delay"`
		Timeout         time.Duration `yaml:"timeout"`
	} `yaml:"nasdaq"`
	Cache struct {
		TTL   time.Duration `yaml:"ttl"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Study struct {
		Targets                []string `yaml:"targets"`
		DistanceThreshold      int      `yaml:"distance_threshold"`
		TopVolumeCount         int      `yaml:"top_volume_count"`
		RollingWindow          int      `yaml:"rolling_window"`
		VolumeAnomalyK         float64  `yaml:"volume_anomaly_k"`
		VolumeRatioThreshold   float64  `yaml:"volume_ratio_threshold"`
		MinCorrelationSample   int      `yaml:"min_correlation_sample"`
		TimeBucketWidthMinutes int      `yaml:"time_bucket_width_minutes"`
		SpikeCaptureFraction   float64  `yaml:"spike_capture_fraction"`
		LookbackDays           int      `yaml:"lookback_days"`
		IntradayLookbackDays   int      `yaml:"intraday_lookback_days"`
		Workers                int      `yaml:"workers"`
	} `yaml:"study"`
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
	c.applyDefaults()

	// Validate required fields
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

	// Override with environment variables
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		c.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		c.Alpaca.APISecret = v
	}
	if v := os.Getenv("TARGETS"); v != "" {
		c.Study.Targets = strings.Split(v, ",")
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	s := &c.Study
	if s.DistanceThreshold == 0 {
		s.DistanceThreshold = 1
	}
	if s.TopVolumeCount == 0 {
		s.TopVolumeCount = 100
	}
	if s.RollingWindow == 0 {
		s.RollingWindow = 20
	}
	if s.VolumeAnomalyK == 0 {
		s.VolumeAnomalyK = 2.0
	}
	if s.VolumeRatioThreshold == 0 {
		s.VolumeRatioThreshold = 3.0
	}
	if s.MinCorrelationSample == 0 {
		s.MinCorrelationSample = 3
	}
	if s.TimeBucketWidthMinutes == 0 {
		s.TimeBucketWidthMinutes = 30
	}
	if s.SpikeCaptureFraction == 0 {
		s.SpikeCaptureFraction = 0.5
	}
	if s.LookbackDays == 0 {
		s.LookbackDays = 365
	}
	if s.IntradayLookbackDays == 0 {
		s.IntradayLookbackDays = 7
	}
	if c.Nasdaq.RequestDelay == 0 {
		c.Nasdaq.RequestDelay = 200 * time.Millisecond
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	s := &c.Study
	if s.DistanceThreshold < 0 {
		return fmt.Errorf("study.distance_threshold must be >= 0, got %d", s.DistanceThreshold)
	}
	if s.RollingWindow < 2 {
		return fmt.Errorf("study.rolling_window must be >= 2, got %d", s.RollingWindow)
	}
	if s.VolumeAnomalyK <= 0 {
		return fmt.Errorf("study.volume_anomaly_k must be > 0, got %v", s.VolumeAnomalyK)
	}
	if s.VolumeRatioThreshold <= 1 {
		return fmt.Errorf("study.volume_ratio_threshold must be > 1, got %v", s.VolumeRatioThreshold)
	}
	if s.MinCorrelationSample < 2 {
		return fmt.Errorf("study.min_correlation_sample must be >= 2, got %d", s.MinCorrelationSample)
	}
	if s.TimeBucketWidthMinutes < 1 || s.TimeBucketWidthMinutes > 390 {
		return fmt.Errorf("study.time_bucket_width_minutes must be in [1,390], got %d", s.TimeBucketWidthMinutes)
	}
	if s.SpikeCaptureFraction <= 0 || s.SpikeCaptureFraction > 1 {
		return fmt.Errorf("study.spike_capture_fraction must be in (0,1], got %v", s.SpikeCaptureFraction)
	}
	return nil
}
