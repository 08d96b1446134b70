// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Redis, Kafka, Fuzzy, Retrieval, Resolver, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Fuzzy     FuzzyConfig     `yaml:"fuzzy"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// RedisConfig holds connection and TTL parameters for the optional shared
// response cache. The service degrades to in-process caching when Redis is
// unreachable.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds broker settings for query-analytics events.
type KafkaConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Brokers     []string `yaml:"brokers"`
	EventsTopic string   `yaml:"eventsTopic"`
}

// CorpusConfig points at the concept list and document corpus files produced
// by the upstream extraction pipeline.
type CorpusConfig struct {
	ConceptsPath  string `yaml:"conceptsPath"`
	DocumentsPath string `yaml:"documentsPath"`
}

// FuzzyConfig controls the approximate concept matcher.
type FuzzyConfig struct {
	JaccardThreshold     float64           `yaml:"jaccardThreshold"`
	NGramSize            int               `yaml:"ngramSize"`
	MinTermLength        int               `yaml:"minTermLength"`
	MaxLevenshteinLength int               `yaml:"maxLevenshteinLength"`
	Abbreviations        map[string]string `yaml:"abbreviations"`
	CacheCapacity        int               `yaml:"cacheCapacity"`
}

// RetrievalConfig controls the full-text engine's indexing and query defaults.
type RetrievalConfig struct {
	FieldBoosts   map[string]float64 `yaml:"fieldBoosts"`
	StopWords     []string           `yaml:"stopWords"`
	MinTermLength int                `yaml:"minTermLength"`
	CacheCapacity int                `yaml:"cacheCapacity"`
	DefaultLimit  int                `yaml:"defaultLimit"`
	MinScore      float64            `yaml:"minScore"`
	SnippetLength int                `yaml:"snippetLength"`
}

// ResolverConfig controls the layered resolver and the per-request query
// timeout applied by the HTTP layer.
type ResolverConfig struct {
	FuzzyThreshold float64       `yaml:"fuzzyThreshold"`
	QueryTimeout   time.Duration `yaml:"queryTimeout"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a validated Config populated with sensible defaults
// for any missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engines would refuse anyway, so a
// misconfigured process fails at startup rather than at first query.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Fuzzy.CacheCapacity <= 0 {
		return fmt.Errorf("fuzzy cache capacity must be positive, got %d", c.Fuzzy.CacheCapacity)
	}
	if c.Retrieval.CacheCapacity <= 0 {
		return fmt.Errorf("retrieval cache capacity must be positive, got %d", c.Retrieval.CacheCapacity)
	}
	if c.Fuzzy.NGramSize < 1 {
		return fmt.Errorf("n-gram size must be at least 1, got %d", c.Fuzzy.NGramSize)
	}
	if c.Fuzzy.JaccardThreshold < 0 || c.Fuzzy.JaccardThreshold > 1 {
		return fmt.Errorf("jaccard threshold %v outside [0,1]", c.Fuzzy.JaccardThreshold)
	}
	for key, expansion := range c.Fuzzy.Abbreviations {
		if strings.TrimSpace(key) == "" || strings.TrimSpace(expansion) == "" {
			return fmt.Errorf("malformed abbreviation entry %q -> %q", key, expansion)
		}
	}
	for field, boost := range c.Retrieval.FieldBoosts {
		if boost <= 0 {
			return fmt.Errorf("field boost for %q must be positive, got %v", field, boost)
		}
	}
	if c.Resolver.QueryTimeout <= 0 {
		return fmt.Errorf("query timeout must be positive, got %v", c.Resolver.QueryTimeout)
	}
	return nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Enabled:     false,
			Brokers:     []string{"localhost:9092"},
			EventsTopic: "query-events",
		},
		Fuzzy: FuzzyConfig{
			JaccardThreshold:     0.7,
			NGramSize:            2,
			MinTermLength:        3,
			MaxLevenshteinLength: 5,
			CacheCapacity:        5000,
		},
		Retrieval: RetrievalConfig{
			FieldBoosts: map[string]float64{
				"title":    2.0,
				"headings": 1.5,
				"body":     1.0,
			},
			MinTermLength: 2,
			CacheCapacity: 1000,
			DefaultLimit:  20,
			MinScore:      0.5,
			SnippetLength: 150,
		},
		Resolver: ResolverConfig{
			FuzzyThreshold: 0.7,
			QueryTimeout:   5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads CRE_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CRE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CRE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CRE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CRE_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("CRE_KAFKA_EVENTS_TOPIC"); v != "" {
		cfg.Kafka.EventsTopic = v
	}
	if v := os.Getenv("CRE_CORPUS_CONCEPTS_PATH"); v != "" {
		cfg.Corpus.ConceptsPath = v
	}
	if v := os.Getenv("CRE_CORPUS_DOCUMENTS_PATH"); v != "" {
		cfg.Corpus.DocumentsPath = v
	}
	if v := os.Getenv("CRE_FUZZY_THRESHOLD"); v != "" {
		if threshold, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Fuzzy.JaccardThreshold = threshold
		}
	}
	if v := os.Getenv("CRE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CRE_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("CRE_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
