package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Neo4j       Neo4jConfig       `mapstructure:"neo4j"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Recommender RecommenderConfig `mapstructure:"recommender"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Security    SecurityConfig    `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type Neo4jConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		ListUpdates string `mapstructure:"list_updates"`
	} `mapstructure:"topics"`
}

type AuthConfig struct {
	JWTSecret string          `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration   `mapstructure:"token_ttl"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Default int           `mapstructure:"default"`
	Window  time.Duration `mapstructure:"window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RecommenderConfig carries the scoring knobs for the three sections and the
// shared limit bounds.
type RecommenderConfig struct {
	DefaultLimit     int    `mapstructure:"default_limit"`
	MaxLimit         int    `mapstructure:"max_limit"`
	AlgorithmVersion string `mapstructure:"algorithm_version"`

	ContentBased ContentBasedConfig `mapstructure:"content_based"`
	Trending     TrendingConfig     `mapstructure:"trending_genres"`
	HiddenGems   HiddenGemsConfig   `mapstructure:"hidden_gems"`
}

type ContentBasedConfig struct {
	NeighborsPerItem    int     `mapstructure:"neighbors_per_item"`
	RecencyHalfLifeDays float64 `mapstructure:"recency_half_life_days"`
	MinSimilarity       float64 `mapstructure:"min_similarity"`
	MaxCompletedItems   int     `mapstructure:"max_completed_items"`
}

type TrendingConfig struct {
	TopGenres     int     `mapstructure:"top_genres"`
	CandidatePool int     `mapstructure:"candidate_pool"`
	StrictFloor   float64 `mapstructure:"strict_floor"`
	ModerateFloor float64 `mapstructure:"moderate_floor"`
	GenerousFloor float64 `mapstructure:"generous_floor"`
	FallbackFloor float64 `mapstructure:"fallback_floor"`
}

type HiddenGemsConfig struct {
	QualityFloor        float64 `mapstructure:"quality_floor"`
	DiscoveryPercentile float64 `mapstructure:"discovery_percentile"`
	QualityWeight       float64 `mapstructure:"quality_weight"`
	DiscoveryWeight     float64 `mapstructure:"discovery_weight"`
	CandidatePool       int     `mapstructure:"candidate_pool"`
}

// CacheConfig controls the two-tier response cache. BackendTimeout bounds
// every single backend call; one timeout triggers fallback, never a retry.
type CacheConfig struct {
	TTL              time.Duration `mapstructure:"ttl"`
	BackendTimeout   time.Duration `mapstructure:"backend_timeout"`
	LocalMaxEntries  int           `mapstructure:"local_max_entries"`
	LocalSweepPeriod time.Duration `mapstructure:"local_sweep_period"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.timeout", "5s")

	// Kafka defaults
	viper.SetDefault("kafka.topics.list_updates", "list-updates")

	// Auth defaults
	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("auth.rate_limit.default", 1000)
	viper.SetDefault("auth.rate_limit.window", "1h")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Recommender defaults
	viper.SetDefault("recommender.default_limit", 20)
	viper.SetDefault("recommender.max_limit", 50)
	viper.SetDefault("recommender.algorithm_version", "v2.1")

	viper.SetDefault("recommender.content_based.neighbors_per_item", 10)
	viper.SetDefault("recommender.content_based.recency_half_life_days", 180)
	viper.SetDefault("recommender.content_based.min_similarity", 0.1)
	viper.SetDefault("recommender.content_based.max_completed_items", 100)

	viper.SetDefault("recommender.trending_genres.top_genres", 3)
	viper.SetDefault("recommender.trending_genres.candidate_pool", 50)
	viper.SetDefault("recommender.trending_genres.strict_floor", 8.0)
	viper.SetDefault("recommender.trending_genres.moderate_floor", 7.0)
	viper.SetDefault("recommender.trending_genres.generous_floor", 6.0)
	viper.SetDefault("recommender.trending_genres.fallback_floor", 7.0)

	viper.SetDefault("recommender.hidden_gems.quality_floor", 7.5)
	viper.SetDefault("recommender.hidden_gems.discovery_percentile", 0.40)
	viper.SetDefault("recommender.hidden_gems.quality_weight", 0.6)
	viper.SetDefault("recommender.hidden_gems.discovery_weight", 0.4)
	viper.SetDefault("recommender.hidden_gems.candidate_pool", 200)

	// Cache defaults
	viper.SetDefault("cache.ttl", "30m")
	viper.SetDefault("cache.backend_timeout", "50ms")
	viper.SetDefault("cache.local_max_entries", 10000)
	viper.SetDefault("cache.local_sweep_period", "5m")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}
