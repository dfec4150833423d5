package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	NatsURL       string
	Stream        string
	Subject       string
	Durable       string
	TaskSubject   string
	PriceSubject  string
	MongoURI      string
	MongoDatabase string
	ShardID       uint32

	PriceFeedURL     string
	FeedMaxRetries   int
	FeedRetryBackoff time.Duration

	AnchorTokenID     string
	WrappedTokenID    string
	RecomputeInterval time.Duration
	LogLevel          string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SYNCER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("nats-url", "nats://localhost:4222")
	v.SetDefault("stream", "BLOCK_STATE")
	v.SetDefault("subject", "blocks.state.1")
	v.SetDefault("durable", "dex-state-syncer")
	v.SetDefault("task-subject", "dex.tasks.lptoken")
	v.SetDefault("price-subject", "dex.prices.updates")
	v.SetDefault("mongo-db", "dex")
	v.SetDefault("shard", uint32(1))
	v.SetDefault("feed-max-retries", 3)
	v.SetDefault("feed-retry-backoff", 500*time.Millisecond)
	v.SetDefault("recompute-interval", time.Duration(0))
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		NatsURL:           v.GetString("nats-url"),
		Stream:            v.GetString("stream"),
		Subject:           v.GetString("subject"),
		Durable:           v.GetString("durable"),
		TaskSubject:       v.GetString("task-subject"),
		PriceSubject:      v.GetString("price-subject"),
		MongoURI:          v.GetString("mongo-uri"),
		MongoDatabase:     v.GetString("mongo-db"),
		ShardID:           v.GetUint32("shard"),
		PriceFeedURL:      v.GetString("price-feed-url"),
		FeedMaxRetries:    v.GetInt("feed-max-retries"),
		FeedRetryBackoff:  v.GetDuration("feed-retry-backoff"),
		AnchorTokenID:     v.GetString("anchor-token"),
		WrappedTokenID:    v.GetString("wrapped-token"),
		RecomputeInterval: v.GetDuration("recompute-interval"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the fields every command needs.
func (c Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("mongo uri is required")
	}
	if c.AnchorTokenID == "" {
		return fmt.Errorf("anchor token identifier is required")
	}
	if c.WrappedTokenID == "" {
		return fmt.Errorf("wrapped token identifier is required")
	}
	return nil
}
