// Package config loads SolFlow's configuration from the environment
// (optionally via a .env file in development) using viper, the same
// posture the teacher's configuration takes toward being read-only
// after startup.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is every recognized environment option.
type Config struct {
	GeyserURL      string
	XToken         string
	ProgramFilters []string // comma-separated PROGRAM_FILTERS, parsed

	EnablePipeline     bool
	UseUnifiedStreamer bool

	FlushInterval     time.Duration
	FullFlushInterval time.Duration
	FlushBatchSize    int

	MintPruneThresholdSecs int64

	ChannelBuffer                  int
	ChannelHighWatermarkPct        float64
	ChannelCriticalWatermarkPct    float64

	DBPath string

	OpsAuthToken string
	OpsListenAddr string

	RedisAddr string
}

// Load reads .env (if present, ignored if absent) then the process
// environment, applying the defaults from the specification.
func Load() (*Config, error) {
	_ = godotenv.Load() // development convenience; absent in production is not an error

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENABLE_PIPELINE", false)
	v.SetDefault("USE_UNIFIED_STREAMER", true)
	v.SetDefault("FLUSH_INTERVAL_MS", 5000)
	v.SetDefault("FULL_FLUSH_INTERVAL_MS", 60000)
	v.SetDefault("FLUSH_BATCH_SIZE", 500)
	v.SetDefault("MINT_PRUNE_THRESHOLD_SECS", 7200)
	v.SetDefault("CHANNEL_BUFFER", 10000)
	v.SetDefault("CHANNEL_HIGH_WATERMARK_PCT", 80)
	v.SetDefault("CHANNEL_CRITICAL_WATERMARK_PCT", 95)
	v.SetDefault("DB_PATH", "postgres://localhost:5432/solflow")
	v.SetDefault("OPS_LISTEN_ADDR", ":8090")
	v.SetDefault("REDIS_ADDR", "localhost:6379")

	geyserURL := v.GetString("GEYSER_URL")
	if geyserURL == "" {
		return nil, fmt.Errorf("config: GEYSER_URL is required")
	}

	rawFilters := v.GetString("PROGRAM_FILTERS")
	if strings.TrimSpace(rawFilters) == "" {
		return nil, fmt.Errorf("config: PROGRAM_FILTERS is required")
	}
	filters := strings.Split(rawFilters, ",")
	for i := range filters {
		filters[i] = strings.TrimSpace(filters[i])
	}

	return &Config{
		GeyserURL:                   geyserURL,
		XToken:                      v.GetString("X_TOKEN"),
		ProgramFilters:              filters,
		EnablePipeline:              v.GetBool("ENABLE_PIPELINE"),
		UseUnifiedStreamer:          v.GetBool("USE_UNIFIED_STREAMER"),
		FlushInterval:               time.Duration(v.GetInt("FLUSH_INTERVAL_MS")) * time.Millisecond,
		FullFlushInterval:           time.Duration(v.GetInt("FULL_FLUSH_INTERVAL_MS")) * time.Millisecond,
		FlushBatchSize:              v.GetInt("FLUSH_BATCH_SIZE"),
		MintPruneThresholdSecs:      v.GetInt64("MINT_PRUNE_THRESHOLD_SECS"),
		ChannelBuffer:               v.GetInt("CHANNEL_BUFFER"),
		ChannelHighWatermarkPct:     v.GetFloat64("CHANNEL_HIGH_WATERMARK_PCT") / 100.0,
		ChannelCriticalWatermarkPct: v.GetFloat64("CHANNEL_CRITICAL_WATERMARK_PCT") / 100.0,
		DBPath:                      v.GetString("DB_PATH"),
		OpsAuthToken:                v.GetString("OPS_AUTH_TOKEN"),
		OpsListenAddr:               v.GetString("OPS_LISTEN_ADDR"),
		RedisAddr:                   v.GetString("REDIS_ADDR"),
	}, nil
}
