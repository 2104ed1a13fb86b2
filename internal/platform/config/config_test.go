package config

import (
	"testing"

	"github.com/spf13/viper"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()

	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal defaults: %v", err)
	}
	return &cfg
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := defaultConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	if cfg.Tiers.IntradayTTL != 30 {
		t.Errorf("intraday ttl default: expected 30, got %d", cfg.Tiers.IntradayTTL)
	}
	if cfg.Cache.KeyPrefix != "mktctx:" {
		t.Errorf("key prefix default: got %q", cfg.Cache.KeyPrefix)
	}
}

func TestValidateTTLMonotonicity(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Tiers.SwingTTL = 10 // below intraday's 30

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for swing ttl < intraday ttl")
	}

	cfg = defaultConfig(t)
	cfg.Tiers.LongTermTTL = 100 // below swing's 300
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for long-term ttl < swing ttl")
	}
}

func TestValidateAlerting(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Alerting.Enabled = true
	cfg.Alerting.SNSTopicARN = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for alerting without topic ARN")
	}

	cfg.Alerting.SNSTopicARN = "arn:aws:sns:ap-south-1:000000000000:context-quality"
	cfg.Alerting.ScoreFloor = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for score floor > 1")
	}
}

func TestValidateWatchlistRequired(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Upstream.Watchlist = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for empty watchlist")
	}
}
