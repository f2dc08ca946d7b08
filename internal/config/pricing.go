package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PricingConfig tunes the quantity learning loop and public rate
// limits. It lives in pricing.yml so operators can adjust it without a
// redeploy.
type PricingConfig struct {
	Tuning    TuningConfig    `mapstructure:"tuning"`
	Learning  LearningConfig  `mapstructure:"learning"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TuningConfig bounds the per-rule adjustment factors computed from
// historical quantity edits.
type TuningConfig struct {
	MinFactor        float64 `mapstructure:"minFactor"`
	MaxFactor        float64 `mapstructure:"maxFactor"`
	WindowSize       int     `mapstructure:"windowSize"`
	HighConfidenceN  int     `mapstructure:"highConfidenceN"`
	MediumConfidence int     `mapstructure:"mediumConfidenceN"`
}

// LearningConfig drives the per-pattern confidence model applied at
// quote generation time.
type LearningConfig struct {
	InitialConfidence float64 `mapstructure:"initialConfidence"`
	ConfidenceStep    float64 `mapstructure:"confidenceStep"`
	MaxConfidence     float64 `mapstructure:"maxConfidence"`
	ApplyThreshold    float64 `mapstructure:"applyThreshold"`
}

// RateLimitConfig caps anonymous traffic on the public quote routes.
type RateLimitConfig struct {
	PublicPerMinute int `mapstructure:"publicPerMinute"`
	UpdatePerMinute int `mapstructure:"updatePerMinute"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		Tuning: TuningConfig{
			MinFactor:        0.8,
			MaxFactor:        1.2,
			WindowSize:       50,
			HighConfidenceN:  10,
			MediumConfidence: 5,
		},
		Learning: LearningConfig{
			InitialConfidence: 0.7,
			ConfidenceStep:    0.05,
			MaxConfidence:     0.95,
			ApplyThreshold:    0.6,
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute: 30,
			UpdatePerMinute: 10,
		},
	}
}

type PricingConfigHolder struct {
	current atomic.Value // holds PricingConfig
}

func NewPricingConfigHolder() (*PricingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/offertgenerator/config") // Volume-mounted config
	v.AddConfigPath("/etc/offertgenerator")            // System config
	v.AddConfigPath(".")                               // Current directory (dev mode)

	v.SetEnvPrefix("OFFERT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPricingConfig()
	v.SetDefault("pricing.tuning", defaults.Tuning)
	v.SetDefault("pricing.learning", defaults.Learning)
	v.SetDefault("pricing.rateLimit", defaults.RateLimit)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg PricingConfig
	if err := v.UnmarshalKey("pricing", &cfg); err != nil {
		return nil, err
	}
	if err := validatePricingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingConfig
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Printf("[pricing-config] reload failed: %v", err)
			return
		}
		if err := validatePricingConfig(updated); err != nil {
			log.Printf("[pricing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[pricing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PricingConfigHolder) Get() PricingConfig {
	return h.current.Load().(PricingConfig)
}

// NewStaticPricingConfigHolder wraps a fixed config with no file
// watching. Tests and one-shot tools use it.
func NewStaticPricingConfigHolder(cfg PricingConfig) *PricingConfigHolder {
	holder := &PricingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validatePricingConfig(cfg PricingConfig) error {
	if cfg.Tuning.MinFactor <= 0 || cfg.Tuning.MaxFactor < cfg.Tuning.MinFactor {
		return errors.New("pricing.tuning factor bounds are invalid")
	}
	if cfg.Tuning.WindowSize <= 0 {
		return errors.New("pricing.tuning.windowSize must be positive")
	}
	if cfg.Learning.ApplyThreshold < 0 || cfg.Learning.MaxConfidence > 1 {
		return errors.New("pricing.learning confidence bounds are invalid")
	}
	if cfg.RateLimit.PublicPerMinute <= 0 || cfg.RateLimit.UpdatePerMinute <= 0 {
		return errors.New("pricing.rateLimit must be positive")
	}
	return nil
}
