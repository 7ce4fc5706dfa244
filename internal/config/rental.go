package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RentalConfig carries the tenant-facing billing policy: when rent falls due
// and how late payments are penalized.
type RentalConfig struct {
	DueDayOfMonth    int   `mapstructure:"dueDayOfMonth"`
	GraceDays        int   `mapstructure:"graceDays"`
	LateFeeMinor     int64 `mapstructure:"lateFeeMinor"`
	LateFeeMaxMinor  int64 `mapstructure:"lateFeeMaxMinor"`
	NoticePeriodDays int   `mapstructure:"noticePeriodDays"`
}

func DefaultRentalConfig() RentalConfig {
	return RentalConfig{
		DueDayOfMonth:    5,
		GraceDays:        3,
		LateFeeMinor:     10000,
		LateFeeMaxMinor:  100000,
		NoticePeriodDays: 30,
	}
}

type RentalConfigHolder struct {
	current atomic.Value // holds RentalConfig
}

func NewRentalConfigHolder() (*RentalConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("rental")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/stayloop")
	v.AddConfigPath(".")

	v.SetEnvPrefix("STAYLOOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultRentalConfig()
		v.SetDefault("rental.dueDayOfMonth", defaults.DueDayOfMonth)
		v.SetDefault("rental.graceDays", defaults.GraceDays)
		v.SetDefault("rental.lateFeeMinor", defaults.LateFeeMinor)
		v.SetDefault("rental.lateFeeMaxMinor", defaults.LateFeeMaxMinor)
		v.SetDefault("rental.noticePeriodDays", defaults.NoticePeriodDays)
	}

	var cfg RentalConfig
	if err := v.UnmarshalKey("rental", &cfg); err != nil {
		return nil, err
	}
	if err := validateRentalConfig(cfg); err != nil {
		return nil, err
	}

	holder := &RentalConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated RentalConfig
		if err := v.UnmarshalKey("rental", &updated); err != nil {
			log.Printf("[rental-config] reload failed: %v", err)
			return
		}
		if err := validateRentalConfig(updated); err != nil {
			log.Printf("[rental-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[rental-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *RentalConfigHolder) Get() RentalConfig {
	return h.current.Load().(RentalConfig)
}

func validateRentalConfig(cfg RentalConfig) error {
	if cfg.DueDayOfMonth < 1 || cfg.DueDayOfMonth > 28 {
		return errors.New("rental.dueDayOfMonth must be between 1 and 28")
	}
	if cfg.GraceDays < 0 {
		return errors.New("rental.graceDays cannot be negative")
	}
	if cfg.LateFeeMinor < 0 || cfg.LateFeeMaxMinor < 0 {
		return errors.New("rental late fees cannot be negative")
	}
	// A zero cap means the accrual is uncapped.
	if cfg.LateFeeMaxMinor > 0 && cfg.LateFeeMaxMinor < cfg.LateFeeMinor {
		return errors.New("rental.lateFeeMaxMinor must be zero or at least lateFeeMinor")
	}
	return nil
}
