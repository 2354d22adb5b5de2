package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default returns the built-in detection thresholds. They mirror the
// values the product shipped with and are the baseline every loaded
// config is merged over.
func Default() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			LogLevel: "info",
		},
		Feed: FeedConfig{
			PollIntervalSec: 15,
			TimeoutSec:      10,
			StaleAfterSec:   300,
		},
		Diversion: DiversionConfig{
			DeviationThresholdM: 80,
			DriftToleranceM:     30,
			StopRadiusM:         50,
			MinSpeedKMH:         5,
			PersistenceSec:      60,
			MinSamples:          3,
			ClearSec:            30,
			RollingWindowSec:    60,
			LogCapacity:         100,
		},
		Traffic: TrafficConfig{
			LowSpeedKMH:      10,
			MediumSpeedKMH:   5,
			HighSpeedKMH:     2,
			DetectionSec:     30,
			ClearSec:         60,
			RollingWindowSec: 60,
			MinSamples:       3,
			StopRadiusM:      50,
		},
		Delay: DelayConfig{
			ToleranceMin:       5,
			SignificantMin:     10,
			NotifyCooldownMin:  5,
			CheckIntervalSec:   60,
			DefaultDurationMin: 60,
		},
	}
}

// Load reads the application configuration. An empty path tries config.yml
// in the working directory and falls back to defaults when no file exists.
func Load(path string) (AppConfig, error) {
	cfg := Default()

	paths := []string{"config.yml", "./config/config.yml"}
	if path != "" {
		paths = []string{path}
	}

	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		if path == "" && os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks a configuration against its struct tags plus the
// cross-field ordering the traffic severity ladder relies on.
func Validate(cfg AppConfig) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if cfg.Diversion.DriftToleranceM >= cfg.Diversion.DeviationThresholdM {
		return fmt.Errorf("diversion: driftToleranceM (%v) must be below deviationThresholdM (%v)",
			cfg.Diversion.DriftToleranceM, cfg.Diversion.DeviationThresholdM)
	}
	if !(cfg.Traffic.HighSpeedKMH < cfg.Traffic.MediumSpeedKMH && cfg.Traffic.MediumSpeedKMH < cfg.Traffic.LowSpeedKMH) {
		return fmt.Errorf("traffic: speed ceilings must be ordered high < medium < low")
	}
	if cfg.Delay.ToleranceMin > cfg.Delay.SignificantMin {
		return fmt.Errorf("delay: toleranceMin (%d) must not exceed significantMin (%d)",
			cfg.Delay.ToleranceMin, cfg.Delay.SignificantMin)
	}
	return nil
}
