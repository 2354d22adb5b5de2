package config

// ServerConfig contains process-level settings.
type ServerConfig struct {
	LogLevel string `yaml:"logLevel" validate:"omitempty,oneof=trace debug info warn error"`
}

// FeedConfig contains GTFS-Realtime vehicle positions feed settings.
type FeedConfig struct {
	VehiclePositionsURL string `yaml:"vehiclePositionsURL" validate:"omitempty,url"`
	PollIntervalSec     int    `yaml:"pollIntervalSec" validate:"gte=0"`
	TimeoutSec          int    `yaml:"timeoutSec" validate:"gte=0"`
	StaleAfterSec       int    `yaml:"staleAfterSec" validate:"gte=0"`
}

// StoreConfig points at the route/schedule reference data file.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// DiversionConfig holds the thresholds of the diversion detector.
type DiversionConfig struct {
	DeviationThresholdM float64 `yaml:"deviationThresholdM" validate:"gt=0"` // off-route beyond this
	DriftToleranceM     float64 `yaml:"driftToleranceM" validate:"gt=0"`     // on-route within this
	StopRadiusM         float64 `yaml:"stopRadiusM" validate:"gt=0"`
	MinSpeedKMH         float64 `yaml:"minSpeedKMH" validate:"gte=0"`
	PersistenceSec      int     `yaml:"persistenceSec" validate:"gt=0"`
	MinSamples          int     `yaml:"minSamples" validate:"gte=1"`
	ClearSec            int     `yaml:"clearSec" validate:"gt=0"`
	RollingWindowSec    int     `yaml:"rollingWindowSec" validate:"gt=0"`
	LogCapacity         int     `yaml:"logCapacity" validate:"gte=1"`
}

// TrafficConfig holds the thresholds of the congestion detector.
type TrafficConfig struct {
	LowSpeedKMH      float64 `yaml:"lowSpeedKMH" validate:"gt=0"`
	MediumSpeedKMH   float64 `yaml:"mediumSpeedKMH" validate:"gt=0"`
	HighSpeedKMH     float64 `yaml:"highSpeedKMH" validate:"gt=0"`
	DetectionSec     int     `yaml:"detectionSec" validate:"gt=0"`
	ClearSec         int     `yaml:"clearSec" validate:"gt=0"`
	RollingWindowSec int     `yaml:"rollingWindowSec" validate:"gt=0"`
	MinSamples       int     `yaml:"minSamples" validate:"gte=1"`
	StopRadiusM      float64 `yaml:"stopRadiusM" validate:"gt=0"`
}

// DelayConfig holds the thresholds of the schedule delay detector.
type DelayConfig struct {
	ToleranceMin       int `yaml:"toleranceMin" validate:"gte=1"`       // grace before a delay record
	SignificantMin     int `yaml:"significantMin" validate:"gte=1"`     // HIGH severity, triggers notification
	NotifyCooldownMin  int `yaml:"notifyCooldownMin" validate:"gte=1"`  // dedup window per (bus, schedule)
	CheckIntervalSec   int `yaml:"checkIntervalSec" validate:"gte=0"`   // periodic fleet-wide sweep
	DefaultDurationMin int `yaml:"defaultDurationMin" validate:"gte=1"` // when route.estimatedDuration is absent
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Feed      FeedConfig      `yaml:"feed"`
	Store     StoreConfig     `yaml:"store"`
	Diversion DiversionConfig `yaml:"diversion"`
	Traffic   TrafficConfig   `yaml:"traffic"`
	Delay     DelayConfig     `yaml:"delay"`
}
