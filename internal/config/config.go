package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Bounds on the configuration surface. The polling interval floor keeps the
// upstream request rate civil; radius and limit bounds match what the
// trending endpoint meaningfully serves.
const (
	MinRadiusKm  = 0.5
	MaxRadiusKm  = 50.0
	MinInterval  = 30 * time.Second
	MinIncidents = 1
	MaxIncidents = 200
)

// Config holds all service settings, populated from environment variables.
// Parameters are fixed for a run; changing them means restarting the poller.
type Config struct {
	CenterLat    float64
	CenterLon    float64
	RadiusKm     float64
	PollInterval time.Duration
	MaxIncidents int
	CacheTTL     time.Duration
	FetchTimeout time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Optional change-event publishing, enabled when brokers are set.
	KafkaBrokers     []string
	KafkaChangeTopic string
	KafkaEnabled     bool

	centerSet bool
}

// Load reads configuration from a .env file (if present) and the
// environment, applying defaults where unset. Validation is separate so CLI
// flags can override values before bounds are checked.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	lat, latSet, err := envFloat("CITIZEN_LAT")
	if err != nil {
		return nil, err
	}
	lon, lonSet, err := envFloat("CITIZEN_LON")
	if err != nil {
		return nil, err
	}

	radius, _, err := envFloatDefault("CITIZEN_RADIUS_KM", 5.0)
	if err != nil {
		return nil, err
	}

	interval, err := envDuration("CITIZEN_POLL_INTERVAL", 120*time.Second)
	if err != nil {
		return nil, err
	}

	limit, err := envInt("CITIZEN_MAX_INCIDENTS", 50)
	if err != nil {
		return nil, err
	}

	// The cache TTL defaults to the polling interval: one upstream request
	// per tick, at most.
	ttl, err := envDuration("CITIZEN_CACHE_TTL", interval)
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := envDuration("CITIZEN_FETCH_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))

	cfg := &Config{
		CenterLat:    lat,
		CenterLon:    lon,
		RadiusKm:     radius,
		PollInterval: interval,
		MaxIncidents: limit,
		CacheTTL:     ttl,
		FetchTimeout: fetchTimeout,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8099"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:     brokers,
		KafkaChangeTopic: envOrDefault("KAFKA_CHANGE_TOPIC", "citizen-incident-changes"),
		KafkaEnabled:     len(brokers) > 0,

		centerSet: latSet && lonSet,
	}
	return cfg, nil
}

// SetCenter overrides the feed center, marking it as explicitly configured.
func (c *Config) SetCenter(lat, lon float64) {
	c.CenterLat = lat
	c.CenterLon = lon
	c.centerSet = true
}

// Validate checks required settings and bounds. Called after any flag
// overrides have been applied.
func (c *Config) Validate() error {
	if !c.centerSet {
		return errors.New("feed center is required: set CITIZEN_LAT and CITIZEN_LON or pass --lat/--lon")
	}
	if c.CenterLat < -90 || c.CenterLat > 90 {
		return fmt.Errorf("center latitude %g out of range [-90, 90]", c.CenterLat)
	}
	if c.CenterLon < -180 || c.CenterLon > 180 {
		return fmt.Errorf("center longitude %g out of range [-180, 180]", c.CenterLon)
	}
	if c.RadiusKm < MinRadiusKm || c.RadiusKm > MaxRadiusKm {
		return fmt.Errorf("radius %g km out of range [%g, %g]", c.RadiusKm, MinRadiusKm, MaxRadiusKm)
	}
	if c.PollInterval < MinInterval {
		return fmt.Errorf("poll interval %s below minimum %s", c.PollInterval, MinInterval)
	}
	if c.MaxIncidents < MinIncidents || c.MaxIncidents > MaxIncidents {
		return fmt.Errorf("max incidents %d out of range [%d, %d]", c.MaxIncidents, MinIncidents, MaxIncidents)
	}
	if c.CacheTTL <= 0 {
		return errors.New("cache TTL must be positive")
	}
	if c.FetchTimeout <= 0 {
		return errors.New("fetch timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.KafkaEnabled && c.KafkaChangeTopic == "" {
		return errors.New("KAFKA_CHANGE_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envFloat(key string) (float64, bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, true, nil
}

func envFloatDefault(key string, def float64) (float64, bool, error) {
	v, set, err := envFloat(key)
	if err != nil {
		return 0, false, err
	}
	if !set {
		return def, false, nil
	}
	return v, true, nil
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	// Bare numbers are read as seconds.
	if n, err := strconv.Atoi(s); err == nil {
		s = strconv.Itoa(n) + "s"
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, os.Getenv(key))
	}
	return d, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
