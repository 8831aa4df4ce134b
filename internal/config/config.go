// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - External errors must be wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
	_ "time/tzdata" // timezone names resolve without a system zoneinfo

	"github.com/okian/kryds/pkg/metrics"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file; ":memory:" keeps everything in memory.
	DBPath string `koanf:"db_path"`

	// Timezone is the IANA zone that decides which calendar day "today" is.
	Timezone string `koanf:"timezone"`

	// Year is the competition year served when a request names none; 0 means
	// the current year.
	Year int `koanf:"year"`

	// LatestCrossings is how many recent species the scoreboard lists per observer.
	LatestCrossings int `koanf:"latest_crossings"`

	// MaxBodyBytes caps request bodies on uploads.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// TripFilter keeps only sightings from trips whose notes contain it,
	// e.g. "#boligbirding". Empty keeps every trip.
	TripFilter string `koanf:"trip_filter"`

	// MetricsNamespace and MetricsSubsystem prefix every Prometheus series.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsBuckets replaces the latency histogram buckets, in milliseconds.
	MetricsBuckets []float64 `koanf:"metrics_buckets"`

	// MetricsLabels are constant labels attached to every series.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		DBPath:          "kryds.db",
		Timezone:        "Europe/Copenhagen",
		Year:            0,
		LatestCrossings: 5,
		MaxBodyBytes:    4 << 20,
		MetricsNamespace: "kryds",
		MetricsSubsystem: "engine",
	}
}

// Validate reports the first invalid setting wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBPath == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.LatestCrossings < 0:
		return fmt.Errorf("%w: latest_crossings must not be negative", ErrInvalidConfig)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	case c.Year < 0 || c.Year > 9999:
		return fmt.Errorf("%w: year %d out of range", ErrInvalidConfig, c.Year)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return c.validateMetrics()
}

func (c *Config) validateMetrics() error {
	for key, name := range map[string]string{"metrics_namespace": c.MetricsNamespace, "metrics_subsystem": c.MetricsSubsystem} {
		if name != "" && !metricName.MatchString(name) {
			return fmt.Errorf("%w: %s %q is not a metric name", ErrInvalidConfig, key, name)
		}
	}
	if !slices.IsSorted(c.MetricsBuckets) || len(slices.Compact(slices.Clone(c.MetricsBuckets))) != len(c.MetricsBuckets) {
		return fmt.Errorf("%w: metrics_buckets must be strictly increasing", ErrInvalidConfig)
	}
	for name := range c.MetricsLabels {
		if !metricName.MatchString(name) || metrics.IsReservedLabel(name) {
			return fmt.Errorf("%w: metrics label %q is not usable", ErrInvalidConfig, name)
		}
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}
