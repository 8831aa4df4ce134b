package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/kryds/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
				convey.So(cfg.MaxBodyBytes, convey.ShouldEqual, 4<<20)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("KRYDS_ADDR", ":8080")
			_ = os.Setenv("KRYDS_DB_PATH", ":memory:")
			_ = os.Setenv("KRYDS_YEAR", "2025")
			_ = os.Setenv("KRYDS_LATEST_CROSSINGS", "3")
			_ = os.Setenv("KRYDS_TRIP_FILTER", "#boligbirding")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DBPath, convey.ShouldEqual, ":memory:")
				convey.So(cfg.Year, convey.ShouldEqual, 2025)
				convey.So(cfg.LatestCrossings, convey.ShouldEqual, 3)
				convey.So(cfg.TripFilter, convey.ShouldEqual, "#boligbirding")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			path := writeConfigFile(t, `
addr: ":9090"
timezone: "UTC"
log_format: json
latest_crossings: 10
metrics_namespace: birds
metrics_buckets: [1, 10, 100]
metrics_labels:
  site: amager
`)
			_ = os.Setenv("KRYDS_CONFIG", path)
			_ = os.Setenv("KRYDS_ADDR", ":8081")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8081")
				convey.So(cfg.Timezone, convey.ShouldEqual, "UTC")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.LatestCrossings, convey.ShouldEqual, 10)
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "birds")
				convey.So(cfg.MetricsSubsystem, convey.ShouldEqual, "engine")
				convey.So(cfg.MetricsBuckets, convey.ShouldResemble, []float64{1, 10, 100})
				convey.So(cfg.MetricsLabels, convey.ShouldResemble, map[string]string{"site": "amager"})
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			_ = os.Setenv("KRYDS_CONFIG", writeConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("KRYDS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a setting fails validation", func() {
			_ = os.Setenv("KRYDS_TIMEZONE", "Nowhere/Special")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return an invalid config error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	envVars := []string{
		"KRYDS_CONFIG",
		"KRYDS_ADDR",
		"KRYDS_DB_PATH",
		"KRYDS_YEAR",
		"KRYDS_LATEST_CROSSINGS",
		"KRYDS_TIMEZONE",
		"KRYDS_TRIP_FILTER",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
