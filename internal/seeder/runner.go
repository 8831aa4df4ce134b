package seeder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/kryds/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// ErrInvalidConfig is returned when a run cannot start with the given Config.
var ErrInvalidConfig = errors.New("invalid seeder config")

// Run registers the generated observers, uploads their sightings, fetches the
// scoreboard for cfg.Year and verifies it.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Stats, error) {
	if cfg.Observers < 1 || cfg.Sightings < 0 || cfg.Year < 1 || cfg.Workers < 1 {
		return nil, fmt.Errorf("%w: observers=%d sightings=%d year=%d workers=%d",
			ErrInvalidConfig, cfg.Observers, cfg.Sightings, cfg.Year, cfg.Workers)
	}

	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(cfg.Timeout)

	log.Info(ctx, "starting kryds seeding run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("observers", cfg.Observers),
		logger.Int("sightings", cfg.Sightings),
		logger.Int("year", cfg.Year),
		logger.Int("workers", cfg.Workers))

	if err := checkServiceHealth(ctx, client, cfg, log); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	uploads := Generate(cfg)
	stats.ObserversGenerated = len(uploads)

	if err := upload(ctx, client, cfg, uploads, stats, log); err != nil {
		return stats, fmt.Errorf("upload failed: %w", err)
	}

	sb, err := fetchScoreboard(ctx, client, cfg)
	if err != nil {
		return stats, fmt.Errorf("scoreboard retrieval failed: %w", err)
	}

	checked, verr := Verify(Expected(uploads), sb)
	stats.StandingsVerified = checked

	if cfg.OutputFile != "" {
		if err := saveUploads(cfg.OutputFile, uploads); err != nil {
			log.Warn(ctx, "failed to save uploads to file", logger.Error(err))
		} else {
			log.Info(ctx, "uploads saved to file", logger.String("filename", cfg.OutputFile))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logFinalStats(ctx, log, stats)

	if verr != nil {
		return stats, verr
	}
	log.Info(ctx, "seeding run verified")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, cfg *Config, log logger.Logger) error {
	status, _, err := client.Get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	// the service answers /healthz with its Prometheus metrics
	if status != http.StatusOK {
		return fmt.Errorf("health check returned status %d", status)
	}
	log.Info(ctx, "service is healthy")
	return nil
}

// upload registers each observer and replaces its sightings, cfg.Workers at a time.
func upload(ctx context.Context, client *HTTPClient, cfg *Config, uploads []Upload, stats *Stats, log logger.Logger) error {
	var registered, existing, successful, failed, sightings atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for _, u := range uploads {
		g.Go(func() error {
			status, body, err := client.Send(gctx, http.MethodPost, cfg.BaseURL+"/observers",
				map[string]string{"code": u.Code, "name": u.Name})
			if err != nil {
				return err
			}
			switch status {
			case http.StatusCreated:
				registered.Add(1)
			case http.StatusConflict:
				existing.Add(1)
			default:
				return fmt.Errorf("register %s: status %d: %s", u.Code, status, body)
			}

			status, body, err = client.Send(gctx, http.MethodPut, cfg.BaseURL+"/observations/"+u.Code,
				map[string][]Sighting{"observations": u.Observations})
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				failed.Add(1)
				log.Warn(gctx, "upload rejected",
					logger.String("observer", u.Code),
					logger.Int("status", status),
					logger.String("body", string(body)))
				return nil
			}
			successful.Add(1)
			sightings.Add(int64(len(u.Observations)))
			if cfg.Verbose {
				log.Info(gctx, "uploaded", logger.String("observer", u.Code), logger.Int("sightings", len(u.Observations)))
			}
			return nil
		})
	}
	err := g.Wait()

	stats.ObserversRegistered = int(registered.Load())
	stats.ObserversExisting = int(existing.Load())
	stats.UploadsSuccessful = int(successful.Load())
	stats.UploadsFailed = int(failed.Load())
	stats.SightingsUploaded = int(sightings.Load())

	if err != nil {
		return err
	}
	if stats.UploadsFailed > 0 {
		return fmt.Errorf("%d uploads rejected", stats.UploadsFailed)
	}
	return nil
}

func fetchScoreboard(ctx context.Context, client *HTTPClient, cfg *Config) (Scoreboard, error) {
	var sb Scoreboard
	status, body, err := client.Get(ctx, cfg.BaseURL+"/scoreboard?year="+strconv.Itoa(cfg.Year))
	if err != nil {
		return sb, err
	}
	if status != http.StatusOK {
		return sb, fmt.Errorf("scoreboard returned status %d: %s", status, body)
	}
	if err := json.Unmarshal(body, &sb); err != nil {
		return sb, fmt.Errorf("decode scoreboard: %w", err)
	}
	return sb, nil
}

// saveUploads writes the generated uploads as an indented JSON array.
func saveUploads(filename string, uploads []Upload) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(uploads, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal uploads: %w", err)
	}
	return os.WriteFile(filename, data, filePermission)
}

// logFinalStats logs the run statistics.
func logFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.SightingsUploaded) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("observersGenerated", stats.ObserversGenerated),
		logger.Int("observersRegistered", stats.ObserversRegistered),
		logger.Int("observersExisting", stats.ObserversExisting),
		logger.Int("uploadsSuccessful", stats.UploadsSuccessful),
		logger.Int("uploadsFailed", stats.UploadsFailed),
		logger.Int("sightingsUploaded", stats.SightingsUploaded),
		logger.Int("standingsVerified", stats.StandingsVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("sightingsPerSecond", perSecond))
}
