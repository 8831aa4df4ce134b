package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/okian/kryds/internal/domain/datenorm"
	"github.com/okian/kryds/internal/domain/model"
	"github.com/okian/kryds/pkg/logger"
	"github.com/okian/kryds/pkg/metrics"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteStore is the Store backed by an embedded SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

var _ Store = (*SQLiteStore)(nil)

// Open creates or opens the database at path, applies the schema and starts
// the background gauge updater. ctx bounds the updater's lifetime.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if path == MemoryPath {
		// every connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(time.Hour)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{
		db:                    db,
		logger:                logger.New(),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.updateGauges(ctx)
	s.startMetricsUpdater(ctx)
	return s, nil
}

// Close stops the gauge updater and closes the database.
func (s *SQLiteStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return s.db.Close()
}

// AddObserver implements Store.AddObserver.
func (s *SQLiteStore) AddObserver(ctx context.Context, o model.Observer) error {
	defer observeUpdate(time.Now())

	if strings.TrimSpace(o.Code) == "" {
		return fmt.Errorf("%w: empty observer code", ErrInvalidRecord)
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO observers (code, name, created_at) VALUES (?, ?, ?)`,
		o.Code, o.Name, formatTime(o.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			metrics.RecordErrorByComponent("repository", "already_exists")
			return fmt.Errorf("%w: %s", ErrAlreadyExists, o.Code)
		}
		return fmt.Errorf("insert observer: %w", err)
	}
	s.logger.Info(ctx, "observer registered", logger.String("code", o.Code))
	return nil
}

// DeleteObserver implements Store.DeleteObserver.
func (s *SQLiteStore) DeleteObserver(ctx context.Context, code string) error {
	defer observeUpdate(time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM observations WHERE observer = ?`, code); err != nil {
		return fmt.Errorf("delete observations: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM observers WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("delete observer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		metrics.RecordErrorByComponent("repository", "not_found")
		return fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Info(ctx, "observer deleted", logger.String("code", code))
	return nil
}

// Observers implements Store.Observers.
func (s *SQLiteStore) Observers(ctx context.Context) ([]model.Observer, error) {
	defer observeQuery(time.Now())

	rows, err := s.db.QueryContext(ctx, `SELECT code, name, created_at FROM observers ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query observers: %w", err)
	}
	defer rows.Close()

	out := []model.Observer{}
	for rows.Next() {
		var (
			o         model.Observer
			createdAt string
		)
		if err := rows.Scan(&o.Code, &o.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan observer: %w", err)
		}
		if o.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("observer %s created_at: %w", o.Code, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ReplaceObservations implements Store.ReplaceObservations.
func (s *SQLiteStore) ReplaceObservations(ctx context.Context, code string, records []model.Observation) (int, error) {
	defer observeUpdate(time.Now())

	for k, r := range records {
		if r.Observer != "" && r.Observer != code {
			return 0, fmt.Errorf("%w: record %d belongs to %q", ErrInvalidRecord, k, r.Observer)
		}
		if strings.TrimSpace(r.Species) == "" || r.Date.IsZero() {
			return 0, fmt.Errorf("%w: record %d lacks species or date", ErrInvalidRecord, k)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM observers WHERE code = ?`, code).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return 0, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup observer: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM observations WHERE observer = ?`, code); err != nil {
		return 0, fmt.Errorf("clear observations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO observations (id, observer, species, observed_on, trip_id, trip_start, trip_end, trip_notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), code, r.Species, r.Date.ISO(), r.TripID, r.TripStart, r.TripEnd, r.TripNotes,
		); err != nil {
			return 0, fmt.Errorf("insert observation: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	metrics.RecordObservationsIngested(len(records))
	s.logger.Info(ctx, "observations replaced",
		logger.String("observer", code),
		logger.Int("records", len(records)),
	)
	return len(records), nil
}

// Observations implements Store.Observations.
func (s *SQLiteStore) Observations(ctx context.Context, year int) ([]model.Observation, error) {
	defer observeQuery(time.Now())

	from := fmt.Sprintf("%04d-01-01", year)
	to := fmt.Sprintf("%04d-12-31", year)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, observer, species, observed_on, trip_id, trip_start, trip_end, trip_notes
		FROM observations
		WHERE observed_on BETWEEN ? AND ?
		ORDER BY observer, observed_on, species`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	out := []model.Observation{}
	for rows.Next() {
		var (
			o  model.Observation
			on string
		)
		if err := rows.Scan(&o.ID, &o.Observer, &o.Species, &on, &o.TripID, &o.TripStart, &o.TripEnd, &o.TripNotes); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		d, ok := datenorm.Parse(on).Date()
		if !ok {
			return nil, fmt.Errorf("observation %s: bad stored date %q", o.ID, on)
		}
		o.Date = d
		out = append(out, o)
	}
	return out, rows.Err()
}

// Count implements Store.Count.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM observations`).Scan(&n); err != nil {
		s.logger.Error(ctx, "count observations", logger.Error(err))
		return 0
	}
	return n
}

func (s *SQLiteStore) observerCount(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM observers`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// startMetricsUpdater refreshes the stored-record gauges until Close or ctx ends.
func (s *SQLiteStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateGauges(ctx)
			}
		}
	}()
}

func (s *SQLiteStore) updateGauges(ctx context.Context) {
	metrics.UpdateObservationsStored(s.Count(ctx))
	metrics.UpdateObserversRegistered(s.observerCount(ctx))
}

func observeUpdate(start time.Time) {
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
}

func observeQuery(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}

// migrate adds columns introduced after a database file was first created.
func migrate(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `SELECT name FROM pragma_table_info('observations')`)
	if err != nil {
		return fmt.Errorf("inspect observations: %w", err)
	}
	columns := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("scan column: %w", err)
		}
		columns[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect observations: %w", err)
	}

	if !columns["trip_notes"] {
		if _, err := db.ExecContext(ctx, `ALTER TABLE observations ADD COLUMN trip_notes TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("add trip_notes: %w", err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
