// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	repository "github.com/okian/kryds/internal/adapters/repository"
	"github.com/okian/kryds/internal/domain/aggregate"
	"github.com/okian/kryds/internal/domain/datenorm"
	"github.com/okian/kryds/internal/domain/ingest"
	"github.com/okian/kryds/internal/domain/matrix"
	"github.com/okian/kryds/internal/domain/model"
	"github.com/okian/kryds/internal/domain/projection"
	"github.com/okian/kryds/internal/domain/timeline"
	"github.com/okian/kryds/internal/domain/types"
	"github.com/okian/kryds/pkg/logger"
	"github.com/okian/kryds/pkg/metrics"
)

// Query selects the year and observers a computation runs over.
type Query struct {
	// Year is the competition year; 0 means the service default.
	Year int
	// Observers restricts the view. nil selects everybody; a non-nil empty
	// slice selects nobody.
	Observers []string
	// Sort orders the scoreboard's species rows.
	Sort projection.SortMode
	// Latest is how many recent crossings to list per observer; 0 means the
	// service default.
	Latest int
}

// Service implements the API dependencies for the competition engine.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	ownsStore bool

	// Configuration
	dbPath      string
	clock       func() time.Time
	location    *time.Location
	defaultYear int
	latest      int
	tripFilter  string

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a store. The service does not close injected stores.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDBPath sets the SQLite path opened by Start when no store is injected.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLocation sets the zone deciding which calendar day "today" is.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithDefaultYear sets the year used when a query names none.
func WithDefaultYear(year int) Option {
	return func(s *Service) {
		if year > 0 {
			s.defaultYear = year
		}
	}
}

// WithLatestCrossings sets how many recent crossings the scoreboard lists.
func WithLatestCrossings(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.latest = n
		}
	}
}

// WithTripFilter keeps only records from trips whose notes contain tag.
func WithTripFilter(tag string) Option {
	return func(s *Service) {
		s.tripFilter = tag
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:   repository.MemoryPath,
		clock:    time.Now,
		location: time.Local,
		latest:   aggregate.DefaultLatest,
		logger:   logger.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store unless one was injected.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting analytics service...")

	if s.store == nil {
		store, err := repository.Open(ctx, s.dbPath, repository.WithLogger(s.logger.Named("repository")))
		if err != nil {
			return fmt.Errorf("open store %s: %w", s.dbPath, err)
		}
		s.store = store
		s.ownsStore = true
		s.logger.Info(ctx, "using sqlite store", logger.String("path", s.dbPath))
	}

	s.started = true
	s.logger.Info(ctx, "analytics service started",
		logger.String("timezone", s.location.String()),
		logger.Int("defaultYear", s.defaultYear),
		logger.Int("latestCrossings", s.latest),
		logger.String("tripFilter", s.tripFilter),
	)

	return nil
}

// Stop closes the store if the service opened it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping analytics service...")

	if s.ownsStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error(context.Background(), "close store", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(context.Background(), "analytics service stopped")
}

// Today returns the current calendar day in the configured zone.
func (s *Service) Today() datenorm.Date {
	return datenorm.FromTime(s.clock().In(s.location))
}

// Year resolves a requested year: explicit, then configured, then current.
func (s *Service) Year(requested int) int {
	switch {
	case requested > 0:
		return requested
	case s.defaultYear > 0:
		return s.defaultYear
	default:
		return s.Today().Year
	}
}

// Matrix returns the raw matrix for year.
func (s *Service) Matrix(ctx context.Context, year int) (types.Matrix, error) {
	defer s.observe("matrix", time.Now())

	year = s.Year(year)
	m, err := s.snapshot(ctx, year)
	if err != nil {
		return types.Matrix{}, err
	}
	return types.NewMatrix(year, m), nil
}

// Scoreboard ranks the selected observers and lists the species they have.
func (s *Service) Scoreboard(ctx context.Context, q Query) (types.Scoreboard, error) {
	defer s.observe("scoreboard", time.Now())

	year := s.Year(q.Year)
	m, err := s.snapshot(ctx, year)
	if err != nil {
		return types.Scoreboard{}, err
	}
	return s.scoreboard(m, year, q, s.reporter(ctx)), nil
}

// Timeline returns the day-by-day leaderboard for the selection.
func (s *Service) Timeline(ctx context.Context, q Query) (types.Timeline, error) {
	defer s.observe("timeline", time.Now())

	year := s.Year(q.Year)
	m, err := s.snapshot(ctx, year)
	if err != nil {
		return types.Timeline{}, err
	}
	tl := timeline.Build(restrict(m, q), year, s.Today(), timeline.WithReporter(s.reporter(ctx)))
	return types.NewTimeline(year, tl), nil
}

// Trend returns the cumulative count over the dates with sightings.
func (s *Service) Trend(ctx context.Context, q Query) (types.Trend, error) {
	defer s.observe("trend", time.Now())

	year := s.Year(q.Year)
	m, err := s.snapshot(ctx, year)
	if err != nil {
		return types.Trend{}, err
	}
	tr := timeline.BuildTrend(restrict(m, q), timeline.WithReporter(s.reporter(ctx)))
	return types.NewTrend(year, tr), nil
}

// ObserverMatrix returns the one-column matrix of a single observer, newest
// crossing first.
func (s *Service) ObserverMatrix(ctx context.Context, code string, year int) (types.Matrix, error) {
	defer s.observe("observer_matrix", time.Now())

	year = s.Year(year)
	m, err := s.snapshot(ctx, year)
	if err != nil {
		return types.Matrix{}, err
	}
	single, err := projection.SingleObserverView(m, code)
	if err != nil {
		return types.Matrix{}, translate(err)
	}
	return types.NewMatrix(year, single), nil
}

// ObserverList returns one observer's crossings ordered by mode.
func (s *Service) ObserverList(ctx context.Context, code string, year int, mode projection.ListMode) (types.ObserverList, error) {
	defer s.observe("observer_list", time.Now())

	year = s.Year(year)
	m, err := s.snapshot(ctx, year)
	if err != nil {
		return types.ObserverList{}, err
	}
	crossings, err := projection.ObserverList(m, code, mode)
	if err != nil {
		return types.ObserverList{}, translate(err)
	}
	j, _ := m.Column(code)
	return types.ObserverList{
		Year:      year,
		Observer:  m.ObserverAt(j),
		Mode:      string(mode),
		Total:     len(crossings),
		Crossings: crossings,
	}, nil
}

// Dashboard computes the scoreboard, timeline and trend of one snapshot
// concurrently.
func (s *Service) Dashboard(ctx context.Context, q Query) (types.Dashboard, error) {
	defer s.observe("dashboard", time.Now())

	year := s.Year(q.Year)
	m, err := s.snapshot(ctx, year)
	if err != nil {
		return types.Dashboard{}, err
	}
	return s.dashboard(ctx, m, year, q)
}

// Analyze runs the dashboard over a matrix supplied by the caller instead of
// the stored records. Cells keep their raw text, so dates in any supported
// encoding are accepted and unparseable ones are reported.
func (s *Service) Analyze(ctx context.Context, raw types.Matrix, q Query) (types.Dashboard, error) {
	defer s.observe("analyze", time.Now())

	m, err := matrix.New(raw.Species, raw.Observers, raw.Cells)
	if err != nil {
		return types.Dashboard{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	metrics.UpdateMatrixSize(m.Rows(), m.Cols())
	year := q.Year
	if year == 0 {
		year = raw.Year
	}
	return s.dashboard(ctx, m, s.Year(year), q)
}

// dashboard fans the three computations out over one matrix. Unparseable
// dates are reported once, by the timeline.
func (s *Service) dashboard(ctx context.Context, m *matrix.Matrix, year int, q Query) (types.Dashboard, error) {
	v := restrict(m, q)
	today := s.Today()

	var d types.Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		d.Scoreboard = s.scoreboard(m, year, q, datenorm.Discard)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		d.Timeline = types.NewTimeline(year, timeline.Build(v, year, today, timeline.WithReporter(s.reporter(ctx))))
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		d.Trend = types.NewTrend(year, timeline.BuildTrend(v))
		return nil
	})
	if err := g.Wait(); err != nil {
		return types.Dashboard{}, err
	}
	return d, nil
}

// AddObserver registers a participant.
func (s *Service) AddObserver(ctx context.Context, code, name string) error {
	store, err := s.getStore()
	if err != nil {
		return err
	}
	return translate(store.AddObserver(ctx, model.Observer{Code: code, Name: name, CreatedAt: s.clock()}))
}

// DeleteObserver removes a participant and their records.
func (s *Service) DeleteObserver(ctx context.Context, code string) error {
	store, err := s.getStore()
	if err != nil {
		return err
	}
	return translate(store.DeleteObserver(ctx, code))
}

// Observers lists registered participants.
func (s *Service) Observers(ctx context.Context) ([]types.Observer, error) {
	store, err := s.getStore()
	if err != nil {
		return nil, err
	}
	list, err := store.Observers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.Observer, len(list))
	for k, o := range list {
		out[k] = types.Observer{Code: o.Code, Name: o.DisplayName()}
	}
	return out, nil
}

// ReplaceObservations swaps an observer's raw records.
func (s *Service) ReplaceObservations(ctx context.Context, code string, records []model.Observation) (int, error) {
	store, err := s.getStore()
	if err != nil {
		return 0, err
	}
	n, err := store.ReplaceObservations(ctx, code, records)
	if err != nil {
		return 0, translate(err)
	}
	return n, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":         s.started,
		"dbPath":          s.dbPath,
		"timezone":        s.location.String(),
		"year":            s.Year(0),
		"today":           s.Today().String(),
		"latestCrossings": s.latest,
		"tripFilter":      s.tripFilter,
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	goroutines := runtime.NumGoroutine()
	metrics.UpdateSystemMemoryUsage(mem.Alloc)
	metrics.UpdateSystemGoroutineCount(goroutines)
	stats["goroutines"] = goroutines

	if s.started {
		count := s.store.Count(ctx)
		stats["observations"] = count
		metrics.UpdateObservationsStored(count)
	}

	return stats
}

func (s *Service) getStore() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// snapshot loads the records for year and builds a fresh matrix.
func (s *Service) snapshot(ctx context.Context, year int) (*matrix.Matrix, error) {
	store, err := s.getStore()
	if err != nil {
		return nil, err
	}
	observers, err := store.Observers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load observers: %w", err)
	}
	records, err := store.Observations(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("load observations: %w", err)
	}
	kept := ingest.KeepTrips(records, s.tripFilter)
	m, err := ingest.Build(kept, observers)
	if err != nil {
		return nil, fmt.Errorf("build matrix: %w", err)
	}
	metrics.UpdateMatrixSize(m.Rows(), m.Cols())
	s.logger.Debug(ctx, "snapshot built",
		logger.Int("year", year),
		logger.Int("records", len(records)),
		logger.Int("kept", len(kept)),
		logger.Int("species", m.Rows()),
		logger.Int("observers", m.Cols()),
	)
	return m, nil
}

func (s *Service) scoreboard(m *matrix.Matrix, year int, q Query, r datenorm.Reporter) types.Scoreboard {
	v := restrict(m, q)
	mode := q.Sort
	if mode == "" {
		mode = projection.SortAlphabetical
	}
	n := q.Latest
	if n == 0 {
		n = s.latest
	}

	unparseable := 0
	for _, c := range m.Unparseable() {
		if inView(v, c.Observer) {
			unparseable++
			r.ReportUnparseable(c.Species, c.Observer, c.Value.Raw())
		}
	}

	agg := aggregate.Aggregate(v)
	latest := aggregate.LatestCrossingsAll(v, n)
	byCode := make(map[string]matrix.Observer, v.Len())
	for _, o := range v.Observers() {
		byCode[o.Code] = o
	}

	placements := projection.Rank(projection.SortObserversByTotal(v))
	standings := make([]types.Standing, len(placements))
	for k, p := range placements {
		o := byCode[p.Code]
		crossings := latest[p.Code]
		if crossings == nil {
			crossings = []aggregate.Crossing{}
		}
		standings[k] = types.Standing{
			Rank:         p.Rank,
			Code:         p.Code,
			Name:         o.Name,
			Total:        p.Count,
			Observations: o.Observations,
			TimeSpent:    o.TimeSpent,
			Blockers:     agg.Blockers[p.Code],
			Latest:       crossings,
		}
	}

	sorted := projection.SortSpecies(v, mode)
	rows := make([]types.SpeciesRow, len(sorted))
	cols := v.Columns()
	for k, row := range sorted {
		cells := make(map[string]string)
		for _, j := range cols {
			if m.Present(row.Index, j) {
				cells[m.ObserverAt(j).Code] = m.Raw(row.Index, j)
			}
		}
		sc := agg.Scarcity[row.Index]
		rows[k] = types.SpeciesRow{
			Species: row.Species,
			Count:   sc.Count,
			Tier:    sc.Tier,
			Cells:   cells,
		}
	}

	return types.Scoreboard{
		Year:        year,
		Sort:        string(mode),
		Unparseable: unparseable,
		Standings:   standings,
		Species:     rows,
	}
}

// reporter logs and counts every unparseable date it receives.
func (s *Service) reporter(ctx context.Context) datenorm.Reporter {
	return datenorm.ReporterFunc(func(species, observer, raw string) {
		metrics.RecordUnparseableDate()
		s.logger.Warn(ctx, "unparseable date skipped",
			logger.String("species", species),
			logger.String("observer", observer),
			logger.String("raw", raw),
		)
	})
}

func (s *Service) observe(operation string, start time.Time) {
	metrics.RecordComputation(operation, float64(time.Since(start).Microseconds())/1000)
}

func restrict(m *matrix.Matrix, q Query) matrix.View {
	if q.Observers == nil {
		return m.View()
	}
	return projection.FilterObservers(m, q.Observers)
}

func inView(v matrix.View, code string) bool {
	for _, c := range v.Codes() {
		if c == code {
			return true
		}
	}
	return false
}

// translate maps store and engine errors onto the service's sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, matrix.ErrUnknownObserver):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, repository.ErrAlreadyExists):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, repository.ErrInvalidRecord):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	default:
		return err
	}
}
