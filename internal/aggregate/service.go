// ABOUTME: Service binds the pure aggregation functions to a record store and clock.
// ABOUTME: Each call loads one consistent snapshot; store failures become ErrUnavailable.
package aggregate

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/healthlog/internal/models"
	"github.com/harperreed/healthlog/internal/storage"
)

// Source provides consistent snapshots. storage.Repository satisfies it.
type Source interface {
	Snapshot(filter storage.RecordFilter) (*models.Snapshot, error)
}

// Recorder observes aggregation calls.
type Recorder interface {
	ObserveAggregation(op string, records int, d time.Duration, err error)
}

// Service runs aggregations against a Source.
type Service struct {
	src      Source
	clock    func() time.Time
	opts     RollupOptions
	window   int
	logger   *log.Logger
	recorder Recorder
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used to determine today.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithRollupOptions sets the rollup policy.
func WithRollupOptions(opts RollupOptions) Option {
	return func(s *Service) { s.opts = opts }
}

// WithWindowDays sets the default recent window size.
func WithWindowDays(n int) Option {
	return func(s *Service) { s.window = n }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithRecorder sets a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// NewService creates a Service reading from src.
func NewService(src Source, opts ...Option) *Service {
	s := &Service{
		src:    src,
		clock:  time.Now,
		window: DefaultWindowDays,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current day according to the service clock.
func (s *Service) Today() models.Day {
	return models.Today(s.clock)
}

// WindowDays returns the configured default window size.
func (s *Service) WindowDays() int {
	if s.window <= 0 {
		return DefaultWindowDays
	}
	return s.window
}

// Snapshot loads the records matching filter.
func (s *Service) Snapshot(ctx context.Context, filter storage.RecordFilter) (*models.Snapshot, error) {
	return s.load(ctx, "snapshot", filter)
}

// Timeline composes day buckets over filter's range.
func (s *Service) Timeline(ctx context.Context, filter storage.RecordFilter, dir SortDirection) ([]Bucket, error) {
	start := time.Now()
	snap, err := s.load(ctx, "timeline", filter)
	if err != nil {
		return nil, err
	}
	buckets := ComposeTimeline(snap, dir)
	s.observe("timeline", snap.Len(), start, nil)
	return buckets, nil
}

// Day computes the rollup for one day.
func (s *Service) Day(ctx context.Context, day models.Day) (DayRollup, error) {
	start := time.Now()
	snap, err := s.load(ctx, "day", storage.OnDay(day))
	if err != nil {
		return DayRollup{}, err
	}
	r := RollupDay(snap, day, s.opts)
	s.observe("day", snap.Len(), start, nil)
	return r, nil
}

// Recent builds the trailing window of n days ending today. n <= 0 uses the
// configured default.
func (s *Service) Recent(ctx context.Context, n int) ([]TrendDay, error) {
	if n <= 0 {
		n = s.WindowDays()
	}
	today := s.Today()
	from, to := WindowRange(today, n)

	start := time.Now()
	snap, err := s.load(ctx, "recent", storage.Between(from, to))
	if err != nil {
		return nil, err
	}
	window := RecentWindow(snap, today, n, s.opts)
	s.observe("recent", snap.Len(), start, nil)
	return window, nil
}

// Report groups every record matching filter.
func (s *Service) Report(ctx context.Context, filter storage.RecordFilter) (Report, error) {
	start := time.Now()
	snap, err := s.load(ctx, "report", filter)
	if err != nil {
		return Report{}, err
	}
	report := GroupReport(snap)
	if report.Lossy() {
		s.logger.Warn("report text was not fully representable", "substitutions", report.Substitutions)
	}
	s.observe("report", snap.Len(), start, nil)
	return report, nil
}

// Series builds the chart series for cat. For labs, a non-empty labName
// restricts the series to one marker.
func (s *Service) Series(ctx context.Context, cat models.Category, labName string) (Series, error) {
	start := time.Now()
	snap, err := s.load(ctx, "series", storage.RecordFilter{})
	if err != nil {
		return Series{}, err
	}
	if cat == models.CategoryLab && labName != "" {
		series := LabSeries(snap, labName)
		s.observe("series", snap.Len(), start, nil)
		return series, nil
	}
	series, err := BuildSeries(snap, cat)
	s.observe("series", snap.Len(), start, err)
	return series, err
}

// Charts builds the dashboard chart bundle.
func (s *Service) Charts(ctx context.Context) (map[models.Category]Series, error) {
	start := time.Now()
	snap, err := s.load(ctx, "charts", storage.RecordFilter{})
	if err != nil {
		return nil, err
	}
	charts := BuildCharts(snap, DefaultCharts)
	s.observe("charts", snap.Len(), start, nil)
	return charts, nil
}

// load honours cancellation before touching the store, then reads one
// snapshot. Aggregation itself is not interruptible.
func (s *Service) load(ctx context.Context, op string, filter storage.RecordFilter) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filter.Descending = false
	filter.Limit = 0

	start := time.Now()
	snap, err := s.src.Snapshot(filter)
	if err != nil {
		s.logger.Error("snapshot failed", "op", op, "err", err)
		s.observe(op, 0, start, err)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	s.logger.Debug("snapshot loaded", "op", op, "records", snap.Len(), "took", time.Since(start))
	return snap, nil
}

func (s *Service) observe(op string, records int, start time.Time, err error) {
	if s.recorder != nil {
		s.recorder.ObserveAggregation(op, records, time.Since(start), err)
	}
}
