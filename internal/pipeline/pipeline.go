package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/snowpack-climatology/internal/domain"
	"github.com/couchcryptid/snowpack-climatology/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
)

const (
	initialBackoff    = 200 * time.Millisecond
	defaultMaxBackoff = 5 * time.Minute
)

// Fetcher retrieves a raw daily series from the collector.
type Fetcher interface {
	FetchSeries(ctx context.Context, req domain.SeriesRequest) (domain.Series, error)
}

// Publisher hands a finished table to the presentation layer.
type Publisher interface {
	Publish(ctx context.Context, table domain.WaterYearTable) error
}

// Options selects the series and the run schedule.
type Options struct {
	Site     string
	Variable string
	Start    time.Time
	// Location decides which calendar date is "today". Nil means UTC.
	Location *time.Location
	// Interval between scheduled runs. Zero or negative runs once.
	Interval time.Duration
}

// Pipeline orchestrates the fetch-compute-publish cycle.
type Pipeline struct {
	fetcher   Fetcher
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options
	latest    atomic.Pointer[Result]
}

// New creates a Pipeline. A nil publisher keeps results in memory only.
func New(f Fetcher, pub Publisher, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	return &Pipeline{
		fetcher:   f,
		publisher: pub,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
}

// CheckReadiness returns nil once a table has been computed, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.latest.Load() == nil {
		return errors.New("no climatology table computed yet")
	}
	return nil
}

// Latest returns the most recently computed table.
func (p *Pipeline) Latest() (domain.WaterYearTable, bool) {
	res := p.latest.Load()
	if res == nil {
		return domain.WaterYearTable{}, false
	}
	return res.Table, true
}

// LatestResult returns the most recent run's full result, or nil.
func (p *Pipeline) LatestResult() *Result {
	return p.latest.Load()
}

// Run executes runs on the configured interval until the context is
// cancelled. The first run starts immediately. A failed run is retried with
// exponential backoff; runs never overlap.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started",
		"site", p.opts.Site, "variable", p.opts.Variable, "interval", p.opts.Interval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	if p.opts.Interval <= 0 {
		p.runWithRetry(ctx)
		p.logger.Info("pipeline stopping", "reason", "single run complete")
		return nil
	}

	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()
	if _, err := scheduler.Every(p.opts.Interval).StartImmediately().Do(p.runWithRetry, ctx); err != nil {
		return fmt.Errorf("schedule pipeline: %w", err)
	}
	scheduler.StartAsync()

	<-ctx.Done()
	scheduler.Stop()
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// RunOnce fetches the series, computes the table and publishes it. The
// result is stored as the latest table even when publishing fails.
func (p *Pipeline) RunOnce(ctx context.Context) (*Result, error) {
	r, err := p.prepare(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.publish(ctx, r); err != nil {
		return r.res, err
	}
	p.complete(r)
	return r.res, nil
}

// run carries one computed table between the prepare and publish steps.
type run struct {
	id       string
	logger   *slog.Logger
	start    time.Time
	readings int
	res      *Result
}

// prepare fetches and computes a table, records its data-quality metrics
// once and stores it as the latest result.
func (p *Pipeline) prepare(ctx context.Context) (*run, error) {
	r := &run{id: uuid.NewString(), start: time.Now()}
	r.logger = p.logger.With("run_id", r.id)
	today := domain.Today(p.opts.Location)

	req := domain.SeriesRequest{
		Site:     p.opts.Site,
		Variable: p.opts.Variable,
		Start:    p.opts.Start,
		End:      today,
	}
	series, err := p.fetcher.FetchSeries(ctx, req)
	if err != nil {
		p.metrics.Runs.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch series: %w", err)
	}
	r.readings = len(series.Readings)
	p.metrics.ReadingsFetched.Add(float64(r.readings))

	res, err := Compute(series, today, r.logger)
	if err != nil {
		p.metrics.Runs.WithLabelValues("error").Inc()
		return nil, err
	}
	p.recordCompute(res)

	res.Table.RunID = r.id
	res.Table.GeneratedAt = domain.Now().UTC()
	r.res = &res
	p.latest.Store(r.res)
	p.metrics.LastSuccess.Set(float64(res.Table.GeneratedAt.Unix()))
	return r, nil
}

func (p *Pipeline) publish(ctx context.Context, r *run) error {
	if p.publisher == nil {
		return nil
	}
	if err := p.publisher.Publish(ctx, r.res.Table); err != nil {
		p.metrics.Runs.WithLabelValues("error").Inc()
		return fmt.Errorf("publish table: %w", err)
	}
	p.metrics.TablesPublished.Inc()
	return nil
}

func (p *Pipeline) complete(r *run) {
	res := r.res
	outcome := "success"
	if res.Degraded() {
		outcome = "degraded"
	}
	p.metrics.Runs.WithLabelValues(outcome).Inc()
	p.metrics.RunDuration.Observe(time.Since(r.start).Seconds())

	r.logger.Info("run complete",
		"outcome", outcome,
		"water_year", res.Table.WaterYear,
		"readings", r.readings,
		"records", res.Normalize.Records,
		"malformed", len(res.Normalize.Malformed),
		"nulled", res.Nulled,
		"duration", time.Since(r.start),
	)
}

func (p *Pipeline) recordCompute(res Result) {
	p.metrics.MalformedRecords.Add(float64(len(res.Normalize.Malformed)))
	p.metrics.LeapDaysDropped.Add(float64(res.Normalize.LeapDaysDropped))
	p.metrics.DuplicateRecords.Add(float64(res.Normalize.Duplicates))
	p.metrics.ValuesNulled.Add(float64(res.Nulled))
	if res.Degraded() {
		p.metrics.MissingAnchors.Inc()
	}
}

// runWithRetry completes one run, retrying the failed step with exponential
// backoff until it succeeds, fails with a non-retryable error, or the context
// is cancelled. A table that failed to publish is republished as is rather
// than recomputed.
func (p *Pipeline) runWithRetry(ctx context.Context) {
	backoff := initialBackoff
	maxBackoff := p.maxBackoff()

	var r *run
	for {
		var err error
		if r == nil {
			r, err = p.prepare(ctx)
		}
		if err == nil {
			if err = p.publish(ctx, r); err == nil {
				p.complete(r)
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, domain.ErrMisalignedTable) {
			p.logger.Error("run failed, not retrying", "error", err)
			return
		}

		p.logger.Error("run failed", "error", err, "retry_in", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

func (p *Pipeline) maxBackoff() time.Duration {
	if p.opts.Interval > 0 && p.opts.Interval < defaultMaxBackoff {
		return p.opts.Interval
	}
	return defaultMaxBackoff
}
