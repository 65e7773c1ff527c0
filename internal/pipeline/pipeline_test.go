package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/snowpack-climatology/internal/domain"
	"github.com/couchcryptid/snowpack-climatology/internal/observability"
	"github.com/couchcryptid/snowpack-climatology/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockFetcher struct {
	mu       sync.Mutex
	series   domain.Series
	errs     []error // returned in order before succeeding
	requests []domain.SeriesRequest
	called   chan struct{}
}

func (m *mockFetcher) FetchSeries(ctx context.Context, req domain.SeriesRequest) (domain.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.called != nil {
		select {
		case m.called <- struct{}{}:
		default:
		}
	}
	if err := ctx.Err(); err != nil {
		return domain.Series{}, err
	}
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return domain.Series{}, err
	}
	return m.series, nil
}

func (m *mockFetcher) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

type mockPublisher struct {
	mu     sync.Mutex
	tables []domain.WaterYearTable
	err    error
	errs   []error // returned in order before err is consulted
	calls  int
}

func (m *mockPublisher) Publish(_ context.Context, table domain.WaterYearTable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return err
	}
	if m.err != nil {
		return m.err
	}
	m.tables = append(m.tables, table)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// makeSeries returns one vetted reading per day in [from, to].
func makeSeries(from, to time.Time, valueFn func(time.Time) float64) domain.Series {
	s := domain.Series{SiteCode: "590_MT_SNTL", SiteName: "Lone Mountain", VariableCode: "SNOTEL:WTEQ_D", Unit: "in"}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		s.Readings = append(s.Readings, domain.RawReading{
			DateTime:    d.Format("2006-01-02T15:04:05"),
			Value:       strconv.FormatFloat(valueFn(d), 'f', -1, 64),
			QualityCode: "1",
		})
	}
	return s
}

func seasonal(d time.Time) float64 {
	return float64((d.YearDay()*7+d.Year())%40) / 2
}

func freezeClock(t *testing.T, now time.Time) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { domain.SetClock(nil) })
}

func testOptions() pipeline.Options {
	return pipeline.Options{
		Site:     "590_MT_SNTL",
		Variable: "SNOTEL:WTEQ_D",
		Start:    date(1949, time.October, 1),
	}
}

// --- Compute ---

func TestCompute_BuildsTable(t *testing.T) {
	series := makeSeries(date(2020, time.October, 1), date(2024, time.November, 15), seasonal)

	res, err := pipeline.Compute(series, date(2024, time.November, 15), discardLogger())
	require.NoError(t, err)

	assert.False(t, res.Degraded())
	assert.False(t, res.Table.Degraded)
	require.NotNil(t, res.Current)
	assert.Equal(t, "590_MT_SNTL Lone Mountain", res.Table.Label)
	assert.Equal(t, "in", res.Table.Unit)
	assert.Equal(t, 2025, res.Table.WaterYear)
	assert.Len(t, res.Climatology, domain.DaysPerWaterYear)

	first := res.Table.Rows[0]
	assert.Equal(t, "10-01", first.MonthDay)
	require.NotNil(t, first.Current)
	assert.Equal(t, seasonal(date(2024, time.October, 1)), *first.Current)
	assert.Nil(t, res.Table.Rows[46].Current, "Nov 16 has not happened yet")
	assert.Empty(t, res.Table.RunID, "compute does not stamp run metadata")
}

func TestCompute_ReorderedInputIsIdempotent(t *testing.T) {
	series := makeSeries(date(2015, time.October, 1), date(2024, time.June, 15), seasonal)
	reordered := series
	reordered.Readings = make([]domain.RawReading, len(series.Readings))
	// Interleave from both ends.
	for i, j, k := 0, len(series.Readings)-1, 0; i <= j; k++ {
		if k%2 == 0 {
			reordered.Readings[k] = series.Readings[j]
			j--
		} else {
			reordered.Readings[k] = series.Readings[i]
			i++
		}
	}

	today := date(2024, time.June, 15)
	a, err := pipeline.Compute(series, today, discardLogger())
	require.NoError(t, err)
	b, err := pipeline.Compute(reordered, today, discardLogger())
	require.NoError(t, err)
	again, err := pipeline.Compute(series, today, discardLogger())
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("result depends on input order (-sorted +reordered):\n%s", diff)
	}
	if diff := cmp.Diff(a, again); diff != "" {
		t.Fatalf("repeated compute differs (-first +second):\n%s", diff)
	}
}

func TestCompute_MissingAnchorDegrades(t *testing.T) {
	// History ends before the active water year starts.
	series := makeSeries(date(2020, time.October, 1), date(2024, time.August, 31), seasonal)

	res, err := pipeline.Compute(series, date(2024, time.November, 15), discardLogger())
	require.NoError(t, err)

	assert.True(t, res.Degraded())
	assert.True(t, res.Table.Degraded)
	assert.ErrorIs(t, res.CurrentErr, domain.ErrMissingAnchorDate)
	assert.Nil(t, res.Current)
	for _, row := range res.Table.Rows {
		assert.Nil(t, row.Current)
	}
	assert.Equal(t, 4, res.Table.Rows[0].Count, "climatology is still produced")
}

func TestCompute_EmptySeries(t *testing.T) {
	res, err := pipeline.Compute(domain.Series{SiteCode: "590_MT_SNTL"}, date(2024, time.November, 15), discardLogger())
	require.NoError(t, err)

	assert.True(t, res.Degraded())
	assert.Equal(t, "590_MT_SNTL", res.Table.Label)
	for _, row := range res.Table.Rows {
		assert.Zero(t, row.Count)
		assert.Nil(t, row.Median)
	}
}

func TestCompute_CountsQualityAndMalformed(t *testing.T) {
	series := makeSeries(date(2024, time.October, 1), date(2024, time.October, 5), seasonal)
	series.Readings[1].QualityCode = "2"
	series.Readings[2].Value = "-9999"
	series.Readings = append(series.Readings, domain.RawReading{DateTime: "yesterday", Value: "1", QualityCode: "1"})

	res, err := pipeline.Compute(series, date(2024, time.October, 5), discardLogger())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Nulled)
	assert.Len(t, res.Normalize.Malformed, 1)
	assert.Equal(t, 5, res.Normalize.Records)
	assert.Nil(t, res.Table.Rows[1].Current)
	assert.Nil(t, res.Table.Rows[2].Current)
	assert.NotNil(t, res.Table.Rows[3].Current)
}

// --- RunOnce ---

func TestPipeline_RunOnce_HappyPath(t *testing.T) {
	now := time.Date(2024, time.November, 15, 18, 30, 0, 0, time.UTC)
	freezeClock(t, now)

	fetcher := &mockFetcher{series: makeSeries(date(2022, time.October, 1), date(2024, time.November, 15), seasonal)}
	publisher := &mockPublisher{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(fetcher, publisher, discardLogger(), metrics, testOptions())

	require.Error(t, p.CheckReadiness(context.Background()))

	res, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, fetcher.requests, 1)
	req := fetcher.requests[0]
	assert.Equal(t, "590_MT_SNTL", req.Site)
	assert.Equal(t, "SNOTEL:WTEQ_D", req.Variable)
	assert.Equal(t, date(1949, time.October, 1), req.Start)
	assert.Equal(t, date(2024, time.November, 15), req.End)

	require.Len(t, publisher.tables, 1)
	published := publisher.tables[0]
	assert.NotEmpty(t, published.RunID)
	assert.Equal(t, now, published.GeneratedAt)
	assert.Equal(t, 2025, published.WaterYear)
	assert.Equal(t, res.Table, published)

	require.NoError(t, p.CheckReadiness(context.Background()))
	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, published.RunID, latest.RunID)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Runs.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TablesPublished), 0)
	assert.InDelta(t, float64(len(fetcher.series.Readings)), testutil.ToFloat64(metrics.ReadingsFetched), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.LeapDaysDropped), 0, "2024-02-29")
}

func TestPipeline_RunOnce_SiteTimezoneDecidesToday(t *testing.T) {
	// 03:00 UTC on Oct 1 is still Sep 30 in Denver.
	freezeClock(t, time.Date(2024, time.October, 1, 3, 0, 0, 0, time.UTC))
	denver, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	fetcher := &mockFetcher{series: makeSeries(date(2023, time.October, 1), date(2024, time.September, 30), seasonal)}
	opts := testOptions()
	opts.Location = denver
	p := pipeline.New(fetcher, nil, discardLogger(), observability.NewMetricsForTesting(), opts)

	res, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, date(2024, time.September, 30), fetcher.requests[0].End)
	assert.Equal(t, 2024, res.Table.WaterYear)
	assert.False(t, res.Degraded())
}

func TestPipeline_RunOnce_DegradedIsStillPublished(t *testing.T) {
	freezeClock(t, time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC))

	fetcher := &mockFetcher{series: makeSeries(date(2022, time.October, 1), date(2024, time.September, 30), seasonal)}
	publisher := &mockPublisher{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(fetcher, publisher, discardLogger(), metrics, testOptions())

	res, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Degraded())
	assert.Len(t, publisher.tables, 1)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Runs.WithLabelValues("degraded")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.MissingAnchors), 0)
}

func TestPipeline_RunOnce_FetchError(t *testing.T) {
	fetcher := &mockFetcher{errs: []error{errors.New("connection refused")}}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(fetcher, &mockPublisher{}, discardLogger(), metrics, testOptions())

	res, err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "connection refused")

	assert.Error(t, p.CheckReadiness(context.Background()))
	_, ok := p.Latest()
	assert.False(t, ok)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Runs.WithLabelValues("error")), 0)
}

func TestPipeline_RunOnce_PublishErrorKeepsLatest(t *testing.T) {
	freezeClock(t, time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC))

	fetcher := &mockFetcher{series: makeSeries(date(2023, time.October, 1), date(2024, time.November, 15), seasonal)}
	publishErr := errors.New("broker unavailable")
	p := pipeline.New(fetcher, &mockPublisher{err: publishErr}, discardLogger(), observability.NewMetricsForTesting(), testOptions())

	res, err := p.RunOnce(context.Background())
	require.ErrorIs(t, err, publishErr)
	require.NotNil(t, res)

	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, res.Table.RunID, latest.RunID)
	assert.Same(t, res, p.LatestResult())
}

// --- Run ---

func TestPipeline_Run_SingleRunRetriesUntilSuccess(t *testing.T) {
	freezeClock(t, time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC))

	fetcher := &mockFetcher{
		series: makeSeries(date(2023, time.October, 1), date(2024, time.November, 15), seasonal),
		errs:   []error{errors.New("timeout")},
	}
	publisher := &mockPublisher{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(fetcher, publisher, discardLogger(), metrics, testOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 2, fetcher.calls())
	assert.Len(t, publisher.tables, 1)
	assert.NoError(t, p.CheckReadiness(ctx))
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_PublishRetryDoesNotRecompute(t *testing.T) {
	freezeClock(t, time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC))

	series := makeSeries(date(2023, time.October, 1), date(2024, time.November, 15), seasonal)
	series.Readings[3].QualityCode = "2"
	fetcher := &mockFetcher{series: series}
	publisher := &mockPublisher{errs: []error{errors.New("broker unavailable"), errors.New("broker unavailable")}}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(fetcher, publisher, discardLogger(), metrics, testOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, p.Run(ctx))

	assert.Equal(t, 1, fetcher.calls(), "publish retries reuse the computed table")
	assert.Equal(t, 3, publisher.calls)
	require.Len(t, publisher.tables, 1)

	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, latest.RunID, publisher.tables[0].RunID)

	assert.InDelta(t, float64(len(series.Readings)), testutil.ToFloat64(metrics.ReadingsFetched), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.LeapDaysDropped), 0, "2024-02-29")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ValuesNulled), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.Runs.WithLabelValues("error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Runs.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TablesPublished), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	fetcher := &mockFetcher{}
	p := pipeline.New(fetcher, &mockPublisher{}, discardLogger(), observability.NewMetricsForTesting(), testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ScheduledStartsImmediately(t *testing.T) {
	freezeClock(t, time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC))

	fetcher := &mockFetcher{
		series: makeSeries(date(2023, time.October, 1), date(2024, time.November, 15), seasonal),
		called: make(chan struct{}, 1),
	}
	publisher := &mockPublisher{}
	opts := testOptions()
	opts.Interval = time.Hour
	p := pipeline.New(fetcher, publisher, discardLogger(), observability.NewMetricsForTesting(), opts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	select {
	case <-fetcher.called:
	case <-time.After(5 * time.Second):
		t.Fatal("first run did not start")
	}
	require.Eventually(t, func() bool {
		return p.CheckReadiness(context.Background()) == nil
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop after cancellation")
	}
	assert.Equal(t, 1, fetcher.calls(), "next run is an hour away")
}
