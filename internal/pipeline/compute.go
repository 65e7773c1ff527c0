package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/snowpack-climatology/internal/domain"
)

// Result is the outcome of one computation over a fetched series.
type Result struct {
	Table       domain.WaterYearTable
	Climatology []domain.DayOfYearStats
	// Current is nil when the active water year has no anchor record.
	Current    *domain.CurrentPeriodSeries
	CurrentErr error

	Normalize domain.NormalizeSummary
	Nulled    int
}

// Degraded reports whether the table was produced without a current column.
func (r Result) Degraded() bool {
	return r.CurrentErr != nil
}

// Compute runs normalize, filter, aggregate, extract and assemble over one
// series as of today. It performs no I/O. A missing anchor date degrades the
// result instead of failing it; a misaligned table fails it.
func Compute(series domain.Series, today time.Time, logger *slog.Logger) (Result, error) {
	records, summary := domain.Normalize(series.Readings, logger)
	filtered, nulled := domain.FilterQuality(records)

	res := Result{
		Climatology: domain.Aggregate(filtered),
		Normalize:   summary,
		Nulled:      nulled,
	}

	current, err := domain.ExtractCurrent(filtered, today)
	switch {
	case errors.Is(err, domain.ErrMissingAnchorDate):
		logger.Warn("current water year unavailable, emitting climatology only",
			"site", series.SiteCode, "error", err)
		res.CurrentErr = err
	case err != nil:
		return Result{}, fmt.Errorf("extract current period: %w", err)
	default:
		res.Current = &current
	}

	meta := domain.TableMeta{
		Label:     series.Label(),
		Unit:      series.Unit,
		WaterYear: domain.ActiveWaterYear(today),
	}
	table, err := domain.Assemble(meta, res.Climatology, res.Current)
	if err != nil {
		return Result{}, fmt.Errorf("assemble table: %w", err)
	}
	table.Degraded = res.Degraded()
	res.Table = table

	return res, nil
}
