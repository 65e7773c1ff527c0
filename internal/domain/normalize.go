package domain

import (
	"cmp"
	"errors"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// dateLayouts lists the accepted reading timestamp formats, most common first.
// WaterML 1.1 emits local times without an offset.
var dateLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.DateOnly,
	time.DateTime,
}

var errUnparsableDate = errors.New("unparsable date")

// NormalizeSummary reports what Normalize did with its input.
type NormalizeSummary struct {
	Input           int
	Records         int
	LeapDaysDropped int
	Duplicates      int
	Malformed       []error // each wraps ErrMalformedRecord
}

// Normalize converts raw readings into daily records sorted by date.
//
// Readings with an unparsable date are skipped and logged; each produces a
// MalformedRecordError in the summary. Feb 29 readings are dropped. Value text
// that is empty, non-numeric, or non-finite becomes a nil value. When several
// readings share a date, the first after ordering by quality code and value
// text is kept, so the result does not depend on input order.
func Normalize(readings []RawReading, logger *slog.Logger) ([]DailyRecord, NormalizeSummary) {
	summary := NormalizeSummary{Input: len(readings)}

	type candidate struct {
		record   DailyRecord
		rawValue string
	}
	candidates := make([]candidate, 0, len(readings))

	for i, r := range readings {
		date, err := parseDate(r.DateTime)
		if err != nil {
			merr := &MalformedRecordError{Index: i, DateTime: r.DateTime, Err: err}
			logger.Warn("skipping malformed record",
				"index", i,
				"datetime", r.DateTime,
				"error", err,
			)
			summary.Malformed = append(summary.Malformed, merr)
			continue
		}

		dayOfYear, ok := DayOfYear(date.Month(), date.Day())
		if !ok {
			summary.LeapDaysDropped++
			continue
		}

		quality := strings.TrimSpace(r.QualityCode)
		candidates = append(candidates, candidate{
			record: DailyRecord{
				Date:        date,
				Value:       parseValue(r.Value),
				QualityCode: quality,
				Year:        date.Year(),
				Month:       int(date.Month()),
				Day:         date.Day(),
				WaterYear:   WaterYear(date),
				DayOfYear:   dayOfYear,
			},
			rawValue: strings.TrimSpace(r.Value),
		})
	}

	slices.SortFunc(candidates, func(a, b candidate) int {
		return cmp.Or(
			a.record.Date.Compare(b.record.Date),
			cmp.Compare(a.record.QualityCode, b.record.QualityCode),
			cmp.Compare(a.rawValue, b.rawValue),
		)
	})

	records := make([]DailyRecord, 0, len(candidates))
	for _, c := range candidates {
		if n := len(records); n > 0 && records[n-1].Date.Equal(c.record.Date) {
			summary.Duplicates++
			continue
		}
		records = append(records, c.record)
	}

	if summary.Duplicates > 0 {
		logger.Warn("dropped duplicate dates", "duplicates", summary.Duplicates)
	}

	summary.Records = len(records)
	return records, summary
}

// parseDate reads a reading timestamp and keeps only its calendar date.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errUnparsableDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), nil
		}
	}
	return time.Time{}, errUnparsableDate
}

// parseValue returns nil for empty, non-numeric, or non-finite text.
func parseValue(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
