package domain

import "github.com/couchcryptid/snowpack-climatology/internal/stats"

// Aggregate groups quality-filtered records by day of year and summarizes
// each group's non-nil values. The result always has 365 entries ordered by
// day of year; days without values have Count 0 and nil statistics.
func Aggregate(records []DailyRecord) []DayOfYearStats {
	buckets := make([][]float64, DaysPerWaterYear)
	for _, rec := range records {
		if rec.Value == nil || RowIndex(rec.DayOfYear) < 0 {
			continue
		}
		buckets[rec.DayOfYear-1] = append(buckets[rec.DayOfYear-1], *rec.Value)
	}

	out := make([]DayOfYearStats, DaysPerWaterYear)
	for i, values := range buckets {
		out[i] = summarize(i+1, values)
	}
	return out
}

func summarize(dayOfYear int, values []float64) DayOfYearStats {
	s, ok := stats.Describe(values)
	if !ok {
		return DayOfYearStats{DayOfYear: dayOfYear}
	}

	out := DayOfYearStats{
		DayOfYear: dayOfYear,
		Count:     s.Count,
		Min:       ptr(s.Min),
		Max:       ptr(s.Max),
		Mean:      ptr(s.Mean),
		Median:    ptr(s.Median),
		P25:       ptr(s.P25),
		P75:       ptr(s.P75),
	}
	if s.HasStd {
		out.Std = ptr(s.Std)
	}
	return out
}

func ptr(v float64) *float64 { return &v }

// clonePtr copies the pointed-to value so stages never share storage.
func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return ptr(*v)
}
