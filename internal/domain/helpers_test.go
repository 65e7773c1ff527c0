package domain

import (
	"io"
	"log/slog"
	"strconv"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func reading(d time.Time, value float64, quality string) RawReading {
	return RawReading{
		DateTime:    d.Format("2006-01-02T15:04:05"),
		Value:       strconv.FormatFloat(value, 'f', -1, 64),
		QualityCode: quality,
	}
}

// dailyReadings returns one vetted reading per calendar day in [from, to],
// valued by valueFn.
func dailyReadings(from, to time.Time, valueFn func(time.Time) float64) []RawReading {
	var out []RawReading
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, reading(d, valueFn(d), AcceptedQualityCode))
	}
	return out
}
