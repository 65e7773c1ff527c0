package domain

import "time"

// ExtractCurrent builds the active water year's series as of today.
//
// The active water year starts on its anchor date (Oct 1). A record must exist
// on that exact date, otherwise a MissingAnchorDateError is returned and no
// series is produced. Records inside the water year are placed by day of year,
// so a gap leaves nil positions rather than shifting later values. Positions
// after the last observation are nil.
func ExtractCurrent(records []DailyRecord, today time.Time) (CurrentPeriodSeries, error) {
	waterYear := ActiveWaterYear(today)
	anchor := AnchorDate(waterYear)
	end := AnchorDate(waterYear + 1)

	series := CurrentPeriodSeries{WaterYear: waterYear, Anchor: anchor}
	found := false

	for _, rec := range records {
		if rec.Date.Before(anchor) || !rec.Date.Before(end) {
			continue
		}
		row := RowIndex(rec.DayOfYear)
		if row < 0 {
			continue
		}
		if rec.Date.Equal(anchor) {
			found = true
		}
		series.Values[row] = clonePtr(rec.Value)
		if rec.Date.After(series.LastObserved) {
			series.LastObserved = rec.Date
		}
	}

	if !found {
		return CurrentPeriodSeries{}, &MissingAnchorDateError{WaterYear: waterYear, Anchor: anchor}
	}
	return series, nil
}
