package domain

import "time"

const (
	// DaysPerWaterYear is the fixed length of the modeled water year; leap days
	// are excluded.
	DaysPerWaterYear = 365

	// WaterYearStartDayOfYear is the day of year of October 1.
	WaterYearStartDayOfYear = 274

	// referenceYear is the non-leap year used to number days of year.
	referenceYear = 1970
)

// rowLabelOrigin is the calendar label of row 0.
var rowLabelOrigin = time.Date(referenceYear-1, time.October, 1, 0, 0, 0, 0, time.UTC)

// WaterYear returns the water year containing t: the calendar year for
// January through September, the following year for October through December.
func WaterYear(t time.Time) int {
	if t.Month() >= time.October {
		return t.Year() + 1
	}
	return t.Year()
}

// DayOfYear numbers month/day against the non-leap reference year. It
// reports false for February 29 and for dates that do not exist.
func DayOfYear(month time.Month, day int) (int, bool) {
	if month == time.February && day == 29 {
		return 0, false
	}
	d := time.Date(referenceYear, month, day, 0, 0, 0, 0, time.UTC)
	if d.Month() != month || d.Day() != day {
		return 0, false
	}
	return d.YearDay(), true
}

// ActiveWaterYear returns the water year that today falls in.
func ActiveWaterYear(today time.Time) int {
	return WaterYear(today)
}

// AnchorDate returns October 1 that starts the given water year.
func AnchorDate(waterYear int) time.Time {
	return time.Date(waterYear-1, time.October, 1, 0, 0, 0, 0, time.UTC)
}

// RowIndex maps a day of year to its water-year row (Oct 1 = 0). It returns
// -1 for values outside 1..365.
func RowIndex(dayOfYear int) int {
	if dayOfYear < 1 || dayOfYear > DaysPerWaterYear {
		return -1
	}
	return (dayOfYear - WaterYearStartDayOfYear + DaysPerWaterYear) % DaysPerWaterYear
}

// DayOfYearForRow is the inverse of RowIndex. It returns -1 for rows outside
// 0..364.
func DayOfYearForRow(row int) int {
	if row < 0 || row >= DaysPerWaterYear {
		return -1
	}
	return (row+WaterYearStartDayOfYear-1)%DaysPerWaterYear + 1
}

// RowDate returns the calendar label for a row, counting days from 1969-10-01.
func RowDate(row int) time.Time {
	return rowLabelOrigin.AddDate(0, 0, row)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
