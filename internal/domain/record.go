package domain

import (
	"strings"
	"time"
)

// RawReading is one reading as delivered by the collector. Fields are kept as
// text; the normalizer owns parsing.
type RawReading struct {
	DateTime    string `json:"datetime"`
	Value       string `json:"value"`
	QualityCode string `json:"quality_control_level_code"`
}

// SeriesRequest selects a single site/variable series over a date range.
type SeriesRequest struct {
	Site     string
	Variable string
	Start    time.Time
	End      time.Time
}

// Series is the collector's answer to a SeriesRequest.
type Series struct {
	SiteCode     string
	SiteName     string
	VariableCode string
	VariableName string
	Unit         string
	Readings     []RawReading
}

// Label is the display label for the series: the site code, followed by the
// site name when the source reported one.
func (s Series) Label() string {
	name := strings.TrimSpace(s.SiteName)
	if name == "" {
		return s.SiteCode
	}
	return s.SiteCode + " " + name
}

// DailyRecord is a normalized daily observation.
type DailyRecord struct {
	Date        time.Time `json:"date"`
	Value       *float64  `json:"value"` // nil when missing or invalid
	QualityCode string    `json:"quality_code"`
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	Day         int       `json:"day"`
	WaterYear   int       `json:"water_year"`
	DayOfYear   int       `json:"day_of_year"`
}

// DayOfYearStats summarizes every filtered observation that falls on one day
// of year. All statistics are nil when Count is 0; Std is also nil when Count
// is 1 because the sample deviation is undefined.
type DayOfYearStats struct {
	DayOfYear int      `json:"day_of_year"`
	Count     int      `json:"count"`
	Min       *float64 `json:"min"`
	Max       *float64 `json:"max"`
	Mean      *float64 `json:"mean"`
	Std       *float64 `json:"std"`
	Median    *float64 `json:"median"`
	P25       *float64 `json:"p25"`
	P75       *float64 `json:"p75"`
}

// CurrentPeriodSeries holds the active water year's observations in
// water-year order (index 0 = Oct 1). Positions without an observation are nil.
type CurrentPeriodSeries struct {
	WaterYear    int                        `json:"water_year"`
	Anchor       time.Time                  `json:"anchor"`
	LastObserved time.Time                  `json:"last_observed"`
	Values       [DaysPerWaterYear]*float64 `json:"values"`
}

// Observed returns the number of non-nil positions.
func (c CurrentPeriodSeries) Observed() int {
	n := 0
	for _, v := range c.Values {
		if v != nil {
			n++
		}
	}
	return n
}

// TableMeta carries the display fields passed through to the presentation layer.
type TableMeta struct {
	Label     string
	Unit      string
	WaterYear int
}

// WaterYearRow is one day of the assembled table.
type WaterYearRow struct {
	MonthDay     string    `json:"month_day"`
	CalendarDate time.Time `json:"calendar_date"`
	DayOfYear    int       `json:"day_of_year"`
	Current      *float64  `json:"current"`
	Median       *float64  `json:"median"`
	P25          *float64  `json:"p25"`
	P75          *float64  `json:"p75"`
	Max          *float64  `json:"max"`
	Min          *float64  `json:"min"`
	Count        int       `json:"count"`
}

// WaterYearTable is the climatology and current-year overlay ordered
// Oct 1 (row 0) through Sep 30 (row 364).
//
// Degraded is true when the active water year had no anchor record and the
// current column was left empty. A non-degraded table may still have nil
// current values, including on Oct 1, where the observation was filtered out.
//
// RunID and GeneratedAt are stamped by the pipeline run that produced the
// table; Assemble leaves them zero.
type WaterYearTable struct {
	Label       string                         `json:"label"`
	Unit        string                         `json:"unit,omitempty"`
	WaterYear   int                            `json:"water_year"`
	Degraded    bool                           `json:"degraded"`
	RunID       string                         `json:"run_id,omitempty"`
	GeneratedAt time.Time                      `json:"generated_at"`
	Rows        [DaysPerWaterYear]WaterYearRow `json:"rows"`
}
