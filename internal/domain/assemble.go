package domain

import "fmt"

// Assemble places the climatology and the current-period series into one
// water-year table. Buckets may arrive in any order; each is placed at
// RowIndex(DayOfYear). A climatology that does not cover every day exactly
// once is rejected with ErrMisalignedTable. A nil current leaves the current
// column empty.
func Assemble(meta TableMeta, climatology []DayOfYearStats, current *CurrentPeriodSeries) (WaterYearTable, error) {
	if len(climatology) != DaysPerWaterYear {
		return WaterYearTable{}, fmt.Errorf("%w: %d buckets, want %d", ErrMisalignedTable, len(climatology), DaysPerWaterYear)
	}

	table := WaterYearTable{
		Label:     meta.Label,
		Unit:      meta.Unit,
		WaterYear: meta.WaterYear,
	}

	var placed [DaysPerWaterYear]bool
	for _, bucket := range climatology {
		row := RowIndex(bucket.DayOfYear)
		if row < 0 {
			return WaterYearTable{}, fmt.Errorf("%w: day of year %d out of range", ErrMisalignedTable, bucket.DayOfYear)
		}
		if placed[row] {
			return WaterYearTable{}, fmt.Errorf("%w: day of year %d appears twice", ErrMisalignedTable, bucket.DayOfYear)
		}
		placed[row] = true

		table.Rows[row] = WaterYearRow{
			DayOfYear: bucket.DayOfYear,
			Median:    clonePtr(bucket.Median),
			P25:       clonePtr(bucket.P25),
			P75:       clonePtr(bucket.P75),
			Max:       clonePtr(bucket.Max),
			Min:       clonePtr(bucket.Min),
			Count:     bucket.Count,
		}
	}

	for row := range table.Rows {
		date := RowDate(row)
		labelDay, _ := DayOfYear(date.Month(), date.Day())
		if labelDay != table.Rows[row].DayOfYear || DayOfYearForRow(row) != labelDay {
			return WaterYearTable{}, fmt.Errorf("%w: row %d labelled %s holds day of year %d",
				ErrMisalignedTable, row, date.Format("01-02"), table.Rows[row].DayOfYear)
		}

		table.Rows[row].CalendarDate = date
		table.Rows[row].MonthDay = date.Format("01-02")
		if current != nil {
			table.Rows[row].Current = clonePtr(current.Values[row])
		}
	}

	return table, nil
}
