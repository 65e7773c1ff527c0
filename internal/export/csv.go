// Package export renders a water-year table for consumers outside the service.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/couchcryptid/snowpack-climatology/internal/domain"
)

// Header is the CSV column order.
var Header = []string{"month_day", "day_of_year", "current", "median", "p25", "p75", "max", "min", "count"}

// WriteCSV writes the table as one header line followed by 365 rows in
// water-year order. Missing values are empty cells.
func WriteCSV(w io.Writer, table domain.WaterYearTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range table.Rows {
		record := []string{
			row.MonthDay,
			strconv.Itoa(row.DayOfYear),
			formatValue(row.Current),
			formatValue(row.Median),
			formatValue(row.P25),
			formatValue(row.P75),
			formatValue(row.Max),
			formatValue(row.Min),
			strconv.Itoa(row.Count),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
