// Command validate checks an exported water-year table for structural
// integrity: row alignment, statistic ordering, the current-year column, and
// (optionally) parity between the JSON and CSV renderings of the same table.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -json 590_MT_SNTL.json \
//	  -csv 590_MT_SNTL.csv
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/couchcryptid/snowpack-climatology/internal/domain"
	"github.com/couchcryptid/snowpack-climatology/internal/export"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	jsonPath := flag.String("json", "", "path to a JSON water-year table")
	csvPath := flag.String("csv", "", "optional path to the CSV export of the same table")
	flag.Parse()

	if *jsonPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*jsonPath, *csvPath); code != 0 {
		os.Exit(code)
	}
}

func run(jsonPath, csvPath string) int {
	fmt.Println("=== Water-Year Table Validation ===")
	fmt.Println()

	table, err := loadTable(jsonPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load table: %v\n", err)
		return 1
	}

	phases := validateTable(table)

	if csvPath != "" {
		records, err := loadCSV(csvPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load CSV: %v\n", err)
			return 1
		}
		phases = append(phases, validateCSVParity(table, records))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Table: %s, water year %d, run %s\n", table.Label, table.WaterYear, table.RunID)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// validateTable runs every check that needs only the table itself.
func validateTable(table domain.WaterYearTable) []*phase {
	return []*phase{
		validateAlignment(table),
		validateStatistics(table),
		validateCurrent(table),
	}
}

// ── Data loading ──

func loadTable(path string) (domain.WaterYearTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.WaterYearTable{}, err
	}
	var table domain.WaterYearTable
	if err := json.Unmarshal(data, &table); err != nil {
		return domain.WaterYearTable{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return table, nil
}

func loadCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) < 2 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}
	return all, nil
}

// ── Phase 1: row alignment ──

func validateAlignment(table domain.WaterYearTable) *phase {
	p := &phase{name: "Phase 1: Row alignment"}

	if table.Label == "" {
		p.errorf("table has no label")
	}
	for i, row := range table.Rows {
		want := domain.DayOfYearForRow(i)
		if row.DayOfYear != want {
			p.errorf("row %d: day_of_year=%d, want %d", i, row.DayOfYear, want)
		}
		label := domain.RowDate(i).Format("01-02")
		if row.MonthDay != label {
			p.errorf("row %d: month_day=%q, want %q", i, row.MonthDay, label)
		}
		if !row.CalendarDate.Equal(domain.RowDate(i)) {
			p.errorf("row %d: calendar_date=%s, want %s", i,
				row.CalendarDate.Format("2006-01-02"), domain.RowDate(i).Format("2006-01-02"))
		}
	}
	return p
}

// ── Phase 2: statistic ordering ──

func validateStatistics(table domain.WaterYearTable) *phase {
	p := &phase{name: "Phase 2: Statistic ordering"}

	for i := range table.Rows {
		checkStatsRow(p, i, &table.Rows[i])
	}
	return p
}

func checkStatsRow(p *phase, i int, row *domain.WaterYearRow) {
	stats := []*float64{row.Min, row.P25, row.Median, row.P75, row.Max}

	switch {
	case row.Count < 0:
		p.errorf("row %d (%s): negative count %d", i, row.MonthDay, row.Count)
	case row.Count == 0:
		if slices.ContainsFunc(stats, func(v *float64) bool { return v != nil }) {
			p.errorf("row %d (%s): statistics present with count 0", i, row.MonthDay)
		}
	default:
		if slices.Contains(stats, nil) {
			p.errorf("row %d (%s): missing statistic with count %d", i, row.MonthDay, row.Count)
			return
		}
		for k := 1; k < len(stats); k++ {
			if *stats[k-1] > *stats[k] {
				p.errorf("row %d (%s): min<=p25<=median<=p75<=max violated: %g > %g",
					i, row.MonthDay, *stats[k-1], *stats[k])
				return
			}
		}
	}
}

// ── Phase 3: current water year ──

func validateCurrent(table domain.WaterYearTable) *phase {
	p := &phase{name: "Phase 3: Current water year"}

	if table.Degraded {
		for i, row := range table.Rows {
			if row.Current != nil {
				p.errorf("row %d (%s): current value in a degraded table", i, row.MonthDay)
			}
		}
		return p
	}
	if table.WaterYear == 0 {
		p.errorf("current column present but water_year is unset")
	}
	return p
}

// ── Phase 4: JSON / CSV parity ──

func validateCSVParity(table domain.WaterYearTable, records [][]string) *phase {
	p := &phase{name: "Phase 4: JSON/CSV parity"}

	if !slices.Equal(records[0], export.Header) {
		p.errorf("csv header=%v, want %v", records[0], export.Header)
		return p
	}
	if got := len(records) - 1; got != domain.DaysPerWaterYear {
		p.errorf("csv has %d data rows, want %d", got, domain.DaysPerWaterYear)
		return p
	}

	for i, rec := range records[1:] {
		row := &table.Rows[i]
		if rec[0] != row.MonthDay {
			p.errorf("row %d: csv month_day=%q, json %q", i, rec[0], row.MonthDay)
		}
		if rec[8] != strconv.Itoa(row.Count) {
			p.errorf("row %d: csv count=%s, json %d", i, rec[8], row.Count)
		}
		cells := []*float64{row.Current, row.Median, row.P25, row.P75, row.Max, row.Min}
		for k, want := range cells {
			col := k + 2
			if !cellEq(rec[col], want) {
				p.errorf("row %d: csv %s=%q, json %s", i, export.Header[col], rec[col], ptrFloat(want))
			}
		}
	}
	return p
}

// ── Helpers ──

func cellEq(cell string, v *float64) bool {
	if v == nil {
		return cell == ""
	}
	got, err := strconv.ParseFloat(cell, 64)
	return err == nil && got == *v
}

func ptrFloat(v *float64) string {
	if v == nil {
		return "<nil>"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
