// Command export fetches one SNOTEL series, computes its water-year
// climatology and writes the table to disk as CSV or JSON. It uses the same
// collector and compute path as the service, without scheduling or publishing.
//
// Usage:
//
//	go run ./cmd/export \
//	  -site 590_MT_SNTL \
//	  -variable SNOTEL:WTEQ_D \
//	  -start 1949-10-01 \
//	  -today 2025-02-15 \
//	  -out 590_MT_SNTL.csv
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/snowpack-climatology/internal/adapter/cuahsi"
	"github.com/couchcryptid/snowpack-climatology/internal/config"
	"github.com/couchcryptid/snowpack-climatology/internal/domain"
	"github.com/couchcryptid/snowpack-climatology/internal/export"
	"github.com/couchcryptid/snowpack-climatology/internal/observability"
	"github.com/couchcryptid/snowpack-climatology/internal/pipeline"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const defaultBaseURL = "https://hydroportal.cuahsi.org/Snotel/cuahsi_1_1.asmx"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	site := flag.String("site", "590_MT_SNTL", "SNOTEL site code")
	variable := flag.String("variable", "SNOTEL:WTEQ_D", "variable code")
	start := flag.String("start", "1949-10-01", "first date of the series (YYYY-MM-DD)")
	today := flag.String("today", "", "pin the current date (YYYY-MM-DD) for reproducible output")
	tz := flag.String("tz", "UTC", "site timezone used to resolve the current date")
	baseURL := flag.String("base-url", defaultBaseURL, "WaterOneFlow service URL")
	timeout := flag.Duration("timeout", 60*time.Second, "request timeout")
	format := flag.String("format", "csv", "output format: csv or json")
	out := flag.String("out", "", "output path (default <site>.<format>)")
	logLevel := flag.String("log-level", "warn", "log level: debug, info, warn or error")
	flag.Parse()

	seriesStart, err := time.Parse(time.DateOnly, *start)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	loc, err := time.LoadLocation(*tz)
	if err != nil {
		return fmt.Errorf("invalid -tz: %w", err)
	}
	*format = strings.ToLower(*format)
	if *format != "csv" && *format != "json" {
		flag.Usage()
		return fmt.Errorf("unsupported -format %q", *format)
	}
	if *out == "" {
		*out = *site + "." + *format
	}

	if *today != "" {
		pinned, err := time.ParseInLocation(time.DateOnly, *today, loc)
		if err != nil {
			return fmt.Errorf("invalid -today: %w", err)
		}
		domain.SetClock(clockwork.NewFakeClockAt(pinned.Add(12 * time.Hour)))
		defer domain.SetClock(nil)
	}

	logger := observability.NewLogger(&config.Config{LogLevel: *logLevel, LogFormat: "text"})
	client := cuahsi.NewClient(*baseURL, *timeout, observability.NewMetricsUnregistered(), logger)
	defer client.Close()

	asOf := domain.Today(loc)
	series, err := client.FetchSeries(context.Background(), domain.SeriesRequest{
		Site:     *site,
		Variable: *variable,
		Start:    seriesStart,
		End:      asOf,
	})
	if err != nil {
		return fmt.Errorf("fetch series: %w", err)
	}
	log.Printf("%s: %d readings", series.Label(), len(series.Readings))

	res, err := pipeline.Compute(series, asOf, logger)
	if err != nil {
		return fmt.Errorf("compute: %w", err)
	}
	res.Table.RunID = uuid.NewString()
	res.Table.GeneratedAt = domain.Now().UTC()

	if err := writeTable(*out, *format, res.Table); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}
	log.Printf("wrote %s", *out)

	printStats(res)
	return nil
}

func writeTable(path, format string, table domain.WaterYearTable) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if format == "json" {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	}
	return export.WriteCSV(f, table)
}

func printStats(res pipeline.Result) {
	var covered, totalCount int
	for _, row := range res.Table.Rows {
		if row.Count > 0 {
			covered++
		}
		totalCount += row.Count
	}

	fmt.Printf("\nWater year: %d\n", res.Table.WaterYear)
	fmt.Printf("Records: %d normalized, %d malformed, %d leap days dropped, %d duplicates\n",
		res.Normalize.Records, len(res.Normalize.Malformed), res.Normalize.LeapDaysDropped, res.Normalize.Duplicates)
	fmt.Printf("Values nulled by quality filter: %d\n", res.Nulled)
	fmt.Printf("Days with climatology: %d/%d (%d observations)\n", covered, domain.DaysPerWaterYear, totalCount)

	if res.Degraded() {
		fmt.Printf("Current water year: unavailable (%v)\n", res.CurrentErr)
		return
	}
	fmt.Printf("Current water year: %d days observed, last %s\n",
		res.Current.Observed(), res.Current.LastObserved.Format(time.DateOnly))
}
