// Package domain models daily snow water equivalent (SWE) observations and the
// water-year climatology built from them.
//
// # Data Source
//
// Observations come from NRCS SNOTEL stations, served through the CUAHSI
// HydroServer WaterOneFlow 1.1 API. Each reading is a daily value with a
// WaterML dateTime, the value as text, and a quality control level code. The
// collector hands readings over untouched as [RawReading]; all parsing and
// validation happens here.
//
// # Calendar Conventions
//
// Water year:
//
//	October 1 through September 30, labelled by the calendar year in which it
//	ends. 2024-10-01 belongs to water year 2025; 2024-09-30 to water year 2024.
//
// Day of year:
//
//	1..365, numbered against the non-leap reference year 1970, so the same
//	month/day maps to the same number in every year (Oct 1 is always 274).
//	February 29 has no day-of-year and is dropped during normalization. The
//	climatology therefore always has exactly 365 buckets.
//
// Table rows:
//
//	Row 0 is Oct 1 (day 274), row 91 is Dec 31 (day 365), row 92 is Jan 1
//	(day 1) and row 364 is Sep 30 (day 273). [RowIndex] and [DayOfYearForRow]
//	are the only places that encode this mapping; every stage that places a
//	value into a water-year position goes through them.
//
// Calendar labels:
//
//	Rows are labelled with dates starting at the fixed reference date
//	1969-10-01 and advancing one day at a time. The period has no leap day.
//
// # Quality Conventions
//
//	Quality code "1" marks a value that passed NRCS review; any other code is
//	treated as missing. -9999 is the source's no-data sentinel. Empty or
//	non-numeric value text is also missing. Missing values are carried as nil
//	rather than dropped so the record still anchors its date.
//
// # Error Kinds
//
//	[ErrMalformedRecord]   unparsable date; the record is skipped and logged.
//	[ErrMissingAnchorDate] no record on Oct 1 of the active water year; the
//	                       current-period column is left empty.
//	[ErrMisalignedTable]   the climatology does not cover each day exactly
//	                       once; no table is produced.
package domain
