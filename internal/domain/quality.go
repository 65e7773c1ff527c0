package domain

const (
	// AcceptedQualityCode is the only quality code whose values are kept.
	AcceptedQualityCode = "1"

	// MissingValueSentinel is the source's no-data marker.
	MissingValueSentinel = -9999.0
)

// FilterQuality returns a copy of records with Value set to nil wherever the
// quality code is not accepted or the value is the no-data sentinel. The int
// is the number of values this call nulled.
func FilterQuality(records []DailyRecord) ([]DailyRecord, int) {
	out := make([]DailyRecord, len(records))
	nulled := 0
	for i, rec := range records {
		out[i] = rec
		if rec.Value == nil {
			continue
		}
		if rec.QualityCode != AcceptedQualityCode || *rec.Value == MissingValueSentinel {
			out[i].Value = nil
			nulled++
		}
	}
	return out, nulled
}
