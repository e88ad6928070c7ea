package formula

import "time"

// Excel serial dates: serial 1 is 1900-01-01, but Excel also counts the
// nonexistent 1900-02-29 (serial 60). Real dates from 1900-03-01 onward are
// therefore one day ahead of a naive count, which is the same as measuring
// against an epoch of 1899-12-30. Both conversions below compensate so that
// serials round-trip against the values Excel itself stores.

var (
	serialBase = time.Date(1899, time.December, 31, 0, 0, 0, 0, time.UTC)
	// First real date affected by the phantom leap day.
	leapBugCutoff = time.Date(1900, time.March, 1, 0, 0, 0, 0, time.UTC)
)

// DateSerial returns the Excel serial number for a calendar date.
func DateSerial(year, month, day int) float64 {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	days := int(t.Sub(serialBase).Hours() / 24)
	if !t.Before(leapBugCutoff) {
		days++ // account for Excel's 1900-02-29
	}
	return float64(days)
}

// SerialDate converts an Excel serial number back to a calendar date.
// The fractional part (time of day) is truncated.
func SerialDate(serial float64) time.Time {
	days := int(serial)
	if days >= 61 {
		days--
	}
	return serialBase.AddDate(0, 0, days)
}

// SerialYear, SerialMonth and SerialDay extract date components from a
// serial number, matching the YEAR/MONTH/DAY worksheet functions.
func SerialYear(serial float64) int  { return SerialDate(serial).Year() }
func SerialMonth(serial float64) int { return int(SerialDate(serial).Month()) }
func SerialDay(serial float64) int   { return SerialDate(serial).Day() }
