package xl

import "time"

// Julian day numbers used by the serial date conversion.
const (
	julianEpochOffset = 1721119
	excelBaseDate     = 2415020 // JD of 1899-12-31, serial 0
)

// ExcelSerial converts t to a serial number in the 1900 date system: the
// integer part counts days, the fraction is the time of day. The wall clock
// of t is used as is, no time zone conversion takes place.
//
// Excel treats 1900 as a leap year. Serials of dates after February 1900 are
// shifted by one day to account for the fictitious 1900-02-29.
func ExcelSerial(t time.Time) float64 {
	year, m, day := t.Date()
	month := int(m)
	hour, minute, second := t.Clock()

	leapBug := 1
	if year == 1900 && month <= 2 {
		leapBug = 0
	}

	if month > 2 {
		month -= 3
	} else {
		month += 9
		year--
	}

	century := year / 100
	decade := year % 100

	days := (146097*century)/4 + (1461*decade)/4 + (153*month+2)/5 +
		day + julianEpochOffset - excelBaseDate + leapBug

	fraction := float64(hour*3600+minute*60+second) / 86400

	return float64(days) + fraction
}
