package xl

import (
	"testing"
	"time"
)

func TestExcelSerial(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want float64
	}{
		{"first day", time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC), 1},
		{"last day before phantom leap day", time.Date(1900, 2, 28, 0, 0, 0, 0, time.UTC), 59},
		{"first day after phantom leap day", time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC), 61},
		{"base date", time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC), 1},
		{"millennium", time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), 36526},
		{"noon", time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), 45306.5},
		{"quarter day", time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC), 45306.25},
		{"leap day", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), 45351},
	}

	for _, tt := range tests {
		if got := ExcelSerial(tt.t); got != tt.want {
			t.Errorf("%s: ExcelSerial(%v) = %v, expected %v", tt.name, tt.t, got, tt.want)
		}
	}
}

func TestExcelSerialIgnoresZone(t *testing.T) {
	utc := time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)
	east := time.Date(2024, 1, 15, 18, 0, 0, 0, time.FixedZone("UTC+5", 5*3600))

	if a, b := ExcelSerial(utc), ExcelSerial(east); a != b {
		t.Errorf("wall clock conversion differs by zone: %v vs %v", a, b)
	}
}

func TestExcelSerialLeapBugBoundary(t *testing.T) {
	before := ExcelSerial(time.Date(1900, 2, 28, 0, 0, 0, 0, time.UTC))
	after := ExcelSerial(time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC))
	if after-before != 2 {
		t.Errorf("expected a two day step across 1900-02-29, got %v", after-before)
	}
}
