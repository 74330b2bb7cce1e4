package xl

import (
	"slices"
	"strconv"
)

// MaxColumns is the widest worksheet Excel accepts (column XFD).
const MaxColumns = 16384

// Row maps column labels ("A", "B", ...) to cells.
type Row map[string]Cell

// Columns returns the labels of r in column order, so that "Z" sorts before
// "AA".
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		cols = append(cols, k)
	}
	slices.SortFunc(cols, func(a, b string) int {
		if len(a) != len(b) {
			return len(a) - len(b)
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	})
	return cols
}

func ColumnNumberAsLetters(n int) string {
	if n < 1 {
		panic("invalid column number")
	}
	var s string
	for n > 0 {
		s = string(rune((n-1)%26+65)) + s
		n = (n - 1) / 26
	}
	return s
}

// ColumnLettersAsNumber converts a column label to its 1-based number. It
// returns 0 for anything but upper case letters within A..XFD.
func ColumnLettersAsNumber(s string) int {
	if s == "" || len(s) > 3 {
		return 0
	}
	n := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch < 'A' || ch > 'Z' {
			return 0
		}
		n = n*26 + int(ch-'A'+1)
	}
	if n > MaxColumns {
		return 0
	}
	return n
}

func CellCoordAsString(col, row int) string {
	if row < 0 {
		panic("invalid row number")
	}
	return ColumnNumberAsLetters(col) + strconv.Itoa(row)
}
