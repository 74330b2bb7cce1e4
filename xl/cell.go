package xl

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Cell is a classified cell value. Cells are immutable once created.
type Cell struct {
	typ    CellType
	v      any
	format string
}

// CellType is the rendering category of a cell.
type CellType int

// Cell value types enumeration.
const (
	CellTypeString CellType = iota
	CellTypeNumber
	CellTypeDate
	CellTypeFormula
	CellTypeSharedString
)

func (t CellType) String() string {
	switch t {
	case CellTypeNumber:
		return "number"
	case CellTypeDate:
		return "datetime"
	case CellTypeFormula:
		return "formula"
	case CellTypeSharedString:
		return "sharedstring"
	default:
		return "string"
	}
}

func parseCellType(s string) (CellType, bool) {
	switch s {
	case "string":
		return CellTypeString, true
	case "number":
		return CellTypeNumber, true
	case "datetime":
		return CellTypeDate, true
	case "formula":
		return CellTypeFormula, true
	case "sharedstring":
		return CellTypeSharedString, true
	}
	return 0, false
}

// Typed is an explicit cell descriptor. Type is one of "string", "number",
// "datetime", "formula" or "sharedstring". Format is only honored for numbers
// and dates.
type Typed struct {
	Type   string
	Value  any
	Format string
}

func (c Cell) Type() CellType { return c.typ }
func (c Cell) Value() any { return c.v }
func (c Cell) Format() string { return c.format }

// layouts accepted for datetime values given as text
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Classify decides the type of v. Number and date formats referenced by the
// value are marked as used in f.
//
// Descriptors (Typed, *Typed, or a map with "type", "value" and optional
// "format" keys) win over the value's own shape; a descriptor of unknown type
// is text. Then finite Go numbers become numbers, time.Time becomes a date in
// FormatDateDefault, and everything else is rendered as text.
func Classify(v any, f *Formats) Cell {
	if d, ok := descriptor(v); ok {
		typ, known := parseCellType(d.Type)
		if !known {
			return Cell{typ: CellTypeString, v: fmt.Sprint(d.Value)}
		}
		return classifyTyped(typ, d, f)
	}
	return classifyValue(v, f)
}

func classifyTyped(typ CellType, d Typed, f *Formats) Cell {
	c := Cell{typ: typ, v: d.Value}
	if typ == CellTypeNumber && !isFinite(d.Value) {
		return Cell{typ: CellTypeString, v: fmt.Sprint(d.Value)}
	}
	if typ == CellTypeDate {
		t, ok := asTime(d.Value)
		if !ok {
			return Cell{typ: CellTypeString, v: fmt.Sprint(d.Value)}
		}
		c.v = t
	}
	if (typ == CellTypeNumber || typ == CellTypeDate) && d.Format != "" {
		f.MarkUsed(d.Format)
		c.format = d.Format
	}
	return c
}

func classifyValue(v any, f *Formats) Cell {
	if isNumber(v) {
		if !isFinite(v) {
			return Cell{typ: CellTypeString, v: fmt.Sprint(v)}
		}
		return Cell{typ: CellTypeNumber, v: v}
	}
	switch t := v.(type) {
	case time.Time:
		f.MarkUsed(FormatDateDefault)
		return Cell{typ: CellTypeDate, v: t, format: FormatDateDefault}
	case *time.Time:
		if t != nil {
			f.MarkUsed(FormatDateDefault)
			return Cell{typ: CellTypeDate, v: *t, format: FormatDateDefault}
		}
	}
	if v == nil {
		return Cell{typ: CellTypeString, v: ""}
	}
	return Cell{typ: CellTypeString, v: fmt.Sprint(v)}
}

func descriptor(v any) (Typed, bool) {
	switch d := v.(type) {
	case Typed:
		return d, d.Value != nil
	case *Typed:
		if d == nil {
			return Typed{}, false
		}
		return *d, d.Value != nil
	case map[string]any:
		typ, ok := d["type"].(string)
		if !ok || d["value"] == nil {
			return Typed{}, false
		}
		format, _ := d["format"].(string)
		return Typed{Type: typ, Value: d["value"], Format: format}, true
	}
	return Typed{}, false
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return true
	}
	return false
}

// isFinite is false for NaN and infinities, which have no cell value form.
func isFinite(v any) bool {
	switch n := v.(type) {
	case float64:
		return !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return !math.IsNaN(float64(n)) && !math.IsInf(float64(n), 0)
	}
	return true
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
	case string:
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}
