package xl

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		input  any
		typ    CellType
		value  any
		format string
	}{
		{"int", 42, CellTypeNumber, 42, ""},
		{"float", 3.5, CellTypeNumber, 3.5, ""},
		{"json number", json.Number("7"), CellTypeNumber, json.Number("7"), ""},
		{"time", ts, CellTypeDate, ts, FormatDateDefault},
		{"time pointer", &ts, CellTypeDate, ts, FormatDateDefault},
		{"string", "hello", CellTypeString, "hello", ""},
		{"numeric text stays text", "12", CellTypeString, "12", ""},
		{"bool", true, CellTypeString, "true", ""},
		{"nil", nil, CellTypeString, "", ""},
		{"typed number", Typed{Type: "number", Value: 5, Format: FormatPercentage0}, CellTypeNumber, 5, FormatPercentage0},
		{"typed pointer", &Typed{Type: "number", Value: 5}, CellTypeNumber, 5, ""},
		{"typed string drops format", Typed{Type: "string", Value: 5, Format: FormatNumber00}, CellTypeString, 5, ""},
		{"typed formula", Typed{Type: "formula", Value: "SUM(A1:A3)"}, CellTypeFormula, "SUM(A1:A3)", ""},
		{"typed shared string", Typed{Type: "sharedstring", Value: 3}, CellTypeSharedString, 3, ""},
		{"typed datetime", Typed{Type: "datetime", Value: ts, Format: FormatDateYYYYMMDD}, CellTypeDate, ts, FormatDateYYYYMMDD},
		{"typed datetime text", Typed{Type: "datetime", Value: "2024-05-01 10:30:00"}, CellTypeDate, ts, ""},
		{"typed datetime garbage", Typed{Type: "datetime", Value: "soon"}, CellTypeString, "soon", ""},
		{"unknown type is text", Typed{Type: "currency", Value: 12}, CellTypeString, "12", ""},
		{"unknown map type is text", map[string]any{"type": "bogus", "value": ts}, CellTypeString, ts.String(), ""},
		{"NaN is text", math.NaN(), CellTypeString, "NaN", ""},
		{"infinity is text", math.Inf(1), CellTypeString, "+Inf", ""},
		{"float32 infinity is text", float32(math.Inf(-1)), CellTypeString, "-Inf", ""},
		{"typed NaN is text", Typed{Type: "number", Value: math.NaN(), Format: FormatNumber00}, CellTypeString, "NaN", ""},
		{"map descriptor", map[string]any{"type": "number", "value": 0.25, "format": FormatPercentage00}, CellTypeNumber, 0.25, FormatPercentage00},
		{"map without value", map[string]any{"type": "number"}, CellTypeString, "map[type:number]", ""},
	}

	for _, tt := range tests {
		f := NewFormats()
		c := Classify(tt.input, f)
		if c.Type() != tt.typ {
			t.Errorf("%s: type = %v, expected %v", tt.name, c.Type(), tt.typ)
		}
		if c.Value() != tt.value {
			t.Errorf("%s: value = %v (%T), expected %v (%T)", tt.name, c.Value(), c.Value(), tt.value, tt.value)
		}
		if c.Format() != tt.format {
			t.Errorf("%s: format = %q, expected %q", tt.name, c.Format(), tt.format)
		}
		if tt.format != "" && f.Lookup(tt.format) != Unresolved {
			t.Errorf("%s: format %q should be registered unresolved", tt.name, tt.format)
		}
		if tt.format != "" {
			if _, ok := f.Used()[tt.format]; !ok {
				t.Errorf("%s: format %q not marked as used", tt.name, tt.format)
			}
		} else if len(f.Used()) != 0 {
			t.Errorf("%s: unexpected formats %v", tt.name, f.Used())
		}
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	inputs := []any{
		17,
		"text",
		time.Date(2020, 2, 2, 0, 0, 0, 0, time.UTC),
		Typed{Type: "number", Value: 1, Format: FormatNumber00},
	}
	f := NewFormats()
	for _, in := range inputs {
		a, b := Classify(in, f), Classify(in, f)
		if a != b {
			t.Errorf("Classify(%v) not deterministic: %+v vs %+v", in, a, b)
		}
	}
}

func TestClassifyKeepsResolvedFormat(t *testing.T) {
	f := NewFormats()
	f.Resolve(FormatPercentage0, 3)

	Classify(Typed{Type: "number", Value: 1, Format: FormatPercentage0}, f)
	if id := f.Lookup(FormatPercentage0); id != 3 {
		t.Errorf("resolved id overwritten: got %d", id)
	}
}
