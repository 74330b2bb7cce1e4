package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adnsv/xlfill/xl"
)

const sampleData = `
formats:
  "0.00": 5
calculated:
  header_row: 1
  columns:
    - index: 0
      header: "#"
      content: {type: formula, value: "ROW()-1"}
table:
  1: [Item, Price]
  2: [bolt, {type: number, value: 1.5, format: "0.00"}]
rows:
  4:
    A: total
    C: {type: datetime, value: "2024-01-15"}
`

func writeData(t *testing.T, content string) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), "data.yaml")
	if err := os.WriteFile(fn, []byte(content), 0666); err != nil {
		t.Fatal(err)
	}
	return fn
}

func TestFill(t *testing.T) {
	data, err := loadData(writeData(t, sampleData))
	if err != nil {
		t.Fatalf("loadData failed: %v", err)
	}

	ws := xl.NewWorksheet()
	if err := fill(ws, data); err != nil {
		t.Fatalf("fill failed: %v", err)
	}

	if got := ws.RowNumbers(); len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 4 {
		t.Fatalf("RowNumbers() = %v", got)
	}
	if c, _ := ws.Cell(1, "A"); c.Type() != xl.CellTypeString || c.Value() != "#" {
		t.Errorf("A1 = %v %v", c.Type(), c.Value())
	}
	if c, _ := ws.Cell(2, "A"); c.Type() != xl.CellTypeFormula {
		t.Errorf("A2 type = %v", c.Type())
	}
	if c, _ := ws.Cell(2, "C"); c.Type() != xl.CellTypeNumber || c.Format() != "0.00" {
		t.Errorf("C2 = %v %q", c.Type(), c.Format())
	}
	if c, _ := ws.Cell(4, "C"); c.Type() != xl.CellTypeDate {
		t.Errorf("C4 type = %v", c.Type())
	}
	if id := ws.Formats().Lookup("0.00"); id != 5 {
		t.Errorf("imported format id = %d", id)
	}
}

func TestFillJSON(t *testing.T) {
	data, err := loadData(writeData(t, `{"rows": {"3": {"B": 7}}}`))
	if err != nil {
		t.Fatalf("loadData failed: %v", err)
	}
	ws := xl.NewWorksheet()
	if err := fill(ws, data); err != nil {
		t.Fatalf("fill failed: %v", err)
	}
	if c, ok := ws.Cell(3, "B"); !ok || c.Type() != xl.CellTypeNumber {
		t.Errorf("B3 = %v %v", c.Type(), c.Value())
	}
}

func TestFillInvalidRowKey(t *testing.T) {
	data, err := loadData(writeData(t, "rows:\n  x:\n    A: 1\n"))
	if err != nil {
		t.Fatalf("loadData failed: %v", err)
	}
	if err := fill(xl.NewWorksheet(), data); err == nil {
		t.Errorf("Expected an error for a non-numeric row key")
	}
}
