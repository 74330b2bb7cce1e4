package xl

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidRow    = errors.New("invalid row number")
	ErrInvalidColumn = errors.New("invalid column label")
)

// Worksheet holds the cells of one worksheet and renders them into the
// sheetData element of the worksheet part.
//
// Rendering is lazy: mutations only mark the worksheet dirty, the next Render
// or ToXML regenerates the body. Rows that have no cells but a preserved
// fragment are passed through verbatim.
//
// A Worksheet is not safe for concurrent use.
type Worksheet struct {
	doc       Document
	source    string
	rows      map[int]Row
	preserved map[int]string
	formats   *Formats

	dirty      bool
	formatsRev uint64
	rowCounter int
	rebuilds   int
}

// CalculatedColumn is a value spliced into every row of AddRows at a fixed
// position.
type CalculatedColumn struct {
	Index   int // 0-based position within the row
	Header  any // value used in the header row
	Content any // value used in all other rows
}

// Calculated describes the columns AddRows splices into each row.
type Calculated struct {
	HeaderRow int
	Columns   []CalculatedColumn
}

func NewWorksheet() *Worksheet {
	return NewWorksheetFromDocument(DefaultDocument())
}

// NewWorksheetFromDocument creates a worksheet rendered into d. The body of d
// is not reused; callers seed it through PreserveRow or SetSourceXML.
func NewWorksheetFromDocument(d Document) *Worksheet {
	ws := &Worksheet{
		doc:        Document{Head: d.Head, Tail: d.Tail},
		rows:       map[int]Row{},
		preserved:  map[int]string{},
		formats:    NewFormats(),
		rowCounter: 1,
	}
	ws.formatsRev = ws.formats.revision()
	return ws
}

// Formats returns the format registry of ws. Changes to the registry mark
// the worksheet dirty.
func (ws *Worksheet) Formats() *Formats {
	return ws.formats
}

// Dirty reports whether the next Render rebuilds the body.
func (ws *Worksheet) Dirty() bool {
	return ws.dirty || ws.formatsRev != ws.formats.revision()
}

// SetCell classifies v and stores it at the given position.
func (ws *Worksheet) SetCell(row int, col string, v any) error {
	if row < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRow, row)
	}
	if ColumnLettersAsNumber(col) == 0 {
		return fmt.Errorf("%w: %q", ErrInvalidColumn, col)
	}
	r := ws.ensureRow(row)
	r[col] = Classify(v, ws.formats)
	ws.dirty = true
	return nil
}

// AddRow creates row if necessary and sets its cells. A row added without
// cells is rendered empty unless a preserved fragment exists for it. Nothing
// is stored when any column label is invalid.
func (ws *Worksheet) AddRow(row int, cells map[string]any) error {
	if row < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRow, row)
	}
	for col := range cells {
		if ColumnLettersAsNumber(col) == 0 {
			return fmt.Errorf("%w: %q", ErrInvalidColumn, col)
		}
	}
	ws.ensureRow(row)
	ws.dirty = true
	return Enumerate(cells, func(col string, v any) error {
		return ws.SetCell(row, col, v)
	})
}

// AddRows adds positional rows; the values of each row are assigned to
// columns A, B, ... in order after calc columns have been spliced in.
func (ws *Worksheet) AddRows(table map[int][]any, calc *Calculated) error {
	return Enumerate(table, func(row int, values []any) error {
		if calc != nil {
			values = calc.splice(row, values)
		}
		cells := make(map[string]any, len(values))
		for i, v := range values {
			if i >= MaxColumns {
				return fmt.Errorf("%w: row %d has more than %d values", ErrInvalidColumn, row, MaxColumns)
			}
			cells[ColumnNumberAsLetters(i+1)] = v
		}
		return ws.AddRow(row, cells)
	})
}

func (c *Calculated) splice(row int, values []any) []any {
	out := append([]any(nil), values...)
	for _, col := range c.Columns {
		v := col.Content
		if row == c.HeaderRow {
			v = col.Header
		}
		i := min(max(col.Index, 0), len(out))
		out = append(out, nil)
		copy(out[i+1:], out[i:])
		out[i] = v
	}
	return out
}

// Cell returns the cell stored at the given position.
func (ws *Worksheet) Cell(row int, col string) (Cell, bool) {
	c, ok := ws.rows[row][col]
	return c, ok
}

// RowNumbers returns the stored row numbers in ascending order.
func (ws *Worksheet) RowNumbers() []int {
	var rows []int
	Enumerate(ws.rows, func(n int, _ Row) error {
		rows = append(rows, n)
		return nil
	})
	return rows
}

// PreserveRow registers the original markup of a row. It is emitted instead
// of generated markup as long as the row holds no cells.
func (ws *Worksheet) PreserveRow(row int, xml string) {
	ws.preserved[row] = xml
	ws.dirty = true
}

func (ws *Worksheet) ClearPreservedRows() {
	ws.preserved = map[int]string{}
	ws.dirty = true
}

// SetSourceXML sets markup emitted ahead of all stored rows.
func (ws *Worksheet) SetSourceXML(xml string) {
	ws.source = xml
	ws.dirty = true
}

// IncrementRowCounter returns the current value of the row counter and
// advances it. The counter restarts at 1 with each rebuild.
func (ws *Worksheet) IncrementRowCounter() int {
	n := ws.rowCounter
	ws.rowCounter++
	return n
}

// Render returns the content of the sheetData element, rebuilding it if the
// worksheet changed since the last call.
func (ws *Worksheet) Render() (string, error) {
	if !ws.Dirty() {
		return ws.doc.Body, nil
	}
	if err := ws.rebuild(); err != nil {
		return "", err
	}
	return ws.doc.Body, nil
}

// ToXML returns the complete worksheet part.
func (ws *Worksheet) ToXML() (string, error) {
	body, err := ws.Render()
	if err != nil {
		return "", err
	}
	return ws.doc.Head + body + ws.doc.Tail, nil
}

func (ws *Worksheet) ensureRow(row int) Row {
	r, ok := ws.rows[row]
	if !ok {
		r = Row{}
		ws.rows[row] = r
	}
	return r
}

func (ws *Worksheet) rebuild() error {
	ws.rowCounter = 1

	var sb strings.Builder
	sb.WriteString(ws.source)
	Enumerate(ws.rows, func(n int, r Row) error {
		if xml, ok := ws.preserved[n]; ok && len(r) == 0 {
			sb.WriteString(xml)
			return nil
		}
		sb.WriteString(`<row r="`)
		sb.WriteString(strconv.Itoa(n))
		sb.WriteString(`">`)
		for _, col := range r.Columns() {
			ws.cellXML(&sb, n, col, r[col])
		}
		sb.WriteString(`</row>`)
		return nil
	})

	body := sb.String()
	if err := checkFragment(body); err != nil {
		return err
	}

	ws.doc.Body = body
	ws.dirty = false
	ws.formatsRev = ws.formats.revision()
	ws.rebuilds++
	return nil
}

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func (ws *Worksheet) cellXML(sb *strings.Builder, row int, col string, c Cell) {
	formatID := ws.formats.Lookup(c.format)
	ref := col + strconv.Itoa(row)

	switch c.typ {
	case CellTypeNumber:
		if formatID == Unresolved {
			fmt.Fprintf(sb, `<c r="%s"><v>%s</v></c>`, ref, textEscaper.Replace(numberText(c.v)))
		} else {
			fmt.Fprintf(sb, `<c r="%s" s="%d"><v>%s</v></c>`, ref, formatID, textEscaper.Replace(numberText(c.v)))
		}
	case CellTypeDate:
		serial := ExcelSerial(c.v.(time.Time))
		fmt.Fprintf(sb, `<c r="%s" s="%d"><v>%s</v></c>`, ref, formatID, strconv.FormatFloat(serial, 'f', -1, 64))
	case CellTypeFormula:
		fmt.Fprintf(sb, `<c r="%s"><f>%s</f></c>`, ref, textEscaper.Replace(fmt.Sprint(c.v)))
	case CellTypeSharedString:
		fmt.Fprintf(sb, `<c r="%s" t="s"><v>%s</v></c>`, ref, textEscaper.Replace(numberText(c.v)))
	default:
		fmt.Fprintf(sb, `<c r="%s" t="inlineStr"><is><t>%s</t></is></c>`, ref, textEscaper.Replace(fmt.Sprint(c.v)))
	}
}

func numberText(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case json.Number:
		return n.String()
	case string:
		return n
	}
	return fmt.Sprint(v)
}
