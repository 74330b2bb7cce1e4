package xl

import (
	"bytes"
	stdxml "encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/adnsv/srw/xml"
)

const (
	nsMain          = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	nsRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

var (
	ErrMalformedXML = errors.New("malformed xml")
	ErrNoSheetData  = errors.New("worksheet has no sheetData element")
)

// Document is a worksheet part split around the content of its sheetData
// element. Head ends with the sheetData start tag, Tail begins with its end
// tag.
type Document struct {
	Head string
	Body string
	Tail string
}

// RawRow is a row element taken verbatim from a worksheet body.
type RawRow struct {
	Number int
	XML    string
}

// DefaultDocument returns an empty worksheet.
func DefaultDocument() Document {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("worksheet")
	x.Attr("xmlns", nsMain)
	x.Attr("xmlns:r", nsRelationships)

	x.OTag("+sheetData")
	x.CTag()

	x.CTag()

	d, err := SplitDocument(bb.Bytes())
	if err != nil {
		panic(fmt.Sprintf("default worksheet: %v", err))
	}
	return d
}

// SplitDocument locates the first sheetData element of a worksheet part.
// Both <sheetData/> and <sheetData>...</sheetData> are accepted; the former
// is expanded so that Head and Tail always carry explicit tags.
func SplitDocument(data []byte) (Document, error) {
	dec := stdxml.NewDecoder(bytes.NewReader(data))

	open, start, closing, end := -1, -1, -1, -1
	depth := 0
scan:
	for {
		off := int(dec.InputOffset())
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Document{}, fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}
		switch t := tok.(type) {
		case stdxml.StartElement:
			if start < 0 {
				if t.Name.Local == "sheetData" {
					open, start = off, int(dec.InputOffset())
				}
				continue
			}
			depth++
		case stdxml.EndElement:
			if start < 0 {
				continue
			}
			if depth == 0 {
				closing, end = off, int(dec.InputOffset())
				break scan
			}
			depth--
		}
	}
	if start < 0 || end < 0 {
		return Document{}, ErrNoSheetData
	}

	if closing == start && bytes.HasSuffix(data[open:start], []byte("/>")) {
		name := rawTagName(data[open:])
		head := strings.TrimRight(string(data[:start-2]), " \t\r\n")
		return Document{
			Head: head + ">",
			Tail: "</" + name + ">" + string(data[end:]),
		}, nil
	}

	return Document{
		Head: string(data[:start]),
		Body: string(data[start:closing]),
		Tail: string(data[closing:]),
	}, nil
}

// rawTagName returns the element name, prefix included, of the start tag at
// the beginning of b.
func rawTagName(b []byte) string {
	b = bytes.TrimPrefix(b, []byte("<"))
	i := bytes.IndexAny(b, " \t\r\n/>")
	if i < 0 {
		return string(b)
	}
	return string(b[:i])
}

// Rows returns the row elements of the body in document order. A row without
// an r attribute follows the previous one.
func (d Document) Rows() ([]RawRow, error) {
	data := []byte(d.Body)
	dec := stdxml.NewDecoder(bytes.NewReader(data))

	var rows []RawRow
	depth := 0
	begin, number, last := 0, 0, 0
	for {
		off := int(dec.InputOffset())
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}
		switch t := tok.(type) {
		case stdxml.StartElement:
			if depth == 0 && t.Name.Local == "row" {
				begin = off
				number = last + 1
				for _, a := range t.Attr {
					if a.Name.Local != "r" {
						continue
					}
					n, err := strconv.Atoi(a.Value)
					if err != nil || n < 1 {
						return nil, fmt.Errorf("%w: invalid row number %q", ErrMalformedXML, a.Value)
					}
					number = n
				}
			}
			depth++
		case stdxml.EndElement:
			depth--
			if depth == 0 && t.Name.Local == "row" {
				rows = append(rows, RawRow{
					Number: number,
					XML:    string(data[begin:dec.InputOffset()]),
				})
				last = number
			}
		}
	}
	return rows, nil
}

// checkFragment verifies that body is well-formed as sheetData content.
func checkFragment(body string) error {
	var sb strings.Builder
	sb.WriteString(`<sheetData xmlns="` + nsMain + `">`)
	sb.WriteString(body)
	sb.WriteString(`</sheetData>`)

	dec := stdxml.NewDecoder(strings.NewReader(sb.String()))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}
	}
}
