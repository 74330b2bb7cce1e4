package book

import (
	"bytes"
	stdxml "encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/adnsv/srw/xml"
	"github.com/sirupsen/logrus"
)

// firstCustomNumFmt is the lowest id available for workbook-defined formats.
const firstCustomNumFmt = 164

// builtinNumFmts maps format codes to the ids Excel predefines for them.
var builtinNumFmts = map[string]int{
	"General":     0,
	"0":           1,
	"0.00":        2,
	"#,##0":       3,
	"#,##0.00":    4,
	"0%":          9,
	"0.00%":       10,
	"0.00E+00":    11,
	"mm-dd-yy":    14,
	"d-mmm-yy":    15,
	"h:mm":        20,
	"h:mm:ss":     21,
	"m/d/yy h:mm": 22,
	"@":           49,
}

type numFmt struct {
	id   int
	code string
}

type cellXf struct {
	numFmt, font, fill, border int
}

// stylesheet records where the numFmts and cellXfs collections live in a
// styles part so they can be extended without re-encoding the rest of it.
type stylesheet struct {
	data []byte

	rootEnd             int // offset after the styleSheet start tag
	numFmtsStart        int // -1 when the part has no numFmts
	numFmtsEnd          int
	xfsStart, xfsTagEnd int
	xfsClose, xfsEnd    int
	xfsSelfClosing      bool

	numFmts    []numFmt
	xfs        []cellXf
	newNumFmts int // trailing entries of numFmts added by resolve
	newXfs     int // trailing entries of xfs added by resolve
}

func parseStylesheet(data []byte) (*stylesheet, error) {
	ss := &stylesheet{data: data, rootEnd: -1, numFmtsStart: -1, xfsStart: -1}
	dec := stdxml.NewDecoder(bytes.NewReader(data))

	depth := 0
	section := ""
	for {
		off := int(dec.InputOffset())
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidStyles, err)
		}
		switch t := tok.(type) {
		case stdxml.StartElement:
			switch {
			case depth == 0:
				ss.rootEnd = int(dec.InputOffset())
			case depth == 1 && t.Name.Local == "numFmts":
				ss.numFmtsStart = off
				section = "numFmts"
			case depth == 1 && t.Name.Local == "cellXfs":
				ss.xfsStart, ss.xfsTagEnd = off, int(dec.InputOffset())
				section = "cellXfs"
			case depth == 2 && section == "numFmts" && t.Name.Local == "numFmt":
				ss.numFmts = append(ss.numFmts, numFmt{
					id:   intAttr(t, "numFmtId"),
					code: strAttr(t, "formatCode"),
				})
			case depth == 2 && section == "cellXfs" && t.Name.Local == "xf":
				ss.xfs = append(ss.xfs, cellXf{
					numFmt: intAttr(t, "numFmtId"),
					font:   intAttr(t, "fontId"),
					fill:   intAttr(t, "fillId"),
					border: intAttr(t, "borderId"),
				})
			}
			depth++
		case stdxml.EndElement:
			depth--
			if depth != 1 {
				continue
			}
			switch section {
			case "numFmts":
				ss.numFmtsEnd = int(dec.InputOffset())
			case "cellXfs":
				ss.xfsClose, ss.xfsEnd = off, int(dec.InputOffset())
				ss.xfsSelfClosing = ss.xfsClose == ss.xfsTagEnd &&
					bytes.HasSuffix(data[ss.xfsStart:ss.xfsTagEnd], []byte("/>"))
			}
			section = ""
		}
	}
	if ss.rootEnd < 0 || ss.xfsStart < 0 {
		return nil, fmt.Errorf("%w: no cellXfs collection", ErrInvalidStyles)
	}
	return ss, nil
}

func intAttr(t stdxml.StartElement, name string) int {
	n, _ := strconv.Atoi(strAttr(t, name))
	return n
}

func strAttr(t stdxml.StartElement, name string) string {
	for _, a := range t.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// resolve returns the cellXfs index of a plain style using the number format
// code, adding the format and the style when missing.
func (ss *stylesheet) resolve(code string) int {
	id := ss.numFmtID(code)
	for i, xf := range ss.xfs {
		if xf == (cellXf{numFmt: id}) {
			return i
		}
	}
	ss.xfs = append(ss.xfs, cellXf{numFmt: id})
	ss.newXfs++
	return len(ss.xfs) - 1
}

func (ss *stylesheet) numFmtID(code string) int {
	if id, ok := builtinNumFmts[code]; ok {
		return id
	}
	next := firstCustomNumFmt
	for _, f := range ss.numFmts {
		if f.code == code {
			return f.id
		}
		next = max(next, f.id+1)
	}
	ss.numFmts = append(ss.numFmts, numFmt{id: next, code: code})
	ss.newNumFmts++
	return next
}

// encode returns the styles part with the additions made by resolve.
func (ss *stylesheet) encode() []byte {
	if ss.newNumFmts == 0 && ss.newXfs == 0 {
		return ss.data
	}
	d := ss.data
	out := bytes.Buffer{}

	pos := 0
	if ss.newNumFmts > 0 {
		if ss.numFmtsStart >= 0 {
			out.Write(d[:ss.numFmtsStart])
			pos = ss.numFmtsEnd
		} else {
			out.Write(d[:ss.rootEnd])
			pos = ss.rootEnd
		}
		out.Write(ss.numFmtsXML())
	}
	out.Write(d[pos:ss.xfsStart])

	if ss.newXfs == 0 {
		out.Write(d[ss.xfsStart:])
		return out.Bytes()
	}

	fmt.Fprintf(&out, `<cellXfs count="%d">`, len(ss.xfs))
	if !ss.xfsSelfClosing {
		out.Write(d[ss.xfsTagEnd:ss.xfsClose])
	}
	for _, xf := range ss.xfs[len(ss.xfs)-ss.newXfs:] {
		out.Write(xfXML(xf))
	}
	out.WriteString(`</cellXfs>`)
	out.Write(d[ss.xfsEnd:])
	return out.Bytes()
}

func (ss *stylesheet) numFmtsXML() []byte {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.OTag("numFmts").Attr("count", len(ss.numFmts))
	for _, f := range ss.numFmts {
		x.OTag("+numFmt").Attr("numFmtId", f.id).Attr("formatCode", f.code).CTag()
	}
	x.CTag()
	return bb.Bytes()
}

func xfXML(xf cellXf) []byte {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.OTag("xf")
	x.Attr("numFmtId", xf.numFmt)
	x.Attr("fontId", xf.font)
	x.Attr("fillId", xf.fill)
	x.Attr("borderId", xf.border)
	x.Attr("xfId", 0)
	x.Attr("applyNumberFormat", 1)
	x.CTag()
	return bb.Bytes()
}

// ResolveFormats assigns style ids to the format codes the worksheet uses but
// that are still unresolved, extending the style table of the package where
// needed.
func (b *Book) ResolveFormats() error {
	formats := b.sheet.Formats()
	pending := formats.Pending()
	if len(pending) == 0 {
		return nil
	}
	if b.stylesPath == "" {
		return fmt.Errorf("%w: package has no style table", ErrInvalidStyles)
	}
	data, ok := b.part(b.stylesPath)
	if !ok {
		return fmt.Errorf("%w: missing %s", ErrInvalidStyles, b.stylesPath)
	}

	ss, err := parseStylesheet(data)
	if err != nil {
		return fmt.Errorf("%s: %w", b.stylesPath, err)
	}
	for _, code := range pending {
		id := ss.resolve(code)
		formats.Resolve(code, id)
		b.log.WithFields(logrus.Fields{"format": code, "style": id}).Debug("resolved number format")
	}
	b.setPart(b.stylesPath, ss.encode())
	return nil
}
