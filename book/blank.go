package book

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/adnsv/srw/xml"
	"github.com/adnsv/xlfill/xl"
)

// blankWriter produces the parts of a minimal workbook with a single empty
// sheet. It is used when no template is supplied.
type blankWriter struct {
	out            Storage
	lastGlobalId   int
	lastWorkbookId int

	globalRels          map[string]relInfo // maps id to absolute path
	workbookRels        map[string]relInfo // maps id to workbook-relative path
	defaultContentTypes map[string]string  // maps path extension to content-type
	partContentTypes    map[string]string  // maps path partname to content-type
}

type relInfo struct {
	Type   string // url to schema type
	Target string // relative path
}

func newBlankWriter(s Storage) *blankWriter {
	w := &blankWriter{
		out:                 s,
		globalRels:          map[string]relInfo{},
		workbookRels:        map[string]relInfo{},
		defaultContentTypes: map[string]string{},
		partContentTypes:    map[string]string{},
	}

	w.defaultContentTypes["xml"] = "application/xml"
	w.defaultContentTypes["rels"] = "application/vnd.openxmlformats-package.relationships+xml"

	return w
}

func (w *blankWriter) nextGlobalID() (int, string) {
	w.lastGlobalId++
	return w.lastGlobalId, fmt.Sprintf("rId%d", w.lastGlobalId)
}

func (w *blankWriter) nextWorkbookID() (int, string) {
	w.lastWorkbookId++
	return w.lastWorkbookId, fmt.Sprintf("rId%d", w.lastWorkbookId)
}

func (w *blankWriter) write(sheetName, appName string) error {
	if err := validateSheetName(sheetName); err != nil {
		return err
	}

	err := w.writeWorkbook(sheetName)
	if err != nil {
		return err
	}

	err = w.writeStyles()
	if err != nil {
		return err
	}

	err = w.writeCoreProperties()
	if err != nil {
		return err
	}
	err = w.writeExtendedProperties(appName)
	if err != nil {
		return err
	}

	err = w.writeRels("/xl/_rels/workbook.xml.rels", w.workbookRels)
	if err != nil {
		return err
	}

	err = w.writeRels("/_rels/.rels", w.globalRels)
	if err != nil {
		return err
	}

	return w.writeContentTypes()
}

func (w *blankWriter) writeCoreProperties() error {
	_, rid := w.nextGlobalID()

	relpath := "docProps/core.xml"
	abspath := "/" + relpath

	w.partContentTypes[abspath] = "application/vnd.openxmlformats-package.core-properties+xml"
	w.globalRels[rid] = relInfo{
		Type:   "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties",
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})

	x.XmlStandaloneDecl()
	x.OTag("cp:coreProperties")
	x.Attr("xmlns:cp", "http://schemas.openxmlformats.org/package/2006/metadata/core-properties")
	x.Attr("xmlns:dc", "http://purl.org/dc/elements/1.1/")
	x.Attr("xmlns:dcterms", "http://purl.org/dc/terms/")
	x.Attr("xmlns:dcmitype", "http://purl.org/dc/dcmitype/")
	x.Attr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance")

	x.OTag("+dcterms:created")
	x.Attr("xsi:type", "dcterms:W3CDTF")
	x.Write(time.Now().UTC().Format(time.RFC3339))
	x.CTag()

	x.CTag()

	return w.out.WriteBlob(abspath, bb.Bytes())
}

func (w *blankWriter) writeExtendedProperties(appname string) error {
	_, rid := w.nextGlobalID()

	relpath := "docProps/app.xml"
	abspath := "/" + relpath

	w.partContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.extended-properties+xml"
	w.globalRels[rid] = relInfo{
		Type:   "http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties",
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("Properties")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties")
	x.Attr("xmlns:vt", "http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes")

	if appname != "" {
		x.OTag("+Application").String(appname).CTag()
	}

	x.CTag()

	return w.out.WriteBlob(abspath, bb.Bytes())
}

func (w *blankWriter) writeContentTypes() error {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})

	x.XmlStandaloneDecl()
	x.OTag("Types")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/package/2006/content-types")
	xl.Enumerate(w.defaultContentTypes, func(ext, ctype string) error {
		x.OTag("+Default").Attr("Extension", ext).Attr("ContentType", ctype).CTag()
		return nil
	})
	xl.Enumerate(w.partContentTypes, func(abspath, ctype string) error {
		x.OTag("+Override").Attr("PartName", abspath).Attr("ContentType", ctype).CTag()
		return nil
	})

	x.CTag()

	return w.out.WriteBlob("[Content_Types].xml", bb.Bytes())
}

func (w *blankWriter) writeStyles() error {
	_, rid := w.nextWorkbookID()

	relpath := "styles.xml"
	abspath := "/xl/" + relpath

	w.partContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"
	w.workbookRels[rid] = relInfo{
		Type:   relTypeStyles,
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("styleSheet")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")

	x.OTag("+fonts").Attr("count", 1)
	x.OTag("+font")
	x.OTag("+sz").Attr("val", 11).CTag()
	x.OTag("+name").Attr("val", "Calibri").CTag()
	x.CTag() // font
	x.CTag() // fonts

	x.OTag("+fills").Attr("count", 2)
	x.OTag("+fill")
	x.OTag("+patternFill").Attr("patternType", "none").CTag()
	x.CTag()
	x.OTag("+fill")
	x.OTag("+patternFill").Attr("patternType", "gray125").CTag()
	x.CTag()
	x.CTag() // fills

	x.OTag("+borders").Attr("count", 1)
	x.OTag("+border")
	x.OTag("+left").CTag()
	x.OTag("+right").CTag()
	x.OTag("+top").CTag()
	x.OTag("+bottom").CTag()
	x.OTag("+diagonal").CTag()
	x.CTag() // border
	x.CTag() // borders

	x.OTag("+cellStyleXfs").Attr("count", 1)
	x.OTag("+xf").Attr("numFmtId", 0).Attr("fontId", 0).Attr("fillId", 0).Attr("borderId", 0).CTag()
	x.CTag()

	x.OTag("+cellXfs").Attr("count", 1)
	x.OTag("+xf").Attr("numFmtId", 0).Attr("fontId", 0).Attr("fillId", 0).Attr("borderId", 0).Attr("xfId", 0).CTag()
	x.CTag()

	x.OTag("+cellStyles").Attr("count", 1)
	x.OTag("+cellStyle").Attr("name", "Normal").Attr("xfId", 0).Attr("builtinId", 0).CTag()
	x.CTag()

	x.CTag() // styleSheet

	return w.out.WriteBlob(abspath, bb.Bytes())
}

func (w *blankWriter) writeWorkbook(sheetName string) error {
	_, rid := w.nextGlobalID()

	relpath := "xl/workbook.xml"
	abspath := "/" + relpath

	w.partContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"
	w.globalRels[rid] = relInfo{
		Type:   relTypeOfficeDocument,
		Target: relpath,
	}

	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("workbook")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/spreadsheetml/2006/main")
	x.Attr("xmlns:r", "http://schemas.openxmlformats.org/officeDocument/2006/relationships")

	x.OTag("+sheets")
	sheetID, sheetRID := w.nextWorkbookID()
	x.OTag("+sheet")
	x.Attr("name", sheetName)
	x.Attr("sheetId", sheetID)
	x.Attr("r:id", sheetRID)
	x.CTag()
	x.CTag() // sheets

	x.CTag() // workbook

	err := w.writeSheet(sheetRID)
	if err != nil {
		return err
	}

	return w.out.WriteBlob(abspath, bb.Bytes())
}

func (w *blankWriter) writeSheet(rid string) error {
	relpath := "worksheets/sheet1.xml"
	abspath := "/xl/" + relpath

	w.partContentTypes[abspath] = "application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"
	w.workbookRels[rid] = relInfo{
		Type:   relTypeWorksheet,
		Target: relpath,
	}

	doc := xl.DefaultDocument()
	return w.out.WriteBlob(abspath, []byte(doc.Head+doc.Tail))
}

func (w *blankWriter) writeRels(path string, rels map[string]relInfo) error {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()

	x.OTag("Relationships")
	x.Attr("xmlns", "http://schemas.openxmlformats.org/package/2006/relationships")
	err := xl.Enumerate(rels, func(rid string, info relInfo) error {
		x.OTag("+Relationship").Attr("Id", rid).Attr("Type", info.Type).Attr("Target", info.Target)
		x.CTag()

		return nil
	})
	if err != nil {
		return err
	}
	x.CTag()

	return w.out.WriteBlob(path, bb.Bytes())
}

func validateSheetName(s string) error {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return errors.New("empty sheet name is not allowed")
	} else if n > 31 {
		return errors.New("the sheet name is too long")
	}
	if strings.HasPrefix(s, "'") || strings.HasSuffix(s, "'") {
		return errors.New("the first or last character of the sheet name can not be a single quote")
	}
	if strings.ContainsAny(s, ":\\/?*[]") {
		return errors.New("the sheet can not contain any of the characters :\\/?*[]")
	}
	return nil
}
