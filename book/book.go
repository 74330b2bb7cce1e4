// Package book opens a template .xlsx package, binds one of its worksheets to
// an xl.Worksheet and writes the result back into a new package. All parts
// other than the worksheet and the style table are copied unchanged.
package book

import (
	"archive/zip"
	stdxml "encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/adnsv/xlfill/xl"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidPackage = errors.New("invalid xlsx package")
	ErrSheetNotFound  = errors.New("sheet not found")
	ErrInvalidStyles  = errors.New("invalid style table")
)

const (
	relTypeOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relTypeWorksheet      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet"
	relTypeStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
)

// Mode selects how rows already present in the template sheet are treated.
type Mode int

const (
	// ModeMerge keeps every template row verbatim unless cells are set on it.
	ModeMerge Mode = iota
	// ModeAppend emits the template rows ahead of all generated rows.
	ModeAppend
	// ModeReplace drops the template rows.
	ModeReplace
)

func (m Mode) String() string {
	switch m {
	case ModeAppend:
		return "append"
	case ModeReplace:
		return "replace"
	default:
		return "merge"
	}
}

// ParseMode converts a mode name as printed by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "merge":
		return ModeMerge, nil
	case "append":
		return ModeAppend, nil
	case "replace":
		return ModeReplace, nil
	}
	return ModeMerge, fmt.Errorf("invalid mode: %s (must be merge, append, or replace)", s)
}

type Options struct {
	Sheet   string // sheet name, empty for the first sheet
	Mode    Mode
	AppName string // application name recorded by Blank
	Logger  logrus.FieldLogger
}

// Book is a template package with one bound worksheet.
type Book struct {
	parts      []part
	sheetName  string
	sheetPath  string
	stylesPath string
	sheet      *xl.Worksheet
	templateID uuid.UUID // fingerprint of the template worksheet part
	log        logrus.FieldLogger
}

// Open reads the template package at fn.
func Open(fn string, opts Options) (*Book, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return OpenReader(f, info.Size(), opts)
}

// OpenReader reads a template package from r.
func OpenReader(r io.ReaderAt, size int64, opts Options) (*Book, error) {
	z, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPackage, err)
	}

	parts := make([]part, 0, len(z.File))
	for _, zf := range z.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		data, err := readZipFile(zf)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPackage, zf.Name, err)
		}
		parts = append(parts, part{name: zf.Name, data: data})
	}
	return newBook(parts, opts)
}

// Blank creates a package with a single empty sheet named opts.Sheet
// (default "Sheet1").
func Blank(opts Options) (*Book, error) {
	if opts.Sheet == "" {
		opts.Sheet = "Sheet1"
	}
	ms := &memStorage{}
	err := newBlankWriter(ms).write(opts.Sheet, opts.AppName)
	if err != nil {
		return nil, err
	}
	return newBook(ms.parts, opts)
}

func readZipFile(zf *zip.File) ([]byte, error) {
	rc, err := zf.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func newBook(parts []part, opts Options) (*Book, error) {
	b := &Book{
		parts: parts,
		log:   opts.Logger,
	}
	if b.log == nil {
		b.log = logrus.StandardLogger()
	}

	if err := b.locate(opts.Sheet); err != nil {
		return nil, err
	}

	template, _ := b.part(b.sheetPath)
	b.templateID = Fingerprint(template)
	doc, err := xl.SplitDocument(template)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.sheetPath, err)
	}
	b.sheet = xl.NewWorksheetFromDocument(doc)

	log := b.log.WithFields(logrus.Fields{"sheet": b.sheetName, "part": b.sheetPath, "mode": opts.Mode})
	switch opts.Mode {
	case ModeMerge:
		rows, err := doc.Rows()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.sheetPath, err)
		}
		for _, r := range rows {
			if err := b.sheet.AddRow(r.Number, nil); err != nil {
				return nil, fmt.Errorf("%s: %w", b.sheetPath, err)
			}
			b.sheet.PreserveRow(r.Number, r.XML)
		}
		log.WithField("rows", len(rows)).Debug("preserved template rows")
	case ModeAppend:
		b.sheet.SetSourceXML(doc.Body)
		log.Debug("keeping template rows as leading content")
	case ModeReplace:
		log.Debug("dropping template rows")
	}
	return b, nil
}

// Sheet returns the bound worksheet.
func (b *Book) Sheet() *xl.Worksheet {
	return b.sheet
}

// SheetName returns the name of the bound worksheet.
func (b *Book) SheetName() string {
	return b.sheetName
}

func (b *Book) part(name string) ([]byte, bool) {
	for _, p := range b.parts {
		if p.name == name {
			return p.data, true
		}
	}
	return nil, false
}

func (b *Book) setPart(name string, data []byte) {
	for i := range b.parts {
		if b.parts[i].name == name {
			b.parts[i].data = data
			return
		}
	}
	b.parts = append(b.parts, part{name: name, data: data})
}

type xmlRelationships struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Type   string `xml:"Type,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type xmlWorkbook struct {
	Sheets []struct {
		Name string `xml:"name,attr"`
		RID  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sheets>sheet"`
}

// locate finds the workbook part, the part of the named sheet and the style
// table through the package relationships.
func (b *Book) locate(sheetName string) error {
	workbookPath := "xl/workbook.xml"
	if rels, err := b.rels("_rels/.rels"); err == nil {
		for _, r := range rels.Relationships {
			if r.Type == relTypeOfficeDocument {
				workbookPath = resolveTarget("", r.Target)
			}
		}
	}

	data, ok := b.part(workbookPath)
	if !ok {
		return fmt.Errorf("%w: missing %s", ErrInvalidPackage, workbookPath)
	}
	var wb xmlWorkbook
	if err := stdxml.Unmarshal(data, &wb); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPackage, workbookPath, err)
	}

	dir, file := path.Split(workbookPath)
	rels, err := b.rels(path.Join(dir, "_rels", file+".rels"))
	if err != nil {
		return err
	}
	targets := map[string]string{}
	for _, r := range rels.Relationships {
		switch r.Type {
		case relTypeWorksheet:
			targets[r.ID] = resolveTarget(dir, r.Target)
		case relTypeStyles:
			b.stylesPath = resolveTarget(dir, r.Target)
		}
	}

	for _, s := range wb.Sheets {
		if sheetName != "" && s.Name != sheetName {
			continue
		}
		target, ok := targets[s.RID]
		if !ok {
			return fmt.Errorf("%w: sheet %q has no worksheet part", ErrInvalidPackage, s.Name)
		}
		if _, ok := b.part(target); !ok {
			return fmt.Errorf("%w: missing %s", ErrInvalidPackage, target)
		}
		b.sheetName = s.Name
		b.sheetPath = target
		return nil
	}
	if sheetName == "" {
		return fmt.Errorf("%w: workbook has no sheets", ErrSheetNotFound)
	}
	return fmt.Errorf("%w: %q", ErrSheetNotFound, sheetName)
}

func (b *Book) rels(name string) (*xmlRelationships, error) {
	data, ok := b.part(name)
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidPackage, name)
	}
	var rels xmlRelationships
	if err := stdxml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPackage, name, err)
	}
	return &rels, nil
}

func resolveTarget(dir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(dir, target))
}

// Changed reports whether the rendered worksheet differs from the worksheet
// part of the template.
func (b *Book) Changed() (bool, error) {
	_, id, err := b.render()
	if err != nil {
		return false, err
	}
	return id != b.templateID, nil
}

func (b *Book) render() ([]byte, uuid.UUID, error) {
	sheetXML, err := b.sheet.ToXML()
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("sheet %q: %w", b.sheetName, err)
	}
	data := []byte(sheetXML)
	return data, Fingerprint(data), nil
}

// Write renders the worksheet and stores all parts in s. An unchanged
// worksheet keeps the template bytes.
func (b *Book) Write(s Storage) error {
	data, id, err := b.render()
	if err != nil {
		return err
	}

	log := b.log.WithFields(logrus.Fields{
		"sheet":       b.sheetName,
		"fingerprint": id,
	})
	changed := id != b.templateID
	if changed {
		log.WithField("rows", len(b.sheet.RowNumbers())).Debug("worksheet rendered")
	} else {
		log.Debug("worksheet unchanged")
	}

	for _, p := range b.parts {
		blob := p.data
		if changed && p.name == b.sheetPath {
			blob = data
		}
		if err := s.WriteBlob(p.name, blob); err != nil {
			return err
		}
	}
	return nil
}

// WriteArchive writes the package as a zip archive to w.
func (b *Book) WriteArchive(w io.Writer) error {
	zs := NewZipStorage(w)
	if err := b.Write(zs); err != nil {
		zs.Close()
		return err
	}
	return zs.Close()
}

// Save writes the package to the file fn.
func (b *Book) Save(fn string) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	if err := b.WriteArchive(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
