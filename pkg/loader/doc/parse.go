package doc

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"regexp"
	"strings"
)

const documentPart = "word/document.xml"

var blankLines = regexp.MustCompile(`\n{3,}`)

// docxWriter collects the visible text of a WordprocessingML body.
// Table rows are written as "| a | b |" lines so text splitting keeps a
// row together. Nested tables are flattened into the enclosing cell.
type docxWriter struct {
	sb strings.Builder

	inText   bool
	deleted  int
	tables   int
	rowCells []string
	cell     strings.Builder
}

func (w *docxWriter) out() *strings.Builder {
	if w.tables > 0 {
		return &w.cell
	}
	return &w.sb
}

func (w *docxWriter) endLine() {
	if w.sb.Len() > 0 && !strings.HasSuffix(w.sb.String(), "\n") {
		w.sb.WriteByte('\n')
	}
}

func (w *docxWriter) start(name string) {
	if name == "del" {
		w.deleted++
		return
	}
	if w.deleted > 0 {
		return
	}
	switch name {
	case "t":
		w.inText = true
	case "tab":
		w.out().WriteByte('\t')
	case "br", "cr":
		if w.tables > 0 {
			w.cell.WriteByte(' ')
		} else {
			w.sb.WriteByte('\n')
		}
	case "noBreakHyphen":
		w.out().WriteByte('-')
	case "tbl":
		if w.tables == 0 {
			w.endLine()
		}
		w.tables++
	case "tr":
		if w.tables == 1 {
			w.rowCells = w.rowCells[:0]
		}
	case "tc":
		if w.tables == 1 {
			w.cell.Reset()
		}
	}
}

func (w *docxWriter) end(name string) {
	if name == "del" {
		if w.deleted > 0 {
			w.deleted--
		}
		return
	}
	if w.deleted > 0 {
		return
	}
	switch name {
	case "t":
		w.inText = false
	case "p":
		if w.tables > 0 {
			w.cell.WriteByte(' ')
		} else {
			w.sb.WriteByte('\n')
		}
	case "tc":
		if w.tables == 1 {
			w.rowCells = append(w.rowCells, strings.Join(strings.Fields(w.cell.String()), " "))
		}
	case "tr":
		if w.tables == 1 && len(w.rowCells) > 0 {
			w.sb.WriteString("| " + strings.Join(w.rowCells, " | ") + " |\n")
		}
	case "tbl":
		w.tables--
		if w.tables == 0 {
			w.sb.WriteByte('\n')
		}
	}
}

func (w *docxWriter) text(data []byte) {
	if w.deleted == 0 && w.inText {
		w.out().Write(data)
	}
}

func (w *docxWriter) String() string {
	text := blankLines.ReplaceAllString(strings.TrimSpace(w.sb.String()), "\n\n")
	if text == "" {
		return ""
	}
	return text + "\n"
}

// parseDocx returns the visible text of a .docx file. Deleted revisions are
// skipped and every paragraph ends a line.
func parseDocx(content []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open docx: %w", err)
	}

	part, err := zr.Open(documentPart)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s not found in docx", documentPart)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", documentPart, err)
	}
	defer part.Close()

	if info, err := part.Stat(); err == nil && info.Size() > docXMLMax {
		return nil, fmt.Errorf("%s too large: %d bytes", documentPart, info.Size())
	}

	var w docxWriter
	dec := xml.NewDecoder(io.LimitReader(part, docXMLMax))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", documentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			w.start(t.Name.Local)
		case xml.EndElement:
			w.end(t.Name.Local)
		case xml.CharData:
			w.text(t)
		}
	}

	return []byte(w.String()), nil
}
