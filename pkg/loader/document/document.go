package document

import (
	"context"
	"fmt"
	"net/http"

	"github.com/OFFIS-RIT/kgchat/pkg/loader"
	"github.com/OFFIS-RIT/kgchat/pkg/loader/doc"
	"github.com/OFFIS-RIT/kgchat/pkg/loader/pdf"
	"github.com/OFFIS-RIT/kgchat/pkg/loader/web"
)

// DocumentGraphLoader reads any supported document type as text by handing
// it to the loader for its GraphFileType.
type DocumentGraphLoader struct {
	base loader.GraphFileLoader
	pdf  *pdf.PDFGraphLoader
	doc  *doc.DocGraphLoader
	web  *web.WebGraphLoader
}

// NewDocumentGraphLoader creates a loader that reads local files through
// base and fetches URLs with client.
func NewDocumentGraphLoader(base loader.GraphFileLoader, client *http.Client) *DocumentGraphLoader {
	return &DocumentGraphLoader{
		base: base,
		pdf:  pdf.NewPDFGraphLoader(base),
		doc:  doc.NewDocGraphLoader(base),
		web:  web.NewWebGraphLoader(client),
	}
}

// GetFileText returns the text content of file.
func (l *DocumentGraphLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	switch file.FileType {
	case loader.GraphFileTypeText, loader.GraphFileTypeMarkdown, loader.GraphFileTypeCSV:
		return l.base.GetFileText(ctx, file)
	case loader.GraphFileTypePDF:
		return l.pdf.GetFileText(ctx, file)
	case loader.GraphFileTypeDocx:
		return l.doc.GetFileText(ctx, file)
	case loader.GraphFileTypeWeb:
		return l.web.GetFileText(ctx, file)
	}
	return nil, fmt.Errorf("%w: %s", loader.ErrUnsupportedFileType, file.FileType)
}
