package pdf

import (
	"context"

	"github.com/OFFIS-RIT/kgchat/pkg/loader"

	"golang.org/x/sync/singleflight"
)

// PDFGraphLoader extracts the text layer of PDF files with pdftotext.
// Scanned PDFs without a text layer yield empty text.
type PDFGraphLoader struct {
	loader loader.GraphFileLoader
	group  singleflight.Group
}

// NewPDFGraphLoader creates a PDF loader that reads raw bytes through loader.
func NewPDFGraphLoader(loader loader.GraphFileLoader) *PDFGraphLoader {
	return &PDFGraphLoader{loader: loader}
}

// GetFileText extracts text from a PDF file.
func (l *PDFGraphLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	result, err, _ := l.group.Do(loader.CacheKey(file), func() (any, error) {
		content, err := l.loader.GetFileText(ctx, file)
		if err != nil {
			return nil, err
		}
		return parsePDF(ctx, content)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}
