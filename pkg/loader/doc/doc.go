package doc

import (
	"context"
	"io"

	"github.com/OFFIS-RIT/kgchat/pkg/loader"

	"golang.org/x/sync/singleflight"
)

const docXMLMax = 50 << 20

// DocGraphLoader extracts the text of .docx documents.
type DocGraphLoader struct {
	loader loader.GraphFileLoader
	group  singleflight.Group
}

// NewDocGraphLoader creates a document loader that reads raw bytes through loader.
func NewDocGraphLoader(loader loader.GraphFileLoader) *DocGraphLoader {
	return &DocGraphLoader{loader: loader}
}

// GetFileText extracts the text content of a Word document.
func (l *DocGraphLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	result, err, _ := l.group.Do(loader.CacheKey(file), func() (any, error) {
		content, err := l.loader.GetFileText(ctx, file)
		if err != nil {
			return nil, err
		}
		return parseDocx(content)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// GetFileTextFromIO extracts text content from a Word document provided as an io.Reader.
func GetFileTextFromIO(input io.Reader) ([]byte, error) {
	content, err := io.ReadAll(input)
	if err != nil {
		return nil, err
	}
	return parseDocx(content)
}
