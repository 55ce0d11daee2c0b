package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"
)

type GraphFileType string

const (
	GraphFileTypeCSV      GraphFileType = "csv"
	GraphFileTypeText     GraphFileType = "text"
	GraphFileTypeMarkdown GraphFileType = "markdown"
	GraphFileTypePDF      GraphFileType = "pdf"
	GraphFileTypeDocx     GraphFileType = "docx"
	GraphFileTypeWeb      GraphFileType = "web"
)

var (
	// ErrFileNotFound is returned when a named file does not exist in a store.
	ErrFileNotFound = errors.New("file not found")
	// ErrInvalidFileName is returned for names that are empty, contain path
	// elements or do not carry the .csv extension.
	ErrInvalidFileName = errors.New("invalid file name")
	// ErrUnsupportedFileType is returned for inputs no loader can read.
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

// GraphFile is a file that can be turned into graph input: a triple CSV or a
// document that triples are extracted from. The content is read through the
// associated GraphFileLoader.
type GraphFile struct {
	ID        string
	FilePath  string
	FileType  GraphFileType
	MaxTokens int
	Loader    GraphFileLoader
}

// NewGraphFileParams defines the input parameters for creating a new GraphFile.
type NewGraphFileParams struct {
	ID        string
	FilePath  string
	MaxTokens int
	Loader    GraphFileLoader
}

// NewGraphCSVFile creates a new GraphFile of type GraphFileTypeCSV.
func NewGraphCSVFile(params NewGraphFileParams) GraphFile {
	return newGraphFile(params, GraphFileTypeCSV)
}

// NewGraphDocumentFile creates a GraphFile whose type is derived from the
// path: a URL becomes GraphFileTypeWeb, otherwise the extension decides.
func NewGraphDocumentFile(params NewGraphFileParams) (GraphFile, error) {
	fileType, err := FileTypeFromPath(params.FilePath)
	if err != nil {
		return GraphFile{}, err
	}
	return newGraphFile(params, fileType), nil
}

func newGraphFile(params NewGraphFileParams, fileType GraphFileType) GraphFile {
	return GraphFile{
		ID:        params.ID,
		FilePath:  params.FilePath,
		FileType:  fileType,
		MaxTokens: params.MaxTokens,
		Loader:    params.Loader,
	}
}

// GetText retrieves the text content of the file using its Loader.
//
// Example:
//
//	text, err := file.GetText(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(string(text))
func (f *GraphFile) GetText(ctx context.Context) ([]byte, error) {
	if f.Loader == nil {
		return nil, fmt.Errorf("no loader configured for %s", f.FilePath)
	}
	return f.Loader.GetFileText(ctx, *f)
}

// GraphFileLoader defines the interface for loading the contents of a GraphFile.
// Implementations may load files from disk, object storage or the web.
type GraphFileLoader interface {
	GetFileText(ctx context.Context, file GraphFile) ([]byte, error)
}

// FileInfo describes a stored CSV file.
type FileInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// GraphFileStore is the CSV library: a flat namespace of .csv files that can
// be listed, uploaded and opened for loading. Uploading a name that already
// exists replaces the stored file.
type GraphFileStore interface {
	GraphFileLoader

	ListFiles(ctx context.Context) ([]FileInfo, error)
	PutFile(ctx context.Context, name string, content io.Reader) (FileInfo, error)
	Open(ctx context.Context, name string) (GraphFile, error)
}

// CacheKey generates a key for a GraphFile based on its ID and path.
func CacheKey(file GraphFile) string {
	return file.ID + ":" + file.FilePath
}

// CleanCSVName validates a user supplied library file name and returns its
// canonical form. Directory components are rejected rather than stripped.
func CleanCSVName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("%w: empty name", ErrInvalidFileName)
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return "", fmt.Errorf("%w: %q contains a path", ErrInvalidFileName, name)
	}
	if strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q is hidden", ErrInvalidFileName, name)
	}
	if !strings.EqualFold(path.Ext(name), ".csv") {
		return "", fmt.Errorf("%w: %q is not a .csv file", ErrInvalidFileName, name)
	}
	return name, nil
}

// FileTypeFromPath maps a path or URL to the loader type that can read it.
func FileTypeFromPath(p string) (GraphFileType, error) {
	lower := strings.ToLower(strings.TrimSpace(p))
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return GraphFileTypeWeb, nil
	}

	switch filepath.Ext(lower) {
	case ".csv":
		return GraphFileTypeCSV, nil
	case ".txt", ".text":
		return GraphFileTypeText, nil
	case ".md", ".markdown":
		return GraphFileTypeMarkdown, nil
	case ".pdf":
		return GraphFileTypePDF, nil
	case ".docx":
		return GraphFileTypeDocx, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, p)
}
