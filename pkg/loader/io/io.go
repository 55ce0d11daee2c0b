package io

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/OFFIS-RIT/kgchat/pkg/loader"

	"golang.org/x/sync/singleflight"
)

// IOGraphFileLoader loads files directly from the local filesystem.
// Concurrent reads of the same file share one read; nothing is cached past
// the read, so a file replaced on disk is picked up by the next load.
type IOGraphFileLoader struct {
	group singleflight.Group
}

// NewIOGraphFileLoader creates a new filesystem-based file loader.
func NewIOGraphFileLoader() *IOGraphFileLoader {
	return &IOGraphFileLoader{}
}

// GetFileText reads the file content from the filesystem.
func (l *IOGraphFileLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	return readShared(ctx, &l.group, file.FilePath, loader.CacheKey(file))
}

func readShared(ctx context.Context, group *singleflight.Group, path, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err, _ := group.Do(key, func() (any, error) {
		content, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", loader.ErrFileNotFound, filepath.Base(path))
		}
		if err != nil {
			return nil, err
		}
		return content, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// DirGraphFileStore keeps the CSV library in a single local directory.
type DirGraphFileStore struct {
	dir   string
	group singleflight.Group
}

// NewDirGraphFileStore creates the directory if needed and returns a store
// rooted at it.
func NewDirGraphFileStore(dir string) (*DirGraphFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create csv directory %s: %w", dir, err)
	}
	return &DirGraphFileStore{dir: dir}, nil
}

// ListFiles returns all .csv files in the directory sorted by name.
func (s *DirGraphFileStore) ListFiles(ctx context.Context) ([]loader.FileInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list csv directory: %w", err)
	}

	files := make([]loader.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, err := loader.CleanCSVName(entry.Name())
		if err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, loader.FileInfo{
			Name:       name,
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(files[i].Name) < strings.ToLower(files[j].Name)
	})
	return files, nil
}

// PutFile writes content under name, replacing an existing file atomically.
func (s *DirGraphFileStore) PutFile(ctx context.Context, name string, content io.Reader) (loader.FileInfo, error) {
	name, err := loader.CleanCSVName(name)
	if err != nil {
		return loader.FileInfo{}, err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return loader.FileInfo{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()
		return loader.FileInfo{}, fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return loader.FileInfo{}, fmt.Errorf("failed to write %s: %w", name, err)
	}

	target := filepath.Join(s.dir, name)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return loader.FileInfo{}, fmt.Errorf("failed to store %s: %w", name, err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return loader.FileInfo{}, err
	}
	return loader.FileInfo{Name: name, Size: info.Size(), ModifiedAt: info.ModTime()}, nil
}

// Open returns a GraphFile for a stored CSV. The file must exist.
func (s *DirGraphFileStore) Open(ctx context.Context, name string) (loader.GraphFile, error) {
	name, err := loader.CleanCSVName(name)
	if err != nil {
		return loader.GraphFile{}, err
	}
	p := filepath.Join(s.dir, name)
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return loader.GraphFile{}, fmt.Errorf("%w: %s", loader.ErrFileNotFound, name)
		}
		return loader.GraphFile{}, err
	}
	return loader.NewGraphCSVFile(loader.NewGraphFileParams{
		ID:       name,
		FilePath: p,
		Loader:   s,
	}), nil
}

// GetFileText reads a stored file.
func (s *DirGraphFileStore) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	return readShared(ctx, &s.group, file.FilePath, loader.CacheKey(file))
}
