package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// LocalStore writes reports to a directory on disk. Keys never contain path
// separators, so a stored key cannot escape the root.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Save(ctx context.Context, r io.Reader, size int64, contentType, originalName string) (*StoredFile, error) {
	if err := validateUpload(size, contentType); err != nil {
		return nil, err
	}

	key := newKey()
	path := filepath.Join(s.root, key)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create report file: %w", err)
	}

	written, err := io.Copy(f, &limitedReader{r: r, remaining: MaxReportSize})
	if cerr := f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, ErrFileTooLarge) {
			return nil, ErrFileTooLarge
		}
		return nil, fmt.Errorf("write report file: %w", err)
	}

	return &StoredFile{
		Key:          key,
		OriginalName: originalName,
		Size:         written,
		UploadedAt:   time.Now().UTC(),
	}, nil
}

func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if key == "" || key == "." || key == ".." || key != filepath.Base(key) {
		return nil, ErrFileNotFound
	}

	f, err := os.Open(filepath.Join(s.root, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("open report file: %w", err)
	}
	return f, nil
}
