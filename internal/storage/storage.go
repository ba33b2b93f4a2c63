package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxReportSize is the declared size ceiling for medical reports.
	MaxReportSize = 10 << 20 // 10 MiB

	pdfContentType = "application/pdf"
)

var (
	ErrFileTooLarge        = errors.New("medical report exceeds the 10 MiB limit")
	ErrUnsupportedFileType = errors.New("only PDF medical reports are accepted")
	ErrFileNotFound        = errors.New("stored file not found")
)

// StoredFile is the opaque reference handed back to the booking core.
type StoredFile struct {
	Key          string
	OriginalName string
	Size         int64
	UploadedAt   time.Time
}

// Store accepts a byte stream and returns a reference; the booking core
// never learns where bytes actually live.
type Store interface {
	Save(ctx context.Context, r io.Reader, size int64, contentType, originalName string) (*StoredFile, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// validateUpload enforces the declared ceiling and the PDF-only policy
// before any bytes are written.
func validateUpload(size int64, contentType string) error {
	if size > MaxReportSize {
		return ErrFileTooLarge
	}
	if contentType != pdfContentType {
		return ErrUnsupportedFileType
	}
	return nil
}

// newKey builds a collision-resistant object key; the timestamp keeps keys
// roughly sortable for operators browsing the bucket or directory.
func newKey() string {
	return fmt.Sprintf("report-%d-%s.pdf", time.Now().UnixNano(), uuid.NewString())
}

// limitedReader fails once more than the ceiling has been consumed, so a
// lying declared size cannot sneak an oversize body past validation.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrFileTooLarge
	}
	// Allow one byte past the ceiling so a body of exactly the ceiling
	// still sees its EOF; only an actual extra byte trips the error.
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrFileTooLarge
	}
	return n, err
}
