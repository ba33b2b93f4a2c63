package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name        string
		size        int64
		contentType string
		wantErr     error
	}{
		{"pdf within limit", 1024, "application/pdf", nil},
		{"pdf at limit", MaxReportSize, "application/pdf", nil},
		{"pdf over limit", MaxReportSize + 1, "application/pdf", ErrFileTooLarge},
		{"png rejected", 1024, "image/png", ErrUnsupportedFileType},
		{"empty content type", 1024, "", ErrUnsupportedFileType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateUpload(tt.size, tt.contentType)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validateUpload(%d, %q) = %v, want %v", tt.size, tt.contentType, err, tt.wantErr)
			}
		})
	}
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error: %v", err)
	}
	ctx := context.Background()

	content := []byte("%PDF-1.4 fake report body")
	ref, err := store.Save(ctx, bytes.NewReader(content), int64(len(content)), "application/pdf", "bloodwork.pdf")
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if ref.OriginalName != "bloodwork.pdf" {
		t.Errorf("original name = %q", ref.OriginalName)
	}
	if ref.Size != int64(len(content)) {
		t.Errorf("size = %d, want %d", ref.Size, len(content))
	}
	if !strings.HasPrefix(ref.Key, "report-") || !strings.HasSuffix(ref.Key, ".pdf") {
		t.Errorf("unexpected key shape %q", ref.Key)
	}

	rc, err := store.Open(ctx, ref.Key)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("read back %q, want %q", got, content)
	}
}

func TestLocalStoreAcceptsBodyAtLimit(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error: %v", err)
	}

	body := io.LimitReader(neverEnding('a'), MaxReportSize)
	ref, err := store.Save(context.Background(), body, MaxReportSize, "application/pdf", "full.pdf")
	if err != nil {
		t.Fatalf("Save() error = %v, want nil", err)
	}
	if ref.Size != MaxReportSize {
		t.Errorf("size = %d, want %d", ref.Size, int64(MaxReportSize))
	}
}

func TestLocalStoreRejectsBodyJustOverLimit(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error: %v", err)
	}

	body := io.LimitReader(neverEnding('a'), MaxReportSize+1)
	_, err = store.Save(context.Background(), body, MaxReportSize, "application/pdf", "over.pdf")
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("Save() error = %v, want %v", err, ErrFileTooLarge)
	}
}

func TestLocalStoreRejectsOversizeBody(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error: %v", err)
	}

	// The declared size passes validation but the body keeps going.
	body := io.LimitReader(neverEnding('a'), MaxReportSize+512)
	_, err = store.Save(context.Background(), body, 1024, "application/pdf", "huge.pdf")
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("Save() error = %v, want %v", err, ErrFileTooLarge)
	}
}

func TestLocalStoreOpenUnknownKey(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error: %v", err)
	}

	if _, err := store.Open(context.Background(), "report-0-missing.pdf"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Open(missing) error = %v, want %v", err, ErrFileNotFound)
	}
}

func TestLocalStoreRejectsPathTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error: %v", err)
	}

	for _, key := range []string{"../secrets.pdf", "a/b.pdf", "..", "sub/../../etc/passwd"} {
		if _, err := store.Open(context.Background(), key); !errors.Is(err, ErrFileNotFound) {
			t.Errorf("Open(%q) error = %v, want %v", key, err, ErrFileNotFound)
		}
	}
}

// neverEnding yields an infinite stream of one byte.
type neverEnding byte

func (b neverEnding) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(b)
	}
	return len(p), nil
}
