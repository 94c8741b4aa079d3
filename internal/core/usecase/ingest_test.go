package usecase

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/finqlabs/finretriever/internal/core/domain"
)

type fakeObjectStorage struct {
	saved map[string][]byte
}

func (f *fakeObjectStorage) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[key] = raw
	return nil
}

func (f *fakeObjectStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.saved[key])), nil
}

type fakePublishQueue struct {
	published []string
}

func (f *fakePublishQueue) PublishDocumentIngested(_ context.Context, documentID string) error {
	f.published = append(f.published, documentID)
	return nil
}

func (f *fakePublishQueue) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return nil
}

func TestUploadStoresAndPublishes(t *testing.T) {
	storage := &fakeObjectStorage{}
	queue := &fakePublishQueue{}
	uc := NewIngestDocumentUseCase(&fakeDocumentRepo{}, storage, queue)

	doc, err := uc.Upload(context.Background(), "10-Q Q2 2024.pdf", "application/pdf", strings.NewReader("%PDF-1.7 stub"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.Status != domain.StatusUploaded {
		t.Fatalf("status = %q", doc.Status)
	}
	if doc.StoragePath != doc.ID+"_10-Q_Q2_2024.pdf" {
		t.Fatalf("storage key = %q", doc.StoragePath)
	}
	if _, ok := storage.saved[doc.StoragePath]; !ok {
		t.Fatalf("nothing stored under %q", doc.StoragePath)
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("published = %v", queue.published)
	}
}

func TestUploadRejectsUnsupportedFormat(t *testing.T) {
	storage := &fakeObjectStorage{}
	queue := &fakePublishQueue{}
	uc := NewIngestDocumentUseCase(&fakeDocumentRepo{}, storage, queue)

	cases := []struct {
		name     string
		filename string
		mimeType string
	}{
		{"zip archive", "filings.zip", "application/zip"},
		{"executable", "report.exe", "application/octet-stream"},
		{"no extension no type", "report", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Upload(context.Background(), tc.filename, tc.mimeType, strings.NewReader("x"))
			if !domain.IsKind(err, domain.ErrInvalidInput) {
				t.Fatalf("Upload(%q) error = %v, want ErrInvalidInput", tc.filename, err)
			}
		})
	}

	if len(storage.saved) != 0 {
		t.Fatalf("rejected uploads were stored: %v", storage.saved)
	}
	if len(queue.published) != 0 {
		t.Fatalf("rejected uploads were published: %v", queue.published)
	}
}

func TestUploadAcceptsByDeclaredTypeOrExtension(t *testing.T) {
	uc := NewIngestDocumentUseCase(&fakeDocumentRepo{}, &fakeObjectStorage{}, &fakePublishQueue{})

	cases := []struct {
		name     string
		filename string
		mimeType string
	}{
		{"octet-stream spreadsheet by extension", "backlog.xlsx", "application/octet-stream"},
		{"unknown extension with text type", "notes.data", "text/plain; charset=utf-8"},
		{"markdown", "summary.md", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := uc.Upload(context.Background(), tc.filename, tc.mimeType, strings.NewReader("x")); err != nil {
				t.Fatalf("Upload(%q, %q) error = %v", tc.filename, tc.mimeType, err)
			}
		})
	}
}
