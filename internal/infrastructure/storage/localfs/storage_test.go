package localfs

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveThenOpenRoundTrip(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	content := []byte("%PDF-1.7 stub")
	if err := storage.Save(ctx, "doc-1_10q.pdf", bytes.NewReader(content)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reader, err := storage.Open(ctx, "doc-1_10q.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reader.Close()

	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	for _, key := range []string{"", "../escape.txt", "a/b.txt", `a\b.txt`} {
		if err := storage.Save(ctx, key, strings.NewReader("x")); err == nil {
			t.Fatalf("Save(%q) accepted invalid key", key)
		}
		if _, err := storage.Open(ctx, key); err == nil {
			t.Fatalf("Open(%q) accepted invalid key", key)
		}
	}
}

func TestOpenMissingKey(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := storage.Open(context.Background(), "missing.pdf"); err == nil {
		t.Fatal("expected error for missing key")
	}
}
