package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestStorage(t *testing.T) *LocalFileStorage {
	t.Helper()
	s, err := NewLocalFileStorage(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewLocalFileStorage() failed: %v", err)
	}
	return s
}

func TestLocalFileStorage_SaveAndOpen(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	ref, err := s.Save(ctx, "proforma.pdf", bytes.NewReader([]byte("pdf content")))
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if !strings.HasSuffix(ref, "_proforma.pdf") {
		t.Errorf("ref = %q, want uuid-prefixed filename", ref)
	}

	r, err := s.Open(ctx, ref)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}
	if string(data) != "pdf content" {
		t.Errorf("content = %q, want %q", data, "pdf content")
	}
}

func TestLocalFileStorage_UniqueRefs(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	ref1, err := s.Save(ctx, "receipt.pdf", bytes.NewReader([]byte("one")))
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	ref2, err := s.Save(ctx, "receipt.pdf", bytes.NewReader([]byte("two")))
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	if ref1 == ref2 {
		t.Error("saving the same filename twice must yield distinct refs")
	}
}

func TestLocalFileStorage_SanitizesFilenames(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	ref, err := s.Save(ctx, "../../../etc/pass wd", bytes.NewReader([]byte("x")))
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if strings.Contains(ref, "/") || strings.Contains(ref, " ") {
		t.Errorf("ref = %q, want sanitized name", ref)
	}
	if !s.Exists(ctx, ref) {
		t.Error("sanitized file should exist under the base directory")
	}
}

func TestLocalFileStorage_OpenRejectsTraversal(t *testing.T) {
	s := newTestStorage(t)

	if _, err := s.Open(context.Background(), "../../etc/passwd"); err == nil {
		t.Error("Open() should refuse refs that escape the base directory")
	}
}

func TestLocalFileStorage_Exists(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if s.Exists(ctx, "nope") {
		t.Error("Exists() = true for missing ref")
	}

	ref, err := s.Save(ctx, "doc.pdf", bytes.NewReader([]byte("x")))
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if !s.Exists(ctx, ref) {
		t.Error("Exists() = false for saved ref")
	}
}

func TestLocalFileStorage_Path(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	ref, err := s.Save(ctx, "doc.pdf", bytes.NewReader([]byte("x")))
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	path := s.Path(ref)
	if !strings.HasSuffix(path, ref) {
		t.Errorf("Path() = %q, want it to end with the ref", path)
	}
}
