package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/digital-blueprint/apiserver/config"
)

func TestOpenDisabled(t *testing.T) {
	s, err := Open(context.Background(), config.StorageConfig{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s != nil {
		t.Fatalf("expected nil storage when no backend is configured")
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), config.StorageConfig{Backend: "ftp"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, config.StorageConfig{Backend: BackendMemory})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	key := "reports/u1/audience-blueprint-report.html"
	if err := s.PutBytes(ctx, key, []byte("<html></html>"), "text/html"); err != nil {
		t.Fatalf("put: %v", err)
	}

	rc, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "<html></html>" {
		t.Fatalf("unexpected object body %q", data)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, key); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestContentDisposition(t *testing.T) {
	got := contentDisposition("reports/u1/execute-blueprint-report.pdf")
	want := `attachment; filename="execute-blueprint-report.pdf"`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
