package archive

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hall.playmission")

	if err := WriteFile(path, []byte("first")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := WriteFile(path, []byte("second")); err != nil {
		t.Fatalf("expected overwrite to succeed, got %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written archive: %v", err)
	}
	if !bytes.Equal(got, []byte("second")) {
		t.Fatalf("expected second contents, got %q", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the archive to remain, got %d entries", len(entries))
	}
}

func TestWriteFileMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "hall.playmission")
	if err := WriteFile(path, []byte("data")); err == nil {
		t.Fatalf("expected error")
	}
}
