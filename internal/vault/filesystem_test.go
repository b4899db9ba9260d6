package vault_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"filesentry/internal/vault"
)

func TestFileSystemVault_Archive(t *testing.T) {
	root := t.TempDir()
	v, err := vault.NewFileSystemVault(root)
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	data := []byte(`{"scan":{}}`)
	if err := v.Archive(context.Background(), "scans/abc.json", data); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(root, "scans", "abc.json"))
	if err != nil {
		t.Fatalf("reading archived object: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("archived data = %q, want %q", got, data)
	}

	// Re-archiving the same name overwrites cleanly.
	if err := v.Archive(context.Background(), "scans/abc.json", []byte("v2")); err != nil {
		t.Fatalf("second Archive() error = %v", err)
	}
	got, _ = os.ReadFile(filepath.Join(root, "scans", "abc.json"))
	if string(got) != "v2" {
		t.Errorf("overwritten data = %q, want v2", got)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Join(root, "scans"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}

func TestMemoryVault(t *testing.T) {
	v := vault.NewMemoryVault()
	if err := v.Archive(context.Background(), "a", []byte("one")); err != nil {
		t.Fatal(err)
	}
	data, ok := v.Get("a")
	if !ok || string(data) != "one" {
		t.Errorf("Get() = %q, %v", data, ok)
	}
	if v.Len() != 1 {
		t.Errorf("Len() = %d, want 1", v.Len())
	}
	if _, ok := v.Get("missing"); ok {
		t.Error("Get() hit for missing object")
	}
}
