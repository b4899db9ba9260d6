package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"filesentry/internal/app"
	"filesentry/internal/config"
	"filesentry/internal/model"
)

func newTestApp(t *testing.T) (*app.App, string) {
	t.Helper()
	root := t.TempDir()
	cfg := config.NewConfig(root, t.TempDir())
	cfg.Encryption.Secret = "test-secret"
	cfg.Database.Type = "memory"

	a, err := app.NewApp(cfg, "Test")
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, root
}

func TestApp_GetScanSummary(t *testing.T) {
	a, root := newTestApp(t)
	for name, content := range map[string]string{
		"index.php": "<?php echo 1;\n",
		"notes.txt": "hello\n",
	} {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	sr, err := a.RunScan(context.Background(), model.ScanManual)
	if err != nil {
		t.Fatalf("RunScan() error = %v", err)
	}
	if sr.Status != model.ScanCompleted {
		t.Fatalf("status = %s, want completed", sr.Status)
	}

	summary, err := a.GetScanSummary(sr.ID)
	if err != nil {
		t.Fatalf("GetScanSummary() error = %v", err)
	}
	if summary.ScanID != sr.ID {
		t.Errorf("ScanID = %q, want %q", summary.ScanID, sr.ID)
	}
	if summary.Total != 2 || summary.New != 2 {
		t.Errorf("summary = %+v, want 2 total, 2 new", summary)
	}
	if summary.Changed != 0 || summary.Deleted != 0 {
		t.Errorf("summary = %+v, want no changed or deleted", summary)
	}
}

func TestApp_GetScanSummary_UnknownScan(t *testing.T) {
	a, _ := newTestApp(t)
	if _, err := a.GetScanSummary("missing"); err == nil {
		t.Error("GetScanSummary() succeeded for an unknown scan")
	}
}
