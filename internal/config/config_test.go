package config_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"filesentry/internal/config"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := config.NewConfig("/srv/www", "/var/lib/filesentry")

	if cfg.RootDir != "/srv/www" {
		t.Errorf("RootDir = %q", cfg.RootDir)
	}
	if cfg.LogDir != filepath.Join("/var/lib/filesentry", "log") {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if cfg.Scan.MaxFileSize != 1<<20 {
		t.Errorf("MaxFileSize = %d, want 1 MiB", cfg.Scan.MaxFileSize)
	}
	if cfg.Encryption.Type != "aesgcm" {
		t.Errorf("Encryption.Type = %q", cfg.Encryption.Type)
	}
	if cfg.Retention.Tier2Days != 30 || cfg.Retention.Tier3Days != 90 {
		t.Errorf("retention tiers = %d/%d, want 30/90", cfg.Retention.Tier2Days, cfg.Retention.Tier3Days)
	}
	if cfg.Retention.PruneBaseline {
		t.Error("PruneBaseline defaults true, baseline should be protected")
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q", cfg.Database.Type)
	}
	if len(cfg.Scan.TextExtensions) == 0 {
		t.Error("no default text extensions")
	}
}

func TestConfig_RoundTrip(t *testing.T) {
	cfg := config.NewConfig("/srv/www", "/var/lib/filesentry")
	cfg.Scan.FileTypes = []string{"php", "js"}
	cfg.Scan.ExcludePatterns = []string{"*.log", "cache/*"}
	cfg.Encryption.Secret = "hunter2"
	cfg.Security.SensitivePatterns = []string{"*.env"}
	cfg.Archive = config.ArchiveConfig{Type: "s3", S3Bucket: "fs-archive", S3Region: "eu-west-1"}
	cfg.Priority = []config.PriorityRuleConfig{{Pattern: "wp-config.php", Level: "critical"}}

	m := &config.Manager{}
	var buf bytes.Buffer
	if err := m.Write(&buf, cfg); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.RootDir != cfg.RootDir {
		t.Errorf("RootDir = %q, want %q", got.RootDir, cfg.RootDir)
	}
	if len(got.Scan.ExcludePatterns) != 2 || got.Scan.ExcludePatterns[1] != "cache/*" {
		t.Errorf("ExcludePatterns = %v", got.Scan.ExcludePatterns)
	}
	if got.Archive.S3Bucket != "fs-archive" {
		t.Errorf("S3Bucket = %q", got.Archive.S3Bucket)
	}
	if len(got.Priority) != 1 || got.Priority[0].Level != "critical" {
		t.Errorf("Priority = %v", got.Priority)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *config.Config {
		cfg := config.NewConfig("/srv/www", t.TempDir())
		cfg.Encryption.Secret = "hunter2"
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cfg := valid()
	cfg.RootDir = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "root_dir") {
		t.Errorf("missing root_dir: err = %v", err)
	}

	cfg = valid()
	cfg.Encryption.Secret = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "encryption.secret") {
		t.Errorf("missing secret: err = %v", err)
	}

	cfg = valid()
	cfg.Retention.Tier2Days = 90
	cfg.Retention.Tier3Days = 30
	if err := cfg.Validate(); err == nil {
		t.Error("inverted retention tiers accepted")
	}
}

func TestConfig_CacheTTLDays(t *testing.T) {
	cfg := config.NewConfig("/srv/www", t.TempDir())
	if got := cfg.CacheTTLDays(); got != 90 {
		t.Errorf("CacheTTLDays() = %d, want retention fallback 90", got)
	}
	cfg.Cache.TTLDays = 14
	if got := cfg.CacheTTLDays(); got != 14 {
		t.Errorf("CacheTTLDays() = %d, want explicit 14", got)
	}
}

func TestInit_RefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filesentry.toml")
	cfg := config.NewConfig("/srv/www", t.TempDir())
	cfg.Encryption.Secret = "hunter2"

	if err := config.Init(path, cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := config.Init(path, cfg); err == nil {
		t.Error("Init() overwrote an existing config")
	}

	loaded, err := config.ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	if loaded.Encryption.Secret != "hunter2" {
		t.Errorf("Secret = %q after reload", loaded.Encryption.Secret)
	}
}

func TestReadFromFile_Missing(t *testing.T) {
	if _, err := config.ReadFromFile(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("ReadFromFile() succeeded for a missing file")
	}
}
