package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the main configuration for filesentry.
type Config struct {
	RootDir string `toml:"root_dir"` // directory tree to monitor
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`

	Scan       ScanConfig           `toml:"scan"`
	Cache      CacheConfig          `toml:"cache"`
	Encryption EncryptionConfig     `toml:"encryption"`
	Retention  RetentionConfig      `toml:"retention"`
	Security   SecurityConfig       `toml:"security"`
	Priority   []PriorityRuleConfig `toml:"priority_rules"`
	Archive    ArchiveConfig        `toml:"archive"`
	Schedule   ScheduleConfig       `toml:"schedule"`
	Database   DatabaseConfig       `toml:"database"`
}

// ScanConfig holds the file filters the orchestrator applies.
// The orchestrator has no defaults of its own; everything comes from here.
type ScanConfig struct {
	// FileTypes is the extension allowlist (without dots). Empty = scan all.
	FileTypes []string `toml:"file_types"`

	// ExcludePatterns are case-sensitive globs ('*' any run, '?' one char)
	// matched against the path relative to RootDir.
	ExcludePatterns []string `toml:"exclude_patterns"`

	// MaxFileSize is the per-file byte cap for checksumming and diffing.
	MaxFileSize int64 `toml:"max_file_size"`

	// TextExtensions are the extensions treated as diffable text.
	TextExtensions []string `toml:"text_extensions"`
}

// CacheConfig controls the content cache.
type CacheConfig struct {
	// TTLDays is the entry lifetime. 0 means "match the retention period"
	// (tier-3 days) so diffs stay reconstructable for the whole window a
	// FileRecord may still be queried.
	TTLDays int `toml:"ttl_days"`
}

// EncryptionConfig selects the cache cipher.
// This uses a tagged union pattern - Type determines which cipher is built.
type EncryptionConfig struct {
	Type   string `toml:"type"` // "aesgcm" (default) or "age"
	Secret string `toml:"secret"`
}

// RetentionConfig holds the tiered pruning policy.
type RetentionConfig struct {
	Tier2Days int `toml:"tier2_days"` // full diffs kept this long
	Tier3Days int `toml:"tier3_days"` // records kept, diffs stripped

	// PruneBaseline opts the baseline scan into the tier policy. The zero
	// value keeps the baseline fully protected.
	PruneBaseline bool `toml:"prune_baseline"`

	SweepIntervalHours int `toml:"sweep_interval_hours"`
}

// SecurityConfig configures the sensitive-file policy.
type SecurityConfig struct {
	// SensitivePatterns are globs whose matches are never read, cached,
	// or diffed (e.g. "*.env", "*credentials*").
	SensitivePatterns []string `toml:"sensitive_patterns"`
}

// PriorityRuleConfig maps a path pattern to a priority level.
type PriorityRuleConfig struct {
	Pattern string `toml:"pattern"`
	Level   string `toml:"level"`
}

// ArchiveConfig configures where pruned scans are exported.
// This uses a tagged union pattern - Type determines which other fields are
// relevant. An empty Type disables archiving.
type ArchiveConfig struct {
	Type string `toml:"type"` // "", "memory", "filesystem", or "s3"

	// Filesystem-specific (Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific (Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`
}

// ScheduleConfig configures the trigger layer.
type ScheduleConfig struct {
	IntervalMinutes int `toml:"interval_minutes"` // 0 disables scheduled scans
	DebounceSeconds int `toml:"debounce_seconds"` // watch-mode settle time
}

// DatabaseConfig configures the record store.
// This uses a tagged union pattern - Type determines which fields apply.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// NewConfig creates a Config with the provided paths and sane defaults.
func NewConfig(rootDir, baseDir string) *Config {
	cfg := &Config{
		RootDir: rootDir,
		DataDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: baseDir,
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Scan.MaxFileSize == 0 {
		c.Scan.MaxFileSize = 1 << 20 // 1 MiB
	}
	if len(c.Scan.TextExtensions) == 0 {
		c.Scan.TextExtensions = []string{
			"txt", "md", "php", "js", "ts", "css", "html", "htm", "xml",
			"json", "yaml", "yml", "toml", "ini", "conf", "sh", "go", "py",
			"rb", "sql", "csv", "log",
		}
	}
	if c.Encryption.Type == "" {
		c.Encryption.Type = "aesgcm"
	}
	if c.Retention.Tier2Days == 0 {
		c.Retention.Tier2Days = 30
	}
	if c.Retention.Tier3Days == 0 {
		c.Retention.Tier3Days = 90
	}
	if c.Retention.SweepIntervalHours == 0 {
		c.Retention.SweepIntervalHours = 6
	}
	if c.Schedule.DebounceSeconds == 0 {
		c.Schedule.DebounceSeconds = 5
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
}

// CacheTTLDays resolves the effective cache TTL: explicit setting, or the
// retention period when unset.
func (c *Config) CacheTTLDays() int {
	if c.Cache.TTLDays > 0 {
		return c.Cache.TTLDays
	}
	return c.Retention.Tier3Days
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.RootDir == "" {
		return fmt.Errorf("root_dir must be set")
	}
	if c.Encryption.Secret == "" {
		return fmt.Errorf("encryption.secret must be set (content cache is encrypted at rest)")
	}
	if c.Retention.Tier3Days < c.Retention.Tier2Days {
		return fmt.Errorf("retention.tier3_days (%d) must not be below tier2_days (%d)",
			c.Retention.Tier3Days, c.Retention.Tier2Days)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader and applies defaults.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
