package config

// Settings adapts a Config to the settings interface the scan orchestrator
// and retention engine consume. The engine itself carries no filter
// defaults; everything observable comes through this adapter.
type Settings struct {
	cfg *Config
}

// NewSettings wraps cfg in a Settings adapter.
func NewSettings(cfg *Config) *Settings {
	return &Settings{cfg: cfg}
}

// GetScanFileTypes returns the extension allowlist (empty = scan all).
func (s *Settings) GetScanFileTypes() []string {
	return s.cfg.Scan.FileTypes
}

// GetExcludePatterns returns the exclude globs.
func (s *Settings) GetExcludePatterns() []string {
	return s.cfg.Scan.ExcludePatterns
}

// GetMaxFileSize returns the per-file byte cap.
func (s *Settings) GetMaxFileSize() int64 {
	return s.cfg.Scan.MaxFileSize
}

// GetRetentionPeriodDays returns the content-cache retention window.
func (s *Settings) GetRetentionPeriodDays() int {
	return s.cfg.CacheTTLDays()
}

// GetRetentionTier2Days returns the full-diff retention window.
func (s *Settings) GetRetentionTier2Days() int {
	return s.cfg.Retention.Tier2Days
}

// GetRetentionTier3Days returns the record retention window.
func (s *Settings) GetRetentionTier3Days() int {
	return s.cfg.Retention.Tier3Days
}
