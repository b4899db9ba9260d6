package store

import (
	"fmt"
	"path/filepath"

	"filesentry/internal/cache"
	"filesentry/internal/config"
	"filesentry/internal/priority"
	"filesentry/internal/retention"
	"filesentry/internal/scan"
)

// NewStoreFromConfig creates the store implementation selected by the
// database config type.
func NewStoreFromConfig(cfg config.DatabaseConfig) (*SQLiteStore, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, "filesentry.db"))
	case "memory":
		return NewSQLiteStore(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// The one store backs every persistence interface in the engine.
var (
	_ scan.Store         = (*SQLiteStore)(nil)
	_ cache.EntryStore   = (*SQLiteStore)(nil)
	_ retention.Store    = (*SQLiteStore)(nil)
	_ priority.RuleStore = (*SQLiteStore)(nil)
)
